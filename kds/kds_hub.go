package kds

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/table-order/utils"
)

// Event types pushed to the staff live feed.
const (
	EventTableCreate      = "table_create"
	EventTableDelete      = "table_delete"
	EventOrderPlaced      = "order_placed"
	EventItemStatusUpdate = "item_status_update"
	EventItemCancelled    = "item_cancelled"
	EventBillUpdate       = "bill_update"
	EventTableSettled     = "table_settled"
)

const (
	writeWait  = 5 * time.Second
	// sendBuffer messages may queue for a client before it is dropped.
	sendBuffer = 32
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type client struct {
	conn   *websocket.Conn
	userID string
	send   chan []byte
}

// Hub fans messages out to every connected staff client. Each client has its
// own writer goroutine, so a stalled socket never holds up Publish.
type Hub struct {
	clients map[*websocket.Conn]*client
	mutex   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]*client),
	}
}

func (h *Hub) RegisterClient(conn *websocket.Conn, userID string) {
	c := &client{conn: conn, userID: userID, send: make(chan []byte, sendBuffer)}
	h.mutex.Lock()
	h.clients[conn] = c
	h.mutex.Unlock()
	go h.writePump(c)
}

func (h *Hub) UnregisterClient(conn *websocket.Conn) {
	h.mutex.Lock()
	h.removeLocked(conn)
	h.mutex.Unlock()
	conn.Close()
}

// removeLocked forgets the client and stops its writer. The caller holds the
// mutex.
func (h *Hub) removeLocked(conn *websocket.Conn) {
	if c, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(c.send)
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Publish queues an event for every client. Clients whose queue is full are
// dropped.
func (h *Hub) Publish(event string, data interface{}) {
	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling %s event: %v", event, err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			utils.ErrorLogger.Printf("Dropping slow feed client %s", c.userID)
			h.removeLocked(conn)
			conn.Close()
		}
	}
}

func (h *Hub) writePump(c *client) {
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			utils.ErrorLogger.Printf("Dropping feed client %s: %v", c.userID, err)
			h.UnregisterClient(c.conn)
			return
		}
	}
}
