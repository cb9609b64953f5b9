package controllers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/table-order/kds"
	"github.com/yeremiapane/table-order/middlewares"
	"github.com/yeremiapane/table-order/utils"
)

// FeedController serves the staff live feed over WebSocket.
type FeedController struct {
	hub      *kds.Hub
	upgrader websocket.Upgrader
}

// NewFeedController only accepts handshakes from allowedOrigin; an empty
// origin or "*" accepts any.
func NewFeedController(hub *kds.Hub, allowedOrigin string) *FeedController {
	return &FeedController{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(r.Header.Get("Origin"), allowedOrigin)
			},
		},
	}
}

func originAllowed(origin, allowed string) bool {
	if allowed == "" || allowed == "*" || origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	a, err := url.Parse(allowed)
	if err != nil {
		return false
	}
	return u.Scheme == a.Scheme && u.Host == a.Host
}

// Serve -> GET /ws?token=
func (fc *FeedController) Serve(c *gin.Context) {
	ws, err := fc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Printf("websocket upgrade: %v", err)
		return
	}

	fc.hub.RegisterClient(ws, middlewares.UserID(c))

	// The feed is one way; reading only detects the disconnect.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	fc.hub.UnregisterClient(ws)
}
