package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/table-order/database"
	"github.com/yeremiapane/table-order/models"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{
		Driver: database.DriverSQLite,
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func strPtr(s string) *string { return &s }

func seedFood(t *testing.T, db *gorm.DB, name string, price models.Money) models.Food {
	t.Helper()
	food := models.Food{
		Name:        name,
		Description: name + " description",
		Price:       price,
		Image:       "https://img.example/" + name + ".png",
		Category:    models.CategoryPasta,
	}
	require.NoError(t, db.Create(&food).Error)
	return food
}

func seedUser(t *testing.T, db *gorm.DB, email, phone string) models.User {
	t.Helper()
	user := models.User{Name: "Asha", Password: "x"}
	if email != "" {
		user.Email = strPtr(email)
	}
	if phone != "" {
		user.Phone = strPtr(phone)
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedTable(t *testing.T, db *gorm.DB, no int) models.Table {
	t.Helper()
	table := models.Table{TableNo: no}
	require.NoError(t, db.Create(&table).Error)
	return table
}

// orderOnTable places one order of qty dishes at price on the table.
func orderOnTable(t *testing.T, db *gorm.DB, tableID string, price models.Money, qty int) {
	t.Helper()
	user := seedUser(t, db, uuid.NewString()[:8]+"@example.com", "")
	food := seedFood(t, db, "dish-"+uuid.NewString()[:8], price)
	_, err := NewTableService(db, nil, nil).PlaceOrder(context.Background(), user.ID, tableID,
		[]OrderLine{{FoodID: food.ID, Quantity: qty}})
	require.NoError(t, err)
}

func reloadTable(t *testing.T, db *gorm.DB, id string) models.Table {
	t.Helper()
	var table models.Table
	require.NoError(t, db.First(&table, "id = ?", id).Error)
	return table
}

type recordedEvent struct {
	Event string
	Data  interface{}
}

type recordingEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingEvents) Publish(event string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Event: event, Data: data})
}

func (r *recordingEvents) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Event)
	}
	return out
}

type fakeGateway struct {
	mu           sync.Mutex
	requests     []CheckoutSessionRequest
	createErr    error
	status       PaymentStatus
	statusErr    error
	notification *PaymentNotification
	parseErr     error
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &CheckoutSession{ID: "sess_1", RedirectURL: "https://pay.example/" + req.Reference}, nil
}

func (g *fakeGateway) TransactionStatus(ctx context.Context, reference string) (PaymentStatus, error) {
	return g.status, g.statusErr
}

func (g *fakeGateway) ParseNotification(payload []byte) (*PaymentNotification, error) {
	return g.notification, g.parseErr
}

type sentMessage struct {
	Channel string
	To      string
	Body    string
}

type fakeNotifier struct {
	mu       sync.Mutex
	sent     []sentMessage
	emailErr error
	smsErr   error
}

func (n *fakeNotifier) SendEmail(ctx context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{Channel: "email", To: to, Body: body})
	return n.emailErr
}

func (n *fakeNotifier) SendSMS(ctx context.Context, phone, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{Channel: "sms", To: phone, Body: body})
	return n.smsErr
}
