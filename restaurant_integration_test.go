package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/table-order/database"
	"github.com/yeremiapane/table-order/kds"
	"github.com/yeremiapane/table-order/metrics"
	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/router"
	"github.com/yeremiapane/table-order/services"
	"github.com/yeremiapane/table-order/utils"
)

func TestMain(m *testing.M) {
	utils.InitLogger()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type settledGateway struct{}

func (settledGateway) CreateCheckoutSession(ctx context.Context, req services.CheckoutSessionRequest) (*services.CheckoutSession, error) {
	return &services.CheckoutSession{ID: "s", RedirectURL: "https://pay.example/" + req.Reference}, nil
}

func (settledGateway) TransactionStatus(ctx context.Context, reference string) (services.PaymentStatus, error) {
	return services.PaymentSettled, nil
}

func (settledGateway) ParseNotification(payload []byte) (*services.PaymentNotification, error) {
	return nil, services.ErrInvalidSignature
}

type silentNotifier struct{}

func (silentNotifier) SendEmail(ctx context.Context, to, subject, body string) error { return nil }
func (silentNotifier) SendSMS(ctx context.Context, phone, body string) error         { return nil }

func setupApp(t *testing.T) *gin.Engine {
	db, err := database.Connect(database.Config{
		Driver: database.DriverSQLite,
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	m := metrics.New()
	hub := kds.NewHub()
	tokens := utils.NewTokenManager("integration-secret")
	return router.SetupRouter(router.Dependencies{
		Tokens:   tokens,
		Users:    services.NewUserService(db, tokens),
		Foods:    services.NewFoodService(db),
		Tables:   services.NewTableService(db, hub, m),
		Checkout: services.NewCheckoutService(db, settledGateway{}, "https://app.example", hub, m),
		OTP:      services.NewOTPService(db, silentNotifier{}, tokens, m),
		Hub:      hub,
		Metrics:  m,
	})
}

func call(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func dataOf(resp map[string]interface{}) map[string]interface{} {
	return resp["data"].(map[string]interface{})
}

// TestEndToEndIntegration walks a table through ordering, a cancellation
// and checkout.
func TestEndToEndIntegration(t *testing.T) {
	r := setupApp(t)

	code, _ := call(t, r, http.MethodPost, "/user/register", "", gin.H{
		"name": "Asha", "email": "asha@example.com", "phone": "9876543210", "password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, code)

	code, resp := call(t, r, http.MethodPost, "/user/login", "", gin.H{"emailOrPhone": "asha@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, code)
	token := dataOf(resp)["token"].(string)

	code, resp = call(t, r, http.MethodPost, "/food/add", token, gin.H{
		"name": "Veg Noodles", "description": "Hakka style", "price": 250, "image": "noodles.png", "category": models.CategoryNoodles,
	})
	require.Equal(t, http.StatusCreated, code, resp)
	noodlesID := dataOf(resp)["id"].(string)

	code, resp = call(t, r, http.MethodPost, "/food/add", token, gin.H{
		"name": "Cold Coffee", "description": "Iced", "price": "120.50", "image": "coffee.png", "category": models.CategoryDrinks,
	})
	require.Equal(t, http.StatusCreated, code, resp)
	coffeeID := dataOf(resp)["id"].(string)

	code, resp = call(t, r, http.MethodPost, "/table/create", "", gin.H{"tableNo": 12})
	require.Equal(t, http.StatusCreated, code)
	tableID := dataOf(resp)["id"].(string)

	code, resp = call(t, r, http.MethodPost, "/table/order", token, gin.H{
		"tableId": tableID,
		"items": []gin.H{
			{"foodId": noodlesID, "quantity": 2},
			{"foodId": coffeeID, "quantity": 2},
		},
	})
	require.Equal(t, http.StatusCreated, code, resp)
	orderID := dataOf(resp)["id"].(string)

	code, resp = call(t, r, http.MethodPost, "/table/table-orders", "", gin.H{"tableId": tableID})
	require.Equal(t, http.StatusOK, code)
	bill := dataOf(resp)["tableBill"].(map[string]interface{})
	assert.Equal(t, 741.0, bill["total"])
	assert.Equal(t, 133.38, bill["GST"])
	assert.Equal(t, 874.38, bill["totalAmount"])

	code, resp = call(t, r, http.MethodPost, "/table/update-status", "", gin.H{
		"orderId": orderID, "tableId": tableID, "foodId": noodlesID, "status": models.ItemStatusCancelled,
	})
	require.Equal(t, http.StatusOK, code, resp)

	code, resp = call(t, r, http.MethodPost, "/table/table-orders", "", gin.H{"tableId": tableID})
	require.Equal(t, http.StatusOK, code)
	bill = dataOf(resp)["tableBill"].(map[string]interface{})
	assert.Equal(t, 241.0, bill["total"])
	assert.Equal(t, 0.0, bill["GST"])
	rows := dataOf(resp)["tableOrders"].([]interface{})
	require.Len(t, rows, 2)

	code, resp = call(t, r, http.MethodPost, "/table/payment", "", gin.H{"tableId": tableID, "orders": rows})
	require.Equal(t, http.StatusOK, code, resp)
	lines := dataOf(resp)["lineItems"].([]interface{})
	assert.Len(t, lines, 1)
	reference := dataOf(resp)["reference"].(string)
	assert.True(t, strings.HasPrefix(reference, tableID+"_"))

	code, _ = call(t, r, http.MethodPost, "/table/verify-payment", "", gin.H{"tableId": tableID, "success": true, "reference": reference})
	require.Equal(t, http.StatusOK, code)

	code, resp = call(t, r, http.MethodGet, "/table/tables", "", nil)
	require.Equal(t, http.StatusOK, code)
	tables := resp["data"].([]interface{})
	require.Len(t, tables, 1)
	table := tables[0].(map[string]interface{})
	assert.Empty(t, table["currentOrders"])
	past := table["pastOrders"].([]interface{})
	require.Len(t, past, 1)
	assert.Equal(t, true, past[0].(map[string]interface{})["tableBill"].(map[string]interface{})["payment"])
}

func TestForgedWebhookIsRejected(t *testing.T) {
	r := setupApp(t)
	req := httptest.NewRequest(http.MethodPost, "/table/payment/notification", strings.NewReader(`{"order_id":"x_y"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPingAndMetrics(t *testing.T) {
	r := setupApp(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
