package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/table-order/kds"
	"github.com/yeremiapane/table-order/models"
)

func newCheckoutService(t *testing.T) (*CheckoutService, *fakeGateway, *recordingEvents) {
	db := newTestDB(t)
	gw := &fakeGateway{status: PaymentSettled}
	events := &recordingEvents{}
	return NewCheckoutService(db, gw, "https://app.example/", events, nil), gw, events
}

// openPayment records a pending checkout of amount for the table, as if the
// session had been opened earlier.
func openPayment(t *testing.T, svc *CheckoutService, tableID string, amount models.Money) string {
	t.Helper()
	ref := NewPaymentReference(tableID)
	require.NoError(t, svc.db.Create(&models.Payment{
		TableID:   tableID,
		Reference: ref,
		Amount:    amount,
		Status:    models.PaymentStatusPending,
	}).Error)
	return ref
}

func TestCreateCheckoutBelowThresholdHasNoTaxLine(t *testing.T) {
	svc, gw, _ := newCheckoutService(t)
	table := seedTable(t, svc.db, 1)
	orderOnTable(t, svc.db, table.ID, models.Rupees(200), 2)

	res, err := svc.CreateCheckout(context.Background(), table.ID, []CheckoutItem{
		{Name: "Pasta", Price: models.Rupees(200), Quantity: 2},
	})
	require.NoError(t, err)
	require.Len(t, res.LineItems, 1)
	assert.Equal(t, models.Rupees(200), res.LineItems[0].UnitAmount)
	assert.True(t, strings.HasPrefix(res.Reference, table.ID+"_"))
	assert.Equal(t, "https://pay.example/"+res.Reference, res.SessionURL)

	require.Len(t, gw.requests, 1)
	assert.Equal(t, "https://app.example/verify?success=true&tableId="+table.ID, gw.requests[0].SuccessURL)
	assert.Equal(t, "https://app.example/verify?success=false&tableId="+table.ID, gw.requests[0].CancelURL)
}

func TestCreateCheckoutAddsTaxLine(t *testing.T) {
	svc, _, _ := newCheckoutService(t)
	table := seedTable(t, svc.db, 1)
	orderOnTable(t, svc.db, table.ID, models.Rupees(300), 2)

	res, err := svc.CreateCheckout(context.Background(), table.ID, []CheckoutItem{
		{Name: "Pasta", Price: models.Rupees(300), Quantity: 2},
	})
	require.NoError(t, err)
	require.Len(t, res.LineItems, 2)
	tax := res.LineItems[1]
	assert.Equal(t, "GST (18%)", tax.Name)
	assert.Equal(t, models.Money(10800), tax.UnitAmount)
	assert.Equal(t, 1, tax.Quantity)
}

func TestCreateCheckoutErrors(t *testing.T) {
	svc, gw, _ := newCheckoutService(t)
	ctx := context.Background()
	table := seedTable(t, svc.db, 1)

	_, err := svc.CreateCheckout(ctx, table.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateCheckout(ctx, table.ID, []CheckoutItem{{Name: "Pasta", Price: 0, Quantity: 1}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateCheckout(ctx, "missing", []CheckoutItem{{Name: "Pasta", Price: 100, Quantity: 1}})
	assert.ErrorIs(t, err, ErrNotFound)

	// Items that do not add up to the bill never reach the gateway.
	_, err = svc.CreateCheckout(ctx, table.ID, []CheckoutItem{{Name: "Pasta", Price: 100, Quantity: 1}})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Empty(t, gw.requests)

	orderOnTable(t, svc.db, table.ID, 100, 1)
	gw.createErr = errors.New("gateway down")
	_, err = svc.CreateCheckout(ctx, table.ID, []CheckoutItem{{Name: "Pasta", Price: 100, Quantity: 1}})
	assert.ErrorIs(t, err, ErrUpstream)
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Payment processing failed", se.Message)
}

func TestConfirmCheckoutSettlesTable(t *testing.T) {
	svc, _, events := newCheckoutService(t)
	ctx := context.Background()
	table := seedTable(t, svc.db, 1)
	user := seedUser(t, svc.db, "asha@example.com", "")
	pasta := seedFood(t, svc.db, "pasta", models.Rupees(300))
	tables := NewTableService(svc.db, nil, nil)
	_, err := tables.PlaceOrder(ctx, user.ID, table.ID, []OrderLine{{FoodID: pasta.ID, Quantity: 2}})
	require.NoError(t, err)

	res, err := svc.CreateCheckout(ctx, table.ID, []CheckoutItem{{Name: "pasta", Price: models.Rupees(300), Quantity: 2}})
	require.NoError(t, err)
	ref := res.Reference
	require.NoError(t, svc.ConfirmCheckout(ctx, table.ID, ref))

	reloaded := reloadTable(t, svc.db, table.ID)
	assert.Zero(t, reloaded.Bill.TotalAmount)

	var archives []models.TableArchive
	require.NoError(t, svc.db.Preload("Orders").Find(&archives).Error)
	require.Len(t, archives, 1)
	assert.True(t, archives[0].Bill.Payment)
	assert.Equal(t, models.Rupees(708), archives[0].Bill.TotalAmount)
	assert.Len(t, archives[0].Orders, 1)
	require.NotNil(t, archives[0].PaymentRef)
	assert.Equal(t, ref, *archives[0].PaymentRef)

	// A repeated confirmation for the same payment is a no-op.
	require.NoError(t, svc.ConfirmCheckout(ctx, table.ID, ref))
	var count int64
	svc.db.Model(&models.TableArchive{}).Count(&count)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, []string{kds.EventTableSettled}, events.names())
}

func TestConfirmCheckoutWithNoOrdersPushesEmptyArchive(t *testing.T) {
	svc, _, _ := newCheckoutService(t)
	table := seedTable(t, svc.db, 1)
	ref := openPayment(t, svc, table.ID, 0)

	require.NoError(t, svc.ConfirmCheckout(context.Background(), table.ID, ref))

	var archives []models.TableArchive
	require.NoError(t, svc.db.Preload("Orders").Find(&archives).Error)
	require.Len(t, archives, 1)
	assert.Empty(t, archives[0].Orders)
	assert.True(t, archives[0].Bill.Payment)
	assert.Zero(t, archives[0].Bill.TotalAmount)
}

func TestConfirmCheckoutRejectsUnpaidOrForeignReference(t *testing.T) {
	svc, gw, _ := newCheckoutService(t)
	ctx := context.Background()
	table := seedTable(t, svc.db, 1)
	other := seedTable(t, svc.db, 2)

	err := svc.ConfirmCheckout(ctx, table.ID, NewPaymentReference(other.ID))
	assert.ErrorIs(t, err, ErrUnauthorized)

	gw.status = PaymentPending
	err = svc.ConfirmCheckout(ctx, table.ID, NewPaymentReference(table.ID))
	assert.ErrorIs(t, err, ErrUnauthorized)

	gw.statusErr = errors.New("timeout")
	err = svc.ConfirmCheckout(ctx, table.ID, NewPaymentReference(table.ID))
	assert.ErrorIs(t, err, ErrUpstream)

	var count int64
	svc.db.Model(&models.TableArchive{}).Count(&count)
	assert.Zero(t, count)
}

func TestHandleNotification(t *testing.T) {
	svc, gw, _ := newCheckoutService(t)
	ctx := context.Background()
	table := seedTable(t, svc.db, 1)
	ref := openPayment(t, svc, table.ID, 0)

	gw.parseErr = ErrInvalidSignature
	assert.ErrorIs(t, svc.HandleNotification(ctx, []byte(`{}`)), ErrUnauthorized)

	gw.parseErr = nil
	gw.notification = &PaymentNotification{Reference: ref, Status: PaymentPending}
	require.NoError(t, svc.HandleNotification(ctx, []byte(`{}`)))

	var count int64
	svc.db.Model(&models.TableArchive{}).Count(&count)
	assert.Zero(t, count)

	gw.notification = &PaymentNotification{Reference: ref, Status: PaymentSettled}
	require.NoError(t, svc.HandleNotification(ctx, []byte(`{}`)))
	require.NoError(t, svc.HandleNotification(ctx, []byte(`{}`)))
	svc.db.Model(&models.TableArchive{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCheckoutPaymentRecordLifecycle(t *testing.T) {
	svc, gw, _ := newCheckoutService(t)
	ctx := context.Background()
	table := seedTable(t, svc.db, 1)
	orderOnTable(t, svc.db, table.ID, models.Rupees(300), 2)

	res, err := svc.CreateCheckout(ctx, table.ID, []CheckoutItem{{Name: "Pasta", Price: models.Rupees(300), Quantity: 2}})
	require.NoError(t, err)

	var payment models.Payment
	require.NoError(t, svc.db.First(&payment, "reference = ?", res.Reference).Error)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, models.Rupees(708), payment.Amount)
	assert.Nil(t, payment.PaidAt)

	require.NoError(t, svc.ConfirmCheckout(ctx, table.ID, res.Reference))
	require.NoError(t, svc.db.First(&payment, "reference = ?", res.Reference).Error)
	assert.Equal(t, models.PaymentStatusSettled, payment.Status)
	assert.NotNil(t, payment.PaidAt)

	orderOnTable(t, svc.db, table.ID, models.Rupees(100), 1)
	failed, err := svc.CreateCheckout(ctx, table.ID, []CheckoutItem{{Name: "Pasta", Price: models.Rupees(100), Quantity: 1}})
	require.NoError(t, err)
	gw.notification = &PaymentNotification{Reference: failed.Reference, Status: PaymentFailed}
	require.NoError(t, svc.HandleNotification(ctx, []byte(`{}`)))
	require.NoError(t, svc.db.First(&payment, "reference = ?", failed.Reference).Error)
	assert.Equal(t, models.PaymentStatusFailed, payment.Status)
}

func TestSettlementRequiresFullBill(t *testing.T) {
	svc, gw, _ := newCheckoutService(t)
	ctx := context.Background()
	table := seedTable(t, svc.db, 1)
	orderOnTable(t, svc.db, table.ID, models.Rupees(300), 2)

	// A client-priced checkout for one paisa is refused outright.
	_, err := svc.CreateCheckout(ctx, table.ID, []CheckoutItem{{Name: "Pasta", Price: 1, Quantity: 1}})
	assert.ErrorIs(t, err, ErrConflict)

	// A short payment recorded against the table does not settle it.
	short := openPayment(t, svc, table.ID, 1)
	err = svc.ConfirmCheckout(ctx, table.ID, short)
	assert.ErrorIs(t, err, ErrConflict)
	gw.notification = &PaymentNotification{Reference: short, Status: PaymentSettled}
	assert.ErrorIs(t, svc.HandleNotification(ctx, []byte(`{}`)), ErrConflict)

	// Orders placed after the checkout was opened keep the table open.
	res, err := svc.CreateCheckout(ctx, table.ID, []CheckoutItem{{Name: "Pasta", Price: models.Rupees(300), Quantity: 2}})
	require.NoError(t, err)
	orderOnTable(t, svc.db, table.ID, models.Rupees(100), 1)
	assert.ErrorIs(t, svc.ConfirmCheckout(ctx, table.ID, res.Reference), ErrConflict)

	// A reference that was never opened is refused.
	assert.ErrorIs(t, svc.ConfirmCheckout(ctx, table.ID, NewPaymentReference(table.ID)), ErrUnauthorized)

	var count int64
	require.NoError(t, svc.db.Model(&models.TableArchive{}).Count(&count).Error)
	assert.Zero(t, count)
	reloaded := reloadTable(t, svc.db, table.ID)
	assert.Equal(t, models.Rupees(800), reloaded.Bill.Total)
	assert.False(t, reloaded.Bill.Payment)

	var payment models.Payment
	require.NoError(t, svc.db.First(&payment, "reference = ?", res.Reference).Error)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
}
