package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/yeremiapane/table-order/models"
)

// PaymentStatus is the gateway-neutral state of a checkout.
type PaymentStatus string

const (
	PaymentSettled PaymentStatus = "settled"
	PaymentPending PaymentStatus = "pending"
	PaymentFailed  PaymentStatus = "failed"
	PaymentUnknown PaymentStatus = "unknown"
)

var ErrInvalidSignature = errors.New("invalid notification signature")

// LineItem is one row on the hosted checkout page.
type LineItem struct {
	Name       string       `json:"name"`
	UnitAmount models.Money `json:"unitAmount"`
	Quantity   int          `json:"quantity"`
}

type CheckoutSessionRequest struct {
	Reference  string
	Items      []LineItem
	SuccessURL string
	CancelURL  string
}

type CheckoutSession struct {
	ID          string
	RedirectURL string
}

// PaymentNotification is a verified asynchronous status update.
type PaymentNotification struct {
	Reference string
	Status    PaymentStatus
}

// PaymentGateway is the hosted payment processor used for table checkout.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error)
	TransactionStatus(ctx context.Context, reference string) (PaymentStatus, error)
	// ParseNotification authenticates a raw webhook body. It returns
	// ErrInvalidSignature when the payload was not signed by the gateway.
	ParseNotification(payload []byte) (*PaymentNotification, error)
}

// NewPaymentReference builds a gateway order id that encodes the table.
func NewPaymentReference(tableID string) string {
	return tableID + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// ReferenceTable extracts the table id from a payment reference.
func ReferenceTable(reference string) (string, bool) {
	tableID, suffix, ok := strings.Cut(reference, "_")
	if !ok || tableID == "" || suffix == "" {
		return "", false
	}
	return tableID, true
}

func sumLineItems(items []LineItem) models.Money {
	var total models.Money
	for _, li := range items {
		total += li.UnitAmount * models.Money(li.Quantity)
	}
	return total
}
