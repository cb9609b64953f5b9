package services

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/yeremiapane/table-order/utils"
)

// MidtransConfig holds Midtrans configuration
type MidtransConfig struct {
	ServerKey    string
	ClientKey    string
	IsProduction bool
}

// Validate validates Midtrans configuration
func (c MidtransConfig) Validate() error {
	if c.ServerKey == "" {
		return fmt.Errorf("MIDTRANS_SERVER_KEY is not set")
	}
	if c.ClientKey == "" {
		return fmt.Errorf("MIDTRANS_CLIENT_KEY is not set")
	}
	return nil
}

// MidtransGateway creates Snap checkout pages and reads transaction state
// through the Core API. Amounts are sent in minor units.
//
// Snap takes a single finish URL, so CancelURL is not forwarded; a cancelled
// or expired payment is learnt from the notification or a status check. The
// SDK calls take no context, so ctx is accepted for the interface only.
type MidtransGateway struct {
	config MidtransConfig
	snap   snap.Client
	core   coreapi.Client
}

func NewMidtransGateway(cfg MidtransConfig) *MidtransGateway {
	env := midtrans.Sandbox
	if cfg.IsProduction {
		env = midtrans.Production
	}
	g := &MidtransGateway{config: cfg}
	g.snap.New(cfg.ServerKey, env)
	g.core.New(cfg.ServerKey, env)
	return g
}

func (g *MidtransGateway) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error) {
	items := make([]midtrans.ItemDetails, 0, len(req.Items))
	for i, li := range req.Items {
		items = append(items, midtrans.ItemDetails{
			ID:    fmt.Sprintf("item-%d", i+1),
			Name:  truncateName(li.Name, 50),
			Price: int64(li.UnitAmount),
			Qty:   int32(li.Quantity),
		})
	}

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.Reference,
			GrossAmt: int64(sumLineItems(req.Items)),
		},
		Items: &items,
		Callbacks: &snap.Callbacks{
			Finish: req.SuccessURL,
		},
	}

	resp, merr := g.snap.CreateTransaction(snapReq)
	if merr != nil {
		return nil, fmt.Errorf("midtrans snap: %s", merr.GetMessage())
	}
	utils.InfoLogger.Infof("Midtrans checkout created for reference %s", req.Reference)
	return &CheckoutSession{ID: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

// TransactionStatus checks transaction status from Midtrans
func (g *MidtransGateway) TransactionStatus(ctx context.Context, reference string) (PaymentStatus, error) {
	resp, merr := g.core.CheckTransaction(reference)
	if merr != nil {
		return PaymentUnknown, fmt.Errorf("midtrans status: %s", merr.GetMessage())
	}
	return mapTransactionStatus(resp.TransactionStatus, resp.FraudStatus), nil
}

type midtransNotification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
}

func (g *MidtransGateway) ParseNotification(payload []byte) (*PaymentNotification, error) {
	var n midtransNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("decode notification: %w", err)
	}
	if !g.ValidateSignature(n.OrderID, n.StatusCode, n.GrossAmount, n.SignatureKey) {
		return nil, ErrInvalidSignature
	}
	return &PaymentNotification{
		Reference: n.OrderID,
		Status:    mapTransactionStatus(n.TransactionStatus, n.FraudStatus),
	}, nil
}

// ValidateSignature checks sha512(order_id + status_code + gross_amount + server_key).
func (g *MidtransGateway) ValidateSignature(orderID, statusCode, grossAmount, signature string) bool {
	return subtle.ConstantTimeCompare([]byte(g.signature(orderID, statusCode, grossAmount)), []byte(signature)) == 1
}

func (g *MidtransGateway) signature(orderID, statusCode, grossAmount string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + g.config.ServerKey))
	return hex.EncodeToString(sum[:])
}

func mapTransactionStatus(status, fraud string) PaymentStatus {
	switch status {
	case "capture":
		if fraud == "" || fraud == "accept" {
			return PaymentSettled
		}
		return PaymentPending
	case "settlement":
		return PaymentSettled
	case "pending", "authorize":
		return PaymentPending
	case "deny", "cancel", "expire", "failure":
		return PaymentFailed
	default:
		return PaymentUnknown
	}
}

func truncateName(name string, max int) string {
	r := []rune(name)
	if len(r) <= max {
		return name
	}
	return string(r[:max])
}
