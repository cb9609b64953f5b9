package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/yeremiapane/table-order/kds"
	"github.com/yeremiapane/table-order/metrics"
	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/utils"
	"gorm.io/gorm"
)

// CheckoutItem is one line sent by the client for the checkout page.
type CheckoutItem struct {
	Name     string       `json:"name"`
	Price    models.Money `json:"price"`
	Quantity int          `json:"quantity"`
}

type CheckoutResult struct {
	SessionURL string     `json:"session_url"`
	Reference  string     `json:"reference"`
	LineItems  []LineItem `json:"lineItems"`
}

type CheckoutService struct {
	db          *gorm.DB
	gateway     PaymentGateway
	frontendURL string
	events      EventPublisher
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewCheckoutService(db *gorm.DB, gateway PaymentGateway, frontendURL string, events EventPublisher, m *metrics.Metrics) *CheckoutService {
	return &CheckoutService{
		db:          db,
		gateway:     gateway,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		events:      publisherOrDiscard(events),
		metrics:     m,
		now:         time.Now,
	}
}

// CreateCheckout opens a hosted checkout session for the given items. A GST
// line is appended when the subtotal reaches the GST threshold. The items
// must add up to the table's current bill.
func (s *CheckoutService) CreateCheckout(ctx context.Context, tableID string, items []CheckoutItem) (*CheckoutResult, error) {
	if tableID == "" || len(items) == 0 {
		return nil, invalidInput("Missing or invalid details")
	}

	lines := make([]LineItem, 0, len(items)+1)
	var total models.Money
	for _, it := range items {
		if strings.TrimSpace(it.Name) == "" || it.Price <= 0 || it.Quantity <= 0 {
			return nil, invalidInput("Invalid order format")
		}
		total += it.Price * models.Money(it.Quantity)
		lines = append(lines, LineItem{Name: it.Name, UnitAmount: it.Price, Quantity: it.Quantity})
	}
	gst, amount := ComputeBill(total)
	if gst > 0 {
		lines = append(lines, LineItem{Name: fmt.Sprintf("GST (%d%%)", GSTRatePercent), UnitAmount: gst, Quantity: 1})
	}

	var table models.Table
	if err := s.db.WithContext(ctx).First(&table, "id = ?", tableID).Error; err != nil {
		return nil, dbError(err, "Table not found")
	}
	if amount != table.Bill.TotalAmount {
		return nil, conflict("Checkout items do not match the table bill, please refresh")
	}

	reference := NewPaymentReference(tableID)
	session, err := s.gateway.CreateCheckoutSession(ctx, CheckoutSessionRequest{
		Reference:  reference,
		Items:      lines,
		SuccessURL: s.returnURL(true, tableID),
		CancelURL:  s.returnURL(false, tableID),
	})
	s.metrics.CheckoutSession(err)
	if err != nil {
		return nil, upstream("Payment processing failed", err)
	}

	payment := models.Payment{
		TableID:    tableID,
		Reference:  reference,
		Amount:     amount,
		Status:     models.PaymentStatusPending,
		PaymentURL: session.RedirectURL,
	}
	if err := s.db.WithContext(ctx).Create(&payment).Error; err != nil {
		return nil, upstream("database error", err)
	}

	utils.InfoLogger.Infof("Checkout %s opened for table %s", reference, tableID)
	return &CheckoutResult{SessionURL: session.RedirectURL, Reference: reference, LineItems: lines}, nil
}

func (s *CheckoutService) returnURL(success bool, tableID string) string {
	return fmt.Sprintf("%s/verify?success=%t&tableId=%s", s.frontendURL, success, url.QueryEscape(tableID))
}

// ConfirmCheckout settles the table after the customer returns from the
// checkout page. The reference must belong to the table and the gateway must
// report it as paid.
func (s *CheckoutService) ConfirmCheckout(ctx context.Context, tableID, reference string) error {
	if tableID == "" || reference == "" {
		return invalidInput("Missing or invalid details")
	}
	if owner, ok := ReferenceTable(reference); !ok || owner != tableID {
		return unauthorized("Payment reference does not match the table")
	}

	status, err := s.gateway.TransactionStatus(ctx, reference)
	if err != nil {
		return upstream("Payment verification failed", err)
	}
	if status != PaymentSettled {
		utils.InfoLogger.Infof("Payment %s not settled yet: %s", reference, status)
		return unauthorized("Payment has not been completed")
	}
	return s.settle(ctx, tableID, reference, "redirect")
}

// HandleNotification applies a gateway webhook. A settled payment archives the
// table and a failed one marks its checkout failed. Anything else is ignored.
func (s *CheckoutService) HandleNotification(ctx context.Context, payload []byte) error {
	n, err := s.gateway.ParseNotification(payload)
	if err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			return unauthorized("Invalid notification signature")
		}
		return invalidInput("Invalid notification payload")
	}
	switch n.Status {
	case PaymentSettled:
	case PaymentFailed:
		err := s.db.WithContext(ctx).Model(&models.Payment{}).
			Where("reference = ? AND status = ?", n.Reference, models.PaymentStatusPending).
			Update("status", models.PaymentStatusFailed).Error
		return dbError(err, "")
	default:
		utils.InfoLogger.Infof("Notification for %s ignored, status %s", n.Reference, n.Status)
		return nil
	}
	tableID, ok := ReferenceTable(n.Reference)
	if !ok {
		return invalidInput("Unknown payment reference")
	}
	return s.settle(ctx, tableID, n.Reference, "webhook")
}

// settle archives the table as paid once per payment reference. The amount
// recorded when the checkout was opened must equal the current bill, so a
// short payment or orders placed after checkout leave the table open.
func (s *CheckoutService) settle(ctx context.Context, tableID, reference, source string) error {
	var archive *models.TableArchive
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.TableArchive{}).Where("payment_ref = ?", reference).Count(&existing).Error; err != nil {
			return dbError(err, "")
		}
		if existing > 0 {
			return nil
		}

		var table models.Table
		if err := tx.First(&table, "id = ?", tableID).Error; err != nil {
			return dbError(err, "Table not found")
		}
		var payment models.Payment
		if err := tx.First(&payment, "reference = ?", reference).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return unauthorized("Unknown payment reference")
			}
			return dbError(err, "")
		}
		if payment.TableID != table.ID || payment.Amount != table.Bill.TotalAmount {
			utils.ErrorLogger.Errorf("Payment %s of %s does not cover table %s bill of %s",
				reference, utils.FormatRupees(payment.Amount), tableID, utils.FormatRupees(table.Bill.TotalAmount))
			return conflict("Paid amount does not match the table bill")
		}
		ref := reference
		var err error
		archive, err = archiveTable(tx, &table, true, &ref)
		if err != nil {
			return err
		}
		err = tx.Model(&payment).
			Updates(map[string]interface{}{"status": models.PaymentStatusSettled, "paid_at": s.now()}).Error
		return dbError(err, "")
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return err
	}
	if archive == nil {
		utils.InfoLogger.Infof("Payment %s already applied", reference)
		return nil
	}

	s.metrics.TableSettled(source)
	s.events.Publish(kds.EventTableSettled, archive)
	return nil
}
