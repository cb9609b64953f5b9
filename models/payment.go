package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusSettled = "settled"
	PaymentStatusFailed  = "failed"
)

// Payment tracks one hosted checkout session opened for a table.
type Payment struct {
	ID         string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	TableID    string     `gorm:"type:varchar(36);not null;index" json:"tableId"`
	Reference  string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"reference"`
	Amount     Money      `gorm:"not null" json:"amount"`
	Status     string     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	PaymentURL string     `gorm:"type:varchar(512)" json:"paymentUrl"`
	PaidAt     *time.Time `json:"paidAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
