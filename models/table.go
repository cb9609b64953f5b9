package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TableBill is the aggregate of a table's open orders.
type TableBill struct {
	Total       Money `gorm:"not null;default:0" json:"total"`
	GST         Money `gorm:"column:gst;not null;default:0" json:"GST"`
	TotalAmount Money `gorm:"not null;default:0" json:"totalAmount"`
	Payment     bool  `gorm:"not null;default:false" json:"payment"`
}

type Table struct {
	ID            string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	TableNo       int            `gorm:"not null;uniqueIndex" json:"tableNo"`
	Bill          TableBill      `gorm:"embedded;embeddedPrefix:bill_" json:"currentTableBill"`
	CurrentOrders []Order        `gorm:"foreignKey:TableID" json:"currentOrders"`
	PastOrders    []TableArchive `gorm:"foreignKey:TableID;constraint:OnDelete:CASCADE" json:"pastOrders"`
	Version       int64          `gorm:"not null;default:0" json:"-"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func (t *Table) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// TableArchive is one settled (orders, bill) pair in a table's history.
type TableArchive struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	TableID    string    `gorm:"type:varchar(36);not null;index" json:"tableId"`
	Orders     []Order   `gorm:"foreignKey:ArchiveID" json:"order"`
	Bill       TableBill `gorm:"embedded;embeddedPrefix:bill_" json:"tableBill"`
	PaymentRef *string   `gorm:"type:varchar(64);uniqueIndex" json:"paymentRef,omitempty"`
	CreatedAt  time.Time `json:"archivedAt"`
}

func (a *TableArchive) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
