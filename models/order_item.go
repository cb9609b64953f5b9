package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ItemStatusPending   = "Pending"
	ItemStatusPreparing = "Preparing"
	ItemStatusReady     = "Ready"
	ItemStatusServed    = "Served"
	ItemStatusCancelled = "Cancelled"
)

func IsItemStatus(status string) bool {
	switch status {
	case ItemStatusPending, ItemStatusPreparing, ItemStatusReady, ItemStatusServed, ItemStatusCancelled:
		return true
	}
	return false
}

type OrderItem struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrderID   string    `gorm:"type:varchar(36);not null;index" json:"-"`
	FoodID    string    `gorm:"type:varchar(36);not null;index" json:"food"`
	Food      *Food     `gorm:"foreignKey:FoodID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	Price     Money     `gorm:"not null;default:0" json:"price"`
	Status    string    `gorm:"type:varchar(20);not null;default:'Pending'" json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
