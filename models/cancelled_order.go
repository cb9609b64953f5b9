package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CancelledFood struct {
	FoodID      string `gorm:"column:id;type:varchar(36);not null" json:"foodId"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Price       Money  `gorm:"not null" json:"price"`
	Image       string `gorm:"type:varchar(255)" json:"image"`
	Category    string `gorm:"type:varchar(50)" json:"category"`
	Quantity    int    `gorm:"not null" json:"quantity"`
}

type CancelledUser struct {
	UserID string  `gorm:"column:id;type:varchar(36);not null" json:"userId"`
	Name   string  `gorm:"type:varchar(255)" json:"name"`
	Email  *string `gorm:"type:varchar(255)" json:"email,omitempty"`
}

type CancelledTable struct {
	TableID string `gorm:"column:id;type:varchar(36);not null" json:"tableId"`
	TableNo int    `gorm:"column:no;not null" json:"tableNo"`
}

// CancelledOrder is the write-once audit entry for a cancelled order item.
type CancelledOrder struct {
	ID        string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrderID   string         `gorm:"type:varchar(36);not null;index" json:"orderId"`
	Food      CancelledFood  `gorm:"embedded;embeddedPrefix:food_" json:"cancelOrderDetails"`
	User      CancelledUser  `gorm:"embedded;embeddedPrefix:user_" json:"userDetails"`
	Table     CancelledTable `gorm:"embedded;embeddedPrefix:table_" json:"tableDetails"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (c *CancelledOrder) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
