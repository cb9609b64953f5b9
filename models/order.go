package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order is one placement of food items at a table. While ArchiveID is nil the
// order counts towards the table's current bill.
type Order struct {
	ID          string      `gorm:"type:varchar(36);primaryKey" json:"id"`
	TableID     string      `gorm:"type:varchar(36);not null;index" json:"tableId"`
	UserID      string      `gorm:"type:varchar(36);not null;index" json:"userId"`
	ArchiveID   *string     `gorm:"type:varchar(36);index" json:"archiveId,omitempty"`
	Items       []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Total       Money       `gorm:"not null;default:0" json:"total"`
	GST         Money       `gorm:"column:gst;not null;default:0" json:"GST"`
	TotalAmount Money       `gorm:"not null;default:0" json:"totalAmount"`
	Version     int64       `gorm:"not null;default:0" json:"-"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}
