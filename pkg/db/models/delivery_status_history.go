package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulmehra/mandiflow-backend/pkg/enums"
)

// DeliveryStatusHistory is the append-only log of shipment transitions. The
// progression worker reads the newest row per status to compute dwell time.
type DeliveryStatusHistory struct {
	ID                 uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	DeliveryTrackingID uuid.UUID            `gorm:"column:delivery_tracking_id;type:uuid;not null;index"`
	Status             enums.DeliveryStatus `gorm:"column:status;type:text;not null"`
	Timestamp          time.Time            `gorm:"column:timestamp;not null"`
	Location           *string              `gorm:"column:location"`
	Latitude           *float64             `gorm:"column:latitude"`
	Longitude          *float64             `gorm:"column:longitude"`
	Notes              *string              `gorm:"column:notes"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (h *DeliveryStatusHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
