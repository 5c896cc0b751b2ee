package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulmehra/mandiflow-backend/pkg/enums"
)

// DeliveryTracking is the one-to-one shipment record for a confirmed order.
// The unique index on order_id is what makes duplicate provisioning a
// harmless conflict rather than a data corruption.
type DeliveryTracking struct {
	ID                    uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID               uuid.UUID            `gorm:"column:order_id;type:uuid;uniqueIndex;not null"`
	TrackingNumber        string               `gorm:"column:tracking_number;uniqueIndex;not null"`
	CurrentStatus         enums.DeliveryStatus `gorm:"column:current_status;type:text;not null;default:'pending'"`
	PartnerName           string               `gorm:"column:delivery_partner_name;not null"`
	PartnerPhone          string               `gorm:"column:delivery_partner_phone;not null"`
	EstimatedDeliveryTime time.Time            `gorm:"column:estimated_delivery_time;not null"`
	ActualDeliveryTime    *time.Time           `gorm:"column:actual_delivery_time"`
	CurrentLatitude       *float64             `gorm:"column:current_latitude"`
	CurrentLongitude      *float64             `gorm:"column:current_longitude"`
	DeliveryNotes         *string              `gorm:"column:delivery_notes"`
	CreatedAt             time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (DeliveryTracking) TableName() string { return "delivery_tracking" }

func (d *DeliveryTracking) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
