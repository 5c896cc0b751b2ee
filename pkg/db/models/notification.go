package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulmehra/mandiflow-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to users.
type Notification struct {
	ID                   uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	UserID               uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	Type                 enums.NotificationType `gorm:"column:type;type:text;not null"`
	Title                string                 `gorm:"column:title;not null"`
	Message              string                 `gorm:"column:message;not null"`
	RelatedOrderID       *uuid.UUID             `gorm:"column:related_order_id;type:uuid"`
	RelatedTransactionID *uuid.UUID             `gorm:"column:related_transaction_id;type:uuid"`
	ReadAt               *time.Time             `gorm:"column:read_at"`
	CreatedAt            time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
