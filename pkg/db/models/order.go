package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rahulmehra/mandiflow-backend/pkg/enums"
)

// Order is one commercial transaction between a buyer and a seller. A
// multi-seller cart produces one Order per seller at placement time.
type Order struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber       string            `gorm:"column:order_number;uniqueIndex;not null"`
	BuyerID           uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID          uuid.UUID         `gorm:"column:seller_id;type:uuid;not null;index"`
	Kind              enums.OrderKind   `gorm:"column:order_kind;type:text;not null"`
	Status            enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	TotalAmount       decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	DeliveryAddress   string            `gorm:"column:delivery_address;not null"`
	DeliveryLatitude  *float64          `gorm:"column:delivery_latitude"`
	DeliveryLongitude *float64          `gorm:"column:delivery_longitude"`
	Notes             *string           `gorm:"column:notes"`
	Items             []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
