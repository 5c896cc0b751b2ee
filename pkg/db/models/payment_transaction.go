package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rahulmehra/mandiflow-backend/pkg/enums"
	"github.com/rahulmehra/mandiflow-backend/pkg/types"
)

// PaymentTransaction records one attempted charge against one order. Rows are
// created at processing and moved once to a terminal status, then frozen.
type PaymentTransaction struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	TransactionID     string                  `gorm:"column:transaction_id;uniqueIndex;not null"`
	OrderID           uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index"`
	PayerID           uuid.UUID               `gorm:"column:payer_id;type:uuid;not null"`
	Amount            decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null"`
	PaymentMethodType enums.PaymentMethodType `gorm:"column:payment_method_type;type:text;not null"`
	Status            enums.PaymentStatus     `gorm:"column:status;type:text;not null;default:'pending'"`
	GatewayResponse   types.JSONMap           `gorm:"column:gateway_response;type:jsonb"`
	FailureReason     *string                 `gorm:"column:failure_reason"`
	CompletedAt       *time.Time              `gorm:"column:completed_at"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PaymentTransaction) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
