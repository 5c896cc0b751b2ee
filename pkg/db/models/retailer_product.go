package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RetailerProduct is a retailer's priced stock entry for a catalog product.
// Provisioned or incremented by B2B order approval.
type RetailerProduct struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	RetailerID    uuid.UUID       `gorm:"column:retailer_id;type:uuid;not null;uniqueIndex:idx_retailer_product"`
	ProductID     uuid.UUID       `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_retailer_product"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	StockQuantity int             `gorm:"column:stock_quantity;not null;default:0"`
	IsAvailable   bool            `gorm:"column:is_available;not null;default:true"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *RetailerProduct) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
