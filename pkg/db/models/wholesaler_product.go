package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WholesalerProduct is a wholesaler's priced stock entry, the supply side of
// B2B replenishment orders.
type WholesalerProduct struct {
	ID                   uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	WholesalerID         uuid.UUID       `gorm:"column:wholesaler_id;type:uuid;not null;uniqueIndex:idx_wholesaler_product"`
	ProductID            uuid.UUID       `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_wholesaler_product"`
	Price                decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	StockQuantity        int             `gorm:"column:stock_quantity;not null;default:0"`
	MinimumOrderQuantity int             `gorm:"column:minimum_order_quantity;not null;default:1"`
	IsAvailable          bool            `gorm:"column:is_available;not null;default:true"`
	CreatedAt            time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *WholesalerProduct) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
