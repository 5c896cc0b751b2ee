package b2b

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rahulmehra/mandiflow-backend/pkg/db"
	"github.com/rahulmehra/mandiflow-backend/pkg/db/models"
)

// StockRepository exposes the wholesaler and retailer stock operations the
// approval engine needs.
type StockRepository interface {
	WithTx(tx *gorm.DB) StockRepository
	FindWholesalerProduct(ctx context.Context, wholesalerID, productID uuid.UUID) (*models.WholesalerProduct, error)
	// DecrementWholesalerStockIf subtracts qty only while enough stock
	// remains; the affected-row count exposes the race outcome.
	DecrementWholesalerStockIf(ctx context.Context, wholesalerID, productID uuid.UUID, qty int) (int64, error)
	// UpsertRetailerStock credits qty to the retailer's listing for the
	// product, creating the listing at the given price when absent.
	UpsertRetailerStock(ctx context.Context, retailerID, productID uuid.UUID, qty int, price decimal.Decimal) error
}

type stockRepositoryImpl struct {
	db *gorm.DB
}

// NewStockRepository returns a stock repository bound to the provided database.
func NewStockRepository(gdb *gorm.DB) StockRepository {
	return &stockRepositoryImpl{db: gdb}
}

func (r *stockRepositoryImpl) WithTx(tx *gorm.DB) StockRepository {
	if tx == nil {
		return r
	}
	return &stockRepositoryImpl{db: tx}
}

func (r *stockRepositoryImpl) FindWholesalerProduct(ctx context.Context, wholesalerID, productID uuid.UUID) (*models.WholesalerProduct, error) {
	var row models.WholesalerProduct
	if err := r.db.WithContext(ctx).
		Where("wholesaler_id = ? AND product_id = ?", wholesalerID, productID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *stockRepositoryImpl) DecrementWholesalerStockIf(ctx context.Context, wholesalerID, productID uuid.UUID, qty int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.WholesalerProduct{}).
		Where("wholesaler_id = ? AND product_id = ? AND stock_quantity >= ?", wholesalerID, productID, qty).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
	return result.RowsAffected, result.Error
}

func (r *stockRepositoryImpl) UpsertRetailerStock(ctx context.Context, retailerID, productID uuid.UUID, qty int, price decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&models.RetailerProduct{}).
		Where("retailer_id = ? AND product_id = ?", retailerID, productID).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity + ?", qty),
			"is_available":   true,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	row := &models.RetailerProduct{
		RetailerID:    retailerID,
		ProductID:     productID,
		Price:         price,
		StockQuantity: qty,
		IsAvailable:   true,
	}
	err := r.db.WithContext(ctx).Create(row).Error
	if err == nil {
		return nil
	}
	if !db.IsUniqueViolation(err) {
		return err
	}

	// a concurrent approval created the listing first; fall back to the
	// increment path
	return r.db.WithContext(ctx).
		Model(&models.RetailerProduct{}).
		Where("retailer_id = ? AND product_id = ?", retailerID, productID).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity + ?", qty),
			"is_available":   true,
		}).Error
}
