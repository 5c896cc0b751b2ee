package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulmehra/mandiflow-backend/pkg/db/models"
	"github.com/rahulmehra/mandiflow-backend/pkg/pagination"
)

// Repository exposes catalog and listing reads. Retailer stock writes happen
// in the b2b package during approval; the catalog itself is read-only here.
type Repository interface {
	ListProducts(ctx context.Context, params ListParams) ([]models.Product, *pagination.Cursor, error)
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	ListRetailerOffers(ctx context.Context, productID uuid.UUID) ([]models.RetailerProduct, error)
	FindRetailerOffer(ctx context.Context, retailerID, productID uuid.UUID) (*models.RetailerProduct, error)
	ListWholesalerOffers(ctx context.Context, productID uuid.UUID) ([]models.WholesalerProduct, error)
	ListRetailerInventory(ctx context.Context, retailerID uuid.UUID) ([]models.RetailerProduct, error)
	ListWholesalerInventory(ctx context.Context, wholesalerID uuid.UUID) ([]models.WholesalerProduct, error)
}

// ListParams filters a catalog page.
type ListParams struct {
	Category *string
	Search   *string
	Limit    int
	Cursor   *pagination.Cursor
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a products repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) ListProducts(ctx context.Context, params ListParams) ([]models.Product, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Product{})
	if params.Category != nil {
		query = query.Where("category = ?", *params.Category)
	}
	if params.Search != nil {
		query = query.Where("name LIKE ?", "%"+*params.Search+"%")
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Product
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		next := rows[normalized]
		rows = rows[:normalized]
		return rows, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return rows, nil, nil
}

func (r *repositoryImpl) FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var row models.Product
	if err := r.db.WithContext(ctx).First(&row, "id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repositoryImpl) ListRetailerOffers(ctx context.Context, productID uuid.UUID) ([]models.RetailerProduct, error) {
	var rows []models.RetailerProduct
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND is_available = ? AND stock_quantity > 0", productID, true).
		Order("price ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) FindRetailerOffer(ctx context.Context, retailerID, productID uuid.UUID) (*models.RetailerProduct, error) {
	var row models.RetailerProduct
	err := r.db.WithContext(ctx).
		Where("retailer_id = ? AND product_id = ?", retailerID, productID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repositoryImpl) ListWholesalerOffers(ctx context.Context, productID uuid.UUID) ([]models.WholesalerProduct, error) {
	var rows []models.WholesalerProduct
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND is_available = ? AND stock_quantity > 0", productID, true).
		Order("price ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) ListRetailerInventory(ctx context.Context, retailerID uuid.UUID) ([]models.RetailerProduct, error) {
	var rows []models.RetailerProduct
	err := r.db.WithContext(ctx).
		Where("retailer_id = ?", retailerID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) ListWholesalerInventory(ctx context.Context, wholesalerID uuid.UUID) ([]models.WholesalerProduct, error) {
	var rows []models.WholesalerProduct
	err := r.db.WithContext(ctx).
		Where("wholesaler_id = ?", wholesalerID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
