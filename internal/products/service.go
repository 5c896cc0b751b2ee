package products

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulmehra/mandiflow-backend/pkg/db/models"
	pkgerrors "github.com/rahulmehra/mandiflow-backend/pkg/errors"
	"github.com/rahulmehra/mandiflow-backend/pkg/pagination"
)

// Service exposes catalog browsing and per-seller inventory reads.
type Service interface {
	ListCatalog(ctx context.Context, params QueryParams) (*CatalogPage, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDetail, error)
	GetRetailerOffer(ctx context.Context, retailerID, productID uuid.UUID) (*models.RetailerProduct, error)
	RetailerInventory(ctx context.Context, retailerID uuid.UUID) ([]models.RetailerProduct, error)
	WholesalerInventory(ctx context.Context, wholesalerID uuid.UUID) ([]models.WholesalerProduct, error)
}

// QueryParams filters a catalog page.
type QueryParams struct {
	Category string
	Search   string
	Limit    int
	Cursor   string
}

// CatalogPage is one page of catalog entries plus the next-page cursor.
type CatalogPage struct {
	Items  []models.Product `json:"items"`
	Cursor string           `json:"cursor"`
}

// ProductDetail is a catalog entry with every live offer for it.
type ProductDetail struct {
	Product          models.Product             `json:"product"`
	RetailerOffers   []models.RetailerProduct   `json:"retailer_offers"`
	WholesalerOffers []models.WholesalerProduct `json:"wholesaler_offers"`
}

type service struct {
	repo Repository
}

// NewService wires catalog dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "products repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListCatalog(ctx context.Context, params QueryParams) (*CatalogPage, error) {
	listParams := ListParams{Limit: params.Limit}
	if category := strings.TrimSpace(params.Category); category != "" {
		listParams.Category = &category
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		listParams.Search = &search
	}
	if params.Cursor != "" {
		parsed, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		listParams.Cursor = parsed
	}

	rows, next, err := s.repo.ListProducts(ctx, listParams)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	encoded := ""
	if next != nil {
		encoded = pagination.EncodeCursor(*next)
	}
	return &CatalogPage{Items: rows, Cursor: encoded}, nil
}

func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDetail, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	retailerOffers, err := s.repo.ListRetailerOffers(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load retailer offers")
	}
	wholesalerOffers, err := s.repo.ListWholesalerOffers(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wholesaler offers")
	}

	return &ProductDetail{
		Product:          *product,
		RetailerOffers:   retailerOffers,
		WholesalerOffers: wholesalerOffers,
	}, nil
}

// GetRetailerOffer resolves one retailer's live listing for a product. Used
// at add-to-cart time to snapshot the current price.
func (s *service) GetRetailerOffer(ctx context.Context, retailerID, productID uuid.UUID) (*models.RetailerProduct, error) {
	if retailerID == uuid.Nil || productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "retailer id and product id required")
	}
	offer, err := s.repo.FindRetailerOffer(ctx, retailerID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if !offer.IsAvailable || offer.StockQuantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "listing is not available")
	}
	return offer, nil
}

func (s *service) RetailerInventory(ctx context.Context, retailerID uuid.UUID) ([]models.RetailerProduct, error) {
	if retailerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "retailer id required")
	}
	rows, err := s.repo.ListRetailerInventory(ctx, retailerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load retailer inventory")
	}
	return rows, nil
}

func (s *service) WholesalerInventory(ctx context.Context, wholesalerID uuid.UUID) ([]models.WholesalerProduct, error) {
	if wholesalerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wholesaler id required")
	}
	rows, err := s.repo.ListWholesalerInventory(ctx, wholesalerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wholesaler inventory")
	}
	return rows, nil
}
