package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulmehra/mandiflow-backend/pkg/db/models"
	"github.com/rahulmehra/mandiflow-backend/pkg/enums"
	pkgerrors "github.com/rahulmehra/mandiflow-backend/pkg/errors"
	"github.com/rahulmehra/mandiflow-backend/pkg/pagination"
)

// Service exposes order reads for buyers and sellers.
type Service interface {
	Get(ctx context.Context, requesterID, orderID uuid.UUID) (*models.Order, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID, params QueryParams) (*ListResult, error)
	ListForSeller(ctx context.Context, sellerID uuid.UUID, params QueryParams) (*ListResult, error)
}

// QueryParams filters and paginates an order listing.
type QueryParams struct {
	Kind   *enums.OrderKind
	Status *enums.OrderStatus
	Limit  int
	Cursor string
}

// ListResult wraps returned orders and the cursor for the next page.
type ListResult struct {
	Items  []models.Order `json:"items"`
	Cursor string         `json:"cursor"`
}

type service struct {
	repo Repository
}

// NewService wires orders dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	return &service{repo: repo}, nil
}

// Get returns the order when the requester is its buyer or seller.
func (s *service) Get(ctx context.Context, requesterID, orderID uuid.UUID) (*models.Order, error) {
	if requesterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requester id required")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.BuyerID != requesterID && order.SellerID != requesterID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return order, nil
}

func (s *service) ListForBuyer(ctx context.Context, buyerID uuid.UUID, params QueryParams) (*ListResult, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	return s.list(ctx, ListParams{
		BuyerID: &buyerID,
		Kind:    params.Kind,
		Status:  params.Status,
		Limit:   params.Limit,
	}, params.Cursor)
}

func (s *service) ListForSeller(ctx context.Context, sellerID uuid.UUID, params QueryParams) (*ListResult, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	return s.list(ctx, ListParams{
		SellerID: &sellerID,
		Kind:     params.Kind,
		Status:   params.Status,
		Limit:    params.Limit,
	}, params.Cursor)
}

func (s *service) list(ctx context.Context, params ListParams, cursor string) (*ListResult, error) {
	if cursor != "" {
		parsed, err := pagination.ParseCursor(cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		params.Cursor = parsed
	}

	rows, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	encoded := ""
	if next != nil {
		encoded = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: encoded}, nil
}
