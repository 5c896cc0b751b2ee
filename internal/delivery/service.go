package delivery

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulmehra/mandiflow-backend/internal/orders"
	"github.com/rahulmehra/mandiflow-backend/pkg/db/models"
	pkgerrors "github.com/rahulmehra/mandiflow-backend/pkg/errors"
)

// Service exposes shipment reads. Writes belong exclusively to the
// progression job.
type Service interface {
	GetByOrder(ctx context.Context, requesterID, orderID uuid.UUID) (*TrackingDetail, error)
}

// TrackingDetail is a shipment with its full transition log, oldest first.
type TrackingDetail struct {
	Tracking models.DeliveryTracking        `json:"tracking"`
	History  []models.DeliveryStatusHistory `json:"history"`
}

type service struct {
	repo      Repository
	orderRepo orders.Repository
}

// NewService wires delivery read dependencies.
func NewService(repo Repository, orderRepo orders.Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "delivery repository required")
	}
	if orderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	return &service{repo: repo, orderRepo: orderRepo}, nil
}

// GetByOrder returns tracking for the order when the requester is its buyer
// or seller. Orders still waiting to be provisioned have no tracking yet and
// report not found.
func (s *service) GetByOrder(ctx context.Context, requesterID, orderID uuid.UUID) (*TrackingDetail, error) {
	if requesterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requester id required")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.BuyerID != requesterID && order.SellerID != requesterID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}

	tracking, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery tracking not available yet")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery tracking")
	}

	history, err := s.repo.ListHistory(ctx, tracking.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery history")
	}

	return &TrackingDetail{Tracking: *tracking, History: history}, nil
}
