package b2b

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rahulmehra/mandiflow-backend/internal/notifications"
	"github.com/rahulmehra/mandiflow-backend/internal/orders"
	"github.com/rahulmehra/mandiflow-backend/internal/users"
	"github.com/rahulmehra/mandiflow-backend/pkg/db/models"
	"github.com/rahulmehra/mandiflow-backend/pkg/enums"
	pkgerrors "github.com/rahulmehra/mandiflow-backend/pkg/errors"
	"github.com/rahulmehra/mandiflow-backend/pkg/logger"
	"github.com/rahulmehra/mandiflow-backend/pkg/refs"
)

const resaleNotePrefix = "Desired retail price: ₹"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service runs the retailer-to-wholesaler replenishment flow: request,
// stock check, and the approve/reject decision.
type Service interface {
	RequestStock(ctx context.Context, params RequestStockParams) (*models.Order, error)
	CheckStock(ctx context.Context, wholesalerID, orderID uuid.UUID) (*StockReport, error)
	Approve(ctx context.Context, wholesalerID, orderID uuid.UUID) error
	Reject(ctx context.Context, wholesalerID, orderID uuid.UUID, reason string) error
}

// RequestStockParams captures a retailer's replenishment request.
type RequestStockParams struct {
	RetailerID      uuid.UUID
	WholesalerID    uuid.UUID
	ProductID       uuid.UUID
	Quantity        int
	ResalePrice     decimal.Decimal
	DeliveryAddress string
}

// StockReport is the per-item availability picture for a pending request.
type StockReport struct {
	AllAvailable bool              `json:"all_available"`
	Items        []StockReportItem `json:"items"`
}

// StockReportItem describes availability of one requested product.
type StockReportItem struct {
	ProductID    uuid.UUID `json:"product_id"`
	Available    bool      `json:"available"`
	CurrentStock int       `json:"current_stock"`
	NeededQty    int       `json:"needed_qty"`
}

type service struct {
	tx        txRunner
	orderRepo orders.Repository
	stockRepo StockRepository
	userRepo  users.Repository
	notifier  notifications.Sink
	logg      *logger.Logger
}

// NewService wires b2b dependencies.
func NewService(
	tx txRunner,
	orderRepo orders.Repository,
	stockRepo StockRepository,
	userRepo users.Repository,
	notifier notifications.Sink,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tx runner required")
	}
	if orderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if stockRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stock repository required")
	}
	if userRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification sink required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		tx:        tx,
		orderRepo: orderRepo,
		stockRepo: stockRepo,
		userRepo:  userRepo,
		notifier:  notifier,
		logg:      logg,
	}, nil
}

// RequestStock creates a pending replenishment order priced at the wholesale
// unit price. The retailer's declared resale price only rides along in the
// order notes until approval provisions their listing.
func (s *service) RequestStock(ctx context.Context, params RequestStockParams) (*models.Order, error) {
	if params.RetailerID == uuid.Nil || params.WholesalerID == uuid.Nil || params.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "retailer, wholesaler, and product ids required")
	}
	if params.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	listing, err := s.stockRepo.FindWholesalerProduct(ctx, params.WholesalerID, params.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wholesaler does not carry this product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wholesaler product")
	}
	if !listing.IsAvailable {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available from this wholesaler")
	}
	if params.ResalePrice.Cmp(listing.Price) <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "retail price must be higher than wholesale price")
	}
	if params.Quantity < listing.MinimumOrderQuantity {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "minimum order quantity is %d units", listing.MinimumOrderQuantity)
	}
	if params.Quantity > listing.StockQuantity {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "maximum available quantity is %d", listing.StockQuantity)
	}

	qty := decimal.NewFromInt(int64(params.Quantity))
	notes := resaleNotePrefix + params.ResalePrice.StringFixed(2)
	order := &models.Order{
		OrderNumber:     refs.NewOrderNumber(),
		BuyerID:         params.RetailerID,
		SellerID:        params.WholesalerID,
		Kind:            enums.OrderKindRetailerToWholesaler,
		Status:          enums.OrderStatusPending,
		TotalAmount:     listing.Price.Mul(qty),
		DeliveryAddress: params.DeliveryAddress,
		Notes:           &notes,
		Items: []models.OrderItem{{
			ProductID: params.ProductID,
			Quantity:  params.Quantity,
			UnitPrice: listing.Price,
			Subtotal:  listing.Price.Mul(qty),
		}},
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orderRepo.WithTx(tx).CreateWithItems(ctx, order); err != nil {
			return err
		}
		return s.notifier.Publish(ctx, tx, notifications.Event{
			UserID:  params.WholesalerID,
			Type:    enums.NotificationTypeOrderPlaced,
			Title:   "New Product Request",
			Message: fmt.Sprintf("%s requested %d units", s.retailerName(ctx, params.RetailerID), params.Quantity),
			OrderID: &order.ID,
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create replenishment order")
	}

	s.logg.Info(s.logg.WithField(ctx, "order_number", order.OrderNumber), "replenishment order requested")
	return order, nil
}

// CheckStock reports whether the wholesaler can fulfil every line of a
// pending request at this moment. Approval re-runs the same check inside its
// transaction, so this report is advisory.
func (s *service) CheckStock(ctx context.Context, wholesalerID, orderID uuid.UUID) (*StockReport, error) {
	order, err := s.loadB2BOrder(ctx, wholesalerID, orderID)
	if err != nil {
		return nil, err
	}
	return s.buildStockReport(ctx, s.stockRepo, order)
}

// Approve confirms the order and moves stock from the wholesaler to the
// retailer. The stock re-check, decrements, listing upsert, and status
// transition commit or roll back together.
func (s *service) Approve(ctx context.Context, wholesalerID, orderID uuid.UUID) error {
	order, err := s.loadB2BOrder(ctx, wholesalerID, orderID)
	if err != nil {
		return err
	}
	if order.Status != enums.OrderStatusPending {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order is %s, only pending orders can be approved", order.Status)
	}

	resalePrice := parseResalePrice(order.Notes)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		stockRepo := s.stockRepo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)

		for _, item := range order.Items {
			updated, err := stockRepo.DecrementWholesalerStockIf(ctx, wholesalerID, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if updated == 0 {
				report, reportErr := s.buildStockReport(ctx, stockRepo, order)
				if reportErr != nil {
					return reportErr
				}
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for some items").
					WithDetails(report)
			}

			price := resalePrice
			if price == nil {
				price = &item.UnitPrice
			}
			if err := stockRepo.UpsertRetailerStock(ctx, order.BuyerID, item.ProductID, item.Quantity, *price); err != nil {
				return err
			}
		}

		moved, err := orderRepo.UpdateStatusIf(ctx, order.ID, []enums.OrderStatus{enums.OrderStatusPending}, enums.OrderStatusConfirmed)
		if err != nil {
			return err
		}
		if moved == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was decided concurrently")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve order")
	}

	s.logg.Info(s.logg.WithField(ctx, "order_id", order.ID.String()), "replenishment order approved")
	return nil
}

// Reject cancels the order with a mandatory reason, appended to the order
// notes and pushed to the retailer.
func (s *service) Reject(ctx context.Context, wholesalerID, orderID uuid.UUID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
	}

	order, err := s.loadB2BOrder(ctx, wholesalerID, orderID)
	if err != nil {
		return err
	}
	if order.Status != enums.OrderStatusPending {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order is %s, only pending orders can be rejected", order.Status)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)

		moved, err := orderRepo.UpdateStatusIf(ctx, order.ID, []enums.OrderStatus{enums.OrderStatusPending}, enums.OrderStatusCancelled)
		if err != nil {
			return err
		}
		if moved == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was decided concurrently")
		}
		if err := orderRepo.AppendNotes(ctx, order.ID, "Rejection reason: "+reason); err != nil {
			return err
		}
		return s.notifier.Publish(ctx, tx, notifications.Event{
			UserID:  order.BuyerID,
			Type:    enums.NotificationTypeOrderCancelled,
			Title:   "Order Rejected",
			Message: fmt.Sprintf("Your order #%s was rejected: %s", order.OrderNumber, reason),
			OrderID: &order.ID,
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject order")
	}

	s.logg.Info(s.logg.WithField(ctx, "order_id", order.ID.String()), "replenishment order rejected")
	return nil
}

func (s *service) loadB2BOrder(ctx context.Context, wholesalerID, orderID uuid.UUID) (*models.Order, error) {
	if wholesalerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wholesaler id required")
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
	if order.SellerID != wholesalerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another wholesaler")
	}
	if order.Kind != enums.OrderKindRetailerToWholesaler {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is not a replenishment order")
	}
	return order, nil
}

func (s *service) buildStockReport(ctx context.Context, stockRepo StockRepository, order *models.Order) (*StockReport, error) {
	report := &StockReport{AllAvailable: true}
	for _, item := range order.Items {
		entry := StockReportItem{ProductID: item.ProductID, NeededQty: item.Quantity}
		listing, err := stockRepo.FindWholesalerProduct(ctx, order.SellerID, item.ProductID)
		switch {
		case err == nil:
			entry.CurrentStock = listing.StockQuantity
			entry.Available = listing.StockQuantity >= item.Quantity
		case errors.Is(err, gorm.ErrRecordNotFound):
			// missing stock rows count as unavailable with current = 0
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check wholesaler stock")
		}
		if !entry.Available {
			report.AllAvailable = false
		}
		report.Items = append(report.Items, entry)
	}
	return report, nil
}

func (s *service) retailerName(ctx context.Context, retailerID uuid.UUID) string {
	user, err := s.userRepo.FindByID(ctx, retailerID)
	if err != nil || user.Name == "" {
		return "A retailer"
	}
	return user.Name
}

func parseResalePrice(notes *string) *decimal.Decimal {
	if notes == nil {
		return nil
	}
	for _, line := range strings.Split(*notes, "\n") {
		if !strings.HasPrefix(line, resaleNotePrefix) {
			continue
		}
		raw := strings.TrimSpace(strings.TrimPrefix(line, resaleNotePrefix))
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return nil
		}
		return &price
	}
	return nil
}
