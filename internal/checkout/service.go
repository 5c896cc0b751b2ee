package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rahulmehra/mandiflow-backend/internal/cart"
	"github.com/rahulmehra/mandiflow-backend/internal/notifications"
	"github.com/rahulmehra/mandiflow-backend/internal/orders"
	"github.com/rahulmehra/mandiflow-backend/internal/payments"
	"github.com/rahulmehra/mandiflow-backend/pkg/db/models"
	"github.com/rahulmehra/mandiflow-backend/pkg/enums"
	pkgerrors "github.com/rahulmehra/mandiflow-backend/pkg/errors"
	"github.com/rahulmehra/mandiflow-backend/pkg/logger"
	"github.com/rahulmehra/mandiflow-backend/pkg/refs"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type charger interface {
	Charge(ctx context.Context, params payments.ChargeParams) (*models.PaymentTransaction, error)
}

// Service turns a buyer's cart into per-seller orders with simulated payment.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error)
}

// PlaceOrderInput is everything order placement needs beyond the cart itself.
type PlaceOrderInput struct {
	BuyerID           uuid.UUID
	DeliveryAddress   string
	DeliveryLatitude  *float64
	DeliveryLongitude *float64
	Notes             *string
	PaymentMethod     enums.PaymentMethodType
}

// PlaceOrderResult reports the orders created by a successful placement.
type PlaceOrderResult struct {
	OrderIDs     []uuid.UUID `json:"order_ids"`
	OrderNumbers []string    `json:"order_numbers"`
}

type service struct {
	tx        txRunner
	cartRepo  cart.Repository
	orderRepo orders.Repository
	payments  charger
	notifier  notifications.Sink
	logg      *logger.Logger
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	cartRepo cart.Repository,
	orderRepo orders.Repository,
	paymentSvc charger,
	notifier notifications.Sink,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tx runner required")
	}
	if cartRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart repository required")
	}
	if orderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if paymentSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payments service required")
	}
	if notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification sink required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		tx:        tx,
		cartRepo:  cartRepo,
		orderRepo: orderRepo,
		payments:  paymentSvc,
		notifier:  notifier,
		logg:      logg,
	}, nil
}

// PlaceOrder partitions the cart by seller and, for each partition in turn,
// creates an order with frozen prices and charges the partition total. A
// declined charge deletes the order it was meant to pay for and aborts the
// rest of the placement; partitions already paid stay committed. The cart is
// emptied only when every partition succeeds.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if input.DeliveryAddress == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment method %q", input.PaymentMethod)
	}

	items, err := s.cartRepo.ListByUser(ctx, input.BuyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}

	sellerIDs, partitions := partitionBySeller(items)
	result := &PlaceOrderResult{}

	for _, sellerID := range sellerIDs {
		partition := partitions[sellerID]
		order, err := s.placePartition(ctx, input, sellerID, partition)
		if err != nil {
			return nil, err
		}
		result.OrderIDs = append(result.OrderIDs, order.ID)
		result.OrderNumbers = append(result.OrderNumbers, order.OrderNumber)
	}

	if _, err := s.cartRepo.DeleteByUser(ctx, input.BuyerID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "drain cart")
	}
	return result, nil
}

func (s *service) placePartition(ctx context.Context, input PlaceOrderInput, sellerID uuid.UUID, partition []models.CartItem) (*models.Order, error) {
	total := decimal.Zero
	lineItems := make([]models.OrderItem, 0, len(partition))
	for _, item := range partition {
		subtotal := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(subtotal)
		lineItems = append(lineItems, models.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
			Subtotal:  subtotal,
		})
	}

	order := &models.Order{
		OrderNumber:       refs.NewOrderNumber(),
		BuyerID:           input.BuyerID,
		SellerID:          sellerID,
		Kind:              enums.OrderKindCustomerToRetailer,
		Status:            enums.OrderStatusPending,
		TotalAmount:       total,
		DeliveryAddress:   input.DeliveryAddress,
		DeliveryLatitude:  input.DeliveryLatitude,
		DeliveryLongitude: input.DeliveryLongitude,
		Notes:             input.Notes,
		Items:             lineItems,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.orderRepo.WithTx(tx).CreateWithItems(ctx, order)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"seller_id":    sellerID.String(),
	})

	if _, err := s.payments.Charge(ctx, payments.ChargeParams{
		OrderID:    order.ID,
		PayerID:    input.BuyerID,
		Amount:     total,
		MethodType: input.PaymentMethod,
	}); err != nil {
		s.compensate(ctx, order.ID)
		return nil, err
	}

	event := notifications.Event{
		UserID:  input.BuyerID,
		Type:    enums.NotificationTypeOrderPlaced,
		Title:   "Order Placed Successfully",
		Message: fmt.Sprintf("Your order #%s has been placed successfully.", order.OrderNumber),
		OrderID: &order.ID,
	}
	if err := s.notifier.Publish(ctx, nil, event); err != nil {
		s.logg.Warn(ctx, "order placed notification failed")
	}

	s.logg.Info(ctx, "order placed")
	return order, nil
}

// compensate removes the order a declined payment was meant to fund. The
// failed transaction row is kept as the audit trail of the attempt.
func (s *service) compensate(ctx context.Context, orderID uuid.UUID) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.orderRepo.WithTx(tx).DeleteWithItems(ctx, orderID)
	})
	if err != nil {
		s.logg.Error(ctx, "order compensation failed", err)
	}
}

// partitionBySeller groups cart items by seller, preserving the order in
// which sellers first appear in the cart.
func partitionBySeller(items []models.CartItem) ([]uuid.UUID, map[uuid.UUID][]models.CartItem) {
	sellerIDs := make([]uuid.UUID, 0)
	partitions := make(map[uuid.UUID][]models.CartItem)
	for _, item := range items {
		if _, ok := partitions[item.SellerID]; !ok {
			sellerIDs = append(sellerIDs, item.SellerID)
		}
		partitions[item.SellerID] = append(partitions[item.SellerID], item)
	}
	return sellerIDs, partitions
}
