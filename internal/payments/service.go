package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rahulmehra/mandiflow-backend/internal/notifications"
	"github.com/rahulmehra/mandiflow-backend/pkg/db/models"
	"github.com/rahulmehra/mandiflow-backend/pkg/enums"
	pkgerrors "github.com/rahulmehra/mandiflow-backend/pkg/errors"
	"github.com/rahulmehra/mandiflow-backend/pkg/logger"
	"github.com/rahulmehra/mandiflow-backend/pkg/refs"
	"github.com/rahulmehra/mandiflow-backend/pkg/types"
)

const declineReason = "Payment declined by gateway"

// Service runs simulated charges and records their outcomes.
type Service interface {
	// Charge attempts to collect the order total. On approval the returned
	// transaction is completed. On decline the transaction is recorded as
	// failed and the error carries the PAYMENT_DECLINED code; callers use
	// that signal to compensate the order they just created.
	Charge(ctx context.Context, params ChargeParams) (*models.PaymentTransaction, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentTransaction, error)
}

// ChargeParams identifies the order and payer being charged.
type ChargeParams struct {
	OrderID    uuid.UUID
	PayerID    uuid.UUID
	Amount     decimal.Decimal
	MethodType enums.PaymentMethodType
}

type service struct {
	repo     Repository
	gateway  Gateway
	notifier notifications.Sink
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires payments dependencies.
func NewService(repo Repository, gateway Gateway, notifier notifications.Sink, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payments repository required")
	}
	if gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway required")
	}
	if notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification sink required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:     repo,
		gateway:  gateway,
		notifier: notifier,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) Charge(ctx context.Context, params ChargeParams) (*models.PaymentTransaction, error) {
	if params.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if params.PayerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payer id required")
	}
	if !params.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}
	if !params.MethodType.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment method %q", params.MethodType)
	}

	txn := &models.PaymentTransaction{
		TransactionID:     refs.NewTransactionID(),
		OrderID:           params.OrderID,
		PayerID:           params.PayerID,
		Amount:            params.Amount,
		PaymentMethodType: params.MethodType,
		Status:            enums.PaymentStatusProcessing,
	}
	if err := s.repo.Create(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment transaction")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"transaction_id": txn.TransactionID,
		"order_id":       params.OrderID.String(),
	})

	result, err := s.gateway.Charge(ctx, ChargeRequest{
		TransactionID: txn.TransactionID,
		Amount:        params.Amount.StringFixed(2),
		MethodType:    string(params.MethodType),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway charge")
	}

	if result.Approved {
		return s.settleApproved(ctx, txn, params, result)
	}
	return s.settleDeclined(ctx, txn, params, result)
}

func (s *service) settleApproved(ctx context.Context, txn *models.PaymentTransaction, params ChargeParams, result *ChargeResult) (*models.PaymentTransaction, error) {
	completedAt := s.now().UTC()
	response := types.JSONMap(result.Response)
	if err := s.repo.MarkCompleted(ctx, txn.TransactionID, completedAt, response); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark transaction completed")
	}
	txn.Status = enums.PaymentStatusCompleted
	txn.CompletedAt = &completedAt
	txn.GatewayResponse = response

	s.logg.Info(ctx, "payment completed")

	event := notifications.Event{
		UserID:        params.PayerID,
		Type:          enums.NotificationTypePaymentSuccess,
		Title:         "Payment Successful",
		Message:       fmt.Sprintf("Your payment of ₹%s has been processed successfully.", params.Amount.StringFixed(2)),
		OrderID:       &params.OrderID,
		TransactionID: &txn.ID,
	}
	if err := s.notifier.Publish(ctx, nil, event); err != nil {
		s.logg.Warn(ctx, "payment success notification failed")
	}
	return txn, nil
}

func (s *service) settleDeclined(ctx context.Context, txn *models.PaymentTransaction, params ChargeParams, result *ChargeResult) (*models.PaymentTransaction, error) {
	response := types.JSONMap(result.Response)
	if err := s.repo.MarkFailed(ctx, txn.TransactionID, declineReason, response); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark transaction failed")
	}
	reason := declineReason
	txn.Status = enums.PaymentStatusFailed
	txn.FailureReason = &reason
	txn.GatewayResponse = response

	s.logg.Warn(ctx, "payment declined")

	event := notifications.Event{
		UserID:        params.PayerID,
		Type:          enums.NotificationTypePaymentFailed,
		Title:         "Payment Failed",
		Message:       fmt.Sprintf("Your payment of ₹%s could not be processed. Please try again.", params.Amount.StringFixed(2)),
		OrderID:       &params.OrderID,
		TransactionID: &txn.ID,
	}
	if err := s.notifier.Publish(ctx, nil, event); err != nil {
		s.logg.Warn(ctx, "payment failure notification failed")
	}

	return txn, pkgerrors.New(pkgerrors.CodePaymentDeclined, declineReason)
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentTransaction, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	txns, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	return txns, nil
}
