package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulmehra/mandiflow-backend/pkg/db/models"
	"github.com/rahulmehra/mandiflow-backend/pkg/enums"
	"github.com/rahulmehra/mandiflow-backend/pkg/types"
)

// Repository exposes persistence helpers for payment transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.PaymentTransaction) error
	MarkCompleted(ctx context.Context, transactionID string, completedAt time.Time, response types.JSONMap) error
	MarkFailed(ctx context.Context, transactionID string, reason string, response types.JSONMap) error
	FindByTransactionID(ctx context.Context, transactionID string) (*models.PaymentTransaction, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentTransaction, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a payments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, txn *models.PaymentTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repositoryImpl) MarkCompleted(ctx context.Context, transactionID string, completedAt time.Time, response types.JSONMap) error {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Where("transaction_id = ? AND status = ?", transactionID, enums.PaymentStatusProcessing).
		Updates(map[string]any{
			"status":           enums.PaymentStatusCompleted,
			"completed_at":     completedAt,
			"gateway_response": response,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repositoryImpl) MarkFailed(ctx context.Context, transactionID string, reason string, response types.JSONMap) error {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Where("transaction_id = ? AND status = ?", transactionID, enums.PaymentStatusProcessing).
		Updates(map[string]any{
			"status":           enums.PaymentStatusFailed,
			"failure_reason":   reason,
			"gateway_response": response,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repositoryImpl) FindByTransactionID(ctx context.Context, transactionID string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repositoryImpl) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentTransaction, error) {
	var txns []models.PaymentTransaction
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
