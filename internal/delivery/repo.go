package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulmehra/mandiflow-backend/pkg/db/models"
	"github.com/rahulmehra/mandiflow-backend/pkg/enums"
)

// Repository exposes persistence helpers for delivery tracking.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindConfirmedOrdersWithoutTracking(ctx context.Context) ([]models.Order, error)
	CreateTracking(ctx context.Context, tracking *models.DeliveryTracking) error
	ListActive(ctx context.Context) ([]models.DeliveryTracking, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.DeliveryTracking, error)
	LastStatusEntry(ctx context.Context, trackingID uuid.UUID, status enums.DeliveryStatus) (*models.DeliveryStatusHistory, error)
	ListHistory(ctx context.Context, trackingID uuid.UUID) ([]models.DeliveryStatusHistory, error)
	// AdvanceStatusIf moves the tracking record from one status to the
	// next only when it is still in the expected status.
	AdvanceStatusIf(ctx context.Context, trackingID uuid.UUID, from, to enums.DeliveryStatus, deliveredAt *time.Time) (int64, error)
	AppendHistory(ctx context.Context, entry *models.DeliveryStatusHistory) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a delivery repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindConfirmedOrdersWithoutTracking(ctx context.Context) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.OrderStatusConfirmed).
		Where("id NOT IN (?)", r.db.Model(&models.DeliveryTracking{}).Select("order_id")).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) CreateTracking(ctx context.Context, tracking *models.DeliveryTracking) error {
	return r.db.WithContext(ctx).Create(tracking).Error
}

func (r *repositoryImpl) ListActive(ctx context.Context) ([]models.DeliveryTracking, error) {
	var rows []models.DeliveryTracking
	err := r.db.WithContext(ctx).
		Where("current_status NOT IN ?", []enums.DeliveryStatus{
			enums.DeliveryStatusDelivered,
			enums.DeliveryStatusCancelled,
		}).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.DeliveryTracking, error) {
	var row models.DeliveryTracking
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repositoryImpl) LastStatusEntry(ctx context.Context, trackingID uuid.UUID, status enums.DeliveryStatus) (*models.DeliveryStatusHistory, error) {
	var entry models.DeliveryStatusHistory
	err := r.db.WithContext(ctx).
		Where("delivery_tracking_id = ? AND status = ?", trackingID, status).
		Order("timestamp DESC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repositoryImpl) ListHistory(ctx context.Context, trackingID uuid.UUID) ([]models.DeliveryStatusHistory, error) {
	var entries []models.DeliveryStatusHistory
	err := r.db.WithContext(ctx).
		Where("delivery_tracking_id = ?", trackingID).
		Order("timestamp ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repositoryImpl) AdvanceStatusIf(ctx context.Context, trackingID uuid.UUID, from, to enums.DeliveryStatus, deliveredAt *time.Time) (int64, error) {
	updates := map[string]any{"current_status": to}
	if deliveredAt != nil {
		updates["actual_delivery_time"] = *deliveredAt
	}
	result := r.db.WithContext(ctx).
		Model(&models.DeliveryTracking{}).
		Where("id = ? AND current_status = ?", trackingID, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) AppendHistory(ctx context.Context, entry *models.DeliveryStatusHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
