package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/rahulmehra/mandiflow-backend/internal/notifications"
	"github.com/rahulmehra/mandiflow-backend/internal/orders"
	"github.com/rahulmehra/mandiflow-backend/pkg/config"
	"github.com/rahulmehra/mandiflow-backend/pkg/db"
	"github.com/rahulmehra/mandiflow-backend/pkg/db/models"
	"github.com/rahulmehra/mandiflow-backend/pkg/enums"
	"github.com/rahulmehra/mandiflow-backend/pkg/logger"
	"github.com/rahulmehra/mandiflow-backend/pkg/refs"
)

// statusSequence is the linear path a shipment walks. cancelled is set
// elsewhere and never entered by this job.
var statusSequence = []enums.DeliveryStatus{
	enums.DeliveryStatusPending,
	enums.DeliveryStatusConfirmed,
	enums.DeliveryStatusPacked,
	enums.DeliveryStatusPickedUp,
	enums.DeliveryStatusInTransit,
	enums.DeliveryStatusOutForDelivery,
	enums.DeliveryStatusDelivered,
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// JobParams configure the delivery progression job.
type JobParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Repo     Repository
	Orders   orders.Repository
	Notifier notifications.Sink
	Config   config.DeliveryConfig
}

// NewJob builds the recurring job that provisions tracking for confirmed
// orders and walks active shipments through the status sequence.
func NewJob(params JobParams) (*Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("delivery repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notification sink required")
	}
	return &Job{
		logg:     params.Logger,
		db:       params.DB,
		repo:     params.Repo,
		orders:   params.Orders,
		notifier: params.Notifier,
		cfg:      params.Config,
		now:      time.Now,
	}, nil
}

// Job advances shipments. Safe to invoke on any cadence: a record moves at
// most one status per invocation and only after its dwell time has elapsed.
type Job struct {
	logg     *logger.Logger
	db       txRunner
	repo     Repository
	orders   orders.Repository
	notifier notifications.Sink
	cfg      config.DeliveryConfig
	now      func() time.Time
}

func (j *Job) Name() string { return "delivery-progression" }

func (j *Job) Run(ctx context.Context) error {
	return multierr.Combine(
		j.provisionTracking(ctx),
		j.progressShipments(ctx),
	)
}

// provisionTracking creates a tracking record for every confirmed order
// that does not have one yet. A unique-violation means a concurrent run got
// there first and is swallowed.
func (j *Job) provisionTracking(ctx context.Context) error {
	orders, err := j.repo.FindConfirmedOrdersWithoutTracking(ctx)
	if err != nil {
		return fmt.Errorf("query confirmed orders without tracking: %w", err)
	}

	provisioned := 0
	for _, order := range orders {
		if err := j.provisionOne(ctx, order); err != nil {
			j.logg.Error(j.logg.WithField(ctx, "order_id", order.ID.String()), "provision tracking failed", err)
			continue
		}
		provisioned++
	}
	if provisioned > 0 {
		j.logg.Info(j.logg.WithField(ctx, "count", provisioned), "tracking provisioned for confirmed orders")
	}
	return nil
}

func (j *Job) provisionOne(ctx context.Context, order models.Order) error {
	now := j.now().UTC()
	tracking := &models.DeliveryTracking{
		OrderID:               order.ID,
		TrackingNumber:        refs.NewTrackingNumber(),
		CurrentStatus:         enums.DeliveryStatusPending,
		PartnerName:           j.cfg.PartnerName,
		PartnerPhone:          j.cfg.PartnerPhone,
		EstimatedDeliveryTime: now.Add(j.cfg.EstimatedHorizon),
	}

	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := j.repo.WithTx(tx).CreateTracking(ctx, tracking); err != nil {
			return err
		}
		return j.notifier.Publish(ctx, tx, notifications.Event{
			UserID:  order.BuyerID,
			Type:    enums.NotificationTypeOrderConfirmed,
			Title:   "Order Confirmed",
			Message: fmt.Sprintf("Your order #%s has been confirmed and tracking has started.", order.OrderNumber),
			OrderID: &order.ID,
		})
	})
	if db.IsUniqueViolation(err) {
		// a concurrent invocation provisioned this order first
		return nil
	}
	return err
}

func (j *Job) progressShipments(ctx context.Context) error {
	shipments, err := j.repo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("query active shipments: %w", err)
	}

	advanced := 0
	for _, shipment := range shipments {
		moved, err := j.progressOne(ctx, shipment)
		if err != nil {
			j.logg.Error(j.logg.WithField(ctx, "tracking_number", shipment.TrackingNumber), "progress shipment failed", err)
			continue
		}
		if moved {
			advanced++
		}
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"active":   len(shipments),
		"advanced": advanced,
	}), "delivery progression pass complete")
	return nil
}

func (j *Job) progressOne(ctx context.Context, shipment models.DeliveryTracking) (bool, error) {
	next, ok := nextStatus(shipment.CurrentStatus)
	if !ok {
		return false, nil
	}

	enteredAt, err := j.statusEnteredAt(ctx, shipment)
	if err != nil {
		return false, err
	}
	now := j.now().UTC()
	if now.Sub(enteredAt) < j.dwell(shipment.CurrentStatus) {
		return false, nil
	}

	order, err := j.orders.FindByID(ctx, shipment.OrderID)
	if err != nil {
		return false, fmt.Errorf("load order: %w", err)
	}

	moved := false
	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repo.WithTx(tx)

		var deliveredAt *time.Time
		if next == enums.DeliveryStatusDelivered {
			deliveredAt = &now
		}
		updated, err := repo.AdvanceStatusIf(ctx, shipment.ID, shipment.CurrentStatus, next, deliveredAt)
		if err != nil {
			return err
		}
		if updated == 0 {
			// another invocation advanced this record already
			return nil
		}
		moved = true

		if err := repo.AppendHistory(ctx, &models.DeliveryStatusHistory{
			DeliveryTrackingID: shipment.ID,
			Status:             next,
			Timestamp:          now,
		}); err != nil {
			return err
		}

		if next == enums.DeliveryStatusDelivered {
			if _, err := j.orders.WithTx(tx).UpdateStatusIf(ctx, shipment.OrderID, []enums.OrderStatus{
				enums.OrderStatusConfirmed,
				enums.OrderStatusProcessing,
				enums.OrderStatusShipped,
			}, enums.OrderStatusDelivered); err != nil {
				return err
			}
		}

		return j.notifyTransition(ctx, tx, order, next)
	})
	if err != nil {
		return false, err
	}
	return moved, nil
}

// statusEnteredAt finds when the shipment entered its current status: the
// newest matching history row, or the record's creation time for the very
// first status.
func (j *Job) statusEnteredAt(ctx context.Context, shipment models.DeliveryTracking) (time.Time, error) {
	entry, err := j.repo.LastStatusEntry(ctx, shipment.ID, shipment.CurrentStatus)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shipment.CreatedAt, nil
		}
		return time.Time{}, fmt.Errorf("load status history: %w", err)
	}
	return entry.Timestamp, nil
}

func (j *Job) dwell(status enums.DeliveryStatus) time.Duration {
	switch status {
	case enums.DeliveryStatusPending:
		return j.cfg.DwellPending
	case enums.DeliveryStatusConfirmed:
		return j.cfg.DwellConfirmed
	case enums.DeliveryStatusPacked:
		return j.cfg.DwellPacked
	case enums.DeliveryStatusPickedUp:
		return j.cfg.DwellPickedUp
	case enums.DeliveryStatusInTransit:
		return j.cfg.DwellInTransit
	case enums.DeliveryStatusOutForDelivery:
		return j.cfg.DwellOutForDelivery
	default:
		return 0
	}
}

// notifyTransition maps the status just entered to its notification. The
// in_transit step intentionally produces none.
func (j *Job) notifyTransition(ctx context.Context, tx *gorm.DB, order *models.Order, entered enums.DeliveryStatus) error {
	var notifType enums.NotificationType
	var headline string

	switch entered {
	case enums.DeliveryStatusConfirmed:
		notifType, headline = enums.NotificationTypeOrderConfirmed, "Your order has been confirmed"
	case enums.DeliveryStatusPacked:
		notifType, headline = enums.NotificationTypeOrderPacked, "Your order has been packed"
	case enums.DeliveryStatusPickedUp:
		notifType, headline = enums.NotificationTypeOrderShipped, "Your order has been picked up"
	case enums.DeliveryStatusInTransit:
		return nil
	case enums.DeliveryStatusOutForDelivery:
		notifType, headline = enums.NotificationTypeOutForDelivery, "Your order is out for delivery"
	case enums.DeliveryStatusDelivered:
		notifType, headline = enums.NotificationTypeDelivered, "Your order has been delivered"
	default:
		return nil
	}

	return j.notifier.Publish(ctx, tx, notifications.Event{
		UserID:  order.BuyerID,
		Type:    notifType,
		Title:   headline,
		Message: fmt.Sprintf("Order #%s - %s", order.OrderNumber, headline),
		OrderID: &order.ID,
	})
}

func nextStatus(current enums.DeliveryStatus) (enums.DeliveryStatus, bool) {
	for i, status := range statusSequence {
		if status == current && i < len(statusSequence)-1 {
			return statusSequence[i+1], true
		}
	}
	return "", false
}
