package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulmehra/mandiflow-backend/internal/orders"
	"github.com/rahulmehra/mandiflow-backend/pkg/db/models"
	"github.com/rahulmehra/mandiflow-backend/pkg/enums"
	pkgerrors "github.com/rahulmehra/mandiflow-backend/pkg/errors"
)

func TestGetByOrder_ReturnsTrackingWithHistory(t *testing.T) {
	db := setupDeliveryTestDB(t)
	order := seedOrder(t, db, enums.OrderStatusConfirmed)
	base := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	tracking := seedTracking(t, db, order.ID, enums.DeliveryStatusPacked, base)
	for i, status := range []enums.DeliveryStatus{enums.DeliveryStatusConfirmed, enums.DeliveryStatusPacked} {
		require.NoError(t, db.Create(&models.DeliveryStatusHistory{
			DeliveryTrackingID: tracking.ID,
			Status:             status,
			Timestamp:          base.Add(time.Duration(i+1) * time.Minute),
		}).Error)
	}

	svc, err := NewService(NewRepository(db), orders.NewRepository(db))
	require.NoError(t, err)

	detail, err := svc.GetByOrder(context.Background(), order.BuyerID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, tracking.TrackingNumber, detail.Tracking.TrackingNumber)
	assert.Equal(t, enums.DeliveryStatusPacked, detail.Tracking.CurrentStatus)
	require.Len(t, detail.History, 2)
	assert.Equal(t, enums.DeliveryStatusConfirmed, detail.History[0].Status)
	assert.Equal(t, enums.DeliveryStatusPacked, detail.History[1].Status)
}

func TestGetByOrder_SellerCanRead(t *testing.T) {
	db := setupDeliveryTestDB(t)
	order := seedOrder(t, db, enums.OrderStatusConfirmed)
	seedTracking(t, db, order.ID, enums.DeliveryStatusPending, time.Now().UTC())

	svc, err := NewService(NewRepository(db), orders.NewRepository(db))
	require.NoError(t, err)

	_, err = svc.GetByOrder(context.Background(), order.SellerID, order.ID)
	assert.NoError(t, err)
}

func TestGetByOrder_RejectsStrangers(t *testing.T) {
	db := setupDeliveryTestDB(t)
	order := seedOrder(t, db, enums.OrderStatusConfirmed)
	seedTracking(t, db, order.ID, enums.DeliveryStatusPending, time.Now().UTC())

	svc, err := NewService(NewRepository(db), orders.NewRepository(db))
	require.NoError(t, err)

	_, err = svc.GetByOrder(context.Background(), uuid.New(), order.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}

func TestGetByOrder_NotFoundBeforeProvisioning(t *testing.T) {
	db := setupDeliveryTestDB(t)
	order := seedOrder(t, db, enums.OrderStatusConfirmed)

	svc, err := NewService(NewRepository(db), orders.NewRepository(db))
	require.NoError(t, err)

	_, err = svc.GetByOrder(context.Background(), order.BuyerID, order.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestGetByOrder_UnknownOrder(t *testing.T) {
	db := setupDeliveryTestDB(t)

	svc, err := NewService(NewRepository(db), orders.NewRepository(db))
	require.NoError(t, err)

	_, err = svc.GetByOrder(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
