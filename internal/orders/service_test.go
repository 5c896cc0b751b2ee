package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rahulmehra/mandiflow-backend/pkg/db/models"
	"github.com/rahulmehra/mandiflow-backend/pkg/enums"
	pkgerrors "github.com/rahulmehra/mandiflow-backend/pkg/errors"
	"github.com/rahulmehra/mandiflow-backend/pkg/refs"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.OrderItem{}))
	return db
}

func newOrderService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := setupOrdersTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc, db
}

// seedOrder inserts an order and pins its created_at so keyset ordering is
// deterministic. autoCreateTime stamps wall time on insert, hence the
// explicit update.
func seedOrder(t *testing.T, db *gorm.DB, buyerID, sellerID uuid.UUID, kind enums.OrderKind, status enums.OrderStatus, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber:     refs.NewOrderNumber(),
		BuyerID:         buyerID,
		SellerID:        sellerID,
		Kind:            kind,
		Status:          status,
		TotalAmount:     decimal.NewFromInt(100),
		DeliveryAddress: "14 Market Road, Pune",
	}
	require.NoError(t, db.Create(order).Error)
	require.NoError(t, db.Model(order).UpdateColumn("created_at", createdAt).Error)
	order.CreatedAt = createdAt
	return order
}

func TestService_GetEnforcesParticipants(t *testing.T) {
	svc, db := newOrderService(t)
	buyerID := uuid.New()
	sellerID := uuid.New()
	order := seedOrder(t, db, buyerID, sellerID, enums.OrderKindCustomerToRetailer, enums.OrderStatusConfirmed, time.Now())

	loaded, err := svc.Get(context.Background(), buyerID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, loaded.OrderNumber)

	_, err = svc.Get(context.Background(), sellerID, order.ID)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), uuid.New(), order.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}

func TestService_GetUnknownOrder(t *testing.T) {
	svc, _ := newOrderService(t)

	_, err := svc.Get(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestService_ListForBuyerFiltersKindAndStatus(t *testing.T) {
	svc, db := newOrderService(t)
	buyerID := uuid.New()
	base := time.Now().Add(-time.Hour)

	seedOrder(t, db, buyerID, uuid.New(), enums.OrderKindCustomerToRetailer, enums.OrderStatusConfirmed, base)
	seedOrder(t, db, buyerID, uuid.New(), enums.OrderKindCustomerToRetailer, enums.OrderStatusCancelled, base.Add(time.Minute))
	seedOrder(t, db, buyerID, uuid.New(), enums.OrderKindRetailerToWholesaler, enums.OrderStatusConfirmed, base.Add(2*time.Minute))
	seedOrder(t, db, uuid.New(), uuid.New(), enums.OrderKindCustomerToRetailer, enums.OrderStatusConfirmed, base.Add(3*time.Minute))

	kind := enums.OrderKindCustomerToRetailer
	status := enums.OrderStatusConfirmed
	result, err := svc.ListForBuyer(context.Background(), buyerID, QueryParams{Kind: &kind, Status: &status})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, buyerID, result.Items[0].BuyerID)
	assert.Empty(t, result.Cursor)
}

func TestService_ListForSellerNewestFirst(t *testing.T) {
	svc, db := newOrderService(t)
	sellerID := uuid.New()
	base := time.Now().Add(-time.Hour)

	oldest := seedOrder(t, db, uuid.New(), sellerID, enums.OrderKindCustomerToRetailer, enums.OrderStatusPending, base)
	newest := seedOrder(t, db, uuid.New(), sellerID, enums.OrderKindCustomerToRetailer, enums.OrderStatusPending, base.Add(10*time.Minute))

	result, err := svc.ListForSeller(context.Background(), sellerID, QueryParams{})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, newest.ID, result.Items[0].ID)
	assert.Equal(t, oldest.ID, result.Items[1].ID)
}

func TestService_ListPaginatesWithCursor(t *testing.T) {
	svc, db := newOrderService(t)
	buyerID := uuid.New()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		seedOrder(t, db, buyerID, uuid.New(), enums.OrderKindCustomerToRetailer, enums.OrderStatusPending, base.Add(time.Duration(i)*time.Minute))
	}

	first, err := svc.ListForBuyer(context.Background(), buyerID, QueryParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.Cursor)

	second, err := svc.ListForBuyer(context.Background(), buyerID, QueryParams{Limit: 2, Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	require.NotEmpty(t, second.Cursor)

	third, err := svc.ListForBuyer(context.Background(), buyerID, QueryParams{Limit: 2, Cursor: second.Cursor})
	require.NoError(t, err)
	require.Len(t, third.Items, 1)
	assert.Empty(t, third.Cursor)

	seen := map[uuid.UUID]bool{}
	for _, page := range [][]models.Order{first.Items, second.Items, third.Items} {
		for _, order := range page {
			assert.False(t, seen[order.ID], "order %s returned twice", order.ID)
			seen[order.ID] = true
		}
	}
	assert.Len(t, seen, 5)
}

func TestRepository_AppendNotesKeepsExistingLines(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	order := seedOrder(t, db, uuid.New(), uuid.New(), enums.OrderKindRetailerToWholesaler, enums.OrderStatusPending, time.Now())

	require.NoError(t, repo.AppendNotes(context.Background(), order.ID, "Desired retail price: ₹425.00"))
	// a second writer must not clobber the first line, even when it never
	// saw it
	require.NoError(t, repo.AppendNotes(context.Background(), order.ID, "Rejection reason: Out of season"))

	loaded, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Notes)
	assert.Equal(t, "Desired retail price: ₹425.00\nRejection reason: Out of season", *loaded.Notes)
}

func TestService_ListRejectsBadCursor(t *testing.T) {
	svc, _ := newOrderService(t)

	_, err := svc.ListForBuyer(context.Background(), uuid.New(), QueryParams{Cursor: "not-a-cursor"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
