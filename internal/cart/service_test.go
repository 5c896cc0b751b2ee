package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rahulmehra/mandiflow-backend/pkg/db/models"
	pkgerrors "github.com/rahulmehra/mandiflow-backend/pkg/errors"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.CartItem{}))
	return db
}

func newCartService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := setupCartTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc, db
}

func addParams(userID, sellerID uuid.UUID, qty int, price string) AddItemParams {
	return AddItemParams{
		UserID:    userID,
		SellerID:  sellerID,
		ProductID: uuid.New(),
		Quantity:  qty,
		Price:     decimal.RequireFromString(price),
	}
}

func TestService_AddItemCreatesAndTotals(t *testing.T) {
	svc, _ := newCartService(t)
	userID := uuid.New()
	sellerID := uuid.New()

	_, err := svc.AddItem(context.Background(), addParams(userID, sellerID, 2, "40.50"))
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), addParams(userID, sellerID, 1, "19.00"))
	require.NoError(t, err)

	view, err := svc.List(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("100.00")),
		"expected 100.00, got %s", view.Total)
}

func TestService_AddItemMergesSameProduct(t *testing.T) {
	svc, _ := newCartService(t)
	userID := uuid.New()
	params := addParams(userID, uuid.New(), 2, "10.00")

	first, err := svc.AddItem(context.Background(), params)
	require.NoError(t, err)
	second, err := svc.AddItem(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 4, second.Quantity)

	view, err := svc.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 4, view.Items[0].Quantity)
}

func TestService_AddItemRejectsBadInput(t *testing.T) {
	svc, _ := newCartService(t)

	_, err := svc.AddItem(context.Background(), addParams(uuid.New(), uuid.New(), 0, "10.00"))
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	bad := addParams(uuid.New(), uuid.New(), 1, "10.00")
	bad.Price = decimal.RequireFromString("-1")
	_, err = svc.AddItem(context.Background(), bad)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestService_UpdateQuantityScopedToOwner(t *testing.T) {
	svc, _ := newCartService(t)
	userID := uuid.New()

	item, err := svc.AddItem(context.Background(), addParams(userID, uuid.New(), 1, "5.00"))
	require.NoError(t, err)

	require.NoError(t, svc.UpdateQuantity(context.Background(), userID, item.ID, 7))

	err = svc.UpdateQuantity(context.Background(), uuid.New(), item.ID, 3)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	view, err := svc.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 7, view.Items[0].Quantity)
}

func TestService_RemoveAndClear(t *testing.T) {
	svc, _ := newCartService(t)
	userID := uuid.New()

	item, err := svc.AddItem(context.Background(), addParams(userID, uuid.New(), 1, "5.00"))
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), addParams(userID, uuid.New(), 2, "8.00"))
	require.NoError(t, err)

	require.NoError(t, svc.RemoveItem(context.Background(), userID, item.ID))

	count, err := svc.Count(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, svc.Clear(context.Background(), userID))
	count, err = svc.Count(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestService_RemoveMissingItem(t *testing.T) {
	svc, _ := newCartService(t)

	err := svc.RemoveItem(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
