package checkout

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rahulmehra/mandiflow-backend/internal/cart"
	"github.com/rahulmehra/mandiflow-backend/internal/notifications"
	"github.com/rahulmehra/mandiflow-backend/internal/orders"
	"github.com/rahulmehra/mandiflow-backend/internal/payments"
	"github.com/rahulmehra/mandiflow-backend/pkg/db/models"
	"github.com/rahulmehra/mandiflow-backend/pkg/enums"
	pkgerrors "github.com/rahulmehra/mandiflow-backend/pkg/errors"
	"github.com/rahulmehra/mandiflow-backend/pkg/logger"
)

type testTxRunner struct {
	db *gorm.DB
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}

// scriptedCharger approves or declines charges in call order.
type scriptedCharger struct {
	outcomes []bool
	calls    int
	charged  []payments.ChargeParams
}

func (c *scriptedCharger) Charge(ctx context.Context, params payments.ChargeParams) (*models.PaymentTransaction, error) {
	idx := c.calls
	c.calls++
	c.charged = append(c.charged, params)
	approve := true
	if idx < len(c.outcomes) {
		approve = c.outcomes[idx]
	}
	if !approve {
		return nil, pkgerrors.New(pkgerrors.CodePaymentDeclined, "Payment declined by gateway")
	}
	return &models.PaymentTransaction{
		ID:     uuid.New(),
		Status: enums.PaymentStatusCompleted,
	}, nil
}

type recordingSink struct {
	events []notifications.Event
}

func (r *recordingSink) Publish(ctx context.Context, tx *gorm.DB, event notifications.Event) error {
	r.events = append(r.events, event)
	return nil
}

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	))
	return db
}

func newCheckoutService(t *testing.T, db *gorm.DB, chargerImpl charger, sink notifications.Sink) Service {
	t.Helper()
	logg := logger.New(logger.Options{Level: zerolog.ErrorLevel})
	svc, err := NewService(
		&testTxRunner{db: db},
		cart.NewRepository(db),
		orders.NewRepository(db),
		chargerImpl,
		sink,
		logg,
	)
	require.NoError(t, err)
	return svc
}

func seedCartItem(t *testing.T, db *gorm.DB, userID, sellerID uuid.UUID, qty int, price string) models.CartItem {
	t.Helper()
	item := models.CartItem{
		UserID:    userID,
		SellerID:  sellerID,
		ProductID: uuid.New(),
		Quantity:  qty,
		Price:     decimal.RequireFromString(price),
	}
	require.NoError(t, db.Create(&item).Error)
	return item
}

func placeInput(buyerID uuid.UUID) PlaceOrderInput {
	return PlaceOrderInput{
		BuyerID:         buyerID,
		DeliveryAddress: "14 MG Road, Pune, MH 411001",
		PaymentMethod:   enums.PaymentMethodTypeUPI,
	}
}

func TestPlaceOrder_SplitsCartBySeller(t *testing.T) {
	db := setupCheckoutTestDB(t)
	buyerID := uuid.New()
	sellerA := uuid.New()
	sellerB := uuid.New()

	seedCartItem(t, db, buyerID, sellerA, 2, "50.00")
	seedCartItem(t, db, buyerID, sellerA, 1, "30.00")
	seedCartItem(t, db, buyerID, sellerB, 3, "20.00")

	chargerImpl := &scriptedCharger{}
	sink := &recordingSink{}
	svc := newCheckoutService(t, db, chargerImpl, sink)

	result, err := svc.PlaceOrder(context.Background(), placeInput(buyerID))
	require.NoError(t, err)
	require.Len(t, result.OrderIDs, 2)

	var orderRows []models.Order
	require.NoError(t, db.Preload("Items").Order("created_at ASC").Find(&orderRows).Error)
	require.Len(t, orderRows, 2)

	totalsBySeller := map[uuid.UUID]string{}
	itemCounts := map[uuid.UUID]int{}
	for _, row := range orderRows {
		assert.Equal(t, buyerID, row.BuyerID)
		assert.Equal(t, enums.OrderKindCustomerToRetailer, row.Kind)
		assert.Equal(t, enums.OrderStatusPending, row.Status)
		assert.NotEmpty(t, row.OrderNumber)
		totalsBySeller[row.SellerID] = row.TotalAmount.StringFixed(2)
		itemCounts[row.SellerID] = len(row.Items)
	}
	assert.Equal(t, "130.00", totalsBySeller[sellerA])
	assert.Equal(t, "60.00", totalsBySeller[sellerB])
	assert.Equal(t, 2, itemCounts[sellerA])
	assert.Equal(t, 1, itemCounts[sellerB])

	// one charge per partition, each for that partition's total
	require.Equal(t, 2, chargerImpl.calls)

	// cart fully drained
	var remaining int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", buyerID).Count(&remaining).Error)
	assert.Zero(t, remaining)

	// one order_placed notification per partition
	placed := 0
	for _, event := range sink.events {
		if event.Type == enums.NotificationTypeOrderPlaced {
			placed++
		}
	}
	assert.Equal(t, 2, placed)
}

func TestPlaceOrder_FreezesCartPrices(t *testing.T) {
	db := setupCheckoutTestDB(t)
	buyerID := uuid.New()
	sellerID := uuid.New()
	item := seedCartItem(t, db, buyerID, sellerID, 4, "12.50")

	svc := newCheckoutService(t, db, &scriptedCharger{}, &recordingSink{})
	_, err := svc.PlaceOrder(context.Background(), placeInput(buyerID))
	require.NoError(t, err)

	var lines []models.OrderItem
	require.NoError(t, db.Find(&lines).Error)
	require.Len(t, lines, 1)
	assert.Equal(t, item.ProductID, lines[0].ProductID)
	assert.Equal(t, 4, lines[0].Quantity)
	assert.Equal(t, "12.50", lines[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "50.00", lines[0].Subtotal.StringFixed(2))
}

func TestPlaceOrder_DeclineCompensatesAndAborts(t *testing.T) {
	db := setupCheckoutTestDB(t)
	buyerID := uuid.New()
	sellerA := uuid.New()
	sellerB := uuid.New()
	sellerC := uuid.New()

	seedCartItem(t, db, buyerID, sellerA, 1, "10.00")
	seedCartItem(t, db, buyerID, sellerB, 1, "20.00")
	seedCartItem(t, db, buyerID, sellerC, 1, "30.00")

	chargerImpl := &scriptedCharger{outcomes: []bool{true, false, true}}
	sink := &recordingSink{}
	svc := newCheckoutService(t, db, chargerImpl, sink)

	_, err := svc.PlaceOrder(context.Background(), placeInput(buyerID))
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodePaymentDeclined))

	// the first partition's order survives, the declined one is gone, and
	// the third was never attempted
	var orderRows []models.Order
	require.NoError(t, db.Find(&orderRows).Error)
	require.Len(t, orderRows, 1)
	assert.Equal(t, sellerA, orderRows[0].SellerID)

	var lineCount int64
	require.NoError(t, db.Model(&models.OrderItem{}).Count(&lineCount).Error)
	assert.Equal(t, int64(1), lineCount)

	assert.Equal(t, 2, chargerImpl.calls)

	// cart untouched on failure
	var remaining int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", buyerID).Count(&remaining).Error)
	assert.Equal(t, int64(3), remaining)
}

func TestPlaceOrder_RejectsEmptyCart(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db, &scriptedCharger{}, &recordingSink{})

	_, err := svc.PlaceOrder(context.Background(), placeInput(uuid.New()))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestPlaceOrder_ValidatesInput(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db, &scriptedCharger{}, &recordingSink{})
	buyerID := uuid.New()
	seedCartItem(t, db, buyerID, uuid.New(), 1, "10.00")

	missingAddress := placeInput(buyerID)
	missingAddress.DeliveryAddress = ""
	_, err := svc.PlaceOrder(context.Background(), missingAddress)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	badMethod := placeInput(buyerID)
	badMethod.PaymentMethod = enums.PaymentMethodType("barter")
	_, err = svc.PlaceOrder(context.Background(), badMethod)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
