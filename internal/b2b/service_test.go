package b2b

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

	"github.com/rahulmehra/mandiflow-backend/internal/notifications"
	"github.com/rahulmehra/mandiflow-backend/internal/orders"
	"github.com/rahulmehra/mandiflow-backend/internal/users"
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

type recordingSink struct {
	events []notifications.Event
}

func (r *recordingSink) Publish(ctx context.Context, tx *gorm.DB, event notifications.Event) error {
	r.events = append(r.events, event)
	return nil
}

type fixture struct {
	db         *gorm.DB
	svc        Service
	sink       *recordingSink
	retailer   models.User
	wholesaler models.User
	product    models.Product
	listing    models.WholesalerProduct
}

func setupB2BTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.WholesalerProduct{},
		&models.RetailerProduct{},
		&models.Order{},
		&models.OrderItem{},
	))
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupB2BTestDB(t)

	retailer := models.User{Name: "Mehra General Store", Role: enums.UserRoleRetailer}
	wholesaler := models.User{Name: "Pune Agro Traders", Role: enums.UserRoleWholesaler}
	require.NoError(t, db.Create(&retailer).Error)
	require.NoError(t, db.Create(&wholesaler).Error)

	product := models.Product{Name: "Basmati Rice 5kg", Category: "grains", BasePrice: decimal.RequireFromString("400.00")}
	require.NoError(t, db.Create(&product).Error)

	listing := models.WholesalerProduct{
		WholesalerID:         wholesaler.ID,
		ProductID:            product.ID,
		Price:                decimal.RequireFromString("350.00"),
		StockQuantity:        100,
		MinimumOrderQuantity: 10,
		IsAvailable:          true,
	}
	require.NoError(t, db.Create(&listing).Error)

	sink := &recordingSink{}
	logg := logger.New(logger.Options{Level: zerolog.ErrorLevel})
	svc, err := NewService(
		&testTxRunner{db: db},
		orders.NewRepository(db),
		NewStockRepository(db),
		users.NewRepository(db),
		sink,
		logg,
	)
	require.NoError(t, err)

	return &fixture{
		db:         db,
		svc:        svc,
		sink:       sink,
		retailer:   retailer,
		wholesaler: wholesaler,
		product:    product,
		listing:    listing,
	}
}

func (f *fixture) requestParams() RequestStockParams {
	return RequestStockParams{
		RetailerID:      f.retailer.ID,
		WholesalerID:    f.wholesaler.ID,
		ProductID:       f.product.ID,
		Quantity:        20,
		ResalePrice:     decimal.RequireFromString("425.00"),
		DeliveryAddress: "Shop 4, Laxmi Market, Pune",
	}
}

func TestRequestStock_CreatesPendingOrderAtWholesalePrice(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.RequestStock(context.Background(), f.requestParams())
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.OrderKindRetailerToWholesaler, order.Kind)
	assert.Equal(t, "7000.00", order.TotalAmount.StringFixed(2))
	require.NotNil(t, order.Notes)
	assert.Equal(t, "Desired retail price: ₹425.00", *order.Notes)

	var items []models.OrderItem
	require.NoError(t, f.db.Where("order_id = ?", order.ID).Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, "350.00", items[0].UnitPrice.StringFixed(2))

	require.Len(t, f.sink.events, 1)
	assert.Equal(t, enums.NotificationTypeOrderPlaced, f.sink.events[0].Type)
	assert.Equal(t, f.wholesaler.ID, f.sink.events[0].UserID)
	assert.Contains(t, f.sink.events[0].Message, "Mehra General Store requested 20 units")
}

func TestRequestStock_Validations(t *testing.T) {
	f := newFixture(t)

	tooCheap := f.requestParams()
	tooCheap.ResalePrice = decimal.RequireFromString("350.00")
	_, err := f.svc.RequestStock(context.Background(), tooCheap)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "resale price must exceed wholesale")

	belowMinimum := f.requestParams()
	belowMinimum.Quantity = 5
	_, err = f.svc.RequestStock(context.Background(), belowMinimum)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "below minimum order quantity")

	aboveStock := f.requestParams()
	aboveStock.Quantity = 150
	_, err = f.svc.RequestStock(context.Background(), aboveStock)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "above available stock")

	unknownProduct := f.requestParams()
	unknownProduct.ProductID = uuid.New()
	_, err = f.svc.RequestStock(context.Background(), unknownProduct)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	// nothing was written
	var orderCount int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)
}

func TestCheckStock_ReportsPerItemAvailability(t *testing.T) {
	f := newFixture(t)
	order, err := f.svc.RequestStock(context.Background(), f.requestParams())
	require.NoError(t, err)

	report, err := f.svc.CheckStock(context.Background(), f.wholesaler.ID, order.ID)
	require.NoError(t, err)
	assert.True(t, report.AllAvailable)
	require.Len(t, report.Items, 1)
	assert.Equal(t, 100, report.Items[0].CurrentStock)
	assert.Equal(t, 20, report.Items[0].NeededQty)

	// stock drops below the requested quantity
	require.NoError(t, f.db.Model(&models.WholesalerProduct{}).
		Where("id = ?", f.listing.ID).
		UpdateColumn("stock_quantity", 5).Error)

	report, err = f.svc.CheckStock(context.Background(), f.wholesaler.ID, order.ID)
	require.NoError(t, err)
	assert.False(t, report.AllAvailable)
	assert.False(t, report.Items[0].Available)
	assert.Equal(t, 5, report.Items[0].CurrentStock)
}

func TestCheckStock_MissingListingCountsAsZero(t *testing.T) {
	f := newFixture(t)
	order, err := f.svc.RequestStock(context.Background(), f.requestParams())
	require.NoError(t, err)

	require.NoError(t, f.db.Delete(&models.WholesalerProduct{}, "id = ?", f.listing.ID).Error)

	report, err := f.svc.CheckStock(context.Background(), f.wholesaler.ID, order.ID)
	require.NoError(t, err)
	assert.False(t, report.AllAvailable)
	assert.Equal(t, 0, report.Items[0].CurrentStock)
}

func TestApprove_TransfersStockAndConfirms(t *testing.T) {
	f := newFixture(t)
	order, err := f.svc.RequestStock(context.Background(), f.requestParams())
	require.NoError(t, err)

	require.NoError(t, f.svc.Approve(context.Background(), f.wholesaler.ID, order.ID))

	var listing models.WholesalerProduct
	require.NoError(t, f.db.First(&listing, "id = ?", f.listing.ID).Error)
	assert.Equal(t, 80, listing.StockQuantity)

	var retailerListing models.RetailerProduct
	require.NoError(t, f.db.First(&retailerListing, "retailer_id = ? AND product_id = ?", f.retailer.ID, f.product.ID).Error)
	assert.Equal(t, 20, retailerListing.StockQuantity)
	assert.Equal(t, "425.00", retailerListing.Price.StringFixed(2))
	assert.True(t, retailerListing.IsAvailable)

	var updated models.Order
	require.NoError(t, f.db.First(&updated, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusConfirmed, updated.Status)
}

func TestApprove_ExistingListingKeepsPriceAndAddsStock(t *testing.T) {
	f := newFixture(t)
	existing := models.RetailerProduct{
		RetailerID:    f.retailer.ID,
		ProductID:     f.product.ID,
		Price:         decimal.RequireFromString("399.00"),
		StockQuantity: 7,
		IsAvailable:   false,
	}
	require.NoError(t, f.db.Create(&existing).Error)

	order, err := f.svc.RequestStock(context.Background(), f.requestParams())
	require.NoError(t, err)
	require.NoError(t, f.svc.Approve(context.Background(), f.wholesaler.ID, order.ID))

	var listing models.RetailerProduct
	require.NoError(t, f.db.First(&listing, "id = ?", existing.ID).Error)
	assert.Equal(t, 27, listing.StockQuantity)
	assert.Equal(t, "399.00", listing.Price.StringFixed(2), "existing price untouched")
	assert.True(t, listing.IsAvailable)
}

func TestApprove_InsufficientStockRollsBack(t *testing.T) {
	f := newFixture(t)
	order, err := f.svc.RequestStock(context.Background(), f.requestParams())
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&models.WholesalerProduct{}).
		Where("id = ?", f.listing.ID).
		UpdateColumn("stock_quantity", 10).Error)

	err = f.svc.Approve(context.Background(), f.wholesaler.ID, order.ID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))

	// order still pending, stock untouched, no retailer listing
	var updated models.Order
	require.NoError(t, f.db.First(&updated, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusPending, updated.Status)

	var listing models.WholesalerProduct
	require.NoError(t, f.db.First(&listing, "id = ?", f.listing.ID).Error)
	assert.Equal(t, 10, listing.StockQuantity)

	var retailerCount int64
	require.NoError(t, f.db.Model(&models.RetailerProduct{}).Count(&retailerCount).Error)
	assert.Zero(t, retailerCount)
}

func TestApprove_ContendingOrdersOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	first, err := f.svc.RequestStock(context.Background(), f.requestParams())
	require.NoError(t, err)
	second, err := f.svc.RequestStock(context.Background(), f.requestParams())
	require.NoError(t, err)

	// both pending orders claim 20 units; leave stock for only one of them
	require.NoError(t, f.db.Model(&models.WholesalerProduct{}).
		Where("id = ?", f.listing.ID).
		UpdateColumn("stock_quantity", 30).Error)

	require.NoError(t, f.svc.Approve(context.Background(), f.wholesaler.ID, first.ID))

	err = f.svc.Approve(context.Background(), f.wholesaler.ID, second.ID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))

	// exactly one decrement happened, never below zero
	var listing models.WholesalerProduct
	require.NoError(t, f.db.First(&listing, "id = ?", f.listing.ID).Error)
	assert.Equal(t, 10, listing.StockQuantity)

	var firstOrder, secondOrder models.Order
	require.NoError(t, f.db.First(&firstOrder, "id = ?", first.ID).Error)
	require.NoError(t, f.db.First(&secondOrder, "id = ?", second.ID).Error)
	assert.Equal(t, enums.OrderStatusConfirmed, firstOrder.Status)
	assert.Equal(t, enums.OrderStatusPending, secondOrder.Status)
}

func TestApprove_NonPendingOrderRejected(t *testing.T) {
	f := newFixture(t)
	order, err := f.svc.RequestStock(context.Background(), f.requestParams())
	require.NoError(t, err)
	require.NoError(t, f.svc.Approve(context.Background(), f.wholesaler.ID, order.ID))

	err = f.svc.Approve(context.Background(), f.wholesaler.ID, order.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestApprove_WrongWholesalerForbidden(t *testing.T) {
	f := newFixture(t)
	order, err := f.svc.RequestStock(context.Background(), f.requestParams())
	require.NoError(t, err)

	err = f.svc.Approve(context.Background(), uuid.New(), order.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}

func TestReject_CancelsWithReason(t *testing.T) {
	f := newFixture(t)
	order, err := f.svc.RequestStock(context.Background(), f.requestParams())
	require.NoError(t, err)
	f.sink.events = nil

	require.NoError(t, f.svc.Reject(context.Background(), f.wholesaler.ID, order.ID, "Out of season"))

	var updated models.Order
	require.NoError(t, f.db.First(&updated, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusCancelled, updated.Status)
	require.NotNil(t, updated.Notes)
	assert.Contains(t, *updated.Notes, "Desired retail price")
	assert.Contains(t, *updated.Notes, "Rejection reason: Out of season")

	require.Len(t, f.sink.events, 1)
	assert.Equal(t, enums.NotificationTypeOrderCancelled, f.sink.events[0].Type)
	assert.Equal(t, f.retailer.ID, f.sink.events[0].UserID)
	assert.Contains(t, f.sink.events[0].Message, "Out of season")
}

func TestReject_RequiresReason(t *testing.T) {
	f := newFixture(t)
	order, err := f.svc.RequestStock(context.Background(), f.requestParams())
	require.NoError(t, err)

	err = f.svc.Reject(context.Background(), f.wholesaler.ID, order.ID, "   ")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	var updated models.Order
	require.NoError(t, f.db.First(&updated, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusPending, updated.Status)
}

func TestParseResalePrice(t *testing.T) {
	note := "Desired retail price: ₹425.00"
	price := parseResalePrice(&note)
	require.NotNil(t, price)
	assert.Equal(t, "425.00", price.StringFixed(2))

	garbage := "something else"
	assert.Nil(t, parseResalePrice(&garbage))
	assert.Nil(t, parseResalePrice(nil))
}
