package products

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

func setupProductsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Product{},
		&models.RetailerProduct{},
		&models.WholesalerProduct{},
	))
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, name, category string) models.Product {
	t.Helper()
	product := models.Product{
		Name:      name,
		Category:  category,
		BasePrice: decimal.RequireFromString("100.00"),
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func TestListCatalog_FiltersByCategory(t *testing.T) {
	db := setupProductsTestDB(t)
	seedProduct(t, db, "Basmati Rice", "grains")
	seedProduct(t, db, "Toor Dal", "pulses")
	seedProduct(t, db, "Brown Rice", "grains")

	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	page, err := svc.ListCatalog(context.Background(), QueryParams{Category: "grains"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	for _, item := range page.Items {
		assert.Equal(t, "grains", item.Category)
	}
}

func TestListCatalog_SearchMatchesName(t *testing.T) {
	db := setupProductsTestDB(t)
	seedProduct(t, db, "Basmati Rice", "grains")
	seedProduct(t, db, "Toor Dal", "pulses")

	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	page, err := svc.ListCatalog(context.Background(), QueryParams{Search: "Rice"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Basmati Rice", page.Items[0].Name)
}

func TestListCatalog_RejectsBadCursor(t *testing.T) {
	db := setupProductsTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	_, err = svc.ListCatalog(context.Background(), QueryParams{Cursor: "not-a-cursor"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestGetProduct_ReturnsLiveOffersOnly(t *testing.T) {
	db := setupProductsTestDB(t)
	product := seedProduct(t, db, "Basmati Rice", "grains")

	require.NoError(t, db.Create(&models.RetailerProduct{
		RetailerID:    uuid.New(),
		ProductID:     product.ID,
		Price:         decimal.RequireFromString("425.00"),
		StockQuantity: 20,
		IsAvailable:   true,
	}).Error)
	// out of stock, must not appear
	require.NoError(t, db.Create(&models.RetailerProduct{
		RetailerID:    uuid.New(),
		ProductID:     product.ID,
		Price:         decimal.RequireFromString("399.00"),
		StockQuantity: 0,
		IsAvailable:   true,
	}).Error)
	require.NoError(t, db.Create(&models.WholesalerProduct{
		WholesalerID:         uuid.New(),
		ProductID:            product.ID,
		Price:                decimal.RequireFromString("350.00"),
		StockQuantity:        100,
		MinimumOrderQuantity: 10,
		IsAvailable:          true,
	}).Error)

	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	detail, err := svc.GetProduct(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, product.Name, detail.Product.Name)
	require.Len(t, detail.RetailerOffers, 1)
	assert.True(t, detail.RetailerOffers[0].Price.Equal(decimal.RequireFromString("425.00")))
	require.Len(t, detail.WholesalerOffers, 1)
}

func TestGetProduct_NotFound(t *testing.T) {
	db := setupProductsTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	_, err = svc.GetProduct(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestInventories_ScopedToSeller(t *testing.T) {
	db := setupProductsTestDB(t)
	product := seedProduct(t, db, "Basmati Rice", "grains")
	retailerID := uuid.New()
	wholesalerID := uuid.New()

	require.NoError(t, db.Create(&models.RetailerProduct{
		RetailerID:    retailerID,
		ProductID:     product.ID,
		Price:         decimal.RequireFromString("425.00"),
		StockQuantity: 20,
		IsAvailable:   true,
	}).Error)
	require.NoError(t, db.Create(&models.WholesalerProduct{
		WholesalerID:         wholesalerID,
		ProductID:            product.ID,
		Price:                decimal.RequireFromString("350.00"),
		StockQuantity:        100,
		MinimumOrderQuantity: 10,
		IsAvailable:          true,
	}).Error)

	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	retail, err := svc.RetailerInventory(context.Background(), retailerID)
	require.NoError(t, err)
	assert.Len(t, retail, 1)

	wholesale, err := svc.WholesalerInventory(context.Background(), wholesalerID)
	require.NoError(t, err)
	assert.Len(t, wholesale, 1)

	other, err := svc.RetailerInventory(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, other)
}
