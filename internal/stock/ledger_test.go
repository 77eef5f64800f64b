package stock

import (
	"testing"

	"cauntr-backend/internal/apperr"
	"cauntr-backend/internal/auth"
	"cauntr-backend/internal/database"
	"cauntr-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) (*gorm.DB, auth.Scope) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A second pooled connection would see a different empty in-memory database.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	tenant := models.Tenant{Name: "Test Tenant"}
	require.NoError(t, db.Create(&tenant).Error)
	company := models.Company{TenantID: tenant.ID, Name: "Tech Hub", SubscriptionActive: true}
	require.NoError(t, db.Create(&company).Error)
	user := models.User{
		TenantID: tenant.ID, CompanyID: company.ID,
		Name: "Owner", Email: "owner@techhub.test",
		PasswordHash: "x", Role: models.RoleAdmin,
	}
	require.NoError(t, db.Create(&user).Error)

	return db, auth.Scope{TenantID: tenant.ID, CompanyID: company.ID, UserID: user.ID}
}

func seedProduct(t *testing.T, db *gorm.DB, sc auth.Scope, sku string, qty int) models.Product {
	t.Helper()
	p := models.Product{
		TenantID: sc.TenantID, CompanyID: sc.CompanyID,
		SKU: sku, Name: "Product " + sku,
		Quantity:     qty,
		SellingPrice: decimal.NewFromInt(100),
		CostPrice:    decimal.NewFromInt(60),
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestAdjustDecrementsAndIncrements(t *testing.T) {
	db, sc := openTestDB(t)
	seedProduct(t, db, sc, "PHN-1", 10)

	p, err := Adjust(db, sc, "PHN-1", -3)
	require.NoError(t, err)
	assert.Equal(t, 7, p.Quantity)

	p, err = Adjust(db, sc, "PHN-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 12, p.Quantity)
}

func TestAdjustUnknownSKU(t *testing.T) {
	db, sc := openTestDB(t)

	_, err := Adjust(db, sc, "NOPE", -1)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestAdjustRejectsOverdraw(t *testing.T) {
	db, sc := openTestDB(t)
	seedProduct(t, db, sc, "PHN-1", 2)

	_, err := Adjust(db, sc, "PHN-1", -3)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInsufficientStock))

	var p models.Product
	require.NoError(t, db.Where("sku = ?", "PHN-1").First(&p).Error)
	assert.Equal(t, 2, p.Quantity, "rejected adjustment must leave the quantity untouched")
}

func TestAdjustIsScopedToCompany(t *testing.T) {
	db, sc := openTestDB(t)
	seedProduct(t, db, sc, "PHN-1", 10)

	other := sc
	other.CompanyID = sc.CompanyID + 99
	_, err := Adjust(db, other, "PHN-1", -1)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestAdjustManyBatch(t *testing.T) {
	db, sc := openTestDB(t)
	seedProduct(t, db, sc, "PHN-1", 10)
	seedProduct(t, db, sc, "ACC-1", 4)

	updated, err := AdjustMany(db, sc, []Delta{
		{SKU: "PHN-1", Delta: -2},
		{SKU: "ACC-1", Delta: -4},
		{SKU: "PHN-1", Delta: -1},
	})
	require.NoError(t, err)
	require.Len(t, updated, 2)

	byName := map[string]int{}
	for _, p := range updated {
		byName[p.SKU] = p.Quantity
	}
	assert.Equal(t, 7, byName["PHN-1"], "deltas for the same SKU aggregate")
	assert.Equal(t, 0, byName["ACC-1"])
}

func TestAdjustManyRejectsWholeBatch(t *testing.T) {
	db, sc := openTestDB(t)
	seedProduct(t, db, sc, "PHN-1", 10)
	seedProduct(t, db, sc, "ACC-1", 1)

	_, err := AdjustMany(db, sc, []Delta{
		{SKU: "PHN-1", Delta: -2},
		{SKU: "ACC-1", Delta: -2},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInsufficientStock))

	var p models.Product
	require.NoError(t, db.Where("sku = ?", "PHN-1").First(&p).Error)
	assert.Equal(t, 10, p.Quantity, "a failing line rejects every line")
}

func TestAdjustManyEmpty(t *testing.T) {
	db, sc := openTestDB(t)

	_, err := AdjustMany(db, sc, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindMissingRequiredField))
}
