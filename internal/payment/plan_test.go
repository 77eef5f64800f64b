package payment

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
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	tenant := models.Tenant{Name: "Test Tenant"}
	require.NoError(t, db.Create(&tenant).Error)
	company := models.Company{TenantID: tenant.ID, Name: "Tech Hub", SubscriptionActive: true}
	require.NoError(t, db.Create(&company).Error)

	return db, auth.Scope{TenantID: tenant.ID, CompanyID: company.ID, UserID: 1}
}

func openPlan(t *testing.T, db *gorm.DB, sc auth.Scope, txID uint, total, owed int64) *models.PaymentPlan {
	t.Helper()
	plan, err := Open(db, sc, OpenOptions{
		TransactionID: txID,
		TotalAmount:   decimal.NewFromInt(total),
		BalanceOwed:   decimal.NewFromInt(owed),
		Method:        models.PaymentMethodCash,
	})
	require.NoError(t, err)
	return plan
}

func TestOpenSettledPlan(t *testing.T) {
	db, sc := openTestDB(t)

	plan := openPlan(t, db, sc, 1, 500, 0)

	assert.Equal(t, 1, plan.InstallmentCount)
	assert.Equal(t, models.CustomerTypeCustomer, plan.CustomerType)
	require.Len(t, plan.Payments, 1)
	assert.True(t, plan.Payments[0].BalanceOwed.IsZero())
	assert.True(t, plan.Payments[0].BalancePaid.Equal(decimal.NewFromInt(500)))

	balance, err := CurrentBalance(db, plan.ID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestOpenPartPaidPlanIsDebtor(t *testing.T) {
	db, sc := openTestDB(t)

	plan := openPlan(t, db, sc, 1, 500, 200)

	assert.Equal(t, models.CustomerTypeDebtor, plan.CustomerType)
	balance, err := CurrentBalance(db, plan.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(200)))
}

func TestOpenRejectsOwedBeyondTotal(t *testing.T) {
	db, sc := openTestDB(t)

	_, err := Open(db, sc, OpenOptions{
		TransactionID: 1,
		TotalAmount:   decimal.NewFromInt(100),
		BalanceOwed:   decimal.NewFromInt(150),
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindMissingRequiredField))
}

func TestRecordPaymentReducesBalance(t *testing.T) {
	db, sc := openTestDB(t)
	plan := openPlan(t, db, sc, 1, 500, 200)

	updated, err := RecordPayment(db, sc, plan.ID, decimal.NewFromInt(50), models.PaymentMethodCash, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, updated.InstallmentCount)
	assert.Equal(t, models.CustomerTypeDebtor, updated.CustomerType)

	balance, err := CurrentBalance(db, plan.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(150)))
}

func TestRecordPaymentSettlesPlan(t *testing.T) {
	db, sc := openTestDB(t)
	plan := openPlan(t, db, sc, 1, 500, 200)

	updated, err := RecordPayment(db, sc, plan.ID, decimal.NewFromInt(200), models.PaymentMethodBank, nil)
	require.NoError(t, err)

	assert.Equal(t, models.CustomerTypeCustomer, updated.CustomerType, "settling flips the plan back to customer")

	balance, err := CurrentBalance(db, plan.ID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestRecordPaymentRejectsOverpayment(t *testing.T) {
	db, sc := openTestDB(t)
	plan := openPlan(t, db, sc, 1, 500, 200)

	_, err := RecordPayment(db, sc, plan.ID, decimal.NewFromInt(250), models.PaymentMethodCash, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindOverpayment))

	// Nothing about the plan changed.
	var reloaded models.PaymentPlan
	require.NoError(t, db.First(&reloaded, plan.ID).Error)
	assert.Equal(t, 1, reloaded.InstallmentCount)

	balance, err := CurrentBalance(db, plan.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(200)))
}

func TestRecordPaymentRejectsSettledPlan(t *testing.T) {
	db, sc := openTestDB(t)
	plan := openPlan(t, db, sc, 1, 500, 0)

	_, err := RecordPayment(db, sc, plan.ID, decimal.NewFromInt(10), models.PaymentMethodCash, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNoOutstandingBalance))
}

func TestRecordPaymentUnknownPlan(t *testing.T) {
	db, sc := openTestDB(t)

	_, err := RecordPayment(db, sc, 999, decimal.NewFromInt(10), models.PaymentMethodCash, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func seedItem(t *testing.T, db *gorm.DB, sc auth.Scope, qty int, unitPrice int64) *models.TransactionItem {
	t.Helper()
	unit := decimal.NewFromInt(unitPrice)
	trans := models.Transaction{
		TenantID:    sc.TenantID,
		CompanyID:   sc.CompanyID,
		Type:        models.TransactionTypeSale,
		CreatedByID: sc.UserID,
		Items: []models.TransactionItem{{
			TenantID:     sc.TenantID,
			CompanyID:    sc.CompanyID,
			ProductID:    1,
			Quantity:     qty,
			PricePerUnit: unit,
			TotalPrice:   unit.Mul(decimal.NewFromInt(int64(qty))),
			Direction:    models.ItemDirectionDebit,
		}},
	}
	require.NoError(t, db.Create(&trans).Error)
	return &trans.Items[0]
}

func TestCorrectPriceRewritesItemAndPayment(t *testing.T) {
	db, sc := openTestDB(t)

	item := seedItem(t, db, sc, 2, 250) // total 500
	openPlan(t, db, sc, item.TransactionID, 500, 0)

	corrected, err := CorrectPrice(db, sc, item.ID, decimal.NewFromInt(450))
	require.NoError(t, err)

	assert.True(t, corrected.TotalPrice.Equal(decimal.NewFromInt(450)))
	assert.True(t, corrected.PricePerUnit.Equal(decimal.NewFromInt(225)), "unit price moves with the total")

	var p models.Payment
	require.NoError(t, db.Order("id DESC").First(&p).Error)
	assert.True(t, p.TotalAmount.Equal(decimal.NewFromInt(450)), "the latest payment absorbs the exact delta")
	assert.True(t, p.BalanceOwed.IsZero(), "a correction never reopens a settled balance")
}

func TestCorrectPriceRejectsOutstandingBalance(t *testing.T) {
	db, sc := openTestDB(t)

	item := seedItem(t, db, sc, 2, 250)
	openPlan(t, db, sc, item.TransactionID, 500, 100)

	_, err := CorrectPrice(db, sc, item.ID, decimal.NewFromInt(450))
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindOutstandingBalance))

	var reloaded models.TransactionItem
	require.NoError(t, db.First(&reloaded, item.ID).Error)
	assert.True(t, reloaded.TotalPrice.Equal(decimal.NewFromInt(500)))
}

func TestReclassifyCustomer(t *testing.T) {
	db, sc := openTestDB(t)

	cust := models.Customer{
		TenantID: sc.TenantID, CompanyID: sc.CompanyID,
		Name: "Ada", Type: models.CustomerTypeCustomer,
	}
	require.NoError(t, db.Create(&cust).Error)

	plan, err := Open(db, sc, OpenOptions{
		TransactionID: 1,
		CustomerID:    &cust.ID,
		TotalAmount:   decimal.NewFromInt(300),
		BalanceOwed:   decimal.NewFromInt(300),
	})
	require.NoError(t, err)

	require.NoError(t, ReclassifyCustomer(db, sc, cust.ID))
	require.NoError(t, db.First(&cust, cust.ID).Error)
	assert.Equal(t, models.CustomerTypeDebtor, cust.Type)

	_, err = RecordPayment(db, sc, plan.ID, decimal.NewFromInt(300), models.PaymentMethodCash, nil)
	require.NoError(t, err)

	require.NoError(t, ReclassifyCustomer(db, sc, cust.ID))
	require.NoError(t, db.First(&cust, cust.ID).Error)
	assert.Equal(t, models.CustomerTypeCustomer, cust.Type)
}
