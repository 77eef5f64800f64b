package invoice

import (
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"cauntr-backend/internal/auth"
	"cauntr-backend/internal/database"
	"cauntr-backend/internal/models"

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

func TestNextFormatsFromCompanyInitials(t *testing.T) {
	db, sc := openTestDB(t)
	at := time.Date(2026, time.August, 15, 10, 0, 0, 0, time.UTC)

	no, err := Next(db, sc, "Tech Hub", at)
	require.NoError(t, err)
	assert.Equal(t, "TH26-080000", no)
}

func TestNextIncrements(t *testing.T) {
	db, sc := openTestDB(t)
	at := time.Date(2026, time.August, 15, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		no, err := Next(db, sc, "Tech Hub", at)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("TH26-08%04d", i), no)
	}
}

func TestNextResetsEachMonth(t *testing.T) {
	db, sc := openTestDB(t)

	aug := time.Date(2026, time.August, 31, 23, 0, 0, 0, time.UTC)
	sep := time.Date(2026, time.September, 1, 0, 30, 0, 0, time.UTC)

	no, err := Next(db, sc, "Tech Hub", aug)
	require.NoError(t, err)
	assert.Equal(t, "TH26-080000", no)

	no, err = Next(db, sc, "Tech Hub", sep)
	require.NoError(t, err)
	assert.Equal(t, "TH26-090000", no, "a new month starts its own sequence at zero")

	no, err = Next(db, sc, "Tech Hub", aug)
	require.NoError(t, err)
	assert.Equal(t, "TH26-080001", no, "the old month's counter keeps going")
}

func TestNextSeedsFromExistingInvoices(t *testing.T) {
	db, sc := openTestDB(t)
	at := time.Date(2026, time.August, 15, 10, 0, 0, 0, time.UTC)

	// Invoices issued before the counter row existed.
	for i, no := range []string{"TH26-080000", "TH26-080001", "TH26-080002"} {
		inv := models.Invoice{
			TenantID:      sc.TenantID,
			CompanyID:     sc.CompanyID,
			TransactionID: uint(i + 1),
			InvoiceNo:     no,
			Status:        models.InvoiceStatusPaid,
			PaymentDate:   at,
		}
		require.NoError(t, db.Create(&inv).Error)
	}

	no, err := Next(db, sc, "Tech Hub", at)
	require.NoError(t, err)
	assert.Equal(t, "TH26-080003", no, "the seed continues after the greatest issued number")
}

func TestNextIsScopedPerCompany(t *testing.T) {
	db, sc := openTestDB(t)
	other := models.Company{TenantID: sc.TenantID, Name: "Gadget World", SubscriptionActive: true}
	require.NoError(t, db.Create(&other).Error)
	otherScope := auth.Scope{TenantID: sc.TenantID, CompanyID: other.ID}

	at := time.Date(2026, time.August, 15, 10, 0, 0, 0, time.UTC)

	no, err := Next(db, sc, "Tech Hub", at)
	require.NoError(t, err)
	assert.Equal(t, "TH26-080000", no)

	no, err = Next(db, otherScope, "Gadget World", at)
	require.NoError(t, err)
	assert.Equal(t, "GW26-080000", no, "companies do not share counters")
}

func TestNextConcurrentAllocationsAreDistinct(t *testing.T) {
	db, sc := openTestDB(t)
	at := time.Date(2026, time.August, 15, 10, 0, 0, 0, time.UTC)

	// Prime the counter row so every goroutine takes the fast UPDATE path.
	_, err := Next(db, sc, "Tech Hub", at)
	require.NoError(t, err)

	const n = 24
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		numbers []string
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Transaction(func(tx *gorm.DB) error {
				no, err := Next(tx, sc, "Tech Hub", at)
				if err != nil {
					return err
				}
				mu.Lock()
				numbers = append(numbers, no)
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Len(t, numbers, n)
	sort.Strings(numbers)
	for i := 0; i < n; i++ {
		assert.Equal(t, fmt.Sprintf("TH26-08%04d", i+1), numbers[i], "no duplicates, no gaps")
	}
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "TH", initials("Tech Hub"))
	assert.Equal(t, "THL", initials("Tech Hub Ltd"))
	assert.Equal(t, "INV", initials(""))
	assert.Equal(t, "INV", initials("---"))
}

func TestMarkOverdue(t *testing.T) {
	db, sc := openTestDB(t)
	now := time.Date(2026, time.August, 28, 12, 0, 0, 0, time.UTC)

	mk := func(txID uint, status models.InvoiceStatus, due time.Time) uint {
		inv := models.Invoice{
			TenantID:      sc.TenantID,
			CompanyID:     sc.CompanyID,
			TransactionID: txID,
			InvoiceNo:     fmt.Sprintf("TH26-08%04d", txID),
			Status:        status,
			PaymentDate:   due,
		}
		require.NoError(t, db.Create(&inv).Error)
		return inv.ID
	}

	past := now.AddDate(0, 0, -5)
	future := now.AddDate(0, 0, 5)

	lateDraft := mk(1, models.InvoiceStatusDraft, past)
	latePartPaid := mk(2, models.InvoiceStatusPartPaid, past)
	latePaid := mk(3, models.InvoiceStatusPaid, past)
	onTime := mk(4, models.InvoiceStatusPartPaid, future)

	flipped, err := MarkOverdue(db, now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, flipped)

	status := func(id uint) models.InvoiceStatus {
		var inv models.Invoice
		require.NoError(t, db.First(&inv, id).Error)
		return inv.Status
	}
	assert.Equal(t, models.InvoiceStatusOverdue, status(lateDraft))
	assert.Equal(t, models.InvoiceStatusOverdue, status(latePartPaid))
	assert.Equal(t, models.InvoiceStatusPaid, status(latePaid), "settled invoices never go overdue")
	assert.Equal(t, models.InvoiceStatusPartPaid, status(onTime))
}
