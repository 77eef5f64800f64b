package database

import (
	"cauntr-backend/internal/config"
	"cauntr-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open connects and migrates. The handle is passed down to handlers and the
// transaction engine; nothing in this codebase imports a global connection.
func Open(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		TranslateError: true, // surfaces gorm.ErrDuplicatedKey across drivers
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate runs AutoMigrate for every model. Shared with the test databases.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Tenant{},
		&models.Company{},
		&models.User{},
		&models.Customer{},
		&models.Supplier{},
		&models.BankAccount{},
		&models.Product{},
		&models.Transaction{},
		&models.TransactionItem{},
		&models.PaymentPlan{},
		&models.Payment{},
		&models.Invoice{},
		&models.InvoiceSequence{},
		&models.AuditLog{},
	)
}
