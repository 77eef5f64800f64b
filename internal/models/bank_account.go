package models

import "time"

// BankAccount is referenced by payments made with method BANK.
type BankAccount struct {
	ID            uint `gorm:"primaryKey"`
	TenantID      uint `gorm:"index;not null"`
	CompanyID     uint `gorm:"index;not null"`
	Name          string `gorm:"size:100;not null"` // account label, e.g. "GTBank Main"
	BankName      string `gorm:"size:100"`
	AccountNumber string `gorm:"size:50"`
	IsActive      bool   `gorm:"default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
