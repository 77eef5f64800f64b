package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeSale     TransactionType = "SALE"
	TransactionTypeBulkSale TransactionType = "BULK_SALE"
	TransactionTypeSwap     TransactionType = "SWAP"
	TransactionTypeBuyback  TransactionType = "BUYBACK"
)

type ItemDirection string

const (
	// ItemDirectionDebit: stock decreases, revenue comes in.
	ItemDirectionDebit ItemDirection = "DEBIT"
	// ItemDirectionCredit: stock increases, value goes out (swap-in, buyback).
	ItemDirectionCredit ItemDirection = "CREDIT"
)

// Transaction rows are immutable once created. The only sanctioned rewrite is
// the explicit price-correction path on a TransactionItem.
type Transaction struct {
	ID          uint            `gorm:"primaryKey"`
	TenantID    uint            `gorm:"index;not null"`
	CompanyID   uint            `gorm:"index;not null"`
	Type        TransactionType `gorm:"size:20;not null;index"`
	CreatedByID uint            `gorm:"not null"`
	CreatedBy   User            `gorm:"foreignKey:CreatedByID"`
	CustomerID  *uint           `gorm:"index"`
	Customer    *Customer
	Items       []TransactionItem `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time         `gorm:"index"`
	UpdatedAt   time.Time
}

type TransactionItem struct {
	ID            uint `gorm:"primaryKey"`
	TenantID      uint `gorm:"index;not null"`
	CompanyID     uint `gorm:"index;not null"`
	TransactionID uint `gorm:"index;not null"`
	ProductID     uint `gorm:"index;not null"`
	Product       Product

	Quantity     int             `gorm:"not null"`
	PricePerUnit decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	TotalPrice   decimal.Decimal `gorm:"type:decimal(20,4);not null"` // always Quantity * PricePerUnit
	Direction    ItemDirection   `gorm:"size:10;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
