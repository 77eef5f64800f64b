package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product quantity is only ever mutated through signed deltas (see the stock
// ledger); it is set to an absolute value exactly once, on creation.
type Product struct {
	ID        uint   `gorm:"primaryKey"`
	TenantID  uint   `gorm:"uniqueIndex:idx_products_sku_scope;not null"`
	CompanyID uint   `gorm:"uniqueIndex:idx_products_sku_scope;not null"`
	SKU       string `gorm:"column:sku;size:50;uniqueIndex:idx_products_sku_scope;not null"`
	Name      string `gorm:"size:100;not null"`

	Quantity     int             `gorm:"not null;default:0"` // never negative after a committed unit of work
	SellingPrice decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	CostPrice    decimal.Decimal `gorm:"type:decimal(20,4);default:0"`

	// Weak reference: deleting the supplier nulls this, never the product.
	SupplierID *uint `gorm:"index"`
	Supplier   *Supplier

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"` // products referenced by transactions are soft-deleted only
}
