package models

import "time"

type InvoiceStatus string

const (
	InvoiceStatusDraft    InvoiceStatus = "DRAFT"
	InvoiceStatusPartPaid InvoiceStatus = "PART_PAID"
	InvoiceStatusPaid     InvoiceStatus = "PAID"
	InvoiceStatusOverdue  InvoiceStatus = "OVERDUE"
)

// Invoice is one-to-one with a Transaction. InvoiceNo is unique per tenant
// (format <CompanyInitials><YY>-<MM><NNNN>); the unique index is the last line
// of defense behind the sequence counter.
type Invoice struct {
	ID            uint   `gorm:"primaryKey"`
	TenantID      uint   `gorm:"uniqueIndex:idx_invoices_no_tenant;not null"`
	CompanyID     uint   `gorm:"index;not null"`
	TransactionID uint   `gorm:"uniqueIndex;not null"`
	Transaction   Transaction
	InvoiceNo     string        `gorm:"size:30;uniqueIndex:idx_invoices_no_tenant;not null"`
	Status        InvoiceStatus `gorm:"size:20;not null;default:DRAFT;index"`
	PaymentDate   time.Time     `gorm:"index"` // due date; the overdue sweep compares against this
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// InvoiceSequence is the per-(tenant, company, month) monotonic counter behind
// invoice number allocation. Incremented with a single guarded UPDATE so two
// concurrent allocations can never read the same value.
type InvoiceSequence struct {
	ID        uint `gorm:"primaryKey"`
	TenantID  uint `gorm:"uniqueIndex:idx_invoice_seq_scope;not null"`
	CompanyID uint `gorm:"uniqueIndex:idx_invoice_seq_scope;not null"`
	Year      int  `gorm:"uniqueIndex:idx_invoice_seq_scope;not null"`
	Month     int  `gorm:"uniqueIndex:idx_invoice_seq_scope;not null"`
	Counter   int  `gorm:"not null;default:0"` // numbers issued so far; the next sequence is Counter before increment
	CreatedAt time.Time
	UpdatedAt time.Time
}
