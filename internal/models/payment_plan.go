package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentFrequency string

const (
	FrequencyOneTime PaymentFrequency = "ONE_TIME"
	FrequencyWeekly  PaymentFrequency = "WEEKLY"
	FrequencyMonthly PaymentFrequency = "MONTHLY"
)

type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "CASH"
	PaymentMethodBank PaymentMethod = "BANK"
	PaymentMethodCard PaymentMethod = "CARD"
)

// PaymentPlan is one-to-one with a Transaction. It is mutated only by
// appending a Payment and updating InstallmentCount/CustomerType together.
// There is no stored current balance: the latest Payment's BalanceOwed is
// authoritative (see payment.CurrentBalance).
type PaymentPlan struct {
	ID            uint `gorm:"primaryKey"`
	TenantID      uint `gorm:"index;not null"`
	CompanyID     uint `gorm:"index;not null"`
	TransactionID uint `gorm:"uniqueIndex;not null"`
	Transaction   Transaction
	CustomerID    *uint `gorm:"index"`
	Customer      *Customer

	InstallmentCount int              `gorm:"not null;default:1"` // incremented on each partial payment
	Frequency        PaymentFrequency `gorm:"size:20;not null;default:ONE_TIME"`
	CustomerType     CustomerType     `gorm:"size:20;not null"` // CUSTOMER when settled, DEBTOR while owing

	Payments []Payment `gorm:"foreignKey:PaymentPlanID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Payment is one append-only entry per money movement against a plan.
type Payment struct {
	ID            uint `gorm:"primaryKey"`
	TenantID      uint `gorm:"index;not null"`
	CompanyID     uint `gorm:"index;not null"`
	PaymentPlanID uint `gorm:"index;not null"`

	TotalAmount decimal.Decimal `gorm:"type:decimal(20,4);not null"` // invoiced total at the time of this payment
	BalanceOwed decimal.Decimal `gorm:"type:decimal(20,4);not null"` // remaining after this payment, never negative
	BalancePaid decimal.Decimal `gorm:"type:decimal(20,4);not null"` // this payment's amount
	TotalPay    decimal.Decimal `gorm:"type:decimal(20,4);not null"` // cumulative paid to date
	VAT         decimal.Decimal `gorm:"column:vat;type:decimal(20,4);default:0"`

	Method        PaymentMethod `gorm:"size:20;not null"`
	BankAccountID *uint         `gorm:"index"`
	BankAccount   *BankAccount

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}
