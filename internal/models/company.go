package models

import "time"

// Company is a business unit within a tenant. Invoice numbers are prefixed
// with the company's initials, so Name changes do not rewrite old invoices.
type Company struct {
	ID       uint   `gorm:"primaryKey"`
	TenantID uint   `gorm:"index;not null"`
	Tenant   Tenant
	Name     string `gorm:"size:100;not null"`
	Email    string `gorm:"size:100"`
	Phone    string `gorm:"size:50"`
	Address  string `gorm:"size:255"`

	// Toggled by the external billing integration. The orchestrator routes
	// are blocked while this is false.
	SubscriptionActive bool `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Users []User
}
