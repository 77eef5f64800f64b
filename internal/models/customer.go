package models

import "time"

type CustomerType string

const (
	CustomerTypeCustomer CustomerType = "CUSTOMER"
	CustomerTypeDebtor   CustomerType = "DEBTOR"
)

// Customer classification is derived: DEBTOR while any of the customer's
// payment plans has a nonzero balance on its latest payment, CUSTOMER otherwise.
type Customer struct {
	ID        uint `gorm:"primaryKey"`
	TenantID  uint `gorm:"index;not null"`
	CompanyID uint `gorm:"index;not null"`
	Name      string       `gorm:"size:100;not null"`
	Phone     string       `gorm:"size:50;index"`
	Email     string       `gorm:"size:100"`
	Type      CustomerType `gorm:"size:20;not null;default:CUSTOMER"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
