package models

import "time"

// Tenant is the top-level isolation boundary; every scoped query filters by TenantID.
type Tenant struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Companies []Company
}
