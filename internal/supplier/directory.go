package supplier

import (
	"errors"
	"strings"

	"cauntr-backend/internal/apperr"
	"cauntr-backend/internal/auth"
	"cauntr-backend/internal/models"

	"gorm.io/gorm"
)

// GetOrCreate resolves a supplier by name within the scope, creating it when a
// swap introduces an incoming product from a supplier we have never seen.
func GetOrCreate(tx *gorm.DB, sc auth.Scope, name, phone string) (*models.Supplier, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.KindMissingRequiredField, "supplier name is required")
	}

	var sup models.Supplier
	err := tx.Where("name = ? AND company_id = ? AND tenant_id = ?", name, sc.CompanyID, sc.TenantID).
		First(&sup).Error
	if err == nil {
		return &sup, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Internal(err)
	}

	sup = models.Supplier{
		TenantID:  sc.TenantID,
		CompanyID: sc.CompanyID,
		Name:      name,
		Phone:     strings.TrimSpace(phone),
	}
	if err := tx.Create(&sup).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return &sup, nil
}
