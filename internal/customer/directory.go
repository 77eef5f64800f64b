package customer

import (
	"errors"
	"strings"

	"cauntr-backend/internal/apperr"
	"cauntr-backend/internal/auth"
	"cauntr-backend/internal/models"

	"gorm.io/gorm"
)

// Upsert finds a customer by phone within the scope or creates one. The
// transaction engine never mutates customer fields beyond what is passed here.
func Upsert(tx *gorm.DB, sc auth.Scope, name, phone, email string) (*models.Customer, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	email = strings.TrimSpace(strings.ToLower(email))

	if name == "" {
		return nil, apperr.New(apperr.KindMissingRequiredField, "customer name is required")
	}

	var cust models.Customer
	if phone != "" {
		err := tx.Where("phone = ? AND company_id = ? AND tenant_id = ?", phone, sc.CompanyID, sc.TenantID).
			First(&cust).Error
		if err == nil {
			updates := map[string]any{"name": name}
			if email != "" {
				updates["email"] = email
			}
			if err := tx.Model(&cust).Updates(updates).Error; err != nil {
				return nil, apperr.Internal(err)
			}
			return &cust, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Internal(err)
		}
	}

	cust = models.Customer{
		TenantID:  sc.TenantID,
		CompanyID: sc.CompanyID,
		Name:      name,
		Phone:     phone,
		Email:     email,
		Type:      models.CustomerTypeCustomer,
	}
	if err := tx.Create(&cust).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return &cust, nil
}
