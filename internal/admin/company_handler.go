package admin

import (
	"strings"

	"cauntr-backend/internal/auth"
	"cauntr-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UpdateCompanyRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

// GET /api/admin/company
func GetCompanyHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromCtx(c)
		if err != nil {
			return err
		}

		var company models.Company
		if err := db.Where("id = ? AND tenant_id = ?", sc.CompanyID, sc.TenantID).
			First(&company).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Company not found")
		}

		return c.JSON(fiber.Map{
			"id":                  company.ID,
			"name":                company.Name,
			"email":               company.Email,
			"phone":               company.Phone,
			"address":             company.Address,
			"subscription_active": company.SubscriptionActive,
		})
	}
}

// PUT /api/admin/company
//
// Renaming a company changes the initials used for future invoice numbers;
// already issued numbers are never rewritten.
func UpdateCompanyHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromCtx(c)
		if err != nil {
			return err
		}

		var company models.Company
		if err := db.Where("id = ? AND tenant_id = ?", sc.CompanyID, sc.TenantID).
			First(&company).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Company not found")
		}

		var body UpdateCompanyRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		updates := map[string]any{}
		if body.Name != nil {
			if strings.TrimSpace(*body.Name) == "" {
				return fiber.NewError(fiber.StatusBadRequest, "name cannot be empty")
			}
			updates["name"] = strings.TrimSpace(*body.Name)
		}
		if body.Email != nil {
			updates["email"] = strings.TrimSpace(strings.ToLower(*body.Email))
		}
		if body.Phone != nil {
			updates["phone"] = strings.TrimSpace(*body.Phone)
		}
		if body.Address != nil {
			updates["address"] = strings.TrimSpace(*body.Address)
		}

		if len(updates) > 0 {
			if err := db.Model(&company).Updates(updates).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Could not update company")
			}
		}

		return c.JSON(fiber.Map{
			"id":      company.ID,
			"name":    company.Name,
			"email":   company.Email,
			"phone":   company.Phone,
			"address": company.Address,
		})
	}
}
