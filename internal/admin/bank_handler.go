package admin

import (
	"fmt"
	"strings"
	"time"

	"cauntr-backend/internal/audit"
	"cauntr-backend/internal/auth"
	"cauntr-backend/internal/config"
	"cauntr-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateBankAccountRequest struct {
	Name          string `json:"name" validate:"required"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
}

type UpdateBankAccountRequest struct {
	Name          *string `json:"name"`
	BankName      *string `json:"bank_name"`
	AccountNumber *string `json:"account_number"`
	IsActive      *bool   `json:"is_active"`
}

type BankAccountResponse struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	IsActive      bool   `json:"is_active"`
	CreatedAt     string `json:"created_at"`
}

func toBankAccountResponse(acc *models.BankAccount) BankAccountResponse {
	return BankAccountResponse{
		ID:            acc.ID,
		Name:          acc.Name,
		BankName:      acc.BankName,
		AccountNumber: acc.AccountNumber,
		IsActive:      acc.IsActive,
		CreatedAt:     acc.CreatedAt.Format(time.RFC3339),
	}
}

// POST /api/admin/bank-accounts
func CreateBankAccountHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromCtx(c)
		if err != nil {
			return err
		}

		var body CreateBankAccountRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := config.Validate(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		acc := models.BankAccount{
			TenantID:      sc.TenantID,
			CompanyID:     sc.CompanyID,
			Name:          strings.TrimSpace(body.Name),
			BankName:      strings.TrimSpace(body.BankName),
			AccountNumber: strings.TrimSpace(body.AccountNumber),
			IsActive:      true,
		}
		if err := db.Create(&acc).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create bank account")
		}

		_ = audit.WriteLog(db, audit.LogOptions{
			Scope:       sc,
			EntityType:  "bank_account",
			EntityID:    acc.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Bank account created: %s", acc.Name),
			After:       toBankAccountResponse(&acc),
		})

		return c.Status(fiber.StatusCreated).JSON(toBankAccountResponse(&acc))
	}
}

// GET /api/admin/bank-accounts
func ListBankAccountsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromCtx(c)
		if err != nil {
			return err
		}

		var accounts []models.BankAccount
		if err := db.Where("company_id = ? AND tenant_id = ?", sc.CompanyID, sc.TenantID).
			Order("name asc").
			Find(&accounts).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list bank accounts")
		}

		resp := make([]BankAccountResponse, 0, len(accounts))
		for i := range accounts {
			resp = append(resp, toBankAccountResponse(&accounts[i]))
		}
		return c.JSON(resp)
	}
}

// PUT /api/admin/bank-accounts/:id
func UpdateBankAccountHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromCtx(c)
		if err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid bank account id")
		}

		var acc models.BankAccount
		if err := db.Where("id = ? AND company_id = ? AND tenant_id = ?", id, sc.CompanyID, sc.TenantID).
			First(&acc).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Bank account not found")
		}

		var body UpdateBankAccountRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		before := toBankAccountResponse(&acc)
		updates := map[string]any{}
		if body.Name != nil {
			if strings.TrimSpace(*body.Name) == "" {
				return fiber.NewError(fiber.StatusBadRequest, "name cannot be empty")
			}
			updates["name"] = strings.TrimSpace(*body.Name)
		}
		if body.BankName != nil {
			updates["bank_name"] = strings.TrimSpace(*body.BankName)
		}
		if body.AccountNumber != nil {
			updates["account_number"] = strings.TrimSpace(*body.AccountNumber)
		}
		if body.IsActive != nil {
			updates["is_active"] = *body.IsActive
		}

		if len(updates) == 0 {
			return c.JSON(before)
		}

		if err := db.Model(&acc).Updates(updates).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update bank account")
		}

		_ = audit.WriteLog(db, audit.LogOptions{
			Scope:       sc,
			EntityType:  "bank_account",
			EntityID:    acc.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Bank account updated: %s", acc.Name),
			Before:      before,
			After:       toBankAccountResponse(&acc),
		})

		return c.JSON(toBankAccountResponse(&acc))
	}
}
