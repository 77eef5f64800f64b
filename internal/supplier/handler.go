package supplier

import (
	"fmt"
	"time"

	"cauntr-backend/internal/audit"
	"cauntr-backend/internal/auth"
	"cauntr-backend/internal/config"
	"cauntr-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateSupplierRequest struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type SupplierResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

func toSupplierResponse(sup *models.Supplier) SupplierResponse {
	return SupplierResponse{
		ID:        sup.ID,
		Name:      sup.Name,
		Phone:     sup.Phone,
		Email:     sup.Email,
		CreatedAt: sup.CreatedAt.Format(time.RFC3339),
	}
}

// POST /api/suppliers
func CreateSupplierHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromCtx(c)
		if err != nil {
			return err
		}

		var body CreateSupplierRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := config.Validate(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var sup *models.Supplier
		err = db.Transaction(func(tx *gorm.DB) error {
			var err error
			sup, err = GetOrCreate(tx, sc, body.Name, body.Phone)
			if err != nil {
				return err
			}
			if body.Email != "" {
				return tx.Model(sup).Update("email", body.Email).Error
			}
			return nil
		})
		if err != nil {
			return err
		}

		_ = audit.WriteLog(db, audit.LogOptions{
			Scope:       sc,
			EntityType:  "supplier",
			EntityID:    sup.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Supplier created: %s", sup.Name),
			After:       toSupplierResponse(sup),
		})

		return c.Status(fiber.StatusCreated).JSON(toSupplierResponse(sup))
	}
}

// GET /api/suppliers
func ListSuppliersHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromCtx(c)
		if err != nil {
			return err
		}

		var suppliers []models.Supplier
		if err := db.Where("company_id = ? AND tenant_id = ?", sc.CompanyID, sc.TenantID).
			Order("name asc").
			Find(&suppliers).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list suppliers")
		}

		resp := make([]SupplierResponse, 0, len(suppliers))
		for i := range suppliers {
			resp = append(resp, toSupplierResponse(&suppliers[i]))
		}
		return c.JSON(resp)
	}
}

// DELETE /api/suppliers/:id
//
// The supplier reference on products is weak: deleting a supplier nulls the
// field and never cascades into product rows.
func DeleteSupplierHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromCtx(c)
		if err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid supplier id")
		}

		var sup models.Supplier
		if err := db.Where("id = ? AND company_id = ? AND tenant_id = ?", id, sc.CompanyID, sc.TenantID).
			First(&sup).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Supplier not found")
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.Product{}).
				Where("supplier_id = ?", sup.ID).
				Update("supplier_id", nil).Error; err != nil {
				return err
			}
			return tx.Delete(&sup).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete supplier")
		}

		_ = audit.WriteLog(db, audit.LogOptions{
			Scope:       sc,
			EntityType:  "supplier",
			EntityID:    sup.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Supplier deleted: %s", sup.Name),
			Before:      toSupplierResponse(&sup),
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
