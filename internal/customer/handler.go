package customer

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

type UpsertCustomerRequest struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type CustomerResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
}

func toCustomerResponse(cust *models.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        cust.ID,
		Name:      cust.Name,
		Phone:     cust.Phone,
		Email:     cust.Email,
		Type:      string(cust.Type),
		CreatedAt: cust.CreatedAt.Format(time.RFC3339),
	}
}

// POST /api/customers
func UpsertCustomerHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromCtx(c)
		if err != nil {
			return err
		}

		var body UpsertCustomerRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := config.Validate(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var cust *models.Customer
		err = db.Transaction(func(tx *gorm.DB) error {
			var err error
			cust, err = Upsert(tx, sc, body.Name, body.Phone, body.Email)
			return err
		})
		if err != nil {
			return err
		}

		_ = audit.WriteLog(db, audit.LogOptions{
			Scope:       sc,
			EntityType:  "customer",
			EntityID:    cust.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Customer upserted: %s", cust.Name),
			After:       toCustomerResponse(cust),
		})

		return c.Status(fiber.StatusCreated).JSON(toCustomerResponse(cust))
	}
}

// GET /api/customers?type=DEBTOR
func ListCustomersHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromCtx(c)
		if err != nil {
			return err
		}

		q := db.Where("company_id = ? AND tenant_id = ?", sc.CompanyID, sc.TenantID)
		if ctype := c.Query("type"); ctype != "" {
			if ctype != string(models.CustomerTypeCustomer) && ctype != string(models.CustomerTypeDebtor) {
				return fiber.NewError(fiber.StatusBadRequest, "type must be CUSTOMER or DEBTOR")
			}
			q = q.Where("type = ?", ctype)
		}

		var customers []models.Customer
		if err := q.Order("name asc").Find(&customers).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list customers")
		}

		resp := make([]CustomerResponse, 0, len(customers))
		for i := range customers {
			resp = append(resp, toCustomerResponse(&customers[i]))
		}
		return c.JSON(resp)
	}
}

// GET /api/customers/:id
func GetCustomerHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromCtx(c)
		if err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid customer id")
		}

		var cust models.Customer
		if err := db.Where("id = ? AND company_id = ? AND tenant_id = ?", id, sc.CompanyID, sc.TenantID).
			First(&cust).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Customer not found")
		}

		return c.JSON(toCustomerResponse(&cust))
	}
}
