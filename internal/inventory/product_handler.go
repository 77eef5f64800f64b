package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cauntr-backend/internal/audit"
	"cauntr-backend/internal/auth"
	"cauntr-backend/internal/config"
	"cauntr-backend/internal/models"
	"cauntr-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// -------------------------
// Request/Response Types
// -------------------------

type CreateProductRequest struct {
	SKU          string          `json:"sku" validate:"required"`
	Name         string          `json:"name" validate:"required"`
	Quantity     int             `json:"quantity" validate:"min=0"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SupplierID   *uint           `json:"supplier_id"`
}

type UpdateProductRequest struct {
	Name         *string          `json:"name"`
	SellingPrice *decimal.Decimal `json:"selling_price"`
	CostPrice    *decimal.Decimal `json:"cost_price"`
	SupplierID   *uint            `json:"supplier_id"`
}

type RestockRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

type ProductResponse struct {
	ID           uint            `json:"id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SupplierID   *uint           `json:"supplier_id,omitempty"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
}

func toProductResponse(p *models.Product) ProductResponse {
	return ProductResponse{
		ID:           p.ID,
		SKU:          p.SKU,
		Name:         p.Name,
		Quantity:     p.Quantity,
		SellingPrice: p.SellingPrice,
		CostPrice:    p.CostPrice,
		SupplierID:   p.SupplierID,
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    p.UpdatedAt.Format(time.RFC3339),
	}
}

func userName(db *gorm.DB, userID uint) string {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return ""
	}
	return user.Name
}

// -------------------------
// Product CRUD
// -------------------------

// POST /api/products
func CreateProductHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromCtx(c)
		if err != nil {
			return err
		}

		var body CreateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := config.Validate(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if body.SupplierID != nil {
			var count int64
			db.Model(&models.Supplier{}).
				Where("id = ? AND company_id = ? AND tenant_id = ?", *body.SupplierID, sc.CompanyID, sc.TenantID).
				Count(&count)
			if count == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Supplier not found")
			}
		}

		product := models.Product{
			TenantID:     sc.TenantID,
			CompanyID:    sc.CompanyID,
			SKU:          strings.TrimSpace(body.SKU),
			Name:         strings.TrimSpace(body.Name),
			Quantity:     body.Quantity, // absolute value allowed only here, on creation
			SellingPrice: body.SellingPrice,
			CostPrice:    body.CostPrice,
			SupplierID:   body.SupplierID,
		}

		if err := db.Create(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fiber.NewError(fiber.StatusConflict, "A product with this SKU already exists")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create product")
		}

		_ = audit.WriteLog(db, audit.LogOptions{
			Scope:       sc,
			UserName:    userName(db, sc.UserID),
			EntityType:  "product",
			EntityID:    product.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Product created: %s (%s)", product.Name, product.SKU),
			After:       toProductResponse(&product),
		})

		return c.Status(fiber.StatusCreated).JSON(toProductResponse(&product))
	}
}

// GET /api/products?sku=...
func ListProductsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromCtx(c)
		if err != nil {
			return err
		}

		q := db.Where("company_id = ? AND tenant_id = ?", sc.CompanyID, sc.TenantID)
		if sku := c.Query("sku"); sku != "" {
			q = q.Where("sku = ?", sku)
		}

		var products []models.Product
		if err := q.Order("name asc").Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list products")
		}

		resp := make([]ProductResponse, 0, len(products))
		for i := range products {
			resp = append(resp, toProductResponse(&products[i]))
		}
		return c.JSON(resp)
	}
}

// PUT /api/products/:id
func UpdateProductHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromCtx(c)
		if err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid product id")
		}

		var product models.Product
		if err := db.Where("id = ? AND company_id = ? AND tenant_id = ?", id, sc.CompanyID, sc.TenantID).
			First(&product).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Product not found")
		}

		var body UpdateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		before := toProductResponse(&product)
		updates := map[string]any{}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "name cannot be empty")
			}
			updates["name"] = name
		}
		if body.SellingPrice != nil {
			updates["selling_price"] = *body.SellingPrice
		}
		if body.CostPrice != nil {
			updates["cost_price"] = *body.CostPrice
		}
		if body.SupplierID != nil {
			var count int64
			db.Model(&models.Supplier{}).
				Where("id = ? AND company_id = ? AND tenant_id = ?", *body.SupplierID, sc.CompanyID, sc.TenantID).
				Count(&count)
			if count == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Supplier not found")
			}
			updates["supplier_id"] = *body.SupplierID
		}

		// Quantity is deliberately not updatable here; it only moves through
		// stock deltas (restock, sale, swap, buyback).
		if len(updates) == 0 {
			return c.JSON(before)
		}

		if err := db.Model(&product).Updates(updates).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update product")
		}

		_ = audit.WriteLog(db, audit.LogOptions{
			Scope:       sc,
			UserName:    userName(db, sc.UserID),
			EntityType:  "product",
			EntityID:    product.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Product updated: %s", product.SKU),
			Before:      before,
			After:       toProductResponse(&product),
		})

		return c.JSON(toProductResponse(&product))
	}
}

// POST /api/products/:id/restock
func RestockProductHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromCtx(c)
		if err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid product id")
		}

		var body RestockRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := config.Validate(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var product models.Product
		if err := db.Where("id = ? AND company_id = ? AND tenant_id = ?", id, sc.CompanyID, sc.TenantID).
			First(&product).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Product not found")
		}

		var updated *models.Product
		err = db.Transaction(func(tx *gorm.DB) error {
			var err error
			updated, err = stock.Adjust(tx, sc, product.SKU, body.Quantity)
			return err
		})
		if err != nil {
			return err
		}

		_ = audit.WriteLog(db, audit.LogOptions{
			Scope:       sc,
			UserName:    userName(db, sc.UserID),
			EntityType:  "product",
			EntityID:    updated.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Restocked %dx %s", body.Quantity, updated.SKU),
		})

		return c.JSON(toProductResponse(updated))
	}
}

// DELETE /api/products/:id (soft delete; transaction history keeps the row)
func DeleteProductHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromCtx(c)
		if err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid product id")
		}

		var product models.Product
		if err := db.Where("id = ? AND company_id = ? AND tenant_id = ?", id, sc.CompanyID, sc.TenantID).
			First(&product).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Product not found")
		}

		if err := db.Delete(&product).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete product")
		}

		_ = audit.WriteLog(db, audit.LogOptions{
			Scope:       sc,
			UserName:    userName(db, sc.UserID),
			EntityType:  "product",
			EntityID:    product.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Product deleted: %s", product.SKU),
			Before:      toProductResponse(&product),
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
