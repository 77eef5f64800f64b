package invoice

import (
	"time"

	"cauntr-backend/internal/auth"
	"cauntr-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ListItemResponse struct {
	ID            uint   `json:"id"`
	InvoiceNo     string `json:"invoice_no"`
	TransactionID uint   `json:"transaction_id"`
	Status        string `json:"status"`
	PaymentDate   string `json:"payment_date"`
	CreatedAt     string `json:"created_at"`
}

func toListItemResponse(inv *models.Invoice) ListItemResponse {
	return ListItemResponse{
		ID:            inv.ID,
		InvoiceNo:     inv.InvoiceNo,
		TransactionID: inv.TransactionID,
		Status:        string(inv.Status),
		PaymentDate:   inv.PaymentDate.Format("2006-01-02"),
		CreatedAt:     inv.CreatedAt.Format(time.RFC3339),
	}
}

// GET /api/invoices?status=...
func ListInvoicesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromCtx(c)
		if err != nil {
			return err
		}

		q := db.Model(&models.Invoice{}).
			Where("company_id = ? AND tenant_id = ?", sc.CompanyID, sc.TenantID)
		if status := c.Query("status"); status != "" {
			q = q.Where("status = ?", status)
		}

		var invoices []models.Invoice
		if err := q.Order("created_at desc, id desc").Find(&invoices).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list invoices")
		}

		resp := make([]ListItemResponse, 0, len(invoices))
		for i := range invoices {
			resp = append(resp, toListItemResponse(&invoices[i]))
		}
		return c.JSON(resp)
	}
}

// POST /api/admin/invoices/mark-overdue
func MarkOverdueHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := auth.ScopeFromCtx(c); err != nil {
			return err
		}

		n, err := MarkOverdue(db, time.Now())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"marked_overdue": n})
	}
}
