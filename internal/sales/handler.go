package sales

import (
	"fmt"
	"time"

	"cauntr-backend/internal/audit"
	"cauntr-backend/internal/auth"
	"cauntr-backend/internal/config"
	"cauntr-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// -------------------------
// Request/Response Types
// -------------------------

type RecordPaymentRequest struct {
	Amount        decimal.Decimal      `json:"amount"`
	Method        models.PaymentMethod `json:"method"`
	BankAccountID *uint                `json:"bank_account_id"`
}

type CorrectPriceRequest struct {
	TotalPrice decimal.Decimal `json:"total_price"`
}

type ItemResponse struct {
	ID           uint            `json:"id"`
	ProductID    uint            `json:"product_id"`
	Quantity     int             `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Direction    string          `json:"direction"`
}

type TransactionResponse struct {
	ID         uint           `json:"id"`
	Type       string         `json:"type"`
	CustomerID *uint          `json:"customer_id,omitempty"`
	Items      []ItemResponse `json:"items"`
	CreatedAt  string         `json:"created_at"`
}

type PlanResponse struct {
	ID               uint            `json:"id"`
	InstallmentCount int             `json:"installment_count"`
	Frequency        string          `json:"frequency"`
	CustomerType     string          `json:"customer_type"`
	Balance          decimal.Decimal `json:"balance"`
}

type InvoiceResponse struct {
	ID          uint   `json:"id"`
	InvoiceNo   string `json:"invoice_no"`
	Status      string `json:"status"`
	PaymentDate string `json:"payment_date"`
}

type SaleResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	Plan        *PlanResponse       `json:"plan,omitempty"`
	Invoice     *InvoiceResponse    `json:"invoice,omitempty"`
}

func toSaleResponse(res *SaleResult) SaleResponse {
	out := SaleResponse{Transaction: toTransactionResponse(res.Transaction)}
	if res.Plan != nil {
		out.Plan = toPlanResponse(res.Plan)
	}
	if res.Invoice != nil {
		out.Invoice = toInvoiceResponse(res.Invoice)
	}
	return out
}

func toTransactionResponse(trans *models.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:         trans.ID,
		Type:       string(trans.Type),
		CustomerID: trans.CustomerID,
		CreatedAt:  trans.CreatedAt.Format(time.RFC3339),
	}
	for _, item := range trans.Items {
		resp.Items = append(resp.Items, ItemResponse{
			ID:           item.ID,
			ProductID:    item.ProductID,
			Quantity:     item.Quantity,
			PricePerUnit: item.PricePerUnit,
			TotalPrice:   item.TotalPrice,
			Direction:    string(item.Direction),
		})
	}
	return resp
}

func toPlanResponse(plan *models.PaymentPlan) *PlanResponse {
	resp := &PlanResponse{
		ID:               plan.ID,
		InstallmentCount: plan.InstallmentCount,
		Frequency:        string(plan.Frequency),
		CustomerType:     string(plan.CustomerType),
	}
	if n := len(plan.Payments); n > 0 {
		resp.Balance = plan.Payments[n-1].BalanceOwed
	}
	return resp
}

func toInvoiceResponse(inv *models.Invoice) *InvoiceResponse {
	return &InvoiceResponse{
		ID:          inv.ID,
		InvoiceNo:   inv.InvoiceNo,
		Status:      string(inv.Status),
		PaymentDate: inv.PaymentDate.Format("2006-01-02"),
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
// Handlers
// -------------------------

// POST /api/sales
func SellHandler(db *gorm.DB, engine *Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromCtx(c)
		if err != nil {
			return err
		}

		var body SellInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := config.Validate(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		res, err := engine.Sell(c.UserContext(), sc, body)
		if err != nil {
			return err
		}

		writeSaleAudit(db, sc, userName(db, sc.UserID), res, fmt.Sprintf("Sold %dx %s", body.Quantity, body.SKU))
		return c.Status(fiber.StatusCreated).JSON(toSaleResponse(res))
	}
}

// POST /api/sales/bulk
func BulkSellHandler(db *gorm.DB, engine *Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromCtx(c)
		if err != nil {
			return err
		}

		var body BulkSellInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := config.Validate(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		res, err := engine.BulkSell(c.UserContext(), sc, body)
		if err != nil {
			return err
		}

		writeSaleAudit(db, sc, userName(db, sc.UserID), res, fmt.Sprintf("Bulk sale of %d lines", len(body.Items)))
		return c.Status(fiber.StatusCreated).JSON(toSaleResponse(res))
	}
}

// POST /api/swaps
func SwapHandler(db *gorm.DB, engine *Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromCtx(c)
		if err != nil {
			return err
		}

		var body SwapInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := config.Validate(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		res, err := engine.Swap(c.UserContext(), sc, body)
		if err != nil {
			return err
		}

		writeSaleAudit(db, sc, userName(db, sc.UserID), res,
			fmt.Sprintf("Swapped %dx %s for %d incoming items", body.Outgoing.Quantity, body.Outgoing.SKU, len(body.Incoming)))
		return c.Status(fiber.StatusCreated).JSON(toSaleResponse(res))
	}
}

// POST /api/buybacks
func BuybackHandler(db *gorm.DB, engine *Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromCtx(c)
		if err != nil {
			return err
		}

		var body BuybackInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := config.Validate(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		res, err := engine.Buyback(c.UserContext(), sc, body)
		if err != nil {
			return err
		}

		writeSaleAudit(db, sc, userName(db, sc.UserID), res, fmt.Sprintf("Bought back %dx %s", body.Quantity, body.SKU))
		return c.Status(fiber.StatusCreated).JSON(toSaleResponse(res))
	}
}

// POST /api/transactions/:id/payments
func RecordPaymentHandler(db *gorm.DB, engine *Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromCtx(c)
		if err != nil {
			return err
		}

		transactionID, err := c.ParamsInt("id")
		if err != nil || transactionID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid transaction id")
		}

		var body RecordPaymentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		res, err := engine.RecordPayment(c.UserContext(), sc, uint(transactionID), body.Amount, body.Method, body.BankAccountID)
		if err != nil {
			return err
		}

		_ = audit.WriteLog(db, audit.LogOptions{
			Scope:       sc,
			UserName:    userName(db, sc.UserID),
			EntityType:  "payment_plan",
			EntityID:    res.Plan.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Recorded payment of %s, balance now %s", body.Amount, res.Balance),
		})

		out := fiber.Map{"plan": toPlanResponse(res.Plan), "balance": res.Balance}
		if res.Invoice != nil {
			out["invoice"] = toInvoiceResponse(res.Invoice)
		}
		return c.JSON(out)
	}
}

// PUT /api/transaction-items/:id/price
func CorrectPriceHandler(db *gorm.DB, engine *Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromCtx(c)
		if err != nil {
			return err
		}

		itemID, err := c.ParamsInt("id")
		if err != nil || itemID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid item id")
		}

		var body CorrectPriceRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		item, err := engine.CorrectPrice(c.UserContext(), sc, uint(itemID), body.TotalPrice)
		if err != nil {
			return err
		}

		_ = audit.WriteLog(db, audit.LogOptions{
			Scope:       sc,
			UserName:    userName(db, sc.UserID),
			EntityType:  "transaction_item",
			EntityID:    item.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Corrected item price to %s", body.TotalPrice),
		})

		return c.JSON(ItemResponse{
			ID:           item.ID,
			ProductID:    item.ProductID,
			Quantity:     item.Quantity,
			PricePerUnit: item.PricePerUnit,
			TotalPrice:   item.TotalPrice,
			Direction:    string(item.Direction),
		})
	}
}

// GET /api/transactions?type=...
func ListTransactionsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromCtx(c)
		if err != nil {
			return err
		}

		q := db.Model(&models.Transaction{}).
			Where("company_id = ? AND tenant_id = ?", sc.CompanyID, sc.TenantID)

		if kind := c.Query("type"); kind != "" {
			q = q.Where("type = ?", kind)
		}

		var transactions []models.Transaction
		if err := q.Preload("Items").Order("created_at desc, id desc").Find(&transactions).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list transactions")
		}

		resp := make([]TransactionResponse, 0, len(transactions))
		for i := range transactions {
			resp = append(resp, toTransactionResponse(&transactions[i]))
		}
		return c.JSON(resp)
	}
}

func writeSaleAudit(db *gorm.DB, sc auth.Scope, name string, res *SaleResult, description string) {
	_ = audit.WriteLog(db, audit.LogOptions{
		Scope:       sc,
		UserName:    name,
		EntityType:  "transaction",
		EntityID:    res.Transaction.ID,
		Action:      models.AuditActionCreate,
		Description: description,
		After:       toSaleResponse(res),
	})
}
