package main

import (
	"errors"
	"strings"

	"cauntr-backend/internal/admin"
	"cauntr-backend/internal/apperr"
	"cauntr-backend/internal/audit"
	"cauntr-backend/internal/auth"
	"cauntr-backend/internal/config"
	"cauntr-backend/internal/customer"
	"cauntr-backend/internal/database"
	"cauntr-backend/internal/inventory"
	"cauntr-backend/internal/invoice"
	"cauntr-backend/internal/models"
	"cauntr-backend/internal/notify"
	"cauntr-backend/internal/sales"
	"cauntr-backend/internal/supplier"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg := config.Load()
	log := config.GetLogger()

	db, err := database.Open(cfg)
	if err != nil {
		log.WithError(err).Fatal("could not connect to database")
	}

	engine := sales.NewEngine(db, log, &notify.LogNotifier{Log: log}, cfg.InvoiceDueDays)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var appErr *apperr.Error
			if errors.As(err, &appErr) {
				if appErr.Kind == apperr.KindInternal {
					config.LogError(log, "http", c.Route().Path, c.Method(), nil, err)
				}
				return c.Status(apperr.HTTPStatus(appErr.Kind)).JSON(fiber.Map{
					"error": appErr.Message,
					"kind":  appErr.Kind,
				})
			}
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			config.LogError(log, "http", c.Route().Path, c.Method(), nil, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Unexpected server error",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register", auth.RegisterCompanyHandler(db, cfg))
	api.Post("/auth/login", auth.LoginHandler(db, cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler(db))

	// Admin-only management
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	adminRoutes.Get("/company", admin.GetCompanyHandler(db))
	adminRoutes.Put("/company", admin.UpdateCompanyHandler(db))

	adminRoutes.Post("/bank-accounts", admin.CreateBankAccountHandler(db))
	adminRoutes.Get("/bank-accounts", admin.ListBankAccountsHandler(db))
	adminRoutes.Put("/bank-accounts/:id", admin.UpdateBankAccountHandler(db))

	adminRoutes.Post("/invoices/mark-overdue", invoice.MarkOverdueHandler(db))

	// Inventory
	protected.Post("/products", inventory.CreateProductHandler(db))
	protected.Get("/products", inventory.ListProductsHandler(db))
	protected.Put("/products/:id", inventory.UpdateProductHandler(db))
	protected.Post("/products/:id/restock", inventory.RestockProductHandler(db))
	protected.Delete("/products/:id", inventory.DeleteProductHandler(db))

	// Directories
	protected.Post("/customers", customer.UpsertCustomerHandler(db))
	protected.Get("/customers", customer.ListCustomersHandler(db))
	protected.Get("/customers/:id", customer.GetCustomerHandler(db))
	protected.Post("/suppliers", supplier.CreateSupplierHandler(db))
	protected.Get("/suppliers", supplier.ListSuppliersHandler(db))
	protected.Delete("/suppliers/:id", supplier.DeleteSupplierHandler(db))

	// Transaction engine, gated on an active subscription
	trx := protected.Group("")
	trx.Use(auth.RequireActiveSubscription(db))

	trx.Post("/sales", sales.SellHandler(db, engine))
	trx.Post("/sales/bulk", sales.BulkSellHandler(db, engine))
	trx.Post("/swaps", sales.SwapHandler(db, engine))
	trx.Post("/buybacks", sales.BuybackHandler(db, engine))
	trx.Post("/transactions/:id/payments", sales.RecordPaymentHandler(db, engine))
	trx.Put("/transaction-items/:id/price", sales.CorrectPriceHandler(db, engine))
	trx.Get("/transactions", sales.ListTransactionsHandler(db))

	// Invoices & audit trail
	protected.Get("/invoices", invoice.ListInvoicesHandler(db))
	protected.Get("/audit-logs", audit.ListAuditLogsHandler(db))

	log.WithField("port", cfg.HTTPPort).Info("server listening")
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
