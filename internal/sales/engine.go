package sales

import (
	"context"
	"errors"
	"time"

	"cauntr-backend/internal/apperr"
	"cauntr-backend/internal/auth"
	"cauntr-backend/internal/customer"
	"cauntr-backend/internal/invoice"
	"cauntr-backend/internal/models"
	"cauntr-backend/internal/notify"
	"cauntr-backend/internal/payment"
	"cauntr-backend/internal/stock"
	"cauntr-backend/internal/supplier"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// maxSequenceRetries bounds the retry-on-conflict loop around invoice number
// allocation. Conflicts only happen when two units of work race the first
// allocation of a month, so one retry is almost always enough.
const maxSequenceRetries = 3

// Engine composes the stock ledger, transaction recorder, payment plan state
// machine and invoice allocator inside one atomic unit of work per
// customer-facing operation. Any component failure aborts the whole unit; the
// store never shows a partial write.
type Engine struct {
	db             *gorm.DB
	log            *logrus.Logger
	notifier       notify.Notifier
	invoiceDueDays int
}

func NewEngine(db *gorm.DB, log *logrus.Logger, notifier notify.Notifier, invoiceDueDays int) *Engine {
	return &Engine{db: db, log: log, notifier: notifier, invoiceDueDays: invoiceDueDays}
}

type CustomerInput struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type PaymentInput struct {
	BalanceOwed   decimal.Decimal         `json:"balance_owed"`
	Method        models.PaymentMethod    `json:"method"`
	Frequency     models.PaymentFrequency `json:"frequency"`
	VAT           decimal.Decimal         `json:"vat"`
	BankAccountID *uint                   `json:"bank_account_id"`
}

type SellInput struct {
	SKU          string          `json:"sku" validate:"required"`
	Quantity     int             `json:"quantity" validate:"required,gt=0"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Payment      PaymentInput    `json:"payment"`
	Customer     *CustomerInput  `json:"customer"`
}

type BulkLine struct {
	SKU          string          `json:"sku" validate:"required"`
	Quantity     int             `json:"quantity" validate:"required,gt=0"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
}

type BulkSellInput struct {
	Items    []BulkLine     `json:"items" validate:"required,min=1,dive"`
	Payment  PaymentInput   `json:"payment"`
	Customer *CustomerInput `json:"customer"`
}

type SwapOutgoing struct {
	SKU      string `json:"sku" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

type SwapIncoming struct {
	SKU           string          `json:"sku"` // generated when the product is new and none is given
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity" validate:"required,gt=0"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	SupplierName  string          `json:"supplier_name"`
	SupplierPhone string          `json:"supplier_phone"`
}

type SwapInput struct {
	Outgoing SwapOutgoing   `json:"outgoing"`
	Incoming []SwapIncoming `json:"incoming" validate:"required,min=1,dive"`
	Payment  *PaymentInput  `json:"payment"`
	Customer *CustomerInput `json:"customer"`
}

type BuybackInput struct {
	SKU          string          `json:"sku" validate:"required"`
	Quantity     int             `json:"quantity" validate:"required,gt=0"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Customer     *CustomerInput  `json:"customer"`
}

// SaleResult carries everything a committed operation produced.
type SaleResult struct {
	Transaction *models.Transaction
	Plan        *models.PaymentPlan
	Invoice     *models.Invoice
	Customer    *models.Customer
	Products    []models.Product
}

// PaymentResult is returned by RecordPayment.
type PaymentResult struct {
	Plan    *models.PaymentPlan
	Invoice *models.Invoice
	Balance decimal.Decimal
}

// Sell performs a single-item sale: stock decrement, SALE transaction, payment
// plan, invoice. Write order is stock -> transaction -> plan -> invoice
// because each step references identifiers from the one before.
func (e *Engine) Sell(ctx context.Context, sc auth.Scope, in SellInput) (*SaleResult, error) {
	res := &SaleResult{}
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := stock.Adjust(tx, sc, in.SKU, -in.Quantity)
		if err != nil {
			return err
		}
		res.Products = []models.Product{*product}

		price := in.PricePerUnit
		if price.IsZero() {
			price = product.SellingPrice
		}

		cust, customerID, err := e.upsertCustomer(tx, sc, in.Customer)
		if err != nil {
			return err
		}
		res.Customer = cust

		trans, err := Record(tx, sc, models.TransactionTypeSale, sc.UserID, customerID, []ItemInput{{
			ProductID:    product.ID,
			Quantity:     in.Quantity,
			PricePerUnit: price,
			Direction:    models.ItemDirectionDebit,
		}})
		if err != nil {
			return err
		}
		res.Transaction = trans

		total := price.Mul(decimal.NewFromInt(int64(in.Quantity)))
		plan, err := payment.Open(tx, sc, payment.OpenOptions{
			TransactionID: trans.ID,
			CustomerID:    customerID,
			TotalAmount:   total,
			BalanceOwed:   in.Payment.BalanceOwed,
			Method:        defaultMethod(in.Payment.Method),
			Frequency:     in.Payment.Frequency,
			VAT:           in.Payment.VAT,
			BankAccountID: in.Payment.BankAccountID,
		})
		if err != nil {
			return err
		}
		res.Plan = plan

		inv, err := e.createInvoice(tx, sc, trans.ID, in.Payment.BalanceOwed, time.Now())
		if err != nil {
			return err
		}
		res.Invoice = inv

		return e.reclassify(tx, sc, customerID)
	})
	if err != nil {
		return nil, err
	}

	e.emitInvoice(res)
	return res, nil
}

// BulkSell is Sell over several lines, with stock sufficiency validated for
// the whole batch before any quantity is mutated.
func (e *Engine) BulkSell(ctx context.Context, sc auth.Scope, in BulkSellInput) (*SaleResult, error) {
	res := &SaleResult{}
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deltas := make([]stock.Delta, 0, len(in.Items))
		for _, line := range in.Items {
			deltas = append(deltas, stock.Delta{SKU: line.SKU, Delta: -line.Quantity})
		}
		products, err := stock.AdjustMany(tx, sc, deltas)
		if err != nil {
			return err
		}
		res.Products = products

		bySKU := make(map[string]*models.Product, len(products))
		for i := range products {
			bySKU[products[i].SKU] = &products[i]
		}

		cust, customerID, err := e.upsertCustomer(tx, sc, in.Customer)
		if err != nil {
			return err
		}
		res.Customer = cust

		total := decimal.Zero
		items := make([]ItemInput, 0, len(in.Items))
		for _, line := range in.Items {
			product := bySKU[line.SKU]
			price := line.PricePerUnit
			if price.IsZero() {
				price = product.SellingPrice
			}
			items = append(items, ItemInput{
				ProductID:    product.ID,
				Quantity:     line.Quantity,
				PricePerUnit: price,
				Direction:    models.ItemDirectionDebit,
			})
			total = total.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}

		trans, err := Record(tx, sc, models.TransactionTypeBulkSale, sc.UserID, customerID, items)
		if err != nil {
			return err
		}
		res.Transaction = trans

		plan, err := payment.Open(tx, sc, payment.OpenOptions{
			TransactionID: trans.ID,
			CustomerID:    customerID,
			TotalAmount:   total,
			BalanceOwed:   in.Payment.BalanceOwed,
			Method:        defaultMethod(in.Payment.Method),
			Frequency:     in.Payment.Frequency,
			VAT:           in.Payment.VAT,
			BankAccountID: in.Payment.BankAccountID,
		})
		if err != nil {
			return err
		}
		res.Plan = plan

		inv, err := e.createInvoice(tx, sc, trans.ID, in.Payment.BalanceOwed, time.Now())
		if err != nil {
			return err
		}
		res.Invoice = inv

		return e.reclassify(tx, sc, customerID)
	})
	if err != nil {
		return nil, err
	}

	e.emitInvoice(res)
	return res, nil
}

// Swap exchanges one outgoing product for one or more incoming ones. Incoming
// products are created on the fly (with generated SKUs and suppliers) when
// they are new to the scope. A price difference owed by the customer can be
// financed with a payment plan, which also gets an invoice so later
// installments flow through the normal RecordPayment path.
func (e *Engine) Swap(ctx context.Context, sc auth.Scope, in SwapInput) (*SaleResult, error) {
	res := &SaleResult{}
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		outProduct, err := stock.Adjust(tx, sc, in.Outgoing.SKU, -in.Outgoing.Quantity)
		if err != nil {
			return err
		}
		res.Products = append(res.Products, *outProduct)

		cust, customerID, err := e.upsertCustomer(tx, sc, in.Customer)
		if err != nil {
			return err
		}
		res.Customer = cust

		outPrice := outProduct.SellingPrice
		items := []ItemInput{{
			ProductID:    outProduct.ID,
			Quantity:     in.Outgoing.Quantity,
			PricePerUnit: outPrice,
			Direction:    models.ItemDirectionDebit,
		}}
		outTotal := outPrice.Mul(decimal.NewFromInt(int64(in.Outgoing.Quantity)))

		inTotal := decimal.Zero
		for _, inc := range in.Incoming {
			product, err := e.resolveIncoming(tx, sc, inc)
			if err != nil {
				return err
			}
			res.Products = append(res.Products, *product)
			items = append(items, ItemInput{
				ProductID:    product.ID,
				Quantity:     inc.Quantity,
				PricePerUnit: inc.CostPrice,
				Direction:    models.ItemDirectionCredit,
			})
			inTotal = inTotal.Add(inc.CostPrice.Mul(decimal.NewFromInt(int64(inc.Quantity))))
		}

		trans, err := Record(tx, sc, models.TransactionTypeSwap, sc.UserID, customerID, items)
		if err != nil {
			return err
		}
		res.Transaction = trans

		if in.Payment == nil {
			return nil
		}

		// The customer finances the difference between what went out and what
		// came in.
		diff := outTotal.Sub(inTotal)
		if diff.IsNegative() {
			diff = decimal.Zero
		}
		plan, err := payment.Open(tx, sc, payment.OpenOptions{
			TransactionID: trans.ID,
			CustomerID:    customerID,
			TotalAmount:   diff,
			BalanceOwed:   in.Payment.BalanceOwed,
			Method:        defaultMethod(in.Payment.Method),
			Frequency:     in.Payment.Frequency,
			VAT:           in.Payment.VAT,
			BankAccountID: in.Payment.BankAccountID,
		})
		if err != nil {
			return err
		}
		res.Plan = plan

		inv, err := e.createInvoice(tx, sc, trans.ID, in.Payment.BalanceOwed, time.Now())
		if err != nil {
			return err
		}
		res.Invoice = inv

		return e.reclassify(tx, sc, customerID)
	})
	if err != nil {
		return nil, err
	}

	e.emitInvoice(res)
	return res, nil
}

// Buyback takes a product back into stock against money going out. No payment
// plan or invoice is raised; the transaction record alone carries the refund.
func (e *Engine) Buyback(ctx context.Context, sc auth.Scope, in BuybackInput) (*SaleResult, error) {
	res := &SaleResult{}
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := stock.Adjust(tx, sc, in.SKU, in.Quantity)
		if err != nil {
			return err
		}
		res.Products = []models.Product{*product}

		cust, customerID, err := e.upsertCustomer(tx, sc, in.Customer)
		if err != nil {
			return err
		}
		res.Customer = cust

		trans, err := Record(tx, sc, models.TransactionTypeBuyback, sc.UserID, customerID, []ItemInput{{
			ProductID:    product.ID,
			Quantity:     in.Quantity,
			PricePerUnit: in.PricePerUnit,
			Direction:    models.ItemDirectionCredit,
		}})
		if err != nil {
			return err
		}
		res.Transaction = trans
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RecordPayment applies an installment against the plan behind a transaction
// and keeps the invoice status in lockstep: PAID when the balance reaches
// zero, PART_PAID otherwise. Stock is never touched; validation failures fail
// fast before any write.
func (e *Engine) RecordPayment(ctx context.Context, sc auth.Scope, transactionID uint, amount decimal.Decimal, method models.PaymentMethod, bankAccountID *uint) (*PaymentResult, error) {
	res := &PaymentResult{}
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var plan models.PaymentPlan
		err := tx.Where("transaction_id = ? AND company_id = ? AND tenant_id = ?", transactionID, sc.CompanyID, sc.TenantID).
			First(&plan).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.KindNotFound, "no payment plan for transaction %d", transactionID)
		}
		if err != nil {
			return apperr.Internal(err)
		}

		updated, err := payment.RecordPayment(tx, sc, plan.ID, amount, defaultMethod(method), bankAccountID)
		if err != nil {
			return err
		}
		res.Plan = updated
		res.Balance = updated.Payments[len(updated.Payments)-1].BalanceOwed

		var inv models.Invoice
		err = tx.Where("transaction_id = ? AND tenant_id = ?", transactionID, sc.TenantID).First(&inv).Error
		if err == nil {
			status := models.InvoiceStatusPartPaid
			if res.Balance.IsZero() {
				status = models.InvoiceStatusPaid
			}
			if err := tx.Model(&inv).Update("status", status).Error; err != nil {
				return apperr.Internal(err)
			}
			inv.Status = status
			res.Invoice = &inv
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Internal(err)
		}

		return e.reclassify(tx, sc, updated.CustomerID)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CorrectPrice rewrites a sold item's price after settlement; see
// payment.CorrectPrice for the guards.
func (e *Engine) CorrectPrice(ctx context.Context, sc auth.Scope, itemID uint, newTotal decimal.Decimal) (*models.TransactionItem, error) {
	var item *models.TransactionItem
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		item, err = payment.CorrectPrice(tx, sc, itemID, newTotal)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// createInvoice allocates a number and persists the invoice, retrying a
// bounded number of times behind a savepoint when the allocation races.
func (e *Engine) createInvoice(tx *gorm.DB, sc auth.Scope, transactionID uint, balanceOwed decimal.Decimal, now time.Time) (*models.Invoice, error) {
	var company models.Company
	err := tx.Where("id = ? AND tenant_id = ?", sc.CompanyID, sc.TenantID).First(&company).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.KindNotFound, "company %d not found", sc.CompanyID)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	status := models.InvoiceStatusPaid
	if balanceOwed.IsPositive() {
		status = models.InvoiceStatusPartPaid
	}

	var lastErr error
	for attempt := 0; attempt < maxSequenceRetries; attempt++ {
		if err := tx.SavePoint("invoice_alloc").Error; err != nil {
			return nil, apperr.Internal(err)
		}

		no, err := invoice.Next(tx, sc, company.Name, now)
		if err != nil {
			if apperr.IsKind(err, apperr.KindSequenceConflict) {
				if err := tx.RollbackTo("invoice_alloc").Error; err != nil {
					return nil, apperr.Internal(err)
				}
				lastErr = err
				continue
			}
			return nil, err
		}

		inv := models.Invoice{
			TenantID:      sc.TenantID,
			CompanyID:     sc.CompanyID,
			TransactionID: transactionID,
			InvoiceNo:     no,
			Status:        status,
			PaymentDate:   now.AddDate(0, 0, e.invoiceDueDays),
		}
		if err := tx.Create(&inv).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				if err := tx.RollbackTo("invoice_alloc").Error; err != nil {
					return nil, apperr.Internal(err)
				}
				lastErr = apperr.Wrap(err, apperr.KindSequenceConflict, "invoice number %s already issued", no)
				continue
			}
			return nil, apperr.Internal(err)
		}
		return &inv, nil
	}
	return nil, lastErr
}

// resolveIncoming adjusts stock for an existing product or creates a new one,
// generating SKU and supplier when the swap introduces something unseen.
func (e *Engine) resolveIncoming(tx *gorm.DB, sc auth.Scope, inc SwapIncoming) (*models.Product, error) {
	if inc.SKU != "" {
		product, err := stock.Adjust(tx, sc, inc.SKU, inc.Quantity)
		if err == nil {
			return product, nil
		}
		if !apperr.IsKind(err, apperr.KindNotFound) {
			return nil, err
		}
	}

	if inc.Name == "" {
		return nil, apperr.New(apperr.KindMissingRequiredField, "incoming swap product needs a name")
	}

	sku := inc.SKU
	if sku == "" {
		sku = "SWP-" + uuid.NewString()[:8]
	}

	var supplierID *uint
	if inc.SupplierName != "" {
		sup, err := supplier.GetOrCreate(tx, sc, inc.SupplierName, inc.SupplierPhone)
		if err != nil {
			return nil, err
		}
		supplierID = &sup.ID
	}

	product := models.Product{
		TenantID:     sc.TenantID,
		CompanyID:    sc.CompanyID,
		SKU:          sku,
		Name:         inc.Name,
		Quantity:     inc.Quantity, // absolute only on creation
		SellingPrice: inc.SellingPrice,
		CostPrice:    inc.CostPrice,
		SupplierID:   supplierID,
	}
	if err := tx.Create(&product).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return &product, nil
}

func (e *Engine) upsertCustomer(tx *gorm.DB, sc auth.Scope, in *CustomerInput) (*models.Customer, *uint, error) {
	if in == nil {
		return nil, nil, nil
	}
	cust, err := customer.Upsert(tx, sc, in.Name, in.Phone, in.Email)
	if err != nil {
		return nil, nil, err
	}
	return cust, &cust.ID, nil
}

func (e *Engine) reclassify(tx *gorm.DB, sc auth.Scope, customerID *uint) error {
	if customerID == nil {
		return nil
	}
	return payment.ReclassifyCustomer(tx, sc, *customerID)
}

// emitInvoice fires the send-invoice event after a successful commit. Failures
// here are logged and dropped; delivery never affects the committed unit of
// work.
func (e *Engine) emitInvoice(res *SaleResult) {
	if res.Invoice == nil || res.Customer == nil || res.Customer.Email == "" {
		return
	}
	ev := notify.InvoiceEvent{
		InvoiceNo:     res.Invoice.InvoiceNo,
		CustomerName:  res.Customer.Name,
		CustomerEmail: res.Customer.Email,
	}
	if res.Plan != nil && len(res.Plan.Payments) > 0 {
		ev.Total = res.Plan.Payments[0].TotalAmount
	}
	go e.notifier.SendInvoice(context.Background(), ev)
}

func defaultMethod(m models.PaymentMethod) models.PaymentMethod {
	if m == "" {
		return models.PaymentMethodCash
	}
	return m
}
