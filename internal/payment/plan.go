package payment

import (
	"errors"

	"cauntr-backend/internal/apperr"
	"cauntr-backend/internal/auth"
	"cauntr-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OpenOptions describes the plan created alongside a transaction.
type OpenOptions struct {
	TransactionID uint
	CustomerID    *uint
	TotalAmount   decimal.Decimal
	BalanceOwed   decimal.Decimal
	Method        models.PaymentMethod
	Frequency     models.PaymentFrequency
	VAT           decimal.Decimal
	BankAccountID *uint
}

// Open creates a payment plan with installment count 1 and its first Payment.
// CustomerType is CUSTOMER when nothing is owed, DEBTOR otherwise.
func Open(tx *gorm.DB, sc auth.Scope, opts OpenOptions) (*models.PaymentPlan, error) {
	if opts.TotalAmount.IsNegative() {
		return nil, apperr.New(apperr.KindMissingRequiredField, "total amount cannot be negative")
	}
	if opts.BalanceOwed.IsNegative() {
		return nil, apperr.New(apperr.KindOverpayment, "balance owed cannot be negative")
	}
	if opts.BalanceOwed.GreaterThan(opts.TotalAmount) {
		return nil, apperr.New(apperr.KindMissingRequiredField,
			"balance owed %s exceeds total amount %s", opts.BalanceOwed, opts.TotalAmount)
	}
	if opts.Frequency == "" {
		opts.Frequency = models.FrequencyOneTime
	}

	plan := models.PaymentPlan{
		TenantID:         sc.TenantID,
		CompanyID:        sc.CompanyID,
		TransactionID:    opts.TransactionID,
		CustomerID:       opts.CustomerID,
		InstallmentCount: 1,
		Frequency:        opts.Frequency,
		CustomerType:     classify(opts.BalanceOwed),
		Payments: []models.Payment{{
			TenantID:      sc.TenantID,
			CompanyID:     sc.CompanyID,
			TotalAmount:   opts.TotalAmount,
			BalanceOwed:   opts.BalanceOwed,
			BalancePaid:   opts.TotalAmount.Sub(opts.BalanceOwed),
			TotalPay:      opts.TotalAmount.Sub(opts.BalanceOwed),
			VAT:           opts.VAT,
			Method:        opts.Method,
			BankAccountID: opts.BankAccountID,
		}},
	}

	if err := tx.Create(&plan).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return &plan, nil
}

// CurrentBalance is the single accessor for a plan's authoritative balance:
// the latest Payment's BalanceOwed. No current-balance field is stored
// anywhere, so call sites never recompute this ad hoc.
func CurrentBalance(tx *gorm.DB, planID uint) (decimal.Decimal, error) {
	latest, err := latestPayment(tx, planID)
	if err != nil {
		return decimal.Zero, err
	}
	return latest.BalanceOwed, nil
}

// RecordPayment appends one installment to a plan. The new Payment, the bumped
// installment count, and the customer-type flip are one mutation; the caller's
// unit of work also owns the matching invoice status update, so the two are
// never independently observable.
func RecordPayment(tx *gorm.DB, sc auth.Scope, planID uint, amount decimal.Decimal, method models.PaymentMethod, bankAccountID *uint) (*models.PaymentPlan, error) {
	if !amount.IsPositive() {
		return nil, apperr.New(apperr.KindMissingRequiredField, "payment amount must be positive")
	}

	var plan models.PaymentPlan
	err := tx.Where("id = ? AND company_id = ? AND tenant_id = ?", planID, sc.CompanyID, sc.TenantID).
		First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.KindNotFound, "payment plan %d not found", planID)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	latest, err := latestPayment(tx, plan.ID)
	if err != nil {
		return nil, err
	}

	if latest.BalanceOwed.IsZero() {
		return nil, apperr.New(apperr.KindNoOutstandingBalance, "plan %d is already settled", plan.ID)
	}
	if amount.GreaterThan(latest.BalanceOwed) {
		return nil, apperr.New(apperr.KindOverpayment,
			"payment %s exceeds outstanding balance %s", amount, latest.BalanceOwed)
	}

	newBalance := latest.BalanceOwed.Sub(amount)

	next := models.Payment{
		TenantID:      sc.TenantID,
		CompanyID:     sc.CompanyID,
		PaymentPlanID: plan.ID,
		TotalAmount:   latest.TotalAmount,
		BalanceOwed:   newBalance,
		BalancePaid:   amount,
		TotalPay:      latest.TotalPay.Add(amount),
		VAT:           latest.VAT,
		Method:        method,
		BankAccountID: bankAccountID,
	}
	if err := tx.Create(&next).Error; err != nil {
		return nil, apperr.Internal(err)
	}

	plan.InstallmentCount++
	plan.CustomerType = classify(newBalance)
	if err := tx.Model(&plan).Updates(map[string]any{
		"installment_count": plan.InstallmentCount,
		"customer_type":     plan.CustomerType,
	}).Error; err != nil {
		return nil, apperr.Internal(err)
	}

	plan.Payments = append(plan.Payments, next)
	return &plan, nil
}

// CorrectPrice rewrites a transaction item's unit price and total together,
// and shifts the owning plan's latest Payment.TotalAmount by the same delta so
// the payment history stays internally consistent. Only settled plans accept a
// correction.
func CorrectPrice(tx *gorm.DB, sc auth.Scope, itemID uint, newTotal decimal.Decimal) (*models.TransactionItem, error) {
	if newTotal.IsNegative() {
		return nil, apperr.New(apperr.KindMissingRequiredField, "corrected price cannot be negative")
	}

	var item models.TransactionItem
	err := tx.Where("id = ? AND company_id = ? AND tenant_id = ?", itemID, sc.CompanyID, sc.TenantID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.KindNotFound, "transaction item %d not found", itemID)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	var plan models.PaymentPlan
	err = tx.Where("transaction_id = ?", item.TransactionID).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.KindNotFound, "no payment plan for transaction %d", item.TransactionID)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	latest, err := latestPayment(tx, plan.ID)
	if err != nil {
		return nil, err
	}
	if !latest.BalanceOwed.IsZero() {
		return nil, apperr.New(apperr.KindOutstandingBalance,
			"cannot correct price while %s is still owed on plan %d", latest.BalanceOwed, plan.ID)
	}

	delta := newTotal.Sub(item.TotalPrice)

	item.TotalPrice = newTotal
	item.PricePerUnit = newTotal.Div(decimal.NewFromInt(int64(item.Quantity)))
	if err := tx.Model(&item).Updates(map[string]any{
		"total_price":    item.TotalPrice,
		"price_per_unit": item.PricePerUnit,
	}).Error; err != nil {
		return nil, apperr.Internal(err)
	}

	latest.TotalAmount = latest.TotalAmount.Add(delta)
	if err := tx.Model(latest).Update("total_amount", latest.TotalAmount).Error; err != nil {
		return nil, apperr.Internal(err)
	}

	return &item, nil
}

// ReclassifyCustomer recomputes a customer's type from the latest payment of
// each of their plans: DEBTOR while any plan still carries a balance.
func ReclassifyCustomer(tx *gorm.DB, sc auth.Scope, customerID uint) error {
	var planIDs []uint
	err := tx.Model(&models.PaymentPlan{}).
		Where("customer_id = ? AND company_id = ? AND tenant_id = ?", customerID, sc.CompanyID, sc.TenantID).
		Pluck("id", &planIDs).Error
	if err != nil {
		return apperr.Internal(err)
	}

	ctype := models.CustomerTypeCustomer
	for _, id := range planIDs {
		balance, err := CurrentBalance(tx, id)
		if err != nil {
			return err
		}
		if balance.IsPositive() {
			ctype = models.CustomerTypeDebtor
			break
		}
	}

	err = tx.Model(&models.Customer{}).
		Where("id = ? AND company_id = ? AND tenant_id = ?", customerID, sc.CompanyID, sc.TenantID).
		Update("type", ctype).Error
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func latestPayment(tx *gorm.DB, planID uint) (*models.Payment, error) {
	var p models.Payment
	err := tx.Where("payment_plan_id = ?", planID).
		Order("created_at DESC, id DESC").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.KindNotFound, "plan %d has no payments", planID)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &p, nil
}

func classify(balance decimal.Decimal) models.CustomerType {
	if balance.IsZero() {
		return models.CustomerTypeCustomer
	}
	return models.CustomerTypeDebtor
}
