package sales

import (
	"cauntr-backend/internal/apperr"
	"cauntr-backend/internal/auth"
	"cauntr-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ItemInput is one line of a transaction to be recorded.
type ItemInput struct {
	ProductID    uint
	Quantity     int
	PricePerUnit decimal.Decimal
	Direction    models.ItemDirection
}

// Record persists an immutable transaction with its nested items in one
// write. Stock is never touched here: the orchestrator adjusts quantities
// first, so a stock failure aborts before any transaction row exists.
func Record(tx *gorm.DB, sc auth.Scope, kind models.TransactionType, creatorID uint, customerID *uint, items []ItemInput) (*models.Transaction, error) {
	if err := validateShape(kind, items); err != nil {
		return nil, err
	}

	trans := models.Transaction{
		TenantID:    sc.TenantID,
		CompanyID:   sc.CompanyID,
		Type:        kind,
		CreatedByID: creatorID,
		CustomerID:  customerID,
	}
	for _, in := range items {
		trans.Items = append(trans.Items, models.TransactionItem{
			TenantID:     sc.TenantID,
			CompanyID:    sc.CompanyID,
			ProductID:    in.ProductID,
			Quantity:     in.Quantity,
			PricePerUnit: in.PricePerUnit,
			TotalPrice:   in.PricePerUnit.Mul(decimal.NewFromInt(int64(in.Quantity))),
			Direction:    in.Direction,
		})
	}

	if err := tx.Create(&trans).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return &trans, nil
}

// validateShape enforces the item composition each transaction kind demands.
func validateShape(kind models.TransactionType, items []ItemInput) error {
	for _, in := range items {
		if in.ProductID == 0 {
			return apperr.New(apperr.KindMissingRequiredField, "transaction item missing product")
		}
		if in.Quantity <= 0 {
			return apperr.New(apperr.KindInvalidTransactionShape, "item quantity must be positive")
		}
		if in.PricePerUnit.IsNegative() {
			return apperr.New(apperr.KindInvalidTransactionShape, "item price cannot be negative")
		}
	}

	switch kind {
	case models.TransactionTypeSale:
		if len(items) != 1 || items[0].Direction != models.ItemDirectionDebit {
			return apperr.New(apperr.KindInvalidTransactionShape, "a sale has exactly one debit item")
		}
	case models.TransactionTypeBuyback:
		if len(items) != 1 || items[0].Direction != models.ItemDirectionCredit {
			return apperr.New(apperr.KindInvalidTransactionShape, "a buyback has exactly one credit item")
		}
	case models.TransactionTypeBulkSale:
		if len(items) == 0 {
			return apperr.New(apperr.KindInvalidTransactionShape, "a bulk sale needs at least one item")
		}
		for _, in := range items {
			if in.Direction != models.ItemDirectionDebit {
				return apperr.New(apperr.KindInvalidTransactionShape, "bulk sale items must all be debits")
			}
		}
	case models.TransactionTypeSwap:
		debits, credits := 0, 0
		for _, in := range items {
			if in.Direction == models.ItemDirectionDebit {
				debits++
			} else {
				credits++
			}
		}
		if debits != 1 || credits < 1 {
			return apperr.New(apperr.KindInvalidTransactionShape,
				"a swap has exactly one outgoing debit item and at least one incoming credit item")
		}
	default:
		return apperr.New(apperr.KindInvalidTransactionShape, "unknown transaction kind %q", kind)
	}
	return nil
}
