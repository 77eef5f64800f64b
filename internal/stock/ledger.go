package stock

import (
	"errors"
	"sort"

	"cauntr-backend/internal/apperr"
	"cauntr-backend/internal/auth"
	"cauntr-backend/internal/models"

	"gorm.io/gorm"
)

// Delta is one signed stock movement: negative for outgoing sale/swap-out,
// positive for incoming swap-in, buyback or restock.
type Delta struct {
	SKU   string
	Delta int
}

// Adjust applies one signed delta to a product's quantity. The non-negative
// check and the write are a single guarded UPDATE, so two concurrent sales
// cannot both pass a stale stock check.
//
// Must be called inside the caller's unit of work (tx).
func Adjust(tx *gorm.DB, sc auth.Scope, sku string, delta int) (*models.Product, error) {
	var product models.Product
	err := tx.Where("sku = ? AND company_id = ? AND tenant_id = ?", sku, sc.CompanyID, sc.TenantID).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.KindNotFound, "product %q not found", sku)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	res := tx.Model(&models.Product{}).
		Where("id = ? AND quantity + ? >= 0", product.ID, delta).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	if res.Error != nil {
		return nil, apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.New(apperr.KindInsufficientStock,
			"insufficient stock for %q: have %d, need %d", sku, product.Quantity, -delta)
	}

	if err := tx.First(&product, product.ID).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return &product, nil
}

// AdjustMany applies a batch of deltas. The batch is admitted as a whole: the
// cumulative effect per SKU is validated against the quantities seen at the
// start of the unit of work before any row is touched. A batch that only fails
// partway through submission order is still rejected entirely.
func AdjustMany(tx *gorm.DB, sc auth.Scope, deltas []Delta) ([]models.Product, error) {
	if len(deltas) == 0 {
		return nil, apperr.New(apperr.KindMissingRequiredField, "no stock deltas supplied")
	}

	net := make(map[string]int, len(deltas))
	for _, d := range deltas {
		net[d.SKU] += d.Delta
	}

	skus := make([]string, 0, len(net))
	for sku := range net {
		skus = append(skus, sku)
	}
	sort.Strings(skus) // deterministic lock order across concurrent batches

	var products []models.Product
	err := tx.Where("sku IN ? AND company_id = ? AND tenant_id = ?", skus, sc.CompanyID, sc.TenantID).
		Find(&products).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}

	bySKU := make(map[string]*models.Product, len(products))
	for i := range products {
		bySKU[products[i].SKU] = &products[i]
	}

	// Admission check against the snapshot, before any mutation.
	for _, sku := range skus {
		p, ok := bySKU[sku]
		if !ok {
			return nil, apperr.New(apperr.KindNotFound, "product %q not found", sku)
		}
		if p.Quantity+net[sku] < 0 {
			return nil, apperr.New(apperr.KindInsufficientStock,
				"insufficient stock for %q: have %d, batch needs %d", sku, p.Quantity, -net[sku])
		}
	}

	updated := make([]models.Product, 0, len(skus))
	for _, sku := range skus {
		p := bySKU[sku]
		res := tx.Model(&models.Product{}).
			Where("id = ? AND quantity + ? >= 0", p.ID, net[sku]).
			Update("quantity", gorm.Expr("quantity + ?", net[sku]))
		if res.Error != nil {
			return nil, apperr.Internal(res.Error)
		}
		if res.RowsAffected == 0 {
			// A concurrent writer drained the stock after our snapshot.
			return nil, apperr.New(apperr.KindInsufficientStock,
				"insufficient stock for %q under concurrent updates", sku)
		}
		if err := tx.First(p, p.ID).Error; err != nil {
			return nil, apperr.Internal(err)
		}
		updated = append(updated, *p)
	}

	return updated, nil
}
