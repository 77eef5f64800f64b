package invoice

import (
	"time"

	"cauntr-backend/internal/apperr"
	"cauntr-backend/internal/models"

	"gorm.io/gorm"
)

// MarkOverdue flips unpaid invoices past their due date to OVERDUE. Paid
// invoices are never touched. Returns the number of invoices updated.
func MarkOverdue(db *gorm.DB, now time.Time) (int64, error) {
	res := db.Model(&models.Invoice{}).
		Where("status IN ? AND payment_date < ?",
			[]models.InvoiceStatus{models.InvoiceStatusDraft, models.InvoiceStatusPartPaid}, now).
		Update("status", models.InvoiceStatusOverdue)
	if res.Error != nil {
		return 0, apperr.Internal(res.Error)
	}
	return res.RowsAffected, nil
}
