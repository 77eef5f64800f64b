package invoice

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"cauntr-backend/internal/apperr"
	"cauntr-backend/internal/auth"
	"cauntr-backend/internal/models"

	"gorm.io/gorm"
)

// Next allocates the next invoice number for the (tenant, company) scope at
// the given instant. Format: <CompanyInitials><YY>-<MM><NNNN>, NNNN starting
// at 0000 each month.
//
// Numbers come from a per-scope-per-month counter row bumped with a single
// UPDATE ... RETURNING, so concurrent allocations inside separate units of
// work can never observe the same value. The first allocation of a month
// seeds the counter from the greatest previously issued number with the same
// prefix, which keeps the sequence gap-free over data that predates the
// counter. A losing racer on the seed insert gets SequenceConflict; callers
// retry a bounded number of times.
func Next(tx *gorm.DB, sc auth.Scope, companyName string, at time.Time) (string, error) {
	year, month := at.Year(), int(at.Month())
	prefix := fmt.Sprintf("%s%02d-%02d", initials(companyName), year%100, month)

	var counter int
	res := tx.Raw(`UPDATE invoice_sequences
		SET counter = counter + 1, updated_at = ?
		WHERE tenant_id = ? AND company_id = ? AND year = ? AND month = ?
		RETURNING counter`,
		at, sc.TenantID, sc.CompanyID, year, month).Scan(&counter)
	if res.Error != nil {
		return "", apperr.Internal(res.Error)
	}
	if res.RowsAffected > 0 {
		return fmt.Sprintf("%s%04d", prefix, counter-1), nil
	}

	// No counter row yet for this scope and month: seed it from whatever was
	// issued before the counter existed.
	seq := seedSequence(tx, sc, prefix)
	row := models.InvoiceSequence{
		TenantID:  sc.TenantID,
		CompanyID: sc.CompanyID,
		Year:      year,
		Month:     month,
		Counter:   seq + 1,
	}
	if err := tx.Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", apperr.Wrap(err, apperr.KindSequenceConflict,
				"invoice sequence for %s initialized concurrently", prefix)
		}
		return "", apperr.Internal(err)
	}

	return fmt.Sprintf("%s%04d", prefix, seq), nil
}

// seedSequence returns the first free sequence value for a prefix by scanning
// the greatest invoice number already issued under it. Zero when none exist.
func seedSequence(tx *gorm.DB, sc auth.Scope, prefix string) int {
	var lastNo string
	err := tx.Model(&models.Invoice{}).
		Where("tenant_id = ? AND company_id = ? AND invoice_no LIKE ?", sc.TenantID, sc.CompanyID, prefix+"%").
		Order("invoice_no DESC").
		Limit(1).
		Pluck("invoice_no", &lastNo).Error
	if err != nil || lastNo == "" {
		return 0
	}

	n, err := strconv.Atoi(lastNo[len(prefix):])
	if err != nil {
		return 0
	}
	return n + 1
}

// initials takes the first letter of each word in the company name: "Tech
// Hub Ltd" -> "THL".
func initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r := []rune(word)[0]
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	if b.Len() == 0 {
		return "INV"
	}
	return b.String()
}
