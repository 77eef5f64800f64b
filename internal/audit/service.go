package audit

import (
	"encoding/json"
	"fmt"

	"cauntr-backend/internal/auth"
	"cauntr-backend/internal/models"

	"gorm.io/gorm"
)

type LogOptions struct {
	Scope       auth.Scope
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// WriteLog appends an audit entry. The transaction ledger itself is immutable,
// so audit rows are observational only: there is no undo path.
func WriteLog(db *gorm.DB, opts LogOptions) error {
	// jsonb columns want the literal "null", not an empty string.
	beforeStr, afterStr := "null", "null"
	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	entry := models.AuditLog{
		TenantID:    opts.Scope.TenantID,
		CompanyID:   opts.Scope.CompanyID,
		UserID:      opts.Scope.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := db.Create(&entry).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}
