package auth

import (
	"fmt"
	"strings"

	"cauntr-backend/internal/config"
	"cauntr-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

const (
	CtxUserIDKey    = "user_id"
	CtxUserRoleKey  = "user_role"
	CtxUserEmailKey = "user_email"
	CtxTenantIDKey  = "tenant_id"
	CtxCompanyIDKey = "company_id"
)

// Scope is the (tenant, company) pair every read and write is filtered by,
// plus the acting user. Resolved from the bearer token, treated as already
// validated input everywhere below the middleware.
type Scope struct {
	TenantID  uint
	CompanyID uint
	UserID    uint
}

func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header must be 'Bearer <token>'")
		}

		token, err := jwt.ParseWithClaims(parts[1], &JWTCustomClaims{}, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
		}

		claims, ok := token.Claims.(*JWTCustomClaims)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Malformed token claims")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxUserRoleKey, claims.Role)
		c.Locals(CtxUserEmailKey, claims.Email)
		c.Locals(CtxTenantIDKey, claims.TenantID)
		c.Locals(CtxCompanyIDKey, claims.CompanyID)

		return c.Next()
	}
}

// ScopeFromCtx reads the tenant/company scope the JWT middleware resolved.
func ScopeFromCtx(c *fiber.Ctx) (Scope, error) {
	userID, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok {
		return Scope{}, fiber.NewError(fiber.StatusForbidden, "Missing user context")
	}
	tenantID, ok := c.Locals(CtxTenantIDKey).(uint)
	if !ok || tenantID == 0 {
		return Scope{}, fiber.NewError(fiber.StatusForbidden, "Missing tenant context")
	}
	companyID, ok := c.Locals(CtxCompanyIDKey).(uint)
	if !ok || companyID == 0 {
		return Scope{}, fiber.NewError(fiber.StatusForbidden, "Missing company context")
	}
	return Scope{TenantID: tenantID, CompanyID: companyID, UserID: userID}, nil
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "Missing role context")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "Insufficient permissions")
	}
}

// RequireActiveSubscription is the billing gate: transaction routes are
// blocked entirely while the company's subscription is inactive.
func RequireActiveSubscription(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := ScopeFromCtx(c)
		if err != nil {
			return err
		}

		var company models.Company
		if err := db.Where("id = ? AND tenant_id = ?", sc.CompanyID, sc.TenantID).
			First(&company).Error; err != nil {
			return fiber.NewError(fiber.StatusForbidden, "Company not found")
		}
		if !company.SubscriptionActive {
			return fiber.NewError(fiber.StatusPaymentRequired, "Subscription inactive")
		}

		return c.Next()
	}
}
