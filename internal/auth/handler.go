package auth

import (
	"strings"

	"cauntr-backend/internal/config"
	"cauntr-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterCompanyRequest struct {
	CompanyName string `json:"company_name" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterCompanyHandler bootstraps a tenant, its first company, and the admin
// user in one transaction.
func RegisterCompanyHandler(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterCompanyRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := config.Validate(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		var count int64
		db.Model(&models.User{}).Where("email = ?", body.Email).Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "Email already registered")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not hash password")
		}

		var user models.User
		err = db.Transaction(func(tx *gorm.DB) error {
			tenant := models.Tenant{Name: strings.TrimSpace(body.CompanyName)}
			if err := tx.Create(&tenant).Error; err != nil {
				return err
			}
			company := models.Company{
				TenantID:           tenant.ID,
				Name:               strings.TrimSpace(body.CompanyName),
				Email:              body.Email,
				SubscriptionActive: true,
			}
			if err := tx.Create(&company).Error; err != nil {
				return err
			}
			user = models.User{
				TenantID:     tenant.ID,
				CompanyID:    company.ID,
				Name:         strings.TrimSpace(body.Name),
				Email:        body.Email,
				PasswordHash: string(hash),
				Role:         models.RoleAdmin,
			}
			return tx.Create(&user).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create account")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":         user.ID,
			"email":      user.Email,
			"role":       user.Role,
			"tenant_id":  user.TenantID,
			"company_id": user.CompanyID,
		})
	}
}

func LoginHandler(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		var user models.User
		if err := db.Where("email = ?", body.Email).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid email or password")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid email or password")
		}

		token, err := GenerateToken(cfg.JWTSecret, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not generate token")
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user": fiber.Map{
				"id":         user.ID,
				"name":       user.Name,
				"email":      user.Email,
				"role":       user.Role,
				"tenant_id":  user.TenantID,
				"company_id": user.CompanyID,
			},
		})
	}
}

func MeHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := ScopeFromCtx(c)
		if err != nil {
			return err
		}

		var user models.User
		if err := db.Preload("Company").First(&user, sc.UserID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}

		return c.JSON(fiber.Map{
			"user_id":    user.ID,
			"name":       user.Name,
			"email":      user.Email,
			"role":       user.Role,
			"tenant_id":  user.TenantID,
			"company_id": user.CompanyID,
			"company": fiber.Map{
				"id":                  user.Company.ID,
				"name":                user.Company.Name,
				"subscription_active": user.Company.SubscriptionActive,
			},
		})
	}
}
