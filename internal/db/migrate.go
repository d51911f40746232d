package db

import (
	"errors"
	"fmt"

	"github.com/ikkim/atelier-backend/internal/app/model"
	"github.com/ikkim/atelier-backend/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every table owned by the application
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Product{},
		&model.CartItem{},
		&model.ContactMessage{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// EnsureAdmin creates the admin account, or promotes an existing user with
// the same email. passwordHash must already be a bcrypt hash.
func EnsureAdmin(db *gorm.DB, email, name, passwordHash string) (*model.User, error) {
	var user model.User
	err := db.Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		if user.Role == model.RoleAdmin {
			logger.Info("Admin account already exists, skipping...", map[string]interface{}{
				"email": email,
			})
			return &user, nil
		}
		if err := db.Model(&user).Update("role", model.RoleAdmin).Error; err != nil {
			return nil, fmt.Errorf("failed to promote admin: %w", err)
		}
		logger.Info("Existing user promoted to admin", map[string]interface{}{
			"user_id": user.ID,
			"email":   email,
		})
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if passwordHash == "" {
			return nil, fmt.Errorf("a password is required to create admin %s", email)
		}
		user = model.User{
			Email:        email,
			Name:         name,
			PasswordHash: passwordHash,
			Role:         model.RoleAdmin,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create admin: %w", err)
		}
		logger.Info("Admin account created", map[string]interface{}{
			"user_id": user.ID,
			"email":   email,
		})
		return &user, nil
	default:
		return nil, err
	}
}
