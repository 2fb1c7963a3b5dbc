package db

import (
	"gorm.io/gorm"

	"github.com/Skotchmaster/auth_service/internal/models"
)

// AutoMigrate creates the schema through gorm. Production databases use the
// goose migrations instead; this keeps throwaway databases in sync with the models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Tenant{}, &models.User{}, &models.RefreshToken{})
}
