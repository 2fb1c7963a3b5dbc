package repo

import (
	"context"

	"github.com/Skotchmaster/auth_service/internal/models"
)

func (r *GormRepo) CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	return wrap("create refresh token", r.DB.WithContext(ctx).Create(t).Error)
}

// FindRefreshByID returns domain.ErrNotFound once the row is gone.
func (r *GormRepo) FindRefreshByID(ctx context.Context, id uint) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := r.DB.WithContext(ctx).First(&token, id).Error; err != nil {
		return nil, wrap("find refresh token", err)
	}
	return &token, nil
}

// DeleteRefreshToken reports whether a row was actually removed.
func (r *GormRepo) DeleteRefreshToken(ctx context.Context, id uint) (bool, error) {
	res := r.DB.WithContext(ctx).Delete(&models.RefreshToken{}, id)
	if res.Error != nil {
		return false, wrap("delete refresh token", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) CountRefreshTokens(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).Where("user_id = ?", userID).Count(&n).Error
	return n, wrap("count refresh tokens", err)
}
