package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/auth_service/internal/domain"
	"github.com/Skotchmaster/auth_service/internal/models"
)

type UserFilter struct {
	Q      string
	Role   string
	Offset int
	Limit  int
}

func (r *GormRepo) emailTaken(ctx context.Context, email string, exceptID uint) (bool, error) {
	var count int64
	q := r.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", email)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, wrap("count users by email", err)
	}
	return count > 0, nil
}

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	taken, err := r.emailTaken(ctx, u.Email, 0)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrDuplicateEmail
	}

	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateEmail
		}
		return wrap("create user", err)
	}
	return nil
}

// FindUserByEmail loads the user with its password hash and tenant.
func (r *GormRepo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Preload("Tenant").Where("email = ?", email).First(&user).Error; err != nil {
		return nil, wrap("find user by email", err)
	}
	return &user, nil
}

func (r *GormRepo) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Preload("Tenant").First(&user, id).Error; err != nil {
		return nil, wrap("find user by id", err)
	}
	return &user, nil
}

func (r *GormRepo) ListUsers(ctx context.Context, f UserFilter) ([]models.User, int64, error) {
	q := r.DB.WithContext(ctx).Model(&models.User{})
	if f.Q != "" {
		p := likePattern(f.Q)
		q = q.Where("(LOWER(first_name || ' ' || last_name) LIKE ? OR LOWER(email) LIKE ?)", p, p)
	}
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, wrap("count users", err)
	}

	users := make([]models.User, 0, f.Limit)
	if err := q.Preload("Tenant").Order("id DESC").Offset(f.Offset).Limit(f.Limit).Find(&users).Error; err != nil {
		return nil, 0, wrap("list users", err)
	}
	return users, total, nil
}

// UpdateUser writes profile fields, role and tenant. The password is left alone.
func (r *GormRepo) UpdateUser(ctx context.Context, u *models.User) error {
	taken, err := r.emailTaken(ctx, u.Email, u.ID)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrDuplicateEmail
	}

	res := r.DB.WithContext(ctx).Model(&models.User{ID: u.ID}).
		Select("first_name", "last_name", "email", "role", "tenant_id").
		Updates(map[string]any{
			"first_name": u.FirstName,
			"last_name":  u.LastName,
			"email":      u.Email,
			"role":       u.Role,
			"tenant_id":  u.TenantID,
		})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateEmail
		}
		return wrap("update user", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update user %d: %w", u.ID, domain.ErrNotFound)
	}
	return nil
}

// DeleteUser removes the user; refresh rows go with it through the FK cascade.
func (r *GormRepo) DeleteUser(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return wrap("delete user", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete user %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
