package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/auth_service/internal/domain"
	"github.com/Skotchmaster/auth_service/internal/models"
)

type TenantFilter struct {
	Q      string
	Offset int
	Limit  int
}

func (r *GormRepo) CreateTenant(ctx context.Context, t *models.Tenant) error {
	return wrap("create tenant", r.DB.WithContext(ctx).Create(t).Error)
}

func (r *GormRepo) FindTenantByID(ctx context.Context, id uint) (*models.Tenant, error) {
	var t models.Tenant
	if err := r.DB.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, wrap("find tenant", err)
	}
	return &t, nil
}

func (r *GormRepo) ListTenants(ctx context.Context, f TenantFilter) ([]models.Tenant, int64, error) {
	q := r.DB.WithContext(ctx).Model(&models.Tenant{})
	if f.Q != "" {
		q = q.Where("LOWER(name) LIKE ?", likePattern(f.Q))
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, wrap("count tenants", err)
	}

	tenants := make([]models.Tenant, 0, f.Limit)
	if err := q.Order("id DESC").Offset(f.Offset).Limit(f.Limit).Find(&tenants).Error; err != nil {
		return nil, 0, wrap("list tenants", err)
	}
	return tenants, total, nil
}

func (r *GormRepo) UpdateTenant(ctx context.Context, t *models.Tenant) error {
	res := r.DB.WithContext(ctx).Model(&models.Tenant{ID: t.ID}).
		Select("name", "address").
		Updates(map[string]any{"name": t.Name, "address": t.Address})
	if res.Error != nil {
		return wrap("update tenant", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update tenant %d: %w", t.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *GormRepo) DeleteTenant(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Tenant{}, id)
	if res.Error != nil {
		return wrap("delete tenant", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete tenant %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
