package service

import (
	"context"
	"strings"

	"github.com/Skotchmaster/auth_service/internal/domain"
	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/repo"
	"github.com/Skotchmaster/auth_service/internal/util"
)

type TenantInput struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (in *TenantInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)

	v := &domain.ValidationError{}
	if in.Name == "" {
		v.Add("name", "Tenant name is required!")
	} else if len(in.Name) > 100 {
		v.Add("name", "Tenant name should be at most 100 chars")
	}
	if in.Address == "" {
		v.Add("address", "Tenant address is required!")
	} else if len(in.Address) > 255 {
		v.Add("address", "Tenant address should be at most 255 chars")
	}
	return v.Err()
}

type TenantService struct {
	tenants TenantStore
}

func NewTenantService(tenants TenantStore) *TenantService {
	return &TenantService{tenants: tenants}
}

func (s *TenantService) Create(ctx context.Context, in TenantInput) (*models.Tenant, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	t := &models.Tenant{Name: in.Name, Address: in.Address}
	if err := s.tenants.CreateTenant(ctx, t); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("tenant_created", "svc", "tenants.create", "tenant_id", t.ID)
	return t, nil
}

func (s *TenantService) Update(ctx context.Context, id uint, in TenantInput) (*models.Tenant, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	t := &models.Tenant{ID: id, Name: in.Name, Address: in.Address}
	if err := s.tenants.UpdateTenant(ctx, t); err != nil {
		return nil, err
	}
	return s.tenants.FindTenantByID(ctx, id)
}

func (s *TenantService) Get(ctx context.Context, id uint) (*models.Tenant, error) {
	return s.tenants.FindTenantByID(ctx, id)
}

func (s *TenantService) List(ctx context.Context, q string, currentPage, perPage int) (Page[models.Tenant], error) {
	page, perPage := util.Normalize(currentPage, perPage)
	offset, limit := util.Calculate(page, perPage)

	tenants, total, err := s.tenants.ListTenants(ctx, repo.TenantFilter{Q: strings.TrimSpace(q), Offset: offset, Limit: limit})
	if err != nil {
		return Page[models.Tenant]{}, err
	}
	return Page[models.Tenant]{CurrentPage: page, PerPage: perPage, Total: total, Data: tenants}, nil
}

func (s *TenantService) Delete(ctx context.Context, id uint) error {
	if err := s.tenants.DeleteTenant(ctx, id); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("tenant_deleted", "svc", "tenants.delete", "tenant_id", id)
	return nil
}
