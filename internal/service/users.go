package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/auth_service/internal/domain"
	"github.com/Skotchmaster/auth_service/internal/events"
	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/repo"
	"github.com/Skotchmaster/auth_service/internal/search"
	"github.com/Skotchmaster/auth_service/internal/util"
)

type CreateUserInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	TenantID  *uint  `json:"tenantId"`
}

func (in *CreateUserInput) Validate() error {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)

	v := &domain.ValidationError{}
	checkName(v, in.FirstName, in.LastName)
	checkEmail(v, in.Email)
	checkPassword(v, in.Password)
	checkRole(v, in.Role)
	return v.Err()
}

type UpdateUserInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TenantID  *uint  `json:"tenantId"`
}

func (in *UpdateUserInput) Validate() error {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)

	v := &domain.ValidationError{}
	checkName(v, in.FirstName, in.LastName)
	checkEmail(v, in.Email)
	checkRole(v, in.Role)
	return v.Err()
}

func checkRole(v *domain.ValidationError, role string) {
	switch {
	case role == "":
		v.Add("role", "Role is required!")
	case !models.ValidRole(role):
		v.Add("role", "Role must be one of customer, admin, manager")
	}
}

type ListUsersQuery struct {
	Q           string
	Role        string
	CurrentPage int
	PerPage     int
}

type UserService struct {
	users   UserStore
	tenants TenantStore
	hasher  Hasher
	events  events.Publisher
	index   SearchIndex
}

type UserDeps struct {
	Users   UserStore
	Tenants TenantStore
	Hasher  Hasher
	Events  events.Publisher
	// Index is optional; without it Search reports ErrSearchUnavailable.
	Index SearchIndex
}

func NewUserService(d UserDeps) *UserService {
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	return &UserService{
		users:   d.Users,
		tenants: d.Tenants,
		hasher:  d.Hasher,
		events:  d.Events,
		index:   d.Index,
	}
}

// checkTenant turns an unknown tenant id into a field error.
func (s *UserService) checkTenant(ctx context.Context, id *uint) error {
	if id == nil {
		return nil
	}
	if _, err := s.tenants.FindTenantByID(ctx, *id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			v := &domain.ValidationError{}
			v.Add("tenantId", "Tenant not found")
			return v
		}
		return err
	}
	return nil
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "users.create")

	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkTenant(ctx, in.TenantID); err != nil {
		return nil, err
	}

	pwHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Password:  pwHash,
		Role:      in.Role,
		TenantID:  in.TenantID,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	l.Info("user_created", "user_id", user.ID, "role", user.Role)

	publish(ctx, s.events, events.UserCreated, user)
	indexUser(ctx, s.index, user)
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id uint, in UpdateUserInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "users.update")

	if err := in.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTenant(ctx, in.TenantID); err != nil {
		return nil, err
	}

	user.FirstName = in.FirstName
	user.LastName = in.LastName
	user.Email = in.Email
	user.Role = in.Role
	user.TenantID = in.TenantID
	user.Tenant = nil
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	l.Info("user_updated", "user_id", user.ID)

	publish(ctx, s.events, events.UserUpdated, user)
	indexUser(ctx, s.index, user)
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	return s.users.FindUserByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, q ListUsersQuery) (Page[models.User], error) {
	page, perPage := util.Normalize(q.CurrentPage, q.PerPage)
	offset, limit := util.Calculate(page, perPage)

	users, total, err := s.users.ListUsers(ctx, repo.UserFilter{
		Q:      strings.TrimSpace(q.Q),
		Role:   q.Role,
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		return Page[models.User]{}, err
	}
	return Page[models.User]{CurrentPage: page, PerPage: perPage, Total: total, Data: users}, nil
}

func (s *UserService) Search(ctx context.Context, query string, currentPage, perPage int) (Page[search.UserDoc], error) {
	if s.index == nil {
		return Page[search.UserDoc]{}, domain.ErrSearchUnavailable
	}
	page, perPage := util.Normalize(currentPage, perPage)
	offset, limit := util.Calculate(page, perPage)

	total, docs, err := s.index.Search(ctx, strings.TrimSpace(query), offset, limit)
	if err != nil {
		return Page[search.UserDoc]{}, fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, err)
	}
	return Page[search.UserDoc]{CurrentPage: page, PerPage: perPage, Total: total, Data: docs}, nil
}

func (s *UserService) Delete(ctx context.Context, id uint) error {
	user, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("user_deleted", "svc", "users.delete", "user_id", id)

	publish(ctx, s.events, events.UserDeleted, user)
	unindexUser(ctx, s.index, id)
	return nil
}
