// Package service holds the session, user and tenant use cases.
package service

import (
	"context"
	"net/mail"
	"strconv"
	"strings"

	"github.com/Skotchmaster/auth_service/internal/domain"
	"github.com/Skotchmaster/auth_service/internal/events"
	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/repo"
	"github.com/Skotchmaster/auth_service/internal/search"
	"github.com/Skotchmaster/auth_service/internal/tokens"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	ListUsers(ctx context.Context, f repo.UserFilter) ([]models.User, int64, error)
	UpdateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id uint) error
}

type TenantStore interface {
	CreateTenant(ctx context.Context, t *models.Tenant) error
	FindTenantByID(ctx context.Context, id uint) (*models.Tenant, error)
	ListTenants(ctx context.Context, f repo.TenantFilter) ([]models.Tenant, int64, error)
	UpdateTenant(ctx context.Context, t *models.Tenant) error
	DeleteTenant(ctx context.Context, id uint) error
}

type TokenIssuer interface {
	IssueAccessToken(ctx context.Context, c tokens.Claims) (string, error)
	IssueRefreshToken(c tokens.Claims, id uint) (string, error)
	PersistRefreshToken(ctx context.Context, userID uint) (*models.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, id uint) error
	RevokeRefreshToken(ctx context.Context, id uint) (bool, error)
}

type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// SearchIndex mirrors users into the search cluster.
type SearchIndex interface {
	Index(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id uint) error
	Search(ctx context.Context, query string, from, size int) (int64, []search.UserDoc, error)
}

type Page[T any] struct {
	CurrentPage int   `json:"currentPage"`
	PerPage     int   `json:"perPage"`
	Total       int64 `json:"total"`
	Data        []T   `json:"data"`
}

func claimsFor(u *models.User) tokens.Claims {
	return tokens.Claims{
		Subject: strconv.FormatUint(uint64(u.ID), 10),
		Role:    u.Role,
		Tenant:  u.TenantRef(),
	}
}

// subjectID turns a sub claim back into a user id.
func subjectID(sub string) (uint, error) {
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || id == 0 {
		return 0, domain.ErrTokenInvalid
	}
	return uint(id), nil
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s[strings.LastIndex(s, "@"):], ".")
}

func publish(ctx context.Context, pub events.Publisher, t events.Type, u *models.User) {
	if pub == nil {
		return
	}
	e := events.New(t, u.ID)
	e.Email = u.Email
	e.Role = u.Role
	e.Tenant = u.TenantRef()
	if err := pub.Publish(ctx, e); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "type", string(t), "user_id", u.ID, "error", err)
	}
}

func indexUser(ctx context.Context, idx SearchIndex, u *models.User) {
	if idx == nil {
		return
	}
	if err := idx.Index(ctx, u); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "user_id", u.ID, "error", err)
	}
}

func unindexUser(ctx context.Context, idx SearchIndex, id uint) {
	if idx == nil {
		return
	}
	if err := idx.Delete(ctx, id); err != nil {
		logging.FromContext(ctx).Warn("search_unindex_failed", "user_id", id, "error", err)
	}
}
