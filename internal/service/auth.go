package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/auth_service/internal/domain"
	"github.com/Skotchmaster/auth_service/internal/events"
	"github.com/Skotchmaster/auth_service/internal/guard"
	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/tokens"
)

const (
	minPasswordLen = 8
	// bcrypt only accepts up to 72 bytes.
	maxPasswordLen = 72
)

type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (in *RegisterInput) Validate() error {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)

	v := &domain.ValidationError{}
	checkName(v, in.FirstName, in.LastName)
	checkEmail(v, in.Email)
	checkPassword(v, in.Password)
	return v.Err()
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in *LoginInput) Validate() error {
	in.Email = strings.TrimSpace(in.Email)

	v := &domain.ValidationError{}
	checkEmail(v, in.Email)
	if strings.TrimSpace(in.Password) == "" {
		v.Add("password", "password is required")
	}
	return v.Err()
}

func checkName(v *domain.ValidationError, first, last string) {
	if first == "" {
		v.Add("firstName", "First name is required!")
	}
	if last == "" {
		v.Add("lastName", "Last name is required!")
	}
}

func checkEmail(v *domain.ValidationError, email string) {
	switch {
	case email == "":
		v.Add("email", "Email is Required")
	case !validEmail(email):
		v.Add("email", "email is invalid")
	}
}

func checkPassword(v *domain.ValidationError, password string) {
	switch {
	case len(password) < minPasswordLen:
		v.Add("password", "Password length should be at least 8 chars!")
	case len(password) > maxPasswordLen:
		v.Add("password", "Password length should be at most 72 bytes!")
	}
}

// Session is a freshly minted token pair.
type Session struct {
	UserID       uint
	AccessToken  string
	RefreshToken string
}

type AuthService struct {
	users  UserStore
	tokens TokenIssuer
	hasher Hasher
	guard  guard.Guard
	events events.Publisher
	index  SearchIndex
}

type AuthDeps struct {
	Users  UserStore
	Tokens TokenIssuer
	Hasher Hasher
	Guard  guard.Guard
	Events events.Publisher
	// Index is optional.
	Index SearchIndex
}

func NewAuthService(d AuthDeps) *AuthService {
	if d.Guard == nil {
		d.Guard = guard.NewMemory()
	}
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	return &AuthService{
		users:  d.Users,
		tokens: d.Tokens,
		hasher: d.Hasher,
		guard:  d.Guard,
		events: d.Events,
		index:  d.Index,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if err := in.Validate(); err != nil {
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
		Role:      models.RoleCustomer,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			l.Warn("register_failed", "reason", "duplicate_email")
		}
		return nil, err
	}
	l.Info("user_registered", "user_id", user.ID)

	sess, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.events, events.UserRegistered, user)
	indexUser(ctx, s.index, user)
	return sess, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if err := in.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.FindUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			l.Warn("login_failed", "reason", "unknown_email")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.Compare(user.Password, in.Password) {
		l.Warn("login_failed", "reason", "password_mismatch", "user_id", user.ID)
		return nil, domain.ErrInvalidCredentials
	}

	sess, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}
	l.Info("user_logged_in", "user_id", user.ID)

	publish(ctx, s.events, events.UserLoggedIn, user)
	return sess, nil
}

// Self loads the caller. A token for a user that no longer exists is
// treated as no authentication at all.
func (s *AuthService) Self(ctx context.Context, c tokens.Claims) (*models.User, error) {
	id, err := subjectID(c.Subject)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	return user, nil
}

// Refresh rotates the refresh token identified by oldID. The new row is
// written before the old one is removed, and the rotation only counts if
// this call is the one that removed the old row.
func (s *AuthService) Refresh(ctx context.Context, c tokens.Claims, oldID uint) (*Session, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh", "refresh_id", oldID)

	userID, err := subjectID(c.Subject)
	if err != nil {
		return nil, err
	}

	release, err := s.guard.Acquire(ctx, oldID)
	if err != nil {
		if errors.Is(err, guard.ErrHeld) {
			l.Warn("refresh_rejected", "reason", "rotation_in_progress")
			return nil, fmt.Errorf("%w: %w", domain.ErrTokenRevoked, err)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	defer release()

	row, err := s.tokens.PersistRefreshToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	access, err := s.tokens.IssueAccessToken(ctx, c)
	if err != nil {
		s.discardRow(ctx, row.ID)
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(c, row.ID)
	if err != nil {
		s.discardRow(ctx, row.ID)
		return nil, err
	}

	deleted, err := s.tokens.RevokeRefreshToken(ctx, oldID)
	if err != nil {
		s.discardRow(ctx, row.ID)
		return nil, err
	}
	if !deleted {
		s.discardRow(ctx, row.ID)
		l.Warn("refresh_rejected", "reason", "already_rotated")
		return nil, domain.ErrTokenRevoked
	}
	l.Info("session_refreshed", "user_id", userID, "new_refresh_id", row.ID)

	s.publishFor(ctx, events.SessionRefreshed, userID, c)
	return &Session{UserID: userID, AccessToken: access, RefreshToken: refresh}, nil
}

// Logout drops the refresh row. It succeeds even if the row is already gone.
func (s *AuthService) Logout(ctx context.Context, c tokens.Claims, refreshID uint) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	if err := s.tokens.DeleteRefreshToken(ctx, refreshID); err != nil {
		return err
	}
	l.Info("user_logged_out", "sub", c.Subject, "refresh_id", refreshID)

	if userID, err := subjectID(c.Subject); err == nil {
		s.publishFor(ctx, events.UserLoggedOut, userID, c)
	}
	return nil
}

// openSession persists a refresh row first and then mints both tokens.
func (s *AuthService) openSession(ctx context.Context, u *models.User) (*Session, error) {
	claims := claimsFor(u)

	row, err := s.tokens.PersistRefreshToken(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	access, err := s.tokens.IssueAccessToken(ctx, claims)
	if err != nil {
		s.discardRow(ctx, row.ID)
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(claims, row.ID)
	if err != nil {
		s.discardRow(ctx, row.ID)
		return nil, err
	}
	return &Session{UserID: u.ID, AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) discardRow(ctx context.Context, id uint) {
	if err := s.tokens.DeleteRefreshToken(context.WithoutCancel(ctx), id); err != nil {
		logging.FromContext(ctx).Error("refresh_row_cleanup_failed", "refresh_id", id, "error", err)
	}
}

func (s *AuthService) publishFor(ctx context.Context, t events.Type, userID uint, c tokens.Claims) {
	e := events.New(t, userID)
	e.Role = c.Role
	e.Tenant = c.Tenant
	if err := s.events.Publish(ctx, e); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "type", string(t), "user_id", userID, "error", err)
	}
}
