// Package tokens mints and parses the access/refresh token pair.
//
// Access tokens are RS256 and carry the signing key's kid so that any service
// holding the JWKS can verify them. Refresh tokens are HS256 with a shared
// secret; their jti is the id of a refresh_tokens row and they are only valid
// while that row exists.
package tokens

import (
	"context"
	"crypto/rsa"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Skotchmaster/auth_service/internal/domain"
	"github.com/Skotchmaster/auth_service/internal/models"
)

const (
	IssuerName = "auth-service"
	AccessTTL  = time.Hour
	RefreshTTL = 31_536_000_000 * time.Millisecond
)

// Claims is what the issuer needs to know about the user.
type Claims struct {
	Subject string
	Role    string
	Tenant  string
}

type AccessClaims struct {
	Role   string `json:"role"`
	Tenant string `json:"tenant,omitempty"`
	jwt.RegisteredClaims
}

func (c *AccessClaims) Claims() Claims {
	return Claims{Subject: c.Subject, Role: c.Role, Tenant: c.Tenant}
}

type RefreshClaims struct {
	Role   string `json:"role"`
	Tenant string `json:"tenant,omitempty"`
	jwt.RegisteredClaims
}

func (c *RefreshClaims) Claims() Claims {
	return Claims{Subject: c.Subject, Role: c.Role, Tenant: c.Tenant}
}

// RefreshID is the refresh_tokens row id carried in jti.
func (c *RefreshClaims) RefreshID() (uint, error) {
	id, err := strconv.ParseUint(c.ID, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: malformed jti %q", domain.ErrTokenInvalid, c.ID)
	}
	return uint(id), nil
}

type SigningKeys interface {
	SigningKey(ctx context.Context) (*rsa.PrivateKey, error)
	KeyID(ctx context.Context) (string, error)
}

type RefreshStore interface {
	CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error
	DeleteRefreshToken(ctx context.Context, id uint) (bool, error)
}

type Issuer struct {
	keys          SigningKeys
	refreshSecret []byte
	store         RefreshStore

	// Now is the clock used for iat/exp and row expiry.
	Now func() time.Time
}

func NewIssuer(keys SigningKeys, refreshSecret []byte, store RefreshStore) *Issuer {
	return &Issuer{
		keys:          keys,
		refreshSecret: refreshSecret,
		store:         store,
		Now:           time.Now,
	}
}

func (i *Issuer) IssueAccessToken(ctx context.Context, c Claims) (string, error) {
	key, err := i.keys.SigningKey(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrSigningKey, err)
	}
	kid, err := i.keys.KeyID(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrSigningKey, err)
	}

	now := i.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, AccessClaims{
		Role:   c.Role,
		Tenant: c.Tenant,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    IssuerName,
			Subject:   c.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTTL)),
		},
	})
	tok.Header["kid"] = kid

	signed, err := tok.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("%w: sign access token: %w", domain.ErrSigningKey, err)
	}
	return signed, nil
}

// IssueRefreshToken binds the token to an already persisted row.
func (i *Issuer) IssueRefreshToken(c Claims, id uint) (string, error) {
	if len(i.refreshSecret) == 0 {
		return "", fmt.Errorf("%w: refresh secret is empty", domain.ErrSigningKey)
	}

	now := i.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		Role:   c.Role,
		Tenant: c.Tenant,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    IssuerName,
			Subject:   c.Subject,
			ID:        strconv.FormatUint(uint64(id), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(RefreshTTL)),
		},
	})

	signed, err := tok.SignedString(i.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("%w: sign refresh token: %w", domain.ErrSigningKey, err)
	}
	return signed, nil
}

func (i *Issuer) PersistRefreshToken(ctx context.Context, userID uint) (*models.RefreshToken, error) {
	row := &models.RefreshToken{
		UserID:    userID,
		ExpiresAt: i.Now().Add(RefreshTTL),
	}
	if err := i.store.CreateRefreshToken(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// DeleteRefreshToken removes the row; a missing row is not an error.
func (i *Issuer) DeleteRefreshToken(ctx context.Context, id uint) error {
	_, err := i.RevokeRefreshToken(ctx, id)
	return err
}

// RevokeRefreshToken removes the row and reports whether it was still there.
func (i *Issuer) RevokeRefreshToken(ctx context.Context, id uint) (bool, error) {
	return i.store.DeleteRefreshToken(ctx, id)
}

func (i *Issuer) ParseRefreshToken(raw string) (*RefreshClaims, error) {
	return ParseRefreshToken(raw, i.refreshSecret, jwt.WithTimeFunc(i.Now))
}

func ParseRefreshToken(raw string, secret []byte, opts ...jwt.ParserOption) (*RefreshClaims, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: refresh secret is empty", domain.ErrTokenInvalid)
	}
	claims := &RefreshClaims{}
	opts = append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(IssuerName),
		jwt.WithExpirationRequired(),
	}, opts...)

	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTokenInvalid, err)
	}
	if _, err := claims.RefreshID(); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseAccessToken verifies an RS256 access token with keys resolved by keyfunc.
func ParseAccessToken(raw string, keyfunc jwt.Keyfunc, opts ...jwt.ParserOption) (*AccessClaims, error) {
	claims := &AccessClaims{}
	opts = append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(IssuerName),
		jwt.WithExpirationRequired(),
	}, opts...)

	_, err := jwt.ParseWithClaims(raw, claims, keyfunc, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTokenInvalid, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub", domain.ErrTokenInvalid)
	}
	return claims, nil
}
