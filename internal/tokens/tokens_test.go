package tokens

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/auth_service/internal/domain"
	"github.com/Skotchmaster/auth_service/internal/keys"
	"github.com/Skotchmaster/auth_service/internal/keys/keystest"
	"github.com/Skotchmaster/auth_service/internal/models"
)

var secret = []byte("refresh-secret")

type memStore struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]models.RefreshToken
	err    error
}

func newMemStore() *memStore { return &memStore{rows: map[uint]models.RefreshToken{}} }

func (s *memStore) CreateRefreshToken(_ context.Context, t *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.nextID++
	t.ID = s.nextID
	s.rows[t.ID] = *t
	return nil
}

func (s *memStore) DeleteRefreshToken(_ context.Context, id uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.rows[id]
	delete(s.rows, id)
	return ok, nil
}

type brokenSource struct{}

func (brokenSource) Load(context.Context) ([]byte, error) { return nil, errors.New("no such file") }

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func payload(t *testing.T, raw string) map[string]any {
	t.Helper()
	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)
	b, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	return m
}

func TestIssueAccessToken(t *testing.T) {
	p := keystest.Provider(t)
	iss := NewIssuer(p, secret, newMemStore())
	now := time.Now().Truncate(time.Second)
	iss.Now = fixedClock(now)

	raw, err := iss.IssueAccessToken(context.Background(), Claims{Subject: "7", Role: models.RoleCustomer})
	require.NoError(t, err)

	pub := &keystest.PrivateKey(t).PublicKey
	kid, err := p.KeyID(context.Background())
	require.NoError(t, err)

	var seenKid string
	claims, err := ParseAccessToken(raw, func(tok *jwt.Token) (any, error) {
		seenKid, _ = tok.Header["kid"].(string)
		return pub, nil
	}, jwt.WithTimeFunc(iss.Now))
	require.NoError(t, err)

	assert.Equal(t, kid, seenKid)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, models.RoleCustomer, claims.Role)
	assert.Equal(t, IssuerName, claims.Issuer)
	assert.Equal(t, now.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, now.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())

	_, hasTenant := payload(t, raw)["tenant"]
	assert.False(t, hasTenant, "empty tenant must be omitted")
}

func TestIssueAccessToken_CarriesTenant(t *testing.T) {
	iss := NewIssuer(keystest.Provider(t), secret, newMemStore())
	raw, err := iss.IssueAccessToken(context.Background(), Claims{Subject: "1", Role: models.RoleManager, Tenant: "3"})
	require.NoError(t, err)
	assert.Equal(t, "3", payload(t, raw)["tenant"])
}

func TestIssueAccessToken_KeyFailure(t *testing.T) {
	iss := NewIssuer(keys.NewProvider(brokenSource{}), secret, newMemStore())
	raw, err := iss.IssueAccessToken(context.Background(), Claims{Subject: "1", Role: models.RoleCustomer})
	assert.Empty(t, raw)
	assert.ErrorIs(t, err, domain.ErrSigningKey)
	assert.ErrorIs(t, err, domain.ErrKeyUnavailable)
}

func TestParseAccessToken_Rejects(t *testing.T) {
	iss := NewIssuer(keystest.Provider(t), secret, newMemStore())
	pub := &keystest.PrivateKey(t).PublicKey
	keyfunc := func(*jwt.Token) (any, error) { return pub, nil }

	t.Run("expired", func(t *testing.T) {
		iss.Now = fixedClock(time.Now().Add(-2 * time.Hour))
		raw, err := iss.IssueAccessToken(context.Background(), Claims{Subject: "1"})
		require.NoError(t, err)
		_, err = ParseAccessToken(raw, keyfunc)
		assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	})

	t.Run("hs256 with refresh secret", func(t *testing.T) {
		iss.Now = time.Now
		raw, err := iss.IssueRefreshToken(Claims{Subject: "1"}, 1)
		require.NoError(t, err)
		_, err = ParseAccessToken(raw, keyfunc)
		assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, AccessClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "someone-else",
				Subject:   "1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		raw, err := tok.SignedString(keystest.PrivateKey(t))
		require.NoError(t, err)
		_, err = ParseAccessToken(raw, keyfunc)
		assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	})

	t.Run("keyfunc error", func(t *testing.T) {
		raw, err := iss.IssueAccessToken(context.Background(), Claims{Subject: "1"})
		require.NoError(t, err)
		_, err = ParseAccessToken(raw, func(*jwt.Token) (any, error) { return nil, errors.New("rate limited") })
		assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	})
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	iss := NewIssuer(keystest.Provider(t), secret, newMemStore())
	now := time.Now().Truncate(time.Second)
	iss.Now = fixedClock(now)

	raw, err := iss.IssueRefreshToken(Claims{Subject: "5", Role: models.RoleAdmin, Tenant: "2"}, 42)
	require.NoError(t, err)

	claims, err := iss.ParseRefreshToken(raw)
	require.NoError(t, err)
	id, err := claims.RefreshID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
	assert.Equal(t, "42", claims.ID)
	assert.Equal(t, Claims{Subject: "5", Role: models.RoleAdmin, Tenant: "2"}, claims.Claims())
	assert.Equal(t, now.Add(RefreshTTL).Unix(), claims.ExpiresAt.Unix())
}

func TestParseRefreshToken_Rejects(t *testing.T) {
	iss := NewIssuer(keystest.Provider(t), secret, newMemStore())

	raw, err := iss.IssueRefreshToken(Claims{Subject: "1"}, 1)
	require.NoError(t, err)

	_, err = ParseRefreshToken(raw, []byte("other-secret"))
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	iss.Now = fixedClock(time.Now().Add(RefreshTTL + time.Minute))
	_, err = iss.ParseRefreshToken(raw)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	iss.Now = time.Now
	access, err := iss.IssueAccessToken(context.Background(), Claims{Subject: "1"})
	require.NoError(t, err)
	_, err = iss.ParseRefreshToken(access)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	_, err = iss.ParseRefreshToken("not.a.jwt")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	noJTI := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    IssuerName,
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := noJTI.SignedString(secret)
	require.NoError(t, err)
	_, err = iss.ParseRefreshToken(s)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestIssueRefreshToken_EmptySecret(t *testing.T) {
	iss := NewIssuer(keystest.Provider(t), nil, newMemStore())
	_, err := iss.IssueRefreshToken(Claims{Subject: "1"}, 1)
	assert.ErrorIs(t, err, domain.ErrSigningKey)
}

func TestPersistAndDeleteRefreshToken(t *testing.T) {
	store := newMemStore()
	iss := NewIssuer(keystest.Provider(t), secret, store)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	iss.Now = fixedClock(now)

	row, err := iss.PersistRefreshToken(context.Background(), 9)
	require.NoError(t, err)
	assert.NotZero(t, row.ID)
	assert.Equal(t, uint(9), row.UserID)
	assert.Equal(t, int64(31_536_000_000), row.ExpiresAt.Sub(now).Milliseconds())

	second, err := iss.PersistRefreshToken(context.Background(), 9)
	require.NoError(t, err)
	revoked, err := iss.RevokeRefreshToken(context.Background(), second.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
	revoked, err = iss.RevokeRefreshToken(context.Background(), second.ID)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, iss.DeleteRefreshToken(context.Background(), row.ID))
	assert.Empty(t, store.rows)
	require.NoError(t, iss.DeleteRefreshToken(context.Background(), row.ID), "deleting twice is fine")

	store.err = domain.ErrPersistence
	_, err = iss.PersistRefreshToken(context.Background(), 9)
	assert.ErrorIs(t, err, domain.ErrPersistence)
}
