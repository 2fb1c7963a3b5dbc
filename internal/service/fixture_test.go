package service

import (
	"context"
	"sync"
	"testing"

	"github.com/Skotchmaster/auth_service/internal/db/dbtest"
	"github.com/Skotchmaster/auth_service/internal/events"
	"github.com/Skotchmaster/auth_service/internal/hash"
	"github.com/Skotchmaster/auth_service/internal/keys/keystest"
	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/repo"
	"github.com/Skotchmaster/auth_service/internal/search"
	"github.com/Skotchmaster/auth_service/internal/tokens"
)

var refreshSecret = []byte("test-refresh-secret")

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type memIndex struct {
	mu   sync.Mutex
	docs map[uint]search.UserDoc
}

func newMemIndex() *memIndex { return &memIndex{docs: map[uint]search.UserDoc{}} }

func (x *memIndex) Index(_ context.Context, u *models.User) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.docs[u.ID] = search.DocFromUser(u)
	return nil
}

func (x *memIndex) Delete(_ context.Context, id uint) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.docs, id)
	return nil
}

func (x *memIndex) Search(_ context.Context, _ string, from, size int) (int64, []search.UserDoc, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := make([]search.UserDoc, 0, len(x.docs))
	for _, d := range x.docs {
		out = append(out, d)
	}
	total := int64(len(out))
	if from >= len(out) {
		return total, []search.UserDoc{}, nil
	}
	end := from + size
	if end > len(out) {
		end = len(out)
	}
	return total, out[from:end], nil
}

type fixture struct {
	repo   *repo.GormRepo
	issuer *tokens.Issuer
	pub    *recordingPublisher
	index  *memIndex
	auth   *AuthService
	users  *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	r := repo.New(dbtest.Open(t))
	iss := tokens.NewIssuer(keystest.Provider(t), refreshSecret, r)
	pub := &recordingPublisher{}
	idx := newMemIndex()

	return &fixture{
		repo:   r,
		issuer: iss,
		pub:    pub,
		index:  idx,
		auth: NewAuthService(AuthDeps{
			Users:  r,
			Tokens: iss,
			Hasher: hash.Bcrypt{},
			Events: pub,
			Index:  idx,
		}),
		users: NewUserService(UserDeps{
			Users:   r,
			Tenants: r,
			Hasher:  hash.Bcrypt{},
			Events:  pub,
			Index:   idx,
		}),
	}
}

func (f *fixture) refreshRows(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := f.repo.DB.Model(&models.RefreshToken{}).Count(&n).Error; err != nil {
		t.Fatalf("count refresh rows: %v", err)
	}
	return n
}

func (f *fixture) refreshID(t *testing.T, raw string) uint {
	t.Helper()
	claims, err := f.issuer.ParseRefreshToken(raw)
	if err != nil {
		t.Fatalf("parse refresh token: %v", err)
	}
	id, err := claims.RefreshID()
	if err != nil {
		t.Fatalf("refresh id: %v", err)
	}
	return id
}

func johnDoe() RegisterInput {
	return RegisterInput{
		FirstName: "John",
		LastName:  "Doe",
		Email:     "john@example.com",
		Password:  "password123",
	}
}
