package keys

import (
	"context"
	"crypto/rsa"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Skotchmaster/auth_service/internal/domain"
	"github.com/Skotchmaster/auth_service/internal/jwks"
)

// Source yields PEM-encoded private key material.
type Source interface {
	Load(ctx context.Context) ([]byte, error)
}

// Provider exposes the access-token signing key and its public half.
// A successfully parsed key is kept for the life of the process; failed loads
// are retried on the next call.
type Provider struct {
	src Source

	mu  sync.Mutex
	key *rsa.PrivateKey
	kid string
}

func NewProvider(src Source) *Provider {
	return &Provider{src: src}
}

func (p *Provider) load(ctx context.Context) (*rsa.PrivateKey, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.key != nil {
		return p.key, p.kid, nil
	}

	raw, err := p.src.Load(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", domain.ErrKeyUnavailable, err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(raw)
	if err != nil {
		return nil, "", fmt.Errorf("%w: parse private key: %w", domain.ErrKeyUnavailable, err)
	}

	p.key = key
	p.kid = jwks.Thumbprint(&key.PublicKey)
	return p.key, p.kid, nil
}

func (p *Provider) SigningKey(ctx context.Context) (*rsa.PrivateKey, error) {
	key, _, err := p.load(ctx)
	return key, err
}

func (p *Provider) KeyID(ctx context.Context) (string, error) {
	_, kid, err := p.load(ctx)
	return kid, err
}

func (p *Provider) PublicSet(ctx context.Context) (jwks.Set, error) {
	key, kid, err := p.load(ctx)
	if err != nil {
		return jwks.Set{}, err
	}
	return jwks.Set{Keys: []jwks.Key{jwks.FromRSA(&key.PublicKey, kid)}}, nil
}
