// Package keystest provides RSA key material for tests.
package keystest

import (
	"context"
	"crypto/rsa"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Skotchmaster/auth_service/internal/keys"
)

var (
	once    sync.Once
	privPEM []byte
	genErr  error
)

// PEM returns a PKCS#1 private key generated once per test binary.
func PEM(t testing.TB) []byte {
	t.Helper()
	once.Do(func() {
		privPEM, _, genErr = keys.Generate(2048)
	})
	if genErr != nil {
		t.Fatalf("generate test key: %v", genErr)
	}
	return privPEM
}

func PrivateKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	key, err := jwt.ParseRSAPrivateKeyFromPEM(PEM(t))
	if err != nil {
		t.Fatalf("parse test key: %v", err)
	}
	return key
}

type staticSource []byte

func (s staticSource) Load(context.Context) ([]byte, error) { return s, nil }

// Provider returns a key provider backed by the shared test key.
func Provider(t testing.TB) *keys.Provider {
	t.Helper()
	return keys.NewProvider(staticSource(PEM(t)))
}
