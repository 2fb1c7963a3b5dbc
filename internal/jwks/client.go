package jwks

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

var (
	ErrMissingKid  = errors.New("token has no kid header")
	ErrKeyNotFound = errors.New("signing key not found")
	ErrRateLimited = errors.New("jwks fetch rate limit exceeded")
)

// Fetcher retrieves the current key set.
type Fetcher interface {
	Fetch(ctx context.Context) (Set, error)
}

// HTTPFetcher downloads a key set from a JWKS endpoint.
type HTTPFetcher struct {
	URL    string
	Client *http.Client
}

func (f HTTPFetcher) Fetch(ctx context.Context) (Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return Set{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Set{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Set{}, fmt.Errorf("jwks endpoint returned status: %d", resp.StatusCode)
	}

	var set Set
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return Set{}, fmt.Errorf("decode response: %w", err)
	}
	return set, nil
}

// SetSource is anything that can publish its own public keys.
type SetSource interface {
	PublicSet(ctx context.Context) (Set, error)
}

// LocalFetcher reads keys in-process instead of over HTTP.
type LocalFetcher struct {
	Source SetSource
}

func (f LocalFetcher) Fetch(ctx context.Context) (Set, error) {
	return f.Source.PublicSet(ctx)
}

type Options struct {
	CacheTTL          time.Duration
	RequestsPerMinute int
	FetchTimeout      time.Duration
	Now               func() time.Time
}

// Client resolves verification keys by kid. Keys are cached for CacheTTL and
// upstream fetches are limited to RequestsPerMinute. When the limit is hit or
// a fetch fails the client falls back to a stale cached key if it has one and
// otherwise fails fast. Concurrent misses share one upstream fetch and cached
// lookups never wait on it.
type Client struct {
	fetcher Fetcher
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
	limiter *rate.Limiter
	group   singleflight.Group

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewClient(f Fetcher, opts Options) *Client {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 10
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{
		fetcher: f,
		ttl:     opts.CacheTTL,
		timeout: opts.FetchTimeout,
		now:     opts.Now,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), opts.RequestsPerMinute),
		keys:    map[string]*rsa.PublicKey{},
	}
}

func (c *Client) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if kid == "" {
		return nil, ErrMissingKid
	}

	cached, ok, fresh := c.lookup(kid)
	if fresh {
		return cached, nil
	}

	if _, err, _ := c.group.Do("jwks", func() (any, error) {
		return nil, c.refresh(ctx)
	}); err != nil {
		if ok {
			return cached, nil
		}
		return nil, err
	}

	if pub, found, _ := c.lookup(kid); found {
		return pub, nil
	}
	return nil, ErrKeyNotFound
}

func (c *Client) lookup(kid string) (pub *rsa.PublicKey, ok, fresh bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pub, ok = c.keys[kid]
	return pub, ok, ok && c.now().Sub(c.fetchedAt) < c.ttl
}

// refresh replaces the cached set. The fetch is shared by every waiting
// caller, so it is not tied to the cancellation of the one that started it.
func (c *Client) refresh(ctx context.Context) error {
	if !c.limiter.AllowN(c.now(), 1) {
		return ErrRateLimited
	}

	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()
	set, err := c.fetcher.Fetch(fetchCtx)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kid == "" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := k.RSA()
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = c.now()
	c.mu.Unlock()
	return nil
}

// Keyfunc adapts the client for jwt.Parse.
func (c *Client) Keyfunc(ctx context.Context) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return c.Key(ctx, kid)
	}
}
