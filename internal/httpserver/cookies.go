package httpserver

import (
	"net/http"
	"time"

	"github.com/Skotchmaster/auth_service/internal/middleware"
	"github.com/Skotchmaster/auth_service/internal/tokens"
)

// Cookies builds the session cookies. Both are host-scoped to Domain and
// never readable from scripts.
type Cookies struct {
	Domain string
	Secure bool
}

func (c Cookies) create(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (c Cookies) Access(token string) *http.Cookie {
	return c.create(middleware.AccessCookie, token, tokens.AccessTTL)
}

func (c Cookies) Refresh(token string) *http.Cookie {
	return c.create(middleware.RefreshCookie, token, tokens.RefreshTTL)
}

func (c Cookies) clear(name string) *http.Cookie {
	ck := c.create(name, "", 0)
	ck.MaxAge = -1
	ck.Expires = time.Unix(0, 0)
	return ck
}

func (c Cookies) ClearAccess() *http.Cookie { return c.clear(middleware.AccessCookie) }
func (c Cookies) ClearRefresh() *http.Cookie { return c.clear(middleware.RefreshCookie) }
