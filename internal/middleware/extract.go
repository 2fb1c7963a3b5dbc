package middleware

import (
	"net/http"
	"strings"
)

// ExtractToken picks the access token from the request. A Bearer header wins
// unless its token is empty or the literal "undefined" some clients send;
// otherwise the accessToken cookie is used.
func ExtractToken(header http.Header, cookies []*http.Cookie) (string, bool) {
	if h := header.Get("Authorization"); h != "" {
		scheme, tok, found := strings.Cut(h, " ")
		tok = strings.TrimSpace(tok)
		if found && strings.EqualFold(scheme, "Bearer") && tok != "" && tok != "undefined" {
			return tok, true
		}
	}
	for _, c := range cookies {
		if c.Name == AccessCookie && c.Value != "" {
			return c.Value, true
		}
	}
	return "", false
}
