package server

import (
	"net/http"
	"net/url"
	"strings"
)

// DefaultOrigins are the browser origins allowed when none are configured.
var DefaultOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}

// CheckOrigin returns a websocket origin check that accepts requests without
// an Origin header, same-origin requests and origins matching one of the
// patterns. A pattern may hold one "*" wildcard; "*" alone accepts any
// origin. An empty list falls back to DefaultOrigins.
func CheckOrigin(patterns []string) func(r *http.Request) bool {
	if len(patterns) == 0 {
		patterns = DefaultOrigins
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}
		return originAllowed(origin, patterns)
	}
}

func originAllowed(origin string, patterns []string) bool {
	origin = strings.ToLower(origin)
	for _, p := range patterns {
		p = strings.ToLower(p)
		if p == "*" || p == origin {
			return true
		}
		prefix, suffix, ok := strings.Cut(p, "*")
		if ok && len(origin) >= len(prefix)+len(suffix) &&
			strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix) {
			return true
		}
	}
	return false
}
