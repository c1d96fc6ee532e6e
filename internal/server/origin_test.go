package server

import (
	"net/http/httptest"
	"testing"
)

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		origin   string
		want     bool
	}{
		{"no origin header", nil, "", true},
		{"same origin", nil, "http://chat.internal:3000", true},
		{"default localhost", nil, "http://localhost:5173", true},
		{"default loopback", nil, "http://127.0.0.1:8080", true},
		{"default rejects others", nil, "http://evil.example", false},
		{"default rejects lookalike", nil, "http://localhost.evil.example", false},
		{"explicit origin", []string{"https://app.example.com"}, "https://APP.example.com", true},
		{"wildcard subdomain", []string{"https://*.example.com"}, "https://a.example.com", true},
		{"wildcard mismatch", []string{"https://*.example.com"}, "https://example.org", false},
		{"any", []string{"*"}, "http://evil.example", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "http://chat.internal:3000/ws/chat", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := CheckOrigin(tt.patterns)(req); got != tt.want {
				t.Errorf("CheckOrigin(%v)(%q) = %v, want %v", tt.patterns, tt.origin, got, tt.want)
			}
		})
	}
}

func TestCORSDefaultsToLocalOrigins(t *testing.T) {
	srv := newTestServer(t, Config{})

	for origin, want := range map[string]bool{
		"http://localhost:5173": true,
		"http://evil.example":   false,
	} {
		req := httptest.NewRequest("OPTIONS", "/healthz", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", "GET")
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin") != ""; got != want {
			t.Errorf("%s allowed = %v, want %v", origin, got, want)
		}
	}
}
