package httpserver

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCORS(t *testing.T) {
	router := newTestRouter(t, Deps{CORS: CORSConfig{
		Origins:           []string{"https://shop.example.com"},
		AllowAnyLocalhost: true,
	}})

	tests := []struct {
		name    string
		origin  string
		code    int
		allowed bool
	}{
		{"no origin", "", http.StatusOK, false},
		{"allow-listed", "https://shop.example.com", http.StatusOK, true},
		{"localhost any port", "http://localhost:5173", http.StatusOK, true},
		{"loopback", "http://127.0.0.1", http.StatusOK, true},
		{"foreign", "https://evil.example.com", http.StatusForbidden, false},
		{"localhost lookalike", "http://localhost.evil.com", http.StatusForbidden, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.origin != "" {
				headers["Origin"] = tt.origin
			}
			rec := do(router, http.MethodGet, "/health", "", headers)
			require.Equal(t, tt.code, rec.Code)
			if tt.allowed {
				require.Equal(t, tt.origin, rec.Header().Get("Access-Control-Allow-Origin"))
			} else {
				require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestCORS_LocalhostRequiresFlag(t *testing.T) {
	cfg := CORSConfig{Origins: []string{"https://shop.example.com"}}
	require.False(t, cfg.allowed("http://localhost:3000"))
	cfg.AllowAnyLocalhost = true
	require.True(t, cfg.allowed("http://localhost:3000"))
	require.True(t, cfg.allowed("https://127.0.0.1:8443"))
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	router := newTestRouter(t, Deps{})

	rec := do(router, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
	require.NotEmpty(t, rec.Header().Get(headerRequestID))

	rec = do(router, http.MethodGet, "/healthz", "", map[string]string{headerRequestID: "req-42"})
	require.Equal(t, "req-42", rec.Header().Get(headerRequestID))
}

func TestReadyz_WithoutDatabase(t *testing.T) {
	router := newTestRouter(t, Deps{})
	rec := do(router, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBuildRouter_RequiresDeps(t *testing.T) {
	_, err := buildRouter(nil, nil, Deps{})
	require.Error(t, err)
}
