package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrEthical07/authgate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) *authgate.Engine {
	t.Helper()
	cfg := authgate.DefaultConfig()
	cfg.JWT.Secret = "0123456789abcdef0123456789abcdef"
	cfg.Password.BcryptCost = 4
	cfg.Security.RequireCaptcha = false
	cfg.Audit.Async = false

	engine, err := authgate.New().
		WithConfig(cfg).
		WithStore(authgate.NewMemoryStore(cfg.Collections)).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine
}

func adminToken(t *testing.T, engine *authgate.Engine) string {
	t.Helper()
	ctx := authgate.WithClientIP(context.Background(), "10.0.0.1")

	_, err := engine.CreateAdmin(ctx, authgate.CreateAdminInput{
		Email:    "root@example.com",
		Username: "root",
		Password: "correct-horse-battery",
	})
	require.NoError(t, err)

	csrf, err := engine.IssueCSRFToken(ctx)
	require.NoError(t, err)
	res, err := engine.Login(ctx, authgate.LoginInput{
		Email:     "root@example.com",
		Password:  "correct-horse-battery",
		Role:      authgate.RoleAdmin,
		CSRFToken: csrf,
	})
	require.NoError(t, err)
	return res.Token
}

func serve(h http.Handler, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGuard(t *testing.T) {
	engine := newEngine(t)
	token := adminToken(t, engine)

	var seen *authgate.Session
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := serve(Guard(engine)(ok), "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"success":false,"message":"Unauthorized"}`, rec.Body.String())
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := serve(Guard(engine)(ok), "Bearer nope")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("any role", func(t *testing.T) {
		rec := serve(Guard(engine)(ok), "Bearer "+token)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, authgate.RoleAdmin, seen.Role)
		assert.Equal(t, "root@example.com", seen.Email)
	})

	t.Run("admin only", func(t *testing.T) {
		rec := serve(RequireAdmin(engine)(ok), "bearer "+token)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("user only rejects admin", func(t *testing.T) {
		rec := serve(RequireUser(engine)(ok), "Bearer "+token)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("nil engine", func(t *testing.T) {
		rec := serve(Guard(nil)(ok), "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestClientInfo(t *testing.T) {
	var ip string
	h := ClientInfo(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ip = authgate.ClientIPFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:51234"
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "203.0.113.9", ip)

	req.RemoteAddr = "203.0.113.10"
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "203.0.113.10", ip)
}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		token string
		ok    bool
	}{
		"":              {"", false},
		"Bearer":        {"", false},
		"Bearer ":       {"", false},
		"Basic abc":     {"", false},
		"Bearer abc":    {"abc", true},
		"BEARER  abc  ": {"abc", true},
	}
	for in, want := range cases {
		got, ok := bearerToken(in)
		assert.Equal(t, want.ok, ok, in)
		assert.Equal(t, want.token, got, in)
	}
}
