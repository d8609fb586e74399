package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/MrEthical07/authgate"
)

type sessionContextKey struct{}

// SessionFromContext returns the session a Guard admitted.
func SessionFromContext(ctx context.Context) (*authgate.Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*authgate.Session)
	return s, ok
}

// Guard admits requests carrying a valid bearer token. When roles is non-empty the
// session role must be one of them; otherwise any role passes.
func Guard(engine *authgate.Engine, roles ...authgate.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				deny(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				deny(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			sess, err := engine.Authenticate(r.Context(), token)
			if err != nil {
				status, msg := authgate.Describe(err)
				deny(w, status, msg)
				return
			}
			if len(roles) > 0 && !slices.Contains(roles, sess.Role) {
				deny(w, http.StatusForbidden, "Forbidden")
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser admits only user sessions.
func RequireUser(engine *authgate.Engine) func(http.Handler) http.Handler {
	return Guard(engine, authgate.RoleUser)
}

// RequireAdmin admits only admin sessions.
func RequireAdmin(engine *authgate.Engine) func(http.Handler) http.Handler {
	return Guard(engine, authgate.RoleAdmin)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": msg})
}
