package authgate

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/authgate/jwt"
)

// Authenticate validates a session token and, when revocation is enabled, checks it
// has not been logged out. A "Bearer " prefix is accepted.
func (e *Engine) Authenticate(ctx context.Context, token string) (*Session, error) {
	if e == nil || e.jwt == nil {
		return nil, ErrEngineNotReady
	}
	token = strings.TrimSpace(token)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}

	claims, ok := e.jwt.Validate(token)
	if !ok {
		e.metricInc(MetricAuthenticateFailure)
		return nil, ErrUnauthorized
	}
	role := Role(claims.Role)
	if role != RoleUser && role != RoleAdmin {
		e.metricInc(MetricAuthenticateFailure)
		return nil, ErrUnauthorized
	}

	if e.denylist != nil {
		revoked, err := e.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, e.storeFailure(ctx, "authenticate", err)
		}
		if revoked {
			e.metricInc(MetricAuthenticateFailure)
			return nil, ErrUnauthorized
		}
	}

	e.metricInc(MetricAuthenticateSuccess)
	return sessionFromClaims(claims), nil
}

// Logout revokes a session token until its expiry. Without a revocation backend
// tokens are stateless and Logout only records the event.
func (e *Engine) Logout(ctx context.Context, token string) error {
	sess, err := e.Authenticate(ctx, token)
	if err != nil {
		return err
	}

	if e.denylist != nil {
		if err := e.denylist.Revoke(ctx, sess.TokenID, sess.ExpiresAt); err != nil {
			return e.storeFailure(ctx, "logout", err)
		}
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, AuditLogout, sess.Email)
	return nil
}

func sessionFromClaims(c *jwt.Claims) *Session {
	s := &Session{
		UserID:  c.UserID,
		Email:   c.Email,
		Role:    Role(c.Role),
		TokenID: c.ID,
	}
	if c.IssuedAt != nil {
		s.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	return s
}

// SessionTTL is the lifetime of newly issued session tokens.
func (e *Engine) SessionTTL() time.Duration {
	if e == nil || e.jwt == nil {
		return 0
	}
	return e.jwt.DefaultTTL()
}
