package authgate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/authgate/internal/rate"
	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/store"
)

type rehasher interface {
	NeedsRehash(hashed string) bool
}

// Login authenticates against the collection selected by in.Role and returns a signed
// session token. Admin logins never read users and user logins never read admins.
//
// A correct password on an unverified user yields ErrEmailNotVerified; every other
// credential failure, including an unknown email, yields ErrInvalidCredentials.
func (e *Engine) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	start := time.Now()
	defer func() {
		if e != nil && e.metrics != nil {
			e.metrics.Observe(MetricLoginLatency, time.Since(start))
		}
	}()

	if err := e.guard(ctx, "login", in.CSRFToken, in.CaptchaToken, true); err != nil {
		return nil, err
	}
	if in.Role != RoleUser && in.Role != RoleAdmin {
		e.metricInc(MetricValidationRejected)
		return nil, ErrInvalidRole
	}
	in.Email = normalizeEmail(in.Email)
	if err := e.check(in); err != nil {
		return nil, err
	}

	ip := ClientIPFromContext(ctx)
	if e.limiter != nil {
		if err := e.limiter.CheckLogin(ctx, in.Email, ip); err != nil {
			return nil, e.limitFailure(ctx, "login", MetricLoginRateLimited, err)
		}
	}

	acct, found, err := e.findAccount(ctx, in.Role, in.Email)
	if err != nil {
		return nil, e.storeFailure(ctx, "login", err)
	}

	var passwordOK bool
	if found {
		passwordOK = e.hasher.Verify(in.Password, acct.Password)
	} else {
		e.hasher.Verify(in.Password, e.dummyHash)
	}
	if !passwordOK {
		e.recordLoginFailure(ctx, in.Role, in.Email, ip)
		return nil, ErrInvalidCredentials
	}

	if in.Role == RoleUser && !acct.Verified {
		e.metricInc(MetricLoginUnverified)
		return nil, ErrEmailNotVerified
	}

	if e.limiter != nil {
		if err := e.limiter.ResetLogin(ctx, in.Email); err != nil {
			e.logger.WarnContext(ctx, "login limiter reset failed", slog.String("error", err.Error()))
		}
	}
	e.maybeRehash(ctx, in.Role, acct, in.Password)

	token, err := e.jwt.Issue(jwt.Identity{
		ID:    acct.ID,
		Email: acct.Email,
		Role:  string(in.Role),
	}, 0)
	if err != nil {
		e.logger.ErrorContext(ctx, "session token signing failed", slog.String("error", err.Error()))
		return nil, ErrHashing.wrap(err)
	}

	if in.Role == RoleAdmin {
		e.metricInc(MetricAdminLoginSuccess)
		e.emitAudit(ctx, AuditAdminLogin, acct.Email)
	} else {
		e.metricInc(MetricLoginSuccess)
		e.emitAudit(ctx, AuditLogin, acct.Email)
	}

	return &LoginResult{Token: token, User: acct.public()}, nil
}

func (e *Engine) recordLoginFailure(ctx context.Context, role Role, email, ip string) {
	if role == RoleAdmin {
		e.metricInc(MetricAdminLoginFailure)
	} else {
		e.metricInc(MetricLoginFailure)
	}
	if e.limiter == nil {
		return
	}
	if err := e.limiter.IncrementLogin(ctx, email, ip); err != nil {
		e.logger.WarnContext(ctx, "login limiter increment failed", slog.String("error", err.Error()))
	}
}

// maybeRehash upgrades a stored hash made with an older algorithm or a lower cost.
// The update is conditional on the old hash so a concurrent password reset wins.
func (e *Engine) maybeRehash(ctx context.Context, role Role, acct account, plain string) {
	if !e.config.Password.RehashOnLogin {
		return
	}
	r, ok := e.hasher.(rehasher)
	if !ok || !r.NeedsRehash(acct.Password) {
		return
	}
	hashed, err := e.hasher.Hash(plain)
	if err != nil {
		e.logger.WarnContext(ctx, "password rehash failed", slog.String("error", err.Error()))
		return
	}
	_, err = e.store.Update(ctx, e.accountCollection(role),
		store.Filter{"_id": acct.ID, "password": acct.Password},
		store.Patch{"password": hashed, "updated_at": e.now()})
	if err != nil {
		e.logger.WarnContext(ctx, "password rehash write failed", slog.String("error", err.Error()))
		return
	}
	e.metricInc(MetricPasswordRehashed)
}

// limitFailure maps limiter errors: an exhausted budget is ErrRateLimited, a Redis
// failure is treated like a store outage so the limiter fails closed.
func (e *Engine) limitFailure(ctx context.Context, op string, metric MetricID, err error) error {
	if errors.Is(err, rate.ErrRateLimited) {
		e.metricInc(metric)
		return ErrRateLimited
	}
	return e.storeFailure(ctx, op, err)
}
