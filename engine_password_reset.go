package authgate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/authgate/internal/purpose"
	"github.com/MrEthical07/authgate/mail"
	"github.com/MrEthical07/authgate/store"
)

// ForgotPassword issues a password-reset token and emails it. It succeeds whether or
// not an account exists for the address, so callers cannot probe for accounts.
func (e *Engine) ForgotPassword(ctx context.Context, in ForgotPasswordInput) error {
	if err := e.guard(ctx, "forgot_password", in.CSRFToken, in.CaptchaToken, true); err != nil {
		return err
	}
	in.Email = normalizeEmail(in.Email)
	if err := e.check(in); err != nil {
		return err
	}

	if e.limiter != nil {
		if err := e.limiter.AllowForgotPassword(ctx, in.Email, ClientIPFromContext(ctx)); err != nil {
			return e.limitFailure(ctx, "forgot_password", MetricPasswordResetRateLimited, err)
		}
	}

	token, err := e.tokens.IssuePasswordReset(ctx, in.Email)
	if err != nil {
		return e.storeFailure(ctx, "forgot_password", err)
	}
	e.sendMail(ctx, "forgot_password", mail.PasswordResetMessage(in.Email, token))

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, AuditForgotPassword, in.Email)
	return nil
}

// ResetPassword redeems a password-reset token and replaces the user's password.
//
// The token is looked up before hashing so bogus tokens cost no hash, and consumed
// with a conditional update after hashing so two concurrent resets with the same token
// cannot both succeed.
func (e *Engine) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	const op = "reset_password"
	if err := e.guard(ctx, op, in.CSRFToken, in.CaptchaToken, true); err != nil {
		return err
	}
	in.Email = normalizeEmail(in.Email)
	if err := e.check(in); err != nil {
		return err
	}
	if err := e.checkPasswordPolicy(in.NewPassword); err != nil {
		return err
	}

	tok, err := e.tokens.Peek(ctx, in.Email, in.Token, purpose.PasswordReset)
	if errors.Is(err, purpose.ErrTokenNotFound) {
		e.metricInc(MetricPasswordResetFailure)
		return ErrInvalidToken
	}
	if err != nil {
		return e.storeFailure(ctx, op, err)
	}
	if tok.Expired(e.tokens.Now()) {
		e.metricInc(MetricPasswordResetFailure)
		return ErrTokenExpired
	}

	hashed, err := e.hash(ctx, op, in.NewPassword)
	if err != nil {
		return err
	}

	usedAt, consumed, err := e.tokens.Redeem(ctx, in.Email, in.Token, purpose.PasswordReset)
	if err != nil {
		return e.storeFailure(ctx, op, err)
	}
	if !consumed {
		e.metricInc(MetricPasswordResetFailure)
		return ErrInvalidToken
	}

	n, err := e.store.Update(ctx, e.config.Collections.Users,
		store.Filter{"email": in.Email, "deleted_at": nil},
		store.Patch{"password": hashed, "updated_at": e.now()})
	if err != nil {
		e.releaseToken(ctx, op, in.Email, in.Token, purpose.PasswordReset, usedAt)
		return e.storeFailure(ctx, op, err)
	}
	if n == 0 {
		e.logger.DebugContext(ctx, "reset token redeemed for address without account")
	}

	if e.limiter != nil {
		if err := e.limiter.ResetLogin(ctx, in.Email); err != nil {
			e.logger.WarnContext(ctx, "login limiter reset failed", slog.String("error", err.Error()))
		}
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, AuditResetPassword, in.Email)
	return nil
}

// releaseToken undoes a redemption whose follow-up write failed, so the caller can retry
// with the same token.
func (e *Engine) releaseToken(ctx context.Context, op, email, token string, p purpose.Purpose, usedAt time.Time) {
	released, err := e.tokens.Release(context.WithoutCancel(ctx), email, token, p, usedAt)
	if err != nil {
		e.logger.ErrorContext(ctx, "token release failed",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return
	}
	if !released {
		e.logger.WarnContext(ctx, "token release matched nothing", slog.String("op", op))
	}
}
