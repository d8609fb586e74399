package authgate

import (
	"context"
	"errors"

	"github.com/MrEthical07/authgate/internal/purpose"
	"github.com/MrEthical07/authgate/mail"
	"github.com/MrEthical07/authgate/store"
)

// SendVerificationToken issues an email-verification token and emails it. Only the
// CSRF check gates it.
func (e *Engine) SendVerificationToken(ctx context.Context, in SendVerificationInput) error {
	const op = "send_verification_token"
	if err := e.guard(ctx, op, in.CSRFToken, "", false); err != nil {
		return err
	}
	in.Email = normalizeEmail(in.Email)
	if err := e.check(in); err != nil {
		return err
	}

	if e.limiter != nil {
		if err := e.limiter.AllowVerificationSend(ctx, in.Email); err != nil {
			return e.limitFailure(ctx, op, MetricEmailVerificationRateLimited, err)
		}
	}

	token, err := e.tokens.IssueEmailVerification(ctx, in.Email)
	if err != nil {
		return e.storeFailure(ctx, op, err)
	}
	e.sendMail(ctx, op, mail.VerificationMessage(in.Email, token))

	e.metricInc(MetricEmailVerificationRequest)
	e.emitAudit(ctx, AuditSendVerificationToken, in.Email)
	return nil
}

// VerifyToken redeems an email-verification token and marks the user verified. An
// expired token yields ErrTokenExpired and stays unused.
func (e *Engine) VerifyToken(ctx context.Context, in VerifyTokenInput) error {
	const op = "verify_token"
	if err := e.guard(ctx, op, in.CSRFToken, in.CaptchaToken, true); err != nil {
		return err
	}
	in.Email = normalizeEmail(in.Email)
	if err := e.check(in); err != nil {
		return err
	}

	tok, err := e.tokens.Peek(ctx, in.Email, in.Token, purpose.EmailVerification)
	if errors.Is(err, purpose.ErrTokenNotFound) {
		e.metricInc(MetricEmailVerificationFailure)
		return ErrInvalidToken
	}
	if err != nil {
		return e.storeFailure(ctx, op, err)
	}
	if tok.Expired(e.tokens.Now()) {
		e.metricInc(MetricEmailVerificationFailure)
		return ErrTokenExpired
	}

	usedAt, consumed, err := e.tokens.Redeem(ctx, in.Email, in.Token, purpose.EmailVerification)
	if err != nil {
		return e.storeFailure(ctx, op, err)
	}
	if !consumed {
		e.metricInc(MetricEmailVerificationFailure)
		return ErrInvalidToken
	}

	if _, err := e.store.Update(ctx, e.config.Collections.Users,
		store.Filter{"email": in.Email, "deleted_at": nil},
		store.Patch{"verified": true, "updated_at": e.now()}); err != nil {
		e.releaseToken(ctx, op, in.Email, in.Token, purpose.EmailVerification, usedAt)
		return e.storeFailure(ctx, op, err)
	}

	e.metricInc(MetricEmailVerificationSuccess)
	e.emitAudit(ctx, AuditVerifyEmail, in.Email)
	return nil
}
