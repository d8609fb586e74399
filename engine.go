package authgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/MrEthical07/authgate/captcha"
	"github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/internal/csrf"
	"github.com/MrEthical07/authgate/internal/purpose"
	"github.com/MrEthical07/authgate/internal/rate"
	"github.com/MrEthical07/authgate/internal/revocation"
	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/mail"
	"github.com/MrEthical07/authgate/password"
	"github.com/MrEthical07/authgate/store"
	"github.com/go-playground/validator/v10"
)

// Engine runs the authentication flows. It is safe for concurrent use after
// [Builder.Build]; its configuration is immutable.
type Engine struct {
	config    Config
	store     store.Store
	csrf      *csrf.Manager
	tokens    *purpose.Manager
	hasher    password.Hasher
	dummyHash string
	jwt       *jwt.Manager
	limiter   *rate.Limiter
	denylist  *revocation.Denylist
	captcha   captcha.Verifier
	mailer    mail.Sender
	audit     *audit.Dispatcher
	auditSink audit.Sink
	metrics   *Metrics
	logger    *slog.Logger
	validate  *validator.Validate
	now       func() time.Time
}

// Close drains the audit dispatcher. The engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports audit entries dropped because the async buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns the current counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Ping checks the record store when it supports health checks.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if p, ok := e.store.(store.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return ErrStoreUnavailable.wrap(err)
		}
	}
	return nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// guard runs the CSRF and optional CAPTCHA pre-checks every mutating operation starts
// with. A passing CSRF check rotates the caller's token.
func (e *Engine) guard(ctx context.Context, op, csrfToken, captchaToken string, needCaptcha bool) error {
	if e == nil || e.csrf == nil {
		return ErrEngineNotReady
	}
	ip := ClientIPFromContext(ctx)

	ok, err := e.csrf.Verify(ctx, ip, csrfToken)
	if err != nil {
		return e.storeFailure(ctx, op, err)
	}
	if !ok {
		e.metricInc(MetricCSRFRejected)
		e.logger.DebugContext(ctx, "csrf check declined", slog.String("op", op), slog.String("ip", ip))
		return ErrInvalidCSRFToken
	}

	if !needCaptcha || !e.config.Security.RequireCaptcha || e.captcha == nil {
		return nil
	}
	res, err := e.captcha.Verify(ctx, captchaToken, ip)
	if err != nil {
		// Transport failures count as a declined check so a provider outage cannot
		// open the endpoints.
		if !errors.Is(err, captcha.ErrEmptyResponse) {
			e.logger.WarnContext(ctx, "captcha verification failed",
				slog.String("op", op),
				slog.String("error", err.Error()),
			)
		}
		e.metricInc(MetricCaptchaRejected)
		return ErrInvalidCaptcha.wrap(err)
	}
	if !res.Success {
		e.metricInc(MetricCaptchaRejected)
		e.logger.DebugContext(ctx, "captcha declined",
			slog.String("op", op),
			slog.Any("codes", res.ErrorCodes),
		)
		return ErrInvalidCaptcha
	}
	return nil
}

// check validates in against its struct tags and turns the first failure into a
// field-specific validation error.
func (e *Engine) check(in any) error {
	err := e.validate.Struct(in)
	if err == nil {
		return nil
	}
	e.metricInc(MetricValidationRejected)

	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return ErrInvalidInput.wrap(err)
	}
	fe := fields[0]
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return ErrInvalidInput.withMessage(name + " is required")
	case "email":
		return ErrInvalidInput.withMessage("Invalid email")
	case "alphanum":
		return ErrInvalidInput.withMessage(name + " may only contain letters and digits")
	case "min":
		return ErrInvalidInput.withMessage(fmt.Sprintf("%s must be at least %s characters", name, fe.Param()))
	case "max":
		return ErrInvalidInput.withMessage(fmt.Sprintf("%s must be at most %s characters", name, fe.Param()))
	case "hexadecimal":
		return ErrInvalidToken
	default:
		return ErrInvalidInput.withMessage("Invalid " + name)
	}
}

func (e *Engine) checkPasswordPolicy(plain string) error {
	if n := e.config.Password.MinLength; n > 0 && len(plain) < n {
		e.metricInc(MetricValidationRejected)
		return ErrInvalidInput.withMessage(fmt.Sprintf("Password must be at least %d characters", n))
	}
	return nil
}

// hash maps hasher failures onto ErrHashing. Inputs rejected by the hasher for length
// are a caller mistake, not an internal fault.
func (e *Engine) hash(ctx context.Context, op, plain string) (string, error) {
	hashed, err := e.hasher.Hash(plain)
	if err == nil {
		return hashed, nil
	}
	if errors.Is(err, password.ErrPasswordTooLong) || errors.Is(err, password.ErrEmptyPassword) {
		return "", ErrInvalidInput.withMessage("Invalid password")
	}
	e.logger.ErrorContext(ctx, "password hashing failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return "", ErrHashing.wrap(err)
}

// storeFailure logs a store error and converts it to ErrStoreUnavailable.
func (e *Engine) storeFailure(ctx context.Context, op string, err error) error {
	e.metricInc(MetricStoreUnavailable)
	e.logger.ErrorContext(ctx, "record store failure",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return ErrStoreUnavailable.wrap(err)
}

// sendMail delivers msg. Failures are logged and never reach the caller.
func (e *Engine) sendMail(ctx context.Context, op string, msg mail.Message) {
	if err := e.mailer.Send(context.WithoutCancel(ctx), msg); err != nil {
		e.metricInc(MetricEmailSendFailure)
		e.logger.ErrorContext(ctx, "email delivery failed",
			slog.String("op", op),
			slog.String("tag", msg.Tag),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Engine) accountCollection(role Role) string {
	if role == RoleAdmin {
		return e.config.Collections.Admins
	}
	return e.config.Collections.Users
}

// findAccount returns the live account of the given kind with email.
func (e *Engine) findAccount(ctx context.Context, role Role, email string) (account, bool, error) {
	filter := store.Filter{"email": email, "deleted_at": nil}
	if role == RoleAdmin {
		filter["role"] = string(RoleAdmin)
	}

	var acct account
	err := e.store.FindOne(ctx, e.accountCollection(role), filter, &acct)
	if errors.Is(err, store.ErrNotFound) {
		return account{}, false, nil
	}
	if err != nil {
		return account{}, false, err
	}
	if acct.Role == "" {
		acct.Role = role
	}
	return acct, true, nil
}

// newValidator reports fields by their JSON names so messages match request bodies.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return v
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
