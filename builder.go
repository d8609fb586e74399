package authgate

import (
	"errors"
	"fmt"
	"log/slog"
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
	"github.com/redis/go-redis/v9"
)

// dummyPassword is hashed once at Build. Logins for unknown accounts verify against it
// so they cost the same as logins with a wrong password.
const dummyPassword = "authgate-unknown-account"

// Builder assembles an Engine. Configure it during initialization, call Build once,
// and discard it.
type Builder struct {
	config Config
	store  store.Store
	redis  redis.UniversalClient

	hasher    password.Hasher
	captcha   captcha.Verifier
	mailer    mail.Sender
	logger    *slog.Logger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the record store. Required.
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithRedis sets the Redis client used by rate limiting and revocation.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithHasher overrides the hasher derived from Config.Password.
func (b *Builder) WithHasher(h password.Hasher) *Builder {
	b.hasher = h
	return b
}

// WithCaptcha sets the CAPTCHA verifier. Required unless Security.RequireCaptcha is off.
func (b *Builder) WithCaptcha(v captcha.Verifier) *Builder {
	b.captcha = v
	return b
}

// WithMailer sets the outbound email sender. Without one, emails are only logged.
func (b *Builder) WithMailer(s mail.Sender) *Builder {
	b.mailer = s
	return b
}

// WithLogger sets the engine logger. Without one, logs are discarded.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink adds a sink receiving audit entries.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the time source shared by every token manager.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine. A Builder builds once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, errors.New("record store required")
	}
	if b.captcha == nil && cfg.Security.RequireCaptcha {
		return nil, errors.New("captcha verifier required when RequireCaptcha is enabled")
	}
	if b.mailer == nil && cfg.Security.ProductionMode {
		return nil, errors.New("mail sender required when ProductionMode is enabled")
	}
	if b.redis == nil {
		if cfg.RateLimit.Enabled {
			return nil, errors.New("RateLimit requires redis client")
		}
		if cfg.Revocation.Enabled {
			return nil, errors.New("Revocation requires redis client")
		}
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	engine := &Engine{
		config:   cfg,
		store:    b.store,
		captcha:  b.captcha,
		logger:   logger,
		now:      now,
		metrics:  NewMetrics(cfg.Metrics),
		validate: newValidator(),
	}

	// -------- HASHER --------
	hasher := b.hasher
	if hasher == nil {
		h, err := password.New(cfg.Password.Algorithm, cfg.Password.BcryptCost, password.Argon2Config{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		})
		if err != nil {
			return nil, fmt.Errorf("password hasher: %w", err)
		}
		hasher = h
	}
	engine.hasher = hasher
	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, ErrHashing.wrap(err)
	}
	engine.dummyHash = dummy

	// -------- SESSION TOKENS --------
	signKey := cloneBytes(cfg.JWT.PrivateKey)
	method := jwt.SigningMethod(strings.ToLower(cfg.JWT.SigningMethod))
	if method == jwt.MethodHS256 && len(signKey) == 0 {
		signKey = []byte(cfg.JWT.Secret)
	}
	jm, err := jwt.NewManager(jwt.Config{
		DefaultTTL:    cfg.JWT.TTL,
		SigningMethod: method,
		PrivateKey:    signKey,
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		Now:           now,
	})
	if err != nil {
		return nil, fmt.Errorf("jwt manager: %w", err)
	}
	engine.jwt = jm

	// -------- TOKEN MANAGERS --------
	engine.csrf = csrf.NewManager(b.store, csrf.Config{
		Collection: cfg.Collections.CSRFTokens,
		TTL:        cfg.CSRF.TTL,
		TokenBytes: cfg.CSRF.TokenBytes,
		Now:        now,
	})
	engine.tokens = purpose.NewManager(b.store, purpose.Config{
		Collection:       cfg.Collections.VerificationTokens,
		VerificationTTL:  cfg.Tokens.VerificationTTL,
		PasswordResetTTL: cfg.Tokens.PasswordResetTTL,
		KeepPrevious:     cfg.Tokens.KeepPrevious,
		TokenBytes:       cfg.Tokens.TokenBytes,
		Now:              now,
	})

	// -------- REDIS CONTROLS --------
	if cfg.RateLimit.Enabled {
		engine.limiter = rate.New(b.redis, rate.Config{
			Namespace:            cfg.RateLimit.Namespace,
			EnableIPThrottle:     cfg.RateLimit.EnableIPThrottle,
			MaxLoginAttempts:     cfg.RateLimit.MaxLoginAttempts,
			LoginCooldown:        cfg.RateLimit.LoginCooldown,
			MaxForgotRequests:    cfg.RateLimit.MaxForgotRequests,
			ForgotCooldown:       cfg.RateLimit.ForgotCooldown,
			MaxVerificationSends: cfg.RateLimit.MaxVerificationSends,
			VerificationCooldown: cfg.RateLimit.VerificationCooldown,
		})
	}
	if cfg.Revocation.Enabled {
		engine.denylist = revocation.New(b.redis, cfg.Revocation.Prefix).WithClock(now)
	}

	// -------- MAIL --------
	// The fallback logs message bodies at debug level only.
	engine.mailer = b.mailer
	if engine.mailer == nil {
		engine.mailer = mail.NewLogSender(logger)
	}

	// -------- AUDIT --------
	if cfg.Audit.Enabled {
		var sinks audit.MultiSink
		if cfg.Audit.PersistToStore {
			sinks = append(sinks, audit.NewStoreSink(b.store, cfg.Collections.Logs, logger))
		}
		if b.auditSink != nil {
			sinks = append(sinks, b.auditSink)
		}
		if len(sinks) > 0 {
			engine.auditSink = sinks
			if cfg.Audit.Async {
				engine.audit = audit.NewDispatcher(audit.Config{
					Enabled:    true,
					BufferSize: cfg.Audit.BufferSize,
					DropIfFull: cfg.Audit.DropIfFull,
				}, sinks)
			}
		}
	}

	b.built = true

	return engine, nil
}
