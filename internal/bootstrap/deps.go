package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/captcha"
	"github.com/MrEthical07/authgate/internal/envconfig"
	"github.com/MrEthical07/authgate/internal/logger"
	"github.com/MrEthical07/authgate/mail"
	"github.com/MrEthical07/authgate/store"
	"github.com/MrEthical07/authgate/store/mongostore"
	"github.com/alicebob/miniredis/v2"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

// NewLogger builds the process logger. Records carry the client IP and request id
// when the context has them.
func NewLogger(infra Infra, service string) *slog.Logger {
	opts := []logger.Option{
		logger.WithEnvironment(infra.AppEnv, service),
		logger.WithContextExtractors(
			func(ctx context.Context) (slog.Attr, bool) {
				ip := authgate.ClientIPFromContext(ctx)
				return slog.String("client_ip", ip), ip != ""
			},
			func(ctx context.Context) (slog.Attr, bool) {
				id := chimw.GetReqID(ctx)
				return slog.String("request_id", id), id != ""
			},
		),
	}
	if infra.Log.Level != "" {
		opts = append(opts, logger.WithLevel(logger.ParseLevel(infra.Log.Level)))
	}
	if infra.Log.Format != "" {
		opts = append(opts, logger.WithFormat(logger.Format(infra.Log.Format)))
	}
	return logger.New(opts...)
}

// Store is an opened record store and how to release it.
type Store struct {
	store.Store
	Health func(context.Context) error
	Close  func(context.Context) error
}

// OpenStore connects the configured record store and provisions its collections.
func OpenStore(ctx context.Context, infra Infra, cols authgate.CollectionsConfig, log *slog.Logger) (*Store, error) {
	switch infra.Store.Driver {
	case "memory":
		log.Warn("using in-memory record store; data is lost on restart")
		mem := authgate.NewMemoryStore(cols)
		return &Store{
			Store:  mem,
			Health: mem.Ping,
			Close:  func(context.Context) error { return nil },
		}, nil
	case "mongo", "mongodb":
		var mcfg mongostore.Config
		if err := loadInto(&mcfg); err != nil {
			return nil, err
		}
		client, err := mongostore.Connect(ctx, mcfg)
		if err != nil {
			return nil, err
		}
		db := client.Database(mcfg.Database)
		if err := mongostore.Provision(ctx, db, mongostore.Collections{
			Users:              cols.Users,
			Admins:             cols.Admins,
			VerificationTokens: cols.VerificationTokens,
			CSRFTokens:         cols.CSRFTokens,
			Logs:               cols.Logs,
		}); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("provision collections: %w", err)
		}
		log.Info("connected to mongodb", slog.String("database", mcfg.Database))
		return &Store{
			Store:  mongostore.New(db),
			Health: mongostore.Healthcheck(client),
			Close:  client.Disconnect,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, infra.Store.Driver)
	}
}

// OpenRedis returns a client when the engine needs one, or nil. The returned close
// function is never nil.
func OpenRedis(ctx context.Context, infra Infra, cfg authgate.Config, log *slog.Logger) (redis.UniversalClient, func(), error) {
	noop := func() {}
	if !cfg.RateLimit.Enabled && !cfg.Revocation.Enabled && infra.Redis.URL == "" {
		return nil, noop, nil
	}

	if infra.Redis.URL == "" {
		if !infra.Redis.Embedded {
			return nil, noop, fmt.Errorf("REDIS_URL is required when rate limiting or revocation is enabled")
		}
		mr, err := miniredis.Run()
		if err != nil {
			return nil, noop, fmt.Errorf("start embedded redis: %w", err)
		}
		log.Warn("using embedded redis; counters and revocations are lost on restart", slog.String("addr", mr.Addr()))
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		return client, func() { _ = client.Close(); mr.Close() }, nil
	}

	opts, err := redis.ParseURL(infra.Redis.URL)
	if err != nil {
		return nil, noop, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, noop, fmt.Errorf("ping redis: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// NewCaptcha returns the configured verifier, or nil for provider "none".
func NewCaptcha(infra Infra) (captcha.Verifier, error) {
	opts := captcha.Options{MinScore: infra.Captcha.MinScore, VerifyURL: infra.Captcha.VerifyURL}
	switch infra.Captcha.Provider {
	case "recaptcha":
		v, err := captcha.NewRecaptcha(infra.Captcha.Secret, opts)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "turnstile":
		v, err := captcha.NewTurnstile(infra.Captcha.Secret, opts)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "static":
		return captcha.Static{Accept: true}, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: captcha %q", ErrUnknownProvider, infra.Captcha.Provider)
	}
}

// NewMailer returns the configured sender. The log sender is only available in
// development environments.
func NewMailer(infra Infra, log *slog.Logger) (mail.Sender, error) {
	switch infra.Mail.Provider {
	case "smtp":
		s, err := mail.NewSMTPSender(infra.SMTP)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postmark":
		s, err := mail.NewPostmarkSender(infra.Postmark)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "log", "":
		if !infra.Development() {
			return nil, fmt.Errorf("%w: APP_ENV=%q", ErrLogMailerInProduction, infra.AppEnv)
		}
		return mail.NewLogSender(log), nil
	default:
		return nil, fmt.Errorf("%w: mail %q", ErrUnknownProvider, infra.Mail.Provider)
	}
}

// Engine builds an Engine from the opened collaborators.
func Engine(cfg authgate.Config, st store.Store, rdb redis.UniversalClient, verifier captcha.Verifier, mailer mail.Sender, log *slog.Logger) (*authgate.Engine, error) {
	b := authgate.New().
		WithConfig(cfg).
		WithStore(st).
		WithMailer(mailer).
		WithLogger(log)
	if rdb != nil {
		b.WithRedis(rdb)
	}
	if verifier != nil {
		b.WithCaptcha(verifier)
	}
	return b.Build()
}

func loadInto[T any](v *T) error {
	if err := envconfig.Load(v); err != nil {
		return fmt.Errorf("load %T: %w", v, err)
	}
	return nil
}
