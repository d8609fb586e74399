package bootstrap

import (
	"context"
	"log/slog"
	"testing"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/captcha"
	"github.com/MrEthical07/authgate/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", secret)
	t.Setenv("STORE_DRIVER", "Memory")

	cfg, infra, err := Load()
	require.NoError(t, err)
	assert.Equal(t, secret, cfg.JWT.Secret)
	assert.Equal(t, 12, cfg.Password.BcryptCost)
	assert.Equal(t, "memory", infra.Store.Driver)
	assert.Equal(t, "recaptcha", infra.Captcha.Provider)
	assert.Equal(t, "log", infra.Mail.Provider)
	assert.True(t, cfg.Security.RequireCaptcha)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", secret)
	t.Setenv("PASSWORD_BCRYPT_COST", "10")
	t.Setenv("CAPTCHA_PROVIDER", "none")
	t.Setenv("SMTP_HOST", "smtp.example.com")

	cfg, infra, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Password.BcryptCost)
	assert.False(t, cfg.Security.RequireCaptcha)
	assert.Equal(t, "smtp.example.com", infra.SMTP.Host)
	assert.Equal(t, 587, infra.SMTP.Port)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, _, err := Load()
	require.Error(t, err)
}

func TestNewCaptcha(t *testing.T) {
	v, err := NewCaptcha(Infra{Captcha: CaptchaConfig{Provider: "static"}})
	require.NoError(t, err)
	assert.IsType(t, captcha.Static{}, v)

	v, err = NewCaptcha(Infra{Captcha: CaptchaConfig{Provider: "turnstile", Secret: "s"}})
	require.NoError(t, err)
	assert.IsType(t, &captcha.Turnstile{}, v)

	_, err = NewCaptcha(Infra{Captcha: CaptchaConfig{Provider: "recaptcha"}})
	assert.ErrorIs(t, err, captcha.ErrMissingSecret)

	v, err = NewCaptcha(Infra{Captcha: CaptchaConfig{Provider: "none"}})
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = NewCaptcha(Infra{Captcha: CaptchaConfig{Provider: "hcaptcha"}})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNewMailer(t *testing.T) {
	log := slog.New(slog.DiscardHandler)

	s, err := NewMailer(Infra{AppEnv: "development", Mail: MailConfig{Provider: "log"}}, log)
	require.NoError(t, err)
	assert.IsType(t, &mail.LogSender{}, s)

	_, err = NewMailer(Infra{Mail: MailConfig{Provider: "smtp"}}, log)
	assert.ErrorIs(t, err, mail.ErrInvalidConfig)

	_, err = NewMailer(Infra{Mail: MailConfig{Provider: "pigeon"}}, log)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNewMailerRefusesLogSenderInProduction(t *testing.T) {
	log := slog.New(slog.DiscardHandler)

	for _, env := range []string{"production", "staging", ""} {
		_, err := NewMailer(Infra{AppEnv: env, Mail: MailConfig{Provider: "log"}}, log)
		assert.ErrorIs(t, err, ErrLogMailerInProduction, "APP_ENV=%q", env)

		_, err = NewMailer(Infra{AppEnv: env}, log)
		assert.ErrorIs(t, err, ErrLogMailerInProduction, "APP_ENV=%q with no provider", env)
	}
}

func TestMemoryStoreAndEmbeddedRedis(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.DiscardHandler)
	cfg := authgate.DefaultConfig()
	cfg.JWT.Secret = secret
	cfg.Password.BcryptCost = 4
	cfg.RateLimit.Enabled = true
	cfg.Revocation.Enabled = true

	infra := Infra{
		AppEnv:  "test",
		Store:   StoreConfig{Driver: "memory"},
		Redis:   RedisConfig{Embedded: true},
		Captcha: CaptchaConfig{Provider: "static"},
	}

	st, err := OpenStore(ctx, infra, cfg.Collections, log)
	require.NoError(t, err)
	require.NoError(t, st.Health(ctx))
	defer func() { _ = st.Close(ctx) }()

	rdb, closeRedis, err := OpenRedis(ctx, infra, cfg, log)
	require.NoError(t, err)
	defer closeRedis()
	require.NotNil(t, rdb)
	require.NoError(t, rdb.Ping(ctx).Err())

	verifier, err := NewCaptcha(infra)
	require.NoError(t, err)
	mailer, err := NewMailer(infra, log)
	require.NoError(t, err)

	engine, err := Engine(cfg, st, rdb, verifier, mailer, log)
	require.NoError(t, err)
	defer engine.Close()

	_, err = engine.IssueCSRFToken(authgate.WithClientIP(ctx, "127.0.0.1"))
	require.NoError(t, err)
}

func TestOpenRedisRequiresURL(t *testing.T) {
	cfg := authgate.DefaultConfig()
	cfg.RateLimit.Enabled = true

	_, closeFn, err := OpenRedis(context.Background(), Infra{}, cfg, slog.New(slog.DiscardHandler))
	require.Error(t, err)
	closeFn()

	cfg.RateLimit.Enabled = false
	rdb, closeFn, err := OpenRedis(context.Background(), Infra{}, cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.Nil(t, rdb)
	closeFn()
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), Infra{Store: StoreConfig{Driver: "cassandra"}}, authgate.DefaultConfig().Collections, slog.New(slog.DiscardHandler))
	assert.ErrorIs(t, err, ErrUnknownDriver)
}
