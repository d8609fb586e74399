// Package bootstrap turns environment configuration into the collaborators the
// authgate binaries wire into an Engine: record store, Redis, CAPTCHA verifier, mail
// sender and logger.
package bootstrap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/internal/envconfig"
	"github.com/MrEthical07/authgate/mail"
)

var (
	// ErrUnknownDriver is returned for an unsupported STORE_DRIVER.
	ErrUnknownDriver = errors.New("bootstrap: unknown store driver")
	// ErrUnknownProvider is returned for an unsupported CAPTCHA or mail provider.
	ErrUnknownProvider = errors.New("bootstrap: unknown provider")
	// ErrLogMailerInProduction is returned when the log mail provider is selected outside
	// a development environment.
	ErrLogMailerInProduction = errors.New("bootstrap: log mail provider is development only")
)

// LogConfig selects log verbosity and format.
type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT"`
}

// StoreConfig selects the record store. The memory driver keeps nothing across
// restarts and suits local development only.
type StoreConfig struct {
	Driver string `env:"DRIVER" envDefault:"mongo"`
}

// RedisConfig locates Redis. With an empty URL and Embedded set, an in-process
// miniredis serves rate limiting and revocation.
type RedisConfig struct {
	URL      string `env:"URL"`
	Embedded bool   `env:"EMBEDDED" envDefault:"false"`
}

// CaptchaConfig selects the CAPTCHA provider: recaptcha, turnstile, static or none.
// static accepts any non-empty response and exists for development.
type CaptchaConfig struct {
	Provider  string  `env:"PROVIDER" envDefault:"recaptcha"`
	Secret    string  `env:"SECRET"`
	MinScore  float64 `env:"MIN_SCORE"`
	VerifyURL string  `env:"VERIFY_URL"`
}

// MailConfig selects the mail provider: smtp, postmark or log. log never delivers and is
// refused unless APP_ENV names a development environment.
type MailConfig struct {
	Provider string `env:"PROVIDER" envDefault:"log"`
}

// Infra is the environment-driven configuration shared by the binaries.
type Infra struct {
	AppEnv  string        `env:"APP_ENV" envDefault:"production"`
	Log     LogConfig     `envPrefix:"LOG_"`
	Store   StoreConfig   `envPrefix:"STORE_"`
	Redis   RedisConfig   `envPrefix:"REDIS_"`
	Captcha CaptchaConfig `envPrefix:"CAPTCHA_"`
	Mail    MailConfig    `envPrefix:"MAIL_"`
	// Provider settings keep their conventional unprefixed names (SMTP_HOST,
	// POSTMARK_SERVER_TOKEN, ...).
	SMTP     mail.SMTPConfig
	Postmark mail.PostmarkConfig
}

// Load reads .env files (if present) and then the environment into the engine
// configuration and the infrastructure configuration.
func Load(files ...string) (authgate.Config, Infra, error) {
	if err := envconfig.LoadFiles(files...); err != nil {
		return authgate.Config{}, Infra{}, err
	}

	cfg := authgate.DefaultConfig()
	if err := envconfig.Load(&cfg); err != nil {
		return authgate.Config{}, Infra{}, err
	}

	var infra Infra
	if err := envconfig.Load(&infra); err != nil {
		return authgate.Config{}, Infra{}, err
	}
	infra.Store.Driver = strings.ToLower(infra.Store.Driver)
	infra.Captcha.Provider = strings.ToLower(infra.Captcha.Provider)
	infra.Mail.Provider = strings.ToLower(infra.Mail.Provider)

	if infra.Captcha.Provider == "none" {
		cfg.Security.RequireCaptcha = false
	}
	if err := cfg.Validate(); err != nil {
		return authgate.Config{}, Infra{}, fmt.Errorf("auth config: %w", err)
	}
	return cfg, infra, nil
}

// Development reports whether AppEnv names a development environment.
func (i Infra) Development() bool {
	switch strings.ToLower(i.AppEnv) {
	case "development", "dev", "local", "test":
		return true
	}
	return false
}
