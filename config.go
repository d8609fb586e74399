package authgate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/internal/csrf"
	"github.com/MrEthical07/authgate/internal/purpose"
	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/password"
)

// Config holds every engine tunable. It is built once at startup, passed by value to
// [Builder.WithConfig] and never mutated afterwards.
//
// Every field carries an env tag so cmd binaries can populate it with
// internal/envconfig. envDefault values mirror [DefaultConfig].
type Config struct {
	JWT         JWTConfig         `envPrefix:"JWT_"`
	Password    PasswordConfig    `envPrefix:"PASSWORD_"`
	CSRF        CSRFConfig        `envPrefix:"CSRF_"`
	Tokens      TokenConfig       `envPrefix:"TOKENS_"`
	RateLimit   RateLimitConfig   `envPrefix:"RATE_LIMIT_"`
	Revocation  RevocationConfig  `envPrefix:"REVOCATION_"`
	Audit       AuditConfig       `envPrefix:"AUDIT_"`
	Metrics     MetricsConfig     `envPrefix:"METRICS_"`
	Collections CollectionsConfig `envPrefix:"COLLECTION_"`
	Security    SecurityConfig    `envPrefix:"SECURITY_"`
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures session tokens. HS256 signs with Secret; Ed25519 uses the key
// pair, which is never read from the environment directly.
type JWTConfig struct {
	Secret        string        `env:"SECRET"`
	SigningMethod string        `env:"SIGNING_METHOD" envDefault:"hs256"`
	PrivateKey    []byte        `env:"-"`
	PublicKey     []byte        `env:"-"`
	TTL           time.Duration `env:"TTL" envDefault:"168h"`
	Issuer        string        `env:"ISSUER"`
	Audience      string        `env:"AUDIENCE"`
	Leeway        time.Duration `env:"LEEWAY"`
	KeyID         string        `env:"KEY_ID"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the credential hasher. Stored hashes of either algorithm
// keep verifying after a switch.
type PasswordConfig struct {
	Algorithm     string `env:"ALGORITHM" envDefault:"bcrypt"`
	BcryptCost    int    `env:"BCRYPT_COST" envDefault:"12"`
	Memory        uint32 `env:"ARGON2_MEMORY" envDefault:"65536"` // in KB
	Time          uint32 `env:"ARGON2_TIME" envDefault:"3"`
	Parallelism   uint8  `env:"ARGON2_PARALLELISM" envDefault:"2"`
	SaltLength    uint32 `env:"ARGON2_SALT_LENGTH" envDefault:"16"`
	KeyLength     uint32 `env:"ARGON2_KEY_LENGTH" envDefault:"32"`
	RehashOnLogin bool   `env:"REHASH_ON_LOGIN" envDefault:"true"`
	MinLength     int    `env:"MIN_LENGTH" envDefault:"8"`
}

/*
====================================
TOKEN CONFIG
====================================
*/

// CSRFConfig configures anti-forgery tokens. SweepInterval is read by the server
// binary's background sweeper; zero disables it.
type CSRFConfig struct {
	TTL           time.Duration `env:"TTL" envDefault:"15m"`
	TokenBytes    int           `env:"TOKEN_BYTES" envDefault:"32"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`
}

// TokenConfig configures email-verification and password-reset tokens. A negative
// PasswordResetTTL issues reset tokens that never expire.
type TokenConfig struct {
	VerificationTTL  time.Duration `env:"VERIFICATION_TTL" envDefault:"1h"`
	PasswordResetTTL time.Duration `env:"PASSWORD_RESET_TTL" envDefault:"1h"`
	KeepPrevious     bool          `env:"KEEP_PREVIOUS"`
	TokenBytes       int           `env:"TOKEN_BYTES" envDefault:"48"`
}

/*
====================================
REDIS-BACKED CONTROLS
====================================
*/

// RateLimitConfig throttles login failures, forgot-password and verification sends.
// Enabling it requires a Redis client.
type RateLimitConfig struct {
	Enabled              bool          `env:"ENABLED"`
	Namespace            string        `env:"NAMESPACE" envDefault:"authgate:rl"`
	EnableIPThrottle     bool          `env:"IP_THROTTLE" envDefault:"true"`
	MaxLoginAttempts     int           `env:"MAX_LOGIN_ATTEMPTS" envDefault:"5"`
	LoginCooldown        time.Duration `env:"LOGIN_COOLDOWN" envDefault:"15m"`
	MaxForgotRequests    int           `env:"MAX_FORGOT_REQUESTS" envDefault:"5"`
	ForgotCooldown       time.Duration `env:"FORGOT_COOLDOWN" envDefault:"1h"`
	MaxVerificationSends int           `env:"MAX_VERIFICATION_SENDS" envDefault:"5"`
	VerificationCooldown time.Duration `env:"VERIFICATION_COOLDOWN" envDefault:"1h"`
}

// RevocationConfig enables the jti denylist consulted by Authenticate and fed by
// Logout. Enabling it requires a Redis client.
type RevocationConfig struct {
	Enabled bool   `env:"ENABLED"`
	Prefix  string `env:"PREFIX" envDefault:"authgate:rv"`
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// AuditConfig controls audit entries. With Async the engine hands entries to a
// buffered dispatcher; otherwise they are written inline. PersistToStore appends them
// to the logs collection in addition to any sink passed to the Builder.
type AuditConfig struct {
	Enabled        bool `env:"ENABLED" envDefault:"true"`
	PersistToStore bool `env:"PERSIST" envDefault:"true"`
	Async          bool `env:"ASYNC" envDefault:"true"`
	BufferSize     int  `env:"BUFFER_SIZE" envDefault:"1024"`
	DropIfFull     bool `env:"DROP_IF_FULL" envDefault:"true"`
}

// MetricsConfig toggles in-process counters and the login latency histogram.
type MetricsConfig struct {
	Enabled                 bool `env:"ENABLED" envDefault:"true"`
	EnableLatencyHistograms bool `env:"LATENCY_HISTOGRAMS"`
}

/*
====================================
STORAGE & SECURITY CONFIG
====================================
*/

// CollectionsConfig names the record store collections.
type CollectionsConfig struct {
	Users              string `env:"USERS" envDefault:"users"`
	Admins             string `env:"ADMINS" envDefault:"admins"`
	VerificationTokens string `env:"VERIFICATION_TOKENS" envDefault:"verification_tokens"`
	CSRFTokens         string `env:"CSRF_TOKENS" envDefault:"csrf_tokens"`
	Logs               string `env:"LOGS" envDefault:"logs"`
}

// SecurityConfig holds cross-cutting switches. ProductionMode turns some Lint
// warnings into Validate errors.
type SecurityConfig struct {
	ProductionMode bool `env:"PRODUCTION_MODE"`
	RequireCaptcha bool `env:"REQUIRE_CAPTCHA" envDefault:"true"`
}

// DefaultConfig returns the defaults every field falls back to.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			SigningMethod: string(jwt.MethodHS256),
			TTL:           jwt.DefaultTTL,
		},
		Password: PasswordConfig{
			Algorithm:     password.AlgorithmBcrypt,
			BcryptCost:    password.DefaultBcryptCost,
			Memory:        64 * 1024,
			Time:          3,
			Parallelism:   2,
			SaltLength:    16,
			KeyLength:     32,
			RehashOnLogin: true,
			MinLength:     8,
		},
		CSRF: CSRFConfig{
			TTL:           csrf.DefaultTTL,
			TokenBytes:    32,
			SweepInterval: 5 * time.Minute,
		},
		Tokens: TokenConfig{
			VerificationTTL:  purpose.DefaultVerificationTTL,
			PasswordResetTTL: purpose.DefaultPasswordResetTTL,
			TokenBytes:       48,
		},
		RateLimit: RateLimitConfig{
			Namespace:            "authgate:rl",
			EnableIPThrottle:     true,
			MaxLoginAttempts:     5,
			LoginCooldown:        15 * time.Minute,
			MaxForgotRequests:    5,
			ForgotCooldown:       time.Hour,
			MaxVerificationSends: 5,
			VerificationCooldown: time.Hour,
		},
		Revocation: RevocationConfig{
			Prefix: "authgate:rv",
		},
		Audit: AuditConfig{
			Enabled:        true,
			PersistToStore: true,
			Async:          true,
			BufferSize:     1024,
			DropIfFull:     true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Collections: CollectionsConfig{
			Users:              "users",
			Admins:             "admins",
			VerificationTokens: purpose.DefaultCollection,
			CSRFTokens:         csrf.DefaultCollection,
			Logs:               audit.DefaultCollection,
		},
		Security: SecurityConfig{
			RequireCaptcha: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	// JWT
	switch jwt.SigningMethod(strings.ToLower(c.JWT.SigningMethod)) {
	case jwt.MethodHS256:
		if c.JWT.Secret == "" && len(c.JWT.PrivateKey) == 0 {
			return errors.New("JWT Secret is required for hs256")
		}
	case jwt.MethodEd25519:
		if len(c.JWT.PrivateKey) == 0 || len(c.JWT.PublicKey) == 0 {
			return errors.New("JWT PrivateKey and PublicKey are required for ed25519")
		}
	default:
		return fmt.Errorf("unsupported JWT SigningMethod %q", c.JWT.SigningMethod)
	}
	if c.JWT.TTL < 0 {
		return errors.New("JWT TTL must be >= 0")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Password
	switch c.Password.Algorithm {
	case "", password.AlgorithmBcrypt, password.AlgorithmArgon2id:
	default:
		return fmt.Errorf("unsupported Password Algorithm %q", c.Password.Algorithm)
	}
	if c.Password.BcryptCost != 0 && (c.Password.BcryptCost < 4 || c.Password.BcryptCost > 31) {
		return errors.New("Password BcryptCost must be between 4 and 31")
	}
	if c.Password.MinLength < 0 {
		return errors.New("Password MinLength must be >= 0")
	}

	// Tokens
	if c.CSRF.TTL < 0 {
		return errors.New("CSRF TTL must be >= 0")
	}
	if c.CSRF.TokenBytes < 0 || c.Tokens.TokenBytes < 0 {
		return errors.New("token byte lengths must be >= 0")
	}
	if c.CSRF.TokenBytes > 0 && c.CSRF.TokenBytes < 16 {
		return errors.New("CSRF TokenBytes must be >= 16")
	}
	if c.Tokens.TokenBytes > 0 && c.Tokens.TokenBytes < 16 {
		return errors.New("Tokens TokenBytes must be >= 16")
	}
	if c.Tokens.VerificationTTL < 0 {
		return errors.New("Tokens VerificationTTL must be >= 0")
	}

	// Rate limits
	if c.RateLimit.Enabled {
		if c.RateLimit.MaxLoginAttempts < 0 || c.RateLimit.MaxForgotRequests < 0 || c.RateLimit.MaxVerificationSends < 0 {
			return errors.New("RateLimit budgets must be >= 0")
		}
		if c.RateLimit.MaxLoginAttempts > 0 && c.RateLimit.LoginCooldown <= 0 {
			return errors.New("RateLimit LoginCooldown must be > 0")
		}
		if c.RateLimit.MaxForgotRequests > 0 && c.RateLimit.ForgotCooldown <= 0 {
			return errors.New("RateLimit ForgotCooldown must be > 0")
		}
		if c.RateLimit.MaxVerificationSends > 0 && c.RateLimit.VerificationCooldown <= 0 {
			return errors.New("RateLimit VerificationCooldown must be > 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.Async && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Async is enabled")
	}

	// Collections
	names := map[string]string{
		"Users":              c.Collections.Users,
		"Admins":             c.Collections.Admins,
		"VerificationTokens": c.Collections.VerificationTokens,
		"CSRFTokens":         c.Collections.CSRFTokens,
		"Logs":               c.Collections.Logs,
	}
	seen := make(map[string]string, len(names))
	for field, name := range names {
		if name == "" {
			return fmt.Errorf("Collections %s must not be empty", field)
		}
		if other, dup := seen[name]; dup {
			return fmt.Errorf("Collections %s and %s share the name %q", field, other, name)
		}
		seen[name] = field
	}

	if c.Security.ProductionMode {
		if jwt.SigningMethod(strings.ToLower(c.JWT.SigningMethod)) == jwt.MethodHS256 && len(c.JWT.Secret) < 32 && len(c.JWT.PrivateKey) < 32 {
			return errors.New("ProductionMode requires hs256 secret length >= 256 bits")
		}
		if c.Password.Algorithm != password.AlgorithmArgon2id && c.Password.BcryptCost < 10 {
			return errors.New("ProductionMode requires Password BcryptCost >= 10")
		}
		if !c.Security.RequireCaptcha {
			return errors.New("ProductionMode requires captcha verification")
		}
		if c.Tokens.PasswordResetTTL < 0 {
			return errors.New("ProductionMode requires password reset tokens to expire")
		}
	}

	return nil
}

// LintWarning is a non-fatal configuration finding.
type LintWarning struct {
	Code    string
	Message string
}

// LintResult lists warnings in a stable order.
type LintResult []LintWarning

// Codes returns just the warning codes.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// Lint reports settings that are valid but risky.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code, msg string) {
		ws = append(ws, LintWarning{Code: code, Message: msg})
	}

	if jwt.SigningMethod(strings.ToLower(c.JWT.SigningMethod)) == jwt.MethodHS256 && len(c.JWT.Secret) < 32 && len(c.JWT.PrivateKey) < 32 {
		add("jwt_secret_short", "hs256 secret is shorter than 32 bytes")
	}
	if c.JWT.TTL > 7*24*time.Hour {
		add("jwt_ttl_long", "session tokens live longer than 7 days")
	}
	if !c.Revocation.Enabled {
		add("revocation_disabled", "logout cannot invalidate issued session tokens")
	}
	if c.Password.Algorithm != password.AlgorithmArgon2id && c.Password.BcryptCost != 0 && c.Password.BcryptCost < password.DefaultBcryptCost {
		add("bcrypt_cost_low", fmt.Sprintf("bcrypt cost below %d", password.DefaultBcryptCost))
	}
	if c.CSRF.TTL > time.Hour {
		add("csrf_ttl_long", "CSRF tokens live longer than an hour")
	}
	if c.Tokens.PasswordResetTTL < 0 {
		add("reset_tokens_never_expire", "password reset tokens are issued without expiry")
	}
	if c.Tokens.KeepPrevious {
		add("tokens_keep_previous", "older verification and reset tokens stay valid after reissue")
	}
	if !c.RateLimit.Enabled {
		add("rate_limits_disabled", "login and email sends are not throttled")
	}
	if !c.Security.RequireCaptcha {
		add("captcha_disabled", "CAPTCHA verification is off")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", "no audit entries are written")
	}

	return ws
}
