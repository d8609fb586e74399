package authgate

import (
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/authgate/mail"
)

func TestLoginRateLimited(t *testing.T) {
	_, rdb := newTestRedis(t)
	env := newTestEnv(t, func(cfg *Config, b *Builder) {
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.MaxLoginAttempts = 2
		b.WithRedis(rdb)
	})
	ctx := clientCtx(testIP)
	env.signup(t, ctx, "vic@example.com", "vic")
	env.verifyEmail(t, ctx, "vic@example.com")

	for i := 0; i < 2; i++ {
		if _, err := env.login(t, ctx, "vic@example.com", "wrong-password", RoleUser); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}

	_, err := env.login(t, ctx, "vic@example.com", testPassword, RoleUser)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if status, _ := Describe(err); status != 429 {
		t.Fatalf("expected 429, got %d", status)
	}
}

func TestSuccessfulLoginResetsCounter(t *testing.T) {
	_, rdb := newTestRedis(t)
	env := newTestEnv(t, func(cfg *Config, b *Builder) {
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.MaxLoginAttempts = 2
		cfg.RateLimit.EnableIPThrottle = false
		b.WithRedis(rdb)
	})
	ctx := clientCtx(testIP)
	env.signup(t, ctx, "wes@example.com", "wes")
	env.verifyEmail(t, ctx, "wes@example.com")

	if _, err := env.login(t, ctx, "wes@example.com", "wrong-password", RoleUser); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := env.login(t, ctx, "wes@example.com", testPassword, RoleUser); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := env.login(t, ctx, "wes@example.com", "wrong-password", RoleUser); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("counter should have been reset, got %v", err)
	}
}

func TestForgotPasswordRateLimited(t *testing.T) {
	_, rdb := newTestRedis(t)
	env := newTestEnv(t, func(cfg *Config, b *Builder) {
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.MaxForgotRequests = 1
		b.WithRedis(rdb)
	})
	ctx := clientCtx(testIP)

	forgot := func() error {
		return env.engine.ForgotPassword(ctx, ForgotPasswordInput{
			Email:        "xena@example.com",
			CSRFToken:    env.csrf(t, ctx),
			CaptchaToken: "captcha",
		})
	}
	if err := forgot(); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	if err := forgot(); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if len(env.mailer.sent) != 1 {
		t.Fatalf("expected one mail, got %d", len(env.mailer.sent))
	}
}

func TestVerificationSendRateLimited(t *testing.T) {
	_, rdb := newTestRedis(t)
	env := newTestEnv(t, func(cfg *Config, b *Builder) {
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.MaxVerificationSends = 1
		b.WithRedis(rdb)
	})
	ctx := clientCtx(testIP)

	send := func() error {
		return env.engine.SendVerificationToken(ctx, SendVerificationInput{Email: "yuri@example.com", CSRFToken: env.csrf(t, ctx)})
	}
	if err := send(); err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	if err := send(); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if env.mailer.lastToken(t, mail.TagEmailVerification) == "" {
		t.Fatal("expected a token from the first send")
	}
}

func TestRedisOutageFailsClosed(t *testing.T) {
	mr, rdb := newTestRedis(t)
	env := newTestEnv(t, func(cfg *Config, b *Builder) {
		cfg.RateLimit.Enabled = true
		b.WithRedis(rdb)
	})
	ctx := clientCtx(testIP)
	env.signup(t, ctx, "zack@example.com", "zack")
	env.verifyEmail(t, ctx, "zack@example.com")

	csrfToken := env.csrf(t, ctx)
	mr.SetError("LOADING redis is loading")

	_, err := env.engine.Login(ctx, LoginInput{
		Email:        "zack@example.com",
		Password:     testPassword,
		Role:         RoleUser,
		CSRFToken:    csrfToken,
		CaptchaToken: "captcha",
	})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable during redis outage, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	mr, rdb := newTestRedis(t)
	env := newTestEnv(t, func(cfg *Config, b *Builder) {
		cfg.Revocation.Enabled = true
		b.WithRedis(rdb)
	})
	ctx := clientCtx(testIP)
	env.signup(t, ctx, "amy@example.com", "amy")
	env.verifyEmail(t, ctx, "amy@example.com")

	res, err := env.login(t, ctx, "amy@example.com", testPassword, RoleUser)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := env.engine.Authenticate(ctx, res.Token); err != nil {
		t.Fatalf("Authenticate before logout failed: %v", err)
	}

	if err := env.engine.Logout(ctx, res.Token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := env.engine.Authenticate(ctx, res.Token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected revoked token to fail, got %v", err)
	}
	if err := env.engine.Logout(ctx, res.Token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected second logout to fail, got %v", err)
	}

	keys := mr.Keys()
	if len(keys) != 1 {
		t.Fatalf("expected one denylist key, got %v", keys)
	}
	if ttl := mr.TTL(keys[0]); ttl <= 0 || ttl > 7*24*time.Hour {
		t.Fatalf("denylist entry must expire with the token, ttl=%v", ttl)
	}
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, token := range []string{"", "Bearer ", "not.a.jwt", "Bearer abc.def.ghi"} {
		if _, err := env.engine.Authenticate(clientCtx(testIP), token); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("token %q: expected ErrUnauthorized, got %v", token, err)
		}
	}
}

func TestAuthenticateRejectsExpiredSession(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := clientCtx(testIP)
	env.signup(t, ctx, "ben@example.com", "ben")
	env.verifyEmail(t, ctx, "ben@example.com")

	res, err := env.login(t, ctx, "ben@example.com", testPassword, RoleUser)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	env.clock.Advance(7*24*time.Hour + time.Hour)
	if _, err := env.engine.Authenticate(ctx, res.Token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected expired session to fail, got %v", err)
	}
}
