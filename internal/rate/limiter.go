package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters. A zero Max* disables that limit.
type Config struct {
	Namespace            string
	EnableIPThrottle     bool
	MaxLoginAttempts     int
	LoginCooldown        time.Duration
	MaxForgotRequests    int
	ForgotCooldown       time.Duration
	MaxVerificationSends int
	VerificationCooldown time.Duration
}

// Limiter enforces per-email and per-IP budgets using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Namespace == "" {
		cfg.Namespace = "authgate:rl"
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckLogin reports ErrRateLimited when the email or IP has exceeded the failed-login
// budget. It does not count the attempt itself.
func (l *Limiter) CheckLogin(ctx context.Context, email, ip string) error {
	if l.config.MaxLoginAttempts <= 0 {
		return nil
	}
	if err := l.checkCounter(ctx, l.loginUserKey(email), l.config.MaxLoginAttempts); err != nil {
		return err
	}

	if l.config.EnableIPThrottle && ip != "" {
		if err := l.checkCounter(ctx, l.loginIPKey(ip), l.config.MaxLoginAttempts); err != nil {
			return err
		}
	}

	return nil
}

// IncrementLogin records a failed login attempt for the email+IP pair.
func (l *Limiter) IncrementLogin(ctx context.Context, email, ip string) error {
	if l.config.MaxLoginAttempts <= 0 {
		return nil
	}
	if _, err := l.incrementWithTTL(ctx, l.loginUserKey(email), l.config.LoginCooldown); err != nil {
		return err
	}

	if l.config.EnableIPThrottle && ip != "" {
		if _, err := l.incrementWithTTL(ctx, l.loginIPKey(ip), l.config.LoginCooldown); err != nil {
			return err
		}
	}

	return nil
}

// ResetLogin clears the per-email failed-login counter after a successful login. The
// per-IP counter is left to expire so one good account cannot reset an attacker's IP
// budget.
func (l *Limiter) ResetLogin(ctx context.Context, email string) error {
	if l.config.MaxLoginAttempts <= 0 {
		return nil
	}
	if err := l.redis.Del(ctx, l.loginUserKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// LoginAttempts returns the current failed-login counter for email.
// Missing keys return zero and do not reveal account existence.
func (l *Limiter) LoginAttempts(ctx context.Context, email string) (int, error) {
	count, err := l.redis.Get(ctx, l.loginUserKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// AllowForgotPassword counts a forgot-password request and reports ErrRateLimited once
// the email or IP exceeds its window budget.
func (l *Limiter) AllowForgotPassword(ctx context.Context, email, ip string) error {
	if l.config.MaxForgotRequests <= 0 {
		return nil
	}
	if err := l.enforceFixedWindow(ctx, l.forgotUserKey(email), l.config.MaxForgotRequests, l.config.ForgotCooldown); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		return l.enforceFixedWindow(ctx, l.forgotIPKey(ip), l.config.MaxForgotRequests, l.config.ForgotCooldown)
	}
	return nil
}

// AllowVerificationSend counts a verification-email request for email.
func (l *Limiter) AllowVerificationSend(ctx context.Context, email string) error {
	if l.config.MaxVerificationSends <= 0 {
		return nil
	}
	return l.enforceFixedWindow(ctx, l.verifyUserKey(email), l.config.MaxVerificationSends, l.config.VerificationCooldown)
}

func (l *Limiter) checkCounter(ctx context.Context, key string, maxAttempts int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count >= int64(maxAttempts) {
		return ErrRateLimited
	}

	return nil
}

func (l *Limiter) enforceFixedWindow(ctx context.Context, key string, maxAttempts int, ttl time.Duration) error {
	count, err := l.incrementWithTTL(ctx, key, ttl)
	if err != nil {
		return err
	}
	if count > int64(maxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// incrementWithTTL bumps key and sets its TTL in one MULTI/EXEC. ExpireNX only stamps a
// key without a TTL, so the window is fixed from the first hit and a key that somehow lost
// its TTL cannot lock the subject out forever.
func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		if ttl > 0 {
			pipe.ExpireNX(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return incr.Val(), nil
}
