package authgate

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authgate/captcha"
	"github.com/MrEthical07/authgate/mail"
	"github.com/MrEthical07/authgate/store/memstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testIP       = "1.2.3.4"
	testPassword = "correct-horse-battery"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// lastToken extracts the token from the most recent message with tag.
func (m *recordingMailer) lastToken(t *testing.T, tag string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].Tag != tag {
			continue
		}
		_, token, ok := strings.Cut(m.sent[i].Text, ": ")
		if !ok {
			t.Fatalf("unexpected mail body %q", m.sent[i].Text)
		}
		return token
	}
	t.Fatalf("no %s mail sent", tag)
	return ""
}

type testEnv struct {
	engine *Engine
	store  *memstore.Store
	mailer *recordingMailer
	clock  *fakeClock
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = testSecret
	cfg.Password.BcryptCost = bcrypt.MinCost
	cfg.Audit.Async = false
	return cfg
}

// newTestEnv builds an engine on an in-memory store. tweak may adjust the
// configuration or the builder before Build.
func newTestEnv(t *testing.T, tweak func(cfg *Config, b *Builder)) *testEnv {
	t.Helper()

	cfg := testConfig()
	env := &testEnv{
		store:  NewMemoryStore(cfg.Collections),
		mailer: &recordingMailer{},
		clock:  newFakeClock(),
	}

	b := New().
		WithStore(env.store).
		WithCaptcha(captcha.Static{Accept: true}).
		WithMailer(env.mailer).
		WithClock(env.clock.Now)
	if tweak != nil {
		tweak(&cfg, b)
	}
	b.WithConfig(cfg)

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func clientCtx(ip string) context.Context {
	ctx := WithClientIP(context.Background(), ip)
	return WithUserAgent(ctx, "authgate-test")
}

// csrf issues a fresh CSRF token for the client in ctx.
func (env *testEnv) csrf(t *testing.T, ctx context.Context) string {
	t.Helper()
	token, err := env.engine.IssueCSRFToken(ctx)
	if err != nil {
		t.Fatalf("IssueCSRFToken failed: %v", err)
	}
	return token
}

func (env *testEnv) signup(t *testing.T, ctx context.Context, email, username string) {
	t.Helper()
	_, err := env.engine.Signup(ctx, SignupInput{
		Email:        email,
		Password:     testPassword,
		Username:     username,
		CSRFToken:    env.csrf(t, ctx),
		CaptchaToken: "captcha",
	})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
}

func (env *testEnv) verifyEmail(t *testing.T, ctx context.Context, email string) {
	t.Helper()
	err := env.engine.SendVerificationToken(ctx, SendVerificationInput{Email: email, CSRFToken: env.csrf(t, ctx)})
	if err != nil {
		t.Fatalf("SendVerificationToken failed: %v", err)
	}
	err = env.engine.VerifyToken(ctx, VerifyTokenInput{
		Email:        email,
		Token:        env.mailer.lastToken(t, mail.TagEmailVerification),
		CSRFToken:    env.csrf(t, ctx),
		CaptchaToken: "captcha",
	})
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
}

func (env *testEnv) login(t *testing.T, ctx context.Context, email, password string, role Role) (*LoginResult, error) {
	t.Helper()
	return env.engine.Login(ctx, LoginInput{
		Email:        email,
		Password:     password,
		Role:         role,
		CSRFToken:    env.csrf(t, ctx),
		CaptchaToken: "captcha",
	})
}

func (env *testEnv) count(t *testing.T, collection string, filter map[string]any) int64 {
	t.Helper()
	n, err := env.store.Count(context.Background(), collection, filter)
	if err != nil {
		t.Fatalf("Count(%s) failed: %v", collection, err)
	}
	return n
}
