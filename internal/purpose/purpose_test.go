package purpose

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/authgate/store"
	"github.com/MrEthical07/authgate/store/memstore"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

func newTestManager(t *testing.T, cfg Config) (*Manager, *memstore.Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	cfg.Now = clock.Now
	s := memstore.New()
	return NewManager(s, cfg), s, clock
}

func TestIssueReturns96HexChars(t *testing.T) {
	m, _, _ := newTestManager(t, Config{})
	token, err := m.IssueEmailVerification(context.Background(), "a@x.io")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if len(token) != 96 {
		t.Fatalf("expected 96 hex chars, got %d", len(token))
	}
}

func TestConsumeExactlyOnce(t *testing.T) {
	m, _, _ := newTestManager(t, Config{})
	ctx := context.Background()

	token, _ := m.IssueEmailVerification(ctx, "a@x.io")

	ok, err := m.Consume(ctx, "a@x.io", token, EmailVerification)
	if err != nil || !ok {
		t.Fatalf("expected first consume to succeed: ok=%v err=%v", ok, err)
	}
	ok, err = m.Consume(ctx, "a@x.io", token, EmailVerification)
	if err != nil {
		t.Fatalf("Consume error: %v", err)
	}
	if ok {
		t.Fatal("expected second consume to fail")
	}
}

func TestConsumeChecksEmailAndPurpose(t *testing.T) {
	m, _, _ := newTestManager(t, Config{})
	ctx := context.Background()

	token, _ := m.IssuePasswordReset(ctx, "a@x.io")

	if ok, _ := m.Consume(ctx, "b@x.io", token, PasswordReset); ok {
		t.Fatal("expected token bound to another email to fail")
	}
	if ok, _ := m.Consume(ctx, "a@x.io", token, EmailVerification); ok {
		t.Fatal("expected token of another purpose to fail")
	}
	if ok, _ := m.Consume(ctx, "a@x.io", token, PasswordReset); !ok {
		t.Fatal("expected matching token to be consumed")
	}
	if _, err := m.Consume(ctx, "a@x.io", token, Purpose("login")); err != ErrInvalidPurpose {
		t.Fatalf("expected ErrInvalidPurpose, got %v", err)
	}
}

func TestEmailVerificationExpiresAfterOneHour(t *testing.T) {
	m, s, clock := newTestManager(t, Config{})
	ctx := context.Background()

	token, _ := m.IssueEmailVerification(ctx, "a@x.io")
	clock.Advance(time.Hour + time.Second)

	ok, err := m.Consume(ctx, "a@x.io", token, EmailVerification)
	if err != nil {
		t.Fatalf("Consume error: %v", err)
	}
	if ok {
		t.Fatal("expected expired token to fail")
	}

	unused, _ := s.Count(ctx, DefaultCollection, store.Filter{"token": token, "used": false})
	if unused != 1 {
		t.Fatal("expected expired token to stay unconsumed")
	}

	rec, err := m.Peek(ctx, "a@x.io", token, EmailVerification)
	if err != nil {
		t.Fatalf("Peek error: %v", err)
	}
	if !rec.Expired(m.Now()) {
		t.Fatal("expected Peek to report the token as expired")
	}
}

func TestPasswordResetTTLConfigurable(t *testing.T) {
	ctx := context.Background()

	m, _, clock := newTestManager(t, Config{})
	token, _ := m.IssuePasswordReset(ctx, "a@x.io")
	clock.Advance(2 * time.Hour)
	if ok, _ := m.Consume(ctx, "a@x.io", token, PasswordReset); ok {
		t.Fatal("expected reset token to expire after the default hour")
	}

	noExpiry, _, clock := newTestManager(t, Config{PasswordResetTTL: -1})
	token, _ = noExpiry.IssuePasswordReset(ctx, "a@x.io")
	clock.Advance(30 * 24 * time.Hour)
	if ok, _ := noExpiry.Consume(ctx, "a@x.io", token, PasswordReset); !ok {
		t.Fatal("expected non-expiring reset token to be consumable")
	}
}

func TestIssueInvalidatesPreviousByDefault(t *testing.T) {
	ctx := context.Background()

	m, _, _ := newTestManager(t, Config{})
	first, _ := m.IssueEmailVerification(ctx, "a@x.io")
	second, _ := m.IssueEmailVerification(ctx, "a@x.io")
	if ok, _ := m.Consume(ctx, "a@x.io", first, EmailVerification); ok {
		t.Fatal("expected superseded token to fail")
	}
	if ok, _ := m.Consume(ctx, "a@x.io", second, EmailVerification); !ok {
		t.Fatal("expected latest token to succeed")
	}

	keep, _, _ := newTestManager(t, Config{KeepPrevious: true})
	first, _ = keep.IssueEmailVerification(ctx, "a@x.io")
	_, _ = keep.IssueEmailVerification(ctx, "a@x.io")
	if ok, _ := keep.Consume(ctx, "a@x.io", first, EmailVerification); !ok {
		t.Fatal("expected earlier token to remain usable with KeepPrevious")
	}
}

func TestIssueDoesNotTouchOtherPurposes(t *testing.T) {
	m, _, _ := newTestManager(t, Config{})
	ctx := context.Background()

	verify, _ := m.IssueEmailVerification(ctx, "a@x.io")
	_, _ = m.IssuePasswordReset(ctx, "a@x.io")

	if ok, _ := m.Consume(ctx, "a@x.io", verify, EmailVerification); !ok {
		t.Fatal("expected verification token to survive a reset issue")
	}
}

func TestConcurrentConsumeHasSingleWinner(t *testing.T) {
	m, _, _ := newTestManager(t, Config{})
	ctx := context.Background()
	token, _ := m.IssuePasswordReset(ctx, "a@x.io")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := m.Consume(ctx, "a@x.io", token, PasswordReset)
			if err != nil {
				t.Errorf("Consume error: %v", err)
			}
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
}

func TestPeekMissing(t *testing.T) {
	m, _, _ := newTestManager(t, Config{})
	if _, err := m.Peek(context.Background(), "a@x.io", "nope", EmailVerification); err != ErrTokenNotFound {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
	if _, err := m.Issue(context.Background(), "", EmailVerification); err != ErrEmptyEmail {
		t.Fatalf("expected ErrEmptyEmail, got %v", err)
	}
}

type failingCreateStore struct {
	store.Store
	fail bool
}

func (s *failingCreateStore) Create(ctx context.Context, collection string, doc any) error {
	if s.fail {
		return store.ErrUnavailable
	}
	return s.Store.Create(ctx, collection, doc)
}

func TestIssueFailureKeepsPreviousToken(t *testing.T) {
	ctx := context.Background()
	s := &failingCreateStore{Store: memstore.New()}
	m := NewManager(s, Config{})

	first, err := m.IssuePasswordReset(ctx, "a@x.io")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	s.fail = true
	if _, err := m.IssuePasswordReset(ctx, "a@x.io"); err != store.ErrUnavailable {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	if ok, _ := m.Consume(ctx, "a@x.io", first, PasswordReset); !ok {
		t.Fatal("expected earlier token to stay usable after a failed issue")
	}
}

func TestReleaseUndoesRedeem(t *testing.T) {
	m, s, clock := newTestManager(t, Config{})
	ctx := context.Background()
	token, _ := m.IssuePasswordReset(ctx, "a@x.io")

	usedAt, ok, err := m.Redeem(ctx, "a@x.io", token, PasswordReset)
	if err != nil || !ok {
		t.Fatalf("expected redeem to succeed: ok=%v err=%v", ok, err)
	}

	clock.Advance(time.Minute)
	if released, err := m.Release(ctx, "a@x.io", token, PasswordReset, usedAt.Add(time.Second)); err != nil || released {
		t.Fatalf("expected release with another stamp to match nothing: released=%v err=%v", released, err)
	}
	if released, err := m.Release(ctx, "a@x.io", token, PasswordReset, usedAt); err != nil || !released {
		t.Fatalf("expected release to succeed: released=%v err=%v", released, err)
	}

	unused, _ := s.Count(ctx, DefaultCollection, store.Filter{"token": token, "used": false, "used_at": nil})
	if unused != 1 {
		t.Fatal("expected released token to be unused again")
	}
	if ok, _ := m.Consume(ctx, "a@x.io", token, PasswordReset); !ok {
		t.Fatal("expected released token to be consumable")
	}
}
