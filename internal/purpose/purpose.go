// Package purpose manages single-use tokens bound to an email address and a purpose:
// email verification and password reset.
//
// Consumption is a conditional update on used=false, so a token is accepted at most
// once even when the same value is presented concurrently.
package purpose

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authgate/internal"
	"github.com/MrEthical07/authgate/store"
)

// Purpose tags what a token may be used for.
type Purpose string

const (
	EmailVerification Purpose = "email-verification"
	PasswordReset     Purpose = "password-reset"
)

const (
	// DefaultCollection stores tokens of every purpose.
	DefaultCollection = "verification_tokens"
	// DefaultVerificationTTL bounds email-verification tokens.
	DefaultVerificationTTL = time.Hour
	// DefaultPasswordResetTTL bounds password-reset tokens.
	DefaultPasswordResetTTL = time.Hour
)

var (
	// ErrTokenNotFound is returned by Peek when no unused token matches.
	ErrTokenNotFound = errors.New("purpose: token not found")
	// ErrInvalidPurpose is returned for purposes other than the declared constants.
	ErrInvalidPurpose = errors.New("purpose: invalid purpose")
	// ErrEmptyEmail is returned when issuing for an empty address.
	ErrEmptyEmail = errors.New("purpose: empty email")
)

// Token is a persisted purpose token. A nil ExpiresAt never expires.
type Token struct {
	ID        string     `bson:"_id"`
	Email     string     `bson:"email"`
	Token     string     `bson:"token"`
	Purpose   Purpose    `bson:"purpose"`
	Used      bool       `bson:"used"`
	ExpiresAt *time.Time `bson:"expires_at"`
	CreatedAt time.Time  `bson:"created_at"`
	UsedAt    *time.Time `bson:"used_at"`
}

// Expired reports whether t is past its expiry at now.
func (t Token) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}

// Config tunes a Manager.
type Config struct {
	Collection      string
	VerificationTTL time.Duration
	// PasswordResetTTL of zero selects DefaultPasswordResetTTL; a negative value issues
	// reset tokens without expiry.
	PasswordResetTTL time.Duration
	// KeepPrevious leaves earlier unused tokens of the same email and purpose usable
	// when a new one is issued. By default they are invalidated.
	KeepPrevious bool
	TokenBytes   int
	Now          func() time.Time
}

// Manager issues and consumes purpose tokens.
type Manager struct {
	store        store.Store
	collection   string
	ttls         map[Purpose]time.Duration
	keepPrevious bool
	tokenBytes   int
	now          func() time.Time
}

// NewManager returns a Manager backed by s.
func NewManager(s store.Store, cfg Config) *Manager {
	m := &Manager{
		store:        s,
		collection:   cfg.Collection,
		keepPrevious: cfg.KeepPrevious,
		tokenBytes:   cfg.TokenBytes,
		now:          cfg.Now,
	}
	if m.collection == "" {
		m.collection = DefaultCollection
	}
	if m.tokenBytes <= 0 {
		m.tokenBytes = internal.DefaultTokenBytes
	}
	if m.now == nil {
		m.now = time.Now
	}

	verify := cfg.VerificationTTL
	if verify <= 0 {
		verify = DefaultVerificationTTL
	}
	reset := cfg.PasswordResetTTL
	if reset == 0 {
		reset = DefaultPasswordResetTTL
	}
	m.ttls = map[Purpose]time.Duration{
		EmailVerification: verify,
		PasswordReset:     reset,
	}
	return m
}

// IssueEmailVerification issues an email-verification token for email.
func (m *Manager) IssueEmailVerification(ctx context.Context, email string) (string, error) {
	return m.Issue(ctx, email, EmailVerification)
}

// IssuePasswordReset issues a password-reset token for email.
func (m *Manager) IssuePasswordReset(ctx context.Context, email string) (string, error) {
	return m.Issue(ctx, email, PasswordReset)
}

// Issue creates a fresh unused token for (email, p). Unless KeepPrevious is set, earlier
// unused tokens for the same pair are marked used once the new one is stored, so a failed
// write never leaves the address without a usable token.
func (m *Manager) Issue(ctx context.Context, email string, p Purpose) (string, error) {
	ttl, ok := m.ttls[p]
	if !ok {
		return "", ErrInvalidPurpose
	}
	if email == "" {
		return "", ErrEmptyEmail
	}
	token, err := internal.NewHexToken(m.tokenBytes)
	if err != nil {
		return "", err
	}
	now := m.now()

	rec := Token{
		ID:        internal.NewRecordID(),
		Email:     email,
		Token:     token,
		Purpose:   p,
		CreatedAt: now,
	}
	if ttl > 0 {
		exp := now.Add(ttl)
		rec.ExpiresAt = &exp
	}
	if err := m.store.Create(ctx, m.collection, rec); err != nil {
		return "", err
	}

	if !m.keepPrevious {
		if err := m.supersede(ctx, rec); err != nil {
			return "", err
		}
	}
	return token, nil
}

// supersede marks unused tokens of rec's pair created no later than rec as used. Tokens
// issued concurrently after rec are left alone; each is closed by its own supersede.
func (m *Manager) supersede(ctx context.Context, rec Token) error {
	var earlier []Token
	err := m.store.FindMany(ctx, m.collection,
		store.Filter{"email": rec.Email, "purpose": string(rec.Purpose), "used": false},
		store.FindOptions{}, &earlier)
	if err != nil {
		return err
	}
	for _, t := range earlier {
		if t.ID == rec.ID || t.CreatedAt.After(rec.CreatedAt) {
			continue
		}
		if _, err := m.store.Update(ctx, m.collection,
			store.Filter{"_id": t.ID, "used": false},
			store.Patch{"used": true, "used_at": rec.CreatedAt}); err != nil {
			return err
		}
	}
	return nil
}

// Peek returns the unused token matching (email, token, p) without consuming it.
func (m *Manager) Peek(ctx context.Context, email, token string, p Purpose) (Token, error) {
	if _, ok := m.ttls[p]; !ok {
		return Token{}, ErrInvalidPurpose
	}
	if email == "" || token == "" {
		return Token{}, ErrTokenNotFound
	}

	var rec Token
	err := m.store.FindOne(ctx, m.collection, lookup(email, token, p), &rec)
	if errors.Is(err, store.ErrNotFound) {
		return Token{}, ErrTokenNotFound
	}
	if err != nil {
		return Token{}, err
	}
	return rec, nil
}

// Consume marks the matching unused token as used and reports whether this call did
// so. Missing, already used and expired tokens all yield false; an expired token is not
// marked.
func (m *Manager) Consume(ctx context.Context, email, token string, p Purpose) (bool, error) {
	_, ok, err := m.Redeem(ctx, email, token, p)
	return ok, err
}

// Redeem works like Consume and also returns the used_at stamp it wrote, which Release
// needs to undo this consumption.
func (m *Manager) Redeem(ctx context.Context, email, token string, p Purpose) (time.Time, bool, error) {
	rec, err := m.Peek(ctx, email, token, p)
	if errors.Is(err, ErrTokenNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	now := m.now().Truncate(time.Millisecond)
	if rec.Expired(now) {
		return time.Time{}, false, nil
	}

	n, err := m.store.Update(ctx, m.collection,
		lookup(email, token, p),
		store.Patch{"used": true, "used_at": now})
	if err != nil {
		return time.Time{}, false, err
	}
	if n != 1 {
		return time.Time{}, false, nil
	}
	return now, true, nil
}

// Release returns a token redeemed at usedAt to the unused state. The filter pins the
// used_at stamp, so only the consumption that wrote it can be undone.
func (m *Manager) Release(ctx context.Context, email, token string, p Purpose, usedAt time.Time) (bool, error) {
	if _, ok := m.ttls[p]; !ok {
		return false, ErrInvalidPurpose
	}
	n, err := m.store.Update(ctx, m.collection,
		store.Filter{"email": email, "token": token, "purpose": string(p), "used": true, "used_at": usedAt},
		store.Patch{"used": false, "used_at": nil})
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Now returns the manager's clock reading.
func (m *Manager) Now() time.Time {
	return m.now()
}

func lookup(email, token string, p Purpose) store.Filter {
	return store.Filter{"email": email, "token": token, "purpose": string(p), "used": false}
}
