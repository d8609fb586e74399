// Package csrf issues anti-forgery tokens bound to a client identifier and verifies them
// with single-use rotation.
//
// Each client id owns at most one record. Issue overwrites it in place; Verify accepts
// the current token once and atomically replaces it, so a replayed token fails.
package csrf

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authgate/internal"
	"github.com/MrEthical07/authgate/store"
)

const (
	// DefaultTTL is how long an issued or rotated token stays valid.
	DefaultTTL = 15 * time.Minute
	// DefaultCollection holds one record per client id.
	DefaultCollection = "csrf_tokens"

	sweepPageSize = 200
)

// ErrEmptyClientID is returned by Issue when no client identifier is available.
var ErrEmptyClientID = errors.New("csrf: empty client id")

// Record is the persisted token state for one client.
type Record struct {
	ID        string    `bson:"_id"`
	ClientID  string    `bson:"client_id"`
	Token     string    `bson:"token"`
	ExpiresAt time.Time `bson:"expires_at"`
	Verified  bool      `bson:"verified"`
	Expired   bool      `bson:"expired"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Config tunes a Manager. Zero fields take defaults.
type Config struct {
	Collection string
	TTL        time.Duration
	TokenBytes int
	Now        func() time.Time
}

// Manager issues and verifies CSRF tokens against a store.Store.
type Manager struct {
	store      store.Store
	collection string
	ttl        time.Duration
	tokenBytes int
	now        func() time.Time
}

// NewManager returns a Manager backed by s.
func NewManager(s store.Store, cfg Config) *Manager {
	m := &Manager{
		store:      s,
		collection: cfg.Collection,
		ttl:        cfg.TTL,
		tokenBytes: cfg.TokenBytes,
		now:        cfg.Now,
	}
	if m.collection == "" {
		m.collection = DefaultCollection
	}
	if m.ttl <= 0 {
		m.ttl = DefaultTTL
	}
	if m.tokenBytes <= 0 {
		m.tokenBytes = internal.CSRFTokenBytes
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// TTL returns the configured token lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue returns a fresh token for clientID, replacing any previous one.
func (m *Manager) Issue(ctx context.Context, clientID string) (string, error) {
	if clientID == "" {
		return "", ErrEmptyClientID
	}
	token, err := internal.NewHexToken(m.tokenBytes)
	if err != nil {
		return "", err
	}
	now := m.now()
	patch := store.Patch{
		"token":      token,
		"expires_at": now.Add(m.ttl),
		"verified":   false,
		"expired":    false,
		"updated_at": now,
	}

	n, err := m.store.Update(ctx, m.collection, store.Filter{"client_id": clientID}, patch)
	if err != nil {
		return "", err
	}
	if n > 0 {
		return token, nil
	}

	err = m.store.Create(ctx, m.collection, Record{
		ID:        internal.NewRecordID(),
		ClientID:  clientID,
		Token:     token,
		ExpiresAt: now.Add(m.ttl),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if errors.Is(err, store.ErrDuplicate) {
		// A concurrent Issue created the record first; take it over.
		if _, err := m.store.Update(ctx, m.collection, store.Filter{"client_id": clientID}, patch); err != nil {
			return "", err
		}
		return token, nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

// Verify reports whether token is the current, unexpired token for clientID. On
// success the token is rotated, so the same value never verifies twice. An expired
// token is rejected without rotation.
func (m *Manager) Verify(ctx context.Context, clientID, token string) (bool, error) {
	if clientID == "" || token == "" {
		return false, nil
	}

	var rec Record
	err := m.store.FindOne(ctx, m.collection, store.Filter{"client_id": clientID, "token": token}, &rec)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	now := m.now()
	if now.After(rec.ExpiresAt) {
		return false, nil
	}

	next, err := internal.NewHexToken(m.tokenBytes)
	if err != nil {
		return false, err
	}
	n, err := m.store.Update(ctx, m.collection,
		store.Filter{"client_id": clientID, "token": token},
		store.Patch{
			"token":      next,
			"expires_at": now.Add(m.ttl),
			"verified":   true,
			"updated_at": now,
		})
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SweepExpired flags every record past its expiry with expired=true and returns how
// many it flagged. Records are never deleted. A record rotated or reissued while the
// sweep runs is left alone.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	now := m.now()
	flagged := 0
	var skip int64
	for {
		var page []Record
		err := m.store.FindMany(ctx, m.collection,
			store.Filter{"expired": false},
			store.FindOptions{Skip: skip, Limit: sweepPageSize, SortBy: "client_id"},
			&page)
		if err != nil {
			return flagged, fmt.Errorf("csrf sweep: %w", err)
		}

		for _, rec := range page {
			if !now.After(rec.ExpiresAt) {
				skip++
				continue
			}
			n, err := m.store.Update(ctx, m.collection,
				store.Filter{"client_id": rec.ClientID, "token": rec.Token, "expired": false},
				store.Patch{"expired": true})
			if err != nil {
				return flagged, fmt.Errorf("csrf sweep: %w", err)
			}
			if n == 0 {
				// Changed underneath us and still unflagged.
				skip++
				continue
			}
			flagged++
		}

		if len(page) < sweepPageSize {
			return flagged, nil
		}
	}
}
