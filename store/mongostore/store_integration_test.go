//go:build integration

package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/authgate/internal"
	"github.com/MrEthical07/authgate/store"
)

type account struct {
	ID        string     `bson:"_id"`
	Email     string     `bson:"email"`
	Username  string     `bson:"username"`
	DeletedAt *time.Time `bson:"deleted_at"`
}

func newIntegrationStore(t *testing.T) (*Store, Collections) {
	t.Helper()
	url := os.Getenv("MONGODB_URL")
	if url == "" {
		t.Skip("MONGODB_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	client, err := Connect(ctx, Config{ConnectionURL: url, ConnectTimeout: 5 * time.Second, RetryAttempts: 1})
	require.NoError(t, err)

	db := client.Database("authgate_it_" + internal.NewRecordID()[:8])
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	cols := Collections{
		Users:              "users",
		Admins:             "admins",
		VerificationTokens: "verification_tokens",
		CSRFTokens:         "csrf_tokens",
		Logs:               "logs",
	}
	require.NoError(t, Provision(ctx, db, cols))
	require.NoError(t, Provision(ctx, db, cols), "provision must be idempotent")
	return New(db), cols
}

func TestMongoStoreRoundTrip(t *testing.T) {
	s, cols := newIntegrationStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, cols.Users, account{ID: "u1", Email: "a@x.io", Username: "alice"}))
	assert.ErrorIs(t, s.Create(ctx, cols.Users, account{ID: "u2", Email: "a@x.io", Username: "bob"}), store.ErrDuplicate)

	var got account
	require.NoError(t, s.FindOne(ctx, cols.Users, store.Filter{"email": "a@x.io", "deleted_at": nil}, &got))
	assert.Equal(t, "u1", got.ID)
	assert.ErrorIs(t, s.FindOne(ctx, cols.Users, store.Filter{"email": "none@x.io"}, &got), store.ErrNotFound)

	n, err := s.Update(ctx, cols.Users, store.Filter{"_id": "u1"}, store.Patch{"deleted_at": time.Now()})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, s.Create(ctx, cols.Users, account{ID: "u3", Email: "a@x.io", Username: "alice"}))

	var all []account
	require.NoError(t, s.FindMany(ctx, cols.Users, nil, store.FindOptions{SortBy: "_id", Descending: true}, &all))
	require.Len(t, all, 2)
	assert.Equal(t, "u3", all[0].ID)
}
