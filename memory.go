package authgate

import (
	"github.com/MrEthical07/authgate/store"
	"github.com/MrEthical07/authgate/store/memstore"
)

// NewMemoryStore returns an in-memory store carrying the unique indexes the engine
// relies on: email and username per account kind among non-deleted accounts, and one
// CSRF record per client. It mirrors what mongostore.Provision creates.
func NewMemoryStore(c CollectionsConfig) *memstore.Store {
	live := store.Filter{"deleted_at": nil}
	return memstore.New(
		memstore.WithUniqueIndex(c.Users, memstore.UniqueIndex{Fields: []string{"email"}, Partial: live}),
		memstore.WithUniqueIndex(c.Users, memstore.UniqueIndex{Fields: []string{"username"}, Partial: live}),
		memstore.WithUniqueIndex(c.Admins, memstore.UniqueIndex{Fields: []string{"email"}, Partial: live}),
		memstore.WithUniqueIndex(c.Admins, memstore.UniqueIndex{Fields: []string{"username"}, Partial: live}),
		memstore.WithUniqueIndex(c.CSRFTokens, memstore.UniqueIndex{Fields: []string{"client_id"}}),
	)
}
