package mongostore

import (
	"context"
	"fmt"
	"slices"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// liveOnly restricts account uniqueness to records that are not soft-deleted.
var liveOnly = bson.M{"deleted_at": bson.M{"$type": "null"}}

// Provision creates any missing collection and the indexes the engine relies on. It is
// idempotent.
func Provision(ctx context.Context, db *mongo.Database, c Collections) error {
	existing, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return mapErr(err)
	}
	for _, name := range c.all() {
		if slices.Contains(existing, name) {
			continue
		}
		if err := db.CreateCollection(ctx, name); err != nil {
			return fmt.Errorf("create collection %s: %w", name, mapErr(err))
		}
	}

	indexes := map[string][]mongo.IndexModel{
		c.Users:              accountIndexes(),
		c.Admins:             accountIndexes(),
		c.CSRFTokens:         {uniqueIndex("client_id_unique", bson.D{{Key: "client_id", Value: 1}}, nil)},
		c.VerificationTokens: {{Keys: bson.D{{Key: "email", Value: 1}, {Key: "token", Value: 1}, {Key: "purpose", Value: 1}}, Options: options.Index().SetName("lookup")}},
	}
	for _, name := range c.all() {
		models := append(indexes[name], mongo.IndexModel{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetName("created_at"),
		})
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, mapErr(err))
		}
	}
	return nil
}

func accountIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		uniqueIndex("email_live_unique", bson.D{{Key: "email", Value: 1}}, liveOnly),
		uniqueIndex("username_live_unique", bson.D{{Key: "username", Value: 1}}, liveOnly),
	}
}

func uniqueIndex(name string, keys bson.D, partial bson.M) mongo.IndexModel {
	opts := options.Index().SetName(name).SetUnique(true)
	if partial != nil {
		opts.SetPartialFilterExpression(partial)
	}
	return mongo.IndexModel{Keys: keys, Options: opts}
}
