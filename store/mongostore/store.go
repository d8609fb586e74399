package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/MrEthical07/authgate/store"
)

// Store adapts a *mongo.Database to store.Store.
type Store struct {
	db *mongo.Database
}

var _ store.Store = (*Store)(nil)

// New wraps db.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// Ping checks connectivity through the database's client.
func (s *Store) Ping(ctx context.Context) error {
	return mapErr(s.db.Client().Ping(ctx, nil))
}

// Create inserts doc.
func (s *Store) Create(ctx context.Context, collection string, doc any) error {
	_, err := s.db.Collection(collection).InsertOne(ctx, doc)
	return mapErr(err)
}

// FindOne decodes the first match into out.
func (s *Store) FindOne(ctx context.Context, collection string, filter store.Filter, out any) error {
	err := s.db.Collection(collection).FindOne(ctx, toBSON(filter)).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return mapErr(err)
}

// FindMany decodes all matches into out, a pointer to a slice.
func (s *Store) FindMany(ctx context.Context, collection string, filter store.Filter, opts store.FindOptions, out any) error {
	findOpts := options.Find()
	if opts.Skip > 0 {
		findOpts.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}
	if opts.SortBy != "" {
		dir := 1
		if opts.Descending {
			dir = -1
		}
		findOpts.SetSort(bson.D{{Key: opts.SortBy, Value: dir}})
	}

	cur, err := s.db.Collection(collection).Find(ctx, toBSON(filter), findOpts)
	if err != nil {
		return mapErr(err)
	}
	return mapErr(cur.All(ctx, out))
}

// Update sets patch on every match and returns the matched count.
func (s *Store) Update(ctx context.Context, collection string, filter store.Filter, patch store.Patch) (int64, error) {
	if len(patch) == 0 {
		n, err := s.Count(ctx, collection, filter)
		return n, err
	}
	res, err := s.db.Collection(collection).UpdateMany(ctx, toBSON(filter), bson.M{"$set": bson.M(patch)})
	if err != nil {
		return 0, mapErr(err)
	}
	return res.MatchedCount, nil
}

// Count returns the number of matches.
func (s *Store) Count(ctx context.Context, collection string, filter store.Filter) (int64, error) {
	n, err := s.db.Collection(collection).CountDocuments(ctx, toBSON(filter))
	if err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

func toBSON(filter store.Filter) bson.M {
	if filter == nil {
		return bson.M{}
	}
	return bson.M(filter)
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled),
		errors.Is(err, mongo.ErrClientDisconnected):
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	default:
		return err
	}
}
