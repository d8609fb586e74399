// Package memstore is an in-process store.Store.
//
// Records are normalized through BSON on the way in and out, so values compare the same
// way they would in the MongoDB adapter (time.Time becomes a millisecond DateTime, Go
// integers compare numerically regardless of width). All operations run under one
// mutex, which makes every conditional Update a true compare-and-swap.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/MrEthical07/authgate/internal"
	"github.com/MrEthical07/authgate/store"
)

// UniqueIndex rejects writes that would leave two records with equal values for all
// Fields. When Partial is set, only records matching it participate.
type UniqueIndex struct {
	Fields  []string
	Partial store.Filter
}

// Option configures a Store.
type Option func(*Store)

// WithUniqueIndex registers idx on collection.
func WithUniqueIndex(collection string, idx UniqueIndex) Option {
	return func(s *Store) {
		s.indexes[collection] = append(s.indexes[collection], idx)
	}
}

// Store keeps collections in memory. The zero value is not usable; call New.
type Store struct {
	mu          sync.RWMutex
	collections map[string][]bson.M
	indexes     map[string][]UniqueIndex
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		collections: make(map[string][]bson.M),
		indexes:     make(map[string][]UniqueIndex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctxErr(ctx)
}

// Create inserts doc. A missing _id is filled with a random uuid.
func (s *Store) Create(ctx context.Context, collection string, doc any) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	rec, err := normalize(doc)
	if err != nil {
		return err
	}
	if _, ok := rec["_id"]; !ok || rec["_id"] == nil {
		rec["_id"] = internal.NewRecordID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.collections[collection]
	for _, existing := range records {
		if equalValues(existing["_id"], rec["_id"]) {
			return store.ErrDuplicate
		}
	}
	if s.violatesUnique(collection, rec, -1) {
		return store.ErrDuplicate
	}
	s.collections[collection] = append(records, rec)
	return nil
}

// FindOne decodes the first record matching filter into out.
func (s *Store) FindOne(ctx context.Context, collection string, filter store.Filter, out any) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	f, err := normalizeFilter(filter)
	if err != nil {
		return err
	}

	s.mu.RLock()
	var found bson.M
	for _, rec := range s.collections[collection] {
		if matches(rec, f) {
			found = rec
			break
		}
	}
	s.mu.RUnlock()

	if found == nil {
		return store.ErrNotFound
	}
	return decode(found, out)
}

// FindMany decodes every match into out, a pointer to a slice.
func (s *Store) FindMany(ctx context.Context, collection string, filter store.Filter, opts store.FindOptions, out any) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	sliceVal := reflect.ValueOf(out)
	if sliceVal.Kind() != reflect.Pointer || sliceVal.Elem().Kind() != reflect.Slice {
		return errors.New("memstore: FindMany out must be a pointer to a slice")
	}
	f, err := normalizeFilter(filter)
	if err != nil {
		return err
	}

	s.mu.RLock()
	var hits []bson.M
	for _, rec := range s.collections[collection] {
		if matches(rec, f) {
			hits = append(hits, rec)
		}
	}
	s.mu.RUnlock()

	if opts.SortBy != "" {
		sort.SliceStable(hits, func(i, j int) bool {
			c := compareValues(hits[i][opts.SortBy], hits[j][opts.SortBy])
			if opts.Descending {
				return c > 0
			}
			return c < 0
		})
	}
	hits = page(hits, opts.Skip, opts.Limit)

	elemType := sliceVal.Elem().Type().Elem()
	result := reflect.MakeSlice(sliceVal.Elem().Type(), 0, len(hits))
	for _, rec := range hits {
		item := reflect.New(elemType)
		if err := decode(rec, item.Interface()); err != nil {
			return err
		}
		result = reflect.Append(result, item.Elem())
	}
	sliceVal.Elem().Set(result)
	return nil
}

// Update applies patch to every record matching filter. Either all matches are updated
// or, when any would violate a unique index, none are.
func (s *Store) Update(ctx context.Context, collection string, filter store.Filter, patch store.Patch) (int64, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, err
	}
	f, err := normalizeFilter(filter)
	if err != nil {
		return 0, err
	}
	p, err := normalize(bson.M(patch))
	if err != nil {
		return 0, err
	}
	delete(p, "_id")

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.collections[collection]
	var idx []int
	staged := make(map[int]bson.M)
	for i, rec := range records {
		if !matches(rec, f) {
			continue
		}
		next := make(bson.M, len(rec)+len(p))
		for k, v := range rec {
			next[k] = v
		}
		for k, v := range p {
			next[k] = v
		}
		idx = append(idx, i)
		staged[i] = next
	}

	for _, i := range idx {
		if s.violatesUniqueStaged(collection, staged, i) {
			return 0, store.ErrDuplicate
		}
	}
	for _, i := range idx {
		records[i] = staged[i]
	}
	return int64(len(idx)), nil
}

// Count returns the number of records matching filter.
func (s *Store) Count(ctx context.Context, collection string, filter store.Filter) (int64, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, err
	}
	f, err := normalizeFilter(filter)
	if err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, rec := range s.collections[collection] {
		if matches(rec, f) {
			n++
		}
	}
	return n, nil
}

// violatesUnique reports whether rec collides with any record other than skip.
func (s *Store) violatesUnique(collection string, rec bson.M, skip int) bool {
	return s.violatesUniqueStaged(collection, map[int]bson.M{skip: rec}, skip)
}

// violatesUniqueStaged checks staged[target] against the collection as it would look
// with every staged record applied.
func (s *Store) violatesUniqueStaged(collection string, staged map[int]bson.M, target int) bool {
	rec := staged[target]
	for _, ix := range s.indexes[collection] {
		partial, err := normalizeFilter(ix.Partial)
		if err != nil || !matches(rec, partial) {
			continue
		}
		for i, other := range s.collections[collection] {
			if i == target {
				continue
			}
			if next, ok := staged[i]; ok {
				other = next
			}
			if !matches(other, partial) {
				continue
			}
			if sameKey(rec, other, ix.Fields) {
				return true
			}
		}
	}
	return false
}

func sameKey(a, b bson.M, fields []string) bool {
	for _, field := range fields {
		if !equalValues(a[field], b[field]) {
			return false
		}
	}
	return true
}

func page(hits []bson.M, skip, limit int64) []bson.M {
	if skip > 0 {
		if skip >= int64(len(hits)) {
			return nil
		}
		hits = hits[skip:]
	}
	if limit > 0 && limit < int64(len(hits)) {
		hits = hits[:limit]
	}
	return hits
}

func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func normalize(doc any) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("memstore: encode: %w", err)
	}
	out := bson.M{}
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("memstore: normalize: %w", err)
	}
	return out, nil
}

func normalizeFilter(filter store.Filter) (bson.M, error) {
	if len(filter) == 0 {
		return bson.M{}, nil
	}
	return normalize(bson.M(filter))
}

func decode(rec bson.M, out any) error {
	raw, err := bson.Marshal(rec)
	if err != nil {
		return fmt.Errorf("memstore: encode: %w", err)
	}
	if err := bson.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("memstore: decode: %w", err)
	}
	return nil
}
