package audit

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/MrEthical07/authgate/internal"
	"github.com/MrEthical07/authgate/store"
)

// DefaultCollection receives StoreSink entries.
const DefaultCollection = "logs"

// Entry is the canonical audit record.
type Entry struct {
	ID        string    `bson:"_id" json:"id,omitempty"`
	Action    string    `bson:"action" json:"action"`
	Email     string    `bson:"email" json:"email"`
	IP        string    `bson:"ip" json:"ip,omitempty"`
	UserAgent string    `bson:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Sink receives emitted audit entries.
type Sink interface {
	Emit(ctx context.Context, entry Entry)
}

// NoOpSink drops audit entries.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Entry) {}

// StoreSink appends entries to a store collection.
type StoreSink struct {
	store      store.Store
	collection string
	logger     *slog.Logger
}

// NewStoreSink returns a sink writing to collection (DefaultCollection when empty).
// Write failures are logged on logger and otherwise swallowed.
func NewStoreSink(s store.Store, collection string, logger *slog.Logger) *StoreSink {
	if collection == "" {
		collection = DefaultCollection
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &StoreSink{store: s, collection: collection, logger: logger}
}

func (s *StoreSink) Emit(ctx context.Context, entry Entry) {
	if entry.ID == "" {
		entry.ID = internal.NewRecordID()
	}
	if err := s.store.Create(ctx, s.collection, entry); err != nil {
		s.logger.ErrorContext(ctx, "audit write failed",
			slog.String("action", entry.Action),
			slog.String("error", err.Error()),
		)
	}
}

// MultiSink fans an entry out to every sink in order.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, entry Entry) {
	for _, s := range m {
		s.Emit(ctx, entry)
	}
}

// ChannelSink writes audit entries into a buffered channel.
type ChannelSink struct {
	events chan Entry
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Entry, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, entry Entry) {
	select {
	case s.events <- entry:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Entry {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, entry Entry) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
