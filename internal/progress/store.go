// Package progress persists ReadingProgress records as one JSON collection
// stored under a single key of a durable medium.
//
// Every operation is fail-soft: an unavailable medium or a corrupt blob
// degrades to "nothing stored" and is only logged. Save is a whole-blob
// read-modify-write. Calls on one Store are serialized; two processes
// writing the same key can still lose an update (last write wins).
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/escalopa/kid-reader-bot/internal/domain"
	"github.com/escalopa/kid-reader-bot/internal/logger"
)

// DefaultKey is the fixed name the collection is stored under
const DefaultKey = "kid-reader-progress"

// ErrCorrupt marks a stored collection that is not valid JSON
var ErrCorrupt = errors.New("corrupt progress collection")

type Store struct {
	medium domain.Medium
	key    string
	now    func() time.Time
	log    *logger.Logger
	mu     sync.Mutex
}

type Option func(*Store)

// WithClock overrides the time source used to stamp lastReadAt
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

// NewStore creates a store over medium under key (DefaultKey when empty)
func NewStore(medium domain.Medium, key string, opts ...Option) *Store {
	if key == "" {
		key = DefaultKey
	}
	s := &Store{
		medium: medium,
		key:    key,
		now:    time.Now,
		log:    logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("progress_key", key)
	return s
}

// LearnerKey namespaces the collection key for one learner
func LearnerKey(base, learnerID string) string {
	if base == "" {
		base = DefaultKey
	}
	return base + ":" + learnerID
}

func (s *Store) Key() string {
	return s.key
}

// IsAvailable probes whether the medium is writable
func (s *Store) IsAvailable(ctx context.Context) bool {
	if s.medium == nil {
		return false
	}
	if err := s.medium.Probe(ctx); err != nil {
		s.log.Debug("progress medium unavailable", "error", err)
		return false
	}
	return true
}

// Load returns the record for storyID, or nil when absent, unavailable or corrupt
func (s *Store) Load(ctx context.Context, storyID string) *domain.ReadingProgress {
	if !s.IsAvailable(ctx) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll(ctx)
	if err != nil {
		s.log.Warn("failed to load reading progress", "story", storyID, "error", err)
		return nil
	}
	return all[storyID]
}

// Save replaces the record for progress.StoryID and stamps LastReadAt
func (s *Store) Save(ctx context.Context, progress *domain.ReadingProgress) {
	if progress == nil || !s.IsAvailable(ctx) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll(ctx)
	switch {
	case errors.Is(err, ErrCorrupt):
		// A corrupt collection is replaced rather than patched.
		s.log.Warn("discarding unreadable progress collection", "error", err)
		all = domain.UserProgress{}
	case err != nil:
		// Writing now would drop every record the failed read could not see.
		s.log.Warn("failed to save reading progress", "story", progress.StoryID, "error", err)
		return
	}

	record := progress.Clone()
	record.LastReadAt = s.now().UTC()
	record.Normalize()
	all[record.StoryID] = record

	if err := s.writeAll(ctx, all); err != nil {
		s.log.Warn("failed to save reading progress", "story", record.StoryID, "error", err)
		return
	}
	progress.LastReadAt = record.LastReadAt
}

// LoadAll returns every stored record; empty on unavailable medium or parse failure
func (s *Store) LoadAll(ctx context.Context) domain.UserProgress {
	if !s.IsAvailable(ctx) {
		return domain.UserProgress{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll(ctx)
	if err != nil {
		s.log.Warn("failed to load progress data", "error", err)
		return domain.UserProgress{}
	}
	return all
}

// Clear removes the record of one story
func (s *Store) Clear(ctx context.Context, storyID string) {
	if !s.IsAvailable(ctx) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll(ctx)
	if err != nil {
		s.log.Warn("failed to clear story progress", "story", storyID, "error", err)
		return
	}
	if _, ok := all[storyID]; !ok {
		return
	}
	delete(all, storyID)
	if err := s.writeAll(ctx, all); err != nil {
		s.log.Warn("failed to clear story progress", "story", storyID, "error", err)
	}
}

// ClearAll removes the whole collection
func (s *Store) ClearAll(ctx context.Context) {
	if !s.IsAvailable(ctx) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.medium.Delete(ctx, s.key); err != nil {
		s.log.Warn("failed to clear all progress", "error", err)
	}
}

func (s *Store) readAll(ctx context.Context) (domain.UserProgress, error) {
	data, err := s.medium.Read(ctx, s.key)
	if errors.Is(err, domain.ErrKeyNotFound) {
		return domain.UserProgress{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read collection: %w", err)
	}
	return Decode(data)
}

func (s *Store) writeAll(ctx context.Context, all domain.UserProgress) error {
	data, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	if err := s.medium.Write(ctx, s.key, data); err != nil {
		return fmt.Errorf("write collection: %w", err)
	}
	return nil
}

// Decode parses a stored collection. Entries that decode to null are dropped.
func Decode(data []byte) (domain.UserProgress, error) {
	all := domain.UserProgress{}
	if len(data) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if all == nil {
		return domain.UserProgress{}, nil
	}
	for id, record := range all {
		if record == nil {
			delete(all, id)
			continue
		}
		if record.StoryID == "" {
			record.StoryID = id
		}
		record.Normalize()
	}
	return all, nil
}
