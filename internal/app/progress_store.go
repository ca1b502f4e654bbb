package app

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"op-quiz-engine/internal/domain"
)

// ProgressBackend is a durable key/value facility (in-memory, Redis, SQLite).
// Get reports found=false for a missing key.
type ProgressBackend interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// DefaultProgressPrefix is the well-known key under which progress blobs live.
const DefaultProgressPrefix = "op_quiz_progress"

const progressOpTimeout = 2 * time.Second

// ProgressStore persists per-slug progress for one client namespace. It never fails: backend
// errors are logged and treated as "no progress" on read and as a no-op on write.
type ProgressStore struct {
	backend   ProgressBackend
	prefix    string
	namespace string
	logger    *zap.Logger
}

// NewProgressStore scopes backend to namespace (typically a browser/client id).
func NewProgressStore(backend ProgressBackend, prefix, namespace string, logger *zap.Logger) *ProgressStore {
	if prefix == "" {
		prefix = DefaultProgressPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressStore{backend: backend, prefix: prefix, namespace: namespace, logger: logger}
}

// Load returns the saved progress for slug, or nil when absent or unreadable.
func (s *ProgressStore) Load(ctx context.Context, slug string) *domain.Progress {
	raw, ok := s.get(ctx, s.key(slug))
	if !ok {
		return nil
	}
	var p domain.Progress
	if err := json.Unmarshal(raw, &p); err != nil {
		s.logger.Warn("discarding corrupt progress", zap.String("slug", slug), zap.Error(err))
		return nil
	}
	if p.Sequences == nil {
		p.Sequences = make(map[string]*domain.SequenceProgress)
	}
	for id := range p.Sequences {
		p.Sequence(id)
	}
	return &p
}

// Save overwrites the stored progress for slug.
func (s *ProgressStore) Save(ctx context.Context, slug string, p *domain.Progress) {
	if p == nil {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		s.logger.Warn("encode progress", zap.String("slug", slug), zap.Error(err))
		return
	}
	s.set(ctx, s.key(slug), raw)
}

// Clear deletes stored progress and the completion flag for slug.
func (s *ProgressStore) Clear(ctx context.Context, slug string) {
	s.delete(ctx, s.key(slug))
	s.delete(ctx, s.completedKey(slug))
}

// ClearCompletion drops only the completion flag, e.g. when a finished sequence is redone.
func (s *ProgressStore) ClearCompletion(ctx context.Context, slug string) {
	s.delete(ctx, s.completedKey(slug))
}

// MarkCompleted records that every sequence of slug was finished with dominant as outcome.
func (s *ProgressStore) MarkCompleted(ctx context.Context, slug, dominant string) {
	raw, err := json.Marshal(domain.Completion{Dominant: dominant})
	if err != nil {
		return
	}
	s.set(ctx, s.completedKey(slug), raw)
}

// Completion returns the completion flag written by MarkCompleted.
func (s *ProgressStore) Completion(ctx context.Context, slug string) (domain.Completion, bool) {
	raw, ok := s.get(ctx, s.completedKey(slug))
	if !ok {
		return domain.Completion{}, false
	}
	var c domain.Completion
	if err := json.Unmarshal(raw, &c); err != nil {
		return domain.Completion{}, false
	}
	return c, true
}

func (s *ProgressStore) get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, progressOpTimeout)
	defer cancel()
	raw, found, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logger.Warn("read progress", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return raw, found
}

func (s *ProgressStore) set(ctx context.Context, key string, raw []byte) {
	ctx, cancel := context.WithTimeout(ctx, progressOpTimeout)
	defer cancel()
	if err := s.backend.Set(ctx, key, raw); err != nil {
		s.logger.Warn("write progress", zap.String("key", key), zap.Error(err))
	}
}

func (s *ProgressStore) delete(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(ctx, progressOpTimeout)
	defer cancel()
	if err := s.backend.Delete(ctx, key); err != nil {
		s.logger.Warn("clear progress", zap.String("key", key), zap.Error(err))
	}
}

func (s *ProgressStore) key(slug string) string {
	if s.namespace == "" {
		return s.prefix + ":" + slug
	}
	return s.prefix + ":" + s.namespace + ":" + slug
}

func (s *ProgressStore) completedKey(slug string) string {
	return s.key(slug) + ":completed"
}
