package memory

import (
	"context"
	"sync"

	"op-quiz-engine/internal/domain"
)

// ResultStore keeps submitted results in memory, keyed by session ID.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]domain.Result
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]domain.Result)}
}

func (s *ResultStore) Insert(_ context.Context, result domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.SessionID] = result
	return nil
}

func (s *ResultStore) AttachEmail(_ context.Context, sessionID, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[sessionID]
	if !ok {
		return domain.ErrResultNotFound
	}
	r.Email = email
	s.results[sessionID] = r
	return nil
}

// Get returns the result stored for sessionID.
func (s *ResultStore) Get(sessionID string) (domain.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[sessionID]
	return r, ok
}

// Len is the number of stored results.
func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}
