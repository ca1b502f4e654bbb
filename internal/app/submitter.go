package app

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"op-quiz-engine/internal/domain"
)

// ResultRepository persists final results remotely.
type ResultRepository interface {
	Insert(ctx context.Context, result domain.Result) error
	AttachEmail(ctx context.Context, sessionID, email string) error
}

// ResultSubmitter writes results in the background. Callers never wait and never see errors;
// failures are logged.
type ResultSubmitter struct {
	repo    ResultRepository
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time

	wg      conc.WaitGroup
	mu      sync.Mutex
	pending map[string]chan struct{}
	closed  bool
}

func NewResultSubmitter(repo ResultRepository, timeout time.Duration, logger *zap.Logger) *ResultSubmitter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultSubmitter{
		repo:    repo,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
		pending: make(map[string]chan struct{}),
	}
}

// Submit inserts result asynchronously.
func (s *ResultSubmitter) Submit(result domain.Result) {
	if s == nil || s.repo == nil {
		return
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = s.now().UTC()
	}
	done := make(chan struct{})
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.logger.Warn("result dropped after shutdown", zap.String("session_id", result.SessionID))
		return
	}
	s.pending[result.SessionID] = done

	s.wg.Go(func() {
		defer func() {
			s.mu.Lock()
			if s.pending[result.SessionID] == done {
				delete(s.pending, result.SessionID)
			}
			s.mu.Unlock()
			close(done)
		}()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.repo.Insert(ctx, result); err != nil {
			s.logger.Error("submit result",
				zap.String("quiz_id", result.QuizID),
				zap.String("session_id", result.SessionID),
				zap.Error(err))
			return
		}
		s.logger.Info("result saved",
			zap.String("session_id", result.SessionID),
			zap.String("dominant", result.Dominant))
	})
}

// AttachEmail enriches a submitted result once its insert has finished.
func (s *ResultSubmitter) AttachEmail(sessionID, email string) {
	if s == nil || s.repo == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.logger.Warn("email dropped after shutdown", zap.String("session_id", sessionID))
		return
	}
	done := s.pending[sessionID]

	s.wg.Go(func() {
		if done != nil {
			<-done
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.repo.AttachEmail(ctx, sessionID, email); err != nil {
			s.logger.Error("attach email", zap.String("session_id", sessionID), zap.Error(err))
		}
	})
}

// Close stops accepting work and waits for in-flight submissions. Work is spawned under mu,
// so nothing is added to the wait group once closed is set.
func (s *ResultSubmitter) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.Wait()
}

// Wait blocks until in-flight submissions finish.
func (s *ResultSubmitter) Wait() {
	if s == nil {
		return
	}
	if r := s.wg.WaitAndRecover(); r != nil {
		s.logger.Error("result submission panicked", zap.String("panic", r.String()))
	}
}
