package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"op-quiz-engine/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, slug string, includeUnpublished bool) (domain.Quiz, error)
}

// ServiceOptions tune engines created by a QuizService.
type ServiceOptions struct {
	AutoAdvance    time.Duration
	ProgressPrefix string
	DefaultSlug    string
}

// QuizService wires shared collaborators into per-session engines.
type QuizService struct {
	quizzes  QuizRepository
	progress ProgressBackend
	results  *ResultSubmitter
	logger   *zap.Logger
	opts     ServiceOptions
}

func NewQuizService(quizzes QuizRepository, progress ProgressBackend, results *ResultSubmitter, logger *zap.Logger, opts ServiceOptions) *QuizService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DefaultSlug == "" {
		opts.DefaultSlug = DefaultSlug
	}
	return &QuizService{
		quizzes:  quizzes,
		progress: progress,
		results:  results,
		logger:   logger,
		opts:     opts,
	}
}

// NewEngine builds an engine for one quiz-taking session. clientID namespaces local
// progress so several respondents can share a backend.
func (s *QuizService) NewEngine(slug string, preview bool, clientID string) *Engine {
	if slug == "" {
		slug = s.opts.DefaultSlug
	}
	logger := s.logger.With(zap.String("slug", slug), zap.String("client_id", clientID))
	return NewEngine(EngineConfig{
		Slug:        slug,
		Preview:     preview,
		Quizzes:     s.quizzes,
		Store:       NewProgressStore(s.progress, s.opts.ProgressPrefix, clientID, logger),
		Results:     s.results,
		Logger:      logger,
		AutoAdvance: s.opts.AutoAdvance,
	})
}

// Shutdown drains background result submissions and rejects any that arrive later.
func (s *QuizService) Shutdown() {
	s.results.Close()
}
