package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"op-quiz-engine/internal/domain"
)

// QuizLoader fetches quiz content from a backing store (Postgres, YAML files).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, slug string, includeUnpublished bool) (domain.Quiz, error)
}

// QuizRepository caches published quizzes with TTL to avoid repeated DB hits. Preview loads
// always go to the loader so authors see their latest edits.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, slug string, includeUnpublished bool) (domain.Quiz, error) {
	if includeUnpublished {
		return r.loader.LoadQuiz(ctx, slug, true)
	}

	now := r.clock()
	if quiz, ok := r.lookup(slug, now); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(slug, func() (interface{}, error) {
		now := r.clock()
		if quiz, ok := r.lookup(slug, now); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, slug, false)
		if err != nil {
			return domain.Quiz{}, err
		}

		r.mu.Lock()
		r.cache[slug] = cachedQuiz{
			quiz:      quiz,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (r *QuizRepository) lookup(slug string, now time.Time) (domain.Quiz, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[slug]
	if !ok || !entry.expiresAt.After(now) {
		return domain.Quiz{}, false
	}
	return entry.quiz, true
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuizLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticQuizLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, slug string, includeUnpublished bool) (domain.Quiz, error) {
	quiz, ok := l.quizzes[slug]
	if !ok || (!quiz.Published && !includeUnpublished) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}
