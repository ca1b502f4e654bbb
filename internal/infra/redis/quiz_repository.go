package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"op-quiz-engine/internal/domain"
	"op-quiz-engine/internal/infra/memory"
)

// QuizRepository caches published quizzes in Redis as one JSON document per slug and falls
// back to a loader on cache miss. Keys look like: quiz:content:{slug}
// Preview requests skip the cache in both directions.
type QuizRepository struct {
	client *redis.Client
	loader memory.QuizLoader
	ttl    time.Duration
	logger *zap.Logger
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewQuizRepository(client *redis.Client, loader memory.QuizLoader, ttl time.Duration, logger *zap.Logger) *QuizRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		logger: logger,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, slug string, includeUnpublished bool) (domain.Quiz, error) {
	if includeUnpublished {
		return r.loader.LoadQuiz(ctx, slug, true)
	}

	if quiz, ok := r.cached(ctx, slug); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(slug, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := r.cached(ctx, slug); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, slug, false)
		if err != nil {
			return domain.Quiz{}, err
		}

		raw, err := json.Marshal(quiz)
		if err != nil {
			return quiz, nil
		}
		if err := r.client.Set(ctx, r.key(slug), raw, r.ttlWithJitter()).Err(); err != nil {
			r.logger.Warn("cache quiz", zap.String("slug", slug), zap.Error(err))
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate drops the cached copy of slug, e.g. after reseeding.
func (r *QuizRepository) Invalidate(ctx context.Context, slug string) error {
	return r.client.Del(ctx, r.key(slug)).Err()
}

func (r *QuizRepository) cached(ctx context.Context, slug string) (domain.Quiz, bool) {
	raw, err := r.client.Get(ctx, r.key(slug)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("read quiz cache", zap.String("slug", slug), zap.Error(err))
		}
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (r *QuizRepository) key(slug string) string {
	return "quiz:content:" + slug
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
