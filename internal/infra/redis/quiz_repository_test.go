package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"op-quiz-engine/internal/domain"
	"op-quiz-engine/internal/infra/memory"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{
			"mindset": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(client, loader, time.Minute, nil)

	_, err = repo.GetQuiz(context.Background(), "mindset", false)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("quiz:content:mindset") {
		t.Fatalf("expected quiz cached in redis")
	}
	if ttl := mr.TTL("quiz:content:mindset"); ttl < time.Minute {
		t.Fatalf("expected ttl >= 1m, got %v", ttl)
	}

	// Second call should hit cache, loader not incremented.
	quiz, _ := repo.GetQuiz(context.Background(), "mindset", false)
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(quiz.Sequences) != 1 || quiz.Sequences[0].Questions[0].Answers[1].Code != "B" {
		t.Fatalf("cached quiz lost content: %+v", quiz)
	}

	if err := repo.Invalidate(context.Background(), "mindset"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.GetQuiz(context.Background(), "mindset", false)
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

func TestQuizRepositoryPreviewSkipsRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	draft := sampleQuiz()
	draft.Published = false
	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{"mindset": draft}),
	}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute, nil)

	if _, err := repo.GetQuiz(context.Background(), "mindset", true); err != nil {
		t.Fatalf("preview: %v", err)
	}
	if mr.Exists("quiz:content:mindset") {
		t.Fatalf("preview must not populate the cache")
	}
}

type countingLoader struct {
	memory.QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, slug string, includeUnpublished bool) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, slug, includeUnpublished)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:        "quiz-1",
		Slug:      "mindset",
		Title:     "Ton mindset financier",
		Published: true,
		Sequences: []domain.Sequence{
			{
				ID:    "s1",
				Title: "Rapport à l'argent",
				Questions: []domain.Question{
					{
						ID:     "q1",
						Prompt: "Quand tu reçois ton salaire...",
						Answers: []domain.Answer{
							{Code: "A", Text: "Je mets de côté"},
							{Code: "B", Text: "Je fais mes comptes", Position: 1},
						},
					},
				},
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
