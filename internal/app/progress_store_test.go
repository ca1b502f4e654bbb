package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"op-quiz-engine/internal/app"
	"op-quiz-engine/internal/domain"
	"op-quiz-engine/internal/infra/memory"
)

func TestProgressStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewProgressBackend()
	store := app.NewProgressStore(backend, "", "client-1", nil)

	assert.Nil(t, store.Load(ctx, "mindset"))

	p := domain.NewProgress(twoSequenceQuiz())
	p.Sequence("s1").Record("q1", "A")
	p.Sequence("s1").Record("q2", "C")
	p.Sequence("s1").Completed = true
	p.Sequence("s2").Record("q3", "B")
	p.Sequence("s2").Cursor = 1
	store.Save(ctx, "mindset", p)

	got := store.Load(ctx, "mindset")
	require.NotNil(t, got)
	assert.Equal(t, p, got)
	assert.Equal(t, []string{"op_quiz_progress:client-1:mindset"}, backend.Keys())
}

func TestProgressStoreCompletion(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewProgressBackend()
	store := app.NewProgressStore(backend, "custom", "", nil)

	_, ok := store.Completion(ctx, "mindset")
	assert.False(t, ok)

	store.Save(ctx, "mindset", domain.NewProgress(twoSequenceQuiz()))
	store.MarkCompleted(ctx, "mindset", "B")
	c, ok := store.Completion(ctx, "mindset")
	require.True(t, ok)
	assert.Equal(t, "B", c.Dominant)
	assert.ElementsMatch(t, []string{"custom:mindset", "custom:mindset:completed"}, backend.Keys())

	store.Clear(ctx, "mindset")
	assert.Empty(t, backend.Keys())
}

func TestProgressStoreClearCompletionKeepsProgress(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewProgressBackend()
	store := app.NewProgressStore(backend, "", "client-1", nil)

	store.Save(ctx, "mindset", domain.NewProgress(twoSequenceQuiz()))
	store.MarkCompleted(ctx, "mindset", "A")
	store.ClearCompletion(ctx, "mindset")

	_, ok := store.Completion(ctx, "mindset")
	assert.False(t, ok)
	assert.NotNil(t, store.Load(ctx, "mindset"))
}

func TestProgressStoreDiscardsCorruptBlob(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewProgressBackend()
	require.NoError(t, backend.Set(ctx, "op_quiz_progress:mindset", []byte("{not json")))

	store := app.NewProgressStore(backend, "", "", nil)
	assert.Nil(t, store.Load(ctx, "mindset"))
}

func TestProgressStoreNormalisesNilMaps(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewProgressBackend()
	require.NoError(t, backend.Set(ctx, "op_quiz_progress:mindset", []byte(`{"sequences":{"s1":{"completed":true}}}`)))

	p := app.NewProgressStore(backend, "", "", nil).Load(ctx, "mindset")
	require.NotNil(t, p)
	entry := p.Sequences["s1"]
	require.NotNil(t, entry)
	assert.NotNil(t, entry.Answers)
	assert.NotNil(t, entry.Scores)
	assert.True(t, entry.Completed)
}

func TestProgressStoreSwallowsBackendErrors(t *testing.T) {
	ctx := context.Background()
	store := app.NewProgressStore(failingBackend{}, "", "client-1", nil)

	assert.NotPanics(t, func() {
		store.Save(ctx, "mindset", domain.NewProgress(twoSequenceQuiz()))
		store.MarkCompleted(ctx, "mindset", "A")
		store.Clear(ctx, "mindset")
	})
	assert.Nil(t, store.Load(ctx, "mindset"))
	_, ok := store.Completion(ctx, "mindset")
	assert.False(t, ok)
}

type failingBackend struct{}

var errBackendDown = errors.New("backend down")

func (failingBackend) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errBackendDown
}
func (failingBackend) Set(context.Context, string, []byte) error { return errBackendDown }
func (failingBackend) Delete(context.Context, string) error      { return errBackendDown }
