package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"op-quiz-engine/internal/domain"
)

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		name      string
		a, b      int
		want      Classification
		wantGap   int
		wantFirst string
	}{
		{name: "clear lead", a: 70, b: 30, want: ClassificationPure, wantGap: 40, wantFirst: "A"},
		{name: "hybrid inclusive", a: 55, b: 45, want: ClassificationHybrid, wantGap: 10, wantFirst: "A"},
		{name: "tendency inclusive", a: 60, b: 40, want: ClassificationTendency, wantGap: 20, wantFirst: "A"},
		{name: "normalised counts", a: 13, b: 7, want: ClassificationPure, wantGap: 30, wantFirst: "A"},
		{name: "tie", a: 5, b: 5, want: ClassificationHybrid, wantGap: 0, wantFirst: "A"},
		{name: "b leads", a: 2, b: 8, want: ClassificationPure, wantGap: 60, wantFirst: "B"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			quiz := twoCodeQuiz()
			progress := domain.NewProgress(quiz)
			progress.Sequence("s1").Scores = map[string]int{"A": tc.a, "B": tc.b}

			res := Aggregate(quiz, progress)
			assert.Equal(t, tc.want, res.Classification)
			assert.Equal(t, tc.wantGap, res.Gap)
			assert.Equal(t, tc.wantFirst, res.Dominant.Code)
			assert.Equal(t, tc.a+tc.b, res.Total)
		})
	}
}

func TestAggregateZeroAnswers(t *testing.T) {
	quiz := twoCodeQuiz()
	res := Aggregate(quiz, domain.NewProgress(quiz))

	assert.Equal(t, ClassificationNone, res.Classification)
	assert.Equal(t, 0, res.Total)
	require.Len(t, res.Distribution, 2)
	for _, e := range res.Distribution {
		assert.Equal(t, 0, e.Percent)
	}
	assert.Empty(t, res.ShareText)
	assert.Empty(t, res.Dominant.Code)
	assert.Nil(t, res.Secondary)
}

func TestAggregateNilProgress(t *testing.T) {
	res := Aggregate(twoCodeQuiz(), nil)
	assert.Equal(t, ClassificationNone, res.Classification)
}

func TestAggregateHybridBlendsProfiles(t *testing.T) {
	quiz := twoCodeQuiz()
	quiz.Profiles = []domain.Profile{
		{Code: "A", Name: "Sécurité", Emoji: "🔒", Description: "Bouclier.", Forces: []string{"Prudence"}, Vigilances: []string{"Attente"}},
		{Code: "B", Name: "Contrôle", Emoji: "🛡️", Description: "Système.", Forces: []string{"Rigueur", "Prudence"}, Vigilances: []string{"Charge"}},
	}
	progress := domain.NewProgress(quiz)
	progress.Sequence("s1").Scores = map[string]int{"A": 3, "B": 3}

	res := Aggregate(quiz, progress)
	require.Equal(t, ClassificationHybrid, res.Classification)
	require.NotNil(t, res.Secondary)
	assert.Equal(t, "Sécurité & Contrôle", res.Name)
	assert.Equal(t, "🔒🛡️", res.Emoji)
	assert.Equal(t, "Bouclier.\n\nSystème.", res.Description)
	assert.Equal(t, []string{"Prudence", "Rigueur"}, res.Forces)
	assert.Equal(t, []string{"Attente", "Charge"}, res.Vigilances)
}

func TestAggregateTendencyNote(t *testing.T) {
	quiz := twoCodeQuiz()
	progress := domain.NewProgress(quiz)
	progress.Sequence("s1").Scores = map[string]int{"A": 6, "B": 4}

	res := Aggregate(quiz, progress)
	require.Equal(t, ClassificationTendency, res.Classification)
	assert.Equal(t, "Sécurité Dominante", res.Name)
	assert.Contains(t, res.TendencyNote, "Prudence / Contrôle")
	assert.Contains(t, res.TendencyNote, "40%")
}

func TestAggregateUnknownCodeUsesPlaceholder(t *testing.T) {
	quiz := domain.Quiz{Sequences: []domain.Sequence{{ID: "s1"}}}
	progress := domain.NewProgress(quiz)
	progress.Sequence("s1").Scores = map[string]int{"E": 2}

	res := Aggregate(quiz, progress)
	assert.Equal(t, ClassificationPure, res.Classification)
	assert.Equal(t, "Profil E", res.Name)
	assert.Equal(t, 100, res.DominantPercent)
	assert.Nil(t, res.Secondary)
}

func TestAggregateIgnoresStaleSequences(t *testing.T) {
	quiz := twoCodeQuiz()
	progress := domain.NewProgress(quiz)
	progress.Sequence("s1").Scores = map[string]int{"A": 1}
	progress.Sequence("removed").Scores = map[string]int{"B": 9}

	res := Aggregate(quiz, progress)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, "A", res.Dominant.Code)
}

func TestSequenceBilanUsesLabelsAndFallsBackToCode(t *testing.T) {
	quiz := twoCodeQuiz()
	seq := quiz.Sequences[0]
	seq.ProfileLabels = map[string]domain.ProfileLabel{"B": {Name: "Contrôle", Content: "Tu gardes la main."}}

	entry := domain.NewSequenceProgress()
	entry.Record("q1", "B")
	entry.Record("q2", "B")
	entry.Record("q3", "A")

	bilan := SequenceBilanOf(quiz, seq, entry)
	require.NotNil(t, bilan.Dominant)
	assert.Equal(t, "B", bilan.Dominant.Code)
	assert.Equal(t, "Contrôle", bilan.Dominant.Name)
	assert.Equal(t, 67, bilan.Dominant.Percent)
	assert.Equal(t, "Tu gardes la main.", bilan.DominantContent)
	assert.Equal(t, "A", bilan.Ranking[1].Name)
	assert.Equal(t, "Bilan : Niveau 1", bilan.Title)
}

func TestSequenceBilanEmpty(t *testing.T) {
	quiz := twoCodeQuiz()
	bilan := SequenceBilanOf(quiz, quiz.Sequences[0], nil)
	assert.Nil(t, bilan.Dominant)
	assert.Equal(t, 0, bilan.Total)
}

func twoCodeQuiz() domain.Quiz {
	return domain.Quiz{
		ID:   "quiz-1",
		Slug: "mindset",
		Sequences: []domain.Sequence{
			{
				ID:     "s1",
				Numero: 1,
				Title:  "Niveau 1",
				Questions: []domain.Question{
					{ID: "q1", Numero: 1, Answers: []domain.Answer{{Code: "A"}, {Code: "B"}}},
				},
			},
		},
	}
}
