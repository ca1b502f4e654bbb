package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"op-quiz-engine/internal/domain"
)

// QuizLoader reads quiz content from the relational schema: the quiz row, then its profiles,
// sequences, questions and answers.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

type quizRecord struct {
	quiz          domain.Quiz
	benefitsJSON  []byte
	conclusionRaw []byte
}

type sequenceRecord struct {
	seq        domain.Sequence
	labelsJSON []byte
}

type questionRecord struct {
	sequenceID string
	question   domain.Question
}

type answerRecord struct {
	questionID string
	answer     domain.Answer
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, slug string, includeUnpublished bool) (domain.Quiz, error) {
	rec, err := l.loadQuizRow(ctx, slug, includeUnpublished)
	if err != nil {
		return domain.Quiz{}, err
	}
	profiles, err := l.loadProfiles(ctx, rec.quiz.ID)
	if err != nil {
		return domain.Quiz{}, err
	}
	sequences, err := l.loadSequences(ctx, rec.quiz.ID)
	if err != nil {
		return domain.Quiz{}, err
	}
	questions, err := l.loadQuestions(ctx, rec.quiz.ID)
	if err != nil {
		return domain.Quiz{}, err
	}
	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.question.ID)
	}
	answers, err := l.loadAnswers(ctx, ids)
	if err != nil {
		return domain.Quiz{}, err
	}
	return assembleQuiz(rec, profiles, sequences, questions, answers)
}

func (l *QuizLoader) loadQuizRow(ctx context.Context, slug string, includeUnpublished bool) (quizRecord, error) {
	var rec quizRecord
	q := &rec.quiz
	err := l.pool.QueryRow(ctx, `
		SELECT id::text, slug, titre, COALESCE(sous_titre, ''), COALESCE(description, ''),
		       COALESCE(duree, ''), COALESCE(image_couverture, ''),
		       COALESCE(intro_stat, ''), COALESCE(intro_stat_source, ''),
		       COALESCE(benefices, '[]'::jsonb), published, collect_email, show_progress,
		       COALESCE(conclusion, 'null'::jsonb)
		FROM quizzes
		WHERE slug = $1 AND ($2 OR published)`, slug, includeUnpublished).
		Scan(&q.ID, &q.Slug, &q.Title, &q.Subtitle, &q.Description,
			&q.Duration, &q.CoverImage,
			&q.IntroStat, &q.IntroStatSource,
			&rec.benefitsJSON, &q.Published, &q.CollectEmail, &q.ShowProgress,
			&rec.conclusionRaw)
	if errors.Is(err, pgx.ErrNoRows) {
		return rec, fmt.Errorf("slug %q: %w", slug, domain.ErrQuizNotFound)
	}
	if err != nil {
		return rec, fmt.Errorf("load quiz: %w", err)
	}
	return rec, nil
}

func (l *QuizLoader) loadProfiles(ctx context.Context, quizID string) ([]domain.Profile, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT code, COALESCE(nom, ''), COALESCE(emoji, ''), COALESCE(titre, ''),
		       COALESCE(description, ''),
		       COALESCE(forces, '[]'::jsonb), COALESCE(vigilances, '[]'::jsonb)
		FROM quiz_profiles
		WHERE quiz_id = $1
		ORDER BY code`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		var p domain.Profile
		var forces, vigilances []byte
		if err := rows.Scan(&p.Code, &p.Name, &p.Emoji, &p.Title, &p.Description, &forces, &vigilances); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		if err := json.Unmarshal(forces, &p.Forces); err != nil {
			return nil, fmt.Errorf("profile %s forces: %w", p.Code, err)
		}
		if err := json.Unmarshal(vigilances, &p.Vigilances); err != nil {
			return nil, fmt.Errorf("profile %s vigilances: %w", p.Code, err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (l *QuizLoader) loadSequences(ctx context.Context, quizID string) ([]sequenceRecord, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id::text, numero, titre, COALESCE(description, ''), COALESCE(contexte, ''),
		       COALESCE(stat_texte, ''), COALESCE(stat_source, ''), COALESCE(insight, ''),
		       COALESCE(bilan_titre, ''), COALESCE(bilan_texte, ''),
		       COALESCE(profils, 'null'::jsonb)
		FROM quiz_sequences
		WHERE quiz_id = $1
		ORDER BY numero`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load sequences: %w", err)
	}
	defer rows.Close()

	var out []sequenceRecord
	for rows.Next() {
		var rec sequenceRecord
		s := &rec.seq
		if err := rows.Scan(&s.ID, &s.Numero, &s.Title, &s.Description, &s.Context,
			&s.StatText, &s.StatSource, &s.Insight, &s.BilanTitle, &s.BilanText, &rec.labelsJSON); err != nil {
			return nil, fmt.Errorf("scan sequence: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (l *QuizLoader) loadQuestions(ctx context.Context, quizID string) ([]questionRecord, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id::text, COALESCE(sequence_id::text, ''), numero, question, COALESCE(explication, '')
		FROM quiz_questions
		WHERE quiz_id = $1
		ORDER BY numero`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var out []questionRecord
	for rows.Next() {
		var rec questionRecord
		q := &rec.question
		if err := rows.Scan(&q.ID, &rec.sequenceID, &q.Numero, &q.Prompt, &q.Explanation); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (l *QuizLoader) loadAnswers(ctx context.Context, questionIDs []string) ([]answerRecord, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}
	rows, err := l.pool.Query(ctx, `
		SELECT question_id::text, code, texte, COALESCE(profil_label, ''), ordre
		FROM quiz_answers
		WHERE question_id::text = ANY($1)
		ORDER BY ordre`, questionIDs)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	defer rows.Close()

	var out []answerRecord
	for rows.Next() {
		var rec answerRecord
		a := &rec.answer
		if err := rows.Scan(&rec.questionID, &a.Code, &a.Text, &a.ProfileLabel, &a.Position); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// assembleQuiz nests answers into questions and questions into sequences. Questions without a
// known sequence are gathered into one trailing sequence named after the quiz.
func assembleQuiz(rec quizRecord, profiles []domain.Profile, sequences []sequenceRecord, questions []questionRecord, answers []answerRecord) (domain.Quiz, error) {
	quiz := rec.quiz
	quiz.Profiles = profiles
	if len(rec.benefitsJSON) > 0 {
		if err := json.Unmarshal(rec.benefitsJSON, &quiz.Benefits); err != nil {
			return domain.Quiz{}, fmt.Errorf("quiz benefits: %w", err)
		}
	}
	if len(rec.conclusionRaw) > 0 {
		if err := json.Unmarshal(rec.conclusionRaw, &quiz.Conclusion); err != nil {
			return domain.Quiz{}, fmt.Errorf("quiz conclusion: %w", err)
		}
	}

	byQuestion := make(map[string][]domain.Answer, len(questions))
	for _, a := range answers {
		byQuestion[a.questionID] = append(byQuestion[a.questionID], a.answer)
	}

	quiz.Sequences = make([]domain.Sequence, 0, len(sequences)+1)
	index := make(map[string]int, len(sequences))
	for _, rec := range sequences {
		seq := rec.seq
		labels, err := domain.ParseProfileLabels(rec.labelsJSON)
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("sequence %s labels: %w", seq.ID, err)
		}
		seq.ProfileLabels = labels
		index[seq.ID] = len(quiz.Sequences)
		quiz.Sequences = append(quiz.Sequences, seq)
	}

	var orphans []domain.Question
	for _, rec := range questions {
		q := rec.question
		q.Answers = byQuestion[q.ID]
		i, ok := index[rec.sequenceID]
		if !ok {
			orphans = append(orphans, q)
			continue
		}
		quiz.Sequences[i].Questions = append(quiz.Sequences[i].Questions, q)
	}
	if len(orphans) > 0 {
		quiz.Sequences = append(quiz.Sequences, domain.Sequence{
			ID:        quiz.ID,
			Numero:    len(quiz.Sequences) + 1,
			Title:     quiz.Title,
			Questions: orphans,
		})
	}
	return quiz, nil
}
