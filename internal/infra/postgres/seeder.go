package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"op-quiz-engine/internal/domain"
)

// Seeder writes quiz content into the relational schema. Re-seeding a slug keeps the quiz id
// (so stored results stay attached) and replaces its profiles, sequences and questions.
type Seeder struct {
	db    *bun.DB
	newID func() string
}

func NewSeeder(db *bun.DB) *Seeder {
	return &Seeder{db: db, newID: uuid.NewString}
}

// Seed upserts quiz by slug in one transaction and returns its id.
func (s *Seeder) Seed(ctx context.Context, quiz domain.Quiz) (string, error) {
	if quiz.Slug == "" {
		return "", errors.New("seed quiz: empty slug")
	}

	var quizID string
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var existing quizRow
		err := tx.NewSelect().Model(&existing).Column("id").Where("slug = ?", quiz.Slug).Scan(ctx)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			quizID = s.newID()
		case err != nil:
			return fmt.Errorf("lookup quiz: %w", err)
		default:
			quizID = existing.ID
		}

		rows := buildContentRows(quizID, quiz, s.newID)
		if _, err := tx.NewInsert().Model(&rows.quiz).
			On("CONFLICT (id) DO UPDATE").
			Set("slug = EXCLUDED.slug, titre = EXCLUDED.titre, sous_titre = EXCLUDED.sous_titre").
			Set("description = EXCLUDED.description, duree = EXCLUDED.duree").
			Set("image_couverture = EXCLUDED.image_couverture, intro_stat = EXCLUDED.intro_stat").
			Set("intro_stat_source = EXCLUDED.intro_stat_source, benefices = EXCLUDED.benefices").
			Set("published = EXCLUDED.published, collect_email = EXCLUDED.collect_email").
			Set("show_progress = EXCLUDED.show_progress, conclusion = EXCLUDED.conclusion").
			Exec(ctx); err != nil {
			return fmt.Errorf("upsert quiz: %w", err)
		}

		// Answers cascade from questions.
		for _, model := range []interface{}{(*questionRow)(nil), (*sequenceRow)(nil), (*profileRow)(nil)} {
			if _, err := tx.NewDelete().Model(model).Where("quiz_id = ?", quizID).Exec(ctx); err != nil {
				return fmt.Errorf("clear quiz content: %w", err)
			}
		}

		if len(rows.profiles) > 0 {
			if _, err := tx.NewInsert().Model(&rows.profiles).Exec(ctx); err != nil {
				return fmt.Errorf("insert profiles: %w", err)
			}
		}
		if len(rows.sequences) > 0 {
			if _, err := tx.NewInsert().Model(&rows.sequences).Exec(ctx); err != nil {
				return fmt.Errorf("insert sequences: %w", err)
			}
		}
		if len(rows.questions) > 0 {
			if _, err := tx.NewInsert().Model(&rows.questions).Exec(ctx); err != nil {
				return fmt.Errorf("insert questions: %w", err)
			}
		}
		if len(rows.answers) > 0 {
			if _, err := tx.NewInsert().Model(&rows.answers).Exec(ctx); err != nil {
				return fmt.Errorf("insert answers: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return quizID, nil
}

type contentRows struct {
	quiz      quizRow
	profiles  []profileRow
	sequences []sequenceRow
	questions []questionRow
	answers   []answerRow
}

// buildContentRows flattens quiz into table rows with fresh ids for every child.
func buildContentRows(quizID string, quiz domain.Quiz, newID func() string) contentRows {
	rows := contentRows{
		quiz: quizRow{
			ID:              quizID,
			Slug:            quiz.Slug,
			Titre:           quiz.Title,
			SousTitre:       quiz.Subtitle,
			Description:     quiz.Description,
			Duree:           quiz.Duration,
			ImageCouverture: quiz.CoverImage,
			IntroStat:       quiz.IntroStat,
			IntroStatSource: quiz.IntroStatSource,
			Benefices:       nonNil(quiz.Benefits),
			Published:       quiz.Published,
			CollectEmail:    quiz.CollectEmail,
			ShowProgress:    quiz.ShowProgress,
		},
	}
	if quiz.Conclusion.HasContent() {
		c := quiz.Conclusion
		rows.quiz.Conclusion = &c
	}

	for _, p := range quiz.Profiles {
		rows.profiles = append(rows.profiles, profileRow{
			ID:          newID(),
			QuizID:      quizID,
			Code:        p.Code,
			Nom:         p.Name,
			Emoji:       p.Emoji,
			Titre:       p.Title,
			Description: p.Description,
			Forces:      nonNil(p.Forces),
			Vigilances:  nonNil(p.Vigilances),
		})
	}

	for i, seq := range quiz.Sequences {
		seqID := newID()
		numero := seq.Numero
		if numero == 0 {
			numero = i + 1
		}
		rows.sequences = append(rows.sequences, sequenceRow{
			ID:          seqID,
			QuizID:      quizID,
			Numero:      numero,
			Titre:       seq.Title,
			Description: seq.Description,
			Contexte:    seq.Context,
			StatTexte:   seq.StatText,
			StatSource:  seq.StatSource,
			Insight:     seq.Insight,
			BilanTitre:  seq.BilanTitle,
			BilanTexte:  seq.BilanText,
			Profils:     seq.ProfileLabels,
		})

		for j, q := range seq.Questions {
			qID := newID()
			qNumero := q.Numero
			if qNumero == 0 {
				qNumero = j + 1
			}
			rows.questions = append(rows.questions, questionRow{
				ID:          qID,
				QuizID:      quizID,
				SequenceID:  seqID,
				Numero:      qNumero,
				Question:    q.Prompt,
				Explication: q.Explanation,
			})
			for k, a := range q.Answers {
				ordre := a.Position
				if ordre == 0 {
					ordre = k
				}
				rows.answers = append(rows.answers, answerRow{
					ID:          newID(),
					QuestionID:  qID,
					Code:        a.Code,
					Texte:       a.Text,
					ProfilLabel: a.ProfileLabel,
					Ordre:       ordre,
				})
			}
		}
	}
	return rows
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
