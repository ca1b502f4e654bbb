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

// ResultRepository stores final results in quiz_results.
type ResultRepository struct {
	db *bun.DB
}

func NewResultRepository(db *bun.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

func (r *ResultRepository) Insert(ctx context.Context, result domain.Result) error {
	row := &resultRow{
		ID:             uuid.NewString(),
		QuizID:         result.QuizID,
		SessionID:      result.SessionID,
		ProfilDominant: result.Dominant,
		Scores:         result.Scores,
		Reponses:       result.Answers,
		Email:          result.Email,
		CreatedAt:      result.CreatedAt,
	}
	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (r *ResultRepository) AttachEmail(ctx context.Context, sessionID, email string) error {
	res, err := r.db.NewUpdate().
		Model((*resultRow)(nil)).
		Set("email = ?", email).
		Where("session_id = ?", sessionID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("attach email: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("session %s: %w", sessionID, domain.ErrResultNotFound)
	}
	return nil
}

// Get returns the result stored for sessionID.
func (r *ResultRepository) Get(ctx context.Context, sessionID string) (domain.Result, error) {
	var row resultRow
	err := r.db.NewSelect().Model(&row).Where("session_id = ?", sessionID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Result{}, fmt.Errorf("session %s: %w", sessionID, domain.ErrResultNotFound)
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("get result: %w", err)
	}
	return domain.Result{
		QuizID:    row.QuizID,
		SessionID: row.SessionID,
		Dominant:  row.ProfilDominant,
		Scores:    row.Scores,
		Answers:   row.Reponses,
		Email:     row.Email,
		CreatedAt: row.CreatedAt,
	}, nil
}
