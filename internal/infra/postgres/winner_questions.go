package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-raffle-service/internal/domain"
)

// WinnerQuestionRepository implements the fairness rotation on Postgres. The
// pick and the usage bump are one UPDATE over a locked subselect, so
// concurrent draws serialize on the chosen row instead of double-picking a
// rarely used question.
type WinnerQuestionRepository struct {
	pool *pgxpool.Pool
}

func NewWinnerQuestionRepository(pool *pgxpool.Pool) *WinnerQuestionRepository {
	return &WinnerQuestionRepository{pool: pool}
}

func (r *WinnerQuestionRepository) Acquire(ctx context.Context, now time.Time, rotationWindow time.Duration) (domain.WinnerQuestion, error) {
	cutoff := now.Add(-rotationWindow)
	var q domain.WinnerQuestion
	err := r.pool.QueryRow(ctx, `
		UPDATE winner_questions
		SET usage_count = usage_count + 1, last_used_at = $2
		WHERE id = (
			SELECT id FROM winner_questions
			ORDER BY CASE
				WHEN usage_count = 0 THEN 0
				WHEN last_used_at < $1 THEN 1
				ELSE 2
			END, random()
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, text, usage_count, last_used_at`, cutoff, now).Scan(
		&q.ID, &q.Text, &q.UsageCount, &q.LastUsedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.WinnerQuestion{}, domain.ErrNoQuestionsAvailable
	}
	if err != nil {
		return domain.WinnerQuestion{}, fmt.Errorf("acquire winner question: %w", err)
	}
	return q, nil
}
