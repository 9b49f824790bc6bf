package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-raffle-service/internal/domain"
)

// AttemptRecorder appends terminal quiz attempt rows.
type AttemptRecorder struct {
	pool *pgxpool.Pool
}

func NewAttemptRecorder(pool *pgxpool.Pool) *AttemptRecorder {
	return &AttemptRecorder{pool: pool}
}

func (r *AttemptRecorder) RecordAttempt(ctx context.Context, attempt domain.Attempt) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO quiz_attempts (session_token, user_id, quiz_type_id, correct, total,
		                           entries_earned, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_token) DO NOTHING`,
		attempt.SessionToken, attempt.UserID, attempt.QuizTypeID, attempt.Correct,
		attempt.Total, attempt.EntriesEarned, attempt.StartedAt, attempt.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}
