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

// QuizTypeRepository reads quiz-type configuration rows.
type QuizTypeRepository struct {
	pool *pgxpool.Pool
}

func NewQuizTypeRepository(pool *pgxpool.Pool) *QuizTypeRepository {
	return &QuizTypeRepository{pool: pool}
}

func (r *QuizTypeRepository) QuizType(ctx context.Context, id string) (domain.QuizType, error) {
	var qt domain.QuizType
	var timeLimitSeconds int
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, difficulty, enabled, question_count, time_limit_seconds,
		       entry_cost, max_entries, answers_per_entry
		FROM quiz_types WHERE id = $1`, id).Scan(
		&qt.ID, &qt.Name, &qt.Difficulty, &qt.Enabled, &qt.QuestionCount,
		&timeLimitSeconds, &qt.EntryCost, &qt.MaxEntries, &qt.AnswersPerEntry)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizType{}, domain.ErrQuizTypeNotFound
	}
	if err != nil {
		return domain.QuizType{}, fmt.Errorf("load quiz type: %w", err)
	}
	qt.TimeLimit = time.Duration(timeLimitSeconds) * time.Second
	return qt, nil
}
