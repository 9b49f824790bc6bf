package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-raffle-service/internal/domain"
)

// QuestionLoader loads the question pool for a difficulty from Postgres. It
// is wrapped by the memory or redis caching repository; the core never hits
// this on every request.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context, difficulty string) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT q.id, q.difficulty, q.text, q.kind, q.points, a.id, a.text, a.correct
		FROM questions q
		JOIN question_answers a ON a.question_id = q.id
		WHERE q.difficulty = $1
		ORDER BY q.id, a.id`, difficulty)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var pool []domain.Question
	var current *domain.Question
	for rows.Next() {
		var q domain.Question
		var a domain.Answer
		if err := rows.Scan(&q.ID, &q.Difficulty, &q.Text, &q.Kind, &q.Points, &a.ID, &a.Text, &a.Correct); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if current == nil || current.ID != q.ID {
			pool = append(pool, q)
			current = &pool[len(pool)-1]
		}
		current.Answers = append(current.Answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return pool, nil
}
