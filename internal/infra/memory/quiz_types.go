package memory

import (
	"context"

	"quiz-raffle-service/internal/domain"
)

// QuizTypeRepository is a fixed quiz-type table (tests/demo); admin tooling
// owns quiz-type editing, the core only reads.
type QuizTypeRepository struct {
	types map[string]domain.QuizType
}

func NewQuizTypeRepository(types []domain.QuizType) *QuizTypeRepository {
	byID := make(map[string]domain.QuizType, len(types))
	for _, qt := range types {
		byID[qt.ID] = qt
	}
	return &QuizTypeRepository{types: byID}
}

func (r *QuizTypeRepository) QuizType(_ context.Context, id string) (domain.QuizType, error) {
	qt, ok := r.types[id]
	if !ok {
		return domain.QuizType{}, domain.ErrQuizTypeNotFound
	}
	return qt, nil
}
