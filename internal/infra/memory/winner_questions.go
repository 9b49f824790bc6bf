package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quiz-raffle-service/internal/domain"
)

// WinnerQuestionRepository implements the fairness rotation in memory. The
// mutex makes pick and usage-bump one atomic step, so concurrent draws never
// both see a question as unused.
type WinnerQuestionRepository struct {
	mu        sync.Mutex
	questions map[string]*domain.WinnerQuestion
	rnd       *rand.Rand
}

func NewWinnerQuestionRepository(questions []domain.WinnerQuestion) *WinnerQuestionRepository {
	byID := make(map[string]*domain.WinnerQuestion, len(questions))
	for i := range questions {
		q := questions[i]
		byID[q.ID] = &q
	}
	return &WinnerQuestionRepository{
		questions: byID,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Acquire picks from the best available tier: never-used questions first,
// then questions idle longer than the rotation window, then the rest.
// Uniform random within the tier; the usage counter is bumped in the same
// critical section.
func (r *WinnerQuestionRepository) Acquire(_ context.Context, now time.Time, rotationWindow time.Duration) (domain.WinnerQuestion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.questions) == 0 {
		return domain.WinnerQuestion{}, domain.ErrNoQuestionsAvailable
	}

	cutoff := now.Add(-rotationWindow)
	var unused, rotated, rest []*domain.WinnerQuestion
	for _, q := range r.questions {
		switch {
		case q.UsageCount == 0:
			unused = append(unused, q)
		case q.LastUsedAt != nil && q.LastUsedAt.Before(cutoff):
			rotated = append(rotated, q)
		default:
			rest = append(rest, q)
		}
	}

	tier := unused
	if len(tier) == 0 {
		tier = rotated
	}
	if len(tier) == 0 {
		tier = rest
	}

	picked := tier[r.rnd.Intn(len(tier))]
	picked.UsageCount++
	used := now
	picked.LastUsedAt = &used
	return *picked, nil
}

// Questions returns a snapshot of the pool, for tests.
func (r *WinnerQuestionRepository) Questions() []domain.WinnerQuestion {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.WinnerQuestion, 0, len(r.questions))
	for _, q := range r.questions {
		out = append(out, *q)
	}
	return out
}
