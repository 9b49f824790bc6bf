package memory

import (
	"context"
	"sync"

	"quiz-raffle-service/internal/domain"
)

// AttemptLog is an append-only in-memory attempt record. One attempt per
// session token, same convergence as the durable recorder's conflict clause.
type AttemptLog struct {
	mu       sync.Mutex
	attempts []domain.Attempt
}

func NewAttemptLog() *AttemptLog {
	return &AttemptLog{}
}

func (l *AttemptLog) RecordAttempt(_ context.Context, attempt domain.Attempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, a := range l.attempts {
		if a.SessionToken == attempt.SessionToken {
			return nil
		}
	}
	l.attempts = append(l.attempts, attempt)
	return nil
}

// Attempts returns a snapshot of recorded attempts.
func (l *AttemptLog) Attempts() []domain.Attempt {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Attempt(nil), l.attempts...)
}
