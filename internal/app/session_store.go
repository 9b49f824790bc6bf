package app

import (
	"context"
	"log"
	"time"

	"quiz-raffle-service/internal/domain"
)

// SessionStore abstracts durable session storage. Implementations must treat
// Update as a compare-and-swap on Version: the update applies only when the
// stored version matches the caller's copy, and bumps it on success.
type SessionStore interface {
	Get(ctx context.Context, token string) (*domain.QuizSession, error)
	Create(ctx context.Context, session *domain.QuizSession) error
	Update(ctx context.Context, session *domain.QuizSession) error
	Delete(ctx context.Context, token string) error
	// ExpireStale marks active sessions past their deadline as expired and
	// returns how many it touched. Safe to call on any cadence.
	ExpireStale(ctx context.Context, now time.Time) (int, error)
}

// SessionCache is the fast, lossy mirror of the durable store. All methods
// are best-effort; the durable store stays authoritative.
type SessionCache interface {
	Get(ctx context.Context, token string) (*domain.QuizSession, bool)
	Put(ctx context.Context, session *domain.QuizSession) error
	Delete(ctx context.Context, token string) error
}

// DualSessionStore mirrors session state in a cache in front of a durable
// store. Writes hit the durable store first so a crash between the two never
// leaves the cache ahead of durable truth; cache misses fall through and
// repopulate.
type DualSessionStore struct {
	durable SessionStore
	cache   SessionCache
}

func NewDualSessionStore(durable SessionStore, cache SessionCache) *DualSessionStore {
	return &DualSessionStore{durable: durable, cache: cache}
}

func (d *DualSessionStore) Get(ctx context.Context, token string) (*domain.QuizSession, error) {
	if session, ok := d.cache.Get(ctx, token); ok {
		return session, nil
	}
	session, err := d.durable.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := d.cache.Put(ctx, session); err != nil {
		log.Printf("session cache repopulate failed for %s: %v", token, err)
	}
	return session, nil
}

func (d *DualSessionStore) Create(ctx context.Context, session *domain.QuizSession) error {
	if err := d.durable.Create(ctx, session); err != nil {
		return err
	}
	if err := d.cache.Put(ctx, session); err != nil {
		log.Printf("session cache write failed for %s: %v", session.Token, err)
	}
	return nil
}

func (d *DualSessionStore) Update(ctx context.Context, session *domain.QuizSession) error {
	if err := d.durable.Update(ctx, session); err != nil {
		return err
	}
	// Terminal sessions no longer need a hot copy; drop instead of refresh.
	if session.Status != domain.SessionActive {
		_ = d.cache.Delete(ctx, session.Token)
		return nil
	}
	if err := d.cache.Put(ctx, session); err != nil {
		log.Printf("session cache write failed for %s: %v", session.Token, err)
	}
	return nil
}

func (d *DualSessionStore) Delete(ctx context.Context, token string) error {
	if err := d.durable.Delete(ctx, token); err != nil {
		return err
	}
	_ = d.cache.Delete(ctx, token)
	return nil
}

func (d *DualSessionStore) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	// Cache entries carry their own TTL and lapse on their own.
	return d.durable.ExpireStale(ctx, now)
}
