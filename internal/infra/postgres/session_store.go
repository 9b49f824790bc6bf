package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-raffle-service/internal/domain"
)

// SessionStore is the durable, authoritative session store. The session body
// lives in a JSONB blob; status, expiry, and version are mirrored into
// columns so sweeps and the compare-and-swap update stay indexable, and the
// columns win over the blob at read time.
type SessionStore struct {
	pool *pgxpool.Pool
}

func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

func (s *SessionStore) Get(ctx context.Context, token string) (*domain.QuizSession, error) {
	var raw []byte
	var status string
	var expiresAt time.Time
	var version int64
	err := s.pool.QueryRow(ctx, `
		SELECT data, status, expires_at, version
		FROM quiz_sessions WHERE token = $1`, token).Scan(&raw, &status, &expiresAt, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var session domain.QuizSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	session.Status = domain.SessionStatus(status)
	session.ExpiresAt = expiresAt
	session.Version = version
	return &session, nil
}

func (s *SessionStore) Create(ctx context.Context, session *domain.QuizSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO quiz_sessions (token, user_id, quiz_type_id, data, status, expires_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		session.Token, session.UserID, session.QuizTypeID, raw,
		string(session.Status), session.ExpiresAt, session.Version)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *SessionStore) Update(ctx context.Context, session *domain.QuizSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE quiz_sessions
		SET data = $2, status = $3, expires_at = $4, version = version + 1
		WHERE token = $1 AND version = $5`,
		session.Token, raw, string(session.Status), session.ExpiresAt, session.Version)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quiz_sessions WHERE token = $1)`, session.Token).Scan(&exists); err != nil {
			return fmt.Errorf("check session: %w", err)
		}
		if !exists {
			return domain.ErrSessionNotFound
		}
		return domain.ErrVersionConflict
	}
	session.Version++
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM quiz_sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE quiz_sessions
		SET status = $1, version = version + 1
		WHERE status = $2 AND expires_at <= $3`,
		string(domain.SessionExpired), string(domain.SessionActive), now)
	if err != nil {
		return 0, fmt.Errorf("expire sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
