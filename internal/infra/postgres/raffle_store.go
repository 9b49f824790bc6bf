package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-raffle-service/internal/domain"
)

const uniqueViolation = "23505"

// RaffleStore is the durable raffle store. Capacity and the scheduled-only
// state are enforced by a conditional counter bump in the same transaction as
// the entry insert, and number uniqueness by the (raffle_id, number)
// constraint with retry-on-violation upstream, so none of the checks race
// across workers.
type RaffleStore struct {
	pool *pgxpool.Pool
}

func NewRaffleStore(pool *pgxpool.Pool) *RaffleStore {
	return &RaffleStore{pool: pool}
}

func (s *RaffleStore) CreateEvent(ctx context.Context, event *domain.RaffleEvent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO raffle_events (id, title, prize, live, event_date, entry_limit, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID, event.Title, event.Prize, event.Live, event.EventDate,
		event.EntryLimit, string(event.Status), event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert raffle event: %w", err)
	}
	return nil
}

func (s *RaffleStore) Event(ctx context.Context, id string) (domain.RaffleEvent, error) {
	var event domain.RaffleEvent
	var status string
	var winner *string
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, prize, live, event_date, entry_limit, status, winner_entry_id, completed_at, created_at
		FROM raffle_events WHERE id = $1`, id).Scan(
		&event.ID, &event.Title, &event.Prize, &event.Live, &event.EventDate,
		&event.EntryLimit, &status, &winner, &event.CompletedAt, &event.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RaffleEvent{}, domain.ErrRaffleNotFound
	}
	if err != nil {
		return domain.RaffleEvent{}, fmt.Errorf("load raffle event: %w", err)
	}
	event.Status = domain.RaffleStatus(status)
	if winner != nil {
		event.WinnerEntryID = *winner
	}
	return event, nil
}

func (s *RaffleStore) TransitionEvent(ctx context.Context, id string, from, to domain.RaffleStatus) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE raffle_events SET status = $3 WHERE id = $1 AND status = $2`,
		id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("transition raffle event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missingOrConflict(ctx, id)
	}
	return nil
}

func (s *RaffleStore) CompleteEvent(ctx context.Context, id, winnerEntryID string, completedAt time.Time) error {
	var winner *string
	if winnerEntryID != "" {
		winner = &winnerEntryID
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE raffle_events
		SET status = $2, winner_entry_id = $3, completed_at = $4
		WHERE id = $1 AND status = $5`,
		id, string(domain.RaffleCompleted), winner, completedAt, string(domain.RaffleActive))
	if err != nil {
		return fmt.Errorf("complete raffle event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missingOrConflict(ctx, id)
	}
	return nil
}

func (s *RaffleStore) missingOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM raffle_events WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check raffle event: %w", err)
	}
	if !exists {
		return domain.ErrRaffleNotFound
	}
	return domain.ErrRaffleStateConflict
}

// entryRejection explains a failed entry-slot claim: missing event, event no
// longer scheduled, or capacity exhausted.
func (s *RaffleStore) entryRejection(ctx context.Context, id string) error {
	var status string
	err := s.pool.QueryRow(ctx, `SELECT status FROM raffle_events WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrRaffleNotFound
	}
	if err != nil {
		return fmt.Errorf("check raffle event: %w", err)
	}
	if domain.RaffleStatus(status) != domain.RaffleScheduled {
		return domain.ErrRaffleStateConflict
	}
	return domain.ErrRaffleFull
}

func (s *RaffleStore) InsertEntry(ctx context.Context, entry *domain.RaffleEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin entry insert: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE raffle_events SET entry_count = entry_count + 1
		WHERE id = $1 AND status = $2 AND entry_count < entry_limit`,
		entry.RaffleID, string(domain.RaffleScheduled))
	if err != nil {
		return fmt.Errorf("claim entry slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.entryRejection(ctx, entry.RaffleID)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO raffle_entries (id, raffle_id, user_id, number, phone, source_type, source_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.RaffleID, entry.UserID, entry.Number, entry.Phone,
		entry.SourceType, entry.SourceID, entry.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateEntryNumber
		}
		return fmt.Errorf("insert raffle entry: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *RaffleStore) Entries(ctx context.Context, raffleID string) ([]domain.RaffleEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, raffle_id, user_id, number, phone, source_type, source_id, created_at
		FROM raffle_entries WHERE raffle_id = $1 ORDER BY created_at, id`, raffleID)
	if err != nil {
		return nil, fmt.Errorf("load raffle entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.RaffleEntry
	for rows.Next() {
		var e domain.RaffleEntry
		if err := rows.Scan(&e.ID, &e.RaffleID, &e.UserID, &e.Number, &e.Phone, &e.SourceType, &e.SourceID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan raffle entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *RaffleStore) CreateDraw(ctx context.Context, draw *domain.RaffleDraw) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO raffle_draws (id, raffle_id, entry_id, question_id, phone_answered_at,
		                          question_answered_at, question_correct, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		draw.ID, draw.RaffleID, draw.EntryID, draw.QuestionID, draw.PhoneAnsweredAt,
		draw.QuestionAnsweredAt, draw.QuestionCorrect, string(draw.Status), draw.CreatedAt, draw.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert raffle draw: %w", err)
	}
	return nil
}

func (s *RaffleStore) Draw(ctx context.Context, id string) (domain.RaffleDraw, error) {
	var draw domain.RaffleDraw
	var status string
	err := s.pool.QueryRow(ctx, `
		SELECT id, raffle_id, entry_id, question_id, phone_answered_at,
		       question_answered_at, question_correct, status, created_at, updated_at
		FROM raffle_draws WHERE id = $1`, id).Scan(
		&draw.ID, &draw.RaffleID, &draw.EntryID, &draw.QuestionID, &draw.PhoneAnsweredAt,
		&draw.QuestionAnsweredAt, &draw.QuestionCorrect, &status, &draw.CreatedAt, &draw.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RaffleDraw{}, domain.ErrDrawNotFound
	}
	if err != nil {
		return domain.RaffleDraw{}, fmt.Errorf("load raffle draw: %w", err)
	}
	draw.Status = domain.DrawStatus(status)
	return draw, nil
}

func (s *RaffleStore) UpdateDraw(ctx context.Context, draw *domain.RaffleDraw) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE raffle_draws
		SET phone_answered_at = $2, question_answered_at = $3, question_correct = $4,
		    status = $5, updated_at = $6
		WHERE id = $1`,
		draw.ID, draw.PhoneAnsweredAt, draw.QuestionAnsweredAt, draw.QuestionCorrect,
		string(draw.Status), draw.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update raffle draw: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDrawNotFound
	}
	return nil
}

func (s *RaffleStore) BurnedEntryIDs(ctx context.Context, raffleID string) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT entry_id FROM raffle_draws
		WHERE raffle_id = $1 AND status IN ($2, $3)`,
		raffleID, string(domain.DrawFailed), string(domain.DrawVoid))
	if err != nil {
		return nil, fmt.Errorf("load burned entries: %w", err)
	}
	defer rows.Close()

	burned := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan burned entry: %w", err)
		}
		burned[id] = true
	}
	return burned, rows.Err()
}

func (s *RaffleStore) VoidStaleDraws(ctx context.Context, now time.Time, phoneTimeout, questionTimeout time.Duration) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE raffle_draws SET status = $1, updated_at = $2
		WHERE status = $3 AND (
			(phone_answered_at IS NULL AND created_at < $4)
			OR (phone_answered_at IS NOT NULL AND question_answered_at IS NULL AND phone_answered_at < $5)
		)`,
		string(domain.DrawVoid), now, string(domain.DrawPending),
		now.Add(-phoneTimeout), now.Add(-questionTimeout))
	if err != nil {
		return 0, fmt.Errorf("void stale draws: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
