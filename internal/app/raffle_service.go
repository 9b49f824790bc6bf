package app

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"quiz-raffle-service/internal/domain"
)

// RaffleStore abstracts durable raffle state. Entry insertion must enforce
// the per-raffle number uniqueness, the event capacity, and the
// scheduled-only state at insert time, not via a read-then-write gap.
type RaffleStore interface {
	CreateEvent(ctx context.Context, event *domain.RaffleEvent) error
	Event(ctx context.Context, id string) (domain.RaffleEvent, error)
	// TransitionEvent moves the event from one status to another atomically;
	// ErrRaffleStateConflict when the current status differs from from.
	TransitionEvent(ctx context.Context, id string, from, to domain.RaffleStatus) error
	CompleteEvent(ctx context.Context, id, winnerEntryID string, completedAt time.Time) error
	// InsertEntry fails with ErrRaffleFull at capacity,
	// ErrDuplicateEntryNumber on a number collision within the raffle, and
	// ErrRaffleStateConflict once the event has left the scheduled state.
	InsertEntry(ctx context.Context, entry *domain.RaffleEntry) error
	Entries(ctx context.Context, raffleID string) ([]domain.RaffleEntry, error)
	CreateDraw(ctx context.Context, draw *domain.RaffleDraw) error
	Draw(ctx context.Context, id string) (domain.RaffleDraw, error)
	UpdateDraw(ctx context.Context, draw *domain.RaffleDraw) error
	// BurnedEntryIDs returns entries consumed by failed or voided draws of
	// the raffle; they are excluded from subsequent draws.
	BurnedEntryIDs(ctx context.Context, raffleID string) (map[string]bool, error)
	// VoidStaleDraws voids pending draws whose phone or question deadline has
	// lapsed and returns how many it touched.
	VoidStaleDraws(ctx context.Context, now time.Time, phoneTimeout, questionTimeout time.Duration) (int, error)
}

// WinnerQuestionRepository hands out verification questions. Acquire must be
// atomic with the usage-counter bump so concurrent draws never both observe a
// question as rarely used.
type WinnerQuestionRepository interface {
	Acquire(ctx context.Context, now time.Time, rotationWindow time.Duration) (domain.WinnerQuestion, error)
}

// RaffleConfig carries the verification timing knobs.
type RaffleConfig struct {
	DefaultEntryLimit int
	PhoneTimeout      time.Duration
	QuestionTimeout   time.Duration
	RotationWindow    time.Duration
}

// DefaultRaffleConfig matches the documented defaults.
func DefaultRaffleConfig() RaffleConfig {
	return RaffleConfig{
		DefaultEntryLimit: 200,
		PhoneTimeout:      2 * time.Minute,
		QuestionTimeout:   time.Minute,
		RotationWindow:    30 * 24 * time.Hour,
	}
}

// entryNumberRetries bounds collision retries when allocating 5-digit entry
// numbers. The number space (90,000) dwarfs any sane entry limit, so retries
// stay rare; running out signals an infra fault, not bad input.
const entryNumberRetries = 10

// RaffleService owns the raffle lifecycle: event creation, capacity-bounded
// entry intake, random winner draws, and phone/question verification.
type RaffleService struct {
	store     RaffleStore
	questions WinnerQuestionRepository
	cfg       RaffleConfig
	feed      *drawFeed
	now       func() time.Time
}

func NewRaffleService(store RaffleStore, questions WinnerQuestionRepository, cfg RaffleConfig) *RaffleService {
	def := DefaultRaffleConfig()
	if cfg.DefaultEntryLimit <= 0 {
		cfg.DefaultEntryLimit = def.DefaultEntryLimit
	}
	if cfg.PhoneTimeout <= 0 {
		cfg.PhoneTimeout = def.PhoneTimeout
	}
	if cfg.QuestionTimeout <= 0 {
		cfg.QuestionTimeout = def.QuestionTimeout
	}
	if cfg.RotationWindow <= 0 {
		cfg.RotationWindow = def.RotationWindow
	}
	return &RaffleService{
		store:     store,
		questions: questions,
		cfg:       cfg,
		feed:      newDrawFeed(),
		now:       time.Now,
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *RaffleService) WithClock(now func() time.Time) *RaffleService {
	s.now = now
	return s
}

// CreateEvent persists a new raffle in the scheduled state.
func (s *RaffleService) CreateEvent(ctx context.Context, title, prize string, live bool, eventDate time.Time, entryLimit int) (string, error) {
	if entryLimit <= 0 {
		entryLimit = s.cfg.DefaultEntryLimit
	}
	event := &domain.RaffleEvent{
		ID:         uuid.NewString(),
		Title:      title,
		Prize:      prize,
		Live:       live,
		EventDate:  eventDate,
		EntryLimit: entryLimit,
		Status:     domain.RaffleScheduled,
		CreatedAt:  s.now(),
	}
	if err := s.store.CreateEvent(ctx, event); err != nil {
		return "", fmt.Errorf("create raffle event: %w", err)
	}
	return event.ID, nil
}

// EntryRequest describes one entry to add to a raffle.
type EntryRequest struct {
	UserID     string `json:"userId"`
	Phone      string `json:"phone"`
	SourceType string `json:"sourceType"`
	SourceID   string `json:"sourceId"`
}

// AddEntries inserts entries up to remaining capacity. The batch is
// best-effort per entry: once capacity runs out the rest of the batch is
// skipped and the accepted count returned. The event must still be scheduled.
func (s *RaffleService) AddEntries(ctx context.Context, raffleID string, requests []EntryRequest) (int, error) {
	event, err := s.store.Event(ctx, raffleID)
	if err != nil {
		return 0, err
	}
	if event.Status != domain.RaffleScheduled {
		return 0, domain.ErrRaffleStateConflict
	}

	accepted := 0
	for _, req := range requests {
		entry := &domain.RaffleEntry{
			ID:         uuid.NewString(),
			RaffleID:   raffleID,
			UserID:     req.UserID,
			Phone:      req.Phone,
			SourceType: req.SourceType,
			SourceID:   req.SourceID,
			CreatedAt:  s.now(),
		}
		if err := s.insertWithNumber(ctx, entry); err != nil {
			if err == domain.ErrRaffleFull {
				log.Printf("raffle %s full after %d accepted entries, dropping %d", raffleID, accepted, len(requests)-accepted)
				return accepted, nil
			}
			return accepted, fmt.Errorf("insert raffle entry: %w", err)
		}
		accepted++
	}
	return accepted, nil
}

// insertWithNumber retries random 5-digit numbers until the unique insert
// lands, bounded rather than looping forever.
func (s *RaffleService) insertWithNumber(ctx context.Context, entry *domain.RaffleEntry) error {
	for attempt := 0; attempt < entryNumberRetries; attempt++ {
		entry.Number = 10000 + rand.Intn(90000)
		err := s.store.InsertEntry(ctx, entry)
		if err == domain.ErrDuplicateEntryNumber {
			continue
		}
		return err
	}
	return domain.ErrEntryNumberExhausted
}

// StartDraw transitions the event from scheduled to active.
func (s *RaffleService) StartDraw(ctx context.Context, raffleID string) error {
	if err := s.store.TransitionEvent(ctx, raffleID, domain.RaffleScheduled, domain.RaffleActive); err != nil {
		return err
	}
	s.feed.publish(raffleID, domain.DrawUpdate{
		RaffleID:    raffleID,
		EventStatus: domain.RaffleActive,
		At:          s.now(),
	})
	return nil
}

// DrawResult is the handle returned from DrawWinner.
type DrawResult struct {
	Draw     domain.RaffleDraw     `json:"draw"`
	Entry    domain.RaffleEntry    `json:"entry"`
	Question domain.WinnerQuestion `json:"question"`
}

// DrawWinner picks one entry uniformly at random among entries not burned by
// a failed earlier draw of the same event, assigns a verification question,
// and records a pending draw.
func (s *RaffleService) DrawWinner(ctx context.Context, raffleID string) (DrawResult, error) {
	event, err := s.store.Event(ctx, raffleID)
	if err != nil {
		return DrawResult{}, err
	}
	if event.Status != domain.RaffleActive {
		return DrawResult{}, domain.ErrRaffleStateConflict
	}

	entries, err := s.store.Entries(ctx, raffleID)
	if err != nil {
		return DrawResult{}, fmt.Errorf("load entries: %w", err)
	}
	burned, err := s.store.BurnedEntryIDs(ctx, raffleID)
	if err != nil {
		return DrawResult{}, fmt.Errorf("load burned entries: %w", err)
	}
	eligible := entries[:0:0]
	for _, e := range entries {
		if !burned[e.ID] {
			eligible = append(eligible, e)
		}
	}
	if len(eligible) == 0 {
		return DrawResult{}, domain.ErrNoEntries
	}
	winner := eligible[rand.Intn(len(eligible))]

	now := s.now()
	question, err := s.questions.Acquire(ctx, now, s.cfg.RotationWindow)
	if err != nil {
		return DrawResult{}, err
	}

	draw := domain.RaffleDraw{
		ID:         uuid.NewString(),
		RaffleID:   raffleID,
		EntryID:    winner.ID,
		QuestionID: question.ID,
		Status:     domain.DrawPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateDraw(ctx, &draw); err != nil {
		return DrawResult{}, fmt.Errorf("create draw: %w", err)
	}

	s.feed.publish(raffleID, domain.DrawUpdate{
		RaffleID:    raffleID,
		DrawID:      draw.ID,
		EntryNumber: winner.Number,
		Status:      domain.DrawPending,
		At:          now,
	})
	return DrawResult{Draw: draw, Entry: winner, Question: question}, nil
}

// RecordPhoneAnswer stamps the phone outcome of a pending draw. An explicit
// no-answer fails the draw immediately; a never-reported call is voided by
// the sweeper once the phone deadline lapses.
func (s *RaffleService) RecordPhoneAnswer(ctx context.Context, drawID string, answered bool) error {
	draw, err := s.store.Draw(ctx, drawID)
	if err != nil {
		return err
	}
	if draw.Status.Terminal() {
		return domain.ErrDrawResolved
	}

	now := s.now()
	if answered {
		draw.PhoneAnsweredAt = &now
	} else {
		draw.Status = domain.DrawFailed
	}
	draw.UpdatedAt = now
	if err := s.store.UpdateDraw(ctx, &draw); err != nil {
		return fmt.Errorf("update draw: %w", err)
	}
	s.feed.publish(draw.RaffleID, domain.DrawUpdate{
		RaffleID: draw.RaffleID,
		DrawID:   draw.ID,
		Status:   draw.Status,
		At:       now,
	})
	return nil
}

// RecordQuestionAnswer stamps the verification-question outcome: a correct
// answer verifies the draw, a wrong one fails it and frees the event for a
// redraw among the remaining entries.
func (s *RaffleService) RecordQuestionAnswer(ctx context.Context, drawID string, answerTime time.Time, correct bool) error {
	draw, err := s.store.Draw(ctx, drawID)
	if err != nil {
		return err
	}
	if draw.Status.Terminal() {
		return domain.ErrDrawResolved
	}

	draw.QuestionAnsweredAt = &answerTime
	draw.QuestionCorrect = correct
	if correct {
		draw.Status = domain.DrawVerified
	} else {
		draw.Status = domain.DrawFailed
	}
	draw.UpdatedAt = s.now()
	if err := s.store.UpdateDraw(ctx, &draw); err != nil {
		return fmt.Errorf("update draw: %w", err)
	}
	s.feed.publish(draw.RaffleID, domain.DrawUpdate{
		RaffleID: draw.RaffleID,
		DrawID:   draw.ID,
		Status:   draw.Status,
		At:       draw.UpdatedAt,
	})
	return nil
}

// CompleteEvent is the terminal active-to-completed transition. winnerEntryID
// may be empty when the raffle resolves without a verified winner.
func (s *RaffleService) CompleteEvent(ctx context.Context, raffleID, winnerEntryID string) error {
	now := s.now()
	if err := s.store.CompleteEvent(ctx, raffleID, winnerEntryID, now); err != nil {
		return err
	}
	s.feed.publish(raffleID, domain.DrawUpdate{
		RaffleID:    raffleID,
		EventStatus: domain.RaffleCompleted,
		At:          now,
	})
	return nil
}

// Event loads one raffle event.
func (s *RaffleService) Event(ctx context.Context, raffleID string) (domain.RaffleEvent, error) {
	return s.store.Event(ctx, raffleID)
}

// Subscribe returns a channel of draw updates for a raffle. The caller must
// invoke the returned cancel function to avoid leaks.
func (s *RaffleService) Subscribe(raffleID string) (<-chan domain.DrawUpdate, func()) {
	return s.feed.subscribe(raffleID)
}
