package memory

import (
	"context"
	"sync"
	"time"

	"quiz-raffle-service/internal/domain"
)

// RaffleStore is an in-memory implementation of app.RaffleStore. A single
// mutex serializes capacity checks, number uniqueness, and status
// transitions, matching the per-entity atomicity the durable store gets from
// constraints and conditional updates.
type RaffleStore struct {
	mu      sync.RWMutex
	events  map[string]*domain.RaffleEvent
	entries map[string][]domain.RaffleEntry // by raffle ID, insertion order
	numbers map[string]map[int]bool         // taken numbers per raffle
	draws   map[string]*domain.RaffleDraw
}

func NewRaffleStore() *RaffleStore {
	return &RaffleStore{
		events:  make(map[string]*domain.RaffleEvent),
		entries: make(map[string][]domain.RaffleEntry),
		numbers: make(map[string]map[int]bool),
		draws:   make(map[string]*domain.RaffleDraw),
	}
}

func (s *RaffleStore) CreateEvent(_ context.Context, event *domain.RaffleEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *event
	s.events[event.ID] = &copied
	s.numbers[event.ID] = make(map[int]bool)
	return nil
}

func (s *RaffleStore) Event(_ context.Context, id string) (domain.RaffleEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[id]
	if !ok {
		return domain.RaffleEvent{}, domain.ErrRaffleNotFound
	}
	return *event, nil
}

func (s *RaffleStore) TransitionEvent(_ context.Context, id string, from, to domain.RaffleStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return domain.ErrRaffleNotFound
	}
	if event.Status != from {
		return domain.ErrRaffleStateConflict
	}
	event.Status = to
	return nil
}

func (s *RaffleStore) CompleteEvent(_ context.Context, id, winnerEntryID string, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return domain.ErrRaffleNotFound
	}
	if event.Status != domain.RaffleActive {
		return domain.ErrRaffleStateConflict
	}
	event.Status = domain.RaffleCompleted
	event.WinnerEntryID = winnerEntryID
	event.CompletedAt = &completedAt
	return nil
}

func (s *RaffleStore) InsertEntry(_ context.Context, entry *domain.RaffleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[entry.RaffleID]
	if !ok {
		return domain.ErrRaffleNotFound
	}
	if event.Status != domain.RaffleScheduled {
		return domain.ErrRaffleStateConflict
	}
	if len(s.entries[entry.RaffleID]) >= event.EntryLimit {
		return domain.ErrRaffleFull
	}
	if s.numbers[entry.RaffleID][entry.Number] {
		return domain.ErrDuplicateEntryNumber
	}
	s.numbers[entry.RaffleID][entry.Number] = true
	s.entries[entry.RaffleID] = append(s.entries[entry.RaffleID], *entry)
	return nil
}

func (s *RaffleStore) Entries(_ context.Context, raffleID string) ([]domain.RaffleEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.RaffleEntry(nil), s.entries[raffleID]...), nil
}

func (s *RaffleStore) CreateDraw(_ context.Context, draw *domain.RaffleDraw) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *draw
	s.draws[draw.ID] = &copied
	return nil
}

func (s *RaffleStore) Draw(_ context.Context, id string) (domain.RaffleDraw, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	draw, ok := s.draws[id]
	if !ok {
		return domain.RaffleDraw{}, domain.ErrDrawNotFound
	}
	return *draw, nil
}

func (s *RaffleStore) UpdateDraw(_ context.Context, draw *domain.RaffleDraw) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.draws[draw.ID]; !ok {
		return domain.ErrDrawNotFound
	}
	copied := *draw
	s.draws[draw.ID] = &copied
	return nil
}

func (s *RaffleStore) BurnedEntryIDs(_ context.Context, raffleID string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	burned := make(map[string]bool)
	for _, draw := range s.draws {
		if draw.RaffleID != raffleID {
			continue
		}
		if draw.Status == domain.DrawFailed || draw.Status == domain.DrawVoid {
			burned[draw.EntryID] = true
		}
	}
	return burned, nil
}

func (s *RaffleStore) VoidStaleDraws(_ context.Context, now time.Time, phoneTimeout, questionTimeout time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	voided := 0
	for _, draw := range s.draws {
		if draw.Status != domain.DrawPending {
			continue
		}
		if drawStale(draw, now, phoneTimeout, questionTimeout) {
			draw.Status = domain.DrawVoid
			draw.UpdatedAt = now
			voided++
		}
	}
	return voided, nil
}

// drawStale implements the shared deadline arithmetic: the phone window runs
// from draw creation, the question window from the phone answer.
func drawStale(draw *domain.RaffleDraw, now time.Time, phoneTimeout, questionTimeout time.Duration) bool {
	if draw.PhoneAnsweredAt == nil {
		return now.After(draw.CreatedAt.Add(phoneTimeout))
	}
	if draw.QuestionAnsweredAt == nil {
		return now.After(draw.PhoneAnsweredAt.Add(questionTimeout))
	}
	return false
}
