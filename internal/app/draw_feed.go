package app

import (
	"sync"

	"quiz-raffle-service/internal/domain"
)

// drawFeed fans draw updates out to live-event subscribers.
type drawFeed struct {
	mu   sync.Mutex
	subs map[string]map[chan domain.DrawUpdate]struct{}
}

func newDrawFeed() *drawFeed {
	return &drawFeed{subs: make(map[string]map[chan domain.DrawUpdate]struct{})}
}

func (f *drawFeed) subscribe(raffleID string) (<-chan domain.DrawUpdate, func()) {
	ch := make(chan domain.DrawUpdate, 8)

	f.mu.Lock()
	if f.subs[raffleID] == nil {
		f.subs[raffleID] = make(map[chan domain.DrawUpdate]struct{})
	}
	f.subs[raffleID][ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if set, ok := f.subs[raffleID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(f.subs, raffleID)
			}
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

func (f *drawFeed) publish(raffleID string, update domain.DrawUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs[raffleID] {
		select {
		case ch <- update:
		default:
			// Drop the oldest update so slow readers never block a draw.
			select {
			case <-ch:
			default:
			}
			ch <- update
		}
	}
}
