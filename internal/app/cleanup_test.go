package app_test

import (
	"context"
	"testing"
	"time"

	"quiz-raffle-service/internal/app"
	"quiz-raffle-service/internal/domain"
	"quiz-raffle-service/internal/infra/memory"
)

func TestSweeperExpiresStaleSessions(t *testing.T) {
	ctx := context.Background()
	sessions := memory.NewSessionStore()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}

	stale := &domain.QuizSession{
		Token:     "stale",
		Status:    domain.SessionActive,
		CreatedAt: clock.Now().Add(-time.Hour),
		ExpiresAt: clock.Now().Add(-45 * time.Minute),
	}
	fresh := &domain.QuizSession{
		Token:     "fresh",
		Status:    domain.SessionActive,
		CreatedAt: clock.Now(),
		ExpiresAt: clock.Now().Add(15 * time.Minute),
	}
	done := &domain.QuizSession{
		Token:     "done",
		Status:    domain.SessionCompleted,
		CreatedAt: clock.Now().Add(-time.Hour),
		ExpiresAt: clock.Now().Add(-45 * time.Minute),
	}
	for _, s := range []*domain.QuizSession{stale, fresh, done} {
		if err := sessions.Create(ctx, s); err != nil {
			t.Fatalf("seed session %s: %v", s.Token, err)
		}
	}

	sweeper := app.NewSweeper(sessions, memory.NewRaffleStore(), app.DefaultRaffleConfig()).WithClock(clock.Now)
	n, err := sweeper.ExpireStaleSessions(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired, got %d", n)
	}

	got, err := sessions.Get(ctx, "stale")
	if err != nil {
		t.Fatalf("load stale: %v", err)
	}
	if got.Status != domain.SessionExpired {
		t.Fatalf("expected expired, got %s", got.Status)
	}
	got, _ = sessions.Get(ctx, "fresh")
	if got.Status != domain.SessionActive {
		t.Fatalf("fresh session touched: %s", got.Status)
	}
	got, _ = sessions.Get(ctx, "done")
	if got.Status != domain.SessionCompleted {
		t.Fatalf("terminal session touched: %s", got.Status)
	}

	// Idempotent: a second sweep finds nothing.
	n, err = sweeper.ExpireStaleSessions(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 on second sweep, got %d", n)
	}
}

func TestSweeperVoidsUnansweredPhoneDraws(t *testing.T) {
	ctx := context.Background()
	fx := newRaffleFixture(t)
	id := fx.createEvent(t, 10)
	fx.service.AddEntries(ctx, id, entryBatch(2))
	fx.service.StartDraw(ctx, id)

	result, err := fx.service.DrawWinner(ctx, id)
	if err != nil {
		t.Fatalf("draw winner: %v", err)
	}

	sweeper := app.NewSweeper(memory.NewSessionStore(), fx.store, app.RaffleConfig{
		PhoneTimeout:    2 * time.Minute,
		QuestionTimeout: time.Minute,
	}).WithClock(fx.clock.Now)

	// Inside the phone window: nothing to void.
	fx.clock.Advance(time.Minute)
	n, err := sweeper.VoidStaleDraws(ctx)
	if err != nil {
		t.Fatalf("early sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("voided %d draws inside the window", n)
	}

	fx.clock.Advance(2 * time.Minute)
	n, err = sweeper.VoidStaleDraws(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 voided, got %d", n)
	}

	draw, _ := fx.store.Draw(ctx, result.Draw.ID)
	if draw.Status != domain.DrawVoid {
		t.Fatalf("expected void, got %s", draw.Status)
	}

	// A voided draw burns its entry like a failed one.
	redraw, err := fx.service.DrawWinner(ctx, id)
	if err != nil {
		t.Fatalf("redraw: %v", err)
	}
	if redraw.Entry.ID == result.Entry.ID {
		t.Fatalf("redraw picked the voided entry")
	}
}

func TestSweeperVoidsUnansweredQuestionDraws(t *testing.T) {
	ctx := context.Background()
	fx := newRaffleFixture(t)
	id := fx.createEvent(t, 10)
	fx.service.AddEntries(ctx, id, entryBatch(1))
	fx.service.StartDraw(ctx, id)

	result, err := fx.service.DrawWinner(ctx, id)
	if err != nil {
		t.Fatalf("draw winner: %v", err)
	}
	// Phone answered just before the phone deadline; the question window
	// starts from the answer.
	fx.clock.Advance(90 * time.Second)
	if err := fx.service.RecordPhoneAnswer(ctx, result.Draw.ID, true); err != nil {
		t.Fatalf("record phone answer: %v", err)
	}

	sweeper := app.NewSweeper(memory.NewSessionStore(), fx.store, app.RaffleConfig{
		PhoneTimeout:    2 * time.Minute,
		QuestionTimeout: time.Minute,
	}).WithClock(fx.clock.Now)

	fx.clock.Advance(45 * time.Second)
	if n, _ := sweeper.VoidStaleDraws(ctx); n != 0 {
		t.Fatalf("voided %d draws inside the question window", n)
	}

	fx.clock.Advance(30 * time.Second)
	n, err := sweeper.VoidStaleDraws(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 voided, got %d", n)
	}

	draw, _ := fx.store.Draw(ctx, result.Draw.ID)
	if draw.Status != domain.DrawVoid {
		t.Fatalf("expected void, got %s", draw.Status)
	}
}

func TestSweeperLeavesResolvedDrawsAlone(t *testing.T) {
	ctx := context.Background()
	fx := newRaffleFixture(t)
	id := fx.createEvent(t, 10)
	fx.service.AddEntries(ctx, id, entryBatch(1))
	fx.service.StartDraw(ctx, id)

	result, _ := fx.service.DrawWinner(ctx, id)
	fx.service.RecordPhoneAnswer(ctx, result.Draw.ID, true)
	fx.service.RecordQuestionAnswer(ctx, result.Draw.ID, fx.clock.Now(), true)

	sweeper := app.NewSweeper(memory.NewSessionStore(), fx.store, app.DefaultRaffleConfig()).WithClock(fx.clock.Now)
	fx.clock.Advance(24 * time.Hour)
	n, err := sweeper.VoidStaleDraws(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("sweeper touched a verified draw, voided %d", n)
	}
}
