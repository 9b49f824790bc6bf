package app

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"quiz-raffle-service/internal/domain"
)

// QuizTypeRepository loads quiz-type configuration.
type QuizTypeRepository interface {
	QuizType(ctx context.Context, id string) (domain.QuizType, error)
}

// QuestionRepository is read-only access to the question pool.
type QuestionRepository interface {
	QuestionsByDifficulty(ctx context.Context, difficulty string) ([]domain.Question, error)
}

// AttemptRecorder persists terminal quiz attempt records.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt domain.Attempt) error
}

// QuizConfig carries the session timing knobs.
type QuizConfig struct {
	SessionTTL  time.Duration
	AnswerGrace time.Duration
}

// DefaultQuizConfig matches the documented defaults.
func DefaultQuizConfig() QuizConfig {
	return QuizConfig{SessionTTL: 15 * time.Minute, AnswerGrace: 3 * time.Second}
}

// QuizService drives one user through one quiz attempt: start, serve
// questions, accept answers, complete.
type QuizService struct {
	sessions  SessionStore
	types     QuizTypeRepository
	questions QuestionRepository
	attempts  AttemptRecorder
	cfg       QuizConfig
	now       func() time.Time
}

func NewQuizService(sessions SessionStore, types QuizTypeRepository, questions QuestionRepository, attempts AttemptRecorder, cfg QuizConfig) *QuizService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultQuizConfig().SessionTTL
	}
	return &QuizService{
		sessions:  sessions,
		types:     types,
		questions: questions,
		attempts:  attempts,
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *QuizService) WithClock(now func() time.Time) *QuizService {
	s.now = now
	return s
}

// StartedSession is returned from Start.
type StartedSession struct {
	Token          string        `json:"token"`
	TotalQuestions int           `json:"totalQuestions"`
	TimeLimit      time.Duration `json:"timeLimit"`
	MaxEntries     int           `json:"maxEntries"`
}

// AnswerOption is a question option stripped of correctness.
type AnswerOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionView is the client-facing shape of the question at the cursor.
type QuestionView struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Options   []AnswerOption `json:"options"`
	TimeLimit time.Duration  `json:"timeLimit"`
	Number    int            `json:"number"` // 1-based position
	Total     int            `json:"total"`
}

// AnswerResult is returned from SubmitAnswer.
type AnswerResult struct {
	Correct   bool `json:"correct"`
	Completed bool `json:"completed"`
}

// Results is returned from Complete.
type Results struct {
	Correct       int `json:"correct"`
	Total         int `json:"total"`
	EntriesEarned int `json:"entriesEarned"`
}

// Start selects a frozen random question set for the quiz type and persists a
// new active session. Fails hard when the pool cannot cover the configured
// question count; no partial sessions.
func (s *QuizService) Start(ctx context.Context, userID, quizTypeID string) (StartedSession, error) {
	qt, err := s.types.QuizType(ctx, quizTypeID)
	if err != nil {
		return StartedSession{}, err
	}
	if v := ValidateStart(qt); !v.OK {
		return StartedSession{}, v.Err
	}

	pool, err := s.questions.QuestionsByDifficulty(ctx, qt.Difficulty)
	if err != nil {
		return StartedSession{}, fmt.Errorf("load question pool: %w", err)
	}
	if len(pool) < qt.QuestionCount {
		return StartedSession{}, domain.ErrInsufficientQuestions
	}

	now := s.now()
	session := &domain.QuizSession{
		Token:      uuid.NewString(),
		UserID:     userID,
		QuizTypeID: quizTypeID,
		Questions:  samplePool(pool, qt.QuestionCount),
		Status:     domain.SessionActive,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.cfg.SessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return StartedSession{}, fmt.Errorf("persist session: %w", err)
	}

	return StartedSession{
		Token:          session.Token,
		TotalQuestions: qt.QuestionCount,
		TimeLimit:      qt.TimeLimit,
		MaxEntries:     qt.MaxEntries,
	}, nil
}

// NextQuestion returns the question at the cursor with its options in
// randomized display order, or nil when every question has been answered.
// It never mutates the session; repeated calls are safe.
func (s *QuizService) NextQuestion(ctx context.Context, token string) (*QuestionView, error) {
	session, err := s.loadActive(ctx, token)
	if err != nil {
		return nil, err
	}
	question := session.CurrentQuestion()
	if question == nil {
		return nil, nil
	}

	qt, err := s.types.QuizType(ctx, session.QuizTypeID)
	if err != nil {
		return nil, err
	}

	options := make([]AnswerOption, len(question.Answers))
	for i, a := range question.Answers {
		options[i] = AnswerOption{ID: a.ID, Text: a.Text}
	}
	rand.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	return &QuestionView{
		ID:        question.ID,
		Text:      question.Text,
		Options:   options,
		TimeLimit: qt.TimeLimit,
		Number:    session.Cursor + 1,
		Total:     len(session.Questions),
	}, nil
}

// submitRetries bounds the optimistic-concurrency loop in SubmitAnswer.
const submitRetries = 3

// SubmitAnswer records the answer for the question at the cursor and advances
// it. The session update is a compare-and-swap on version, so concurrent
// duplicate submissions record exactly one answer; the losing racer gets the
// already-recorded result back.
func (s *QuizService) SubmitAnswer(ctx context.Context, token, questionID, answerID string, timeTaken time.Duration) (AnswerResult, error) {
	for attempt := 0; attempt < submitRetries; attempt++ {
		session, err := s.loadActive(ctx, token)
		if err != nil {
			return AnswerResult{}, err
		}

		// Duplicate of an already-recorded question: answer idempotently
		// instead of advancing twice.
		if recorded := session.RecordedFor(questionID); recorded != nil {
			return AnswerResult{
				Correct:   recorded.Correct,
				Completed: session.Cursor >= len(session.Questions),
			}, nil
		}

		qt, err := s.types.QuizType(ctx, session.QuizTypeID)
		if err != nil {
			return AnswerResult{}, err
		}
		if v := ValidateAnswer(session, questionID, answerID, timeTaken, qt.TimeLimit, s.cfg.AnswerGrace, s.now()); !v.OK {
			return AnswerResult{}, v.Err
		}

		question := session.CurrentQuestion()
		answer := question.Answer(answerID)
		session.Answers = append(session.Answers, domain.RecordedAnswer{
			QuestionID: questionID,
			AnswerID:   answerID,
			TimeTaken:  timeTaken,
			Correct:    answer.Correct,
		})
		session.Cursor++

		switch err := s.sessions.Update(ctx, session); err {
		case nil:
			return AnswerResult{
				Correct:   answer.Correct,
				Completed: session.Cursor >= len(session.Questions),
			}, nil
		case domain.ErrVersionConflict:
			continue // reload and re-check; the duplicate branch resolves racers
		default:
			return AnswerResult{}, fmt.Errorf("persist answer: %w", err)
		}
	}
	return AnswerResult{}, domain.ErrVersionConflict
}

// Complete finishes an active session with all questions answered, persists
// the attempt record, and marks the session completed. Completing twice is a
// client bug and surfaces ErrAlreadyCompleted rather than being absorbed.
func (s *QuizService) Complete(ctx context.Context, token string) (Results, error) {
	session, err := s.load(ctx, token)
	if err != nil {
		return Results{}, err
	}
	if v := ValidateCompletion(session); !v.OK {
		return Results{}, v.Err
	}

	qt, err := s.types.QuizType(ctx, session.QuizTypeID)
	if err != nil {
		return Results{}, err
	}

	correct := session.CorrectCount()
	total := len(session.Questions)
	earned := EntriesEarned(correct, qt.AnswersPerEntry, qt.MaxEntries)
	completedAt := s.now()

	if err := s.attempts.RecordAttempt(ctx, domain.Attempt{
		SessionToken:  session.Token,
		UserID:        session.UserID,
		QuizTypeID:    session.QuizTypeID,
		Correct:       correct,
		Total:         total,
		EntriesEarned: earned,
		StartedAt:     session.CreatedAt,
		CompletedAt:   completedAt,
	}); err != nil {
		return Results{}, fmt.Errorf("record attempt: %w", err)
	}

	session.Status = domain.SessionCompleted
	if err := s.sessions.Update(ctx, session); err != nil {
		if err == domain.ErrVersionConflict {
			// A concurrent completion won the race.
			return Results{}, domain.ErrAlreadyCompleted
		}
		return Results{}, fmt.Errorf("mark session completed: %w", err)
	}

	return Results{Correct: correct, Total: total, EntriesEarned: earned}, nil
}

// load fetches a session and lazily expires it when the TTL has lapsed.
func (s *QuizService) load(ctx context.Context, token string) (*domain.QuizSession, error) {
	session, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if session.Status == domain.SessionActive && session.ExpiredAt(s.now()) {
		session.Status = domain.SessionExpired
		// Best effort; the sweeper covers sessions this update misses.
		_ = s.sessions.Update(ctx, session)
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// loadActive is load restricted to sessions still accepting quiz operations.
func (s *QuizService) loadActive(ctx context.Context, token string) (*domain.QuizSession, error) {
	session, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.SessionActive {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// samplePool returns n questions drawn uniformly without replacement, via an
// index shuffle decoupled from storage ordering.
func samplePool(pool []domain.Question, n int) []domain.Question {
	perm := rand.Perm(len(pool))
	picked := make([]domain.Question, n)
	for i := 0; i < n; i++ {
		picked[i] = pool[perm[i]]
	}
	return picked
}
