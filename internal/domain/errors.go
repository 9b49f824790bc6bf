package domain

import "errors"

var (
	// ErrQuizTypeNotFound is returned when the requested quiz type does not exist.
	ErrQuizTypeNotFound = errors.New("quiz type not found")
	// ErrQuizTypeDisabled is returned when starting a quiz on a disabled type.
	ErrQuizTypeDisabled = errors.New("quiz type disabled")
	// ErrConfiguration indicates a quiz type with a missing or non-positive question count.
	ErrConfiguration = errors.New("quiz type misconfigured")
	// ErrInsufficientQuestions indicates the pool holds fewer questions than the quiz requires.
	ErrInsufficientQuestions = errors.New("insufficient questions in pool")
	// ErrSessionNotFound is returned for unknown or expired session tokens.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrQuestionMismatch is returned when the submitted question is not the one at the cursor.
	ErrQuestionMismatch = errors.New("question does not match current cursor")
	// ErrAnswerNotFound indicates a submitted answer ID that does not belong to the question.
	ErrAnswerNotFound = errors.New("answer not found for question")
	// ErrInvalidTimeTaken indicates a negative or over-limit answer time.
	ErrInvalidTimeTaken = errors.New("time taken out of range")
	// ErrSessionNotFinished is returned when completing a session with unanswered questions.
	ErrSessionNotFinished = errors.New("quiz session has unanswered questions")
	// ErrAlreadyCompleted is returned when completing a session that already left the active state.
	ErrAlreadyCompleted = errors.New("quiz session already completed")
	// ErrVersionConflict signals a lost compare-and-swap race on a session update.
	ErrVersionConflict = errors.New("session version conflict")

	// ErrRaffleNotFound is returned for unknown raffle event IDs.
	ErrRaffleNotFound = errors.New("raffle event not found")
	// ErrRaffleStateConflict is returned when an event is not in the state an operation requires.
	ErrRaffleStateConflict = errors.New("raffle event in wrong state")
	// ErrRaffleFull indicates the event entry capacity is exhausted.
	ErrRaffleFull = errors.New("raffle entry limit reached")
	// ErrDuplicateEntryNumber indicates a collision on the per-raffle entry number.
	ErrDuplicateEntryNumber = errors.New("duplicate raffle entry number")
	// ErrEntryNumberExhausted indicates bounded number-generation retries ran out.
	ErrEntryNumberExhausted = errors.New("could not allocate unique entry number")
	// ErrNoEntries is returned when drawing a winner from an empty eligible pool.
	ErrNoEntries = errors.New("no eligible raffle entries")
	// ErrNoQuestionsAvailable indicates the winner-question pool is empty.
	ErrNoQuestionsAvailable = errors.New("no winner questions available")
	// ErrDrawNotFound is returned for unknown draw IDs.
	ErrDrawNotFound = errors.New("raffle draw not found")
	// ErrDrawResolved is returned when recording an outcome on a terminal draw.
	ErrDrawResolved = errors.New("raffle draw already resolved")
)
