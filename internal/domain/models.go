package domain

import "time"

// SessionStatus tracks the lifecycle of a quiz session. Once a session leaves
// Active the status is terminal.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
	SessionExpired   SessionStatus = "expired"
)

// QuizType is the immutable configuration of one quiz flavor.
type QuizType struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Difficulty      string        `json:"difficulty"`
	Enabled         bool          `json:"enabled"`
	QuestionCount   int           `json:"questionCount"`
	TimeLimit       time.Duration `json:"timeLimit"` // per question
	EntryCost       int           `json:"entryCost"`
	MaxEntries      int           `json:"maxEntries"`
	AnswersPerEntry int           `json:"answersPerEntry"`
}

// Answer is one option of a question. Exactly one answer per question is
// expected to carry Correct=true.
type Answer struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question is a pool question with its answers. Read-only to the core.
type Question struct {
	ID         string   `json:"id"`
	Difficulty string   `json:"difficulty"`
	Text       string   `json:"text"`
	Kind       string   `json:"kind"`
	Points     int      `json:"points"`
	Answers    []Answer `json:"answers"`
}

// CorrectAnswer returns the answer marked correct, or nil.
func (q Question) CorrectAnswer() *Answer {
	for i := range q.Answers {
		if q.Answers[i].Correct {
			return &q.Answers[i]
		}
	}
	return nil
}

// Answer returns the answer with the given ID, or nil.
func (q Question) Answer(answerID string) *Answer {
	for i := range q.Answers {
		if q.Answers[i].ID == answerID {
			return &q.Answers[i]
		}
	}
	return nil
}

// RecordedAnswer is one submitted answer, append-only within a session.
type RecordedAnswer struct {
	QuestionID string        `json:"questionId"`
	AnswerID   string        `json:"answerId"`
	TimeTaken  time.Duration `json:"timeTaken"`
	Correct    bool          `json:"correct"`
}

// QuizSession is the central mutable entity of a quiz attempt. The question
// list is frozen at start; later pool edits do not affect an in-flight
// session. Version backs the compare-and-swap update path.
type QuizSession struct {
	Token      string           `json:"token"`
	UserID     string           `json:"userId"`
	QuizTypeID string           `json:"quizTypeId"`
	Questions  []Question       `json:"questions"`
	Cursor     int              `json:"cursor"`
	Answers    []RecordedAnswer `json:"answers"`
	CreatedAt  time.Time        `json:"createdAt"`
	ExpiresAt  time.Time        `json:"expiresAt"`
	Status     SessionStatus    `json:"status"`
	Version    int64            `json:"version"`
}

// ExpiredAt reports whether the session TTL has lapsed at the given instant.
func (s *QuizSession) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// CurrentQuestion returns the question at the cursor, or nil when all
// questions have been answered.
func (s *QuizSession) CurrentQuestion() *Question {
	if s.Cursor >= len(s.Questions) {
		return nil
	}
	return &s.Questions[s.Cursor]
}

// RecordedFor returns the recorded answer for a question, or nil.
func (s *QuizSession) RecordedFor(questionID string) *RecordedAnswer {
	for i := range s.Answers {
		if s.Answers[i].QuestionID == questionID {
			return &s.Answers[i]
		}
	}
	return nil
}

// CorrectCount counts correct recorded answers.
func (s *QuizSession) CorrectCount() int {
	n := 0
	for _, a := range s.Answers {
		if a.Correct {
			n++
		}
	}
	return n
}

// Clone returns a copy safe to mutate without aliasing the receiver's slices.
func (s *QuizSession) Clone() *QuizSession {
	c := *s
	c.Questions = append([]Question(nil), s.Questions...)
	c.Answers = append([]RecordedAnswer(nil), s.Answers...)
	return &c
}

// Attempt is the terminal record of a finished quiz.
type Attempt struct {
	SessionToken  string    `json:"sessionToken"`
	UserID        string    `json:"userId"`
	QuizTypeID    string    `json:"quizTypeId"`
	Correct       int       `json:"correct"`
	Total         int       `json:"total"`
	EntriesEarned int       `json:"entriesEarned"`
	StartedAt     time.Time `json:"startedAt"`
	CompletedAt   time.Time `json:"completedAt"`
}

// RaffleStatus tracks the raffle event lifecycle.
type RaffleStatus string

const (
	RaffleScheduled RaffleStatus = "scheduled"
	RaffleActive    RaffleStatus = "active"
	RaffleCompleted RaffleStatus = "completed"
)

// RaffleEvent is the long-lived aggregate root of one raffle.
type RaffleEvent struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Prize         string       `json:"prize"`
	Live          bool         `json:"live"`
	EventDate     time.Time    `json:"eventDate"`
	EntryLimit    int          `json:"entryLimit"`
	Status        RaffleStatus `json:"status"`
	WinnerEntryID string       `json:"winnerEntryId,omitempty"`
	CompletedAt   *time.Time   `json:"completedAt,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// RaffleEntry is one ticket in a raffle. Number is unique within the raffle.
type RaffleEntry struct {
	ID         string    `json:"id"`
	RaffleID   string    `json:"raffleId"`
	UserID     string    `json:"userId"`
	Number     int       `json:"number"`
	Phone      string    `json:"phone"`
	SourceType string    `json:"sourceType"`
	SourceID   string    `json:"sourceId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// DrawStatus tracks one winner-resolution attempt.
type DrawStatus string

const (
	DrawPending  DrawStatus = "pending"
	DrawVerified DrawStatus = "verified"
	DrawFailed   DrawStatus = "failed"
	DrawVoid     DrawStatus = "void"
)

// Terminal reports whether no further outcome may be recorded on the draw.
func (s DrawStatus) Terminal() bool {
	return s == DrawVerified || s == DrawFailed || s == DrawVoid
}

// RaffleDraw is one attempt to resolve a raffle winner, including the phone
// and verification-question outcomes. Append-only history per event.
type RaffleDraw struct {
	ID                 string     `json:"id"`
	RaffleID           string     `json:"raffleId"`
	EntryID            string     `json:"entryId"`
	QuestionID         string     `json:"questionId"`
	PhoneAnsweredAt    *time.Time `json:"phoneAnsweredAt,omitempty"`
	QuestionAnsweredAt *time.Time `json:"questionAnsweredAt,omitempty"`
	QuestionCorrect    bool       `json:"questionCorrect"`
	Status             DrawStatus `json:"status"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// WinnerQuestion is a verification-question pool entry. UsageCount and
// LastUsedAt drive the fairness rotation.
type WinnerQuestion struct {
	ID         string     `json:"id"`
	Text       string     `json:"text"`
	UsageCount int        `json:"usageCount"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}

// DrawUpdate is pushed to live-event subscribers as a draw progresses.
type DrawUpdate struct {
	RaffleID    string       `json:"raffleId"`
	DrawID      string       `json:"drawId,omitempty"`
	EntryNumber int          `json:"entryNumber,omitempty"`
	Status      DrawStatus   `json:"status,omitempty"`
	EventStatus RaffleStatus `json:"eventStatus,omitempty"`
	At          time.Time    `json:"at"`
}
