package app

import (
	"time"

	"quiz-raffle-service/internal/domain"
)

// Validation is the outcome of a guard check. When OK is false, Err names the
// rejection reason; callers surface it as a client error, never a server fault.
type Validation struct {
	OK  bool
	Err error
}

func valid() Validation            { return Validation{OK: true} }
func invalid(err error) Validation { return Validation{Err: err} }

// ValidateStart guards quiz-session creation against the quiz-type configuration.
func ValidateStart(qt domain.QuizType) Validation {
	if !qt.Enabled {
		return invalid(domain.ErrQuizTypeDisabled)
	}
	if qt.QuestionCount <= 0 {
		return invalid(domain.ErrConfiguration)
	}
	return valid()
}

// ValidateAnswer guards an answer submission against the loaded session:
// session active and unexpired, question at cursor, answer belongs to the
// question, and time taken within the per-question limit plus grace.
func ValidateAnswer(s *domain.QuizSession, questionID, answerID string, timeTaken, limit, grace time.Duration, now time.Time) Validation {
	if s.Status != domain.SessionActive || s.ExpiredAt(now) {
		return invalid(domain.ErrSessionNotFound)
	}
	current := s.CurrentQuestion()
	if current == nil || current.ID != questionID {
		return invalid(domain.ErrQuestionMismatch)
	}
	if current.Answer(answerID) == nil {
		return invalid(domain.ErrAnswerNotFound)
	}
	if timeTaken < 0 || (limit > 0 && timeTaken > limit+grace) {
		return invalid(domain.ErrInvalidTimeTaken)
	}
	return valid()
}

// ValidateCompletion guards the terminal transition: the session must be
// active with every question answered.
func ValidateCompletion(s *domain.QuizSession) Validation {
	if s.Status != domain.SessionActive {
		return invalid(domain.ErrAlreadyCompleted)
	}
	if s.Cursor < len(s.Questions) {
		return invalid(domain.ErrSessionNotFinished)
	}
	return valid()
}
