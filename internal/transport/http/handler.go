package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"quiz-raffle-service/internal/app"
	"quiz-raffle-service/internal/domain"
)

// API wires the quiz and raffle use cases into a JSON HTTP surface.
type API struct {
	quiz    *app.QuizService
	raffles *app.RaffleService
}

func NewAPI(quiz *app.QuizService, raffles *app.RaffleService) *API {
	return &API{quiz: quiz, raffles: raffles}
}

// Register mounts every route on the mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/quiz/sessions", a.startQuiz)
	mux.HandleFunc("GET /v1/quiz/sessions/{token}/question", a.nextQuestion)
	mux.HandleFunc("POST /v1/quiz/sessions/{token}/answers", a.submitAnswer)
	mux.HandleFunc("POST /v1/quiz/sessions/{token}/complete", a.completeQuiz)

	mux.HandleFunc("POST /v1/raffles", a.createRaffle)
	mux.HandleFunc("GET /v1/raffles/{id}", a.getRaffle)
	mux.HandleFunc("POST /v1/raffles/{id}/entries", a.addEntries)
	mux.HandleFunc("POST /v1/raffles/{id}/start", a.startDraw)
	mux.HandleFunc("POST /v1/raffles/{id}/draws", a.drawWinner)
	mux.HandleFunc("POST /v1/raffles/{id}/complete", a.completeRaffle)
	mux.HandleFunc("POST /v1/draws/{id}/phone", a.recordPhone)
	mux.HandleFunc("POST /v1/draws/{id}/answer", a.recordQuestion)
}

type startQuizRequest struct {
	UserID     string `json:"userId"`
	QuizTypeID string `json:"quizTypeId"`
}

func (a *API) startQuiz(w http.ResponseWriter, r *http.Request) {
	var req startQuizRequest
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" || req.QuizTypeID == "" {
		writeErrorMessage(w, http.StatusBadRequest, "missing userId or quizTypeId")
		return
	}
	started, err := a.quiz.Start(r.Context(), req.UserID, req.QuizTypeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, started)
}

func (a *API) nextQuestion(w http.ResponseWriter, r *http.Request) {
	view, err := a.quiz.NextQuestion(r.Context(), r.PathValue("token"))
	if err != nil {
		writeError(w, err)
		return
	}
	if view == nil {
		// All questions answered; the client should call complete.
		writeJSON(w, http.StatusOK, map[string]bool{"completed": true})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type submitAnswerRequest struct {
	QuestionID  string `json:"questionId"`
	AnswerID    string `json:"answerId"`
	TimeTakenMS int64  `json:"timeTakenMs"`
}

func (a *API) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitAnswerRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := a.quiz.SubmitAnswer(r.Context(), r.PathValue("token"), req.QuestionID, req.AnswerID,
		time.Duration(req.TimeTakenMS)*time.Millisecond)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) completeQuiz(w http.ResponseWriter, r *http.Request) {
	results, err := a.quiz.Complete(r.Context(), r.PathValue("token"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

type createRaffleRequest struct {
	Title      string    `json:"title"`
	Prize      string    `json:"prize"`
	Live       bool      `json:"live"`
	EventDate  time.Time `json:"eventDate"`
	EntryLimit int       `json:"entryLimit"`
}

func (a *API) createRaffle(w http.ResponseWriter, r *http.Request) {
	var req createRaffleRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Title == "" {
		writeErrorMessage(w, http.StatusBadRequest, "missing title")
		return
	}
	id, err := a.raffles.CreateEvent(r.Context(), req.Title, req.Prize, req.Live, req.EventDate, req.EntryLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (a *API) getRaffle(w http.ResponseWriter, r *http.Request) {
	event, err := a.raffles.Event(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

type addEntriesRequest struct {
	Entries []app.EntryRequest `json:"entries"`
}

func (a *API) addEntries(w http.ResponseWriter, r *http.Request) {
	var req addEntriesRequest
	if !decode(w, r, &req) {
		return
	}
	accepted, err := a.raffles.AddEntries(r.Context(), r.PathValue("id"), req.Entries)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"accepted": accepted})
}

func (a *API) startDraw(w http.ResponseWriter, r *http.Request) {
	if err := a.raffles.StartDraw(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
}

func (a *API) drawWinner(w http.ResponseWriter, r *http.Request) {
	result, err := a.raffles.DrawWinner(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type completeRaffleRequest struct {
	WinnerEntryID string `json:"winnerEntryId"`
}

func (a *API) completeRaffle(w http.ResponseWriter, r *http.Request) {
	var req completeRaffleRequest
	if !decode(w, r, &req) {
		return
	}
	if err := a.raffles.CompleteEvent(r.Context(), r.PathValue("id"), req.WinnerEntryID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

type phoneAnswerRequest struct {
	Answered bool `json:"answered"`
}

func (a *API) recordPhone(w http.ResponseWriter, r *http.Request) {
	var req phoneAnswerRequest
	if !decode(w, r, &req) {
		return
	}
	if err := a.raffles.RecordPhoneAnswer(r.Context(), r.PathValue("id"), req.Answered); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type questionAnswerRequest struct {
	AnswerTime time.Time `json:"answerTime"`
	Correct    bool      `json:"correct"`
}

func (a *API) recordQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionAnswerRequest
	if !decode(w, r, &req) {
		return
	}
	answerTime := req.AnswerTime
	if answerTime.IsZero() {
		answerTime = time.Now()
	}
	if err := a.raffles.RecordQuestionAnswer(r.Context(), r.PathValue("id"), answerTime, req.Correct); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// writeError maps domain sentinels onto HTTP statuses. Anything unmapped is
// an integrity fault: logged with context, surfaced as a bare 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrQuizTypeNotFound),
		errors.Is(err, domain.ErrRaffleNotFound),
		errors.Is(err, domain.ErrDrawNotFound):
		writeErrorMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrQuestionMismatch),
		errors.Is(err, domain.ErrAnswerNotFound),
		errors.Is(err, domain.ErrInvalidTimeTaken),
		errors.Is(err, domain.ErrSessionNotFinished),
		errors.Is(err, domain.ErrQuizTypeDisabled),
		errors.Is(err, domain.ErrConfiguration):
		writeErrorMessage(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrAlreadyCompleted),
		errors.Is(err, domain.ErrRaffleStateConflict),
		errors.Is(err, domain.ErrDrawResolved),
		errors.Is(err, domain.ErrVersionConflict):
		writeErrorMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInsufficientQuestions),
		errors.Is(err, domain.ErrRaffleFull),
		errors.Is(err, domain.ErrNoEntries),
		errors.Is(err, domain.ErrNoQuestionsAvailable):
		writeErrorMessage(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}
