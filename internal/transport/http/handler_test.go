package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-raffle-service/internal/app"
	"quiz-raffle-service/internal/domain"
	"quiz-raffle-service/internal/infra/memory"
)

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID: "q1", Difficulty: "easy", Text: "What is 2 + 2?",
			Answers: []domain.Answer{
				{ID: "q1a1", Text: "3"},
				{ID: "q1a2", Text: "4", Correct: true},
			},
		},
		{
			ID: "q2", Difficulty: "easy", Text: "Largest ocean?",
			Answers: []domain.Answer{
				{ID: "q2a1", Text: "Pacific", Correct: true},
				{ID: "q2a2", Text: "Atlantic"},
			},
		},
	}
}

func sampleQuizType() domain.QuizType {
	return domain.QuizType{
		ID:              "qt1",
		Name:            "Easy round",
		Difficulty:      "easy",
		Enabled:         true,
		QuestionCount:   2,
		TimeLimit:       20 * time.Second,
		MaxEntries:      3,
		AnswersPerEntry: 1,
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *app.RaffleService) {
	t.Helper()
	quiz := app.NewQuizService(
		memory.NewSessionStore(),
		memory.NewQuizTypeRepository([]domain.QuizType{sampleQuizType()}),
		memory.NewQuestionRepository(memory.NewStaticQuestionLoader(sampleQuestions()), time.Minute),
		memory.NewAttemptLog(),
		app.DefaultQuizConfig(),
	)
	raffles := app.NewRaffleService(
		memory.NewRaffleStore(),
		memory.NewWinnerQuestionRepository([]domain.WinnerQuestion{{ID: "wq1", Text: "Capital of France?"}}),
		app.DefaultRaffleConfig(),
	)

	mux := http.NewServeMux()
	NewAPI(quiz, raffles).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, raffles
}

func postJSON(t *testing.T, url string, body any, out any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response from %s: %v", url, err)
		}
	}
	return resp
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response from %s: %v", url, err)
		}
	}
	return resp
}

func TestQuizFlowOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)

	var started struct {
		Token          string `json:"token"`
		TotalQuestions int    `json:"totalQuestions"`
	}
	resp := postJSON(t, server.URL+"/v1/quiz/sessions", map[string]string{
		"userId": "u1", "quizTypeId": "qt1",
	}, &started)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d", resp.StatusCode)
	}
	if started.Token == "" || started.TotalQuestions != 2 {
		t.Fatalf("unexpected start response %+v", started)
	}

	base := server.URL + "/v1/quiz/sessions/" + started.Token
	correctByQuestion := map[string]string{"q1": "q1a2", "q2": "q2a1"}

	for i := 0; i < 2; i++ {
		var view struct {
			ID      string `json:"id"`
			Number  int    `json:"number"`
			Options []struct {
				ID string `json:"id"`
			} `json:"options"`
		}
		resp = getJSON(t, base+"/question", &view)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("question %d: expected 200, got %d", i+1, resp.StatusCode)
		}
		if view.Number != i+1 || len(view.Options) != 2 {
			t.Fatalf("unexpected question view %+v", view)
		}

		var result struct {
			Correct   bool `json:"correct"`
			Completed bool `json:"completed"`
		}
		resp = postJSON(t, base+"/answers", map[string]any{
			"questionId":  view.ID,
			"answerId":    correctByQuestion[view.ID],
			"timeTakenMs": 4000,
		}, &result)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("answer %d: expected 200, got %d", i+1, resp.StatusCode)
		}
		if !result.Correct {
			t.Fatalf("answer %d judged wrong", i+1)
		}
	}

	// Cursor past the end yields a completion hint, not a question.
	var doneHint struct {
		Completed bool `json:"completed"`
	}
	getJSON(t, base+"/question", &doneHint)
	if !doneHint.Completed {
		t.Fatalf("expected completion hint after last question")
	}

	var results struct {
		Correct       int `json:"correct"`
		Total         int `json:"total"`
		EntriesEarned int `json:"entriesEarned"`
	}
	resp = postJSON(t, base+"/complete", map[string]string{}, &results)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d", resp.StatusCode)
	}
	if results.Correct != 2 || results.EntriesEarned != 2 {
		t.Fatalf("unexpected results %+v", results)
	}

	// Completing again is a conflict.
	resp = postJSON(t, base+"/complete", map[string]string{}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double complete: expected 409, got %d", resp.StatusCode)
	}
}

func TestQuizErrorStatuses(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/v1/quiz/sessions", map[string]string{
		"userId": "u1", "quizTypeId": "missing",
	}, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown quiz type: expected 404, got %d", resp.StatusCode)
	}

	resp = postJSON(t, server.URL+"/v1/quiz/sessions", map[string]string{"userId": "u1"}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing field: expected 400, got %d", resp.StatusCode)
	}

	resp = getJSON(t, server.URL+"/v1/quiz/sessions/unknown/question", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown token: expected 404, got %d", resp.StatusCode)
	}
}

func TestRaffleFlowOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)

	var created struct {
		ID string `json:"id"`
	}
	resp := postJSON(t, server.URL+"/v1/raffles", map[string]any{
		"title":      "Friday night",
		"prize":      "A bicycle",
		"live":       true,
		"eventDate":  time.Now().Add(24 * time.Hour),
		"entryLimit": 10,
	}, &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create raffle: expected 201, got %d", resp.StatusCode)
	}

	base := server.URL + "/v1/raffles/" + created.ID

	var added struct {
		Accepted int `json:"accepted"`
	}
	entries := []map[string]string{
		{"userId": "u1", "phone": "+15550001", "sourceType": "quiz", "sourceId": "a1"},
		{"userId": "u2", "phone": "+15550002", "sourceType": "quiz", "sourceId": "a2"},
	}
	resp = postJSON(t, base+"/entries", map[string]any{"entries": entries}, &added)
	if resp.StatusCode != http.StatusOK || added.Accepted != 2 {
		t.Fatalf("add entries: status %d accepted %d", resp.StatusCode, added.Accepted)
	}

	resp = postJSON(t, base+"/start", map[string]string{}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start draw: expected 200, got %d", resp.StatusCode)
	}

	// Entries are closed once the draw starts.
	resp = postJSON(t, base+"/entries", map[string]any{"entries": entries[:1]}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("entries after start: expected 409, got %d", resp.StatusCode)
	}

	var drawn struct {
		Draw struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"draw"`
		Entry struct {
			ID     string `json:"id"`
			Number int    `json:"number"`
		} `json:"entry"`
		Question struct {
			ID string `json:"id"`
		} `json:"question"`
	}
	resp = postJSON(t, base+"/draws", map[string]string{}, &drawn)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("draw winner: expected 201, got %d", resp.StatusCode)
	}
	if drawn.Draw.Status != "pending" || drawn.Question.ID == "" {
		t.Fatalf("unexpected draw %+v", drawn)
	}

	drawBase := server.URL + "/v1/draws/" + drawn.Draw.ID
	resp = postJSON(t, drawBase+"/phone", map[string]bool{"answered": true}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("phone answer: expected 200, got %d", resp.StatusCode)
	}
	resp = postJSON(t, drawBase+"/answer", map[string]any{"correct": true}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("question answer: expected 200, got %d", resp.StatusCode)
	}

	// Draw is resolved; another outcome is a conflict.
	resp = postJSON(t, drawBase+"/answer", map[string]any{"correct": false}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("answer after resolution: expected 409, got %d", resp.StatusCode)
	}

	resp = postJSON(t, base+"/complete", map[string]string{"winnerEntryId": drawn.Entry.ID}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete raffle: expected 200, got %d", resp.StatusCode)
	}

	var event struct {
		Status        string `json:"status"`
		WinnerEntryID string `json:"winnerEntryId"`
	}
	getJSON(t, base, &event)
	if event.Status != "completed" || event.WinnerEntryID != drawn.Entry.ID {
		t.Fatalf("unexpected completed event %+v", event)
	}
}

func TestRaffleErrorStatuses(t *testing.T) {
	server, _ := newTestServer(t)

	resp := getJSON(t, server.URL+"/v1/raffles/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown raffle: expected 404, got %d", resp.StatusCode)
	}

	var created struct {
		ID string `json:"id"`
	}
	postJSON(t, server.URL+"/v1/raffles", map[string]any{"title": "Empty"}, &created)
	postJSON(t, server.URL+"/v1/raffles/"+created.ID+"/start", map[string]string{}, nil)

	// Active raffle with no entries.
	resp = postJSON(t, server.URL+"/v1/raffles/"+created.ID+"/draws", map[string]string{}, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("draw without entries: expected 422, got %d", resp.StatusCode)
	}

	resp = postJSON(t, server.URL+"/v1/draws/missing/phone", map[string]bool{"answered": true}, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown draw: expected 404, got %d", resp.StatusCode)
	}

	var body bytes.Buffer
	fmt.Fprint(&body, "{not json")
	raw, err := http.Post(server.URL+"/v1/raffles", "application/json", &body)
	if err != nil {
		t.Fatalf("post malformed body: %v", err)
	}
	defer raw.Body.Close()
	if raw.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed body: expected 400, got %d", raw.StatusCode)
	}
}
