package http

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"quiz-raffle-service/internal/app"
	"quiz-raffle-service/internal/domain"
)

// DrawFeedHandler streams draw updates for a raffle over a websocket, used by
// live-event displays while the draw and verification run.
type DrawFeedHandler struct {
	raffles  *app.RaffleService
	upgrader websocket.Upgrader
}

func NewDrawFeedHandler(raffles *app.RaffleService) *DrawFeedHandler {
	return &DrawFeedHandler{
		raffles: raffles,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type feedMessage struct {
	Type    string            `json:"type"`
	Payload domain.DrawUpdate `json:"payload"`
}

// ServeFeed upgrades the request and relays draw updates until the client
// disconnects.
func (h *DrawFeedHandler) ServeFeed(w http.ResponseWriter, r *http.Request) {
	raffleID := r.PathValue("id")
	if raffleID == "" {
		http.Error(w, "missing raffle id", http.StatusBadRequest)
		return
	}
	if _, err := h.raffles.Event(r.Context(), raffleID); err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.raffles.Subscribe(raffleID)
	defer cancel()

	// Reader goroutine exists only to notice the client going away.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(feedMessage{Type: "draw", Payload: update}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-disconnected:
			return
		case <-r.Context().Done():
			return
		}
	}
}
