package websocket

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/paydeskhq/paydesk/internal/domain"
)

// FeedHub fans request status changes out to connected admin dashboards so
// the pending queue stays live without polling.
type FeedHub struct {
	clients    map[*websocket.Conn]bool
	Broadcast  chan FeedEvent
	Register   chan *websocket.Conn
	Unregister chan *websocket.Conn
	logger     zerolog.Logger
}

type FeedEvent struct {
	EventID  string                  `json:"event_id"`
	Type     string                  `json:"type"`
	At       time.Time               `json:"at"`
	Withdraw *domain.WithdrawRequest `json:"withdraw,omitempty"`
	Verify   *domain.VerifyRequest   `json:"verify,omitempty"`
}

func NewFeedHub(logger zerolog.Logger) *FeedHub {
	return &FeedHub{
		clients:    make(map[*websocket.Conn]bool),
		Broadcast:  make(chan FeedEvent, 100),
		Register:   make(chan *websocket.Conn, 100),
		Unregister: make(chan *websocket.Conn, 100),
		logger:     logger,
	}
}

func (h *FeedHub) Run() {
	for {
		select {
		case conn := <-h.Register:
			h.clients[conn] = true
			h.logger.Info().
				Int("connection_count", len(h.clients)).
				Msg("Moderation feed client registered")

		case conn := <-h.Unregister:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
				h.logger.Info().
					Int("connection_count", len(h.clients)).
					Msg("Moderation feed client unregistered")
			}

		case event := <-h.Broadcast:
			for conn := range h.clients {
				if err := conn.WriteJSON(event); err != nil {
					h.logger.Err(err).
						Str("event_id", event.EventID).
						Str("type", event.Type).
						Msg("Failed to send feed event")
					conn.Close()
					delete(h.clients, conn)
				}
			}
		}
	}
}

func (h *FeedHub) BroadcastWithdraw(req domain.WithdrawRequest) {
	h.Broadcast <- FeedEvent{
		EventID:  uuid.NewString(),
		Type:     "withdraw",
		At:       time.Now().UTC(),
		Withdraw: &req,
	}
}

func (h *FeedHub) BroadcastVerify(req domain.VerifyRequest) {
	h.Broadcast <- FeedEvent{
		EventID: uuid.NewString(),
		Type:    "verify",
		At:      time.Now().UTC(),
		Verify:  &req,
	}
}
