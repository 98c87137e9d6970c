package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/paydeskhq/paydesk/internal/server/websocket"
	"github.com/paydeskhq/paydesk/pkg/config"
)

type FeedHandler struct {
	hub      *websocket.FeedHub
	upgrader gws.Upgrader
	logger   zerolog.Logger
}

func NewFeedHandler(hub *websocket.FeedHub, cfg config.WebSocketConfig, logger zerolog.Logger) *FeedHandler {
	return &FeedHandler{
		hub: hub,
		upgrader: gws.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return !cfg.CheckOrigin
			},
		},
		logger: logger,
	}
}

// HandleConnection upgrades the admin dashboard connection and keeps it
// registered until the peer goes away. The read loop only exists to detect
// disconnects; the feed is write-only.
func (h *FeedHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Err(err).Msg("Failed to upgrade feed connection")
		return
	}

	h.hub.Register <- conn

	go func() {
		defer func() {
			h.hub.Unregister <- conn
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
