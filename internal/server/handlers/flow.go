package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/paydeskhq/paydesk/internal/application/dialogue"
	"github.com/paydeskhq/paydesk/internal/domain"
)

type FlowHandler struct {
	engine *dialogue.Engine
	logger zerolog.Logger
}

func NewFlowHandler(engine *dialogue.Engine, logger zerolog.Logger) *FlowHandler {
	return &FlowHandler{
		engine: engine,
		logger: logger,
	}
}

// Advance feeds one user interaction into the dialogue engine. Validation
// problems come back as normal replies; only storage failures produce a 500.
func (h *FlowHandler) Advance(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var input domain.Input
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return
	}
	if input.Text == "" && input.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "either text or token is required",
		})
		return
	}

	reply, err := h.engine.Advance(c.Request.Context(), userID, input)
	if err != nil {
		h.logger.Err(err).Int64("user_id", userID).Msg("Dialogue advance failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Something went wrong, please try again later",
		})
		return
	}

	c.JSON(http.StatusOK, reply)
}
