package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/paydeskhq/paydesk/internal/application/moderation"
	"github.com/paydeskhq/paydesk/internal/domain"
	"github.com/paydeskhq/paydesk/internal/repositories/requestrepo"
)

type AdminHandler struct {
	gateway  *moderation.Gateway
	requests requestrepo.IRequestRepository
	logger   zerolog.Logger
}

func NewAdminHandler(gateway *moderation.Gateway, requests requestrepo.IRequestRepository, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		gateway:  gateway,
		requests: requests,
		logger:   logger,
	}
}

func (h *AdminHandler) ListPendingWithdrawals(c *gin.Context) {
	requests, err := h.requests.ListPendingWithdrawals(c.Request.Context())
	if err != nil {
		h.logger.Err(err).Msg("Failed to list pending withdrawals")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to list pending withdrawals",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"requests": requests,
		"total":    len(requests),
	})
}

func (h *AdminHandler) ListPendingVerifications(c *gin.Context) {
	requests, err := h.requests.ListPendingVerifications(c.Request.Context())
	if err != nil {
		h.logger.Err(err).Msg("Failed to list pending verifications")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to list pending verifications",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"requests": requests,
		"total":    len(requests),
	})
}

type decideRequest struct {
	Action string `json:"action" binding:"required"`
}

// Decide finalizes one pending request. A lost race is answered 200 with
// applied=false and the request's current status, so a double-click just
// re-renders the terminal state.
func (h *AdminHandler) Decide(c *gin.Context) {
	callerID := c.GetInt64("user_id")

	kind := domain.RequestKind(c.Param("kind"))
	if kind != domain.RequestKindWithdraw && kind != domain.RequestKindVerify {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "kind must be withdraw or verify",
		})
		return
	}

	requestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || requestID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "invalid request id",
		})
		return
	}

	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return
	}
	action := domain.DecisionAction(req.Action)
	if action != domain.DecisionAccept && action != domain.DecisionReject {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "action must be accept or reject",
		})
		return
	}

	outcome, err := h.gateway.Decide(c.Request.Context(), callerID, kind, action, requestID)
	if errors.Is(err, domain.ErrUnauthorized) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	if errors.Is(err, domain.ErrRequestNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": "request not found",
		})
		return
	}
	if err != nil {
		h.logger.Err(err).
			Int64("request_id", requestID).
			Str("kind", string(kind)).
			Msg("Decision failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to process decision",
		})
		return
	}

	if !outcome.Applied {
		c.JSON(http.StatusOK, gin.H{
			"applied": false,
			"status":  outcome.Status,
			"message": domain.ErrAlreadyProcessed.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, outcome)
}
