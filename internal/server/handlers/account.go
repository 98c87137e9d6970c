package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/paydeskhq/paydesk/internal/application/entitlement"
	"github.com/paydeskhq/paydesk/internal/domain"
	"github.com/paydeskhq/paydesk/internal/repositories/ledgerrepo"
	"github.com/paydeskhq/paydesk/pkg/config"
	"github.com/paydeskhq/paydesk/pkg/currency"
)

type AccountHandler struct {
	ledger ledgerrepo.ILedgerRepository
	payout config.PayoutConfig
	logger zerolog.Logger
}

func NewAccountHandler(ledger ledgerrepo.ILedgerRepository, payout config.PayoutConfig, logger zerolog.Logger) *AccountHandler {
	return &AccountHandler{
		ledger: ledger,
		payout: payout,
		logger: logger,
	}
}

type registerRequest struct {
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	ReferredBy *int64 `json:"referred_by,omitempty"`
}

func (h *AccountHandler) Register(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return
	}
	if req.ReferredBy != nil && *req.ReferredBy == userID {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "cannot refer yourself",
		})
		return
	}

	created, err := h.ledger.RegisterAccount(c.Request.Context(), userID, req.Username, req.FirstName, req.ReferredBy)
	if err != nil {
		h.logger.Err(err).Int64("user_id", userID).Msg("Registration failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to register account",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"created": created,
	})
}

func (h *AccountHandler) Profile(c *gin.Context) {
	userID := c.GetInt64("user_id")

	acct, err := h.ledger.GetAccount(c.Request.Context(), userID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": "Account not found, please register first",
		})
		return
	}
	if err != nil {
		h.logger.Err(err).Int64("user_id", userID).Msg("Failed to load profile")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to load profile",
		})
		return
	}

	status := entitlement.StatusOf(acct, time.Now())
	c.JSON(http.StatusOK, gin.H{
		"user_id":           acct.UserID,
		"username":          acct.Username,
		"first_name":        acct.FirstName,
		"balance":           currency.Format(acct.BalanceCents),
		"wallet_address":    acct.WalletAddress,
		"total_withdraw":    currency.Format(acct.TotalWithdrawCents),
		"entitlement":       status.Level,
		"remaining_days":    status.RemainingDays,
		"withdraw_unlocked": entitlement.WithdrawUnlocked(acct, time.Now()),
	})
}

func (h *AccountHandler) Refer(c *gin.Context) {
	userID := c.GetInt64("user_id")

	count, err := h.ledger.CountReferrals(c.Request.Context(), userID)
	if err != nil {
		h.logger.Err(err).Int64("user_id", userID).Msg("Failed to load referral stats")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to load referral stats",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":        userID,
		"referral_count": count,
		"joining_bonus":  currency.Format(h.payout.ReferralBonusCents),
	})
}
