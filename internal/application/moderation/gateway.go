package moderation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/paydeskhq/paydesk/internal/domain"
	"github.com/paydeskhq/paydesk/internal/domain/interfaces"
	"github.com/paydeskhq/paydesk/internal/metrics"
	"github.com/paydeskhq/paydesk/internal/repositories/ledgerrepo"
	"github.com/paydeskhq/paydesk/internal/repositories/requestrepo"
	"github.com/paydeskhq/paydesk/pkg/config"
	"github.com/paydeskhq/paydesk/pkg/currency"
)

// TxRunner scopes a unit of work to one storage transaction, committing on
// success and rolling back on any failure.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// FeedBroadcaster pushes terminal request states to the admin's live view.
type FeedBroadcaster interface {
	BroadcastWithdraw(req domain.WithdrawRequest)
	BroadcastVerify(req domain.VerifyRequest)
}

// Outcome reports what a decision did. When Applied is false the request was
// already terminal and Status carries its current state so the admin view can
// re-render idempotently.
type Outcome struct {
	Applied     bool   `json:"applied"`
	Status      string `json:"status"`
	UserID      int64  `json:"user_id,omitempty"`
	AmountCents int64  `json:"amount_cents,omitempty"`
}

// Gateway is the single administrator-facing decision point. The CAS status
// transition inside one transaction is what makes concurrent decisions on the
// same request apply exactly once.
type Gateway struct {
	runner   TxRunner
	ledger   ledgerrepo.ILedgerRepository
	requests requestrepo.IRequestRepository
	notifier interfaces.Notifier
	feed     FeedBroadcaster
	payout   config.PayoutConfig
	adminID  int64
	logger   zerolog.Logger
	now      func() time.Time
}

func New(
	runner TxRunner,
	ledger ledgerrepo.ILedgerRepository,
	requests requestrepo.IRequestRepository,
	notifier interfaces.Notifier,
	feed FeedBroadcaster,
	payout config.PayoutConfig,
	admin config.AdminConfig,
	logger zerolog.Logger,
) *Gateway {
	return &Gateway{
		runner:   runner,
		ledger:   ledger,
		requests: requests,
		notifier: notifier,
		feed:     feed,
		payout:   payout,
		adminID:  admin.UserID,
		logger:   logger,
		now:      time.Now,
	}
}

func (g *Gateway) Decide(ctx context.Context, callerID int64, kind domain.RequestKind, action domain.DecisionAction, requestID int64) (Outcome, error) {
	if callerID != g.adminID {
		g.logger.Warn().
			Int64("caller_id", callerID).
			Int64("request_id", requestID).
			Str("kind", string(kind)).
			Msg("Unauthorized moderation attempt")
		return Outcome{}, domain.ErrUnauthorized
	}
	if action != domain.DecisionAccept && action != domain.DecisionReject {
		return Outcome{}, fmt.Errorf("unknown action %q", action)
	}

	switch kind {
	case domain.RequestKindWithdraw:
		return g.decideWithdraw(ctx, action, requestID)
	case domain.RequestKindVerify:
		return g.decideVerify(ctx, action, requestID)
	default:
		return Outcome{}, fmt.Errorf("unknown request kind %q", kind)
	}
}

func (g *Gateway) decideWithdraw(ctx context.Context, action domain.DecisionAction, requestID int64) (Outcome, error) {
	status := domain.WithdrawStatusCompleted
	if action == domain.DecisionReject {
		status = domain.WithdrawStatusRejected
	}

	var change domain.StatusChange
	err := g.runner.RunInTx(ctx, func(tx *sql.Tx) error {
		var err error
		change, err = g.requests.SetWithdrawStatusTx(ctx, tx, requestID, status)
		if err != nil || !change.Applied {
			return err
		}
		switch status {
		case domain.WithdrawStatusRejected:
			// Refund exactly what was debited at creation time.
			return g.ledger.AdjustBalanceTx(ctx, tx, change.UserID, change.AmountCents)
		case domain.WithdrawStatusCompleted:
			return g.ledger.AddTotalWithdrawTx(ctx, tx, change.UserID, change.AmountCents)
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	if !change.Applied {
		metrics.DecisionConflicts.WithLabelValues(string(domain.RequestKindWithdraw)).Inc()
		return g.withdrawConflict(ctx, requestID)
	}

	metrics.DecisionsApplied.WithLabelValues(string(domain.RequestKindWithdraw), string(action)).Inc()
	g.logger.Info().
		Int64("request_id", requestID).
		Int64("user_id", change.UserID).
		Int64("amount_cents", change.AmountCents).
		Str("status", string(status)).
		Msg("Withdraw request decided")

	var userText string
	if status == domain.WithdrawStatusCompleted {
		userText = fmt.Sprintf(
			"Your withdrawal request #%d has been completed. You received %s.",
			requestID, currency.Format(change.AmountCents),
		)
	} else {
		userText = fmt.Sprintf(
			"Your withdrawal request #%d was rejected. %s has been returned to your balance.",
			requestID, currency.Format(change.AmountCents),
		)
	}
	g.notifyUser(ctx, change.UserID, userText, requestID)

	if req, err := g.requests.GetWithdrawRequest(ctx, requestID); err == nil {
		g.feed.BroadcastWithdraw(*req)
	}

	return Outcome{
		Applied:     true,
		Status:      string(status),
		UserID:      change.UserID,
		AmountCents: change.AmountCents,
	}, nil
}

func (g *Gateway) decideVerify(ctx context.Context, action domain.DecisionAction, requestID int64) (Outcome, error) {
	status := domain.VerifyStatusAccept
	if action == domain.DecisionReject {
		status = domain.VerifyStatusReject
	}

	var change domain.StatusChange
	err := g.runner.RunInTx(ctx, func(tx *sql.Tx) error {
		var err error
		change, err = g.requests.SetVerifyStatusTx(ctx, tx, requestID, status)
		if err != nil || !change.Applied {
			return err
		}
		if status == domain.VerifyStatusAccept {
			// Overwrite the window rather than stacking onto what was left.
			expiry := g.now().Add(g.payout.VerifyPeriod())
			return g.ledger.SetVerifyExpiryTx(ctx, tx, change.UserID, expiry)
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	if !change.Applied {
		metrics.DecisionConflicts.WithLabelValues(string(domain.RequestKindVerify)).Inc()
		return g.verifyConflict(ctx, requestID)
	}

	metrics.DecisionsApplied.WithLabelValues(string(domain.RequestKindVerify), string(action)).Inc()
	g.logger.Info().
		Int64("request_id", requestID).
		Int64("user_id", change.UserID).
		Str("status", string(status)).
		Msg("Verify request decided")

	var userText string
	if status == domain.VerifyStatusAccept {
		userText = fmt.Sprintf(
			"Congratulations! Your verify request was accepted. Your account is verified for %d days and withdrawals are unlocked.",
			g.payout.VerifyDays,
		)
	} else {
		userText = "Sorry, your verify request was rejected: the transaction ID did not check out. Please try again with the correct one."
	}
	g.notifyUser(ctx, change.UserID, userText, requestID)

	if req, err := g.requests.GetVerifyRequest(ctx, requestID); err == nil {
		g.feed.BroadcastVerify(*req)
	}

	return Outcome{Applied: true, Status: string(status), UserID: change.UserID}, nil
}

// withdrawConflict reports the current terminal status after a lost CAS race.
func (g *Gateway) withdrawConflict(ctx context.Context, requestID int64) (Outcome, error) {
	req, err := g.requests.GetWithdrawRequest(ctx, requestID)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Applied: false, Status: string(req.Status)}, nil
}

func (g *Gateway) verifyConflict(ctx context.Context, requestID int64) (Outcome, error) {
	req, err := g.requests.GetVerifyRequest(ctx, requestID)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Applied: false, Status: string(req.Status)}, nil
}

func (g *Gateway) notifyUser(ctx context.Context, userID int64, text string, requestID int64) {
	if err := g.notifier.NotifyUser(ctx, userID, text); err != nil {
		metrics.NotifyFailures.Inc()
		g.logger.Err(err).
			Int64("user_id", userID).
			Int64("request_id", requestID).
			Msg("Failed to notify user of decision")
	}
}
