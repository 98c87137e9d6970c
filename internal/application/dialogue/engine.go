package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/paydeskhq/paydesk/internal/application/entitlement"
	"github.com/paydeskhq/paydesk/internal/domain"
	"github.com/paydeskhq/paydesk/internal/domain/interfaces"
	"github.com/paydeskhq/paydesk/internal/metrics"
	"github.com/paydeskhq/paydesk/internal/repositories/ledgerrepo"
	"github.com/paydeskhq/paydesk/internal/repositories/requestrepo"
	"github.com/paydeskhq/paydesk/pkg/config"
	"github.com/paydeskhq/paydesk/pkg/currency"
)

// Command and button tokens understood outside of any step.
const (
	TokenCancel      = "cancel"
	TokenWithdraw    = "withdraw"
	TokenVerify      = "verify"
	TokenVerifyStart = "verify_start"
	TokenProfile     = "profile"
	TokenSetWallet   = "set_wallet"

	tokenWalletConfirm = "wallet_confirm"
	tokenWalletNew     = "wallet_new"
	methodTokenPrefix  = "method_"
)

const minWalletLength = 5

// stepHandler advances one step of an active flow. Returning an error means
// the unit of work failed against storage; the session is left as it was so
// the user can retry.
type stepHandler func(ctx context.Context, userID int64, sess *session, in domain.Input) (domain.Reply, error)

// Engine drives the per-user multi-step flows. Each step consumes exactly one
// input and either re-prompts in place, advances, completes, or cancels.
type Engine struct {
	ledger   ledgerrepo.ILedgerRepository
	requests requestrepo.IRequestRepository
	notifier interfaces.Notifier
	payout   config.PayoutConfig
	logger   zerolog.Logger
	store    *sessionStore
	steps    map[domain.Step]stepHandler
	now      func() time.Time
}

func New(
	ledger ledgerrepo.ILedgerRepository,
	requests requestrepo.IRequestRepository,
	notifier interfaces.Notifier,
	payout config.PayoutConfig,
	logger zerolog.Logger,
) *Engine {
	e := &Engine{
		ledger:   ledger,
		requests: requests,
		notifier: notifier,
		payout:   payout,
		logger:   logger,
		store:    newSessionStore(),
		now:      time.Now,
	}
	// The transition table: step x input -> handler. Steps absent from the
	// table cannot be reached.
	e.steps = map[domain.Step]stepHandler{
		domain.StepAmountInput:   e.handleAmountInput,
		domain.StepWalletConfirm: e.handleWalletConfirm,
		domain.StepWalletInput:   e.handleWalletInput,
		domain.StepMethodSelect:  e.handleMethodSelect,
		domain.StepTxnInput:      e.handleTxnInput,
		domain.StepWalletSave:    e.handleWalletSave,
	}
	return e
}

// Advance processes one inbound interaction for the user and returns the
// prompt to send back. Validation problems never surface as errors; only
// storage failures do.
func (e *Engine) Advance(ctx context.Context, userID int64, in domain.Input) (domain.Reply, error) {
	if in.Token == TokenCancel || strings.EqualFold(strings.TrimSpace(in.Text), "/cancel") {
		return e.cancel(userID), nil
	}

	switch in.Token {
	case TokenWithdraw:
		return e.startWithdraw(ctx, userID)
	case TokenVerify:
		return e.verifyStatus(ctx, userID)
	case TokenVerifyStart:
		return e.startVerify(userID)
	case TokenProfile:
		return e.profile(ctx, userID)
	case TokenSetWallet:
		return e.startWalletSave(userID)
	}

	sess := e.store.get(userID)
	if sess == nil {
		return domain.Reply{
			Text:  "Nothing in progress. Pick an option to get started.",
			State: domain.StepNone,
			Buttons: []domain.Button{
				{Label: "Withdraw", Token: TokenWithdraw},
				{Label: "Verify", Token: TokenVerify},
			},
		}, nil
	}

	handler, ok := e.steps[sess.step]
	if !ok {
		e.logger.Error().Int64("user_id", userID).Str("step", string(sess.step)).Msg("Session in unknown step, dropping")
		e.store.drop(userID)
		return domain.Reply{Text: "Something went wrong, please start over.", State: domain.StepNone}, nil
	}
	return handler(ctx, userID, sess, in)
}

func (e *Engine) cancel(userID int64) domain.Reply {
	if sess := e.store.get(userID); sess != nil {
		metrics.FlowsCancelled.WithLabelValues(string(sess.flow)).Inc()
		e.store.drop(userID)
	}
	return domain.Reply{Text: "Cancelled.", State: domain.StepNone}
}

// cancelFallback implements the inherited rule that unrecognized input in a
// step with no declared fallback abandons the flow.
func (e *Engine) cancelFallback(userID int64, sess *session) domain.Reply {
	metrics.FlowsCancelled.WithLabelValues(string(sess.flow)).Inc()
	e.store.drop(userID)
	return domain.Reply{Text: "Cancelled.", State: domain.StepNone}
}

// --- withdraw flow ---

func (e *Engine) startWithdraw(ctx context.Context, userID int64) (domain.Reply, error) {
	balance, err := e.ledger.GetBalance(ctx, userID)
	if err != nil {
		return domain.Reply{}, err
	}
	if balance <= 0 {
		return domain.Reply{Text: "You have no balance to withdraw.", State: domain.StepNone}, nil
	}

	acct, err := e.ledger.GetAccount(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
		return domain.Reply{}, err
	}
	if !entitlement.WithdrawUnlocked(acct, e.now()) {
		return domain.Reply{
			Text:    "Withdrawals are locked until your account is verified.",
			State:   domain.StepNone,
			Buttons: []domain.Button{{Label: "Verify now", Token: TokenVerifyStart}},
		}, nil
	}

	metrics.FlowsStarted.WithLabelValues(string(domain.FlowWithdraw)).Inc()
	e.store.replace(userID, &session{flow: domain.FlowWithdraw, step: domain.StepAmountInput})
	return domain.Reply{
		Text: fmt.Sprintf(
			"How much would you like to withdraw?\nCurrent balance: %s. Minimum withdrawal: %s.",
			currency.Format(balance), currency.Format(e.payout.MinWithdrawCents),
		),
		State:   domain.StepAmountInput,
		Buttons: []domain.Button{{Label: "Cancel", Token: TokenCancel}},
	}, nil
}

func (e *Engine) handleAmountInput(ctx context.Context, userID int64, sess *session, in domain.Input) (domain.Reply, error) {
	if in.Token != "" {
		return e.cancelFallback(userID, sess), nil
	}

	amount, err := currency.ParseAmountCents(in.Text)
	if err != nil {
		return domain.Reply{Text: "Please enter the amount as a number.", State: domain.StepAmountInput}, nil
	}
	if amount < e.payout.MinWithdrawCents {
		return domain.Reply{
			Text:  fmt.Sprintf("The minimum withdrawal is %s. Enter the amount again:", currency.Format(e.payout.MinWithdrawCents)),
			State: domain.StepAmountInput,
		}, nil
	}

	balance, err := e.ledger.GetBalance(ctx, userID)
	if err != nil {
		return domain.Reply{}, err
	}
	if amount > balance {
		return domain.Reply{
			Text:  fmt.Sprintf("Your balance is %s; you cannot withdraw more than that. Enter the amount again:", currency.Format(balance)),
			State: domain.StepAmountInput,
		}, nil
	}

	sess.amountCents = amount

	acct, err := e.ledger.GetAccount(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
		return domain.Reply{}, err
	}
	if acct.HasWallet() {
		sess.walletAddress = acct.WalletAddress
		sess.step = domain.StepWalletConfirm
		return domain.Reply{
			Text:  fmt.Sprintf("Send the payout to this address?\n%s", acct.WalletAddress),
			State: domain.StepWalletConfirm,
			Buttons: []domain.Button{
				{Label: "Use this address", Token: tokenWalletConfirm},
				{Label: "Enter a new address", Token: tokenWalletNew},
				{Label: "Cancel", Token: TokenCancel},
			},
		}, nil
	}

	sess.step = domain.StepWalletInput
	return domain.Reply{
		Text:    "Please enter your wallet address:",
		State:   domain.StepWalletInput,
		Buttons: []domain.Button{{Label: "Cancel", Token: TokenCancel}},
	}, nil
}

func (e *Engine) handleWalletConfirm(ctx context.Context, userID int64, sess *session, in domain.Input) (domain.Reply, error) {
	switch in.Token {
	case tokenWalletConfirm:
		return e.completeWithdraw(ctx, userID, sess)
	case tokenWalletNew:
		sess.step = domain.StepWalletInput
		return domain.Reply{
			Text:    "Please enter your new wallet address:",
			State:   domain.StepWalletInput,
			Buttons: []domain.Button{{Label: "Cancel", Token: TokenCancel}},
		}, nil
	default:
		return e.cancelFallback(userID, sess), nil
	}
}

func (e *Engine) handleWalletInput(ctx context.Context, userID int64, sess *session, in domain.Input) (domain.Reply, error) {
	if in.Token != "" {
		return e.cancelFallback(userID, sess), nil
	}
	address := strings.TrimSpace(in.Text)
	if len(address) < minWalletLength {
		return domain.Reply{
			Text:  "That address looks too short. Please enter a valid wallet address:",
			State: domain.StepWalletInput,
		}, nil
	}
	sess.walletAddress = address
	return e.completeWithdraw(ctx, userID, sess)
}

func (e *Engine) completeWithdraw(ctx context.Context, userID int64, sess *session) (domain.Reply, error) {
	requestID, err := e.requests.CreateWithdraw(ctx, userID, sess.amountCents, sess.walletAddress)
	if errors.Is(err, domain.ErrInsufficientBalance) {
		// Balance moved under us between validation and submission.
		sess.step = domain.StepAmountInput
		return domain.Reply{
			Text:  "Your balance no longer covers that amount. Enter the amount again:",
			State: domain.StepAmountInput,
		}, nil
	}
	if err != nil {
		return domain.Reply{}, err
	}

	metrics.RequestsCreated.WithLabelValues(string(domain.RequestKindWithdraw)).Inc()
	amount, wallet := sess.amountCents, sess.walletAddress
	e.store.drop(userID)

	e.logger.Info().
		Int64("user_id", userID).
		Int64("request_id", requestID).
		Int64("amount_cents", amount).
		Msg("Withdraw request submitted")

	adminText := fmt.Sprintf(
		"New withdrawal request #%d\nUser: %d\nAmount: %s\nWallet: %s",
		requestID, userID, currency.Format(amount), wallet,
	)
	if err := e.notifier.NotifyAdmin(ctx, adminText,
		domain.Button{Label: "Complete", Token: fmt.Sprintf("withdraw_accept_%d", requestID)},
		domain.Button{Label: "Reject", Token: fmt.Sprintf("withdraw_reject_%d", requestID)},
	); err != nil {
		metrics.NotifyFailures.Inc()
		e.logger.Err(err).Int64("request_id", requestID).Msg("Failed to notify admin of withdrawal")
	}

	return domain.Reply{
		Text: fmt.Sprintf(
			"Withdrawal request #%d submitted.\nAmount: %s\nWallet: %s\nYou will be notified once it is processed.",
			requestID, currency.Format(amount), wallet,
		),
		State: domain.StepNone,
	}, nil
}

// --- verify flow ---

func (e *Engine) verifyStatus(ctx context.Context, userID int64) (domain.Reply, error) {
	acct, err := e.ledger.GetAccount(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
		return domain.Reply{}, err
	}

	status := entitlement.StatusOf(acct, e.now())
	switch status.Level {
	case entitlement.LevelPremium:
		return domain.Reply{
			Text: fmt.Sprintf(
				"Premium user: %d days remaining.\nYour account is verified; verify again to extend it.",
				status.RemainingDays,
			),
			State:   domain.StepNone,
			Buttons: []domain.Button{{Label: "Verify", Token: TokenVerifyStart}},
		}, nil
	case entitlement.LevelVerified:
		return domain.Reply{
			Text: fmt.Sprintf(
				"Verified user: %d days remaining.\nYour withdraw option is unlocked.",
				status.RemainingDays,
			),
			State: domain.StepNone,
		}, nil
	default:
		return domain.Reply{
			Text:    "Your account is not verified. Withdrawals stay locked until you verify.",
			State:   domain.StepNone,
			Buttons: []domain.Button{{Label: "Verify", Token: TokenVerifyStart}},
		}, nil
	}
}

func (e *Engine) profile(ctx context.Context, userID int64) (domain.Reply, error) {
	acct, err := e.ledger.GetAccount(ctx, userID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return domain.Reply{Text: "Account not found. Please register first.", State: domain.StepNone}, nil
	}
	if err != nil {
		return domain.Reply{}, err
	}

	status := entitlement.StatusOf(acct, e.now())
	wallet := acct.WalletAddress
	if wallet == "" {
		wallet = "not set"
	}
	return domain.Reply{
		Text: fmt.Sprintf(
			"Profile\nName: %s\nBalance: %s\nWallet: %s\nTotal withdrawn: %s\nStatus: %s",
			acct.FirstName, currency.Format(acct.BalanceCents), wallet,
			currency.Format(acct.TotalWithdrawCents), status.Level,
		),
		State: domain.StepNone,
		Buttons: []domain.Button{
			{Label: "Withdraw", Token: TokenWithdraw},
			{Label: "Set wallet", Token: TokenSetWallet},
		},
	}, nil
}

func (e *Engine) startVerify(userID int64) (domain.Reply, error) {
	metrics.FlowsStarted.WithLabelValues(string(domain.FlowVerify)).Inc()
	e.store.replace(userID, &session{flow: domain.FlowVerify, step: domain.StepMethodSelect})

	buttons := make([]domain.Button, 0, len(e.payout.Methods)+1)
	for _, m := range e.payout.Methods {
		buttons = append(buttons, domain.Button{
			Label: fmt.Sprintf("%s - %s", m, e.payout.PaymentNumber),
			Token: methodTokenPrefix + m,
		})
	}
	buttons = append(buttons, domain.Button{Label: "Cancel", Token: TokenCancel})

	return domain.Reply{
		Text:    "Select a payment method:",
		State:   domain.StepMethodSelect,
		Buttons: buttons,
	}, nil
}

func (e *Engine) handleMethodSelect(ctx context.Context, userID int64, sess *session, in domain.Input) (domain.Reply, error) {
	method, ok := strings.CutPrefix(in.Token, methodTokenPrefix)
	if !ok || !e.payout.HasMethod(method) {
		return e.cancelFallback(userID, sess), nil
	}

	sess.method = method
	sess.step = domain.StepTxnInput
	return domain.Reply{
		Text: fmt.Sprintf(
			"Pay %s to this %s personal number: %s.\nAfter paying, send the transaction ID here.",
			currency.Format(e.payout.VerifyFeeCents), method, e.payout.PaymentNumber,
		),
		State: domain.StepTxnInput,
	}, nil
}

func (e *Engine) handleTxnInput(ctx context.Context, userID int64, sess *session, in domain.Input) (domain.Reply, error) {
	if in.Token != "" {
		return e.cancelFallback(userID, sess), nil
	}
	txnID := strings.TrimSpace(in.Text)
	if txnID == "" {
		return domain.Reply{Text: "Please send the transaction ID as text.", State: domain.StepTxnInput}, nil
	}

	acct, err := e.ledger.GetAccount(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
		return domain.Reply{}, err
	}
	username := ""
	if acct != nil {
		username = acct.Username
	}

	requestID, err := e.requests.CreateVerify(ctx, userID, username, e.payout.VerifyFeeCents, sess.method, txnID)
	if errors.Is(err, domain.ErrDuplicateTransaction) {
		return domain.Reply{
			Text:  "That transaction ID has already been submitted. Send a different one:",
			State: domain.StepTxnInput,
		}, nil
	}
	if err != nil {
		return domain.Reply{}, err
	}

	metrics.RequestsCreated.WithLabelValues(string(domain.RequestKindVerify)).Inc()
	method := sess.method
	e.store.drop(userID)

	e.logger.Info().
		Int64("user_id", userID).
		Int64("request_id", requestID).
		Str("method", method).
		Msg("Verify request submitted")

	adminText := fmt.Sprintf(
		"New verify request #%d\nUser: %d (%s)\nMethod: %s\nAmount: %s\nTxn ID: %s",
		requestID, userID, username, method, currency.Format(e.payout.VerifyFeeCents), txnID,
	)
	if err := e.notifier.NotifyAdmin(ctx, adminText,
		domain.Button{Label: "Accept", Token: fmt.Sprintf("verify_accept_%d", requestID)},
		domain.Button{Label: "Reject", Token: fmt.Sprintf("verify_reject_%d", requestID)},
	); err != nil {
		metrics.NotifyFailures.Inc()
		e.logger.Err(err).Int64("request_id", requestID).Msg("Failed to notify admin of verification")
	}

	return domain.Reply{
		Text:  "Thank you! Your verify request has been submitted.\nStatus: pending. Please wait for review.",
		State: domain.StepNone,
	}, nil
}

// --- wallet flow ---

func (e *Engine) startWalletSave(userID int64) (domain.Reply, error) {
	metrics.FlowsStarted.WithLabelValues(string(domain.FlowWallet)).Inc()
	e.store.replace(userID, &session{flow: domain.FlowWallet, step: domain.StepWalletSave})
	return domain.Reply{
		Text:    "Enter your new wallet address (at least 5 characters):",
		State:   domain.StepWalletSave,
		Buttons: []domain.Button{{Label: "Cancel", Token: TokenCancel}},
	}, nil
}

func (e *Engine) handleWalletSave(ctx context.Context, userID int64, sess *session, in domain.Input) (domain.Reply, error) {
	if in.Token != "" {
		return e.cancelFallback(userID, sess), nil
	}
	address := strings.TrimSpace(in.Text)
	if len(address) < minWalletLength {
		return domain.Reply{
			Text:  "That address looks too short. Please enter a valid wallet address:",
			State: domain.StepWalletSave,
		}, nil
	}

	if err := e.ledger.SetWalletAddress(ctx, userID, address); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			e.store.drop(userID)
			return domain.Reply{Text: "Account not found. Please register first.", State: domain.StepNone}, nil
		}
		return domain.Reply{}, err
	}

	e.store.drop(userID)
	return domain.Reply{
		Text:  fmt.Sprintf("Saved. Your wallet address is now: %s", address),
		State: domain.StepNone,
	}, nil
}
