package moderation

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/paydeskhq/paydesk/internal/domain"
	"github.com/paydeskhq/paydesk/pkg/config"
	"github.com/paydeskhq/paydesk/pkg/logger"
)

const adminID int64 = 99

type memLedger struct {
	mu       sync.Mutex
	accounts map[int64]*domain.Account
}

func newMemLedger() *memLedger {
	return &memLedger{accounts: make(map[int64]*domain.Account)}
}

func (m *memLedger) GetBalance(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acct, ok := m.accounts[userID]; ok {
		return acct.BalanceCents, nil
	}
	return 0, nil
}

func (m *memLedger) AdjustBalance(_ context.Context, userID int64, deltaCents int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[userID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	acct.BalanceCents += deltaCents
	return nil
}

func (m *memLedger) AdjustBalanceTx(ctx context.Context, _ *sql.Tx, userID int64, deltaCents int64) error {
	return m.AdjustBalance(ctx, userID, deltaCents)
}

func (m *memLedger) GetAccount(_ context.Context, userID int64) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[userID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	copied := *acct
	return &copied, nil
}

func (m *memLedger) RegisterAccount(context.Context, int64, string, string, *int64) (bool, error) {
	return false, nil
}

func (m *memLedger) SetWalletAddress(context.Context, int64, string) error {
	return nil
}

func (m *memLedger) SetVerifyExpiryTx(_ context.Context, _ *sql.Tx, userID int64, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[userID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	acct.VerifyExpiry = &expiry
	return nil
}

func (m *memLedger) AddTotalWithdrawTx(_ context.Context, _ *sql.Tx, userID int64, amountCents int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acct, ok := m.accounts[userID]; ok {
		acct.TotalWithdrawCents += amountCents
	}
	return nil
}

func (m *memLedger) CountReferrals(context.Context, int64) (int64, error) {
	return 0, nil
}

type memRequestStore struct {
	mu          sync.Mutex
	ledger      *memLedger
	nextID      int64
	withdrawals map[int64]*domain.WithdrawRequest
	verifies    map[int64]*domain.VerifyRequest
}

func newMemRequestStore(ledger *memLedger) *memRequestStore {
	return &memRequestStore{
		ledger:      ledger,
		withdrawals: make(map[int64]*domain.WithdrawRequest),
		verifies:    make(map[int64]*domain.VerifyRequest),
	}
}

func (m *memRequestStore) CreateWithdraw(_ context.Context, userID, amountCents int64, walletAddress string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledger.mu.Lock()
	defer m.ledger.mu.Unlock()

	acct, ok := m.ledger.accounts[userID]
	if !ok || acct.BalanceCents < amountCents {
		return 0, domain.ErrInsufficientBalance
	}
	acct.BalanceCents -= amountCents

	m.nextID++
	m.withdrawals[m.nextID] = &domain.WithdrawRequest{
		RequestID:     m.nextID,
		UserID:        userID,
		AmountCents:   amountCents,
		WalletAddress: walletAddress,
		Status:        domain.WithdrawStatusPending,
		RequestedAt:   time.Now(),
	}
	return m.nextID, nil
}

func (m *memRequestStore) ListPendingWithdrawals(context.Context) ([]domain.WithdrawRequest, error) {
	return nil, nil
}

func (m *memRequestStore) GetWithdrawRequest(_ context.Context, requestID int64) (*domain.WithdrawRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.withdrawals[requestID]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	copied := *req
	return &copied, nil
}

func (m *memRequestStore) SetWithdrawStatusTx(_ context.Context, _ *sql.Tx, requestID int64, status domain.WithdrawStatus) (domain.StatusChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.withdrawals[requestID]
	if !ok || req.Status != domain.WithdrawStatusPending {
		return domain.StatusChange{}, nil
	}
	req.Status = status
	return domain.StatusChange{Applied: true, UserID: req.UserID, AmountCents: req.AmountCents}, nil
}

func (m *memRequestStore) CreateVerify(_ context.Context, userID int64, username string, feeCents int64, method, txnID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.verifies[m.nextID] = &domain.VerifyRequest{
		RequestID:   m.nextID,
		UserID:      userID,
		Username:    username,
		AmountCents: feeCents,
		Method:      method,
		TxnID:       txnID,
		Status:      domain.VerifyStatusPending,
		RequestedAt: time.Now(),
	}
	return m.nextID, nil
}

func (m *memRequestStore) ListPendingVerifications(context.Context) ([]domain.VerifyRequest, error) {
	return nil, nil
}

func (m *memRequestStore) GetVerifyRequest(_ context.Context, requestID int64) (*domain.VerifyRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.verifies[requestID]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	copied := *req
	return &copied, nil
}

func (m *memRequestStore) SetVerifyStatusTx(_ context.Context, _ *sql.Tx, requestID int64, status domain.VerifyStatus) (domain.StatusChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.verifies[requestID]
	if !ok || req.Status != domain.VerifyStatusPending {
		return domain.StatusChange{}, nil
	}
	req.Status = status
	return domain.StatusChange{Applied: true, UserID: req.UserID, AmountCents: req.AmountCents}, nil
}

// memTxRunner executes the unit of work without a real transaction; the fakes
// above mutate in-memory state directly.
type memTxRunner struct{}

func (memTxRunner) RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

type memNotifier struct {
	mu    sync.Mutex
	users map[int64][]string
	admin []string
}

func newMemNotifier() *memNotifier {
	return &memNotifier{users: make(map[int64][]string)}
}

func (m *memNotifier) NotifyUser(_ context.Context, userID int64, text string, _ ...domain.Button) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = append(m.users[userID], text)
	return nil
}

func (m *memNotifier) NotifyAdmin(_ context.Context, text string, _ ...domain.Button) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admin = append(m.admin, text)
	return nil
}

type memFeed struct {
	mu        sync.Mutex
	withdraws []domain.WithdrawRequest
	verifies  []domain.VerifyRequest
}

func (m *memFeed) BroadcastWithdraw(req domain.WithdrawRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.withdraws = append(m.withdraws, req)
}

func (m *memFeed) BroadcastVerify(req domain.VerifyRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifies = append(m.verifies, req)
}

func newTestGateway(t *testing.T) (*Gateway, *memLedger, *memRequestStore, *memNotifier, *memFeed) {
	t.Helper()
	ledger := newMemLedger()
	store := newMemRequestStore(ledger)
	notifier := newMemNotifier()
	feed := &memFeed{}
	payout := config.PayoutConfig{
		MinWithdrawCents: 10000,
		VerifyFeeCents:   5000,
		VerifyDays:       30,
	}
	gw := New(memTxRunner{}, ledger, store, notifier, feed, payout, config.AdminConfig{UserID: adminID}, logger.New())
	return gw, ledger, store, notifier, feed
}

func TestDecideRejectRefundsBalance(t *testing.T) {
	gw, ledger, store, notifier, feed := newTestGateway(t)
	ctx := context.Background()
	ledger.accounts[1] = &domain.Account{UserID: 1, BalanceCents: 50000}

	requestID, err := store.CreateWithdraw(ctx, 1, 15000, "01712345678")
	require.NoError(t, err)

	balance, err := ledger.GetBalance(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(35000), balance)

	outcome, err := gw.Decide(ctx, adminID, domain.RequestKindWithdraw, domain.DecisionReject, requestID)
	require.NoError(t, err)
	require.True(t, outcome.Applied)
	require.Equal(t, string(domain.WithdrawStatusRejected), outcome.Status)
	require.Equal(t, int64(15000), outcome.AmountCents)

	balance, err = ledger.GetBalance(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(50000), balance, "rejection must restore the pre-debit balance")

	require.Len(t, notifier.users[1], 1)
	require.Len(t, feed.withdraws, 1)
	require.Equal(t, domain.WithdrawStatusRejected, feed.withdraws[0].Status)
}

func TestDecideTwiceAppliesOnce(t *testing.T) {
	gw, ledger, store, _, _ := newTestGateway(t)
	ctx := context.Background()
	ledger.accounts[2] = &domain.Account{UserID: 2, BalanceCents: 50000}

	requestID, err := store.CreateWithdraw(ctx, 2, 15000, "01712345678")
	require.NoError(t, err)

	first, err := gw.Decide(ctx, adminID, domain.RequestKindWithdraw, domain.DecisionReject, requestID)
	require.NoError(t, err)
	require.True(t, first.Applied)

	second, err := gw.Decide(ctx, adminID, domain.RequestKindWithdraw, domain.DecisionReject, requestID)
	require.NoError(t, err)
	require.False(t, second.Applied)
	require.Equal(t, string(domain.WithdrawStatusRejected), second.Status)

	// The refund happened exactly once.
	balance, err := ledger.GetBalance(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, int64(50000), balance)
}

func TestDecideConcurrently(t *testing.T) {
	gw, ledger, store, _, _ := newTestGateway(t)
	ctx := context.Background()
	ledger.accounts[3] = &domain.Account{UserID: 3, BalanceCents: 50000}

	requestID, err := store.CreateWithdraw(ctx, 3, 15000, "01712345678")
	require.NoError(t, err)

	const attempts = 8
	outcomes := make([]Outcome, attempts)
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = gw.Decide(ctx, adminID, domain.RequestKindWithdraw, domain.DecisionReject, requestID)
		}(i)
	}
	wg.Wait()

	applied := 0
	for i, out := range outcomes {
		require.NoError(t, errs[i])
		if out.Applied {
			applied++
		}
	}
	require.Equal(t, 1, applied)

	balance, err := ledger.GetBalance(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, int64(50000), balance)
}

func TestDecideAcceptTracksTotalWithdraw(t *testing.T) {
	gw, ledger, store, notifier, _ := newTestGateway(t)
	ctx := context.Background()
	ledger.accounts[4] = &domain.Account{UserID: 4, BalanceCents: 50000}

	requestID, err := store.CreateWithdraw(ctx, 4, 20000, "01712345678")
	require.NoError(t, err)

	outcome, err := gw.Decide(ctx, adminID, domain.RequestKindWithdraw, domain.DecisionAccept, requestID)
	require.NoError(t, err)
	require.True(t, outcome.Applied)
	require.Equal(t, string(domain.WithdrawStatusCompleted), outcome.Status)

	acct, err := ledger.GetAccount(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, int64(30000), acct.BalanceCents, "completion must not touch the remaining balance")
	require.Equal(t, int64(20000), acct.TotalWithdrawCents)
	require.Len(t, notifier.users[4], 1)
}

func TestDecideUnauthorized(t *testing.T) {
	gw, ledger, store, notifier, _ := newTestGateway(t)
	ctx := context.Background()
	ledger.accounts[5] = &domain.Account{UserID: 5, BalanceCents: 50000}

	requestID, err := store.CreateWithdraw(ctx, 5, 15000, "01712345678")
	require.NoError(t, err)

	_, err = gw.Decide(ctx, 12345, domain.RequestKindWithdraw, domain.DecisionReject, requestID)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	req, err := store.GetWithdrawRequest(ctx, requestID)
	require.NoError(t, err)
	require.Equal(t, domain.WithdrawStatusPending, req.Status)

	balance, err := ledger.GetBalance(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, int64(35000), balance)
	require.Empty(t, notifier.users[5])
}

func TestDecideUnknownInputs(t *testing.T) {
	gw, _, _, _, _ := newTestGateway(t)
	ctx := context.Background()

	_, err := gw.Decide(ctx, adminID, domain.RequestKindWithdraw, "approve", 1)
	require.Error(t, err)

	_, err = gw.Decide(ctx, adminID, "transfer", domain.DecisionAccept, 1)
	require.Error(t, err)
}

func TestDecideMissingRequest(t *testing.T) {
	gw, _, _, _, _ := newTestGateway(t)

	_, err := gw.Decide(context.Background(), adminID, domain.RequestKindWithdraw, domain.DecisionReject, 404)
	require.ErrorIs(t, err, domain.ErrRequestNotFound)
}

func TestDecideVerifyAcceptGrantsWindow(t *testing.T) {
	gw, ledger, store, notifier, feed := newTestGateway(t)
	ctx := context.Background()
	ledger.accounts[6] = &domain.Account{UserID: 6, Username: "sam"}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gw.now = func() time.Time { return base }

	requestID, err := store.CreateVerify(ctx, 6, "sam", 5000, "Bkash", "TXN-9")
	require.NoError(t, err)

	outcome, err := gw.Decide(ctx, adminID, domain.RequestKindVerify, domain.DecisionAccept, requestID)
	require.NoError(t, err)
	require.True(t, outcome.Applied)
	require.Equal(t, string(domain.VerifyStatusAccept), outcome.Status)

	acct, err := ledger.GetAccount(ctx, 6)
	require.NoError(t, err)
	require.NotNil(t, acct.VerifyExpiry)
	require.Equal(t, base.Add(30*24*time.Hour), *acct.VerifyExpiry)

	require.Len(t, notifier.users[6], 1)
	require.Len(t, feed.verifies, 1)
}

func TestDecideVerifyAcceptOverwritesWindow(t *testing.T) {
	gw, ledger, store, _, _ := newTestGateway(t)
	ctx := context.Background()
	ledger.accounts[7] = &domain.Account{UserID: 7}

	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gw.now = func() time.Time { return first }

	requestID, err := store.CreateVerify(ctx, 7, "", 5000, "Nagad", "TXN-10")
	require.NoError(t, err)
	_, err = gw.Decide(ctx, adminID, domain.RequestKindVerify, domain.DecisionAccept, requestID)
	require.NoError(t, err)

	// A second acceptance ten days later replaces the window; remaining
	// days are not added on top.
	second := first.Add(10 * 24 * time.Hour)
	gw.now = func() time.Time { return second }

	requestID, err = store.CreateVerify(ctx, 7, "", 5000, "Nagad", "TXN-11")
	require.NoError(t, err)
	_, err = gw.Decide(ctx, adminID, domain.RequestKindVerify, domain.DecisionAccept, requestID)
	require.NoError(t, err)

	acct, err := ledger.GetAccount(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, second.Add(30*24*time.Hour), *acct.VerifyExpiry)
}

func TestDecideVerifyRejectLeavesAccountUntouched(t *testing.T) {
	gw, ledger, store, notifier, _ := newTestGateway(t)
	ctx := context.Background()
	ledger.accounts[8] = &domain.Account{UserID: 8}

	requestID, err := store.CreateVerify(ctx, 8, "", 5000, "Bkash", "TXN-12")
	require.NoError(t, err)

	outcome, err := gw.Decide(ctx, adminID, domain.RequestKindVerify, domain.DecisionReject, requestID)
	require.NoError(t, err)
	require.True(t, outcome.Applied)
	require.Equal(t, string(domain.VerifyStatusReject), outcome.Status)

	acct, err := ledger.GetAccount(ctx, 8)
	require.NoError(t, err)
	require.Nil(t, acct.VerifyExpiry)
	require.Len(t, notifier.users[8], 1)
}
