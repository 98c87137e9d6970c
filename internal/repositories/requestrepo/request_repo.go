package requestrepo

import (
	"context"
	"database/sql"

	"github.com/paydeskhq/paydesk/internal/domain"
)

type IRequestRepository interface {
	// CreateWithdraw debits the user's balance and inserts a pending request
	// in one transaction. Fails with domain.ErrInsufficientBalance when the
	// balance would go negative; on any failure neither write is visible.
	CreateWithdraw(ctx context.Context, userID, amountCents int64, walletAddress string) (int64, error)
	ListPendingWithdrawals(ctx context.Context) ([]domain.WithdrawRequest, error)
	GetWithdrawRequest(ctx context.Context, requestID int64) (*domain.WithdrawRequest, error)
	// SetWithdrawStatusTx transitions pending -> status only if the request
	// is still pending. A lost race yields Applied=false, not an error.
	SetWithdrawStatusTx(ctx context.Context, tx *sql.Tx, requestID int64, status domain.WithdrawStatus) (domain.StatusChange, error)

	// CreateVerify fails with domain.ErrDuplicateTransaction on txn_id reuse.
	CreateVerify(ctx context.Context, userID int64, username string, feeCents int64, method, txnID string) (int64, error)
	ListPendingVerifications(ctx context.Context) ([]domain.VerifyRequest, error)
	GetVerifyRequest(ctx context.Context, requestID int64) (*domain.VerifyRequest, error)
	SetVerifyStatusTx(ctx context.Context, tx *sql.Tx, requestID int64, status domain.VerifyStatus) (domain.StatusChange, error)
}
