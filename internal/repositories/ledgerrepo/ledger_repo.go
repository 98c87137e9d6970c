package ledgerrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/paydeskhq/paydesk/internal/domain"
)

type ILedgerRepository interface {
	GetBalance(ctx context.Context, userID int64) (int64, error)
	AdjustBalance(ctx context.Context, userID int64, deltaCents int64) error
	AdjustBalanceTx(ctx context.Context, tx *sql.Tx, userID int64, deltaCents int64) error
	GetAccount(ctx context.Context, userID int64) (*domain.Account, error)
	RegisterAccount(ctx context.Context, userID int64, username, firstName string, referredBy *int64) (bool, error)
	SetWalletAddress(ctx context.Context, userID int64, address string) error
	SetVerifyExpiryTx(ctx context.Context, tx *sql.Tx, userID int64, expiry time.Time) error
	AddTotalWithdrawTx(ctx context.Context, tx *sql.Tx, userID int64, amountCents int64) error
	CountReferrals(ctx context.Context, userID int64) (int64, error)
}
