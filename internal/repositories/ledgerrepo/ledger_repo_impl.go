package ledgerrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/paydeskhq/paydesk/internal/domain"
	"github.com/paydeskhq/paydesk/internal/infrastructure/database"
	"github.com/paydeskhq/paydesk/pkg/config"
)

type LedgerRepository struct {
	db     *sql.DB
	payout config.PayoutConfig
	logger zerolog.Logger
}

func New(db *database.DBManager, payout config.PayoutConfig, logger zerolog.Logger) ILedgerRepository {
	return &LedgerRepository{
		db:     db.Db,
		payout: payout,
		logger: logger,
	}
}

func (r *LedgerRepository) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx,
		"SELECT balance_cents FROM users WHERE user_id = $1", userID,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		r.logger.Err(err).Int64("user_id", userID).Msg("Failed to read balance")
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return balance, nil
}

func (r *LedgerRepository) AdjustBalance(ctx context.Context, userID int64, deltaCents int64) error {
	return r.adjustBalance(ctx, r.db, userID, deltaCents)
}

func (r *LedgerRepository) AdjustBalanceTx(ctx context.Context, tx *sql.Tx, userID int64, deltaCents int64) error {
	return r.adjustBalance(ctx, tx, userID, deltaCents)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *LedgerRepository) adjustBalance(ctx context.Context, db execer, userID int64, deltaCents int64) error {
	res, err := db.ExecContext(ctx,
		"UPDATE users SET balance_cents = balance_cents + $1 WHERE user_id = $2",
		deltaCents, userID,
	)
	if err != nil {
		r.logger.Err(err).Int64("user_id", userID).Int64("delta_cents", deltaCents).Msg("Failed to adjust balance")
		return fmt.Errorf("failed to adjust balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to adjust balance: %w", err)
	}
	if affected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *LedgerRepository) GetAccount(ctx context.Context, userID int64) (*domain.Account, error) {
	var (
		acct          domain.Account
		username      sql.NullString
		firstName     sql.NullString
		wallet        sql.NullString
		referredBy    sql.NullInt64
		premiumExpiry sql.NullTime
		verifyExpiry  sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, username, first_name, balance_cents, wallet_address,
		       referred_by, is_premium, premium_expiry, verify_expiry,
		       total_withdraw_cents, created_at
		FROM users
		WHERE user_id = $1
	`, userID).Scan(
		&acct.UserID,
		&username,
		&firstName,
		&acct.BalanceCents,
		&wallet,
		&referredBy,
		&acct.IsPremium,
		&premiumExpiry,
		&verifyExpiry,
		&acct.TotalWithdrawCents,
		&acct.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		r.logger.Err(err).Int64("user_id", userID).Msg("Failed to load account")
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	acct.Username = username.String
	acct.FirstName = firstName.String
	acct.WalletAddress = wallet.String
	if referredBy.Valid {
		acct.ReferredBy = &referredBy.Int64
	}
	if premiumExpiry.Valid {
		t := premiumExpiry.Time
		acct.PremiumExpiry = &t
	}
	if verifyExpiry.Valid {
		t := verifyExpiry.Time
		acct.VerifyExpiry = &t
	}
	return &acct, nil
}

// RegisterAccount inserts the account row if it does not exist yet and, on
// first insert with a referrer, credits the referrer's joining bonus in the
// same transaction. Returns whether a new account was created.
func (r *LedgerRepository) RegisterAccount(ctx context.Context, userID int64, username, firstName string, referredBy *int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin registration: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO users (user_id, username, first_name, referred_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, username, firstName, referredBy)
	if err != nil {
		r.logger.Err(err).Int64("user_id", userID).Msg("Failed to register account")
		return false, fmt.Errorf("failed to register account: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to register account: %w", err)
	}

	if inserted > 0 && referredBy != nil && r.payout.ReferralBonusCents > 0 {
		if _, err := tx.ExecContext(ctx,
			"UPDATE users SET balance_cents = balance_cents + $1 WHERE user_id = $2",
			r.payout.ReferralBonusCents, *referredBy,
		); err != nil {
			r.logger.Err(err).Int64("referrer_id", *referredBy).Msg("Failed to credit referral bonus")
			return false, fmt.Errorf("failed to credit referral bonus: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit registration: %w", err)
	}
	return inserted > 0, nil
}

func (r *LedgerRepository) SetWalletAddress(ctx context.Context, userID int64, address string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET wallet_address = $1 WHERE user_id = $2",
		address, userID,
	)
	if err != nil {
		r.logger.Err(err).Int64("user_id", userID).Msg("Failed to save wallet address")
		return fmt.Errorf("failed to save wallet address: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save wallet address: %w", err)
	}
	if affected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// SetVerifyExpiryTx overwrites the verification window; it does not stack
// onto a previous expiry.
func (r *LedgerRepository) SetVerifyExpiryTx(ctx context.Context, tx *sql.Tx, userID int64, expiry time.Time) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE users SET verify_expiry = $1 WHERE user_id = $2",
		expiry, userID,
	)
	if err != nil {
		r.logger.Err(err).Int64("user_id", userID).Msg("Failed to set verify expiry")
		return fmt.Errorf("failed to set verify expiry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to set verify expiry: %w", err)
	}
	if affected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *LedgerRepository) AddTotalWithdrawTx(ctx context.Context, tx *sql.Tx, userID int64, amountCents int64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE users SET total_withdraw_cents = total_withdraw_cents + $1 WHERE user_id = $2",
		amountCents, userID,
	)
	if err != nil {
		r.logger.Err(err).Int64("user_id", userID).Msg("Failed to record withdraw total")
		return fmt.Errorf("failed to record withdraw total: %w", err)
	}
	return nil
}

func (r *LedgerRepository) CountReferrals(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(user_id) FROM users WHERE referred_by = $1", userID,
	).Scan(&count)
	if err != nil {
		r.logger.Err(err).Int64("user_id", userID).Msg("Failed to count referrals")
		return 0, fmt.Errorf("failed to count referrals: %w", err)
	}
	return count, nil
}
