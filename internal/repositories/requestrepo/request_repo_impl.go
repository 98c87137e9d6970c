package requestrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/paydeskhq/paydesk/internal/domain"
	"github.com/paydeskhq/paydesk/internal/infrastructure/database"
)

const pqUniqueViolation = "23505"

type RequestRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) IRequestRepository {
	return &RequestRepository{
		db:     db.Db,
		logger: logger,
	}
}

func (r *RequestRepository) CreateWithdraw(ctx context.Context, userID, amountCents int64, walletAddress string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin withdraw creation: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// The balance guard lives here, not in the ledger: the debit only lands
	// when it cannot push the balance below zero.
	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET balance_cents = balance_cents - $1
		WHERE user_id = $2 AND balance_cents >= $1
	`, amountCents, userID)
	if err != nil {
		r.logger.Err(err).Int64("user_id", userID).Msg("Failed to debit balance for withdrawal")
		return 0, fmt.Errorf("failed to debit balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to debit balance: %w", err)
	}
	if affected == 0 {
		return 0, domain.ErrInsufficientBalance
	}

	var requestID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO withdraw_requests (user_id, amount_cents, wallet_address, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING request_id
	`, userID, amountCents, walletAddress).Scan(&requestID)
	if err != nil {
		r.logger.Err(err).Int64("user_id", userID).Msg("Failed to insert withdraw request")
		return 0, fmt.Errorf("failed to insert withdraw request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit withdraw creation: %w", err)
	}
	return requestID, nil
}

func (r *RequestRepository) ListPendingWithdrawals(ctx context.Context) ([]domain.WithdrawRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT request_id, user_id, amount_cents, wallet_address, status, requested_at
		FROM withdraw_requests
		WHERE status = 'pending'
		ORDER BY requested_at ASC
	`)
	if err != nil {
		r.logger.Err(err).Msg("Failed to list pending withdrawals")
		return nil, fmt.Errorf("failed to list pending withdrawals: %w", err)
	}
	defer rows.Close()

	var requests []domain.WithdrawRequest
	for rows.Next() {
		var req domain.WithdrawRequest
		if err := rows.Scan(&req.RequestID, &req.UserID, &req.AmountCents, &req.WalletAddress, &req.Status, &req.RequestedAt); err != nil {
			return nil, fmt.Errorf("failed to scan withdraw request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func (r *RequestRepository) GetWithdrawRequest(ctx context.Context, requestID int64) (*domain.WithdrawRequest, error) {
	var req domain.WithdrawRequest
	err := r.db.QueryRowContext(ctx, `
		SELECT request_id, user_id, amount_cents, wallet_address, status, requested_at
		FROM withdraw_requests
		WHERE request_id = $1
	`, requestID).Scan(&req.RequestID, &req.UserID, &req.AmountCents, &req.WalletAddress, &req.Status, &req.RequestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load withdraw request: %w", err)
	}
	return &req, nil
}

func (r *RequestRepository) SetWithdrawStatusTx(ctx context.Context, tx *sql.Tx, requestID int64, status domain.WithdrawStatus) (domain.StatusChange, error) {
	var change domain.StatusChange
	err := tx.QueryRowContext(ctx, `
		UPDATE withdraw_requests
		SET status = $1
		WHERE request_id = $2 AND status = 'pending'
		RETURNING user_id, amount_cents
	`, status, requestID).Scan(&change.UserID, &change.AmountCents)
	if errors.Is(err, sql.ErrNoRows) {
		// Someone else already transitioned it.
		return domain.StatusChange{}, nil
	}
	if err != nil {
		r.logger.Err(err).Int64("request_id", requestID).Str("status", string(status)).Msg("Failed to update withdraw status")
		return domain.StatusChange{}, fmt.Errorf("failed to update withdraw status: %w", err)
	}
	change.Applied = true
	return change, nil
}

func (r *RequestRepository) CreateVerify(ctx context.Context, userID int64, username string, feeCents int64, method, txnID string) (int64, error) {
	var requestID int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO verify_requests (user_id, username, amount_cents, method, txn_id, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING request_id
	`, userID, username, feeCents, method, txnID).Scan(&requestID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrDuplicateTransaction
		}
		r.logger.Err(err).Int64("user_id", userID).Msg("Failed to insert verify request")
		return 0, fmt.Errorf("failed to insert verify request: %w", err)
	}
	return requestID, nil
}

func (r *RequestRepository) ListPendingVerifications(ctx context.Context) ([]domain.VerifyRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT request_id, user_id, username, amount_cents, method, txn_id, status, requested_at
		FROM verify_requests
		WHERE status = 'pending'
		ORDER BY requested_at ASC
	`)
	if err != nil {
		r.logger.Err(err).Msg("Failed to list pending verifications")
		return nil, fmt.Errorf("failed to list pending verifications: %w", err)
	}
	defer rows.Close()

	var requests []domain.VerifyRequest
	for rows.Next() {
		var req domain.VerifyRequest
		if err := rows.Scan(&req.RequestID, &req.UserID, &req.Username, &req.AmountCents, &req.Method, &req.TxnID, &req.Status, &req.RequestedAt); err != nil {
			return nil, fmt.Errorf("failed to scan verify request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func (r *RequestRepository) GetVerifyRequest(ctx context.Context, requestID int64) (*domain.VerifyRequest, error) {
	var req domain.VerifyRequest
	err := r.db.QueryRowContext(ctx, `
		SELECT request_id, user_id, username, amount_cents, method, txn_id, status, requested_at
		FROM verify_requests
		WHERE request_id = $1
	`, requestID).Scan(&req.RequestID, &req.UserID, &req.Username, &req.AmountCents, &req.Method, &req.TxnID, &req.Status, &req.RequestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load verify request: %w", err)
	}
	return &req, nil
}

func (r *RequestRepository) SetVerifyStatusTx(ctx context.Context, tx *sql.Tx, requestID int64, status domain.VerifyStatus) (domain.StatusChange, error) {
	var change domain.StatusChange
	err := tx.QueryRowContext(ctx, `
		UPDATE verify_requests
		SET status = $1
		WHERE request_id = $2 AND status = 'pending'
		RETURNING user_id, amount_cents
	`, status, requestID).Scan(&change.UserID, &change.AmountCents)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StatusChange{}, nil
	}
	if err != nil {
		r.logger.Err(err).Int64("request_id", requestID).Str("status", string(status)).Msg("Failed to update verify status")
		return domain.StatusChange{}, fmt.Errorf("failed to update verify status: %w", err)
	}
	change.Applied = true
	return change, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}
