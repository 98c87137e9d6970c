package domain

import (
	"time"
)

type Account struct {
	UserID             int64      `json:"user_id" db:"user_id"`
	Username           string     `json:"username" db:"username"`
	FirstName          string     `json:"first_name" db:"first_name"`
	BalanceCents       int64      `json:"balance_cents" db:"balance_cents"`
	WalletAddress      string     `json:"wallet_address" db:"wallet_address"`
	ReferredBy         *int64     `json:"referred_by,omitempty" db:"referred_by"`
	IsPremium          bool       `json:"is_premium" db:"is_premium"`
	PremiumExpiry      *time.Time `json:"premium_expiry,omitempty" db:"premium_expiry"`
	VerifyExpiry       *time.Time `json:"verify_expiry,omitempty" db:"verify_expiry"`
	TotalWithdrawCents int64      `json:"total_withdraw_cents" db:"total_withdraw_cents"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
}

// HasWallet reports whether the account carries a previously confirmed
// payout destination.
func (a *Account) HasWallet() bool {
	return a != nil && a.WalletAddress != ""
}
