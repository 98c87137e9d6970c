package domain

import (
	"time"
)

type WithdrawStatus string

const (
	WithdrawStatusPending   WithdrawStatus = "pending"
	WithdrawStatusCompleted WithdrawStatus = "completed"
	WithdrawStatusRejected  WithdrawStatus = "rejected"
)

type VerifyStatus string

const (
	VerifyStatusPending VerifyStatus = "pending"
	VerifyStatusAccept  VerifyStatus = "accept"
	VerifyStatusReject  VerifyStatus = "reject"
)

type WithdrawRequest struct {
	RequestID     int64          `json:"request_id" db:"request_id"`
	UserID        int64          `json:"user_id" db:"user_id"`
	AmountCents   int64          `json:"amount_cents" db:"amount_cents"`
	WalletAddress string         `json:"wallet_address" db:"wallet_address"`
	Status        WithdrawStatus `json:"status" db:"status"`
	RequestedAt   time.Time      `json:"requested_at" db:"requested_at"`
}

type VerifyRequest struct {
	RequestID   int64        `json:"request_id" db:"request_id"`
	UserID      int64        `json:"user_id" db:"user_id"`
	Username    string       `json:"username" db:"username"`
	AmountCents int64        `json:"amount_cents" db:"amount_cents"`
	Method      string       `json:"method" db:"method"`
	TxnID       string       `json:"txn_id" db:"txn_id"`
	Status      VerifyStatus `json:"status" db:"status"`
	RequestedAt time.Time    `json:"requested_at" db:"requested_at"`
}

// StatusChange is the result of a compare-and-swap status transition.
// Applied is false when another actor already moved the request out of
// pending; UserID and AmountCents are only meaningful when it is true.
type StatusChange struct {
	Applied     bool
	UserID      int64
	AmountCents int64
}

type RequestKind string

const (
	RequestKindWithdraw RequestKind = "withdraw"
	RequestKindVerify   RequestKind = "verify"
)

type DecisionAction string

const (
	DecisionAccept DecisionAction = "accept"
	DecisionReject DecisionAction = "reject"
)
