// Package entitlement computes a user's time-bounded premium/verification
// standing. It holds no state of its own; every answer is a pure function of
// the account row and a clock reading.
package entitlement

import (
	"time"

	"github.com/paydeskhq/paydesk/internal/domain"
)

type Level string

const (
	LevelPremium    Level = "premium"
	LevelVerified   Level = "verified"
	LevelUnverified Level = "unverified"
)

// Status is the display-facing summary of an account's entitlement windows.
type Status struct {
	Level         Level
	RemainingDays int
	Expiry        *time.Time
}

// WithdrawUnlocked reports whether withdrawals are open for the account:
// an active premium window or an active verification window.
func WithdrawUnlocked(acct *domain.Account, now time.Time) bool {
	return premiumActive(acct, now) || verifyActive(acct, now)
}

// StatusOf ranks premium above verified; an expired window counts for
// nothing.
func StatusOf(acct *domain.Account, now time.Time) Status {
	if premiumActive(acct, now) {
		return Status{
			Level:         LevelPremium,
			RemainingDays: remainingDays(*acct.PremiumExpiry, now),
			Expiry:        acct.PremiumExpiry,
		}
	}
	if verifyActive(acct, now) {
		return Status{
			Level:         LevelVerified,
			RemainingDays: remainingDays(*acct.VerifyExpiry, now),
			Expiry:        acct.VerifyExpiry,
		}
	}
	return Status{Level: LevelUnverified}
}

func premiumActive(acct *domain.Account, now time.Time) bool {
	return acct != nil && acct.IsPremium && acct.PremiumExpiry != nil && acct.PremiumExpiry.After(now)
}

func verifyActive(acct *domain.Account, now time.Time) bool {
	return acct != nil && acct.VerifyExpiry != nil && acct.VerifyExpiry.After(now)
}

func remainingDays(expiry, now time.Time) int {
	return int(expiry.Sub(now).Hours() / 24)
}
