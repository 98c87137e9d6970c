package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/paydeskhq/paydesk/internal/domain"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func at(days int) *time.Time {
	t := now.Add(time.Duration(days) * 24 * time.Hour)
	return &t
}

func TestWithdrawUnlocked(t *testing.T) {
	tests := []struct {
		name     string
		acct     *domain.Account
		unlocked bool
	}{
		{name: "nil account", acct: nil, unlocked: false},
		{name: "no windows", acct: &domain.Account{}, unlocked: false},
		{name: "active verify", acct: &domain.Account{VerifyExpiry: at(10)}, unlocked: true},
		{name: "expired verify", acct: &domain.Account{VerifyExpiry: at(-1)}, unlocked: false},
		{name: "active premium", acct: &domain.Account{IsPremium: true, PremiumExpiry: at(5)}, unlocked: true},
		{name: "expired premium", acct: &domain.Account{IsPremium: true, PremiumExpiry: at(-5)}, unlocked: false},
		{name: "premium expiry without flag", acct: &domain.Account{PremiumExpiry: at(5)}, unlocked: false},
		{name: "expired premium but active verify", acct: &domain.Account{IsPremium: true, PremiumExpiry: at(-5), VerifyExpiry: at(3)}, unlocked: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.unlocked, WithdrawUnlocked(tt.acct, now))
		})
	}
}

func TestStatusOfRanksPremiumFirst(t *testing.T) {
	acct := &domain.Account{
		IsPremium:     true,
		PremiumExpiry: at(20),
		VerifyExpiry:  at(40),
	}

	status := StatusOf(acct, now)
	require.Equal(t, LevelPremium, status.Level)
	require.Equal(t, 20, status.RemainingDays)
	require.Equal(t, acct.PremiumExpiry, status.Expiry)
}

func TestStatusOfFallsBackToVerified(t *testing.T) {
	acct := &domain.Account{
		IsPremium:     true,
		PremiumExpiry: at(-2),
		VerifyExpiry:  at(7),
	}

	status := StatusOf(acct, now)
	require.Equal(t, LevelVerified, status.Level)
	require.Equal(t, 7, status.RemainingDays)
}

func TestStatusOfUnverified(t *testing.T) {
	require.Equal(t, LevelUnverified, StatusOf(nil, now).Level)
	require.Equal(t, LevelUnverified, StatusOf(&domain.Account{}, now).Level)
	require.Equal(t, LevelUnverified, StatusOf(&domain.Account{VerifyExpiry: at(0)}, now).Level)
}

func TestRemainingDaysTruncates(t *testing.T) {
	expiry := now.Add(36 * time.Hour)
	status := StatusOf(&domain.Account{VerifyExpiry: &expiry}, now)
	require.Equal(t, 1, status.RemainingDays)
}
