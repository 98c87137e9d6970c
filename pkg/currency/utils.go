package currency

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Balances and request amounts are stored as integer cents. These helpers
// convert between the stored representation and user-facing amounts.

// ParseAmountCents parses a user-typed amount ("150", "99.50") into cents.
// Returns an error for non-numeric input, more than two decimal places, or
// non-positive values.
func ParseAmountCents(input string) (int64, error) {
	trimmed := strings.TrimSpace(input)
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("amount is not a number: %q", trimmed)
	}
	if value <= 0 {
		return 0, fmt.Errorf("amount must be positive: %q", trimmed)
	}
	cents := value * 100
	if math.Abs(cents-math.Round(cents)) > 1e-6 {
		return 0, fmt.Errorf("amount has more than two decimal places: %q", trimmed)
	}
	return int64(math.Round(cents)), nil
}

// CentsToUnits converts cents to whole currency units for display.
func CentsToUnits(cents int64) float64 {
	return float64(cents) / 100.0
}

// Format renders cents as a plain two-decimal amount string.
func Format(cents int64) string {
	return fmt.Sprintf("%.2f", CentsToUnits(cents))
}
