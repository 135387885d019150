// Package core holds the budget domain model and the threshold
// classifier that decides which alert, if any, a recalculation emits.
package core

import "github.com/shopspring/decimal"

// PercentScale is the rounding scale applied when deriving the
// remaining-budget ratio. Keeping it a single constant makes repeated
// classifications of the same inputs reproducible.
const PercentScale = 2

var hundred = decimal.NewFromInt(100)

// RemainingPercent returns how much of the limit is still unspent, as
// a percentage rounded half-up at PercentScale on the ratio. A zero
// limit yields 0: zero-limit budgets are always exceeded by policy
// rather than a division error.
func RemainingPercent(spent, limit decimal.Decimal) decimal.Decimal {
	if limit.IsZero() {
		return decimal.Zero
	}
	return limit.Sub(spent).DivRound(limit, PercentScale).Mul(hundred)
}

// Classify maps a budget's spent/limit pair to a notification tier.
// Tiers are checked in fixed order on the remaining percentage; the
// first match wins, and anything above 75% remaining emits nothing.
func Classify(spent, limit decimal.Decimal) (NotificationType, bool) {
	percent := RemainingPercent(spent, limit)
	switch {
	case percent.Sign() <= 0:
		return NotificationExceeded, true
	case percent.LessThanOrEqual(decimal.NewFromInt(25)):
		return NotificationWarning25, true
	case percent.LessThanOrEqual(decimal.NewFromInt(50)):
		return NotificationWarning50, true
	case percent.LessThanOrEqual(decimal.NewFromInt(75)):
		return NotificationWarning75, true
	default:
		return "", false
	}
}

// Message returns the user-facing wording for a tier.
func (t NotificationType) Message() string {
	switch t {
	case NotificationExceeded:
		return "💀 RIP Budget! You've officially overspent"
	case NotificationWarning25:
		return "⚠️ Danger zone! Only 25% budget left"
	case NotificationWarning50:
		return "💸 Halfway to broke! 50% budget gone"
	case NotificationWarning75:
		return "🔥 Wallet is getting lighter! 75% spent"
	default:
		return ""
	}
}
