package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	NotificationExceeded  NotificationType = "BUDGET_EXCEEDED"
	NotificationWarning25 NotificationType = "BUDGET_WARNING_25"
	NotificationWarning50 NotificationType = "BUDGET_WARNING_50"
	NotificationWarning75 NotificationType = "BUDGET_WARNING_75"
)

type (
	NotificationType string

	// Budget tracks one user's spending limit for a single month.
	// Spent is derived by the ledger and never set directly.
	Budget struct {
		ID        int64
		UserID    int64
		UserEmail string
		Month     Month
		Limit     decimal.Decimal
		Spent     decimal.Decimal
		Currency  string
	}

	Expense struct {
		ID          int64
		UserID      int64
		Amount      decimal.Decimal
		Currency    string
		Category    string
		OccurredAt  time.Time
		Description string
	}

	// RateSet is one snapshot of a forex feed: every rate is quoted
	// against Base (units of currency per one unit of base).
	RateSet struct {
		Base  string
		Rates map[string]decimal.Decimal
	}

	Notification struct {
		ID        int64
		UserID    int64
		Type      NotificationType
		Message   string
		BudgetID  int64
		ExpenseID *int64
		CreatedAt time.Time
	}
)

var (
	ErrBudgetNotFound   = errors.New("budget not found")
	ErrCurrencyNotFound = errors.New("currency not found")
	ErrRateUnavailable  = errors.New("exchange rate unavailable")
	ErrBaseMismatch     = errors.New("rate set base currency mismatch")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidRate      = errors.New("invalid rate")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidCurrency  = errors.New("invalid currency code")
	ErrDuplicateBudget  = errors.New("budget already exists for month")
	ErrEmptyCategory    = errors.New("empty category")
)

func validCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func (b Budget) Validate() error {
	if err := b.Month.Validate(); err != nil {
		return err
	}
	if b.Limit.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !validCurrencyCode(b.Currency) {
		return ErrInvalidCurrency
	}
	return nil
}

func (e Expense) Validate() error {
	if e.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !validCurrencyCode(e.Currency) {
		return ErrInvalidCurrency
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.OccurredAt.IsZero() {
		return errors.New("occurred_at cannot be zero")
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (rs RateSet) Validate() error {
	if !validCurrencyCode(rs.Base) {
		return ErrInvalidCurrency
	}
	for code, rate := range rs.Rates {
		if !validCurrencyCode(code) {
			return ErrInvalidCurrency
		}
		if rate.Sign() <= 0 {
			return ErrInvalidRate
		}
	}
	return nil
}
