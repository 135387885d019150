package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseMonth(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2025-01", true},
		{"2025-12", true},
		{"2025-13", false},
		{"2025-00", false},
		{"2025-1", false},
		{"202501", false},
		{"", false},
	}
	for _, tc := range cases {
		_, err := ParseMonth(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q: unexpected error %v", tc.in, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidMonth) {
			t.Fatalf("%q: expected ErrInvalidMonth, got %v", tc.in, err)
		}
	}
}

func TestMonthBounds(t *testing.T) {
	m := Month("2025-02")
	start, end, err := m.Bounds()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start != time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("start = %v", start)
	}
	if end != time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("end = %v", end)
	}
}

func TestMonthOf(t *testing.T) {
	ts := time.Date(2025, 7, 31, 23, 30, 0, 0, time.FixedZone("UTC+2", 2*3600))
	if got := MonthOf(ts); got != Month("2025-07") {
		t.Fatalf("MonthOf = %q, want 2025-07", got)
	}
}

func TestBudgetValidate(t *testing.T) {
	valid := Budget{Month: "2025-03", Limit: dec("1000"), Currency: "EUR"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid budget rejected: %v", err)
	}

	cases := []struct {
		name string
		b    Budget
		want error
	}{
		{"zero limit", Budget{Month: "2025-03", Limit: dec("0"), Currency: "EUR"}, ErrInvalidAmount},
		{"negative limit", Budget{Month: "2025-03", Limit: dec("-5"), Currency: "EUR"}, ErrInvalidAmount},
		{"bad month", Budget{Month: "03-2025", Limit: dec("10"), Currency: "EUR"}, ErrInvalidMonth},
		{"bad currency", Budget{Month: "2025-03", Limit: dec("10"), Currency: "eur"}, ErrInvalidCurrency},
	}
	for _, tc := range cases {
		if err := tc.b.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestExpenseValidate(t *testing.T) {
	valid := Expense{
		Amount:     dec("12.34"),
		Currency:   "USD",
		Category:   "groceries",
		OccurredAt: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid expense rejected: %v", err)
	}

	bad := valid
	bad.Amount = dec("0")
	if err := bad.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount: got %v", err)
	}

	bad = valid
	bad.Category = "  "
	if err := bad.Validate(); !errors.Is(err, ErrEmptyCategory) {
		t.Fatalf("blank category: got %v", err)
	}
}

func TestRateSetValidate(t *testing.T) {
	ok := RateSet{Base: "USD", Rates: map[string]decimal.Decimal{"EUR": dec("0.9"), "BGN": dec("1.8")}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid rate set rejected: %v", err)
	}

	bad := RateSet{Base: "USD", Rates: map[string]decimal.Decimal{"EUR": dec("0")}}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("zero rate: got %v", err)
	}

	bad = RateSet{Base: "usd", Rates: nil}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("lowercase base: got %v", err)
	}
}
