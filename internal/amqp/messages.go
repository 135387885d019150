package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budgetwatch/internal/core"
)

// Event types routed through the budget alert queue.
const (
	TypeExpenseCreated = "expense.created"
	TypeExpenseUpdated = "expense.updated"
	TypeExpenseDeleted = "expense.deleted"
	TypeBudgetCreated  = "budget.created"
)

// Envelope is the wire form of every event. Exactly one of Expense or
// Budget is set, matching Type.
type Envelope struct {
	EventID   string        `json:"event_id"`
	Type      string        `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	Expense   *ExpenseEvent `json:"expense,omitempty"`
	Budget    *BudgetEvent  `json:"budget,omitempty"`
}

// ExpenseEvent describes an expense mutation. PreviousMonth is set
// only on updates that moved the expense into a different month, so
// both affected budgets get recalculated.
type ExpenseEvent struct {
	ExpenseID     int64           `json:"expense_id"`
	UserEmail     string          `json:"user_email"`
	Amount        decimal.Decimal `json:"amount"`
	CurrencyCode  string          `json:"currency_code"`
	Month         core.Month      `json:"month"`
	PreviousMonth core.Month      `json:"previous_month,omitempty"`
}

// BudgetEvent carries the owning user and month alongside the id so
// consumers can serialize work per (user, month) without a lookup.
type BudgetEvent struct {
	BudgetID  int64      `json:"budget_id"`
	UserEmail string     `json:"user_email"`
	Month     core.Month `json:"month"`
}

func newEnvelope(eventType string) *Envelope {
	return &Envelope{
		EventID:   uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

func NewExpenseCreated(expenseID int64, userEmail string, amount decimal.Decimal, currency string, month core.Month) *Envelope {
	env := newEnvelope(TypeExpenseCreated)
	env.Expense = &ExpenseEvent{
		ExpenseID:    expenseID,
		UserEmail:    userEmail,
		Amount:       amount,
		CurrencyCode: currency,
		Month:        month,
	}
	return env
}

func NewExpenseUpdated(expenseID int64, userEmail string, amount decimal.Decimal, currency string, month, previousMonth core.Month) *Envelope {
	env := newEnvelope(TypeExpenseUpdated)
	env.Expense = &ExpenseEvent{
		ExpenseID:    expenseID,
		UserEmail:    userEmail,
		Amount:       amount,
		CurrencyCode: currency,
		Month:        month,
	}
	if previousMonth != month {
		env.Expense.PreviousMonth = previousMonth
	}
	return env
}

func NewExpenseDeleted(expenseID int64, userEmail string, month core.Month) *Envelope {
	env := newEnvelope(TypeExpenseDeleted)
	env.Expense = &ExpenseEvent{
		ExpenseID: expenseID,
		UserEmail: userEmail,
		Month:     month,
	}
	return env
}

func NewBudgetCreated(budgetID int64, userEmail string, month core.Month) *Envelope {
	env := newEnvelope(TypeBudgetCreated)
	env.Budget = &BudgetEvent{
		BudgetID:  budgetID,
		UserEmail: userEmail,
		Month:     month,
	}
	return env
}

func (e *Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func EnvelopeFromJSON(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if err := env.validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *Envelope) validate() error {
	switch e.Type {
	case TypeExpenseCreated, TypeExpenseUpdated, TypeExpenseDeleted:
		if e.Expense == nil {
			return fmt.Errorf("%s event without expense payload", e.Type)
		}
	case TypeBudgetCreated:
		if e.Budget == nil {
			return fmt.Errorf("%s event without budget payload", e.Type)
		}
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}
