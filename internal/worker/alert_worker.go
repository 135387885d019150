// Package worker drives the alert engine off the event queue and runs
// the periodic rate refresh.
package worker

import (
	"context"
	"fmt"

	"budgetwatch/internal/amqp"
	"budgetwatch/internal/core"
	"budgetwatch/internal/log"
)

// Recalculator is the ledger surface the worker drives.
type Recalculator interface {
	OnExpenseEvent(ctx context.Context, userEmail string, month core.Month, expenseID *int64) error
	OnBudgetCreated(ctx context.Context, budgetID int64) error
}

// AlertWorker consumes budget events and triggers recalculations.
// Events addressing the same (user, month) run one at a time so two
// concurrent recomputes cannot overwrite each other's spent write;
// distinct budgets proceed in parallel.
type AlertWorker struct {
	recalc Recalculator
	locks  keyedMutex
	log    *log.Logger
}

func NewAlertWorker(recalc Recalculator, logger *log.Logger) *AlertWorker {
	return &AlertWorker{
		recalc: recalc,
		log:    logger.WithComponent(log.ComponentWorker),
	}
}

// Handle processes one event envelope. Returning an error makes the
// consumer nack the delivery back onto the queue; recalculation is
// idempotent, so redelivery is always safe.
func (w *AlertWorker) Handle(ctx context.Context, env *amqp.Envelope) error {
	switch env.Type {
	case amqp.TypeExpenseCreated:
		e := env.Expense
		expenseID := e.ExpenseID
		return w.recalcMonth(ctx, e.UserEmail, e.Month, &expenseID)

	case amqp.TypeExpenseUpdated:
		e := env.Expense
		expenseID := e.ExpenseID
		if err := w.recalcMonth(ctx, e.UserEmail, e.Month, &expenseID); err != nil {
			return err
		}
		// an expense that moved between months dirties both budgets
		if e.PreviousMonth != "" && e.PreviousMonth != e.Month {
			return w.recalcMonth(ctx, e.UserEmail, e.PreviousMonth, nil)
		}
		return nil

	case amqp.TypeExpenseDeleted:
		e := env.Expense
		return w.recalcMonth(ctx, e.UserEmail, e.Month, nil)

	case amqp.TypeBudgetCreated:
		b := env.Budget
		unlock := w.locks.lock(b.UserEmail + "|" + b.Month.String())
		defer unlock()
		return w.recalc.OnBudgetCreated(ctx, b.BudgetID)

	default:
		return fmt.Errorf("unknown event type %q", env.Type)
	}
}

func (w *AlertWorker) recalcMonth(ctx context.Context, userEmail string, month core.Month, expenseID *int64) error {
	unlock := w.locks.lock(userEmail + "|" + month.String())
	defer unlock()
	return w.recalc.OnExpenseEvent(ctx, userEmail, month, expenseID)
}
