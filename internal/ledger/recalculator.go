// Package ledger maintains each budget's spent total. A recalculation
// always re-derives spent from the full expense set of the budget's
// month, so replaying the same event is safe and past drift heals on
// the next run.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"budgetwatch/internal/core"
	"budgetwatch/internal/log"
)

// BudgetStore is the persistence surface a recalculation touches.
type BudgetStore interface {
	BudgetByID(ctx context.Context, id int64) (core.Budget, error)
	BudgetByUserAndMonth(ctx context.Context, email string, month core.Month) (core.Budget, error)
	ExpensesForMonth(ctx context.Context, email string, month core.Month) ([]core.Expense, error)
	SaveRecalculation(ctx context.Context, budgetID int64, spent decimal.Decimal, n *core.Notification) error
	LatestNotificationType(ctx context.Context, budgetID int64) (core.NotificationType, bool, error)
}

// Converter converts an amount between two currency codes.
type Converter interface {
	Convert(ctx context.Context, from, to string, amount decimal.Decimal) (decimal.Decimal, error)
}

type Recalculator struct {
	store     BudgetStore
	converter Converter
	log       *log.Logger
}

func NewRecalculator(store BudgetStore, converter Converter, logger *log.Logger) *Recalculator {
	return &Recalculator{
		store:     store,
		converter: converter,
		log:       logger.WithComponent(log.ComponentLedger),
	}
}

// OnExpenseEvent recalculates the budget covering (userEmail, month).
// Expenses may exist for months no budget tracks; that case is a
// deliberate no-op, not an error. expenseID, when present, links the
// triggering expense into any emitted notification.
func (r *Recalculator) OnExpenseEvent(ctx context.Context, userEmail string, month core.Month, expenseID *int64) error {
	budget, err := r.store.BudgetByUserAndMonth(ctx, userEmail, month)
	if errors.Is(err, core.ErrBudgetNotFound) {
		r.log.DebugContext(ctx, "No budget for month, skipping recalculation",
			log.FieldUserEmail, userEmail,
			log.FieldMonth, month.String())
		return nil
	}
	if err != nil {
		return fmt.Errorf("look up budget for %s %s: %w", userEmail, month, err)
	}

	return r.recalculate(ctx, budget, expenseID)
}

// OnBudgetCreated recalculates a just-created budget so spent starts
// correct even when expenses predate the budget. Here a missing budget
// is an error: the creating transaction must already be visible.
func (r *Recalculator) OnBudgetCreated(ctx context.Context, budgetID int64) error {
	budget, err := r.store.BudgetByID(ctx, budgetID)
	if err != nil {
		return fmt.Errorf("look up budget %d: %w", budgetID, err)
	}

	return r.recalculate(ctx, budget, nil)
}

func (r *Recalculator) recalculate(ctx context.Context, budget core.Budget, expenseID *int64) error {
	expenses, err := r.store.ExpensesForMonth(ctx, budget.UserEmail, budget.Month)
	if err != nil {
		return fmt.Errorf("list expenses for %s %s: %w", budget.UserEmail, budget.Month, err)
	}

	spent := decimal.Zero
	for _, expense := range expenses {
		amount := expense.Amount
		if expense.Currency != budget.Currency {
			amount, err = r.converter.Convert(ctx, expense.Currency, budget.Currency, expense.Amount)
			if err != nil {
				return fmt.Errorf("normalize expense %d: %w", expense.ID, err)
			}
		}
		spent = spent.Add(amount)
	}

	notification, err := r.buildNotification(ctx, budget, spent, expenseID)
	if err != nil {
		return err
	}

	if err := r.store.SaveRecalculation(ctx, budget.ID, spent, notification); err != nil {
		return fmt.Errorf("persist recalculation for budget %d: %w", budget.ID, err)
	}

	r.log.InfoContext(ctx, "Budget recalculated",
		log.FieldBudgetID, budget.ID,
		log.FieldUserEmail, budget.UserEmail,
		log.FieldMonth, budget.Month.String(),
		log.FieldSpent, spent.String(),
		log.FieldLimit, budget.Limit.String())
	return nil
}

// buildNotification runs the threshold classifier and suppresses the
// result when the budget's newest notification already carries the
// same tier, so replayed events never duplicate alerts.
func (r *Recalculator) buildNotification(ctx context.Context, budget core.Budget, spent decimal.Decimal, expenseID *int64) (*core.Notification, error) {
	tier, ok := core.Classify(spent, budget.Limit)
	if !ok {
		return nil, nil
	}

	latest, exists, err := r.store.LatestNotificationType(ctx, budget.ID)
	if err != nil {
		return nil, fmt.Errorf("check last notification for budget %d: %w", budget.ID, err)
	}
	if exists && latest == tier {
		return nil, nil
	}

	r.log.InfoContext(ctx, "Budget threshold crossed",
		log.FieldBudgetID, budget.ID,
		log.FieldTier, string(tier))

	return &core.Notification{
		UserID:    budget.UserID,
		Type:      tier,
		Message:   tier.Message(),
		BudgetID:  budget.ID,
		ExpenseID: expenseID,
	}, nil
}
