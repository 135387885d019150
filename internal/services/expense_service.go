// Package services implements the write paths that feed the alert
// engine: each mutation is stored first, then announced as an event.
// Publishing happens strictly after the write committed, so a consumer
// reading "all expenses for the month" always sees the triggering row.
package services

import (
	"context"
	"fmt"

	"budgetwatch/internal/amqp"
	"budgetwatch/internal/core"
	"budgetwatch/internal/log"
	"budgetwatch/internal/storage"
)

// Publisher sends an event envelope to the alert queue.
type Publisher interface {
	Publish(ctx context.Context, env *amqp.Envelope) error
}

// ExpenseStore is the slice of the repository the service writes through.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, userEmail string, e core.Expense) (int64, error)
	UpdateExpense(ctx context.Context, id int64, e core.Expense) error
	DeleteExpense(ctx context.Context, id int64) error
	ExpenseByID(ctx context.Context, id int64) (storage.OwnedExpense, error)
}

type ExpenseService struct {
	store  ExpenseStore
	events Publisher
	log    *log.Logger
}

func NewExpenseService(store ExpenseStore, events Publisher, logger *log.Logger) *ExpenseService {
	return &ExpenseService{
		store:  store,
		events: events,
		log:    logger.WithComponent(log.ComponentExpense),
	}
}

// CreateExpense stores the expense and announces it. A failed publish
// is logged, never surfaced: the expense is already durably saved and
// the engine self-heals on the next event for that month.
func (s *ExpenseService) CreateExpense(ctx context.Context, userEmail string, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, fmt.Errorf("validate expense: %w", err)
	}

	id, err := s.store.CreateExpense(ctx, userEmail, e)
	if err != nil {
		return 0, fmt.Errorf("save expense: %w", err)
	}

	s.publish(ctx, amqp.NewExpenseCreated(id, userEmail, e.Amount, e.Currency, core.MonthOf(e.OccurredAt)))
	return id, nil
}

// UpdateExpense rewrites an expense and announces the change. When the
// update moved the expense into a different month, the event carries
// the previous month too, so both budgets recalculate.
func (s *ExpenseService) UpdateExpense(ctx context.Context, id int64, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("validate expense: %w", err)
	}

	previous, err := s.store.ExpenseByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load expense %d: %w", id, err)
	}

	if err := s.store.UpdateExpense(ctx, id, e); err != nil {
		return fmt.Errorf("update expense %d: %w", id, err)
	}

	s.publish(ctx, amqp.NewExpenseUpdated(
		id, previous.UserEmail, e.Amount, e.Currency,
		core.MonthOf(e.OccurredAt), core.MonthOf(previous.OccurredAt)))
	return nil
}

// DeleteExpense removes an expense and announces the removal so the
// owning budget's spent total shrinks accordingly.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id int64) error {
	previous, err := s.store.ExpenseByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load expense %d: %w", id, err)
	}

	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}

	s.publish(ctx, amqp.NewExpenseDeleted(id, previous.UserEmail, core.MonthOf(previous.OccurredAt)))
	return nil
}

func (s *ExpenseService) publish(ctx context.Context, env *amqp.Envelope) {
	if s.events == nil {
		s.log.WarnContext(ctx, "Event publisher not available, skipping event",
			log.FieldEventType, env.Type)
		return
	}
	if err := s.events.Publish(ctx, env); err != nil {
		s.log.ErrorContext(ctx, "Failed to publish event",
			log.FieldError, err,
			log.FieldEventType, env.Type,
			log.FieldEventID, env.EventID)
	}
}
