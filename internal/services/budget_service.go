package services

import (
	"context"
	"fmt"

	"budgetwatch/internal/amqp"
	"budgetwatch/internal/core"
	"budgetwatch/internal/log"
)

// BudgetStore is the slice of the repository the service writes through.
type BudgetStore interface {
	CreateBudget(ctx context.Context, userEmail string, b core.Budget) (int64, error)
	NotificationsByUser(ctx context.Context, email string) ([]core.Notification, error)
}

type BudgetService struct {
	store  BudgetStore
	events Publisher
	log    *log.Logger
}

func NewBudgetService(store BudgetStore, events Publisher, logger *log.Logger) *BudgetService {
	return &BudgetService{
		store:  store,
		events: events,
		log:    logger.WithComponent(log.ComponentBudget),
	}
}

// CreateBudget stores a budget and announces it. The announcement is
// what seeds spent for months that already have expenses. At most one
// budget may exist per (user, month); a second create fails with
// core.ErrDuplicateBudget.
func (s *BudgetService) CreateBudget(ctx context.Context, userEmail string, b core.Budget) (int64, error) {
	if err := b.Validate(); err != nil {
		return 0, fmt.Errorf("validate budget: %w", err)
	}

	id, err := s.store.CreateBudget(ctx, userEmail, b)
	if err != nil {
		return 0, fmt.Errorf("save budget: %w", err)
	}

	if s.events == nil {
		s.log.WarnContext(ctx, "Event publisher not available, skipping event",
			log.FieldEventType, amqp.TypeBudgetCreated)
		return id, nil
	}
	if err := s.events.Publish(ctx, amqp.NewBudgetCreated(id, userEmail, b.Month)); err != nil {
		s.log.ErrorContext(ctx, "Failed to publish event",
			log.FieldError, err,
			log.FieldEventType, amqp.TypeBudgetCreated,
			log.FieldBudgetID, id)
	}

	return id, nil
}

// Notifications lists a user's alerts, newest first.
func (s *BudgetService) Notifications(ctx context.Context, userEmail string) ([]core.Notification, error) {
	notifications, err := s.store.NotificationsByUser(ctx, userEmail)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}
