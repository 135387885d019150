package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"budgetwatch/internal/amqp"
	"budgetwatch/internal/core"
)

type fakeBudgetStore struct {
	nextID  int64
	budgets map[string]core.Budget // keyed by email|month
	notes   []core.Notification
}

func newFakeBudgetStore() *fakeBudgetStore {
	return &fakeBudgetStore{nextID: 1, budgets: map[string]core.Budget{}}
}

func (f *fakeBudgetStore) CreateBudget(_ context.Context, userEmail string, b core.Budget) (int64, error) {
	key := userEmail + "|" + b.Month.String()
	if _, exists := f.budgets[key]; exists {
		return 0, fmt.Errorf("budget for %s %s: %w", userEmail, b.Month, core.ErrDuplicateBudget)
	}
	id := f.nextID
	f.nextID++
	b.ID = id
	f.budgets[key] = b
	return id, nil
}

func (f *fakeBudgetStore) NotificationsByUser(context.Context, string) ([]core.Notification, error) {
	return f.notes, nil
}

func validBudget() core.Budget {
	return core.Budget{
		Month:    core.Month("2025-03"),
		Limit:    decimal.NewFromInt(1000),
		Currency: "EUR",
	}
}

func TestCreateBudgetPublishesAfterSave(t *testing.T) {
	store := newFakeBudgetStore()
	publisher := &capturingPublisher{}
	service := NewBudgetService(store, publisher, testLogger())

	id, err := service.CreateBudget(context.Background(), "sam@example.com", validBudget())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(publisher.published) != 1 {
		t.Fatalf("published %d events", len(publisher.published))
	}
	env := publisher.published[0]
	if env.Type != amqp.TypeBudgetCreated {
		t.Fatalf("event type = %q", env.Type)
	}
	if env.Budget.BudgetID != id || env.Budget.Month != core.Month("2025-03") {
		t.Fatalf("event payload = %+v", env.Budget)
	}
}

func TestCreateBudgetDuplicateMonth(t *testing.T) {
	store := newFakeBudgetStore()
	publisher := &capturingPublisher{}
	service := NewBudgetService(store, publisher, testLogger())

	ctx := context.Background()
	if _, err := service.CreateBudget(ctx, "sam@example.com", validBudget()); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := service.CreateBudget(ctx, "sam@example.com", validBudget())
	if !errors.Is(err, core.ErrDuplicateBudget) {
		t.Fatalf("expected ErrDuplicateBudget, got %v", err)
	}
	if len(publisher.published) != 1 {
		t.Fatal("duplicate create must not publish")
	}
}

func TestCreateBudgetRejectsInvalid(t *testing.T) {
	service := NewBudgetService(newFakeBudgetStore(), &capturingPublisher{}, testLogger())

	bad := validBudget()
	bad.Limit = decimal.NewFromInt(-10)
	_, err := service.CreateBudget(context.Background(), "sam@example.com", bad)
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}
