package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budgetwatch/internal/amqp"
	"budgetwatch/internal/core"
	"budgetwatch/internal/log"
	"budgetwatch/internal/storage"
)

type fakeExpenseStore struct {
	nextID   int64
	expenses map[int64]storage.OwnedExpense
}

func newFakeExpenseStore() *fakeExpenseStore {
	return &fakeExpenseStore{nextID: 1, expenses: map[int64]storage.OwnedExpense{}}
}

func (f *fakeExpenseStore) CreateExpense(_ context.Context, userEmail string, e core.Expense) (int64, error) {
	id := f.nextID
	f.nextID++
	e.ID = id
	f.expenses[id] = storage.OwnedExpense{Expense: e, UserEmail: userEmail}
	return id, nil
}

func (f *fakeExpenseStore) UpdateExpense(_ context.Context, id int64, e core.Expense) error {
	owned, ok := f.expenses[id]
	if !ok {
		return fmt.Errorf("expense %d not found", id)
	}
	e.ID = id
	owned.Expense = e
	f.expenses[id] = owned
	return nil
}

func (f *fakeExpenseStore) DeleteExpense(_ context.Context, id int64) error {
	delete(f.expenses, id)
	return nil
}

func (f *fakeExpenseStore) ExpenseByID(_ context.Context, id int64) (storage.OwnedExpense, error) {
	owned, ok := f.expenses[id]
	if !ok {
		return storage.OwnedExpense{}, fmt.Errorf("expense %d not found", id)
	}
	return owned, nil
}

type capturingPublisher struct {
	published []*amqp.Envelope
	err       error
}

func (p *capturingPublisher) Publish(_ context.Context, env *amqp.Envelope) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, env)
	return nil
}

func testLogger() *log.Logger {
	return log.New(log.Config{Level: slog.LevelError})
}

func validExpense() core.Expense {
	return core.Expense{
		Amount:     decimal.RequireFromString("25.00"),
		Currency:   "EUR",
		Category:   "groceries",
		OccurredAt: time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC),
	}
}

func TestCreateExpensePublishesAfterSave(t *testing.T) {
	store := newFakeExpenseStore()
	publisher := &capturingPublisher{}
	service := NewExpenseService(store, publisher, testLogger())

	id, err := service.CreateExpense(context.Background(), "sam@example.com", validExpense())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(publisher.published) != 1 {
		t.Fatalf("published %d events", len(publisher.published))
	}

	env := publisher.published[0]
	if env.Type != amqp.TypeExpenseCreated {
		t.Fatalf("event type = %q", env.Type)
	}
	if env.Expense.ExpenseID != id {
		t.Fatalf("event expense id = %d, created id = %d", env.Expense.ExpenseID, id)
	}
	if env.Expense.Month != core.Month("2025-03") {
		t.Fatalf("event month = %q", env.Expense.Month)
	}
}

func TestCreateExpenseRejectsInvalid(t *testing.T) {
	store := newFakeExpenseStore()
	publisher := &capturingPublisher{}
	service := NewExpenseService(store, publisher, testLogger())

	bad := validExpense()
	bad.Amount = decimal.Zero
	_, err := service.CreateExpense(context.Background(), "sam@example.com", bad)
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if len(store.expenses) != 0 || len(publisher.published) != 0 {
		t.Fatal("invalid expense must not be stored or announced")
	}
}

func TestCreateExpensePublishFailureDoesNotFailCreate(t *testing.T) {
	store := newFakeExpenseStore()
	publisher := &capturingPublisher{err: errors.New("broker down")}
	service := NewExpenseService(store, publisher, testLogger())

	id, err := service.CreateExpense(context.Background(), "sam@example.com", validExpense())
	if err != nil {
		t.Fatalf("create failed on publish error: %v", err)
	}
	if _, ok := store.expenses[id]; !ok {
		t.Fatal("expense not stored")
	}
}

func TestCreateExpenseNilPublisher(t *testing.T) {
	service := NewExpenseService(newFakeExpenseStore(), nil, testLogger())
	if _, err := service.CreateExpense(context.Background(), "sam@example.com", validExpense()); err != nil {
		t.Fatalf("nil publisher should not fail the write: %v", err)
	}
}

func TestUpdateExpenseAcrossMonths(t *testing.T) {
	store := newFakeExpenseStore()
	publisher := &capturingPublisher{}
	service := NewExpenseService(store, publisher, testLogger())

	id, err := service.CreateExpense(context.Background(), "sam@example.com", validExpense())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	moved := validExpense()
	moved.OccurredAt = time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)
	if err := service.UpdateExpense(context.Background(), id, moved); err != nil {
		t.Fatalf("update: %v", err)
	}

	env := publisher.published[len(publisher.published)-1]
	if env.Type != amqp.TypeExpenseUpdated {
		t.Fatalf("event type = %q", env.Type)
	}
	if env.Expense.Month != core.Month("2025-04") {
		t.Fatalf("event month = %q", env.Expense.Month)
	}
	if env.Expense.PreviousMonth != core.Month("2025-03") {
		t.Fatalf("previous month = %q", env.Expense.PreviousMonth)
	}
}

func TestUpdateExpenseSameMonthOmitsPrevious(t *testing.T) {
	store := newFakeExpenseStore()
	publisher := &capturingPublisher{}
	service := NewExpenseService(store, publisher, testLogger())

	id, _ := service.CreateExpense(context.Background(), "sam@example.com", validExpense())

	changed := validExpense()
	changed.Amount = decimal.RequireFromString("99.99")
	if err := service.UpdateExpense(context.Background(), id, changed); err != nil {
		t.Fatalf("update: %v", err)
	}

	env := publisher.published[len(publisher.published)-1]
	if env.Expense.PreviousMonth != "" {
		t.Fatalf("previous month = %q for same-month update", env.Expense.PreviousMonth)
	}
}

func TestDeleteExpensePublishesDeletion(t *testing.T) {
	store := newFakeExpenseStore()
	publisher := &capturingPublisher{}
	service := NewExpenseService(store, publisher, testLogger())

	id, _ := service.CreateExpense(context.Background(), "sam@example.com", validExpense())
	if err := service.DeleteExpense(context.Background(), id); err != nil {
		t.Fatalf("delete: %v", err)
	}

	env := publisher.published[len(publisher.published)-1]
	if env.Type != amqp.TypeExpenseDeleted {
		t.Fatalf("event type = %q", env.Type)
	}
	if env.Expense.Month != core.Month("2025-03") {
		t.Fatalf("event month = %q", env.Expense.Month)
	}
	if _, ok := store.expenses[id]; ok {
		t.Fatal("expense still stored after delete")
	}
}
