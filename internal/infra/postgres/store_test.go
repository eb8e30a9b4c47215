package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/gaqno/financial-app-sub001/internal/domain"
	"github.com/gaqno/financial-app-sub001/internal/infra/postgres"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// newStore connects to DATABASE_URL; the test is skipped without one.
func newStore(t *testing.T) *postgres.Store {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := postgres.Connect(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	store := postgres.New(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return store
}

func TestStore_RoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	groupID := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Microsecond)
	rule := &domain.RecurrenceRule{Frequency: domain.FrequencyMonthly, EndDate: domain.NewDate(2025, time.March, 10)}

	var records []domain.TransactionRecord
	for i := 0; i < 3; i++ {
		records = append(records, domain.TransactionRecord{
			ID:                uuid.NewString(),
			Date:              domain.NewDate(2025, time.January, 10).AddMonthsClamped(i),
			Description:       "Aluguel",
			Value:             decimal.RequireFromString("1500.5"),
			Type:              domain.TypeExpense,
			Category:          "Moradia",
			Status:            domain.StatusPending,
			RecurrenceGroupID: groupID,
			RecurrenceRule:    rule,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}
	ids := []string{records[0].ID, records[1].ID, records[2].ID}
	t.Cleanup(func() { _ = store.Delete(context.Background(), ids...) })

	if err := store.Put(ctx, records...); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.List(ctx, domain.TransactionFilter{GroupID: groupID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	for i, rec := range got {
		if !rec.Date.Equal(records[i].Date) || !rec.Value.Equal(records[i].Value) {
			t.Errorf("record %d: expected %s %s, got %s %s", i, records[i].Date, records[i].Value, rec.Date, rec.Value)
		}
		if rec.RecurrenceRule == nil || !rec.RecurrenceRule.EndDate.Equal(rule.EndDate) {
			t.Errorf("record %d: rule not round-tripped: %+v", i, rec.RecurrenceRule)
		}
	}

	// upsert updates in place
	records[1].Status = domain.StatusCompleted
	if err := store.Put(ctx, records[1]); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	one, err := store.Get(ctx, records[1].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if one.Status != domain.StatusCompleted {
		t.Errorf("expected completed, got %s", one.Status)
	}

	if err := store.Delete(ctx, ids...); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = store.Get(ctx, records[0].ID)
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestStore_PutIsAllOrNothing(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	groupID := uuid.NewString()
	now := time.Now().UTC()
	day := domain.NewDate(2025, time.May, 1)

	first := domain.TransactionRecord{
		ID: uuid.NewString(), Date: day, Description: "a", Value: decimal.NewFromInt(1),
		Type: domain.TypeIncome, Status: domain.StatusPending, RecurrenceGroupID: groupID,
		CreatedAt: now, UpdatedAt: now,
	}
	clash := first
	clash.ID = uuid.NewString()
	t.Cleanup(func() { _ = store.Delete(context.Background(), first.ID, clash.ID) })

	// same (group, date) twice violates the unique index, so neither row lands
	if err := store.Put(ctx, first, clash); err == nil {
		t.Fatal("expected the batch to fail")
	}
	got, err := store.List(ctx, domain.TransactionFilter{GroupID: groupID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no rows after a failed batch, got %d", len(got))
	}
}
