package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gaqno/financial-app-sub001/internal/domain"
	"github.com/gaqno/financial-app-sub001/internal/infra/memstore"
)

func record(id string, day int, group string) domain.TransactionRecord {
	return domain.TransactionRecord{
		ID:                id,
		Date:              domain.NewDate(2025, time.May, day),
		Description:       "Academia",
		Type:              domain.TypeExpense,
		Status:            domain.StatusPending,
		RecurrenceGroupID: group,
		RecurrenceRule:    &domain.RecurrenceRule{Frequency: domain.FrequencyWeekly, EndDate: domain.NewDate(2025, time.May, 31)},
	}
}

func TestStore_PutGetList(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	if err := s.Put(ctx, record("b", 10, "g1"), record("a", 3, "g1"), record("c", 10, "")); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Date.String() != "2025-05-03" {
		t.Errorf("expected 2025-05-03, got %s", got.Date)
	}

	all, _ := s.List(ctx, domain.TransactionFilter{})
	if len(all) != 3 || all[0].ID != "a" || all[1].ID != "b" || all[2].ID != "c" {
		t.Fatalf("unexpected order: %+v", all)
	}

	chain, _ := s.List(ctx, domain.TransactionFilter{GroupID: "g1"})
	if len(chain) != 2 {
		t.Errorf("expected 2 chain members, got %d", len(chain))
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	_ = s.Put(ctx, record("a", 3, "g1"))

	got, _ := s.Get(ctx, "a")
	got.Description = "changed"
	got.RecurrenceRule.Frequency = domain.FrequencyMonthly

	again, _ := s.Get(ctx, "a")
	if again.Description != "Academia" || again.RecurrenceRule.Frequency != domain.FrequencyWeekly {
		t.Error("store state was modified through a returned record")
	}
}

func TestStore_GetMissing(t *testing.T) {
	s := memstore.New()

	_, err := s.Get(context.Background(), "nope")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	_ = s.Put(ctx, record("a", 3, "g1"), record("b", 10, "g1"))

	if err := s.Delete(ctx, "a", "unknown"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 record left, got %d", s.Len())
	}
}

func TestStore_PutRejectsEmptyID(t *testing.T) {
	s := memstore.New()

	err := s.Put(context.Background(), record("a", 3, ""), record("", 4, ""))
	if err == nil {
		t.Fatal("expected error for empty id")
	}
	if s.Len() != 0 {
		t.Error("a rejected batch must not be partially written")
	}
}
