package postgres

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/gaqno/financial-app-sub001/internal/domain"

	"github.com/shopspring/decimal"
)

func TestWhereClause_Empty(t *testing.T) {
	where, args := whereClause(domain.TransactionFilter{})
	if where != "" || len(args) != 0 {
		t.Errorf("expected empty clause, got %q %v", where, args)
	}
}

func TestWhereClause_NumbersPlaceholders(t *testing.T) {
	where, args := whereClause(domain.TransactionFilter{
		From:    domain.NewDate(2025, time.January, 1),
		Status:  domain.StatusPending,
		GroupID: "g1",
	})

	want := " WHERE date >= $1 AND status = $2 AND recurrence_group_id = $3"
	if where != want {
		t.Errorf("expected %q, got %q", want, where)
	}
	if len(args) != 3 || args[2] != "g1" {
		t.Errorf("unexpected args %v", args)
	}
}

func TestUpsertArgs_NullableColumns(t *testing.T) {
	args := upsertArgs(domain.TransactionRecord{
		ID:    "a",
		Date:  domain.NewDate(2025, time.March, 1),
		Value: decimal.RequireFromString("12.5"),
		Type:  domain.TypeIncome,
	})

	if args[3] != "12.50" {
		t.Errorf("expected value 12.50, got %v", args[3])
	}
	if args[5].(*string) != nil || args[7].(*string) != nil || args[9].(*time.Time) != nil {
		t.Error("expected nil category, group and end date")
	}
}

// fakeRow assigns values to Scan destinations positionally.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

func strPtr(s string) *string { return &s }

func TestScanRecord_RecurringRow(t *testing.T) {
	created := time.Date(2025, time.January, 2, 15, 4, 5, 0, time.UTC)
	endDate := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)

	rec, err := scanRecord(fakeRow{values: []any{
		"id-1",
		time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC),
		"Aluguel",
		"1500.50",
		"expense",
		strPtr("Moradia"),
		"pending",
		strPtr("group-1"),
		strPtr("monthly"),
		&endDate,
		created,
		created,
	}})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !rec.Date.Equal(domain.NewDate(2025, time.January, 10)) {
		t.Errorf("expected date 2025-01-10, got %s", rec.Date)
	}
	if !rec.Value.Equal(decimal.RequireFromString("1500.5")) {
		t.Errorf("expected value 1500.50, got %s", rec.Value)
	}
	if rec.Type != domain.TypeExpense || rec.Status != domain.StatusPending || rec.Category != "Moradia" {
		t.Errorf("unexpected enum fields %+v", rec)
	}
	if rec.RecurrenceGroupID != "group-1" || rec.RecurrenceRule == nil {
		t.Fatalf("expected chain membership, got %+v", rec)
	}
	if rec.RecurrenceRule.Frequency != domain.FrequencyMonthly || rec.RecurrenceRule.EndDate.String() != "2025-06-10" {
		t.Errorf("unexpected rule %+v", rec.RecurrenceRule)
	}
	if !rec.CreatedAt.Equal(created) {
		t.Errorf("expected created_at %s, got %s", created, rec.CreatedAt)
	}
}

func TestScanRecord_NullableColumns(t *testing.T) {
	now := time.Now().UTC()

	rec, err := scanRecord(fakeRow{values: []any{
		"id-2",
		time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		"Presente",
		"20.00",
		"expense",
		(*string)(nil),
		"completed",
		(*string)(nil),
		(*string)(nil),
		(*time.Time)(nil),
		now,
		now,
	}})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Category != "" || rec.InChain() || rec.RecurrenceRule != nil {
		t.Errorf("expected no category, group or rule, got %+v", rec)
	}
}

func TestScanRecord_BadValue(t *testing.T) {
	now := time.Now().UTC()

	_, err := scanRecord(fakeRow{values: []any{
		"id-3", now, "x", "not-a-number", "income", (*string)(nil), "pending",
		(*string)(nil), (*string)(nil), (*time.Time)(nil), now, now,
	}})
	if err == nil {
		t.Fatal("expected an error for a non-numeric value")
	}
}
