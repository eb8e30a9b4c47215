package recurrence_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gaqno/financial-app-sub001/internal/domain"
	"github.com/gaqno/financial-app-sub001/internal/recurrence"

	"github.com/shopspring/decimal"
)

func seqIDs() recurrence.IDFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func seed(date domain.Date) domain.TransactionRecord {
	return domain.TransactionRecord{
		ID:          "seed",
		Date:        date,
		Description: "Aluguel",
		Value:       decimal.RequireFromString("1500.555"),
		Type:        domain.TypeExpense,
		Category:    "Moradia",
		Status:      domain.StatusPending,
	}
}

func TestGenerate_MonthEndClamp(t *testing.T) {
	rule := domain.RecurrenceRule{
		Frequency: domain.FrequencyMonthly,
		EndDate:   domain.NewDate(2025, time.April, 30),
	}

	batch, err := recurrence.Generate(seed(domain.NewDate(2025, time.January, 31)), rule, seqIDs())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := []string{"2025-01-31", "2025-02-28", "2025-03-31", "2025-04-30"}
	if len(batch.Instances) != len(want) {
		t.Fatalf("expected %d instances, got %d", len(want), len(batch.Instances))
	}
	for i, inst := range batch.Instances {
		if inst.Date.String() != want[i] {
			t.Errorf("instance %d: expected %s, got %s", i, want[i], inst.Date)
		}
	}
	if batch.Truncated {
		t.Error("expected batch not to be truncated")
	}
}

func TestGenerate_CapEnforcement(t *testing.T) {
	start := domain.NewDate(2025, time.January, 1)
	rule := domain.RecurrenceRule{
		Frequency: domain.FrequencyWeekly,
		EndDate:   domain.NewDate(2030, time.January, 1),
	}

	batch, err := recurrence.Generate(seed(start), rule, seqIDs())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(batch.Instances) != recurrence.MaxInstances {
		t.Fatalf("expected %d instances, got %d", recurrence.MaxInstances, len(batch.Instances))
	}
	if !batch.Truncated {
		t.Error("expected batch to be flagged as truncated")
	}
	capErr := batch.CapError()
	if capErr == nil {
		t.Fatal("expected cap error for truncated batch")
	}
	if capErr.LastDate.String() != start.AddDays(7*23).String() {
		t.Errorf("unexpected last date %s", capErr.LastDate)
	}
}

func TestGenerate_ExactlyCapIsNotTruncated(t *testing.T) {
	start := domain.NewDate(2025, time.January, 1)
	rule := domain.RecurrenceRule{
		Frequency: domain.FrequencyWeekly,
		EndDate:   start.AddDays(7 * (recurrence.MaxInstances - 1)),
	}

	batch, err := recurrence.Generate(seed(start), rule, seqIDs())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(batch.Instances) != recurrence.MaxInstances {
		t.Fatalf("expected %d instances, got %d", recurrence.MaxInstances, len(batch.Instances))
	}
	if batch.Truncated {
		t.Error("a series ending exactly at the cap must not be flagged")
	}
}

func TestGenerate_InvalidRange(t *testing.T) {
	start := domain.NewDate(2025, time.March, 10)
	rule := domain.RecurrenceRule{
		Frequency: domain.FrequencyMonthly,
		EndDate:   start.AddDays(-1),
	}

	batch, err := recurrence.Generate(seed(start), rule, seqIDs())
	var rangeErr *domain.ErrInvalidRange
	if !errors.As(err, &rangeErr) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if batch != nil {
		t.Errorf("expected no instances, got %d", len(batch.Instances))
	}
}

func TestGenerate_SameDayProducesOne(t *testing.T) {
	start := domain.NewDate(2025, time.March, 10)
	rule := domain.RecurrenceRule{Frequency: domain.FrequencyQuarterly, EndDate: start}

	batch, err := recurrence.Generate(seed(start), rule, seqIDs())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(batch.Instances) != 1 {
		t.Fatalf("expected 1 instance, got %d", len(batch.Instances))
	}
}

func TestGenerate_InvalidFrequency(t *testing.T) {
	start := domain.NewDate(2025, time.March, 10)
	rule := domain.RecurrenceRule{Frequency: "daily", EndDate: start.AddDays(30)}

	_, err := recurrence.Generate(seed(start), rule, seqIDs())
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestGenerate_InstancesShareGroupAndCloneSeed(t *testing.T) {
	start := domain.NewDate(2025, time.January, 6)
	rule := domain.RecurrenceRule{Frequency: domain.FrequencyBiweekly, EndDate: domain.NewDate(2025, time.March, 3)}

	batch, err := recurrence.Generate(seed(start), rule, seqIDs())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(batch.Instances) != 5 {
		t.Fatalf("expected 5 instances, got %d", len(batch.Instances))
	}

	ids := map[string]bool{}
	for i, inst := range batch.Instances {
		if inst.RecurrenceGroupID != batch.GroupID {
			t.Errorf("instance %d: expected group %s, got %s", i, batch.GroupID, inst.RecurrenceGroupID)
		}
		if inst.ID == "seed" || ids[inst.ID] {
			t.Errorf("instance %d: id %q is not fresh", i, inst.ID)
		}
		ids[inst.ID] = true
		if inst.Description != "Aluguel" || inst.Category != "Moradia" || inst.Status != domain.StatusPending {
			t.Errorf("instance %d: seed fields not cloned: %+v", i, inst)
		}
		if !inst.Value.Equal(decimal.RequireFromString("1500.56")) {
			t.Errorf("instance %d: expected value rounded to 1500.56, got %s", i, inst.Value)
		}
		if inst.RecurrenceRule == nil || inst.RecurrenceRule.Frequency != domain.FrequencyBiweekly {
			t.Errorf("instance %d: missing rule metadata", i)
		}
		if i > 0 && !inst.Date.After(batch.Instances[i-1].Date) {
			t.Errorf("instance %d: dates not ascending", i)
		}
	}

	batch.Instances[0].RecurrenceRule.Frequency = domain.FrequencyWeekly
	if batch.Instances[1].RecurrenceRule.Frequency != domain.FrequencyBiweekly {
		t.Error("instances must not share rule pointers")
	}
}

func TestOccurrence_Quarterly(t *testing.T) {
	start := domain.NewDate(2025, time.November, 30)
	got := recurrence.Occurrence(start, domain.FrequencyQuarterly, 1)
	if got.String() != "2026-02-28" {
		t.Errorf("expected 2026-02-28, got %s", got)
	}
	got = recurrence.Occurrence(start, domain.FrequencyQuarterly, 2)
	if got.String() != "2026-05-30" {
		t.Errorf("expected 2026-05-30, got %s", got)
	}
}
