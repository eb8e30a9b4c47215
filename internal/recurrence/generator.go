// Package recurrence expands a recurrence rule into dated transaction
// instances. It performs no I/O; persistence belongs to the caller.
package recurrence

import (
	"github.com/gaqno/financial-app-sub001/internal/domain"

	"github.com/google/uuid"
)

// MaxInstances bounds how many occurrences one rule may produce.
const MaxInstances = 24

// IDFunc mints record and group identifiers.
type IDFunc func() string

// NewUUID is the default IDFunc.
func NewUUID() string { return uuid.NewString() }

// Batch is the result of expanding one rule.
type Batch struct {
	GroupID   string
	Instances []domain.TransactionRecord
	// Truncated is set when the end date lies beyond MaxInstances occurrences.
	Truncated bool
}

// CapError describes the truncation, or returns nil when the batch reached
// the end date.
func (b *Batch) CapError() *domain.ErrRecurrenceCapExceeded {
	if !b.Truncated || len(b.Instances) == 0 {
		return nil
	}
	last := b.Instances[len(b.Instances)-1]
	return &domain.ErrRecurrenceCapExceeded{
		Max:      MaxInstances,
		EndDate:  last.RecurrenceRule.EndDate,
		LastDate: last.Date,
	}
}

// Occurrence returns the k-th date (k = 0 is start) of a series. Month based
// frequencies are computed from start so a clamped month never shifts the
// following ones.
func Occurrence(start domain.Date, freq domain.Frequency, k int) domain.Date {
	switch freq {
	case domain.FrequencyWeekly:
		return start.AddDays(7 * k)
	case domain.FrequencyBiweekly:
		return start.AddDays(14 * k)
	case domain.FrequencyMonthly:
		return start.AddMonthsClamped(k)
	case domain.FrequencyQuarterly:
		return start.AddMonthsClamped(3 * k)
	}
	return start
}

// Generate clones seed once per occurrence from seed.Date through
// rule.EndDate (inclusive), all sharing a fresh group id. Seed ids and
// timestamps are ignored; each instance gets a new id from newID.
func Generate(seed domain.TransactionRecord, rule domain.RecurrenceRule, newID IDFunc) (*Batch, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if seed.Date.IsZero() {
		return nil, &domain.ErrValidation{Field: "date", Message: "required"}
	}
	if rule.EndDate.Before(seed.Date) {
		return nil, &domain.ErrInvalidRange{Start: seed.Date, End: rule.EndDate}
	}
	if newID == nil {
		newID = NewUUID
	}

	batch := &Batch{GroupID: newID()}
	for k := 0; ; k++ {
		current := Occurrence(seed.Date, rule.Frequency, k)
		if current.After(rule.EndDate) {
			break
		}
		if k == MaxInstances {
			batch.Truncated = true
			break
		}

		inst := seed.Clone()
		inst.ID = newID()
		inst.Date = current
		inst.Value = domain.RoundValue(seed.Value)
		inst.RecurrenceGroupID = batch.GroupID
		r := rule
		inst.RecurrenceRule = &r
		batch.Instances = append(batch.Instances, inst)
	}
	return batch, nil
}
