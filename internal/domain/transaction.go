package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Transactions & recurrence
// ============================================================

type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
)

func (s TransactionStatus) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// Toggled returns the opposite status.
func (s TransactionStatus) Toggled() TransactionStatus {
	if s == StatusCompleted {
		return StatusPending
	}
	return StatusCompleted
}

type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyQuarterly:
		return true
	}
	return false
}

// Scope is the breadth of an edit or delete across a recurrence chain.
type Scope string

const (
	ScopeSingle Scope = "single"
	ScopeAll    Scope = "all"
)

func (s Scope) Valid() bool {
	return s == ScopeSingle || s == ScopeAll
}

// ParseScope defaults an empty scope to single.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeSingle:
		return ScopeSingle, nil
	case ScopeAll:
		return ScopeAll, nil
	}
	return "", &ErrValidation{Field: "scope", Message: "must be 'single' or 'all'"}
}

// RecurrenceRule is carried by every instance generated from it.
type RecurrenceRule struct {
	Frequency Frequency `json:"frequency"`
	EndDate   Date      `json:"end_date"`
}

func (r RecurrenceRule) Validate() error {
	if !r.Frequency.Valid() {
		return &ErrValidation{Field: "recurrence.frequency", Message: "must be one of weekly, biweekly, monthly, quarterly"}
	}
	if r.EndDate.IsZero() {
		return &ErrValidation{Field: "recurrence.end_date", Message: "required"}
	}
	return nil
}

// TransactionRecord is one dated financial entry. Instances generated from
// the same rule share RecurrenceGroupID.
type TransactionRecord struct {
	ID                string            `json:"id"`
	Date              Date              `json:"date"`
	Description       string            `json:"description"`
	Value             decimal.Decimal   `json:"value"`
	Type              TransactionType   `json:"type"`
	Category          string            `json:"category,omitempty"`
	Status            TransactionStatus `json:"status"`
	RecurrenceGroupID string            `json:"recurrence_group_id,omitempty"`
	RecurrenceRule    *RecurrenceRule   `json:"recurrence_rule,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// InChain reports whether the record belongs to a recurrence group.
func (t TransactionRecord) InChain() bool {
	return t.RecurrenceGroupID != ""
}

// Clone returns a copy that shares no pointers with t.
func (t TransactionRecord) Clone() TransactionRecord {
	c := t
	if t.RecurrenceRule != nil {
		rule := *t.RecurrenceRule
		c.RecurrenceRule = &rule
	}
	return c
}

// RoundValue stores money with at most 2 decimal places.
func RoundValue(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// CreateTransactionRequest is the form payload for a new transaction,
// optionally recurring.
type CreateTransactionRequest struct {
	Date        Date              `json:"date"`
	Description string            `json:"description"`
	Value       decimal.Decimal   `json:"value"`
	Type        TransactionType   `json:"type"`
	Category    string            `json:"category,omitempty"`
	Status      TransactionStatus `json:"status,omitempty"`
	Recurrence  *RecurrenceRule   `json:"recurrence,omitempty"`
}

func (r *CreateTransactionRequest) Validate() error {
	if r.Date.IsZero() {
		return &ErrValidation{Field: "date", Message: "required"}
	}
	if strings.TrimSpace(r.Description) == "" {
		return &ErrValidation{Field: "description", Message: "required"}
	}
	if !r.Type.Valid() {
		return &ErrValidation{Field: "type", Message: "must be 'income' or 'expense'"}
	}
	if r.Status != "" && !r.Status.Valid() {
		return &ErrValidation{Field: "status", Message: "must be 'pending' or 'completed'"}
	}
	if r.Recurrence != nil {
		return r.Recurrence.Validate()
	}
	return nil
}

// TransactionChanges is a partial update. Nil fields are left untouched.
type TransactionChanges struct {
	Date        *Date              `json:"date,omitempty"`
	Description *string            `json:"description,omitempty"`
	Value       *decimal.Decimal   `json:"value,omitempty"`
	Type        *TransactionType   `json:"type,omitempty"`
	Category    *string            `json:"category,omitempty"`
	Status      *TransactionStatus `json:"status,omitempty"`

	// Recurrence adds a rule to a record that is not part of a chain.
	Recurrence *RecurrenceRule `json:"recurrence,omitempty"`
	// RemoveRecurrence clears the rule; group membership is kept.
	RemoveRecurrence bool `json:"remove_recurrence,omitempty"`
}

func (c *TransactionChanges) Validate() error {
	if c.Date != nil && c.Date.IsZero() {
		return &ErrValidation{Field: "date", Message: "cannot be empty"}
	}
	if c.Description != nil && strings.TrimSpace(*c.Description) == "" {
		return &ErrValidation{Field: "description", Message: "cannot be empty"}
	}
	if c.Type != nil && !c.Type.Valid() {
		return &ErrValidation{Field: "type", Message: "must be 'income' or 'expense'"}
	}
	if c.Status != nil && !c.Status.Valid() {
		return &ErrValidation{Field: "status", Message: "must be 'pending' or 'completed'"}
	}
	if c.Recurrence != nil && c.RemoveRecurrence {
		return &ErrValidation{Field: "recurrence", Message: "cannot add and remove recurrence in the same edit"}
	}
	if c.Recurrence != nil {
		return c.Recurrence.Validate()
	}
	return nil
}

// ApplyShared writes every non-date field of c onto rec. Those are the fields
// that propagate across a chain on an "all" edit.
func (c *TransactionChanges) ApplyShared(rec *TransactionRecord) {
	if c.Description != nil {
		rec.Description = *c.Description
	}
	if c.Value != nil {
		rec.Value = RoundValue(*c.Value)
	}
	if c.Type != nil {
		rec.Type = *c.Type
	}
	if c.Category != nil {
		rec.Category = *c.Category
	}
	if c.Status != nil {
		rec.Status = *c.Status
	}
	if c.RemoveRecurrence {
		rec.RecurrenceRule = nil
	}
}

// TransactionFilter narrows a listing. Zero fields match everything.
type TransactionFilter struct {
	From    Date
	To      Date
	Status  TransactionStatus
	Type    TransactionType
	GroupID string
}

func (f TransactionFilter) Matches(t TransactionRecord) bool {
	if !f.From.IsZero() && t.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To) {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.GroupID != "" && t.RecurrenceGroupID != f.GroupID {
		return false
	}
	return true
}

// ============================================================
// API responses
// ============================================================

// CreateTransactionResponse is returned by POST /v1/transactions.
type CreateTransactionResponse struct {
	Transactions      []TransactionRecord `json:"transactions"`
	RecurrenceGroupID string              `json:"recurrence_group_id,omitempty"`
	Truncated         bool                `json:"truncated"`
	Warning           string              `json:"warning,omitempty"`
}

// DeleteResult is returned by a scoped delete.
type DeleteResult struct {
	Removed       []TransactionRecord `json:"removed"`
	UndoToken     string              `json:"undo_token"`
	UndoExpiresAt time.Time           `json:"undo_expires_at"`
}

// ChainState is the lifecycle state of a recurrence chain.
type ChainState string

const (
	ChainNonRecurring ChainState = "non_recurring"
	ChainActive       ChainState = "recurring_active"
	ChainFrozen       ChainState = "recurring_frozen"
	ChainRemoved      ChainState = "removed"
)

// Chain is returned by GET /v1/recurrences/{groupId}.
type Chain struct {
	GroupID   string              `json:"group_id"`
	State     ChainState          `json:"state"`
	Instances []TransactionRecord `json:"instances"`
}

// Summary aggregates values over a date range.
type Summary struct {
	From           string          `json:"from,omitempty"`
	To             string          `json:"to,omitempty"`
	Income         decimal.Decimal `json:"income"`
	Expense        decimal.Decimal `json:"expense"`
	Balance        decimal.Decimal `json:"balance"`
	PendingCount   int             `json:"pending_count"`
	CompletedCount int             `json:"completed_count"`
}
