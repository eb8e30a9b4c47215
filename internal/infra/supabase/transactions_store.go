package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gaqno/financial-app-sub001/internal/domain"
	"github.com/gaqno/financial-app-sub001/internal/infra/resilience"
	"github.com/gaqno/financial-app-sub001/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Transactions store: get, list, upsert, delete
// ============================================================

// transactionRow maps the table columns.
type transactionRow struct {
	ID                  string          `json:"id"`
	Date                string          `json:"date"`
	Description         string          `json:"description"`
	Value               decimal.Decimal `json:"value"`
	Type                string          `json:"type"`
	Category            *string         `json:"category"`
	Status              string          `json:"status"`
	RecurrenceGroupID   *string         `json:"recurrence_group_id"`
	RecurrenceFrequency *string         `json:"recurrence_frequency"`
	RecurrenceEndDate   *string         `json:"recurrence_end_date"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func toRow(t domain.TransactionRecord) transactionRow {
	row := transactionRow{
		ID:          t.ID,
		Date:        t.Date.String(),
		Description: t.Description,
		Value:       t.Value,
		Type:        string(t.Type),
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.Category != "" {
		row.Category = &t.Category
	}
	if t.RecurrenceGroupID != "" {
		row.RecurrenceGroupID = &t.RecurrenceGroupID
	}
	if t.RecurrenceRule != nil {
		freq := string(t.RecurrenceRule.Frequency)
		end := t.RecurrenceRule.EndDate.String()
		row.RecurrenceFrequency = &freq
		row.RecurrenceEndDate = &end
	}
	return row
}

func (r transactionRow) toDomain() (domain.TransactionRecord, error) {
	date, err := domain.ParseDate(r.Date)
	if err != nil {
		return domain.TransactionRecord{}, fmt.Errorf("row %s: %w", r.ID, err)
	}
	t := domain.TransactionRecord{
		ID:          r.ID,
		Date:        date,
		Description: r.Description,
		Value:       r.Value,
		Type:        domain.TransactionType(r.Type),
		Status:      domain.TransactionStatus(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Category != nil {
		t.Category = *r.Category
	}
	if r.RecurrenceGroupID != nil {
		t.RecurrenceGroupID = *r.RecurrenceGroupID
	}
	if r.RecurrenceFrequency != nil && r.RecurrenceEndDate != nil {
		end, err := domain.ParseDate(*r.RecurrenceEndDate)
		if err != nil {
			return domain.TransactionRecord{}, fmt.Errorf("row %s: %w", r.ID, err)
		}
		t.RecurrenceRule = &domain.RecurrenceRule{
			Frequency: domain.Frequency(*r.RecurrenceFrequency),
			EndDate:   end,
		}
	}
	return t, nil
}

func decodeRows(body []byte) ([]domain.TransactionRecord, error) {
	if len(body) == 0 {
		return []domain.TransactionRecord{}, nil
	}
	var rows []transactionRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	out := make([]domain.TransactionRecord, 0, len(rows))
	for _, r := range rows {
		t, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, id string) (*domain.TransactionRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", id))

	var records []domain.TransactionRecord
	err := c.execute(ctx, "get", func() error {
		q := url.Values{}
		q.Set("id", "eq."+id)
		q.Set("limit", "1")
		body, err := c.do(ctx, http.MethodGet, c.table+"?"+q.Encode(), nil, "")
		if err != nil {
			return err
		}
		records, err = decodeRows(body)
		return resilience.Permanent(err)
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	return &records[0], nil
}

func (c *Client) List(ctx context.Context, filter domain.TransactionFilter) ([]domain.TransactionRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTransactions")
	defer span.End()

	q := listQuery(filter)
	var records []domain.TransactionRecord
	err := c.execute(ctx, "list", func() error {
		body, err := c.do(ctx, http.MethodGet, c.table+"?"+q.Encode(), nil, "")
		if err != nil {
			return err
		}
		records, err = decodeRows(body)
		return resilience.Permanent(err)
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("transactions.count", len(records)))
	return records, nil
}

func listQuery(filter domain.TransactionFilter) url.Values {
	q := url.Values{}
	q.Set("order", "date.asc,id.asc")
	if !filter.From.IsZero() {
		q.Add("date", "gte."+filter.From.String())
	}
	if !filter.To.IsZero() {
		q.Add("date", "lte."+filter.To.String())
	}
	if filter.Status != "" {
		q.Set("status", "eq."+string(filter.Status))
	}
	if filter.Type != "" {
		q.Set("type", "eq."+string(filter.Type))
	}
	if filter.GroupID != "" {
		q.Set("recurrence_group_id", "eq."+filter.GroupID)
	}
	return q
}

// Put upserts the batch in a single bulk insert, which PostgREST runs as one
// statement.
func (c *Client) Put(ctx context.Context, records ...domain.TransactionRecord) error {
	ctx, span := tracer.Start(ctx, "Supabase.PutTransactions")
	defer span.End()
	span.SetAttributes(attribute.Int("transactions.count", len(records)))

	if len(records) == 0 {
		return nil
	}
	rows := make([]transactionRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, toRow(r))
	}

	return c.execute(ctx, "put", func() error {
		_, err := c.do(ctx, http.MethodPost, c.table+"?on_conflict=id", rows, "resolution=merge-duplicates,return=minimal")
		return err
	})
}

func (c *Client) Delete(ctx context.Context, ids ...string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteTransactions")
	defer span.End()
	span.SetAttributes(attribute.Int("transactions.count", len(ids)))

	if len(ids) == 0 {
		return nil
	}
	q := url.Values{}
	q.Set("id", "in.("+strings.Join(ids, ",")+")")

	return c.execute(ctx, "delete", func() error {
		_, err := c.do(ctx, http.MethodDelete, c.table+"?"+q.Encode(), nil, "return=minimal")
		return err
	})
}

// Ensure Client implements the TransactionStore port.
var _ port.TransactionStore = (*Client)(nil)
