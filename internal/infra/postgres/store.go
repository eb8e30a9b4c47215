// Package postgres provides a TransactionStore backed by PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gaqno/financial-app-sub001/internal/domain"
	"github.com/gaqno/financial-app-sub001/internal/port"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("postgres")

const createTransactionsTableSQL = `
	CREATE TABLE IF NOT EXISTS transactions (
		id VARCHAR(36) PRIMARY KEY,
		date DATE NOT NULL,
		description TEXT NOT NULL,
		value NUMERIC(14, 2) NOT NULL,
		type VARCHAR(16) NOT NULL,
		category VARCHAR(255),
		status VARCHAR(16) NOT NULL,
		recurrence_group_id VARCHAR(36),
		recurrence_frequency VARCHAR(16),
		recurrence_end_date DATE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS transactions_group_date_idx
		ON transactions (recurrence_group_id, date) WHERE recurrence_group_id IS NOT NULL;`

const selectColumns = `id, date, description, value::text, type, category, status,
	recurrence_group_id, recurrence_frequency, recurrence_end_date, created_at, updated_at`

// Store runs every batch inside one transaction.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// New wraps an open pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the table and the (group, date) uniqueness index.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createTransactionsTableSQL); err != nil {
		return fmt.Errorf("create transactions table: %w", err)
	}
	return nil
}

// Ping is used by the health check.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Get(ctx context.Context, id string) (*domain.TransactionRecord, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", id))

	row := s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM transactions WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgres/get", Err: err}
	}
	return &rec, nil
}

func (s *Store) List(ctx context.Context, filter domain.TransactionFilter) ([]domain.TransactionRecord, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListTransactions")
	defer span.End()

	where, args := whereClause(filter)
	query := `SELECT ` + selectColumns + ` FROM transactions` + where + ` ORDER BY date ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgres/list", Err: err}
	}
	defer rows.Close()

	records := []domain.TransactionRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, &domain.ErrExternalService{Service: "postgres/list", Err: err}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.ErrExternalService{Service: "postgres/list", Err: err}
	}
	span.SetAttributes(attribute.Int("transactions.count", len(records)))
	return records, nil
}

// whereClause builds the WHERE part of a listing with positional args.
func whereClause(filter domain.TransactionFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if !filter.From.IsZero() {
		add("date >= $%d", filter.From.Time())
	}
	if !filter.To.IsZero() {
		add("date <= $%d", filter.To.Time())
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.Type != "" {
		add("type = $%d", string(filter.Type))
	}
	if filter.GroupID != "" {
		add("recurrence_group_id = $%d", filter.GroupID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

const upsertSQL = `
	INSERT INTO transactions (id, date, description, value, type, category, status,
		recurrence_group_id, recurrence_frequency, recurrence_end_date, created_at, updated_at)
	VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (id) DO UPDATE SET
		date = EXCLUDED.date,
		description = EXCLUDED.description,
		value = EXCLUDED.value,
		type = EXCLUDED.type,
		category = EXCLUDED.category,
		status = EXCLUDED.status,
		recurrence_group_id = EXCLUDED.recurrence_group_id,
		recurrence_frequency = EXCLUDED.recurrence_frequency,
		recurrence_end_date = EXCLUDED.recurrence_end_date,
		updated_at = EXCLUDED.updated_at`

func (s *Store) Put(ctx context.Context, records ...domain.TransactionRecord) error {
	ctx, span := tracer.Start(ctx, "Postgres.PutTransactions")
	defer span.End()
	span.SetAttributes(attribute.Int("transactions.count", len(records)))

	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(upsertSQL, upsertArgs(r)...)
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "postgres/put", Err: err}
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, ids ...string) error {
	ctx, span := tracer.Start(ctx, "Postgres.DeleteTransactions")
	defer span.End()
	span.SetAttributes(attribute.Int("transactions.count", len(ids)))

	if len(ids) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE id = ANY($1)`, ids); err != nil {
		return &domain.ErrExternalService{Service: "postgres/delete", Err: err}
	}
	return nil
}

func upsertArgs(r domain.TransactionRecord) []any {
	var category, groupID, frequency *string
	var endDate *time.Time
	if r.Category != "" {
		category = &r.Category
	}
	if r.RecurrenceGroupID != "" {
		groupID = &r.RecurrenceGroupID
	}
	if r.RecurrenceRule != nil {
		f := string(r.RecurrenceRule.Frequency)
		e := r.RecurrenceRule.EndDate.Time()
		frequency = &f
		endDate = &e
	}
	return []any{
		r.ID, r.Date.Time(), r.Description, r.Value.StringFixed(2), string(r.Type), category,
		string(r.Status), groupID, frequency, endDate, r.CreatedAt, r.UpdatedAt,
	}
}

func scanRecord(row pgx.Row) (domain.TransactionRecord, error) {
	var (
		rec                          domain.TransactionRecord
		date                         time.Time
		value, txType, status        string
		category, groupID, frequency *string
		endDate                      *time.Time
	)
	err := row.Scan(&rec.ID, &date, &rec.Description, &value, &txType, &category, &status,
		&groupID, &frequency, &endDate, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return rec, err
	}

	rec.Date = domain.DateOf(date)
	rec.Value, err = decimal.NewFromString(value)
	if err != nil {
		return rec, fmt.Errorf("row %s: value %q: %w", rec.ID, value, err)
	}
	rec.Type = domain.TransactionType(txType)
	rec.Status = domain.TransactionStatus(status)
	if category != nil {
		rec.Category = *category
	}
	if groupID != nil {
		rec.RecurrenceGroupID = *groupID
	}
	if frequency != nil && endDate != nil {
		rec.RecurrenceRule = &domain.RecurrenceRule{
			Frequency: domain.Frequency(*frequency),
			EndDate:   domain.DateOf(*endDate),
		}
	}
	return rec, nil
}

// Ensure Store implements the TransactionStore port.
var _ port.TransactionStore = (*Store)(nil)
