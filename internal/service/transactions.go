// Package service provides the business logic layer (use cases).
// TransactionService owns the recurrence engine: generating chains, scoped
// edits and deletes, status toggles and the undo window.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gaqno/financial-app-sub001/internal/domain"
	"github.com/gaqno/financial-app-sub001/internal/infra/observability"
	"github.com/gaqno/financial-app-sub001/internal/port"
	"github.com/gaqno/financial-app-sub001/internal/recurrence"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service/transactions")

// Options tunes a TransactionService. Zero values fall back to defaults.
type Options struct {
	UndoWindow time.Duration
	NewID      recurrence.IDFunc
	Now        func() time.Time
}

// TransactionService serializes every read-modify-write against the store so
// each user action is applied as one state transition.
type TransactionService struct {
	mu sync.Mutex

	store       port.TransactionStore
	idempotency port.Cache[*domain.CreateTransactionResponse]
	undo        *undoBuffer
	newID       recurrence.IDFunc
	now         func() time.Time
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewTransactionService creates the service with all dependencies injected.
// idempotency may be nil to disable create deduplication.
func NewTransactionService(
	store port.TransactionStore,
	idempotency port.Cache[*domain.CreateTransactionResponse],
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts Options,
) *TransactionService {
	if opts.UndoWindow <= 0 {
		opts.UndoWindow = 5 * time.Second
	}
	if opts.NewID == nil {
		opts.NewID = recurrence.NewUUID
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &TransactionService{
		store:       store,
		idempotency: idempotency,
		newID:       opts.NewID,
		now:         opts.Now,
		metrics:     metrics,
		logger:      logger,
	}
	s.undo = newUndoBuffer(opts.UndoWindow, s.onUndoExpired)
	return s
}

// Close drops pending undo entries; their deletions become permanent.
func (s *TransactionService) Close() {
	s.undo.close()
}

func (s *TransactionService) observe(operation string, start time.Time) {
	s.metrics.RecordOperation(operation, time.Since(start))
}

// storeErr counts unexpected store failures and passes err through.
func (s *TransactionService) storeErr(ctx context.Context, operation string, err error) error {
	var notFound *domain.ErrNotFound
	if err == nil || errors.As(err, &notFound) {
		return err
	}
	s.metrics.IncrStoreError(operation)

	fields := []zap.Field{zap.String("operation", operation), zap.Error(err)}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
	}
	s.logger.Error("store operation failed", fields...)
	return err
}

// ============================================================
// Create
// ============================================================

// Create stores a one-off transaction, or a whole chain when req carries a
// recurrence rule. A non-empty idempotencyKey seen before returns the first
// result without writing again.
func (s *TransactionService) Create(ctx context.Context, req *domain.CreateTransactionRequest, idempotencyKey string) (*domain.CreateTransactionResponse, error) {
	ctx, span := tracer.Start(ctx, "TransactionService.Create")
	defer span.End()
	defer s.observe("create", time.Now())

	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if idempotencyKey != "" && s.idempotency != nil {
		if cached, ok := s.idempotency.Get(idempotencyKey); ok {
			s.metrics.IncrIdempotencyHit()
			s.logger.Debug("create replayed from idempotency key", zap.String("idempotency_key", idempotencyKey))
			return cached, nil
		}
		s.metrics.IncrIdempotencyMiss()
	}

	now := s.now()
	seed := domain.TransactionRecord{
		ID:          s.newID(),
		Date:        req.Date,
		Description: req.Description,
		Value:       domain.RoundValue(req.Value),
		Type:        req.Type,
		Category:    req.Category,
		Status:      req.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if seed.Status == "" {
		seed.Status = domain.StatusPending
	}
	if seed.Category == "" {
		seed.Category = domain.DetectCategory(seed.Description)
	}

	resp := &domain.CreateTransactionResponse{}
	if req.Recurrence == nil {
		if err := s.store.Put(ctx, seed); err != nil {
			return nil, s.storeErr(ctx, "put", err)
		}
		resp.Transactions = []domain.TransactionRecord{seed}
	} else {
		batch, err := s.generate(seed, *req.Recurrence)
		if err != nil {
			return nil, err
		}
		if err := s.store.Put(ctx, batch.Instances...); err != nil {
			return nil, s.storeErr(ctx, "put", err)
		}
		resp.Transactions = batch.Instances
		resp.RecurrenceGroupID = batch.GroupID
		resp.Truncated = batch.Truncated
		if capErr := batch.CapError(); capErr != nil {
			resp.Warning = capErr.Error()
		}
		span.SetAttributes(attribute.String("recurrence.group_id", batch.GroupID))
	}
	span.SetAttributes(attribute.Int("transactions.count", len(resp.Transactions)))

	if idempotencyKey != "" && s.idempotency != nil {
		s.idempotency.Set(idempotencyKey, resp)
	}

	s.logger.Info("transactions created",
		zap.Int("count", len(resp.Transactions)),
		zap.String("group_id", resp.RecurrenceGroupID),
		zap.Bool("truncated", resp.Truncated),
	)
	return resp, nil
}

// generate expands rule from seed and stamps the instances. It does not
// touch the store.
func (s *TransactionService) generate(seed domain.TransactionRecord, rule domain.RecurrenceRule) (*recurrence.Batch, error) {
	batch, err := recurrence.Generate(seed, rule, s.newID)
	if err != nil {
		return nil, err
	}
	for i := range batch.Instances {
		batch.Instances[i].CreatedAt = seed.CreatedAt
		batch.Instances[i].UpdatedAt = seed.UpdatedAt
	}
	s.metrics.RecordGenerated(len(batch.Instances), batch.Truncated)
	if batch.Truncated {
		s.logger.Warn("recurrence truncated at instance cap",
			zap.String("group_id", batch.GroupID),
			zap.Int("max_instances", recurrence.MaxInstances),
			zap.String("end_date", rule.EndDate.String()),
		)
	}
	return batch, nil
}

// Preview expands a rule without storing anything, for the recurrence form.
func (s *TransactionService) Preview(ctx context.Context, req *domain.CreateTransactionRequest) (*domain.CreateTransactionResponse, error) {
	_, span := tracer.Start(ctx, "TransactionService.Preview")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Recurrence == nil {
		return nil, &domain.ErrValidation{Field: "recurrence", Message: "required"}
	}

	seed := domain.TransactionRecord{
		Date:        req.Date,
		Description: req.Description,
		Value:       req.Value,
		Type:        req.Type,
		Category:    req.Category,
		Status:      req.Status,
	}
	if seed.Status == "" {
		seed.Status = domain.StatusPending
	}
	if seed.Category == "" {
		seed.Category = domain.DetectCategory(seed.Description)
	}

	batch, err := recurrence.Generate(seed, *req.Recurrence, s.newID)
	if err != nil {
		return nil, err
	}
	resp := &domain.CreateTransactionResponse{
		Transactions:      batch.Instances,
		RecurrenceGroupID: batch.GroupID,
		Truncated:         batch.Truncated,
	}
	if capErr := batch.CapError(); capErr != nil {
		resp.Warning = capErr.Error()
	}
	return resp, nil
}

// ============================================================
// Reads
// ============================================================

func (s *TransactionService) Get(ctx context.Context, id string) (*domain.TransactionRecord, error) {
	ctx, span := tracer.Start(ctx, "TransactionService.Get")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", id))

	rec, err := s.store.Get(ctx, id)
	return rec, s.storeErr(ctx, "get", err)
}

func (s *TransactionService) List(ctx context.Context, filter domain.TransactionFilter) ([]domain.TransactionRecord, error) {
	ctx, span := tracer.Start(ctx, "TransactionService.List")
	defer span.End()

	records, err := s.store.List(ctx, filter)
	return records, s.storeErr(ctx, "list", err)
}

// Chain returns a recurrence group with its derived lifecycle state. An
// unknown group is reported as removed.
func (s *TransactionService) Chain(ctx context.Context, groupID string) (*domain.Chain, error) {
	ctx, span := tracer.Start(ctx, "TransactionService.Chain")
	defer span.End()
	span.SetAttributes(attribute.String("recurrence.group_id", groupID))

	if groupID == "" {
		return nil, &domain.ErrValidation{Field: "group_id", Message: "required"}
	}
	members, err := s.store.List(ctx, domain.TransactionFilter{GroupID: groupID})
	if err != nil {
		return nil, s.storeErr(ctx, "list", err)
	}
	return &domain.Chain{GroupID: groupID, State: chainState(members), Instances: members}, nil
}

func chainState(members []domain.TransactionRecord) domain.ChainState {
	if len(members) == 0 {
		return domain.ChainRemoved
	}
	for _, m := range members {
		if m.RecurrenceRule != nil {
			return domain.ChainActive
		}
	}
	return domain.ChainFrozen
}

// Summary totals income and expense magnitudes over the filtered records.
func (s *TransactionService) Summary(ctx context.Context, filter domain.TransactionFilter) (*domain.Summary, error) {
	ctx, span := tracer.Start(ctx, "TransactionService.Summary")
	defer span.End()

	records, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, s.storeErr(ctx, "list", err)
	}

	sum := &domain.Summary{
		From:    filter.From.String(),
		To:      filter.To.String(),
		Income:  decimal.Zero,
		Expense: decimal.Zero,
	}
	for _, r := range records {
		switch r.Type {
		case domain.TypeIncome:
			sum.Income = sum.Income.Add(r.Value.Abs())
		case domain.TypeExpense:
			sum.Expense = sum.Expense.Add(r.Value.Abs())
		}
		if r.Status == domain.StatusCompleted {
			sum.CompletedCount++
		} else {
			sum.PendingCount++
		}
	}
	sum.Balance = sum.Income.Sub(sum.Expense)
	return sum, nil
}
