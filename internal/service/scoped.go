package service

import (
	"context"
	"time"

	"github.com/gaqno/financial-app-sub001/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Scoped edit
// ============================================================

// ApplyScopedEdit updates the target, or every member of its chain when
// scope is all. Shared fields propagate; the date only ever moves the target.
// The full updated set is written with a single Put.
func (s *TransactionService) ApplyScopedEdit(ctx context.Context, targetID string, changes domain.TransactionChanges, scope domain.Scope) ([]domain.TransactionRecord, error) {
	ctx, span := tracer.Start(ctx, "TransactionService.ApplyScopedEdit")
	defer span.End()
	defer s.observe("scoped_edit", time.Now())
	span.SetAttributes(
		attribute.String("transaction.id", targetID),
		attribute.String("scope", string(scope)),
	)

	if !scope.Valid() {
		return nil, &domain.ErrValidation{Field: "scope", Message: "must be 'single' or 'all'"}
	}
	if err := changes.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target, err := s.store.Get(ctx, targetID)
	if err != nil {
		return nil, s.storeErr(ctx, "get", err)
	}

	if changes.Recurrence != nil {
		return s.addRecurrence(ctx, *target, changes)
	}

	now := s.now()
	var updated []domain.TransactionRecord

	if scope == domain.ScopeSingle || !target.InChain() {
		rec := target.Clone()
		s.applyChanges(&rec, changes, now)
		if changes.Date != nil {
			if err := s.checkDateFree(ctx, *target, *changes.Date); err != nil {
				return nil, err
			}
			rec.Date = *changes.Date
		}
		updated = []domain.TransactionRecord{rec}
	} else {
		members, err := s.store.List(ctx, domain.TransactionFilter{GroupID: target.RecurrenceGroupID})
		if err != nil {
			return nil, s.storeErr(ctx, "list", err)
		}
		if changes.Date != nil {
			if err := checkDateAmong(members, target.ID, *changes.Date); err != nil {
				return nil, err
			}
		}
		updated = make([]domain.TransactionRecord, 0, len(members))
		for _, m := range members {
			rec := m.Clone()
			s.applyChanges(&rec, changes, now)
			if rec.ID == target.ID && changes.Date != nil {
				rec.Date = *changes.Date
			}
			updated = append(updated, rec)
		}
	}

	if err := s.store.Put(ctx, updated...); err != nil {
		return nil, s.storeErr(ctx, "put", err)
	}

	s.logger.Info("transactions edited",
		zap.String("transaction_id", targetID),
		zap.String("group_id", target.RecurrenceGroupID),
		zap.String("scope", string(scope)),
		zap.Int("count", len(updated)),
		zap.Bool("recurrence_removed", changes.RemoveRecurrence),
	)
	return updated, nil
}

func (s *TransactionService) applyChanges(rec *domain.TransactionRecord, changes domain.TransactionChanges, now time.Time) {
	changes.ApplyShared(rec)
	if changes.Description != nil && changes.Category == nil && rec.Category == "" {
		rec.Category = domain.DetectCategory(rec.Description)
	}
	rec.UpdatedAt = now
}

// addRecurrence turns a standalone record into the first instance of a new
// chain. The generated batch replaces it in one write.
func (s *TransactionService) addRecurrence(ctx context.Context, target domain.TransactionRecord, changes domain.TransactionChanges) ([]domain.TransactionRecord, error) {
	if target.InChain() {
		return nil, &domain.ErrValidation{
			Field:   "recurrence",
			Message: "record already belongs to a recurrence chain",
		}
	}

	seed := target.Clone()
	s.applyChanges(&seed, changes, s.now())
	if changes.Date != nil {
		seed.Date = *changes.Date
	}

	batch, err := s.generate(seed, *changes.Recurrence)
	if err != nil {
		return nil, err
	}
	batch.Instances[0].ID = target.ID
	batch.Instances[0].CreatedAt = target.CreatedAt

	if err := s.store.Put(ctx, batch.Instances...); err != nil {
		return nil, s.storeErr(ctx, "put", err)
	}

	s.logger.Info("recurrence added to transaction",
		zap.String("transaction_id", target.ID),
		zap.String("group_id", batch.GroupID),
		zap.Int("count", len(batch.Instances)),
		zap.Bool("truncated", batch.Truncated),
	)
	return batch.Instances, nil
}

// checkDateFree rejects a date that another member of the target's chain
// already occupies.
func (s *TransactionService) checkDateFree(ctx context.Context, target domain.TransactionRecord, date domain.Date) error {
	if !target.InChain() || date.Equal(target.Date) {
		return nil
	}
	members, err := s.store.List(ctx, domain.TransactionFilter{GroupID: target.RecurrenceGroupID, From: date, To: date})
	if err != nil {
		return s.storeErr(ctx, "list", err)
	}
	return checkDateAmong(members, target.ID, date)
}

func checkDateAmong(members []domain.TransactionRecord, targetID string, date domain.Date) error {
	for _, m := range members {
		if m.ID != targetID && m.Date.Equal(date) {
			return &domain.ErrConflict{
				Message: "another instance of this recurrence already falls on " + date.String(),
			}
		}
	}
	return nil
}

// ============================================================
// Scoped delete and undo
// ============================================================

// ApplyScopedDelete removes the target, or its whole chain when scope is all,
// and holds the removed records for the undo window.
func (s *TransactionService) ApplyScopedDelete(ctx context.Context, targetID string, scope domain.Scope) (*domain.DeleteResult, error) {
	ctx, span := tracer.Start(ctx, "TransactionService.ApplyScopedDelete")
	defer span.End()
	defer s.observe("scoped_delete", time.Now())
	span.SetAttributes(
		attribute.String("transaction.id", targetID),
		attribute.String("scope", string(scope)),
	)

	if !scope.Valid() {
		return nil, &domain.ErrValidation{Field: "scope", Message: "must be 'single' or 'all'"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target, err := s.store.Get(ctx, targetID)
	if err != nil {
		return nil, s.storeErr(ctx, "get", err)
	}

	removed := []domain.TransactionRecord{*target}
	if scope == domain.ScopeAll && target.InChain() {
		removed, err = s.store.List(ctx, domain.TransactionFilter{GroupID: target.RecurrenceGroupID})
		if err != nil {
			return nil, s.storeErr(ctx, "list", err)
		}
	} else {
		scope = domain.ScopeSingle
	}

	ids := make([]string, len(removed))
	for i, r := range removed {
		ids[i] = r.ID
	}
	if err := s.store.Delete(ctx, ids...); err != nil {
		return nil, s.storeErr(ctx, "delete", err)
	}

	held := make([]domain.TransactionRecord, len(removed))
	for i, r := range removed {
		held[i] = r.Clone()
	}
	token := s.newID()
	expiresAt := s.undo.hold(token, held, s.now())
	s.metrics.IncrDelete(scope)

	s.logger.Info("transactions deleted",
		zap.String("transaction_id", targetID),
		zap.String("group_id", target.RecurrenceGroupID),
		zap.String("scope", string(scope)),
		zap.Int("count", len(removed)),
	)
	return &domain.DeleteResult{Removed: removed, UndoToken: token, UndoExpiresAt: expiresAt}, nil
}

// UndoDelete restores exactly the set removed under token. An unknown or
// expired token restores nothing and is not an error.
func (s *TransactionService) UndoDelete(ctx context.Context, token string) ([]domain.TransactionRecord, error) {
	ctx, span := tracer.Start(ctx, "TransactionService.UndoDelete")
	defer span.End()
	defer s.observe("undo_delete", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	records, ok := s.undo.take(token)
	if !ok {
		s.logger.Debug("undo token unknown or expired", zap.String("undo_token", token))
		return []domain.TransactionRecord{}, nil
	}

	// keep the token usable for a retry on either failure
	if err := s.checkRestorable(ctx, records); err != nil {
		s.undo.hold(token, records, s.now())
		return nil, err
	}
	if err := s.store.Put(ctx, records...); err != nil {
		s.undo.hold(token, records, s.now())
		return nil, s.storeErr(ctx, "put", err)
	}

	s.metrics.IncrUndo("restored")
	s.logger.Info("delete undone", zap.String("undo_token", token), zap.Int("count", len(records)))
	return records, nil
}

// checkRestorable rejects an undo when a chain member has since been moved
// onto the date of a record being restored.
func (s *TransactionService) checkRestorable(ctx context.Context, records []domain.TransactionRecord) error {
	for _, r := range records {
		if !r.InChain() {
			continue
		}
		members, err := s.store.List(ctx, domain.TransactionFilter{GroupID: r.RecurrenceGroupID, From: r.Date, To: r.Date})
		if err != nil {
			return s.storeErr(ctx, "list", err)
		}
		if err := checkDateAmong(members, r.ID, r.Date); err != nil {
			return err
		}
	}
	return nil
}

func (s *TransactionService) onUndoExpired(token string, records []domain.TransactionRecord) {
	s.metrics.IncrUndo("expired")
	s.logger.Debug("undo window elapsed", zap.String("undo_token", token), zap.Int("count", len(records)))
}

// ============================================================
// Status toggle
// ============================================================

// ToggleStatus flips pending/completed on exactly one record.
func (s *TransactionService) ToggleStatus(ctx context.Context, targetID string) (*domain.TransactionRecord, error) {
	ctx, span := tracer.Start(ctx, "TransactionService.ToggleStatus")
	defer span.End()
	defer s.observe("toggle_status", time.Now())
	span.SetAttributes(attribute.String("transaction.id", targetID))

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Get(ctx, targetID)
	if err != nil {
		return nil, s.storeErr(ctx, "get", err)
	}
	rec.Status = rec.Status.Toggled()
	rec.UpdatedAt = s.now()

	if err := s.store.Put(ctx, *rec); err != nil {
		return nil, s.storeErr(ctx, "put", err)
	}

	s.logger.Info("transaction status toggled",
		zap.String("transaction_id", rec.ID),
		zap.String("status", string(rec.Status)),
	)
	return rec, nil
}

// ============================================================
// Dispatch
// ============================================================

// Dispatch routes an operation to its handler.
func (s *TransactionService) Dispatch(ctx context.Context, op domain.Operation) (*domain.OperationResult, error) {
	switch o := op.(type) {
	case domain.ToggleStatusOp:
		rec, err := s.ToggleStatus(ctx, o.TargetID)
		if err != nil {
			return nil, err
		}
		return &domain.OperationResult{Kind: o.Kind(), Updated: []domain.TransactionRecord{*rec}}, nil

	case domain.ScopedEditOp:
		updated, err := s.ApplyScopedEdit(ctx, o.TargetID, o.Changes, o.Scope)
		if err != nil {
			return nil, err
		}
		return &domain.OperationResult{Kind: o.Kind(), Updated: updated}, nil

	case domain.ScopedDeleteOp:
		res, err := s.ApplyScopedDelete(ctx, o.TargetID, o.Scope)
		if err != nil {
			return nil, err
		}
		expires := res.UndoExpiresAt
		return &domain.OperationResult{
			Kind:          o.Kind(),
			Removed:       res.Removed,
			UndoToken:     res.UndoToken,
			UndoExpiresAt: &expires,
		}, nil
	}
	return nil, &domain.ErrValidation{Field: "kind", Message: "unsupported operation"}
}
