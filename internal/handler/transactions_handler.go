package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gaqno/financial-app-sub001/internal/domain"
	"github.com/gaqno/financial-app-sub001/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Create & preview: POST /v1/transactions, POST /v1/recurrences/preview
// ============================================================

func createTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions")
		defer span.End()

		var req domain.CreateTransactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		key := r.Header.Get("Idempotency-Key")
		if key != "" {
			span.SetAttributes(attribute.String("idempotency.key", key))
		}

		resp, err := svc.Create(ctx, &req, key)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func previewHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/recurrences/preview")
		defer span.End()

		var req domain.CreateTransactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := svc.Preview(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ============================================================
// Reads
// ============================================================

func listTransactionsHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions")
		defer span.End()

		filter, err := parseFilter(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		records, err := svc.List(ctx, filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if records == nil {
			records = []domain.TransactionRecord{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"transactions": records,
			"total":        len(records),
		})
	}
}

func getTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("transaction.id", id))

		rec, err := svc.Get(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func summaryHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions/summary")
		defer span.End()

		filter, err := parseFilter(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		sum, err := svc.Summary(ctx, filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}

func chainHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/recurrences/{groupId}")
		defer span.End()

		groupID := chi.URLParam(r, "groupId")
		span.SetAttributes(attribute.String("recurrence.group_id", groupID))

		chain, err := svc.Chain(ctx, groupID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, chain)
	}
}

// ============================================================
// Scoped edit & delete: PATCH/DELETE /v1/transactions/{id}?scope=
// ============================================================

func scopedEditHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/transactions/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		scope, err := domain.ParseScope(r.URL.Query().Get("scope"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(
			attribute.String("transaction.id", id),
			attribute.String("scope", string(scope)),
		)

		var changes domain.TransactionChanges
		if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		updated, err := svc.ApplyScopedEdit(ctx, id, changes, scope)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"transactions": updated,
			"total":        len(updated),
		})
	}
}

func scopedDeleteHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/transactions/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		scope, err := domain.ParseScope(r.URL.Query().Get("scope"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(
			attribute.String("transaction.id", id),
			attribute.String("scope", string(scope)),
		)

		res, err := svc.ApplyScopedDelete(ctx, id, scope)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func undoDeleteHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions/undo/{token}")
		defer span.End()

		restored, err := svc.UndoDelete(ctx, chi.URLParam(r, "token"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"restored": restored,
			"total":    len(restored),
		})
	}
}

// ============================================================
// Status toggle: POST /v1/transactions/{id}/toggle-status
// ============================================================

func toggleStatusHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions/{id}/toggle-status")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("transaction.id", id))

		rec, err := svc.ToggleStatus(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// ============================================================
// Operations: POST /v1/operations
// ============================================================

func operationHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/operations")
		defer span.End()

		var req domain.OperationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		op, err := req.ToOperation()
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("operation.kind", string(op.Kind())))

		result, err := svc.Dispatch(ctx, op)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}
