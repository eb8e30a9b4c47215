package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gaqno/financial-app-sub001/internal/domain"
	"github.com/gaqno/financial-app-sub001/internal/infra/observability"
	"github.com/gaqno/financial-app-sub001/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// StoreHealth is implemented by stores that can report reachability.
type StoreHealth interface {
	Ping(ctx context.Context) error
}

// NewRouter creates the HTTP router with all routes and middleware.
// health may be nil when the store has nothing to probe.
func NewRouter(svc *service.TransactionService, health StoreHealth, allowedOrigins []string, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger, metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(health))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Transactions
		// =============================================
		r.Get("/transactions", listTransactionsHandler(svc, logger))
		r.Post("/transactions", createTransactionHandler(svc, logger))
		r.Get("/transactions/summary", summaryHandler(svc, logger))
		r.Post("/transactions/undo/{token}", undoDeleteHandler(svc, logger))
		r.Get("/transactions/{id}", getTransactionHandler(svc, logger))
		r.Patch("/transactions/{id}", scopedEditHandler(svc, logger))
		r.Delete("/transactions/{id}", scopedDeleteHandler(svc, logger))
		r.Post("/transactions/{id}/toggle-status", toggleStatusHandler(svc, logger))

		// =============================================
		// Operations (tagged union)
		// =============================================
		r.Post("/operations", operationHandler(svc, logger))

		// =============================================
		// Recurrences
		// =============================================
		r.Post("/recurrences/preview", previewHandler(svc, logger))
		r.Get("/recurrences/{groupId}", chainHandler(svc, logger))

		// =============================================
		// Metrics
		// =============================================
		r.Get("/metrics/recurrence", recurrenceMetricsHandler(metrics))
	})

	return r
}

// ============================================================
// Probes
// ============================================================

func healthzHandler(health StoreHealth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "finance-api", Status: "healthy", LastChecked: now},
		}

		if health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			start := time.Now()
			err := health.Ping(ctx)
			status := "healthy"
			if err != nil {
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "store", Status: status, LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status != "healthy" {
				overallStatus = s.Status
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func recurrenceMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
