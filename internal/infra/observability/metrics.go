package observability

import (
	"strconv"
	"time"

	"github.com/gaqno/financial-app-sub001/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	httpDuration       *prometheus.HistogramVec
	operationDuration  *prometheus.HistogramVec
	instancesGenerated prometheus.Counter
	truncations        prometheus.Counter
	deletes            *prometheus.CounterVec
	undo               *prometheus.CounterVec
	idempotency        *prometheus.CounterVec
	storeErrors        *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finance_http_request_duration_seconds",
				Help:    "Duration of HTTP requests by route and status.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finance_operation_duration_seconds",
				Help:    "Duration of transaction operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		instancesGenerated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "finance_recurrence_instances_generated_total",
				Help: "Total transaction instances produced by the recurrence generator.",
			},
		),
		truncations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "finance_recurrence_truncations_total",
				Help: "Total recurrence expansions stopped at the instance cap.",
			},
		),
		deletes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finance_deletes_total",
				Help: "Total scoped deletes.",
			},
			[]string{"scope"},
		),
		undo: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finance_undo_total",
				Help: "Soft-delete outcomes.",
			},
			[]string{"outcome"},
		),
		idempotency: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finance_idempotency_lookups_total",
				Help: "Idempotency key lookups on create.",
			},
			[]string{"result"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finance_store_errors_total",
				Help: "Total errors returned by the transaction store.",
			},
			[]string{"operation"},
		),
	}
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// RecordOperation records the duration of a service operation.
func (m *Metrics) RecordOperation(operation string, d time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordGenerated counts generated instances and whether the cap was hit.
func (m *Metrics) RecordGenerated(instances int, truncated bool) {
	m.instancesGenerated.Add(float64(instances))
	if truncated {
		m.truncations.Inc()
	}
}

func (m *Metrics) IncrDelete(scope domain.Scope) {
	m.deletes.WithLabelValues(string(scope)).Inc()
}

// IncrUndo counts an undo outcome: "restored" or "expired".
func (m *Metrics) IncrUndo(outcome string) {
	m.undo.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrIdempotencyHit() {
	m.idempotency.WithLabelValues("hit").Inc()
}

func (m *Metrics) IncrIdempotencyMiss() {
	m.idempotency.WithLabelValues("miss").Inc()
}

func (m *Metrics) IncrStoreError(operation string) {
	m.storeErrors.WithLabelValues(operation).Inc()
}

// Snapshot returns the recurrence counters for GET /v1/metrics/recurrence.
func (m *Metrics) Snapshot() *domain.RecurrenceMetrics {
	hits := getVecValue(m.idempotency, "hit")
	misses := getVecValue(m.idempotency, "miss")
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.RecurrenceMetrics{
		InstancesGenerated: int64(getValue(m.instancesGenerated)),
		Truncations:        int64(getValue(m.truncations)),
		DeletesSingle:      int64(getVecValue(m.deletes, string(domain.ScopeSingle))),
		DeletesAll:         int64(getVecValue(m.deletes, string(domain.ScopeAll))),
		UndoRestored:       int64(getVecValue(m.undo, "restored")),
		UndoExpired:        int64(getVecValue(m.undo, "expired")),
		IdempotencyHitRate: hitRate,
	}
}

func getVecValue(cv *prometheus.CounterVec, label string) float64 {
	return getValue(cv.WithLabelValues(label))
}

// getValue extracts the current float64 value from a counter.
func getValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
