package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// RecurrenceMetrics is returned by GET /v1/metrics/recurrence.
type RecurrenceMetrics struct {
	InstancesGenerated int64   `json:"instancesGenerated"`
	Truncations        int64   `json:"truncations"`
	DeletesSingle      int64   `json:"deletesSingle"`
	DeletesAll         int64   `json:"deletesAll"`
	UndoRestored       int64   `json:"undoRestored"`
	UndoExpired        int64   `json:"undoExpired"`
	IdempotencyHitRate float64 `json:"idempotencyHitRate"`
}
