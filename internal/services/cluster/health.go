package cluster

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// CheckFunc reports an error when the dependency it probes is unhealthy.
type CheckFunc func(ctx context.Context) error

// HealthAggregator runs every registered check behind one endpoint.
type HealthAggregator struct {
	mu      sync.RWMutex
	checks  map[string]CheckFunc
	timeout time.Duration
}

func NewHealthAggregator(timeout time.Duration) *HealthAggregator {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthAggregator{checks: make(map[string]CheckFunc), timeout: timeout}
}

func (h *HealthAggregator) AddCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Report is the /health body.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Run executes all checks and reports whether every one passed.
func (h *HealthAggregator) Run(ctx context.Context) (Report, bool) {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	checks := make([]CheckFunc, len(names))
	for i, name := range names {
		checks[i] = h.checks[name]
	}
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	report := Report{Status: "healthy", Checks: make(map[string]string, len(names))}
	healthy := true
	for i, name := range names {
		if err := checks[i](ctx); err != nil {
			report.Checks[name] = err.Error()
			healthy = false
			continue
		}
		report.Checks[name] = "ok"
	}
	if !healthy {
		report.Status = "unhealthy"
	}
	return report, healthy
}

// Handler answers 200 when every check passes and 503 otherwise.
func (h *HealthAggregator) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, ok := h.Run(r.Context())
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(report)
	}
}
