package daemon

import (
	"context"
	"encoding/json"
	"maps"
	"runtime"
	"slices"
	"sync"
	"time"
)

// Health states reported by the daemon.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus is the daemon's health report.
type HealthStatus struct {
	Status            string          `json:"status"`
	Version           string          `json:"version,omitempty"`
	UptimeSeconds     int64           `json:"uptime_seconds"`
	MemoryMB          float64         `json:"memory_mb"`
	Goroutines        int             `json:"goroutines"`
	ScheduledAlarms   int             `json:"scheduled_alarms"`
	PendingFirings    int             `json:"pending_firings"`
	PermissionGranted bool            `json:"permission_granted"`
	LastCheck         time.Time       `json:"last_check"`
	Checks            []CheckResult   `json:"checks,omitempty"`
	Metrics           MetricsSnapshot `json:"metrics"`
}

// CheckResult is the outcome of one named check.
type CheckResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// EngineStats is what the health report reads from the reminder engine.
type EngineStats struct {
	ScheduledAlarms   int
	PendingFirings    int
	PermissionGranted bool
}

// StatsFunc gathers EngineStats.
type StatsFunc func(ctx context.Context) (EngineStats, error)

// HealthChecker builds health reports for the daemon.
type HealthChecker struct {
	mu        sync.RWMutex
	startTime time.Time
	version   string
	metrics   *Metrics
	stats     StatsFunc
	checks    map[string]func(context.Context) error
}

// NewHealthChecker creates a health checker. stats may be nil.
func NewHealthChecker(version string, metrics *Metrics, stats StatsFunc) *HealthChecker {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &HealthChecker{
		startTime: time.Now(),
		version:   version,
		metrics:   metrics,
		stats:     stats,
		checks:    make(map[string]func(context.Context) error),
	}
}

// AddCheck registers a named check. A failing check marks the daemon
// unhealthy.
func (h *HealthChecker) AddCheck(name string, check func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// RemoveCheck drops a named check.
func (h *HealthChecker) RemoveCheck(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.checks, name)
}

// Check runs every check and gathers engine stats. A daemon whose checks
// pass but that cannot deliver notifications is degraded.
func (h *HealthChecker) Check(ctx context.Context) *HealthStatus {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	st := &HealthStatus{
		Status:        StatusHealthy,
		Version:       h.version,
		UptimeSeconds: int64(h.Uptime().Seconds()),
		MemoryMB:      float64(mem.Alloc) / 1024 / 1024,
		Goroutines:    runtime.NumGoroutine(),
		LastCheck:     time.Now(),
		Metrics:       h.metrics.Snapshot(),
	}

	h.mu.RLock()
	names := slices.Sorted(maps.Keys(h.checks))
	checks := maps.Clone(h.checks)
	h.mu.RUnlock()

	for _, name := range names {
		res := CheckResult{Name: name, Healthy: true}
		if err := checks[name](ctx); err != nil {
			res.Healthy = false
			res.Error = err.Error()
			st.Status = StatusUnhealthy
		}
		st.Checks = append(st.Checks, res)
	}

	if h.stats != nil {
		es, err := h.stats(ctx)
		if err != nil {
			st.Checks = append(st.Checks, CheckResult{Name: "engine", Error: err.Error()})
			st.Status = StatusUnhealthy
		} else {
			st.ScheduledAlarms = es.ScheduledAlarms
			st.PendingFirings = es.PendingFirings
			st.PermissionGranted = es.PermissionGranted
			if !es.PermissionGranted && st.Status == StatusHealthy {
				st.Status = StatusDegraded
			}
		}
	}
	return st
}

// IsHealthy reports whether every check passes.
func (h *HealthChecker) IsHealthy(ctx context.Context) bool {
	return h.Check(ctx).Status != StatusUnhealthy
}

// JSON returns the health report as indented JSON.
func (h *HealthChecker) JSON(ctx context.Context) ([]byte, error) {
	return json.MarshalIndent(h.Check(ctx), "", "  ")
}

// Uptime returns how long the daemon has been running.
func (h *HealthChecker) Uptime() time.Duration {
	return time.Since(h.startTime)
}
