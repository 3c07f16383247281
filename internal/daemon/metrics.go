package daemon

import (
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/manav03panchal/medtime/internal/notify"
	"github.com/manav03panchal/medtime/internal/scheduler"
)

// Metrics holds the daemon's simple counters.
type Metrics struct {
	alarmsFired      atomic.Int64
	deliveryFailures atomic.Int64
	unknownAlarms    atomic.Int64
	actionsHandled   atomic.Int64
	firingsExpired   atomic.Int64
	dosesMissed      atomic.Int64
	syncPasses       atomic.Int64
	errorsTotal      atomic.Int64

	mu               sync.RWMutex
	lastTick         time.Time
	lastMaintenance  time.Time
	lastError        string
	lastErrorAt      time.Time
	errorsByCategory map[string]int64
}

// NewMetrics creates a zeroed metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{errorsByCategory: make(map[string]int64)}
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	AlarmsFiredTotal      int64            `json:"alarms_fired_total"`
	DeliveryFailuresTotal int64            `json:"delivery_failures_total"`
	UnknownAlarmsTotal    int64            `json:"unknown_alarms_total"`
	ActionsHandledTotal   int64            `json:"actions_handled_total"`
	FiringsExpiredTotal   int64            `json:"firings_expired_total"`
	DosesMissedTotal      int64            `json:"doses_missed_total"`
	SyncPassesTotal       int64            `json:"sync_passes_total"`
	ErrorsTotal           int64            `json:"errors_total"`
	LastTick              *time.Time       `json:"last_tick,omitempty"`
	LastMaintenance       *time.Time       `json:"last_maintenance,omitempty"`
	LastError             string           `json:"last_error,omitempty"`
	LastErrorAt           *time.Time       `json:"last_error_at,omitempty"`
	ErrorsByCategory      map[string]int64 `json:"errors_by_category,omitempty"`
}

// Snapshot returns a copy of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		AlarmsFiredTotal:      m.alarmsFired.Load(),
		DeliveryFailuresTotal: m.deliveryFailures.Load(),
		UnknownAlarmsTotal:    m.unknownAlarms.Load(),
		ActionsHandledTotal:   m.actionsHandled.Load(),
		FiringsExpiredTotal:   m.firingsExpired.Load(),
		DosesMissedTotal:      m.dosesMissed.Load(),
		SyncPassesTotal:       m.syncPasses.Load(),
		ErrorsTotal:           m.errorsTotal.Load(),
		LastError:             m.lastError,
		ErrorsByCategory:      maps.Clone(m.errorsByCategory),
	}
	snap.LastTick = timePtr(m.lastTick)
	snap.LastMaintenance = timePtr(m.lastMaintenance)
	snap.LastErrorAt = timePtr(m.lastErrorAt)
	return snap
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// RecordFire adds one FireDue pass.
func (m *Metrics) RecordFire(r notify.FireReport, at time.Time) {
	m.alarmsFired.Add(int64(r.Fired))
	m.deliveryFailures.Add(int64(r.DeliveryFailures))
	m.unknownAlarms.Add(int64(r.Unknown))

	m.mu.Lock()
	m.lastTick = at
	m.mu.Unlock()
}

// RecordExpire adds one ExpireFirings pass.
func (m *Metrics) RecordExpire(r scheduler.ExpireReport) {
	m.firingsExpired.Add(int64(r.Expired))
	m.dosesMissed.Add(int64(r.Missed))
}

// RecordAction counts a handled user action.
func (m *Metrics) RecordAction() {
	m.actionsHandled.Add(1)
}

// RecordSync counts a full re-sync.
func (m *Metrics) RecordSync(at time.Time) {
	m.syncPasses.Add(1)

	m.mu.Lock()
	m.lastMaintenance = at
	m.mu.Unlock()
}

// RecordError records an error under category.
func (m *Metrics) RecordError(category string, err error) {
	m.errorsTotal.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastError = err.Error()
	m.lastErrorAt = time.Now()
	if category != "" {
		m.errorsByCategory[category]++
	}
}

// AlarmsFired returns the total alarms fired.
func (m *Metrics) AlarmsFired() int64 { return m.alarmsFired.Load() }

// ActionsHandled returns the total actions handled.
func (m *Metrics) ActionsHandled() int64 { return m.actionsHandled.Load() }

// ErrorsTotal returns the total errors.
func (m *Metrics) ErrorsTotal() int64 { return m.errorsTotal.Load() }
