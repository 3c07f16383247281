package notify

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/model"
)

// Call is one recorded MemoryPort invocation.
type Call struct {
	Op      string // "schedule" or "cancel"
	AlarmID string
	FireAt  time.Time
}

type memoryAlarm struct {
	fireAt  time.Time
	payload model.AlarmPayload
}

// MemoryPort keeps registrations in process. It records every call and
// can simulate a quota, a missing permission, or failures.
type MemoryPort struct {
	mu         sync.Mutex
	alarms     map[string]memoryAlarm
	calls      []Call
	quota      int
	denied     bool
	failWith   error
	permChecks int
}

// NewMemoryPort returns an empty port with permission granted and no quota.
func NewMemoryPort() *MemoryPort {
	return &MemoryPort{alarms: make(map[string]memoryAlarm)}
}

// Schedule implements Port.
func (p *MemoryPort) Schedule(_ context.Context, alarmID string, fireAt time.Time, payload model.AlarmPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failWith != nil {
		return p.failWith
	}
	if _, exists := p.alarms[alarmID]; !exists && p.quota > 0 && len(p.alarms) >= p.quota {
		return quotaError(p.quota)
	}
	p.calls = append(p.calls, Call{Op: "schedule", AlarmID: alarmID, FireAt: fireAt})
	p.alarms[alarmID] = memoryAlarm{fireAt: fireAt, payload: payload}
	return nil
}

// Cancel implements Port.
func (p *MemoryPort) Cancel(_ context.Context, alarmID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failWith != nil {
		return p.failWith
	}
	p.calls = append(p.calls, Call{Op: "cancel", AlarmID: alarmID})
	delete(p.alarms, alarmID)
	return nil
}

// ListScheduled implements Port, ordered by fire time then id.
func (p *MemoryPort) ListScheduled(_ context.Context) ([]model.ScheduledAlarm, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failWith != nil {
		return nil, p.failWith
	}
	out := make([]model.ScheduledAlarm, 0, len(p.alarms))
	for id, a := range p.alarms {
		out = append(out, model.ScheduledAlarm{AlarmID: id, FireAt: a.fireAt})
	}
	sortScheduled(out)
	return out, nil
}

// PermissionGranted implements PermissionChecker.
func (p *MemoryPort) PermissionGranted(context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.permChecks++
	return !p.denied, nil
}

// SetPermission grants or revokes delivery permission.
func (p *MemoryPort) SetPermission(granted bool) {
	p.mu.Lock()
	p.denied = !granted
	p.mu.Unlock()
}

// SetQuota caps live registrations; 0 disables the cap.
func (p *MemoryPort) SetQuota(n int) {
	p.mu.Lock()
	p.quota = n
	p.mu.Unlock()
}

// FailWith makes every subsequent call return err; nil restores service.
func (p *MemoryPort) FailWith(err error) {
	p.mu.Lock()
	p.failWith = err
	p.mu.Unlock()
}

// Calls returns a copy of the call log.
func (p *MemoryPort) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.calls)
}

// ResetCalls clears the call log, keeping registrations.
func (p *MemoryPort) ResetCalls() {
	p.mu.Lock()
	p.calls = nil
	p.mu.Unlock()
}

// PermissionChecks counts PermissionGranted calls.
func (p *MemoryPort) PermissionChecks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.permChecks
}

// Lookup returns the registration for alarmID.
func (p *MemoryPort) Lookup(alarmID string) (time.Time, model.AlarmPayload, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.alarms[alarmID]
	return a.fireAt, a.payload, ok
}

// IDs returns registered ids with the given prefix, sorted.
func (p *MemoryPort) IDs(prefix string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ids []string
	for id := range p.alarms {
		if strings.HasPrefix(id, prefix) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func sortScheduled(s []model.ScheduledAlarm) {
	slices.SortFunc(s, func(a, b model.ScheduledAlarm) int {
		if c := a.FireAt.Compare(b.FireAt); c != 0 {
			return c
		}
		return strings.Compare(a.AlarmID, b.AlarmID)
	})
}

func quotaError(limit int) error {
	return &errors.SystemError{
		Message: "scheduled alarm limit reached",
		Op:      "schedule",
		Cause:   fmt.Errorf("limit is %d", limit),
		Kind:    errors.ErrQuotaExceeded,
	}
}
