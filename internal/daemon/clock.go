package daemon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/manav03panchal/medtime/internal/logging"
	"github.com/manav03panchal/medtime/internal/service"
)

// tickSpec runs the firing pass at second zero of every minute.
const tickSpec = "0 * * * * *"

// sleepGap is the tick interval beyond which the host is assumed to have
// been asleep.
const sleepGap = 5 * time.Minute

// Clock drives the engine: it fires due alarms and expires stale firings
// every minute, and re-syncs every reminder once a day.
type Clock struct {
	cron    *cron.Cron
	engine  *service.Engine
	metrics *Metrics

	mu       sync.Mutex
	ctx      context.Context
	lastTick time.Time
}

// NewClock creates a clock for e. Jobs run in the engine's time zone.
func NewClock(e *service.Engine, metrics *Metrics) *Clock {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Clock{
		cron:    cron.New(cron.WithSeconds(), cron.WithLocation(e.Scheduler().Location())),
		engine:  e,
		metrics: metrics,
		ctx:     context.Background(),
	}
}

// Start registers the jobs and starts the cron loop. ctx is handed to
// every job run.
func (c *Clock) Start(ctx context.Context) error {
	c.mu.Lock()
	c.ctx = ctx
	c.lastTick = c.engine.Now()
	c.mu.Unlock()

	if _, err := c.cron.AddFunc(tickSpec, c.runTick); err != nil {
		return fmt.Errorf("failed to add tick job: %w", err)
	}

	at, err := c.engine.Config().MaintenanceTime()
	if err != nil {
		return err
	}
	spec := fmt.Sprintf("0 %d %d * * *", at.Minute(), at.Hour())
	if _, err := c.cron.AddFunc(spec, c.runMaintenance); err != nil {
		return fmt.Errorf("failed to add maintenance job: %w", err)
	}

	c.cron.Start()
	logging.InfoContext(ctx, "clock started", "maintenance_at", at.String())
	return nil
}

// Stop stops the cron loop and waits for running jobs.
func (c *Clock) Stop() {
	<-c.cron.Stop().Done()
}

func (c *Clock) jobContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx
}

func (c *Clock) runTick() {
	ctx := c.jobContext()
	if err := c.Tick(ctx, c.engine.Now()); err != nil {
		logging.ErrorContext(ctx, "tick failed", logging.KeyError, err)
	}
}

func (c *Clock) runMaintenance() {
	ctx := c.jobContext()
	if err := c.Maintain(ctx); err != nil {
		logging.ErrorContext(ctx, "maintenance failed", logging.KeyError, err)
	}
}

// Tick fires every alarm due at now, then expires firings whose grace
// period has passed. After a long gap the due alarms are still fired, so
// doses scheduled while the host slept are delivered late rather than
// dropped.
func (c *Clock) Tick(ctx context.Context, now time.Time) error {
	c.mu.Lock()
	gap := now.Sub(c.lastTick)
	c.lastTick = now
	c.mu.Unlock()
	if gap > sleepGap {
		logging.InfoContext(ctx, "resuming after gap", logging.KeyDuration, gap.Milliseconds())
	}

	sched := c.engine.Scheduler()
	fired, err := c.engine.Port().FireDue(ctx, now, sched.OnFired)
	c.metrics.RecordFire(fired, now)
	if err != nil {
		c.metrics.RecordError("fire", err)
		return err
	}

	expired, err := sched.ExpireFirings(ctx, now)
	c.metrics.RecordExpire(expired)
	if err != nil {
		c.metrics.RecordError("expire", err)
		return err
	}

	if fired.Fired > 0 || expired.Expired > 0 {
		logging.DebugContext(ctx, "tick",
			"fired", fired.Fired, "expired", expired.Expired, "missed", expired.Missed)
	}
	return nil
}

// Maintain rechecks the notification permission and re-syncs every
// reminder, rolling the scheduling window forward.
func (c *Clock) Maintain(ctx context.Context) error {
	sched := c.engine.Scheduler()
	if _, err := sched.RefreshPermission(ctx); err != nil {
		c.metrics.RecordError("permission", err)
		return err
	}
	report, err := sched.SyncAll(ctx)
	c.metrics.RecordSync(c.engine.Now())
	if err != nil {
		c.metrics.RecordError("sync", err)
		return err
	}
	logging.InfoContext(ctx, "maintenance sync",
		"synced", report.Synced, "failed", report.Failed, "orphaned", report.Orphaned)
	return nil
}
