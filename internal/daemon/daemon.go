package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/manav03panchal/medtime/internal/config"
	"github.com/manav03panchal/medtime/internal/logging"
	"github.com/manav03panchal/medtime/internal/service"
	"github.com/manav03panchal/medtime/internal/storage"
)

// integrityScanLimit bounds the keys read by the storage health check.
const integrityScanLimit = 1000

// Daemon manages the background reminder process.
type Daemon struct {
	cfg     *config.Config
	pidFile *PIDFile
	version string
	debug   bool
}

// Status represents the daemon status.
type Status struct {
	Running   bool      `json:"running"`
	PID       int       `json:"pid,omitempty"`
	Listen    string    `json:"listen,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	Uptime    string    `json:"uptime,omitempty"`
}

// New creates a daemon manager for cfg.
func New(cfg *config.Config, version string) *Daemon {
	return &Daemon{
		cfg:     cfg,
		pidFile: NewPIDFile(),
		version: version,
	}
}

// SetDebug enables debug logging in the daemon process.
func (d *Daemon) SetDebug(debug bool) {
	d.debug = debug
}

// GetStatus returns the current daemon status.
func (d *Daemon) GetStatus() *Status {
	status := &Status{}

	pid := d.pidFile.GetRunningPID()
	if pid > 0 {
		status.Running = true
		status.PID = pid

		if state, err := readState(); err == nil {
			status.Listen = state.Listen
			status.StartedAt = state.StartedAt
			status.Uptime = formatUptime(time.Since(state.StartedAt))
		}
	}

	return status
}

// IsRunning returns true if the daemon is running.
func (d *Daemon) IsRunning() bool {
	return d.pidFile.IsRunning()
}

// Run starts the daemon in the foreground and blocks until a shutdown
// signal arrives, ctx is cancelled or the API listener fails.
func (d *Daemon) Run(ctx context.Context) error {
	if d.IsRunning() {
		return ErrAlreadyRunning
	}

	logCfg := logging.DaemonConfig(os.Stderr)
	if d.debug {
		logCfg = logging.DebugConfig()
	}
	logging.Init(logCfg)

	db, err := storage.Open(storage.Options{Path: storage.ResolvePath(d.cfg.Storage.Path)})
	if err != nil {
		return fmt.Errorf("cannot access database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn("failed to close database", logging.KeyError, err)
		}
	}()

	listen := d.cfg.Daemon.Listen
	engine, err := service.NewEngine(d.cfg, db, service.WithActionLinks("http://"+listen))
	if err != nil {
		return err
	}
	svc := service.NewLocal(engine)

	metrics := NewMetrics()
	health := NewHealthChecker(d.version, metrics, EngineStatsFunc(engine))
	health.AddCheck("storage", func(context.Context) error {
		if st := storage.CheckIntegrity(db, integrityScanLimit); !st.Healthy {
			return fmt.Errorf("%d unreadable values", st.ErrorCount)
		}
		return nil
	})

	if err := d.pidFile.Write(); err != nil {
		return err
	}
	defer d.pidFile.Remove()
	if err := writeState(&State{StartedAt: time.Now(), Listen: listen, Version: d.version}); err != nil {
		return err
	}
	defer removeState()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	clock := NewClock(engine, metrics)
	// Startup pass: roll the window forward, then deliver anything that
	// came due while the daemon was down.
	if err := clock.Maintain(ctx); err != nil {
		logging.WarnContext(ctx, "startup sync failed", logging.KeyError, err)
	}
	if err := clock.Tick(ctx, engine.Now()); err != nil {
		logging.WarnContext(ctx, "startup tick failed", logging.KeyError, err)
	}
	if err := clock.Start(ctx); err != nil {
		return err
	}
	defer clock.Stop()

	app := NewApp(NewHandler(svc, health, metrics))
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(listen)
	}()

	sigHandler := NewSignalHandler(func() { d.reload(ctx, engine) })
	sigHandler.Setup()
	defer sigHandler.Cleanup()

	logging.InfoContext(ctx, "daemon started", "pid", os.Getpid(), "listen", listen)

	waitDone := make(chan struct{})
	go func() {
		if sig := sigHandler.Wait(ctx); sig != nil {
			logging.InfoContext(ctx, "received signal", "signal", sig.String())
		}
		close(waitDone)
	}()

	var runErr error
	select {
	case <-waitDone:
	case err := <-listenErr:
		runErr = fmt.Errorf("failed to serve API on %s: %w", listen, err)
	}
	cancel()

	if err := app.ShutdownWithTimeout(d.cfg.Daemon.KillTimeout); err != nil {
		logging.Warn("API shutdown incomplete", logging.KeyError, err)
	}
	logging.Info("daemon stopped")
	return runErr
}

// reload re-reads notification preferences from the config file and
// re-syncs every reminder under them.
func (d *Daemon) reload(ctx context.Context, engine *service.Engine) {
	fresh, err := config.Load(d.cfg.Path())
	if err != nil {
		logging.ErrorContext(ctx, "reload failed", logging.KeyError, err)
		return
	}
	prefs, err := fresh.NotificationPreferences()
	if err != nil {
		logging.ErrorContext(ctx, "reload failed", logging.KeyError, err)
		return
	}

	sched := engine.Scheduler()
	if err := sched.SetPreferences(prefs); err != nil {
		logging.ErrorContext(ctx, "reload failed", logging.KeyError, err)
		return
	}
	d.cfg.SetNotificationPreferences(prefs)

	if _, err := sched.RefreshPermission(ctx); err != nil {
		logging.WarnContext(ctx, "permission check failed", logging.KeyError, err)
	}
	report, err := sched.SyncAll(ctx)
	if err != nil {
		logging.ErrorContext(ctx, "reload sync failed", logging.KeyError, err)
		return
	}
	logging.InfoContext(ctx, "configuration reloaded", "synced", report.Synced, "failed", report.Failed)
}

// EngineStatsFunc reads health statistics from e.
func EngineStatsFunc(e *service.Engine) StatsFunc {
	return func(ctx context.Context) (EngineStats, error) {
		alarms, err := e.Port().ListScheduled(ctx)
		if err != nil {
			return EngineStats{}, err
		}
		pending, err := e.Store().ListPendingFirings(ctx)
		if err != nil {
			return EngineStats{}, err
		}
		granted, err := e.Port().PermissionGranted(ctx)
		if err != nil {
			return EngineStats{}, err
		}
		return EngineStats{
			ScheduledAlarms:   len(alarms),
			PendingFirings:    len(pending),
			PermissionGranted: granted,
		}, nil
	}
}

// StartBackground re-executes the binary as a detached foreground daemon
// and waits for it to write its PID file.
func (d *Daemon) StartBackground() (int, error) {
	if d.IsRunning() {
		return d.pidFile.GetRunningPID(), ErrAlreadyRunning
	}

	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to get executable path: %w", err)
	}

	cmd := exec.Command(executable, d.foregroundArgs()...)
	cmd.Stdin = nil

	logPath := GetLogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err == nil {
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err == nil {
			defer logFile.Close()
			cmd.Stdout = logFile
			cmd.Stderr = logFile
		}
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon: %w", err)
	}

	time.Sleep(d.cfg.Daemon.StartupWait)

	if !d.pidFile.IsRunning() {
		if errMsg := readLastLogError(logPath); errMsg != "" {
			return 0, fmt.Errorf("daemon failed to start: %s", errMsg)
		}
		return 0, fmt.Errorf("daemon failed to start (check logs: %s)", logPath)
	}

	return cmd.Process.Pid, nil
}

func (d *Daemon) foregroundArgs() []string {
	args := []string{"daemon", "start", "--foreground"}
	if d.debug {
		args = append(args, "--debug")
	}
	if p := d.cfg.Path(); p != "" {
		args = append(args, "--config", p)
	}
	return args
}

// readLastLogError scans the tail of the log for an error line.
func readLastLogError(logPath string) string {
	data, err := os.ReadFile(logPath)
	if err != nil {
		return ""
	}

	lines := strings.Split(string(data), "\n")
	start := max(len(lines)-10, 0)

	for i := len(lines) - 1; i >= start; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.Contains(strings.ToLower(line), "error") ||
			strings.Contains(line, "cannot access database") ||
			strings.Contains(line, "failed to") {
			return line
		}
	}
	return ""
}

// Stop signals the running daemon and waits for it to exit, killing it
// after the configured timeout.
func (d *Daemon) Stop() error {
	pid := d.pidFile.GetRunningPID()
	if pid == 0 {
		return ErrNotRunning
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}

	if err := process.Signal(os.Interrupt); err != nil {
		if err := process.Kill(); err != nil {
			return fmt.Errorf("failed to stop daemon: %w", err)
		}
	}

	// The daemon is not our child, so poll instead of Wait.
	deadline := time.Now().Add(d.cfg.Daemon.KillTimeout)
	for IsProcessRunning(pid) && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if IsProcessRunning(pid) {
		_ = process.Kill()
	}

	d.pidFile.Remove()
	removeState()

	return nil
}

// Reload asks the running daemon to re-read its configuration.
func (d *Daemon) Reload() error {
	pid := d.pidFile.GetRunningPID()
	if pid == 0 {
		return ErrNotRunning
	}
	return signalReload(pid)
}

// State holds persistent daemon state.
type State struct {
	StartedAt time.Time `json:"started_at"`
	Listen    string    `json:"listen"`
	Version   string    `json:"version,omitempty"`
}

// getStatePath returns the path to the state file.
func getStatePath() string {
	return filepath.Join(xdg.StateHome, AppName, "daemon.json")
}

func writeState(state *State) error {
	path := getStatePath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

func readState() (*State, error) {
	data, err := os.ReadFile(getStatePath())
	if err != nil {
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}

	return &state, nil
}

func removeState() {
	if err := os.Remove(getStatePath()); err != nil && !os.IsNotExist(err) {
		logging.Warn("failed to remove daemon state file", logging.KeyError, err, "path", getStatePath())
	}
}

// GetLogPath returns the path to the daemon log file.
func GetLogPath() string {
	return filepath.Join(xdg.StateHome, AppName, "daemon.log")
}

// formatUptime formats a duration as uptime.
func formatUptime(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		hours := int(d.Hours())
		if minutes := int(d.Minutes()) % 60; minutes > 0 {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}

	days := int(d.Hours() / 24)
	if hours := int(d.Hours()) % 24; hours > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	return fmt.Sprintf("%dd", days)
}
