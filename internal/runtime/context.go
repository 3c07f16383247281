// Package runtime builds the per-invocation context of the medtime CLI:
// configuration, the service the commands talk to, and the formatter.
package runtime

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/manav03panchal/medtime/internal/config"
	"github.com/manav03panchal/medtime/internal/daemon"
	"github.com/manav03panchal/medtime/internal/logging"
	"github.com/manav03panchal/medtime/internal/output"
	"github.com/manav03panchal/medtime/internal/service"
	"github.com/manav03panchal/medtime/internal/storage"
)

// EnvDatabase overrides the database path; ":memory:" opens a throwaway
// in-memory database.
const EnvDatabase = "MEDTIME_DATABASE"

// Context holds the application runtime context.
type Context struct {
	Config    *config.Config
	Service   service.Service
	Formatter *output.Formatter
	Debug     bool

	// Remote is set when commands go through a running daemon.
	Remote bool

	db     *storage.DB
	engine *service.Engine
}

// Options configures the runtime context.
type Options struct {
	ConfigPath string
	DBPath     string
	InMemory   bool
	Format     output.Format
	ColorMode  output.ColorMode
	Debug      bool
	// Offline opens the database directly even when a daemon is running.
	// It fails while the daemon holds the database lock.
	Offline bool
	Stdout  io.Writer
	Now     func() time.Time
}

// DefaultOptions returns default runtime options.
func DefaultOptions() Options {
	return Options{
		Format:    output.FormatCLI,
		ColorMode: output.ColorAuto,
	}
}

// New creates a runtime context. With a daemon running, the service is a
// client of its API; otherwise the engine runs in process.
func New(opts Options) (*Context, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.DBPath != "" {
		cfg.Storage.Path = opts.DBPath
	}
	if envPath := os.Getenv(EnvDatabase); envPath != "" {
		if envPath == ":memory:" {
			opts.InMemory = true
		} else {
			cfg.Storage.Path = envPath
		}
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	formatter := output.NewFormatter()
	if opts.Format != "" {
		formatter.Format = opts.Format
	}
	if opts.ColorMode != "" {
		formatter.ColorMode = opts.ColorMode
	}
	if opts.Stdout != nil {
		formatter.Writer = opts.Stdout
	}
	formatter.Location = loc

	c := &Context{
		Config:    cfg,
		Formatter: formatter,
		Debug:     opts.Debug,
	}

	if !opts.Offline && !opts.InMemory {
		if st := daemon.New(cfg, "").GetStatus(); st.Running {
			addr := st.Listen
			if addr == "" {
				addr = cfg.Daemon.Listen
			}
			c.Service = service.NewRemote(addr, cfg.HTTP.Timeout)
			c.Remote = true
			logging.DebugLog("using daemon", "pid", st.PID, "listen", addr)
			return c, nil
		}
	}

	db, err := storage.Open(storage.Options{
		Path:     storage.ResolvePath(cfg.Storage.Path),
		InMemory: opts.InMemory,
	})
	if err != nil {
		return nil, err
	}

	var engineOpts []service.EngineOption
	if opts.Now != nil {
		engineOpts = append(engineOpts, service.WithEngineClock(opts.Now))
	}
	engine, err := service.NewEngine(cfg, db, engineOpts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	c.db = db
	c.engine = engine
	c.Service = service.NewLocal(engine)
	return c, nil
}

// Close releases the database when the engine runs in process.
func (c *Context) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Engine returns the in-process engine, or nil when remote.
func (c *Context) Engine() *service.Engine {
	return c.engine
}

// Now returns the current time in the configured zone.
func (c *Context) Now() time.Time {
	if c.engine != nil {
		return c.engine.Now()
	}
	return time.Now().In(c.Formatter.Location)
}

// Location returns the configured zone.
func (c *Context) Location() *time.Location {
	return c.Formatter.Location
}

// Deliver runs one delivery pass when the engine is local, so a command
// run without the daemon still fires alarms that came due.
func (c *Context) Deliver(ctx context.Context) error {
	if c.engine == nil {
		return nil
	}
	sched := c.engine.Scheduler()
	now := c.engine.Now()
	if _, err := c.engine.Port().FireDue(ctx, now, sched.OnFired); err != nil {
		return err
	}
	_, err := sched.ExpireFirings(ctx, now)
	return err
}

// CLIFormatter returns a CLI formatter.
func (c *Context) CLIFormatter() *output.CLIFormatter {
	return output.NewCLIFormatter(c.Formatter)
}

// JSONFormatter returns a JSON formatter.
func (c *Context) JSONFormatter() *output.JSONFormatter {
	return output.NewJSONFormatter(c.Formatter)
}

// IsJSON returns true if output format is JSON.
func (c *Context) IsJSON() bool {
	return c.Formatter.Format == output.FormatJSON
}

// Debugf prints debug output if debug mode is enabled.
func (c *Context) Debugf(format string, args ...interface{}) {
	if c.Debug {
		c.Formatter.Printf("[DEBUG] "+format+"\n", args...)
	}
}
