// Package config loads medtime configuration from built-in defaults, an
// optional YAML file and MEDTIME_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/model"
)

// Config is the full medtime configuration.
type Config struct {
	Storage       StorageConfig       `koanf:"storage"`
	Timezone      string              `koanf:"timezone"`
	Daemon        DaemonConfig        `koanf:"daemon"`
	HTTP          HTTPConfig          `koanf:"http"`
	Scheduler     SchedulerConfig     `koanf:"scheduler"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Preferences   PreferencesConfig   `koanf:"preferences"`

	// path is the file the config was read from, or would be saved to.
	path string
}

// StorageConfig locates the database. An empty path uses the XDG data dir.
type StorageConfig struct {
	Path string `koanf:"path"`
}

// DaemonConfig holds daemon-related configuration.
type DaemonConfig struct {
	// Listen is the loopback address of the control API.
	Listen string `koanf:"listen"`

	// StartupWait is the time to wait for the daemon to start before checking status.
	StartupWait time.Duration `koanf:"startup_wait"`

	// KillTimeout is the timeout for graceful shutdown before force kill.
	KillTimeout time.Duration `koanf:"kill_timeout"`
}

// HTTPConfig holds webhook client configuration.
type HTTPConfig struct {
	Timeout     time.Duration   `koanf:"timeout"`
	MaxRetries  int             `koanf:"max_retries"`
	RetryDelays []time.Duration `koanf:"retry_delays"`
}

// SchedulerConfig tunes alarm processing.
type SchedulerConfig struct {
	// GracePeriod is how long a fired alarm waits for an action before the
	// dose is auto-advanced.
	GracePeriod time.Duration `koanf:"grace_period"`

	// MaintenanceAt is the local time of the daily full re-sync.
	MaintenanceAt string `koanf:"maintenance_at"`

	// FallbackRepeat registers daily-repeating alarms and re-syncs after
	// each firing.
	FallbackRepeat bool `koanf:"fallback_repeat"`

	// DefaultSnooze is the snooze length in minutes when none is given.
	DefaultSnooze int `koanf:"default_snooze"`
}

// NotificationsConfig bounds the local notification port.
type NotificationsConfig struct {
	MaxScheduled int  `koanf:"max_scheduled"`
	LogOnly      bool `koanf:"log_only"`
}

// PreferencesConfig is the persisted form of model.NotificationPreferences.
type PreferencesConfig struct {
	RemindersEnabled bool             `koanf:"reminders_enabled"`
	FrequencyMode    string           `koanf:"frequency_mode"`
	QuietHours       QuietHoursConfig `koanf:"quiet_hours"`
}

// QuietHoursConfig is the persisted form of model.QuietHours.
type QuietHoursConfig struct {
	Enabled bool   `koanf:"enabled"`
	Start   string `koanf:"start"`
	End     string `koanf:"end"`
}

// Default returns the built-in configuration, ignoring files and env.
func Default() *Config {
	k := koanf.New(".")
	var cfg Config
	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		panic(fmt.Sprintf("config: defaults do not load: %v", err))
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		panic(fmt.Sprintf("config: defaults do not decode: %v", err))
	}
	cfg.path = DefaultPath()
	return &cfg
}

// Load reads defaults, then configPath (or the XDG default when empty) if
// it exists, then environment overrides.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	path := configPath
	if path == "" {
		path = DefaultPath()
	}
	path = expandPath(path)

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else if configPath != "" && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.path = path
	cfg.Storage.Path = expandPath(cfg.Storage.Path)

	return &cfg, nil
}

// envKey maps MEDTIME_PREFERENCES__FREQUENCY_MODE style names to koanf
// paths. A double underscore separates sections.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Path returns the file this config is bound to.
func (c *Config) Path() string {
	return c.path
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.NewUserErrorWithField("timezone", c.Timezone,
			"unknown timezone", "Use an IANA name like Europe/Berlin, or Local.")
	}
	return loc, nil
}

// MaintenanceTime parses scheduler.maintenance_at.
func (c *Config) MaintenanceTime() (model.TimeOfDay, error) {
	return model.ParseTimeOfDay(c.Scheduler.MaintenanceAt)
}

// NotificationPreferences converts the preferences section.
func (c *Config) NotificationPreferences() (model.NotificationPreferences, error) {
	start, err := model.ParseTimeOfDay(c.Preferences.QuietHours.Start)
	if err != nil {
		return model.NotificationPreferences{}, err
	}
	end, err := model.ParseTimeOfDay(c.Preferences.QuietHours.End)
	if err != nil {
		return model.NotificationPreferences{}, err
	}
	p := model.NotificationPreferences{
		RemindersEnabled: c.Preferences.RemindersEnabled,
		QuietHours: model.QuietHours{
			Enabled: c.Preferences.QuietHours.Enabled,
			Start:   start,
			End:     end,
		},
		FrequencyMode: model.FrequencyMode(c.Preferences.FrequencyMode),
	}
	return p, p.Validate()
}

// SetNotificationPreferences stores p in the preferences section.
func (c *Config) SetNotificationPreferences(p model.NotificationPreferences) {
	c.Preferences = PreferencesConfig{
		RemindersEnabled: p.RemindersEnabled,
		FrequencyMode:    string(p.FrequencyMode),
		QuietHours: QuietHoursConfig{
			Enabled: p.QuietHours.Enabled,
			Start:   p.QuietHours.Start.String(),
			End:     p.QuietHours.End.String(),
		},
	}
}

// Validate rejects malformed values.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Daemon.Listen == "" {
		return errors.NewUserError("daemon.listen is empty", "Set an address like 127.0.0.1:7473.")
	}
	if c.HTTP.Timeout <= 0 {
		return errors.NewUserErrorWithField("http.timeout", c.HTTP.Timeout.String(),
			"http timeout must be positive", "Use a duration like 30s.")
	}
	if c.HTTP.MaxRetries < 1 {
		return errors.NewUserError("http.max_retries must be at least 1", "")
	}
	if c.Scheduler.GracePeriod <= 0 {
		return errors.NewUserErrorWithField("scheduler.grace_period", c.Scheduler.GracePeriod.String(),
			"grace period must be positive", "Use a duration like 60m.")
	}
	if _, err := c.MaintenanceTime(); err != nil {
		return errors.NewUserErrorWithField("scheduler.maintenance_at", c.Scheduler.MaintenanceAt,
			"invalid maintenance time", errors.Suggestions[errors.ErrInvalidTimeOfDay])
	}
	if c.Scheduler.DefaultSnooze < 1 || c.Scheduler.DefaultSnooze > 1440 {
		return errors.NewUserError("scheduler.default_snooze must be between 1 and 1440 minutes", "")
	}
	if c.Notifications.MaxScheduled < 1 {
		return errors.NewUserError("notifications.max_scheduled must be at least 1", "")
	}
	if _, err := c.NotificationPreferences(); err != nil {
		return err
	}
	return nil
}

// Save writes c to its bound path as YAML.
func (c *Config) Save() error {
	return c.SaveTo(c.path)
}

// SaveTo writes c to path as YAML.
func (c *Config) SaveTo(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	b, err := yaml.Parser().Marshal(c.toMap())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0600)
}

func (c *Config) toMap() map[string]interface{} {
	delays := make([]string, len(c.HTTP.RetryDelays))
	for i, d := range c.HTTP.RetryDelays {
		delays[i] = d.String()
	}
	return map[string]interface{}{
		"storage":  map[string]interface{}{"path": c.Storage.Path},
		"timezone": c.Timezone,
		"daemon": map[string]interface{}{
			"listen":       c.Daemon.Listen,
			"startup_wait": c.Daemon.StartupWait.String(),
			"kill_timeout": c.Daemon.KillTimeout.String(),
		},
		"http": map[string]interface{}{
			"timeout":      c.HTTP.Timeout.String(),
			"max_retries":  c.HTTP.MaxRetries,
			"retry_delays": delays,
		},
		"scheduler": map[string]interface{}{
			"grace_period":    c.Scheduler.GracePeriod.String(),
			"maintenance_at":  c.Scheduler.MaintenanceAt,
			"fallback_repeat": c.Scheduler.FallbackRepeat,
			"default_snooze":  c.Scheduler.DefaultSnooze,
		},
		"notifications": map[string]interface{}{
			"max_scheduled": c.Notifications.MaxScheduled,
			"log_only":      c.Notifications.LogOnly,
		},
		"preferences": map[string]interface{}{
			"reminders_enabled": c.Preferences.RemindersEnabled,
			"frequency_mode":    c.Preferences.FrequencyMode,
			"quiet_hours": map[string]interface{}{
				"enabled": c.Preferences.QuietHours.Enabled,
				"start":   c.Preferences.QuietHours.Start,
				"end":     c.Preferences.QuietHours.End,
			},
		},
	}
}

func expandPath(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
