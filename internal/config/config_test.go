package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/model"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 500*time.Millisecond, cfg.Daemon.StartupWait)
	assert.Equal(t, 5*time.Second, cfg.Daemon.KillTimeout)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 3, cfg.HTTP.MaxRetries)
	assert.Equal(t, []time.Duration{0, 5 * time.Second, 30 * time.Second}, cfg.HTTP.RetryDelays)
	assert.Equal(t, 60*time.Minute, cfg.Scheduler.GracePeriod)
	assert.True(t, cfg.Scheduler.FallbackRepeat)
	assert.Equal(t, 10, cfg.Scheduler.DefaultSnooze)
	assert.Equal(t, 64, cfg.Notifications.MaxScheduled)
	require.NoError(t, cfg.Validate())

	prefs, err := cfg.NotificationPreferences()
	require.NoError(t, err)
	assert.Equal(t, model.DefaultNotificationPreferences(), prefs)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
timezone: UTC
scheduler:
  grace_period: 15m
preferences:
  frequency_mode: minimal
  quiet_hours:
    enabled: true
    start: "23:00"
    end: "06:30"
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0600))
	t.Setenv("MEDTIME_NOTIFICATIONS__MAX_SCHEDULED", "8")
	t.Setenv("MEDTIME_SCHEDULER__GRACE_PERIOD", "20m")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, path, cfg.Path())
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, 20*time.Minute, cfg.Scheduler.GracePeriod, "env wins over file")
	assert.Equal(t, 8, cfg.Notifications.MaxScheduled)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout, "untouched keys keep defaults")

	prefs, err := cfg.NotificationPreferences()
	require.NoError(t, err)
	assert.Equal(t, model.FrequencyMinimal, prefs.FrequencyMode)
	assert.True(t, prefs.QuietHours.Enabled)
	assert.Equal(t, model.MustTimeOfDay("23:00"), prefs.QuietHours.Start)
	assert.Equal(t, model.MustTimeOfDay("06:30"), prefs.QuietHours.End)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.HTTP.MaxRetries)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scheduler: [unclosed"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
		{"empty listen", func(c *Config) { c.Daemon.Listen = "" }},
		{"zero timeout", func(c *Config) { c.HTTP.Timeout = 0 }},
		{"zero retries", func(c *Config) { c.HTTP.MaxRetries = 0 }},
		{"zero grace", func(c *Config) { c.Scheduler.GracePeriod = 0 }},
		{"bad maintenance", func(c *Config) { c.Scheduler.MaintenanceAt = "25:00" }},
		{"snooze too long", func(c *Config) { c.Scheduler.DefaultSnooze = 2000 }},
		{"zero quota", func(c *Config) { c.Notifications.MaxScheduled = 0 }},
		{"bad mode", func(c *Config) { c.Preferences.FrequencyMode = "loud" }},
		{"bad quiet start", func(c *Config) { c.Preferences.QuietHours.Start = "noon" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrValidation)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	prefs := model.DefaultNotificationPreferences().
		WithRemindersEnabled(false).
		WithQuietHours(model.QuietHours{Enabled: true, Start: model.MustTimeOfDay("21:15"), End: model.MustTimeOfDay("05:45")})
	cfg.SetNotificationPreferences(prefs)
	cfg.Scheduler.GracePeriod = 45 * time.Minute

	require.NoError(t, cfg.SaveTo(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	got, err := loaded.NotificationPreferences()
	require.NoError(t, err)
	assert.Equal(t, prefs, got)
	assert.Equal(t, 45*time.Minute, loaded.Scheduler.GracePeriod)
	assert.Equal(t, cfg.HTTP.RetryDelays, loaded.HTTP.RetryDelays)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "http.timeout", envKey("MEDTIME_HTTP__TIMEOUT"))
	assert.Equal(t, "preferences.quiet_hours.start", envKey("MEDTIME_PREFERENCES__QUIET_HOURS__START"))
	assert.Equal(t, "timezone", envKey("MEDTIME_TIMEZONE"))
}
