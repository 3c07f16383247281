package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/providers/confmap"
)

// AppName names the config directory under $XDG_CONFIG_HOME.
const AppName = "medtime"

// EnvPrefix is stripped from environment overrides. MEDTIME_HTTP__TIMEOUT
// sets http.timeout.
const EnvPrefix = "MEDTIME_"

// DefaultMap returns the built-in configuration layer.
func DefaultMap() map[string]interface{} {
	return map[string]interface{}{
		"storage": map[string]interface{}{
			"path": "",
		},
		"timezone": "Local",
		"daemon": map[string]interface{}{
			"listen":       "127.0.0.1:7473",
			"startup_wait": "500ms",
			"kill_timeout": "5s",
		},
		"http": map[string]interface{}{
			"timeout":      "30s",
			"max_retries":  3,
			"retry_delays": []string{"0s", "5s", "30s"},
		},
		"scheduler": map[string]interface{}{
			"grace_period":    "60m",
			"maintenance_at":  "03:00",
			"fallback_repeat": true,
			"default_snooze":  10,
		},
		"notifications": map[string]interface{}{
			"max_scheduled": 64,
			"log_only":      false,
		},
		"preferences": map[string]interface{}{
			"reminders_enabled": true,
			"frequency_mode":    "balanced",
			"quiet_hours": map[string]interface{}{
				"enabled": false,
				"start":   "22:00",
				"end":     "07:00",
			},
		},
	}
}

// NewDefaultProvider wraps DefaultMap for koanf.
func NewDefaultProvider() *confmap.Confmap {
	return confmap.Provider(DefaultMap(), ".")
}

// DefaultPath returns $XDG_CONFIG_HOME/medtime/config.yaml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}
