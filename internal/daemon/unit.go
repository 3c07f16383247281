package daemon

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"text/template"

	"github.com/adrg/xdg"
)

const (
	launchdLabel = "com.medtime.daemon"
	systemdUnit  = "medtime.service"
)

var launchdTemplate = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
{{- range .Args}}
        <string>{{.}}</string>
{{- end}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
    <key>StandardOutPath</key>
    <string>{{.LogPath}}</string>
    <key>StandardErrorPath</key>
    <string>{{.LogPath}}</string>
</dict>
</plist>
`))

var systemdTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description=medtime medication reminders
After=network.target

[Service]
Type=simple
ExecStart={{range $i, $a := .Args}}{{if $i}} {{end}}{{$a}}{{end}}
ExecReload=/bin/kill -HUP $MAINPID
Restart=on-failure
RestartSec=5
StandardOutput=append:{{.LogPath}}
StandardError=append:{{.LogPath}}
Environment="XDG_CONFIG_HOME={{.ConfigHome}}"
Environment="XDG_DATA_HOME={{.DataHome}}"
Environment="XDG_STATE_HOME={{.StateHome}}"

[Install]
WantedBy=default.target
`))

// unitData fills the service templates.
type unitData struct {
	Label      string
	Args       []string
	LogPath    string
	ConfigHome string
	DataHome   string
	StateHome  string
}

// UnitManager installs the daemon as a per-user launchd agent or systemd
// service so it starts at login.
type UnitManager struct {
	goos       string
	executable string
	configPath string
	home       string
	run        func(name string, args ...string) error
}

// NewUnitManager creates a unit manager for the running binary.
// configPath, if set, is passed to the daemon.
func NewUnitManager(configPath string) (*UnitManager, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}
	home, _ := os.UserHomeDir()
	return &UnitManager{
		goos:       runtime.GOOS,
		executable: exe,
		configPath: configPath,
		home:       home,
		run:        runCommand,
	}, nil
}

func runCommand(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, bytes.TrimSpace(out))
	}
	return nil
}

func (m *UnitManager) data() unitData {
	args := []string{m.executable, "daemon", "start", "--foreground"}
	if m.configPath != "" {
		args = append(args, "--config", m.configPath)
	}
	return unitData{
		Label:      launchdLabel,
		Args:       args,
		LogPath:    GetLogPath(),
		ConfigHome: xdg.ConfigHome,
		DataHome:   xdg.DataHome,
		StateHome:  xdg.StateHome,
	}
}

// Path returns where the unit file lives on this OS.
func (m *UnitManager) Path() (string, error) {
	switch m.goos {
	case "darwin":
		return filepath.Join(m.home, "Library", "LaunchAgents", launchdLabel+".plist"), nil
	case "linux":
		return filepath.Join(xdg.ConfigHome, "systemd", "user", systemdUnit), nil
	default:
		return "", fmt.Errorf("service installation is not supported on %s", m.goos)
	}
}

// Render returns the unit file content for this OS.
func (m *UnitManager) Render() ([]byte, error) {
	var tmpl *template.Template
	switch m.goos {
	case "darwin":
		tmpl = launchdTemplate
	case "linux":
		tmpl = systemdTemplate
	default:
		return nil, fmt.Errorf("service installation is not supported on %s", m.goos)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, m.data()); err != nil {
		return nil, fmt.Errorf("failed to render unit: %w", err)
	}
	return buf.Bytes(), nil
}

// Install writes the unit file and asks the service manager to start it.
func (m *UnitManager) Install() (string, error) {
	path, err := m.Path()
	if err != nil {
		return "", err
	}
	content, err := m.Render()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create unit directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write unit file: %w", err)
	}

	if m.goos == "darwin" {
		return path, m.run("launchctl", "load", path)
	}
	for _, args := range [][]string{
		{"--user", "daemon-reload"},
		{"--user", "enable", "--now", systemdUnit},
	} {
		if err := m.run("systemctl", args...); err != nil {
			return path, err
		}
	}
	return path, nil
}

// Uninstall stops the service and removes the unit file. Errors from the
// service manager are ignored, since the unit may not be loaded.
func (m *UnitManager) Uninstall() (string, error) {
	path, err := m.Path()
	if err != nil {
		return "", err
	}

	if m.goos == "darwin" {
		_ = m.run("launchctl", "unload", path)
	} else {
		_ = m.run("systemctl", "--user", "disable", "--now", systemdUnit)
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return path, fmt.Errorf("failed to remove unit file: %w", err)
	}
	if m.goos == "linux" {
		_ = m.run("systemctl", "--user", "daemon-reload")
	}
	return path, nil
}

// IsInstalled reports whether the unit file exists.
func (m *UnitManager) IsInstalled() bool {
	path, err := m.Path()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
