package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/medtime/internal/daemon"
	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/output"
	"github.com/manav03panchal/medtime/internal/service"
)

// Daemon command flags.
var (
	daemonFlagForeground bool
	daemonFlagTail       int
)

// daemonCmd represents the daemon command. None of its subcommands open
// the database, since the running daemon holds its lock.
var daemonCmd = &cobra.Command{
	Use:     "daemon [command]",
	Aliases: []string{"bg", "service"},
	Short:   "Manage the background daemon that rings the alarms",
	Long: `Manage the medtime daemon. It fires due alarms, expires unanswered
doses, re-syncs reminders once a day and serves the HTTP API that the CLI,
the dashboard and notification action links talk to.

Examples:
  medtime daemon start
  medtime daemon status
  medtime daemon reload
  medtime daemon logs --tail 50
  medtime daemon install`,
	Annotations: map[string]string{noRuntime: "true"},
	RunE:        runDaemonStatus,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon",
	Long: `Start the daemon in the background, or in the foreground with
--foreground (as service managers do).`,
	RunE: runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	RunE:  runDaemonStop,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status and health",
	RunE:  runDaemonStatus,
}

var daemonReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Re-read notification preferences and re-sync",
	RunE:  runDaemonReload,
}

var daemonLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the end of the daemon log",
	RunE:  runDaemonLogs,
}

var daemonInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Start the daemon at login (systemd or launchd)",
	RunE:  runDaemonInstall,
}

var daemonUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Stop starting the daemon at login",
	RunE:  runDaemonUninstall,
}

func init() {
	daemonStartCmd.Flags().BoolVar(&daemonFlagForeground, "foreground", false,
		"Run in the foreground")
	daemonLogsCmd.Flags().IntVarP(&daemonFlagTail, "tail", "n", 20, "Number of lines to show")

	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonReloadCmd)
	daemonCmd.AddCommand(daemonLogsCmd)
	daemonCmd.AddCommand(daemonInstallCmd)
	daemonCmd.AddCommand(daemonUninstallCmd)
	rootCmd.AddCommand(daemonCmd)
}

// standaloneFormatter builds a formatter for commands without a runtime.
func standaloneFormatter(cmd *cobra.Command) (*output.Formatter, error) {
	format, err := output.ParseFormat(flagFormat)
	if err != nil {
		return nil, err
	}
	return &output.Formatter{
		Writer:    cmd.OutOrStdout(),
		Format:    format,
		ColorMode: parseColor(flagColor),
	}, nil
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	d := daemon.New(cfg, Version)
	d.SetDebug(flagDebug)

	if daemonFlagForeground {
		return d.Run(cmd.Context())
	}

	f, err := standaloneFormatter(cmd)
	if err != nil {
		return err
	}
	pid, err := d.StartBackground()
	if errors.Is(err, daemon.ErrAlreadyRunning) {
		return errors.NewUserError(fmt.Sprintf("daemon is already running (PID %d)", pid),
			"Use 'medtime daemon reload' to apply configuration changes.")
	}
	if err != nil {
		return err
	}
	if f.Format == output.FormatJSON {
		return f.JSON(map[string]interface{}{"status": "started", "pid": pid, "listen": cfg.Daemon.Listen})
	}
	output.NewCLIFormatter(f).Success(fmt.Sprintf("Daemon started (PID %d, listening on %s)", pid, cfg.Daemon.Listen))
	return nil
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f, err := standaloneFormatter(cmd)
	if err != nil {
		return err
	}
	d := daemon.New(cfg, Version)
	pid := d.GetStatus().PID
	if err := d.Stop(); err != nil {
		if errors.Is(err, daemon.ErrNotRunning) {
			output.NewCLIFormatter(f).Muted("Daemon is not running.")
			return nil
		}
		return err
	}
	if f.Format == output.FormatJSON {
		return f.JSON(map[string]interface{}{"status": "stopped", "pid": pid})
	}
	output.NewCLIFormatter(f).Success(fmt.Sprintf("Daemon stopped (was PID %d)", pid))
	return nil
}

// daemonStatus is the JSON shape of 'daemon status'.
type daemonStatus struct {
	*daemon.Status
	Health    *daemon.HealthStatus `json:"health,omitempty"`
	Installed bool                 `json:"installed"`
	LogPath   string               `json:"log_path"`
}

func runDaemonStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f, err := standaloneFormatter(cmd)
	if err != nil {
		return err
	}

	st := daemonStatus{Status: daemon.New(cfg, Version).GetStatus(), LogPath: daemon.GetLogPath()}
	if um, err := daemon.NewUnitManager(cfg.Path()); err == nil {
		st.Installed = um.IsInstalled()
	}
	if st.Running {
		addr := st.Listen
		if addr == "" {
			addr = cfg.Daemon.Listen
		}
		c, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
		defer cancel()
		var h daemon.HealthStatus
		if err := service.NewRemote(addr, 0).Health(c, &h); err == nil {
			st.Health = &h
		}
	}

	if f.Format == output.FormatJSON {
		return f.JSON(st)
	}

	cli := output.NewCLIFormatter(f)
	cli.Title("medtime daemon")
	if !st.Running {
		cli.Printf("Status:      stopped\n")
		cli.Printf("At login:    %s\n", yesNo(st.Installed))
		cli.Println()
		cli.Muted("Start it with 'medtime daemon start'.")
		return nil
	}
	cli.Printf("Status:      running (PID %d)\n", st.PID)
	cli.Printf("Uptime:      %s\n", st.Uptime)
	cli.Printf("Listening:   %s\n", st.Listen)
	cli.Printf("At login:    %s\n", yesNo(st.Installed))
	if h := st.Health; h != nil {
		cli.Printf("Health:      %s\n", h.Status)
		cli.Printf("Alarms:      %d scheduled, %d awaiting a response\n", h.ScheduledAlarms, h.PendingFirings)
		cli.Printf("Delivery:    %s\n", grantedLabel(h.PermissionGranted))
		for _, c := range h.Checks {
			if !c.Healthy {
				cli.Warning(fmt.Sprintf("check %s failed: %s", c.Name, c.Error))
			}
		}
	} else {
		cli.Warning("The daemon is not answering on " + st.Listen + ".")
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func grantedLabel(granted bool) string {
	if granted {
		return "allowed"
	}
	return "no enabled webhook"
}

func runDaemonReload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f, err := standaloneFormatter(cmd)
	if err != nil {
		return err
	}
	if err := daemon.New(cfg, Version).Reload(); err != nil {
		return err
	}
	if f.Format == output.FormatJSON {
		return f.JSON(map[string]string{"status": "reloading"})
	}
	output.NewCLIFormatter(f).Success("Reload requested")
	return nil
}

func runDaemonLogs(cmd *cobra.Command, args []string) error {
	path := daemon.GetLogPath()
	lines, err := tailFile(path, daemonFlagTail)
	if os.IsNotExist(err) {
		cmd.Printf("No daemon log at %s\n", path)
		return nil
	}
	if err != nil {
		return err
	}
	for _, line := range lines {
		cmd.Println(line)
	}
	return nil
}

// tailFile reads the last n lines from a file.
func tailFile(path string, n int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	return lines, scanner.Err()
}

func runDaemonInstall(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	um, err := daemon.NewUnitManager(cfg.Path())
	if err != nil {
		return err
	}
	path, err := um.Install()
	if err != nil {
		return err
	}
	cmd.Printf("Installed %s\n", path)
	cmd.Println("The daemon now starts at login.")
	return nil
}

func runDaemonUninstall(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	um, err := daemon.NewUnitManager(cfg.Path())
	if err != nil {
		return err
	}
	if !um.IsInstalled() {
		cmd.Println("The daemon is not installed.")
		return nil
	}
	path, err := um.Uninstall()
	if err != nil {
		return err
	}
	cmd.Printf("Removed %s\n", path)
	return nil
}
