package cmd

import (
	"github.com/spf13/cobra"
)

// alarmsCmd lists scheduled and fired alarms.
var alarmsCmd = &cobra.Command{
	Use:     "alarms",
	Aliases: []string{"a", "status"},
	Short:   "List scheduled alarms and doses awaiting a response",
	Long: `List every registered alarm and every fired alarm that is still waiting
for take, snooze or skip.

Examples:
  medtime alarms
  medtime alarms --format json`,
	RunE: runAlarms,
}

// syncCmd re-syncs every reminder.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Re-register the alarms of every reminder",
	Long: `Recompute and re-register the alarms of every reminder and remove alarms
that no longer belong to one. The daemon does this once a day.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(alarmsCmd)
	rootCmd.AddCommand(syncCmd)
}

func runAlarms(cmd *cobra.Command, args []string) error {
	c := cmd.Context()
	if err := ctx.Deliver(c); err != nil {
		return err
	}

	alarms, err := ctx.Service.Alarms(c)
	if err != nil {
		return err
	}
	pending, err := ctx.Service.Pending(c)
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintAlarms(alarms, pending)
	}
	cli := ctx.CLIFormatter()
	cli.PrintAlarms(alarms, pending, ctx.Now())
	if !ctx.Remote && len(alarms) > 0 {
		cli.Println()
		cli.Muted("The daemon is not running; alarms only ring while it is. Start it with 'medtime daemon start'.")
	}
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	report, err := ctx.Service.SyncAll(cmd.Context())
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.Formatter.JSON(report)
	}
	ctx.CLIFormatter().PrintSyncReport(report)
	return nil
}
