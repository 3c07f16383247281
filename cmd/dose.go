package cmd

import (
	"github.com/spf13/cobra"

	"github.com/manav03panchal/medtime/internal/model"
	"github.com/manav03panchal/medtime/internal/parser"
	"github.com/manav03panchal/medtime/internal/service"
)

var doseFlagMinutes string

// takeCmd records a dose as taken.
var takeCmd = &cobra.Command{
	Use:   "take ALARM_ID",
	Short: "Record a dose as taken",
	Long: `Record the dose of a fired alarm as taken. Alarm IDs look like
<reminder-id>:HH:MM; 'medtime alarms' lists them.

Examples:
  medtime take met:08:00`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDoseAction(cmd, args[0], model.ActionTaken)
	},
}

// snoozeCmd snoozes a dose.
var snoozeCmd = &cobra.Command{
	Use:   "snooze ALARM_ID",
	Short: "Snooze a dose",
	Long: `Snooze a dose once. Snoozing an already snoozed dose records it as skipped.

Examples:
  medtime snooze met:08:00
  medtime snooze met:08:00 --for 30m`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDoseAction(cmd, args[0], model.ActionSnooze)
	},
}

// skipCmd records a dose as skipped.
var skipCmd = &cobra.Command{
	Use:   "skip ALARM_ID",
	Short: "Record a dose as skipped",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDoseAction(cmd, args[0], model.ActionSkip)
	},
}

func init() {
	snoozeCmd.Flags().StringVar(&doseFlagMinutes, "for", "",
		"Snooze length, e.g. 15, 30m or 1h (default from config)")

	for _, c := range []*cobra.Command{takeCmd, snoozeCmd, skipCmd} {
		c.ValidArgsFunction = completeAlarmArgs
		rootCmd.AddCommand(c)
	}
}

func runDoseAction(cmd *cobra.Command, alarmID string, kind model.ActionKind) error {
	c := cmd.Context()
	// Without a daemon, fire anything that came due so the action finds
	// its pending firing.
	if err := ctx.Deliver(c); err != nil {
		return err
	}

	req := service.ActionRequest{AlarmID: alarmID, Action: string(kind)}
	if kind == model.ActionSnooze {
		minutes, err := parser.SnoozeMinutes(doseFlagMinutes, ctx.Config.Scheduler.DefaultSnooze)
		if err != nil {
			return err
		}
		req.Minutes = minutes
	}

	out, err := ctx.Service.Act(c, req)
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintOutcome(alarmID, out)
	}
	ctx.CLIFormatter().PrintOutcome(alarmID, out)
	return nil
}
