package cmd

import (
	"github.com/spf13/cobra"

	"github.com/manav03panchal/medtime/internal/errors"
)

// logCmd represents the log command.
var logCmd = &cobra.Command{
	Use:     "log REMINDER_ID",
	Aliases: []string{"history", "adherence"},
	Short:   "Show the adherence log of a medication",
	Long: `Show every recorded response to a medication's doses, oldest first,
followed by taken/snoozed/skipped counts and the adherence rate
(taken out of taken plus skipped).

The log outlives the reminder: a deleted reminder's history is still shown.

Examples:
  medtime log met
  medtime log met --format json`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeReminderArgs,
	RunE:              runLog,
}

func init() {
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	c := cmd.Context()
	id := args[0]

	entries, err := ctx.Service.Adherence(c, id)
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintAdherence(id, entries)
	}

	name := id
	if r, err := ctx.Service.GetReminder(c, id); err == nil {
		name = r.MedicationName
	} else if !errors.Is(err, errors.ErrReminderNotFound) {
		return err
	}
	ctx.CLIFormatter().PrintAdherence(name, entries)
	return nil
}
