package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/model"
	"github.com/manav03panchal/medtime/internal/parser"
)

// Prefs command flags.
var (
	prefsFlagReminders string
	prefsFlagQuiet     string
	prefsFlagMode      string
)

// prefsCmd represents the prefs command.
var prefsCmd = &cobra.Command{
	Use:     "prefs [command]",
	Aliases: []string{"preferences"},
	Short:   "Show or change notification preferences",
	RunE:    runPrefsShow,
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show notification preferences",
	RunE:  runPrefsShow,
}

var prefsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change notification preferences",
	Long: `Change notification preferences and re-sync every reminder. Slots inside
quiet hours are not registered; the change takes effect immediately.

Examples:
  medtime prefs set --quiet 22:00-07:00
  medtime prefs set --quiet off
  medtime prefs set --reminders off
  medtime prefs set --mode comprehensive`,
	RunE: runPrefsSet,
}

func init() {
	prefsSetCmd.Flags().StringVar(&prefsFlagReminders, "reminders", "", "Master switch: on or off")
	prefsSetCmd.Flags().StringVar(&prefsFlagQuiet, "quiet", "", "Quiet hours as START-END (22:00-07:00), or off")
	prefsSetCmd.Flags().StringVar(&prefsFlagMode, "mode", "", "Notification detail: minimal, balanced, comprehensive")

	prefsCmd.AddCommand(prefsShowCmd)
	prefsCmd.AddCommand(prefsSetCmd)
	rootCmd.AddCommand(prefsCmd)
}

func runPrefsShow(cmd *cobra.Command, args []string) error {
	p, err := ctx.Service.Preferences(cmd.Context())
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.Formatter.JSON(p)
	}
	ctx.CLIFormatter().PrintPreferences(p)
	return nil
}

func runPrefsSet(cmd *cobra.Command, args []string) error {
	c := cmd.Context()
	p, err := ctx.Service.Preferences(c)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if !flags.Changed("reminders") && !flags.Changed("quiet") && !flags.Changed("mode") {
		return errors.NewUserError("nothing to change", "Pass --reminders, --quiet or --mode.")
	}

	if flags.Changed("reminders") {
		on, err := parseSwitch("reminders", prefsFlagReminders)
		if err != nil {
			return err
		}
		p = p.WithRemindersEnabled(on)
	}
	if flags.Changed("quiet") {
		q, err := parseQuietHours(prefsFlagQuiet, p.QuietHours)
		if err != nil {
			return err
		}
		p = p.WithQuietHours(q)
	}
	if flags.Changed("mode") {
		p.FrequencyMode = model.FrequencyMode(strings.ToLower(strings.TrimSpace(prefsFlagMode)))
	}

	report, err := ctx.Service.SetPreferences(c, p)
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]interface{}{
			"preferences": p,
			"sync":        report,
		})
	}
	cli := ctx.CLIFormatter()
	cli.PrintPreferences(p)
	cli.Println()
	cli.PrintSyncReport(report)
	return nil
}

func parseSwitch(field, s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, errors.NewUserErrorWithField(field, s, "expected on or off", "")
}

// parseQuietHours reads "off", "on" (keeping the window) or "START-END".
func parseQuietHours(s string, current model.QuietHours) (model.QuietHours, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "off":
		current.Enabled = false
		return current, nil
	case "on":
		current.Enabled = true
		return current, nil
	}

	start, end, ok := strings.Cut(s, "-")
	if !ok {
		return current, errors.NewUserErrorWithField("quiet", s, "quiet hours must be START-END",
			"For example --quiet 22:00-07:00, or --quiet off.")
	}
	from, err := parser.ParseTimeOfDay(start)
	if err != nil {
		return current, err
	}
	to, err := parser.ParseTimeOfDay(end)
	if err != nil {
		return current, err
	}
	return model.QuietHours{Enabled: true, Start: from, End: to}, nil
}
