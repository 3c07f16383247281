package cmd

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/model"
	"github.com/manav03panchal/medtime/internal/parser"
	"github.com/manav03panchal/medtime/internal/quiethours"
	"github.com/manav03panchal/medtime/internal/trigger"
)

// Remind command flags.
var (
	remindFlagDosage string
	remindFlagAt     string
	remindFlagRepeat string
	remindFlagStart  string
	remindFlagEnd    string
	remindFlagNotes  string
	remindFlagID     string
	remindFlagName   string
	remindFlagNext   int
	remindFlagForce  bool
)

// remindCmd represents the remind command.
var remindCmd = &cobra.Command{
	Use:     "remind [command]",
	Aliases: []string{"r", "rem"},
	Short:   "Manage medication reminders",
	Long: `Create and manage medication reminders. Each reminder has one or more
times of day and repeats daily, on chosen weekdays, or monthly.

Repeat formats:
  daily, weekdays, weekends, weekly:mon,wed,fri, monthly:15

Examples:
  medtime remind add Metformin --dosage 500mg --at 8am,8pm
  medtime remind add Levothyroxine --dosage 50mcg --at 06:30 --notes "empty stomach"
  medtime remind list
  medtime remind show met`,
	RunE: runRemindList,
}

// remindAddCmd creates a reminder.
var remindAddCmd = &cobra.Command{
	Use:   "add MEDICATION",
	Short: "Add a medication reminder",
	Long: `Add a medication reminder and schedule its alarms.

Examples:
  medtime remind add Metformin --dosage 500mg --at 08:00,20:00
  medtime remind add "Vitamin B12" --dosage 1000mcg --at 9am --repeat monthly:1
  medtime remind add Amoxicillin --dosage 250mg --at 8am,2pm,8pm --end "in 10 days"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemindAdd,
}

// remindEditCmd changes a reminder.
var remindEditCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Change a reminder",
	Long: `Change a reminder. Only the flags given are changed; its alarms are
re-synced afterwards.

Examples:
  medtime remind edit met --at 07:30,19:30
  medtime remind edit met --dosage 850mg --end ""`,
	Args: cobra.ExactArgs(1),
	RunE: runRemindEdit,
}

// remindListCmd lists reminders.
var remindListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List reminders",
	RunE:    runRemindList,
}

// remindShowCmd shows one reminder.
var remindShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a reminder and its upcoming doses",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemindShow,
}

// remindDeleteCmd deletes a reminder.
var remindDeleteCmd = &cobra.Command{
	Use:     "delete ID",
	Aliases: []string{"rm", "remove"},
	Short:   "Delete a reminder and cancel its alarms",
	Long: `Delete a reminder and cancel all of its alarms. The adherence log is kept.

Examples:
  medtime remind delete met
  medtime remind delete met --force`,
	Args: cobra.ExactArgs(1),
	RunE: runRemindDelete,
}

// remindEnableCmd re-activates a reminder.
var remindEnableCmd = &cobra.Command{
	Use:   "enable ID",
	Short: "Re-activate a disabled reminder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setReminderActive(cmd, args[0], true)
	},
}

// remindDisableCmd pauses a reminder.
var remindDisableCmd = &cobra.Command{
	Use:   "disable ID",
	Short: "Pause a reminder without deleting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setReminderActive(cmd, args[0], false)
	},
}

// remindPreviewCmd shows what a reminder would schedule.
var remindPreviewCmd = &cobra.Command{
	Use:   "preview MEDICATION",
	Short: "Show the doses a reminder would schedule, without saving it",
	Long: `Show the doses a reminder would schedule, without saving it. Slots that
fall inside quiet hours are marked.

Examples:
  medtime remind preview Metformin --dosage 500mg --at 8am,11pm --repeat weekdays`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemindPreview,
}

func addReminderFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&remindFlagDosage, "dosage", "d", "", "Dosage, e.g. 500mg")
	cmd.Flags().StringVarP(&remindFlagAt, "at", "t", "", "Times of day, comma-separated (08:00,8pm)")
	cmd.Flags().StringVarP(&remindFlagRepeat, "repeat", "r", "daily",
		"daily, weekdays, weekends, weekly:mon,wed or monthly:15")
	cmd.Flags().StringVar(&remindFlagStart, "start", "today", "First day (YYYY-MM-DD, today, next monday...)")
	cmd.Flags().StringVar(&remindFlagEnd, "end", "", "Last day, empty for no end")
	cmd.Flags().StringVarP(&remindFlagNotes, "notes", "n", "", "Instructions, e.g. with food")
}

func init() {
	addReminderFlags(remindAddCmd)
	remindAddCmd.Flags().StringVar(&remindFlagID, "id", "", "Reminder ID (generated when empty)")
	_ = remindAddCmd.MarkFlagRequired("dosage")
	_ = remindAddCmd.MarkFlagRequired("at")

	addReminderFlags(remindPreviewCmd)
	_ = remindPreviewCmd.MarkFlagRequired("at")

	addReminderFlags(remindEditCmd)
	remindEditCmd.Flags().StringVar(&remindFlagName, "name", "", "Medication name")

	remindShowCmd.Flags().IntVar(&remindFlagNext, "next", 3, "Upcoming doses to show per time of day")
	remindDeleteCmd.Flags().BoolVar(&remindFlagForce, "force", false, "Skip confirmation")

	for _, c := range []*cobra.Command{remindEditCmd, remindShowCmd, remindDeleteCmd, remindEnableCmd, remindDisableCmd} {
		c.ValidArgsFunction = completeReminderArgs
	}

	remindCmd.AddCommand(remindAddCmd)
	remindCmd.AddCommand(remindEditCmd)
	remindCmd.AddCommand(remindListCmd)
	remindCmd.AddCommand(remindShowCmd)
	remindCmd.AddCommand(remindDeleteCmd)
	remindCmd.AddCommand(remindEnableCmd)
	remindCmd.AddCommand(remindDisableCmd)
	remindCmd.AddCommand(remindPreviewCmd)

	rootCmd.AddCommand(remindCmd)
}

// reminderFromFlags builds a new reminder from the add/preview flags.
func reminderFromFlags(name string) (*model.MedicationReminder, error) {
	now := ctx.Now()
	times, err := parser.ParseTimesOfDay(remindFlagAt)
	if err != nil {
		return nil, err
	}
	rec, err := parser.ParseRecurrence(remindFlagRepeat)
	if err != nil {
		return nil, err
	}
	start, err := parser.ParseDate(remindFlagStart, now)
	if err != nil {
		return nil, err
	}
	end, err := parser.ParseOptionalDate(remindFlagEnd, now)
	if err != nil {
		return nil, err
	}

	r := model.NewMedicationReminder(name, remindFlagDosage, times, rec, start)
	r.EndDate = end
	r.Instructions = remindFlagNotes
	return r, r.Validate()
}

func runRemindAdd(cmd *cobra.Command, args []string) error {
	r, err := reminderFromFlags(strings.Join(args, " "))
	if err != nil {
		return err
	}
	r.ID = remindFlagID
	return saveReminder(cmd.Context(), r, true)
}

func runRemindEdit(cmd *cobra.Command, args []string) error {
	c := cmd.Context()
	r, err := ctx.Service.GetReminder(c, args[0])
	if err != nil {
		return err
	}
	now := ctx.Now()
	flags := cmd.Flags()

	if flags.Changed("name") {
		r.MedicationName = remindFlagName
	}
	if flags.Changed("dosage") {
		r.Dosage = remindFlagDosage
	}
	if flags.Changed("notes") {
		r.Instructions = remindFlagNotes
	}
	if flags.Changed("at") {
		if r.TimesOfDay, err = parser.ParseTimesOfDay(remindFlagAt); err != nil {
			return err
		}
	}
	if flags.Changed("repeat") {
		if r.Recurrence, err = parser.ParseRecurrence(remindFlagRepeat); err != nil {
			return err
		}
	}
	if flags.Changed("start") {
		if r.StartDate, err = parser.ParseDate(remindFlagStart, now); err != nil {
			return err
		}
	}
	if flags.Changed("end") {
		if r.EndDate, err = parser.ParseOptionalDate(remindFlagEnd, now); err != nil {
			return err
		}
	}
	r.Normalize()
	if err := r.Validate(); err != nil {
		return err
	}
	return saveReminder(c, r, false)
}

// saveReminder stores r. A failed alarm sync after a successful save is
// reported as a warning, since the reminder itself is kept.
func saveReminder(c context.Context, r *model.MedicationReminder, created bool) error {
	saved, err := ctx.Service.SaveReminder(c, r)
	if saved == nil {
		return err
	}

	warning := ""
	if err != nil {
		warning = "alarms not scheduled: " + errors.FormatUserError(err)
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintSaved(saved, created, warning)
	}
	cli := ctx.CLIFormatter()
	cli.PrintSaved(saved, created)
	if warning != "" {
		cli.Warning(warning)
	}
	return nil
}

func runRemindList(cmd *cobra.Command, args []string) error {
	reminders, err := ctx.Service.ListReminders(cmd.Context())
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintReminders(reminders)
	}
	ctx.CLIFormatter().PrintReminders(reminders, ctx.Now())
	return nil
}

// upcoming lists the next n doses per time of day, or nothing for an
// ended reminder. Doses past the end date are dropped.
func upcoming(r *model.MedicationReminder, from time.Time, n int) map[model.TimeOfDay][]time.Time {
	out := make(map[model.TimeOfDay][]time.Time)
	if r.IsEnded(from) || n <= 0 {
		return out
	}
	if start := r.StartDate.Start(from.Location()); from.Before(start) {
		from = start.Add(-time.Nanosecond)
	}
	for _, tod := range r.TimesOfDay {
		times, err := trigger.Upcoming(r.Recurrence, tod, from, n)
		if err != nil {
			continue
		}
		if r.EndDate != nil {
			end := r.EndDate.End(from.Location())
			times = slices.DeleteFunc(times, func(t time.Time) bool { return !t.Before(end) })
		}
		out[tod] = times
	}
	return out
}

func runRemindShow(cmd *cobra.Command, args []string) error {
	r, err := ctx.Service.GetReminder(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	now := ctx.Now()
	next := upcoming(r, now, remindFlagNext)

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]interface{}{
			"reminder": r,
			"upcoming": flatten(r, next),
		})
	}
	ctx.CLIFormatter().PrintReminder(r, next, now)
	return nil
}

func flatten(r *model.MedicationReminder, next map[model.TimeOfDay][]time.Time) []time.Time {
	out := []time.Time{}
	for _, tod := range r.TimesOfDay {
		out = append(out, next[tod]...)
	}
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return out
}

func runRemindDelete(cmd *cobra.Command, args []string) error {
	c := cmd.Context()
	r, err := ctx.Service.GetReminder(c, args[0])
	if err != nil {
		return err
	}
	if !confirm(cmd, remindFlagForce, "Delete reminder for "+r.MedicationName+"?") {
		return nil
	}
	if err := ctx.Service.DeleteReminder(c, r.ID); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]interface{}{
			"status": "deleted",
			"id":     r.ID,
		})
	}
	ctx.CLIFormatter().Success("Deleted " + r.MedicationName + " (" + r.ID + ")")
	return nil
}

func setReminderActive(cmd *cobra.Command, id string, active bool) error {
	c := cmd.Context()
	r, err := ctx.Service.GetReminder(c, id)
	if err != nil {
		return err
	}
	if r.IsActive == active {
		state := "enabled"
		if !active {
			state = "disabled"
		}
		if ctx.IsJSON() {
			return ctx.Formatter.JSON(map[string]interface{}{"status": "unchanged", "id": r.ID, "is_active": active})
		}
		ctx.CLIFormatter().Muted(r.MedicationName + " is already " + state + ".")
		return nil
	}
	r.IsActive = active
	return saveReminder(c, r, false)
}

// PreviewSlot is one time of day of a previewed reminder.
type PreviewSlot struct {
	TimeOfDay  model.TimeOfDay `json:"time_of_day"`
	Next       []time.Time     `json:"next"`
	Suppressed bool            `json:"suppressed"`
}

func runRemindPreview(cmd *cobra.Command, args []string) error {
	r, err := reminderFromFlags(strings.Join(args, " "))
	if err != nil {
		return err
	}
	prefs, err := ctx.Service.Preferences(cmd.Context())
	if err != nil {
		return err
	}

	now := ctx.Now()
	next := upcoming(r, now, 3)
	slots := make([]PreviewSlot, len(r.TimesOfDay))
	for i, tod := range r.TimesOfDay {
		slots[i] = PreviewSlot{
			TimeOfDay:  tod,
			Next:       next[tod],
			Suppressed: !prefs.RemindersEnabled || quiethours.IsSuppressed(tod, prefs.QuietHours),
		}
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]interface{}{
			"reminder": r,
			"slots":    slots,
		})
	}
	cli := ctx.CLIFormatter()
	cli.PrintReminder(r, next, now)
	for _, s := range slots {
		if s.Suppressed {
			cli.Warning(s.TimeOfDay.String() + " would not ring: reminders are off or it falls in quiet hours")
		}
	}
	return nil
}
