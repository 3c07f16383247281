package cmd

import (
	"github.com/spf13/cobra"

	"github.com/manav03panchal/medtime/internal/tui"
)

// dashboardCmd represents the dashboard command.
var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"dash", "tui"},
	Short:   "Open the interactive dose dashboard",
	Long: `Open a terminal dashboard with today's doses and their state.

Keyboard Controls:
  up/down or k/j  select a dose
  t               mark the selected dose taken
  s               snooze it
  x               skip it
  r               refresh
  q               quit`,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	c := cmd.Context()
	if err := ctx.Deliver(c); err != nil {
		return err
	}
	return tui.Run(c, tui.DashboardConfig{
		Service:       ctx.Service,
		Location:      ctx.Location(),
		Now:           ctx.Now,
		SnoozeMinutes: ctx.Config.Scheduler.DefaultSnooze,
	})
}
