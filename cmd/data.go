package cmd

import (
	"github.com/spf13/cobra"
)

var dataFlagForce bool

// dataCmd groups commands over the stored data.
var dataCmd = &cobra.Command{
	Use:   "data [command]",
	Short: "Manage stored reminder data",
}

var dataClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every reminder and its history",
	Long: `Cancel every alarm and delete every reminder, adherence log entry and
unanswered firing. A backup of the database is written first. Webhooks and
preferences are kept.`,
	RunE: runDataClear,
}

func init() {
	dataClearCmd.Flags().BoolVar(&dataFlagForce, "force", false, "Skip confirmation")
	dataCmd.AddCommand(dataClearCmd)
	rootCmd.AddCommand(dataCmd)
}

func runDataClear(cmd *cobra.Command, args []string) error {
	if !confirm(cmd, dataFlagForce, "Delete every reminder and its adherence history?") {
		return nil
	}
	res, err := ctx.Service.ClearData(cmd.Context())
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.Formatter.JSON(res)
	}
	cli := ctx.CLIFormatter()
	cli.Success("All reminder data cleared")
	cli.Printf("Cancelled %d alarms\n", res.Cancelled)
	if res.BackupPath != "" {
		cli.Printf("Backup:    %s\n", res.BackupPath)
	}
	return nil
}
