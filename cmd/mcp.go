package cmd

import (
	"github.com/spf13/cobra"

	"github.com/manav03panchal/medtime/internal/mcpserver"
)

// mcpCmd serves the reminder tools over MCP.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve medtime tools to an MCP client over stdio",
	Long: `Run a Model Context Protocol server on stdin/stdout. It exposes tools to
list, add and delete reminders, record doses, read adherence and list alarms.
When the daemon is running every call goes through it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpserver.NewServer(ctx.Service, Version, mcpserver.WithClock(ctx.Now)).ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
