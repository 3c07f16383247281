// Package cmd provides the CLI commands for medtime.
//
// This software is a derivative work based on Zeit (https://github.com/mrusme/zeit)
// Original work copyright (c) マリウス (mrusme)
// Modifications copyright (c) Manav Panchal
//
// Licensed under the SEGV License, Version 1.0
// See LICENSE file for full license text.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/medtime/internal/config"
	"github.com/manav03panchal/medtime/internal/logging"
	"github.com/manav03panchal/medtime/internal/output"
	"github.com/manav03panchal/medtime/internal/runtime"
)

// Version information (set at build time via ldflags).
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Global flags.
var (
	flagFormat  string
	flagColor   string
	flagDebug   bool
	flagConfig  string
	flagOffline bool
)

// noRuntime marks commands that must not open the database, because the
// daemon may hold its lock or the command never needs it.
const noRuntime = "no-runtime"

// ctx is the shared runtime context.
var ctx *runtime.Context

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "medtime",
	Short: "Medication reminders that keep track of every dose",
	Long: `medtime schedules medication reminders, delivers them through webhooks
and keeps an adherence log of every dose taken, snoozed or skipped.

Examples:
  medtime remind add Metformin --dosage 500mg --at 8am,8pm
  medtime remind add "Vitamin D" --dosage "1 tablet" --at 09:00 --repeat weekly:mon,thu
  medtime alarms
  medtime take met:08:00
  medtime log met
  medtime daemon start`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagDebug {
			logging.InitDebug()
		}
		if skipsRuntime(cmd) {
			return nil
		}

		format, err := output.ParseFormat(flagFormat)
		if err != nil {
			return err
		}

		opts := runtime.DefaultOptions()
		opts.ConfigPath = flagConfig
		opts.Format = format
		opts.ColorMode = parseColor(flagColor)
		opts.Debug = flagDebug
		opts.Offline = flagOffline
		opts.Stdout = cmd.OutOrStdout()

		ctx, err = runtime.New(opts)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if ctx != nil {
			err := ctx.Close()
			ctx = nil
			return err
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAlarms(cmd, args)
	},
}

func skipsRuntime(cmd *cobra.Command) bool {
	if cmd.Name() == "help" {
		return true
	}
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[noRuntime] == "true" {
			return true
		}
	}
	return false
}

func parseColor(s string) output.ColorMode {
	switch s {
	case "always":
		return output.ColorAlways
	case "never":
		return output.ColorNever
	default:
		return output.ColorAuto
	}
}

// loadConfig reads the configuration for commands that skip the runtime.
func loadConfig() (*config.Config, error) {
	return config.Load(flagConfig)
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	f := &output.Formatter{Writer: rootCmd.OutOrStdout()}
	if ctx != nil {
		f = ctx.Formatter
		ctx.Close()
		ctx = nil
	} else if format, ferr := output.ParseFormat(flagFormat); ferr == nil {
		f.Format = format
	}
	return runtime.Report(f, rootCmd.ErrOrStderr(), err, flagDebug)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagFormat, "format", "f", "cli",
		"Output format: cli, json, plain")
	rootCmd.PersistentFlags().StringVar(&flagColor, "color", "auto",
		"Color output: auto, always, never")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false,
		"Enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "",
		"Config file (default $XDG_CONFIG_HOME/medtime/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagOffline, "offline", false,
		"Open the database directly instead of going through the daemon")

	rootCmd.AddCommand(versionCmd)
}

// versionCmd shows version information.
var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print version information",
	Annotations: map[string]string{noRuntime: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("medtime %s\n", Version)
		cmd.Printf("  commit: %s\n", Commit)
		cmd.Printf("  built: %s\n", BuildTime)
		cmd.Println("")
		cmd.Println("Based on Zeit (https://github.com/mrusme/zeit)")
		cmd.Println("Licensed under SEGV License v1.0")
	},
}

// confirm asks a yes/no question on the command's input. JSON output and
// --force skip the prompt.
func confirm(cmd *cobra.Command, force bool, question string) bool {
	if force || ctx.IsJSON() {
		return true
	}
	ctx.Formatter.Printf("%s [y/N] ", question)
	var response string
	_, _ = fmt.Fscanln(cmd.InOrStdin(), &response)
	if response == "y" || response == "Y" || response == "yes" {
		return true
	}
	ctx.Formatter.Println("Cancelled.")
	return false
}
