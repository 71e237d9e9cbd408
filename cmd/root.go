// Package cmd wires the runbook CLI.
package cmd

import (
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "runbook",
		Short: "Secure command execution and audit engine",
		Long: `runbook executes operator-defined tools through a deny-list security
validator, captures their output under strict limits, and keeps an
auditable record of every attempt.

Tool definitions live in ~/.runbook/tools.yaml; every execution is
recorded in the bounded history and as a durable JSON file under
~/.runbook/audit.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newHistoryCmd(),
		newStatsCmd(),
		newToolsCmd(),
		newJobCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
