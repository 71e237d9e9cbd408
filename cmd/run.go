package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koopa0/runbook/internal/audit"
)

// errRunFailed makes a failed execution exit nonzero without cobra
// printing a second error line; the record already tells the story.
var errRunFailed = errors.New("execution failed")

func newRunCmd() *cobra.Command {
	var quiet bool

	runCmd := &cobra.Command{
		Use:   "run <tool> [args...]",
		Short: "Execute a tool and print its execution record",
		Long: `Run a named tool from the definitions file. Extra arguments are
shell-quoted and appended to the tool's command. The full execution
record is printed as JSON; the command exits 1 when the run fails.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args, quiet)
		},
	}
	runCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the tool's stdout")
	return runCmd
}

func runRun(cmd *cobra.Command, args []string, quiet bool) error {
	ctx := cmd.Context()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	rec, err := a.engine.Execute(ctx, args[0], args[1:]...)
	if err != nil {
		return err
	}

	if err := printRecord(cmd, rec, quiet); err != nil {
		return err
	}

	if !rec.Success {
		cmd.SilenceErrors = true
		return errRunFailed
	}
	return nil
}

// printRecord writes the outcome through the command's writers so
// redirected output (tests, scripts) is honored on both streams.
func printRecord(cmd *cobra.Command, rec audit.Record, quiet bool) error {
	if quiet {
		fmt.Fprint(cmd.OutOrStdout(), rec.Stdout)
		if rec.Stderr != "" {
			fmt.Fprint(cmd.ErrOrStderr(), rec.Stderr)
		}
		return nil
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("encoding execution record: %w", err)
	}
	return nil
}
