package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newJobCmd() *cobra.Command {
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Queue and inspect background jobs",
	}
	jobCmd.AddCommand(newJobQueueCmd(), newJobStatusCmd())
	return jobCmd
}

func newJobQueueCmd() *cobra.Command {
	var wait bool

	queueCmd := &cobra.Command{
		Use:   "queue <tool> [file...]",
		Short: "Queue a background job running a tool over input files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobQueue(cmd, args, wait)
		},
	}
	queueCmd.Flags().BoolVar(&wait, "wait", false, "block until the job reaches a terminal state")
	return queueCmd
}

func runJobQueue(cmd *cobra.Command, args []string, wait bool) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	id, err := a.jobs.Queue(cmd.Context(), args[0], args[1:])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)

	// A short-lived CLI process must wait regardless: exiting would
	// orphan the job mid-run. --wait additionally reports the outcome.
	a.jobs.Wait()

	if wait {
		job, err := a.jobs.Get(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", job.Status, job.Details)
	}
	return nil
}

func newJobStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show a job's current status record",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobStatus,
	}
}

func runJobStatus(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid job id %q: %w", args[0], err)
	}

	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	job, err := a.jobs.Get(id)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(job)
}
