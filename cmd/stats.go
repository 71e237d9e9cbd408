package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var asJSON bool

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the execution history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, asJSON)
		},
	}
	statsCmd.Flags().BoolVar(&asJSON, "json", false, "print stats as JSON")
	return statsCmd
}

func runStats(cmd *cobra.Command, asJSON bool) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	stats := a.engine.Stats()

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Total executions:  %d\n", stats.Total)
	fmt.Fprintf(out, "Succeeded:         %d\n", stats.SuccessCount)
	fmt.Fprintf(out, "Failed:            %d\n", stats.FailureCount)
	fmt.Fprintf(out, "Success rate:      %.1f%%\n", stats.SuccessRate*100)
	fmt.Fprintf(out, "Average duration:  %.2fs\n", stats.AverageExecutionTime)

	if len(stats.PerTool) == 0 {
		return nil
	}

	names := make([]string, 0, len(stats.PerTool))
	for name := range stats.PerTool {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TOOL\tRUNS\tSUCCESS RATE")
	for _, name := range names {
		ts := stats.PerTool[name]
		fmt.Fprintf(w, "%s\t%d\t%.1f%%\n", name, ts.Count, ts.SuccessRate*100)
	}
	return w.Flush()
}
