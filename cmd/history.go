package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/koopa0/runbook/internal/audit"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit    int
		toolName string
		asJSON   bool
	)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent execution records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, limit, toolName, asJSON)
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum records to show")
	historyCmd.Flags().StringVarP(&toolName, "tool", "t", "", "only records for this tool")
	historyCmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return historyCmd
}

func runHistory(cmd *cobra.Command, limit int, toolName string, asJSON bool) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	records := a.engine.History(limit, toolName)

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No execution records.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tTOOL\tOUTCOME\tDURATION\tDETAIL")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%s\n",
			rec.Timestamp.Format(time.RFC3339),
			rec.ToolName,
			outcomeLabel(rec),
			rec.ExecutionTime,
			detailLabel(rec))
	}
	return w.Flush()
}

func outcomeLabel(rec audit.Record) string {
	switch {
	case rec.Success:
		return "ok"
	case !rec.SecurityCheckPassed:
		return "rejected"
	case rec.ReturnCode == nil:
		return "error"
	default:
		return fmt.Sprintf("exit %d", *rec.ReturnCode)
	}
}

func detailLabel(rec audit.Record) string {
	if rec.ErrorMessage != nil {
		return *rec.ErrorMessage
	}
	return ""
}
