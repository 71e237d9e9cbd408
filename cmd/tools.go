package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the loaded tool definitions",
		RunE:  runTools,
	}
}

func runTools(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	tools := a.engine.Tools()
	if len(tools) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No tools defined in %s.\n", a.cfg.ToolsFile)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tAUTO\tTAGS\tDESCRIPTION")
	for _, t := range tools {
		auto := ""
		if t.Auto {
			auto = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			t.Name, t.TaskType, auto, strings.Join(t.Tags, ","), t.Description)
	}
	return w.Flush()
}
