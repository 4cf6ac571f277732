package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/steveyegge/mergegate/internal/style"
	"github.com/steveyegge/mergegate/internal/sweep"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one reconciliation pass and print the decision log",
	RunE:  runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	c, err := buildComponents()
	if err != nil {
		return err
	}
	defer c.st.Close()

	summary, err := c.sweeper.RunOnce(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("%s Pass %s: examined=%d attempts=%d successes=%d autocloses=%d\n",
		style.Bold.Render("✓"), summary.PassID, summary.TasksExamined,
		summary.MergeAttempts, summary.MergeSuccesses, summary.AutoCloses)

	if len(summary.Entries) == 0 {
		fmt.Printf("%s no decisions this pass\n", style.Dim.Render("○"))
		return nil
	}
	renderEntries(summary.Entries)
	return nil
}

// renderEntries prints decision log entries as a table.
func renderEntries(entries []sweep.Entry) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"TIME", "TASK", "ACTION", "DETAIL"})
	for _, e := range entries {
		t.AppendRow(table.Row{
			e.Timestamp.Format("15:04:05"),
			e.TaskID,
			e.Action,
			e.Detail,
		})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}
