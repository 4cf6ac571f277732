package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/mergegate/internal/remedy"
	"github.com/steveyegge/mergegate/internal/store"
	"github.com/steveyegge/mergegate/internal/style"
	"github.com/steveyegge/mergegate/internal/task"
)

var remedyCmd = &cobra.Command{
	Use:   "remedy",
	Short: "Diagnose stuck validating tasks and suggest fixes",
	RunE:  runRemedy,
}

func init() {
	rootCmd.AddCommand(remedyCmd)
}

func runRemedy(cmd *cobra.Command, args []string) error {
	c, err := buildComponents()
	if err != nil {
		return err
	}
	defer c.st.Close()

	tasks, err := c.st.List(cmd.Context(), store.Filter{Status: task.StatusValidating})
	if err != nil {
		return err
	}

	found := 0
	for _, t := range tasks {
		issue, ok := remedy.Diagnose(t)
		if !ok {
			continue
		}
		found++
		fmt.Printf("%s %s (%s)\n", style.Warn.Render("!"), t.ID, issue)
		fmt.Printf("  %s\n", remedy.For(t.ID, issue, t.Metadata.EffectivePRURL()))
	}
	if found == 0 {
		fmt.Printf("%s no validating tasks need remediation\n", style.Bold.Render("✓"))
	}
	return nil
}
