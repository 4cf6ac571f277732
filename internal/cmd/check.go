package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/mergegate/internal/style"
)

var checkCmd = &cobra.Command{
	Use:   "check <pr-url>",
	Short: "Report the mergeability verdict for a pull request",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	c, err := buildComponents()
	if err != nil {
		return err
	}
	defer c.st.Close()

	v := c.checker.Check(cmd.Context(), args[0])
	if v.Mergeable {
		fmt.Printf("%s mergeable: %s\n", style.Bold.Render("✓"), v.Reason)
	} else {
		fmt.Printf("%s not mergeable: %s\n", style.Err.Render("✗"), v.Reason)
	}
	fmt.Printf("  state:  %s\n", v.State)
	if v.ReviewDecision != "" {
		fmt.Printf("  review: %s\n", v.ReviewDecision)
	}
	fmt.Printf("  checks: %s\n", v.ChecksStatus)
	for _, name := range v.FailingChecks {
		fmt.Printf("    %s %s\n", style.Err.Render("✗"), name)
	}
	return nil
}
