package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/mergegate/internal/config"
	"github.com/steveyegge/mergegate/internal/style"
	"github.com/steveyegge/mergegate/internal/sweep"
)

var logLimit int

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent merge decision log entries from the running server",
	RunE:  runLog,
}

func init() {
	logCmd.Flags().IntVar(&logLimit, "limit", 50, "Maximum entries to show")
	rootCmd.AddCommand(logCmd)
}

// runLog queries the serve process over HTTP. The decision log lives
// in the sweeper's memory, so a fresh process has nothing to print.
func runLog(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://%s/api/merge-log?limit=%d", hostAddr(cfg.HTTPAddr), logLimit)
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("reaching mergegate server (is 'mg serve' running?): %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}

	var payload struct {
		Entries []sweep.Entry `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decoding merge log: %w", err)
	}

	if len(payload.Entries) == 0 {
		fmt.Printf("%s merge log is empty\n", style.Dim.Render("○"))
		return nil
	}
	renderEntries(payload.Entries)
	return nil
}

// hostAddr fills in localhost for listen addresses like ":8377".
func hostAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
