// Package cmd implements the mg command-line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/mergegate/internal/config"
	"github.com/steveyegge/mergegate/internal/gate"
	"github.com/steveyegge/mergegate/internal/github"
	"github.com/steveyegge/mergegate/internal/integrity"
	"github.com/steveyegge/mergegate/internal/mergeability"
	"github.com/steveyegge/mergegate/internal/store"
	"github.com/steveyegge/mergegate/internal/sweep"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mg",
	Short: "Merge-gated task closure coordinator",
	Long: `mg reconciles local task state with the pull requests backing it.

Tasks move todo → doing → validating → done through admission gates;
the terminal transition requires both close gates (pr_merged and
reviewer_approved). A periodic sweep checks mergeability, attempts
merges, backfills gate fields, and auto-closes finished work.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "mergegate.toml", "Path to the config file")
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// components bundles everything a command might wire up.
type components struct {
	cfg      *config.Config
	st       *store.SQLite
	gh       github.Client
	checker  *mergeability.Checker
	sweeper  *sweep.Sweeper
	enforcer *gate.Enforcer
}

// buildComponents loads config and constructs the core stack. The
// caller owns closing the store.
func buildComponents() (*components, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	st, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	gh := github.NewCLIClient(github.WithBinary(cfg.GHBinary))
	checker := mergeability.NewChecker(gh, cfg.CacheTTL)
	sweeper := sweep.New(st, checker, gh, sweep.Config{
		Interval:    cfg.SweepInterval,
		StatePath:   cfg.StatePath,
		LogCapacity: cfg.LogCapacity,
	})
	validator := integrity.NewValidator(gh, cfg.Sandboxed)
	return &components{
		cfg:      cfg,
		st:       st,
		gh:       gh,
		checker:  checker,
		sweeper:  sweeper,
		enforcer: gate.NewEnforcer(validator),
	}, nil
}
