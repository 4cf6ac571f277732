package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/mergegate/internal/style"
	"github.com/steveyegge/mergegate/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server and the reconciliation sweeper",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	c, err := buildComponents()
	if err != nil {
		return err
	}
	defer c.st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              c.cfg.HTTPAddr,
		Handler:           web.New(c.st, c.enforcer, c.sweeper).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Sweeper and HTTP server share the signal-scoped context; either
	// one failing hard takes the process down cleanly.
	errCh := make(chan error, 2)
	go func() {
		if err := c.sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("sweeper: %w", err)
			return
		}
		errCh <- nil
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
			return
		}
		errCh <- nil
	}()

	fmt.Printf("%s mergegate serving on %s (sweep every %s)\n",
		style.Bold.Render("✓"), c.cfg.HTTPAddr, c.cfg.SweepInterval)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("%s http shutdown: %v\n", style.Warn.Render("!"), err)
	}

	fmt.Printf("%s mergegate stopped\n", style.Dim.Render("○"))
	return runErr
}
