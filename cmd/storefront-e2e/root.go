package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"storefront-e2e/internal/bootstrap"
	"storefront-e2e/internal/runner"
	"storefront-e2e/internal/suite"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var errRunFailed = errors.New("storefront run did not pass")

func newRootCmd() *cobra.Command {
	var overrides bootstrap.Overrides

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the storefront scenarios against BASE_URL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), overrides)
		},
	}
	runCmd.Flags().StringVar(&overrides.Tags, "tags", "", "tag filter, e.g. smoke,~slow (overrides TAGS)")
	runCmd.Flags().IntVar(&overrides.Workers, "workers", 0, "parallel browser sessions (overrides WORKERS)")

	var listTags string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the scenarios selected by a tag filter",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listTags == "" {
				listTags = os.Getenv("TAGS")
			}

			return list(cmd, runner.Select(suite.Scenarios(), listTags))
		},
	}
	listCmd.Flags().StringVar(&listTags, "tags", "", "tag filter, e.g. smoke,~slow (defaults to TAGS)")

	root := &cobra.Command{
		Use:           "storefront-e2e",
		Short:         "Resilient end-to-end checks for a live storefront",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCmd.RunE,
	}
	root.Flags().AddFlagSet(runCmd.Flags())
	root.AddCommand(runCmd, listCmd)

	return root
}

func run(ctx context.Context, overrides bootstrap.Overrides) error {
	if ctx == nil {
		ctx = context.Background()
	}

	app := bootstrap.NewApp(overrides)

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var exitCode int
	interrupted := false

	select {
	case sig := <-app.Wait():
		exitCode = sig.ExitCode
	case <-sigCtx.Done():
		interrupted = true
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStop()

	if err := app.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop: %w", err)
	}

	if interrupted {
		return errors.New("storefront run interrupted")
	}

	if exitCode != bootstrap.ExitPassed {
		return errRunFailed
	}

	return nil
}

func list(cmd *cobra.Command, scenarios []runner.Scenario) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

	for _, s := range scenarios {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", s.Name, strings.Join(s.Tags, ",")); err != nil {
			return err
		}
	}

	return w.Flush()
}
