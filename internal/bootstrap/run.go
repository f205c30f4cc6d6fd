package bootstrap

import (
	"context"
	"storefront-e2e/internal/config"
	"storefront-e2e/internal/entity"
	"storefront-e2e/internal/runner"
	"storefront-e2e/pkg/logg"
	"sync"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	ExitPassed = 0
	ExitFailed = 1
)

type runParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Config     *config.Config
	Runner     *runner.Runner
	Scenarios  []runner.Scenario
	Tracer     *sdktrace.TracerProvider
	Logger     *zap.Logger
}

// runSuite runs the selected scenarios once the app has started and shuts the
// app down with ExitFailed unless every scenario passed. Stopping the app
// early cancels the run and waits for the workers to tear down.
func runSuite(params runParams) {
	logger := params.Logger.With(zap.String(logg.Layer, "Bootstrap"))

	var (
		wg     sync.WaitGroup
		cancel context.CancelFunc = func() {}
	)

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			selected := runner.Select(params.Scenarios, params.Config.RunConfig.Tags)
			if len(selected) == 0 {
				logger.Warn("No scenario matches the tag filter", zap.String("tags", params.Config.RunConfig.Tags))
			}

			logger.Info("Starting storefront run",
				zap.String("base_url", params.Config.RunConfig.BaseURL),
				zap.Int("scenarios", len(selected)),
				zap.Int("workers", params.Config.RunConfig.Workers))

			var runCtx context.Context
			runCtx, cancel = context.WithCancel(context.Background())

			wg.Add(1)
			go func() {
				defer wg.Done()

				summary := params.Runner.Run(runCtx, selected)

				if err := params.Shutdowner.Shutdown(fx.ExitCode(exitCode(summary))); err != nil {
					logger.Error("Failed to shut down after run", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down storefront run...")

			cancel()

			done := make(chan struct{})
			go func() {
				wg.Wait()
				close(done)
			}()

			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func exitCode(summary entity.RunSummary) int {
	if summary.Passed() {
		return ExitPassed
	}

	return ExitFailed
}
