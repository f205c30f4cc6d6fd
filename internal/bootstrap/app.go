package bootstrap

import (
	"storefront-e2e/internal/browser"
	"storefront-e2e/internal/config"
	"storefront-e2e/internal/popup"
	"storefront-e2e/internal/ports"
	"storefront-e2e/internal/runner"
	"storefront-e2e/internal/suite"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Overrides are command line values that win over the environment. Zero
// values leave the environment setting alone.
type Overrides struct {
	Tags    string
	Workers int
}

func NewApp(overrides Overrides) *fx.App {
	return fx.New(options(overrides))
}

func options(overrides Overrides) fx.Option {
	return fx.Options(
		fx.Provide(
			config.GetConfig,
			newLogger,
			newTraceProvider,
			newPipeline,

			fx.Annotate(browser.NewLauncher, fx.As(new(ports.Launcher))),
			fx.Annotate(runner.NewLogReporter, fx.As(new(ports.Reporter))),

			runner.NewRunner,
			suite.Scenarios,
		),

		fx.Decorate(func(conf *config.Config) (*config.Config, error) {
			return applyOverrides(conf, overrides)
		}),

		fx.Invoke(
			runSuite,
		),

		fx.NopLogger,
		fx.StartTimeout(10*time.Second),
		fx.StopTimeout(30*time.Second),
	)
}

func applyOverrides(conf *config.Config, overrides Overrides) (*config.Config, error) {
	if overrides.Tags != "" {
		conf.RunConfig.Tags = overrides.Tags
	}

	if overrides.Workers != 0 {
		conf.RunConfig.Workers = overrides.Workers
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

func newPipeline(conf *config.Config, logger *zap.Logger) *popup.Pipeline {
	opts := popup.DefaultOptions()
	opts.Settle = conf.RunConfig.PopupSettle
	opts.Budget = conf.RunConfig.PopupBudget

	return popup.NewPipeline(popup.DefaultStrategies(), opts, logger)
}
