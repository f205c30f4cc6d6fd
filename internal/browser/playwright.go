package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storefront-e2e/internal/config"
	"storefront-e2e/internal/ports"
	"storefront-e2e/pkg/apperr"
	"storefront-e2e/pkg/logg"
	"storefront-e2e/pkg/tracing"

	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	launcherName   = "PlaywrightLauncher"
	browserTracer  = "browser.playwright"
	defaultUA      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	chromiumNoAuto = "--disable-blink-features=AutomationControlled"
)

// Launcher starts a playwright driver and one browser per call to Launch.
type Launcher struct {
	config *config.Config
	logger *zap.Logger
	tracer trace.Tracer
}

type LauncherParams struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewLauncher(params LauncherParams) *Launcher {
	return &Launcher{
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, launcherName)),
		tracer: otel.Tracer(browserTracer),
	}
}

func (l *Launcher) Launch(ctx context.Context) (engine ports.Engine, err error) {
	const op = "Launch"
	bc := l.config.BrowserConfig
	logger := l.logger.With(zap.String(logg.Operation, op), zap.String("engine", bc.Engine))

	ctx, step := tracing.StartSpan(ctx, l.tracer, logger, op, attribute.String("engine", bc.Engine))
	defer func() {
		step.End(err)
	}()

	if bc.InstallBrowsers {
		step.AddEvent("installing playwright")

		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{bc.Engine}}); err != nil {
			return nil, apperr.InfrastructureError(op, apperr.StageSession, "playwright_install_failed", err)
		}
	}

	step.AddEvent("starting playwright")

	pw, err := playwright.Run()
	if err != nil {
		return nil, apperr.InfrastructureError(op, apperr.StageSession, "playwright_start_failed", err)
	}

	browserType, args := l.browserType(pw)

	browser, err := browserType.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(bc.Headless),
		SlowMo:   playwright.Float(float64(bc.SlowMo)),
		Args:     args,
	})
	if err != nil {
		if stopErr := pw.Stop(); stopErr != nil {
			logger.Warn("Failed to stop playwright after launch failure", zap.Error(stopErr))
		}

		return nil, apperr.InfrastructureError(op, apperr.StageSession, "browser_launch_failed", err)
	}

	logger.Info("Browser launched", zap.String("version", browser.Version()))

	return &engineHandle{
		config:     l.config,
		logger:     l.logger,
		playwright: pw,
		browser:    browser,
	}, nil
}

func (l *Launcher) browserType(pw *playwright.Playwright) (playwright.BrowserType, []string) {
	switch l.config.BrowserConfig.Engine {
	case config.BrowserFirefox:
		return pw.Firefox, nil
	case config.BrowserWebkit:
		return pw.WebKit, nil
	default:
		return pw.Chromium, []string{chromiumNoAuto, "--disable-dev-shm-usage"}
	}
}

type engineHandle struct {
	config     *config.Config
	logger     *zap.Logger
	playwright *playwright.Playwright
	browser    playwright.Browser
}

func (e *engineHandle) NewSandbox(ctx context.Context) (ports.Sandbox, error) {
	const op = "NewSandbox"

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bc := e.config.BrowserConfig

	browserContext, err := e.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  bc.ViewportWidth,
			Height: bc.ViewportHeight,
		},
		UserAgent:         playwright.String(defaultUA),
		Locale:            playwright.String(bc.Locale),
		JavaScriptEnabled: playwright.Bool(true),
		IgnoreHttpsErrors: playwright.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: create context: %w", op, err)
	}

	page, err := browserContext.NewPage()
	if err != nil {
		if closeErr := browserContext.Close(); closeErr != nil {
			e.logger.Warn("Failed to close context after page failure", zap.Error(closeErr))
		}

		return nil, fmt.Errorf("%s: create page: %w", op, err)
	}

	page.SetDefaultTimeout(float64(e.config.RunConfig.Timeout.Milliseconds()))

	return &sandboxHandle{
		context: browserContext,
		page:    &pageHandle{page: page},
	}, nil
}

func (e *engineHandle) Close(ctx context.Context) error {
	var errs []error

	if e.browser != nil {
		if err := e.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}

	if e.playwright != nil {
		if err := e.playwright.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop playwright: %w", err))
		}
	}

	return errors.Join(errs...)
}

type sandboxHandle struct {
	context playwright.BrowserContext
	page    *pageHandle

	once     sync.Once
	closeErr error
}

func (s *sandboxHandle) Page() ports.Page {
	return s.page
}

func (s *sandboxHandle) CookieCount(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	cookies, err := s.context.Cookies()
	if err != nil {
		return 0, err
	}

	return len(cookies), nil
}

// Close closes the browser context, which closes its page too. Repeated calls
// return the first result.
func (s *sandboxHandle) Close(ctx context.Context) error {
	s.once.Do(func() {
		s.closeErr = s.context.Close()
	})

	return s.closeErr
}
