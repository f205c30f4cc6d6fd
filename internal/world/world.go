package world

import (
	"context"
	"errors"
	"fmt"
	"storefront-e2e/internal/facade"
	"storefront-e2e/internal/pages"
	"storefront-e2e/internal/popup"
	"storefront-e2e/internal/ports"
	"storefront-e2e/pkg/apperr"
	"storefront-e2e/pkg/logg"
	"storefront-e2e/pkg/tracing"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	worldName   = "World"
	worldTracer = "world.scenario"

	// Storage access throws on opaque origins such as about:blank, which
	// holds no entries by construction.
	storageSnapshot = `() => {
		try {
			return window.localStorage.length + window.sessionStorage.length
		} catch (e) {
			return 0
		}
	}`
)

var errNotEntered = errors.New("scenario world is not entered")

// SandboxProvider hands out fresh isolated sandboxes; browser.Session is the
// production implementation.
type SandboxProvider interface {
	NewSandbox(ctx context.Context) (ports.Sandbox, error)
}

type Params struct {
	Provider SandboxProvider
	Pipeline *popup.Pipeline
	BaseURL  string
	Timeout  time.Duration
	Logger   *zap.Logger
	Scenario string
}

// World is the per-scenario state: one sandbox, its page, the action facade
// bound to that page and the page object registry.
type World struct {
	params Params
	logger *zap.Logger
	tracer trace.Tracer

	mu       sync.Mutex
	sandbox  ports.Sandbox
	actions  *facade.Actions
	registry *pages.Registry
}

func New(params Params) *World {
	return &World{
		params: params,
		logger: params.Logger.With(zap.String(logg.Layer, worldName), zap.String(logg.Scenario, params.Scenario)),
		tracer: otel.Tracer(worldTracer),
	}
}

// Enter opens the scenario sandbox. Any failure is an infrastructure error and
// leaves nothing open behind it.
func (w *World) Enter(ctx context.Context) (err error) {
	const op = "Enter"
	logger := w.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, w.tracer, logger, op, attribute.String(logg.Scenario, w.params.Scenario))
	defer func() {
		step.End(err)
	}()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sandbox != nil {
		return apperr.InfrastructureError(op, apperr.StageSandbox, "already_entered",
			fmt.Errorf("scenario %q already has a sandbox", w.params.Scenario))
	}

	if w.params.Provider == nil {
		return apperr.InfrastructureError(op, apperr.StageSandbox, "no_provider", errors.New("no sandbox provider"))
	}

	sandbox, err := w.params.Provider.NewSandbox(ctx)
	if err != nil {
		if apperr.Is(err, apperr.CodeInfrastructure) {
			return err
		}

		return apperr.InfrastructureError(op, apperr.StageSandbox, "sandbox_create_failed", err)
	}

	// The sandbox is owned from here on, so a later failure still closes it.
	w.sandbox = sandbox

	actions, err := facade.New(facade.Params{
		Page:     sandbox.Page(),
		BaseURL:  w.params.BaseURL,
		Timeout:  w.params.Timeout,
		Pipeline: w.params.Pipeline,
		Logger:   w.logger,
	})
	if err != nil {
		w.closeLocked(ctx, logger)

		return apperr.InfrastructureError(op, apperr.StageSandbox, "facade_init_failed", err)
	}

	w.actions = actions
	w.registry = pages.NewRegistry(actions, w.logger)

	logger.Debug("Scenario world entered")

	return nil
}

// Leave resets the registry and closes the sandbox, never the browser
// session. It is safe on a nil world, after a failed Enter and when called
// twice; teardown errors are logged and never returned.
func (w *World) Leave(ctx context.Context) {
	if w == nil {
		return
	}

	const op = "Leave"
	logger := w.logger.With(zap.String(logg.Operation, op))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Teardown panicked", zap.Any("panic", r))
		}
	}()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.closeLocked(ctx, logger)
}

func (w *World) closeLocked(ctx context.Context, logger *zap.Logger) {
	if w.registry != nil {
		w.registry.Reset()
	}

	w.registry = nil
	w.actions = nil

	sandbox := w.sandbox
	w.sandbox = nil

	if sandbox == nil {
		return
	}

	if err := sandbox.Close(ctx); err != nil {
		logger.Warn("Failed to close scenario sandbox", zap.Error(err))

		return
	}

	logger.Debug("Scenario sandbox closed")
}

func (w *World) Entered() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.sandbox != nil
}

// Page returns the page handle, or nil outside Enter/Leave.
func (w *World) Page() ports.Page {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sandbox == nil {
		return nil
	}

	return w.sandbox.Page()
}

func (w *World) Actions() *facade.Actions {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.actions
}

func (w *World) Pages() *pages.Registry {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.registry
}

// StorageIsEmpty reports whether the sandbox has no cookies and the current
// document no local or session storage entries.
func (w *World) StorageIsEmpty(ctx context.Context) (bool, error) {
	const op = "StorageIsEmpty"

	w.mu.Lock()
	sandbox := w.sandbox
	w.mu.Unlock()

	if sandbox == nil {
		return false, apperr.InfrastructureError(op, apperr.StageSandbox, "not_entered", errNotEntered)
	}

	cookies, err := sandbox.CookieCount(ctx)
	if err != nil {
		return false, apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{apperr.MetaReason: "cookies_failed"})
	}

	res, err := sandbox.Page().Evaluate(ctx, storageSnapshot)
	if err != nil {
		return false, apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{apperr.MetaReason: "storage_read_failed"})
	}

	entries, ok := res.(float64)
	if !ok {
		if n, isInt := res.(int); isInt {
			entries, ok = float64(n), true
		}
	}

	if !ok {
		return false, apperr.WrapErrorWithReason(op, apperr.CodeInternal, fmt.Sprintf("unexpected storage snapshot result %T", res))
	}

	return cookies == 0 && entries == 0, nil
}

// Scope enters a world, runs fn and leaves on every path, including a failed
// Enter and a panic inside fn, which is re-raised after teardown.
func Scope(ctx context.Context, params Params, fn func(ctx context.Context, w *World) error) error {
	w := New(params)
	defer w.Leave(context.WithoutCancel(ctx))

	if err := w.Enter(ctx); err != nil {
		return err
	}

	return fn(ctx, w)
}
