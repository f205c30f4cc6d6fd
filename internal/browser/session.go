package browser

import (
	"context"
	"errors"
	"sync"

	"storefront-e2e/internal/ports"
	"storefront-e2e/pkg/apperr"
	"storefront-e2e/pkg/logg"
	"storefront-e2e/pkg/tracing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	sessionName   = "Session"
	sessionTracer = "browser.session"
)

var (
	errSessionNotStarted = errors.New("browser session is not started")
	errNoPage            = errors.New("sandbox has no page")
)

// Session owns the single browser engine of one worker. It is started once,
// lends sandboxes to scenarios, and is stopped once.
type Session struct {
	launcher ports.Launcher
	logger   *zap.Logger
	tracer   trace.Tracer
	worker   int

	mu     sync.Mutex
	engine ports.Engine
}

func NewSession(launcher ports.Launcher, logger *zap.Logger, worker int) *Session {
	return &Session{
		launcher: launcher,
		logger:   logger.With(zap.String(logg.Layer, sessionName), zap.Int(logg.Worker, worker)),
		tracer:   otel.Tracer(sessionTracer),
		worker:   worker,
	}
}

// Start launches the engine. Calling it on a started session is a no-op.
func (s *Session) Start(ctx context.Context) (err error) {
	const op = "Start"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.Int(logg.Worker, s.worker))
	defer func() {
		step.End(err)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine != nil {
		logger.Debug("Session already started")

		return nil
	}

	engine, err := s.launcher.Launch(ctx)
	if err != nil {
		if apperr.Is(err, apperr.CodeInfrastructure) {
			return err
		}

		return apperr.InfrastructureError(op, apperr.StageSession, "engine_launch_failed", err)
	}

	s.engine = engine
	logger.Info("Browser session started")

	return nil
}

// Stop closes the engine. It never fails: teardown errors are logged so they
// cannot mask an earlier scenario failure.
func (s *Session) Stop(ctx context.Context) {
	const op = "Stop"
	logger := s.logger.With(zap.String(logg.Operation, op))

	s.mu.Lock()
	engine := s.engine
	s.engine = nil
	s.mu.Unlock()

	if engine == nil {
		logger.Debug("Session not running, nothing to stop")

		return
	}

	if err := engine.Close(ctx); err != nil {
		logger.Warn("Failed to close browser session", zap.Error(err))

		return
	}

	logger.Info("Browser session stopped")
}

func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.engine != nil
}

// NewSandbox opens a fresh isolated context with one page on the running engine.
func (s *Session) NewSandbox(ctx context.Context) (sandbox ports.Sandbox, err error) {
	const op = "NewSandbox"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	s.mu.Lock()
	engine := s.engine
	s.mu.Unlock()

	if engine == nil {
		return nil, apperr.InfrastructureError(op, apperr.StageSandbox, "session_not_started", errSessionNotStarted)
	}

	sandbox, err = engine.NewSandbox(ctx)
	if err != nil {
		return nil, apperr.InfrastructureError(op, apperr.StageSandbox, "sandbox_create_failed", err)
	}

	if sandbox.Page() == nil {
		if closeErr := sandbox.Close(ctx); closeErr != nil {
			logger.Warn("Failed to close sandbox without page", zap.Error(closeErr))
		}

		return nil, apperr.InfrastructureError(op, apperr.StageSandbox, "sandbox_without_page", errNoPage)
	}

	return sandbox, nil
}
