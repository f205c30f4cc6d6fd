package runner

import (
	"context"
	"fmt"
	"storefront-e2e/internal/browser"
	"storefront-e2e/internal/config"
	"storefront-e2e/internal/entity"
	"storefront-e2e/internal/popup"
	"storefront-e2e/internal/ports"
	"storefront-e2e/internal/world"
	"storefront-e2e/pkg/apperr"
	"storefront-e2e/pkg/logg"
	"storefront-e2e/pkg/tracing"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	runnerName   = "Runner"
	runnerTracer = "runner"
)

// Runner spreads scenarios over parallel workers. Each worker owns one browser
// session and runs its scenarios one after another.
type Runner struct {
	config   *config.Config
	launcher ports.Launcher
	reporter ports.Reporter
	pipeline *popup.Pipeline
	logger   *zap.Logger
	tracer   trace.Tracer
}

type Params struct {
	fx.In

	Config   *config.Config
	Launcher ports.Launcher
	Reporter ports.Reporter
	Pipeline *popup.Pipeline
	Logger   *zap.Logger
}

func NewRunner(params Params) *Runner {
	return &Runner{
		config:   params.Config,
		launcher: params.Launcher,
		reporter: params.Reporter,
		pipeline: params.Pipeline,
		logger:   params.Logger.With(zap.String(logg.Layer, runnerName)),
		tracer:   otel.Tracer(runnerTracer),
	}
}

type assignment struct {
	index    int
	scenario Scenario
}

// partition deals scenarios round-robin onto at most workers queues.
func partition(scenarios []Scenario, workers int) [][]assignment {
	n := min(workers, len(scenarios))
	if n < 1 {
		return nil
	}

	queues := make([][]assignment, n)
	for i, s := range scenarios {
		queues[i%n] = append(queues[i%n], assignment{index: i, scenario: s})
	}

	return queues
}

func (r *Runner) Run(ctx context.Context, scenarios []Scenario) entity.RunSummary {
	const op = "Run"
	runID := uuid.New()
	logger := r.logger.With(zap.String(logg.Operation, op), zap.String(logg.RunID, runID.String()))

	ctx, step := tracing.StartSpan(ctx, r.tracer, logger, op,
		attribute.String(logg.RunID, runID.String()),
		attribute.Int("scenarios", len(scenarios)))

	var workerErr error
	defer func() {
		step.End(workerErr)
	}()

	start := time.Now()
	results := make([]entity.ScenarioResult, len(scenarios))
	queues := partition(scenarios, r.config.RunConfig.Workers)

	logger.Info("Starting run", zap.Int("scenarios", len(scenarios)), zap.Int("workers", len(queues)))

	// Workers are independent: a failed worker does not cancel its siblings,
	// it only surfaces through Wait once every worker has finished.
	var g errgroup.Group
	var mu sync.Mutex

	for id, queue := range queues {
		g.Go(func() error {
			return r.runWorker(ctx, id, queue, func(idx int, res entity.ScenarioResult) {
				mu.Lock()
				results[idx] = res
				mu.Unlock()

				r.reporter.Report(ctx, res)
			})
		})
	}

	if workerErr = g.Wait(); workerErr != nil {
		logger.Error("Run finished with a failed worker", zap.Error(workerErr))
	}

	summary := entity.RunSummary{
		RunID:    runID,
		Results:  results,
		Duration: time.Since(start),
	}
	r.reporter.Summarize(ctx, summary)

	return summary
}

// runWorker returns an error only when the worker could not serve its queue
// at all. Scenario outcomes travel through record.
func (r *Runner) runWorker(ctx context.Context, id int, queue []assignment, record func(int, entity.ScenarioResult)) error {
	logger := r.logger.With(zap.Int(logg.Worker, id))

	if err := ctx.Err(); err != nil {
		logger.Info("Run cancelled before the worker started", zap.Int("skipped", len(queue)))
		r.recordCancelled(id, queue, record, err)

		return nil
	}

	session := browser.NewSession(r.launcher, r.logger, id)
	defer session.Stop(context.WithoutCancel(ctx))

	if err := session.Start(ctx); err != nil {
		logger.Error("Worker session failed to start, aborting its scenarios", zap.Error(err), zap.Int("aborted", len(queue)))

		for _, a := range queue {
			record(a.index, r.result(a.scenario, id, time.Now(), err))
		}

		return fmt.Errorf("worker %d: %w", id, err)
	}

	for i, a := range queue {
		if err := ctx.Err(); err != nil {
			r.recordCancelled(id, queue[i:], record, err)

			break
		}

		record(a.index, r.runScenario(ctx, session, id, a.scenario))
	}

	return nil
}

func (r *Runner) recordCancelled(worker int, queue []assignment, record func(int, entity.ScenarioResult), cause error) {
	err := apperr.Wrap("Run", apperr.CodeTimeout, cause, map[string]any{apperr.MetaReason: "run_cancelled"})

	for _, a := range queue {
		record(a.index, r.result(a.scenario, worker, time.Now(), err))
	}
}

func (r *Runner) runScenario(ctx context.Context, session *browser.Session, worker int, sc Scenario) (res entity.ScenarioResult) {
	const op = "runScenario"
	logger := r.logger.With(zap.String(logg.Operation, op), zap.String(logg.Scenario, sc.Name), zap.Int(logg.Worker, worker))

	ctx, step := tracing.StartSpan(ctx, r.tracer, logger, sc.Name, attribute.Int(logg.Worker, worker))

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.config.RunConfig.ScenarioTimeout)

	var err error
	defer func() {
		cancel()
		step.End(err)
		res = r.result(sc, worker, start, err)
	}()

	params := world.Params{
		Provider: session,
		Pipeline: r.pipeline,
		BaseURL:  r.config.RunConfig.BaseURL,
		Timeout:  r.config.RunConfig.Timeout,
		Logger:   r.logger,
		Scenario: sc.Name,
	}

	err = runGuarded(ctx, params, sc)

	return res
}

// runGuarded turns a panicking scenario into a failure once the world has been
// torn down, so the worker can go on with its next scenario.
func runGuarded(ctx context.Context, params world.Params, sc Scenario) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scenario %q panicked: %v", sc.Name, r)
		}
	}()

	if sc.Run == nil {
		return apperr.InvalidReqError("Run", "scenario", fmt.Errorf("scenario %q has no body", sc.Name))
	}

	return world.Scope(ctx, params, sc.Run)
}

func (r *Runner) result(sc Scenario, worker int, start time.Time, err error) entity.ScenarioResult {
	res := entity.ScenarioResult{
		ID:        uuid.New(),
		Name:      sc.Name,
		Tags:      sc.Tags,
		Worker:    worker,
		Status:    entity.ScenarioPassed,
		StartedAt: start,
		Duration:  time.Since(start),
	}

	if err == nil {
		return res
	}

	res.Error = err.Error()
	res.Code = apperr.CodeOf(err)
	res.Status = entity.ScenarioFailed

	if apperr.Is(err, apperr.CodeInfrastructure) {
		res.Status = entity.ScenarioInfraError
	}

	return res
}
