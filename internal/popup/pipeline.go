package popup

import (
	"context"
	"errors"
	"fmt"
	"storefront-e2e/internal/entity"
	"storefront-e2e/internal/ports"
	"storefront-e2e/pkg/logg"
	"storefront-e2e/pkg/tracing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	pipelineName   = "PopupPipeline"
	pipelineTracer = "popup.pipeline"
	cancelKey      = "Escape"
)

type State string

const (
	NotAttempted State = "not_attempted"
	Attempting   State = "attempting"
	Dismissed    State = "dismissed"
	Skipped      State = "skipped"
)

var errNoCloseControl = errors.New("no close control matched")

// Strategy closes one class of interstitial. It is attempted only when its
// Trigger matches; Close controls are tried first-match, then the cancel key
// when CancelKey is set.
type Strategy struct {
	Name      string
	Trigger   entity.SelectorSet
	Close     entity.SelectorSet
	CancelKey bool
}

type Transition struct {
	Strategy string
	From     State
	To       State
	Reason   string
}

type Result struct {
	Strategy    string
	State       State
	Reason      string
	Transitions []Transition
}

func (r *Result) move(to State, reason string) {
	r.Transitions = append(r.Transitions, Transition{Strategy: r.Strategy, From: r.State, To: to, Reason: reason})
	r.State = to
	r.Reason = reason
}

type Report struct {
	Results []Result
	// FallbackRan is true when the final sweep delivered at least one of its
	// actions to the page.
	FallbackRan bool
	Elapsed     time.Duration
}

func (r Report) Dismissed() []string {
	var names []string

	for _, res := range r.Results {
		if res.State == Dismissed {
			names = append(names, res.Strategy)
		}
	}

	return names
}

func (r Report) Transitions() []Transition {
	var out []Transition

	for _, res := range r.Results {
		out = append(out, res.Transitions...)
	}

	return out
}

func (r Report) Outcome(strategy string) State {
	for _, res := range r.Results {
		if res.Strategy == strategy {
			return res.State
		}
	}

	return NotAttempted
}

// Fallback is the unconditional final sweep: repeated cancel-key presses and
// one pointer click on an inert corner of the viewport.
type Fallback struct {
	CancelPresses int
	PointerX      float64
	PointerY      float64
}

// Budget bounds a whole Run. SweepReserve is carved out of it for the final
// sweep, capped at half the budget, so strategies can never starve it.
type Options struct {
	Settle       time.Duration
	Budget       time.Duration
	SweepReserve time.Duration
	ClickTimeout time.Duration
	Fallback     Fallback
}

func DefaultOptions() Options {
	return Options{
		Settle:       1500 * time.Millisecond,
		Budget:       10 * time.Second,
		SweepReserve: time.Second,
		ClickTimeout: 2 * time.Second,
		Fallback: Fallback{
			CancelPresses: 3,
			PointerX:      1,
			PointerY:      1,
		},
	}
}

// Pipeline runs every strategy in order after a navigation. Run never fails:
// errors and panics inside a strategy turn into Skipped.
type Pipeline struct {
	strategies []Strategy
	opts       Options
	logger     *zap.Logger
	tracer     trace.Tracer
}

func NewPipeline(strategies []Strategy, opts Options, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		strategies: strategies,
		opts:       opts,
		logger:     logger.With(zap.String(logg.Layer, pipelineName)),
		tracer:     otel.Tracer(pipelineTracer),
	}
}

func (p *Pipeline) Strategies() []Strategy {
	return append([]Strategy(nil), p.strategies...)
}

func (p *Pipeline) Run(ctx context.Context, page ports.Page) Report {
	const op = "Run"
	logger := p.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, p.tracer, logger, op, attribute.Int("strategies", len(p.strategies)))
	defer step.End(nil)

	start := time.Now()
	reserve := p.sweepReserve()

	strategyCtx, cancel := context.WithTimeout(ctx, p.opts.Budget-reserve)
	defer cancel()

	report := Report{Results: make([]Result, 0, len(p.strategies))}

	for _, s := range p.strategies {
		res := p.apply(strategyCtx, page, s)
		report.Results = append(report.Results, res)

		switch res.State {
		case Dismissed:
			logger.Info("Popup dismissed", zap.String(logg.Strategy, s.Name))
			step.AddEvent("dismissed", attribute.String(logg.Strategy, s.Name))
		default:
			logger.Debug("Dismissal noop", zap.String(logg.Strategy, s.Name), zap.String("reason", res.Reason))
		}
	}

	// The sweep is unconditional: it gets its own reserve even when the
	// strategies or the caller's context ran out of time.
	sweepCtx, cancelSweep := context.WithTimeout(context.WithoutCancel(ctx), reserve)
	defer cancelSweep()

	report.FallbackRan = p.sweep(sweepCtx, page, logger)
	if !report.FallbackRan {
		logger.Warn("Fallback sweep reached nothing on the page")
	}

	report.Elapsed = time.Since(start)

	step.SetAttributes(attribute.Int("dismissed", len(report.Dismissed())))

	return report
}

func (p *Pipeline) apply(ctx context.Context, page ports.Page, s Strategy) (res Result) {
	res = Result{Strategy: s.Name, State: NotAttempted}

	defer func() {
		if r := recover(); r != nil {
			res.move(Skipped, fmt.Sprintf("panic: %v", r))
		}
	}()

	if ctx.Err() != nil {
		res.move(Skipped, "budget exhausted")

		return res
	}

	if _, ok := firstPresent(ctx, page, s.Trigger); !ok {
		res.move(Skipped, "trigger absent")

		return res
	}

	res.move(Attempting, "trigger matched")

	if err := p.close(ctx, page, s); err != nil {
		res.move(Skipped, "close failed: "+err.Error())

		return res
	}

	if err := page.WaitForLoad(ctx, p.opts.Settle); err != nil {
		res.move(Skipped, "page did not settle: "+err.Error())

		return res
	}

	res.move(Dismissed, "closed")

	return res
}

func (p *Pipeline) close(ctx context.Context, page ports.Page, s Strategy) error {
	var lastErr error

	for _, q := range s.Close.Queries {
		n, err := page.Count(ctx, q)
		if err != nil || n == 0 {
			continue
		}

		if err := page.Click(ctx, q, p.opts.ClickTimeout); err != nil {
			lastErr = err

			continue
		}

		return nil
	}

	if s.CancelKey {
		return page.PressKey(ctx, cancelKey)
	}

	if lastErr != nil {
		return lastErr
	}

	return errNoCloseControl
}

func (p *Pipeline) sweepReserve() time.Duration {
	return max(min(p.opts.SweepReserve, p.opts.Budget/2), 0)
}

// sweep reports whether at least one of its actions reached the page.
func (p *Pipeline) sweep(ctx context.Context, page ports.Page, logger *zap.Logger) (delivered bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("Fallback sweep panicked", zap.Any("panic", r))
		}
	}()

	for i := 0; i < p.opts.Fallback.CancelPresses; i++ {
		if err := page.PressKey(ctx, cancelKey); err != nil {
			logger.Debug("Fallback cancel key failed", zap.Error(err))

			break
		}

		delivered = true
	}

	if err := page.ClickAt(ctx, p.opts.Fallback.PointerX, p.opts.Fallback.PointerY); err != nil {
		logger.Debug("Fallback pointer action failed", zap.Error(err))

		return delivered
	}

	return true
}

// firstPresent checks a selector set without ever failing.
func firstPresent(ctx context.Context, page ports.Page, set entity.SelectorSet) (string, bool) {
	return set.Resolve(func(q string) bool {
		n, err := page.Count(ctx, q)

		return err == nil && n > 0
	})
}
