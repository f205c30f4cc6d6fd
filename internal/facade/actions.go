package facade

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"storefront-e2e/internal/entity"
	"storefront-e2e/internal/popup"
	"storefront-e2e/internal/ports"
	"storefront-e2e/pkg/apperr"
	"storefront-e2e/pkg/logg"
	"storefront-e2e/pkg/tracing"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	actionsName   = "Actions"
	actionsTracer = "facade.actions"
	pollInterval  = 100 * time.Millisecond
)

// Actions is the interaction layer every page object is built on. Presence
// lookups never fail; only waits on required elements and explicit assertions
// return errors. Calls are serialized so one page never sees two concurrent
// interactions.
type Actions struct {
	page     ports.Page
	baseURL  *url.URL
	timeout  time.Duration
	poll     time.Duration
	pipeline *popup.Pipeline
	logger   *zap.Logger
	tracer   trace.Tracer

	mu         sync.Mutex
	lastPopups popup.Report
}

type Params struct {
	Page     ports.Page
	BaseURL  string
	Timeout  time.Duration
	Pipeline *popup.Pipeline
	Logger   *zap.Logger
}

func New(params Params) (*Actions, error) {
	const op = "facade.New"

	if params.Page == nil {
		return nil, apperr.InvalidReqError(op, "page", errors.New("page is required"))
	}

	base, err := url.Parse(params.BaseURL)
	if err != nil || !base.IsAbs() {
		return nil, apperr.InvalidReqError(op, "base_url", fmt.Errorf("base url %q is not absolute", params.BaseURL))
	}

	if params.Timeout <= 0 {
		return nil, apperr.InvalidReqError(op, "timeout", errors.New("timeout must be positive"))
	}

	pipeline := params.Pipeline
	if pipeline == nil {
		pipeline = popup.NewPipeline(nil, popup.DefaultOptions(), params.Logger)
	}

	return &Actions{
		page:     params.Page,
		baseURL:  base,
		timeout:  params.Timeout,
		poll:     pollInterval,
		pipeline: pipeline,
		logger:   params.Logger.With(zap.String(logg.Layer, actionsName)),
		tracer:   otel.Tracer(actionsTracer),
	}, nil
}

func (a *Actions) Page() ports.Page {
	return a.page
}

func (a *Actions) Timeout() time.Duration {
	return a.timeout
}

func (a *Actions) URL() string {
	return a.page.URL()
}

// LastPopupReport returns the dismissal report of the most recent navigation.
func (a *Actions) LastPopupReport() popup.Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.lastPopups
}

// ResolveURL resolves path against the base url; absolute urls pass through.
func (a *Actions) ResolveURL(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}

	return a.baseURL.ResolveReference(ref).String(), nil
}

// Navigate loads path, waits for the load event, then clears interstitials.
// Popup interference never makes it fail.
func (a *Actions) Navigate(ctx context.Context, path string) (err error) {
	const op = "Navigate"

	a.mu.Lock()
	defer a.mu.Unlock()

	target, err := a.ResolveURL(path)
	if err != nil {
		return apperr.InvalidReqError(op, "path", err)
	}

	logger := a.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, target))

	ctx, step := tracing.StartSpan(ctx, a.tracer, logger, op, attribute.String(logg.URL, target))
	defer func() {
		step.End(err)
	}()

	if err := a.page.Goto(ctx, target, a.timeout); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "goto_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    target,
		})
	}

	step.AddEvent("document loaded")

	if err := a.page.WaitForLoad(ctx, a.timeout); err != nil {
		logger.Warn("Page did not settle, continuing", zap.Error(err))
	}

	a.lastPopups = a.pipeline.Run(ctx, a.page)
	step.AddEvent("popups cleared", attribute.Int("dismissed", len(a.lastPopups.Dismissed())))

	return nil
}

// DismissPopups runs the dismissal pipeline on the current document.
func (a *Actions) DismissPopups(ctx context.Context) popup.Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.lastPopups = a.pipeline.Run(ctx, a.page)

	return a.lastPopups
}

// Exists reports whether any query of set matches at least one element.
func (a *Actions) Exists(ctx context.Context, set entity.SelectorSet) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, ok := a.firstPresent(ctx, set)

	return ok
}

// Count returns the number of elements matched by the first matching query.
func (a *Actions) Count(ctx context.Context, set entity.SelectorSet) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.count(ctx, set)
}

// WaitForVisible blocks until some query of set is visible and returns it.
// On timeout it fails with ElementNotFound; a zero timeout means the default.
func (a *Actions) WaitForVisible(ctx context.Context, set entity.SelectorSet, timeout time.Duration) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.waitForVisible(ctx, set, timeout)
}

// SafeClick clicks the first visible match of set. An absent element is not an
// error: the outcome is ActionAbsent and the page is left untouched.
func (a *Actions) SafeClick(ctx context.Context, set entity.SelectorSet, timeout time.Duration) (outcome entity.ActionOutcome, err error) {
	const op = "SafeClick"

	a.mu.Lock()
	defer a.mu.Unlock()

	return a.safeAction(ctx, op, set, timeout, func(query string, timeout time.Duration) error {
		return a.page.Click(ctx, query, timeout)
	})
}

// SafeType fills the first visible match of set with text, with the same
// absence semantics as SafeClick.
func (a *Actions) SafeType(ctx context.Context, set entity.SelectorSet, text string, timeout time.Duration) (outcome entity.ActionOutcome, err error) {
	const op = "SafeType"

	a.mu.Lock()
	defer a.mu.Unlock()

	return a.safeAction(ctx, op, set, timeout, func(query string, timeout time.Duration) error {
		return a.page.Fill(ctx, query, text, timeout)
	})
}

// Press sends a key to the focused element.
func (a *Actions) Press(ctx context.Context, key string) error {
	const op = "Press"

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.page.PressKey(ctx, key); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "press_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	return nil
}

// Text returns the trimmed text of the first visible match of set.
func (a *Actions) Text(ctx context.Context, set entity.SelectorSet) (string, error) {
	const op = "Text"

	a.mu.Lock()
	defer a.mu.Unlock()

	query, err := a.waitForVisible(ctx, set, 0)
	if err != nil {
		return "", err
	}

	text, err := a.page.Text(ctx, query)
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:   "text_content_failed",
			apperr.MetaSelector: set.Name,
		})
	}

	return strings.TrimSpace(text), nil
}

// Texts returns the trimmed texts of every element of the first matching
// query, or nil when nothing matches.
func (a *Actions) Texts(ctx context.Context, set entity.SelectorSet) []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	query, ok := a.firstPresent(ctx, set)
	if !ok {
		return nil
	}

	texts, err := a.page.Texts(ctx, query)
	if err != nil {
		a.logger.Debug("Texts lookup failed", zap.String(logg.Selector, query), zap.Error(err))

		return nil
	}

	out := make([]string, 0, len(texts))
	for _, t := range texts {
		out = append(out, strings.TrimSpace(t))
	}

	return out
}

func (a *Actions) AssertVisible(ctx context.Context, set entity.SelectorSet, timeout time.Duration) error {
	const op = "AssertVisible"

	a.mu.Lock()
	defer a.mu.Unlock()

	if timeout <= 0 {
		timeout = a.timeout
	}

	_, err := a.waitForVisible(ctx, set, timeout)
	if apperr.Is(err, apperr.CodeElementNotFound) {
		return apperr.AssertionFailure(op, set.Name,
			fmt.Sprintf("expected %s to be visible within %s", set.Name, timeout), "visible", "not visible")
	}

	return err
}

func (a *Actions) AssertCount(ctx context.Context, set entity.SelectorSet, want int) error {
	const op = "AssertCount"

	a.mu.Lock()
	defer a.mu.Unlock()

	if got := a.count(ctx, set); got != want {
		return apperr.AssertionFailure(op, set.Name,
			fmt.Sprintf("expected exactly %d %s, found %d", want, set.Name, got), want, got)
	}

	return nil
}

func (a *Actions) AssertMinimumCount(ctx context.Context, set entity.SelectorSet, minimum int) error {
	const op = "AssertMinimumCount"

	a.mu.Lock()
	defer a.mu.Unlock()

	if got := a.count(ctx, set); got < minimum {
		return apperr.AssertionFailure(op, set.Name,
			fmt.Sprintf("expected at least %d %s, found %d", minimum, set.Name, got), minimum, got)
	}

	return nil
}

// AssertTextContains compares case-insensitively.
func (a *Actions) AssertTextContains(ctx context.Context, set entity.SelectorSet, substr string) error {
	const op = "AssertTextContains"

	text, err := a.Text(ctx, set)
	if err != nil {
		if apperr.Is(err, apperr.CodeElementNotFound) {
			return apperr.AssertionFailure(op, set.Name,
				fmt.Sprintf("expected %s to contain %q but it is not visible", set.Name, substr), substr, nil)
		}

		return err
	}

	if !strings.Contains(strings.ToLower(text), strings.ToLower(substr)) {
		return apperr.AssertionFailure(op, set.Name,
			fmt.Sprintf("expected %s to contain %q, got %q", set.Name, substr, text), substr, text)
	}

	return nil
}

func (a *Actions) safeAction(ctx context.Context, op string, set entity.SelectorSet, timeout time.Duration, act func(query string, timeout time.Duration) error) (outcome entity.ActionOutcome, err error) {
	logger := a.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, set.Name))

	ctx, step := tracing.StartSpan(ctx, a.tracer, logger, op, attribute.String(logg.Selector, set.Name))
	defer func() {
		step.End(err)
	}()

	if timeout <= 0 {
		timeout = a.timeout
	}

	if _, ok := a.firstPresent(ctx, set); !ok {
		logger.Info("Element absent, action skipped")
		step.AddEvent("absent")

		return entity.ActionAbsent, nil
	}

	query, err := a.waitForVisible(ctx, set, timeout)
	if err != nil {
		return "", err
	}

	if err := act(query, timeout); err != nil {
		return "", apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:   "action_failed",
			apperr.MetaStage:    apperr.StageInteraction,
			apperr.MetaSelector: set.Name,
			apperr.MetaQueries:  []string{query},
		})
	}

	return entity.ActionPerformed, nil
}

func (a *Actions) waitForVisible(ctx context.Context, set entity.SelectorSet, timeout time.Duration) (query string, err error) {
	const op = "WaitForVisible"
	logger := a.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, set.Name))

	ctx, step := tracing.StartSpan(ctx, a.tracer, logger, op, attribute.String(logg.Selector, set.Name))
	defer func() {
		step.End(err)
	}()

	if timeout <= 0 {
		timeout = a.timeout
	}

	deadline := time.Now().Add(timeout)
	visible := func(q string) bool {
		ok, err := a.page.Visible(ctx, q)

		return err == nil && ok
	}

	for {
		if q, ok := set.Resolve(visible); ok {
			return q, nil
		}

		if err := ctx.Err(); err != nil {
			return "", apperr.Wrap(op, apperr.CodeTimeout, err, map[string]any{
				apperr.MetaReason:   "wait_cancelled",
				apperr.MetaSelector: set.Name,
			})
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", apperr.ElementNotFound(op, set.Name, set.Queries, timeout, nil)
		}

		select {
		case <-time.After(min(a.poll, remaining)):
		case <-ctx.Done():
		}
	}
}

func (a *Actions) firstPresent(ctx context.Context, set entity.SelectorSet) (string, bool) {
	return set.Resolve(func(q string) bool {
		n, err := a.page.Count(ctx, q)
		if err != nil {
			a.logger.Debug("Presence check failed", zap.String(logg.Selector, q), zap.Error(err))

			return false
		}

		return n > 0
	})
}

func (a *Actions) count(ctx context.Context, set entity.SelectorSet) int {
	query, ok := a.firstPresent(ctx, set)
	if !ok {
		return 0
	}

	n, err := a.page.Count(ctx, query)
	if err != nil {
		return 0
	}

	return n
}
