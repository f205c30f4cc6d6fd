package popup

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"storefront-e2e/internal/browser/browsertest"
	"storefront-e2e/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Settle = 50 * time.Millisecond
	opts.Budget = time.Second
	opts.ClickTimeout = 50 * time.Millisecond

	return opts
}

func threeStrategies() []Strategy {
	return []Strategy{
		{Name: "one", Trigger: entity.NewSelectorSet("one", ".one"), Close: entity.NewSelectorSet("one close", ".one-close")},
		{Name: "two", Trigger: entity.NewSelectorSet("two", ".two-a", ".two-b"), Close: entity.NewSelectorSet("two close", ".two-close")},
		{Name: "three", Trigger: entity.NewSelectorSet("three", ".three"), Close: entity.NewSelectorSet("three close", ".three-close"), CancelKey: true},
	}
}

func TestPipelineDismissesOnlyMatchingStrategy(t *testing.T) {
	page := browsertest.NewPage()
	page.Set(".two-b", &browsertest.Element{Visible: true})
	page.Set(".two-close", &browsertest.Element{Visible: true, OnClick: func(p *browsertest.Page) {
		p.Remove(".two-b")
		p.Remove(".two-close")
	}})

	p := NewPipeline(threeStrategies(), testOptions(), zap.NewNop())
	report := p.Run(context.Background(), page)

	assert.Equal(t, []string{"two"}, report.Dismissed())
	assert.Equal(t, Skipped, report.Outcome("one"))
	assert.Equal(t, Dismissed, report.Outcome("two"))
	assert.Equal(t, Skipped, report.Outcome("three"))
	assert.True(t, report.FallbackRan)

	var two []State
	for _, tr := range report.Transitions() {
		if tr.Strategy == "two" {
			two = append(two, tr.To)
		}
	}
	assert.Equal(t, []State{Attempting, Dismissed}, two)
	assert.Equal(t, NotAttempted, report.Results[1].Transitions[0].From)

	assert.Contains(t, page.Calls(), "click .two-close")
}

func TestPipelineNoPopupsStillRunsFallback(t *testing.T) {
	page := browsertest.NewPage()

	report := NewPipeline(threeStrategies(), testOptions(), zap.NewNop()).Run(context.Background(), page)

	assert.Empty(t, report.Dismissed())
	for _, res := range report.Results {
		assert.Equal(t, Skipped, res.State)
		assert.Equal(t, "trigger absent", res.Reason)
	}

	calls := page.Calls()
	assert.Contains(t, calls, "mouse 1,1")

	escapes := 0
	for _, c := range calls {
		if c == "key Escape" {
			escapes++
		}
	}
	assert.Equal(t, 3, escapes)
}

func TestPipelineCancelKeyFallbackWhenNoCloseControl(t *testing.T) {
	page := browsertest.NewPage()
	page.Set(".three", &browsertest.Element{Visible: true})

	report := NewPipeline(threeStrategies(), testOptions(), zap.NewNop()).Run(context.Background(), page)

	assert.Equal(t, Dismissed, report.Outcome("three"))
}

func TestPipelineCloseFailureIsSkipped(t *testing.T) {
	page := browsertest.NewPage()
	page.Set(".one", &browsertest.Element{Visible: true})
	page.Set(".one-close", &browsertest.Element{Visible: true, ClickErr: errors.New("element intercepted")})

	report := NewPipeline(threeStrategies(), testOptions(), zap.NewNop()).Run(context.Background(), page)

	assert.Equal(t, Skipped, report.Outcome("one"))
	assert.Contains(t, report.Results[0].Reason, "element intercepted")
	assert.Equal(t, []State{Attempting, Skipped}, []State{
		report.Results[0].Transitions[0].To,
		report.Results[0].Transitions[1].To,
	})
}

func TestPipelineNoCloseControlWithoutCancelKeyIsSkipped(t *testing.T) {
	page := browsertest.NewPage()
	page.Set(".one", &browsertest.Element{Visible: true})

	report := NewPipeline(threeStrategies(), testOptions(), zap.NewNop()).Run(context.Background(), page)

	assert.Equal(t, Skipped, report.Outcome("one"))
	assert.Contains(t, report.Results[0].Reason, errNoCloseControl.Error())
}

func TestPipelineSettleTimeoutIsSkipped(t *testing.T) {
	page := browsertest.NewPage()
	page.LoadDelay = 200 * time.Millisecond
	page.Set(".one", &browsertest.Element{Visible: true})
	page.Set(".one-close", &browsertest.Element{Visible: true})

	report := NewPipeline(threeStrategies(), testOptions(), zap.NewNop()).Run(context.Background(), page)

	assert.Equal(t, Skipped, report.Outcome("one"))
	assert.Contains(t, report.Results[0].Reason, "did not settle")
}

func TestPipelineNeverPanics(t *testing.T) {
	page := browsertest.NewPage()
	page.PanicOn[".one-close"] = true
	page.PanicOn[".two-a"] = true
	page.Set(".one", &browsertest.Element{Visible: true})
	page.Set(".one-close", &browsertest.Element{Visible: true})
	page.KeyErr = errors.New("keyboard detached")
	page.MouseErr = errors.New("mouse detached")

	var report Report
	require.NotPanics(t, func() {
		report = NewPipeline(threeStrategies(), testOptions(), zap.NewNop()).Run(context.Background(), page)
	})

	assert.Equal(t, Skipped, report.Outcome("one"))
	assert.Contains(t, report.Results[0].Reason, "panic")
	assert.Equal(t, Skipped, report.Outcome("two"))
	assert.False(t, report.FallbackRan, "neither key nor pointer reached the page")
}

func TestPipelineBoundedForAnyPopupConfiguration(t *testing.T) {
	strategies := threeStrategies()
	opts := testOptions()
	opts.Budget = 300 * time.Millisecond

	for mask := 0; mask < 1<<len(strategies); mask++ {
		t.Run(fmt.Sprintf("mask=%03b", mask), func(t *testing.T) {
			page := browsertest.NewPage()
			page.LoadDelay = 20 * time.Millisecond
			for i, s := range strategies {
				if mask&(1<<i) != 0 {
					page.Set(s.Trigger.Queries[0], &browsertest.Element{Visible: true})
					page.Set(s.Close.Queries[0], &browsertest.Element{Visible: true})
				}
			}

			report := NewPipeline(strategies, opts, zap.NewNop()).Run(context.Background(), page)

			assert.Len(t, report.Results, len(strategies))
			assert.Less(t, report.Elapsed, opts.Budget+time.Second)
			for i, res := range report.Results {
				if mask&(1<<i) != 0 {
					assert.Equal(t, Dismissed, res.State, res.Strategy)
				} else {
					assert.Equal(t, Skipped, res.State, res.Strategy)
				}
			}
		})
	}
}

func TestPipelineBudgetExhausted(t *testing.T) {
	page := browsertest.NewPage()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := NewPipeline(threeStrategies(), testOptions(), zap.NewNop()).Run(ctx, page)

	for _, res := range report.Results {
		assert.Equal(t, Skipped, res.State)
		assert.Equal(t, "budget exhausted", res.Reason)
	}
}

func TestPipelineSweepSurvivesBudgetSpentByStrategies(t *testing.T) {
	page := browsertest.NewPage()
	page.LoadDelay = time.Second
	page.Set(".two-a", &browsertest.Element{Visible: true})
	page.Set(".two-close", &browsertest.Element{Visible: true})
	page.Set(".three", &browsertest.Element{Visible: true})

	opts := testOptions()
	opts.Settle = 500 * time.Millisecond
	opts.Budget = 200 * time.Millisecond
	opts.SweepReserve = 50 * time.Millisecond

	report := NewPipeline(threeStrategies(), opts, zap.NewNop()).Run(context.Background(), page)

	assert.Equal(t, Skipped, report.Outcome("two"))
	assert.Contains(t, report.Results[1].Reason, "did not settle")
	assert.Equal(t, Skipped, report.Outcome("three"))
	assert.Equal(t, "budget exhausted", report.Results[2].Reason)

	assert.True(t, report.FallbackRan)
	assert.Less(t, report.Elapsed, opts.Budget+100*time.Millisecond)

	calls := page.Calls()
	require.GreaterOrEqual(t, len(calls), 4)
	assert.Equal(t, []string{"key Escape", "key Escape", "key Escape", "mouse 1,1"}, calls[len(calls)-4:])
}

func TestPipelineSweepRunsAfterCallerCancelled(t *testing.T) {
	page := browsertest.NewPage()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := NewPipeline(threeStrategies(), testOptions(), zap.NewNop()).Run(ctx, page)

	assert.True(t, report.FallbackRan)
	assert.Contains(t, page.Calls(), "mouse 1,1")
}

func TestSweepReserveIsCappedAtHalfTheBudget(t *testing.T) {
	opts := testOptions()
	opts.Budget = time.Second
	opts.SweepReserve = 5 * time.Second
	assert.Equal(t, 500*time.Millisecond, NewPipeline(nil, opts, zap.NewNop()).sweepReserve())

	opts.SweepReserve = 100 * time.Millisecond
	assert.Equal(t, 100*time.Millisecond, NewPipeline(nil, opts, zap.NewNop()).sweepReserve())
}

func TestDefaultStrategiesAreWellFormed(t *testing.T) {
	seen := map[string]bool{}

	for _, s := range DefaultStrategies() {
		assert.NotEmpty(t, s.Name)
		assert.False(t, seen[s.Name], "duplicate strategy %s", s.Name)
		seen[s.Name] = true
		assert.NotEmpty(t, s.Trigger.Queries, s.Name)
		assert.True(t, len(s.Close.Queries) > 0 || s.CancelKey, s.Name)
	}
}

func TestDefaultStrategiesOrder(t *testing.T) {
	var names []string
	for _, s := range DefaultStrategies() {
		names = append(names, s.Name)
	}

	assert.Equal(t, []string{"cookie-consent", "newsletter-modal", "region-picker", "aria-dialog", "app-banner", "chat-widget"}, names)
}

func TestDefaultStrategiesCloseChatWidget(t *testing.T) {
	page := browsertest.NewPage()
	page.Set("#hubspot-messages-iframe-container", &browsertest.Element{Visible: true})
	page.Set("#hubspot-messages-iframe-container [aria-label='Close']", &browsertest.Element{Visible: true, OnClick: func(p *browsertest.Page) {
		p.Remove("#hubspot-messages-iframe-container")
	}})

	report := NewPipeline(DefaultStrategies(), testOptions(), zap.NewNop()).Run(context.Background(), page)

	assert.Equal(t, []string{"chat-widget"}, report.Dismissed())
}
