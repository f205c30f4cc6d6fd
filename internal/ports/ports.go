package ports

import (
	"context"
	"storefront-e2e/internal/entity"
	"time"
)

// Launcher starts one browser engine process.
type Launcher interface {
	Launch(ctx context.Context) (Engine, error)
}

// Engine is a live browser process shared by all scenarios of one worker.
type Engine interface {
	NewSandbox(ctx context.Context) (Sandbox, error)
	Close(ctx context.Context) error
}

// Sandbox is an isolated cookie/storage context owning exactly one Page.
type Sandbox interface {
	Page() Page
	CookieCount(ctx context.Context) (int, error)
	Close(ctx context.Context) error
}

// Page is the DOM interaction handle of the current document. Queries use the
// engine's selector syntax (css, text=, xpath=, role=).
type Page interface {
	Goto(ctx context.Context, url string, timeout time.Duration) error
	WaitForLoad(ctx context.Context, timeout time.Duration) error
	URL() string

	Count(ctx context.Context, query string) (int, error)
	Visible(ctx context.Context, query string) (bool, error)
	Text(ctx context.Context, query string) (string, error)
	Texts(ctx context.Context, query string) ([]string, error)

	Click(ctx context.Context, query string, timeout time.Duration) error
	Fill(ctx context.Context, query string, value string, timeout time.Duration) error
	PressKey(ctx context.Context, key string) error
	ClickAt(ctx context.Context, x, y float64) error

	Evaluate(ctx context.Context, script string) (any, error)
}

// Reporter receives per-scenario results and the final run summary.
type Reporter interface {
	Report(ctx context.Context, result entity.ScenarioResult)
	Summarize(ctx context.Context, summary entity.RunSummary)
}
