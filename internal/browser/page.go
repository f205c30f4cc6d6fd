package browser

import (
	"context"
	"time"

	"github.com/playwright-community/playwright-go"
)

// pageHandle adapts playwright.Page to ports.Page. Every call checks ctx
// first since the playwright API does not take a context.
type pageHandle struct {
	page playwright.Page
}

func ms(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

func (p *pageHandle) Goto(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   ms(timeout),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})

	return err
}

func (p *pageHandle) WaitForLoad(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateLoad,
		Timeout: ms(timeout),
	})
}

func (p *pageHandle) URL() string {
	return p.page.URL()
}

func (p *pageHandle) Count(ctx context.Context, query string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	return p.page.Locator(query).Count()
}

func (p *pageHandle) Visible(ctx context.Context, query string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	return p.page.Locator(query).First().IsVisible()
}

func (p *pageHandle) Text(ctx context.Context, query string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	return p.page.Locator(query).First().TextContent()
}

func (p *pageHandle) Texts(ctx context.Context, query string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return p.page.Locator(query).AllTextContents()
}

func (p *pageHandle) Click(ctx context.Context, query string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return p.page.Locator(query).First().Click(playwright.LocatorClickOptions{
		Timeout: ms(timeout),
	})
}

func (p *pageHandle) Fill(ctx context.Context, query string, value string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return p.page.Locator(query).First().Fill(value, playwright.LocatorFillOptions{
		Timeout: ms(timeout),
	})
}

func (p *pageHandle) PressKey(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return p.page.Keyboard().Press(key)
}

func (p *pageHandle) ClickAt(ctx context.Context, x, y float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return p.page.Mouse().Click(x, y)
}

func (p *pageHandle) Evaluate(ctx context.Context, script string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return p.page.Evaluate(script)
}
