// Package browsertest provides in-memory fakes of the ports browser
// interfaces. A Page is a map of queries to elements with injectable failures.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrDetached = errors.New("element is not attached to the DOM")

// Element is a fake DOM node registered under one or more queries.
type Element struct {
	Visible bool
	// VisibleAfter makes the element report visible only after this many
	// visibility checks.
	VisibleAfter int
	Text         string
	Value        string
	ClickErr     error
	FillErr      error
	OnClick      func(p *Page)

	checks int
}

// Page is a fake ports.Page. All methods are safe for concurrent use and
// record an interaction log in Calls.
type Page struct {
	mu       sync.Mutex
	url      string
	elements map[string][]*Element
	calls    []string
	storage  map[string]string

	GotoErr     error
	LoadErr     error
	KeyErr      error
	MouseErr    error
	LoadDelay   time.Duration
	CountErr    map[string]error
	PanicOn     map[string]bool
	OnGoto      func(p *Page, url string)
	OnKey       func(p *Page, key string)
	OnMouse     func(p *Page, x, y float64)
	EvaluateErr error
}

func NewPage() *Page {
	return &Page{
		url:      "about:blank",
		elements: make(map[string][]*Element),
		storage:  make(map[string]string),
		CountErr: make(map[string]error),
		PanicOn:  make(map[string]bool),
	}
}

// Set registers elements under query, replacing previous ones. It does not
// lock, so it is usable both from test setup and from On* hooks.
func (p *Page) Set(query string, elems ...*Element) {
	p.elements[query] = elems
}

func (p *Page) Remove(query string) {
	delete(p.elements, query)
}

// SetStorage writes a localStorage-like entry visible to Evaluate.
func (p *Page) SetStorage(key, value string) {
	p.storage[key] = value
}

func (p *Page) StorageLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.storage)
}

func (p *Page) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.calls...)
}

func (p *Page) enter(call string) func() {
	p.mu.Lock()
	p.calls = append(p.calls, call)

	return p.mu.Unlock
}

func (p *Page) first(query string) *Element {
	elems := p.elements[query]
	if len(elems) == 0 {
		return nil
	}

	return elems[0]
}

func (p *Page) Goto(ctx context.Context, url string, timeout time.Duration) error {
	defer p.enter("goto " + url)()

	if err := ctx.Err(); err != nil {
		return err
	}

	if p.GotoErr != nil {
		return p.GotoErr
	}

	p.url = url
	if p.OnGoto != nil {
		p.OnGoto(p, url)
	}

	return nil
}

func (p *Page) WaitForLoad(ctx context.Context, timeout time.Duration) error {
	defer p.enter("wait-load")()

	if p.LoadDelay > 0 {
		select {
		case <-time.After(min(p.LoadDelay, timeout)):
		case <-ctx.Done():
			return ctx.Err()
		}

		if p.LoadDelay > timeout {
			return fmt.Errorf("timeout %s exceeded waiting for load", timeout)
		}
	}

	return p.LoadErr
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.url
}

func (p *Page) Count(ctx context.Context, query string) (int, error) {
	defer p.enter("count " + query)()

	if p.PanicOn[query] {
		panic("fake page: count " + query)
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if err := p.CountErr[query]; err != nil {
		return 0, err
	}

	return len(p.elements[query]), nil
}

func (p *Page) Visible(ctx context.Context, query string) (bool, error) {
	defer p.enter("visible " + query)()

	if err := ctx.Err(); err != nil {
		return false, err
	}

	el := p.first(query)
	if el == nil {
		return false, nil
	}

	el.checks++

	return el.Visible && el.checks > el.VisibleAfter, nil
}

func (p *Page) Text(ctx context.Context, query string) (string, error) {
	defer p.enter("text " + query)()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	el := p.first(query)
	if el == nil {
		return "", ErrDetached
	}

	return el.Text, nil
}

func (p *Page) Texts(ctx context.Context, query string) ([]string, error) {
	defer p.enter("texts " + query)()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(p.elements[query]))
	for _, el := range p.elements[query] {
		out = append(out, el.Text)
	}

	return out, nil
}

func (p *Page) Click(ctx context.Context, query string, timeout time.Duration) error {
	defer p.enter("click " + query)()

	if err := ctx.Err(); err != nil {
		return err
	}

	el := p.first(query)
	if el == nil {
		return ErrDetached
	}

	if el.ClickErr != nil {
		return el.ClickErr
	}

	if el.OnClick != nil {
		el.OnClick(p)
	}

	return nil
}

func (p *Page) Fill(ctx context.Context, query string, value string, timeout time.Duration) error {
	defer p.enter("fill " + query + "=" + value)()

	if err := ctx.Err(); err != nil {
		return err
	}

	el := p.first(query)
	if el == nil {
		return ErrDetached
	}

	if el.FillErr != nil {
		return el.FillErr
	}

	el.Value = value

	return nil
}

func (p *Page) PressKey(ctx context.Context, key string) error {
	defer p.enter("key " + key)()

	if err := ctx.Err(); err != nil {
		return err
	}

	if p.KeyErr != nil {
		return p.KeyErr
	}

	if p.OnKey != nil {
		p.OnKey(p, key)
	}

	return nil
}

func (p *Page) ClickAt(ctx context.Context, x, y float64) error {
	defer p.enter(fmt.Sprintf("mouse %.0f,%.0f", x, y))()

	if err := ctx.Err(); err != nil {
		return err
	}

	if p.MouseErr != nil {
		return p.MouseErr
	}

	if p.OnMouse != nil {
		p.OnMouse(p, x, y)
	}

	return nil
}

// Evaluate answers any script with the number of storage entries, which is
// what the storage checks of the harness ask for.
func (p *Page) Evaluate(ctx context.Context, script string) (any, error) {
	defer p.enter("evaluate")()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if p.EvaluateErr != nil {
		return nil, p.EvaluateErr
	}

	return float64(len(p.storage)), nil
}
