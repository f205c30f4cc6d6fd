package browsertest

import (
	"context"
	"storefront-e2e/internal/ports"
	"sync"
)

// Launcher is a fake ports.Launcher. NewPage builds the page of every sandbox
// opened by engines it launches; a nil NewPage yields blank pages.
type Launcher struct {
	mu sync.Mutex

	LaunchErr      error
	SandboxErr     error
	EngineCloseErr error
	NewPage        func() *Page

	launches int
	engines  []*Engine
}

func (l *Launcher) Launch(ctx context.Context) (ports.Engine, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.launches++

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if l.LaunchErr != nil {
		return nil, l.LaunchErr
	}

	e := &Engine{
		SandboxErr: l.SandboxErr,
		CloseErr:   l.EngineCloseErr,
		NewPage:    l.NewPage,
	}
	l.engines = append(l.engines, e)

	return e, nil
}

func (l *Launcher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.launches
}

func (l *Launcher) Engines() []*Engine {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]*Engine(nil), l.engines...)
}

// Engine is a fake ports.Engine.
type Engine struct {
	mu sync.Mutex

	SandboxErr error
	CloseErr   error
	NilPage    bool
	NewPage    func() *Page

	closes    int
	sandboxes []*Sandbox
}

func (e *Engine) NewSandbox(ctx context.Context) (ports.Sandbox, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if e.SandboxErr != nil {
		return nil, e.SandboxErr
	}

	s := &Sandbox{}
	if !e.NilPage {
		if e.NewPage != nil {
			s.page = e.NewPage()
		} else {
			s.page = NewPage()
		}
	}

	e.sandboxes = append(e.sandboxes, s)

	return s, nil
}

func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closes++

	return e.CloseErr
}

func (e *Engine) Closes() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.closes
}

func (e *Engine) Sandboxes() []*Sandbox {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]*Sandbox(nil), e.sandboxes...)
}

// Sandbox is a fake ports.Sandbox.
type Sandbox struct {
	mu sync.Mutex

	Cookies  int
	CloseErr error

	page   *Page
	closes int
}

func NewSandbox(page *Page) *Sandbox {
	return &Sandbox{page: page}
}

func (s *Sandbox) Page() ports.Page {
	if s.page == nil {
		return nil
	}

	return s.page
}

func (s *Sandbox) FakePage() *Page {
	return s.page
}

func (s *Sandbox) CookieCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.Cookies, ctx.Err()
}

func (s *Sandbox) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closes++

	return s.CloseErr
}

func (s *Sandbox) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closes
}
