package world

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront-e2e/internal/browser"
	"storefront-e2e/internal/browser/browsertest"
	"storefront-e2e/internal/popup"
	"storefront-e2e/internal/ports"
	"storefront-e2e/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type providerFunc func(ctx context.Context) (ports.Sandbox, error)

func (f providerFunc) NewSandbox(ctx context.Context) (ports.Sandbox, error) {
	return f(ctx)
}

func params(provider SandboxProvider) Params {
	opts := popup.DefaultOptions()
	opts.Settle = 10 * time.Millisecond

	return Params{
		Provider: provider,
		Pipeline: popup.NewPipeline(popup.DefaultStrategies(), opts, zap.NewNop()),
		BaseURL:  "https://shop.example.com",
		Timeout:  100 * time.Millisecond,
		Logger:   zap.NewNop(),
		Scenario: "test",
	}
}

func TestEnterLeave(t *testing.T) {
	sandbox := browsertest.NewSandbox(browsertest.NewPage())
	w := New(params(providerFunc(func(context.Context) (ports.Sandbox, error) { return sandbox, nil })))

	require.NoError(t, w.Enter(context.Background()))
	assert.True(t, w.Entered())
	assert.NotNil(t, w.Page())
	require.NotNil(t, w.Pages())
	assert.Same(t, sandbox.FakePage(), w.Actions().Page())

	cart := w.Pages().Cart()
	assert.Same(t, cart, w.Pages().Cart())

	w.Leave(context.Background())
	assert.False(t, w.Entered())
	assert.Nil(t, w.Page())
	assert.Nil(t, w.Pages())
	assert.Equal(t, 1, sandbox.Closes())

	w.Leave(context.Background())
	assert.Equal(t, 1, sandbox.Closes(), "second leave must not close again")
}

func TestEnterTwiceIsRejected(t *testing.T) {
	w := New(params(providerFunc(func(context.Context) (ports.Sandbox, error) {
		return browsertest.NewSandbox(browsertest.NewPage()), nil
	})))
	defer w.Leave(context.Background())

	require.NoError(t, w.Enter(context.Background()))
	err := w.Enter(context.Background())
	assert.True(t, apperr.Is(err, apperr.CodeInfrastructure))
}

func TestLeaveAfterFailedEnter(t *testing.T) {
	w := New(params(providerFunc(func(context.Context) (ports.Sandbox, error) {
		return nil, errors.New("too many contexts")
	})))

	err := w.Enter(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeInfrastructure))
	assert.False(t, apperr.Is(err, apperr.CodeAssertion))

	assert.NotPanics(t, func() {
		w.Leave(context.Background())
		w.Leave(context.Background())
	})

	var nilWorld *World
	assert.NotPanics(t, func() { nilWorld.Leave(context.Background()) })
}

func TestEnterClosesSandboxWhenSetupFailsPartway(t *testing.T) {
	sandbox := browsertest.NewSandbox(browsertest.NewPage())
	p := params(providerFunc(func(context.Context) (ports.Sandbox, error) { return sandbox, nil }))
	p.BaseURL = "not a url"
	w := New(p)

	err := w.Enter(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeInfrastructure))
	assert.Equal(t, 1, sandbox.Closes())
	assert.False(t, w.Entered())

	w.Leave(context.Background())
	assert.Equal(t, 1, sandbox.Closes())
}

func TestLeaveSwallowsCloseError(t *testing.T) {
	sandbox := browsertest.NewSandbox(browsertest.NewPage())
	sandbox.CloseErr = errors.New("target closed")
	w := New(params(providerFunc(func(context.Context) (ports.Sandbox, error) { return sandbox, nil })))

	require.NoError(t, w.Enter(context.Background()))
	assert.NotPanics(t, func() { w.Leave(context.Background()) })
	assert.False(t, w.Entered())
}

func TestScopeTearsDownOnEveryPath(t *testing.T) {
	defer goleak.VerifyNone(t)

	sandbox := browsertest.NewSandbox(browsertest.NewPage())
	p := params(providerFunc(func(context.Context) (ports.Sandbox, error) { return sandbox, nil }))
	boom := apperr.AssertionFailure("Then", "cart", "cart is not empty", 0, 1)

	err := Scope(context.Background(), p, func(ctx context.Context, w *World) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, sandbox.Closes())

	assert.Panics(t, func() {
		_ = Scope(context.Background(), p, func(ctx context.Context, w *World) error {
			panic("step blew up")
		})
	})
	assert.Equal(t, 2, sandbox.Closes())

	failing := params(providerFunc(func(context.Context) (ports.Sandbox, error) { return nil, errors.New("no context") }))
	called := false
	err = Scope(context.Background(), failing, func(ctx context.Context, w *World) error {
		called = true
		return nil
	})
	assert.True(t, apperr.Is(err, apperr.CodeInfrastructure))
	assert.False(t, called)
}

func TestBackToBackScenariosSeeEmptyStorage(t *testing.T) {
	ctx := context.Background()
	launcher := &browsertest.Launcher{}
	session := browser.NewSession(launcher, zap.NewNop(), 0)
	require.NoError(t, session.Start(ctx))
	defer session.Stop(ctx)

	p := params(session)

	err := Scope(ctx, p, func(ctx context.Context, w *World) error {
		empty, err := w.StorageIsEmpty(ctx)
		require.NoError(t, err)
		assert.True(t, empty)

		w.Page().(*browsertest.Page).SetStorage("cart", `[{"sku":"lamp"}]`)

		empty, err = w.StorageIsEmpty(ctx)
		require.NoError(t, err)
		assert.False(t, empty)

		return nil
	})
	require.NoError(t, err)

	err = Scope(ctx, p, func(ctx context.Context, w *World) error {
		empty, err := w.StorageIsEmpty(ctx)
		require.NoError(t, err)
		assert.True(t, empty, "storage leaked from the previous scenario")

		return nil
	})
	require.NoError(t, err)

	engine := launcher.Engines()[0]
	assert.Equal(t, 0, engine.Closes(), "leave must never close the session")
	for _, s := range engine.Sandboxes() {
		assert.Equal(t, 1, s.Closes())
	}
}

func TestStorageIsEmptyOutsideScenario(t *testing.T) {
	w := New(params(nil))

	_, err := w.StorageIsEmpty(context.Background())
	assert.True(t, apperr.Is(err, apperr.CodeInfrastructure))
}
