package browser

import (
	"context"
	"errors"
	"testing"

	"storefront-e2e/internal/browser/browsertest"
	"storefront-e2e/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSessionStartIsIdempotent(t *testing.T) {
	launcher := &browsertest.Launcher{}
	s := NewSession(launcher, zap.NewNop(), 0)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))

	assert.True(t, s.Started())
	assert.Equal(t, 1, launcher.Launches())
}

func TestSessionStartFailureIsInfrastructureError(t *testing.T) {
	launcher := &browsertest.Launcher{LaunchErr: errors.New("chromium not installed")}
	s := NewSession(launcher, zap.NewNop(), 1)

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeInfrastructure))
	assert.False(t, s.Started())

	// Stop after a failed start is a silent no-op.
	s.Stop(context.Background())
}

func TestSessionStopSwallowsCloseError(t *testing.T) {
	launcher := &browsertest.Launcher{EngineCloseErr: errors.New("browser already gone")}
	s := NewSession(launcher, zap.NewNop(), 0)
	require.NoError(t, s.Start(context.Background()))

	s.Stop(context.Background())
	s.Stop(context.Background())

	engines := launcher.Engines()
	require.Len(t, engines, 1)
	assert.Equal(t, 1, engines[0].Closes())
	assert.False(t, s.Started())
}

func TestSessionNewSandbox(t *testing.T) {
	launcher := &browsertest.Launcher{}
	s := NewSession(launcher, zap.NewNop(), 0)

	_, err := s.NewSandbox(context.Background())
	assert.True(t, apperr.Is(err, apperr.CodeInfrastructure), "sandbox before start")

	require.NoError(t, s.Start(context.Background()))

	first, err := s.NewSandbox(context.Background())
	require.NoError(t, err)
	second, err := s.NewSandbox(context.Background())
	require.NoError(t, err)

	assert.NotSame(t, first.Page(), second.Page())
}

func TestSessionNewSandboxFailure(t *testing.T) {
	launcher := &browsertest.Launcher{SandboxErr: errors.New("context limit")}
	s := NewSession(launcher, zap.NewNop(), 0)
	require.NoError(t, s.Start(context.Background()))

	_, err := s.NewSandbox(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeInfrastructure))
}

func TestSessionRejectsSandboxWithoutPage(t *testing.T) {
	launcher := &browsertest.Launcher{}
	s := NewSession(launcher, zap.NewNop(), 0)
	require.NoError(t, s.Start(context.Background()))

	engine := launcher.Engines()[0]
	engine.NilPage = true

	_, err := s.NewSandbox(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeInfrastructure))

	sandboxes := engine.Sandboxes()
	require.Len(t, sandboxes, 1)
	assert.Equal(t, 1, sandboxes[0].Closes())
}
