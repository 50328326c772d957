package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rorsim/gfxbridge/internal/config"
	"github.com/rorsim/gfxbridge/internal/console"
	"github.com/rorsim/gfxbridge/internal/dispatcher"
	"github.com/rorsim/gfxbridge/internal/gfx"
	"github.com/rorsim/gfxbridge/internal/scene"
	"github.com/rorsim/gfxbridge/internal/worker"
	"github.com/rorsim/gfxbridge/pkg/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func newTestApp(t *testing.T) *app {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pool, err := worker.NewPool(2, nil)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	reg, err := gfx.NewRegistry(scene.NewMemory(), pool, console.New(logger, 16), logger)
	require.NoError(t, err)
	t.Cleanup(reg.Close)

	a := &app{
		logger:   logger,
		pool:     pool,
		registry: reg,
		driver:   config.DriverConfig{Actors: 2},
	}
	require.NoError(t, a.spawn(a.started))
	require.NoError(t, a.setupCommands(nopLogger{}))
	t.Cleanup(a.commands.Close)
	return a
}

func dispatch(t *testing.T, a *app, line string) (string, error) {
	t.Helper()
	c, ok := dispatcher.Parse(line)
	require.True(t, ok)
	return a.commands.Dispatch(c)
}

func TestCommands_DebugViewRunsOnRender(t *testing.T) {
	a := newTestApp(t)
	actor, ok := a.registry.Get(1)
	require.True(t, ok)

	out, err := dispatch(t, a, "debugview 1 nodes")
	require.NoError(t, err)
	assert.Equal(t, "queued", out)
	assert.Equal(t, core.DebugViewNone, actor.DebugView(), "not applied before the render goroutine drains")

	drain(a.renderCmds)
	assert.Equal(t, core.DebugViewNodes, actor.DebugView())

	_, err = dispatch(t, a, "debugview 1 toggle")
	require.NoError(t, err)
	drain(a.renderCmds)
	assert.Equal(t, core.DebugViewNone, actor.DebugView())

	_, err = dispatch(t, a, "debugview 1")
	require.NoError(t, err)
	drain(a.renderCmds)
	assert.Equal(t, core.DebugViewSkeleton, actor.DebugView())
}

func TestCommands_PauseRunsOnSim(t *testing.T) {
	a := newTestApp(t)

	_, err := dispatch(t, a, "pause 2")
	require.NoError(t, err)
	assert.False(t, a.actors[1].PhysicsPaused())
	drain(a.simCmds)
	assert.True(t, a.actors[1].PhysicsPaused())

	_, err = dispatch(t, a, "resume 2")
	require.NoError(t, err)
	drain(a.simCmds)
	assert.False(t, a.actors[1].PhysicsPaused())

	_, err = dispatch(t, a, "pause 9")
	assert.Error(t, err)
}

func TestCommands_PlayerAndRemove(t *testing.T) {
	a := newTestApp(t)

	out, err := dispatch(t, a, "player 2")
	require.NoError(t, err)
	assert.Equal(t, "player actor 2", out)
	assert.Equal(t, 2, a.registry.PlayerActor())

	out, err = dispatch(t, a, "remove 2")
	require.NoError(t, err)
	assert.Equal(t, "queued", out)
	_, ok := a.registry.Get(2)
	assert.True(t, ok, "still registered until the render goroutine drains")

	drain(a.renderCmds)
	_, ok = a.registry.Get(2)
	assert.False(t, ok)
	assert.Len(t, a.registry.Actors(), 1)

	_, err = dispatch(t, a, "remove 2")
	assert.Error(t, err)
	_, err = dispatch(t, a, "remove x")
	assert.Error(t, err)
	_, err = dispatch(t, a, "remove")
	assert.ErrorIs(t, err, errUsage)
}

func TestCommands_RemoveQueuedTwiceRemovesOnce(t *testing.T) {
	a := newTestApp(t)

	_, err := dispatch(t, a, "remove 1")
	require.NoError(t, err)
	_, err = dispatch(t, a, "remove 1")
	require.NoError(t, err, "actor is still registered when the second command is queued")

	drain(a.renderCmds)
	_, ok := a.registry.Get(1)
	assert.False(t, ok)
	assert.Len(t, a.registry.Actors(), 1)
}

func TestCommands_ShadowsRunsOnRender(t *testing.T) {
	a := newTestApp(t)
	actor, ok := a.registry.Get(1)
	require.True(t, ok)

	_, err := dispatch(t, a, "shadows 1 off")
	require.NoError(t, err)
	assert.True(t, actor.CastShadows())
	drain(a.renderCmds)
	assert.False(t, actor.CastShadows())

	_, err = dispatch(t, a, "resetflex 1")
	require.NoError(t, err)
	assert.NotPanics(t, func() { drain(a.renderCmds) })
}

func TestCommands_QueueFull(t *testing.T) {
	a := newTestApp(t)
	for i := 0; i < cap(a.renderCmds); i++ {
		_, err := dispatch(t, a, "debugview 1")
		require.NoError(t, err)
	}
	_, err := dispatch(t, a, "debugview 1")
	assert.Error(t, err)
}

func TestReadCommands(t *testing.T) {
	a := newTestApp(t)
	in := strings.NewReader("help\n\nbogus\nplayer 1\n")
	var out bytes.Buffer

	a.readCommands(context.Background(), in, &out)

	s := out.String()
	assert.Contains(t, s, "debugview <actor> [toggle|<view>]")
	assert.Contains(t, s, "error: unknown command: bogus")
	assert.Contains(t, s, "player actor 1")
}
