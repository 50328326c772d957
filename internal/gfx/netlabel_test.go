package gfx

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rorsim/gfxbridge/pkg/core"
)

func TestUpdateNetLabels_LocalActorHasNoLabel(t *testing.T) {
	f := newFixture()
	src := newTestActor(1)
	src.username = "pilot"
	a := f.spawn(src, true)

	a.UpdateNetLabels()

	n, ok := f.graph.Node(a.NetLabel().Node())
	require.True(t, ok)
	assert.False(t, n.Visible)
	assert.Empty(t, n.Label)
}

func TestUpdateNetLabels_NetworkedActor(t *testing.T) {
	f := newFixture()
	src := newTestActor(1)
	src.state = core.ActorStateNetworkedOk
	src.remote = true
	src.username = "pilot"
	src.colorNum = 3
	a := f.spawn(src, true)

	a.UpdateNetLabels()
	a.UpdateNetLabels()

	n, _ := f.graph.Node(a.NetLabel().Node())
	assert.True(t, n.Visible)
	assert.Equal(t, "pilot", n.Label)
	assert.Equal(t, "pilot", a.NetLabel().Text())
	assert.Equal(t, 1, n.LabelUpdates, "unchanged text is not pushed again")
	assert.Equal(t, float32(3), n.Params["color"])
	assert.Equal(t, mgl32.Vec3{0.5, 1.5, 0.5}, n.Transform.Position, "centered above the bounding box")

	src.username = "copilot"
	republish(a)
	a.UpdateNetLabels()
	n, _ = f.graph.Node(a.NetLabel().Node())
	assert.Equal(t, "copilot", n.Label)
	assert.Equal(t, 2, n.LabelUpdates)

	src.state = core.ActorStateNetworkedHidden
	republish(a)
	a.UpdateNetLabels()
	n, _ = f.graph.Node(a.NetLabel().Node())
	assert.False(t, n.Visible)
}

func TestUpdateNetLabels_UninitializedIsSkipped(t *testing.T) {
	f := newFixture()
	src := newTestActor(1)
	src.state = core.ActorStateNetworkedOk
	src.username = "pilot"
	a := f.spawn(src, false)

	a.UpdateNetLabels()

	n, _ := f.graph.Node(a.NetLabel().Node())
	assert.False(t, n.Visible)
	assert.Zero(t, n.LabelUpdates)
}

func TestRenderFrame_HidesLabelOfHiddenActor(t *testing.T) {
	r, g, _ := newTestRegistry(t)
	src := newTestActor(1)
	src.state = core.ActorStateNetworkedOk
	src.username = "pilot"
	a, err := r.Add(src, testDefinition())
	require.NoError(t, err)

	r.PublishAll()
	r.RenderFrame(0.016)
	n, _ := g.Node(a.NetLabel().Node())
	assert.True(t, n.Visible)

	src.state = core.ActorStateNetworkedHidden
	r.PublishAll()
	r.RenderFrame(0.016)
	n, _ = g.Node(a.NetLabel().Node())
	assert.False(t, n.Visible, "hidden actors are not live but their label still goes away")
}
