package gfx

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/rorsim/gfxbridge/internal/scene"
	"github.com/rorsim/gfxbridge/pkg/core"
)

// NetLabel is the player name floating above a remote actor.
type NetLabel struct {
	element
	text  string
	color int
}

func newNetLabel(graph scene.Graph, name string) *NetLabel {
	return &NetLabel{element: newElement(graph, name, false), color: -1}
}

// Text returns the label text last pushed to the scene.
func (l *NetLabel) Text() string {
	return l.text
}

func (l *NetLabel) update(sb *core.SimBuffer, height float32) {
	show := sb.State == core.ActorStateNetworkedOk && sb.Username != ""
	if show != l.visible {
		l.SetVisible(show)
	}
	if !show {
		return
	}
	if sb.Username != l.text {
		l.text = sb.Username
		l.graph.SetLabel(l.node, l.text)
	}
	if sb.ColorNum != l.color {
		l.color = sb.ColorNum
		l.graph.SetMaterialParam(l.node, "color", float32(l.color))
	}
	center := sb.AABBMin.Add(sb.AABBMax).Mul(0.5)
	t := scene.IdentityTransform()
	t.Position = mgl32.Vec3{center.X(), sb.AABBMax.Y() + height, center.Z()}
	l.graph.SetTransform(l.node, t)
}

// NetLabel returns the name label of the actor.
func (a *Actor) NetLabel() *NetLabel { return a.netLabel }

// UpdateNetLabels shows the player name above networked actors and hides it
// for every other state.
func (a *Actor) UpdateNetLabels() {
	if !a.ready("UpdateNetLabels") {
		return
	}
	a.netLabel.update(a.sb, a.cfg.NetLabelHeight)
}

var _ Visible = (*NetLabel)(nil)
