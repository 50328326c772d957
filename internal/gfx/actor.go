// Package gfx holds the per-actor graphics proxies. A proxy mirrors the
// snapshot published by its simulated actor into scene graph updates once
// per render frame.
package gfx

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/rorsim/gfxbridge/internal/console"
	"github.com/rorsim/gfxbridge/internal/scene"
	"github.com/rorsim/gfxbridge/internal/sim"
	"github.com/rorsim/gfxbridge/internal/snapshot"
	"github.com/rorsim/gfxbridge/internal/worker"
	"github.com/rorsim/gfxbridge/pkg/core"
)

// Factory creates the scene objects of new proxies.
type Factory struct {
	Graph   scene.Graph
	Console console.Sink
	Config  Config
}

// Actor is the graphics proxy of one simulated actor. Every method except
// the snapshot store's Publish must be called from the render goroutine.
type Actor struct {
	id      int
	name    string
	sim     sim.Actor
	store   *snapshot.Store
	graph   scene.Graph
	console console.Sink
	cfg     Config

	sb       *core.SimBuffer
	spawned  bool
	disposed bool

	rods        []*Rod
	wheels      []*WheelVisual
	flexbodies  []*Flexbody
	props       []*Prop
	flares      []*Flare
	cab         *Cab
	wings       []*Wing
	exhausts    []Exhaust
	aeroEngines []*AeroEngineVisual
	airbrakes   []*Airbrake
	screwProps  []*ScrewProp
	slideNodes  []int
	smoke       *ParticlePool
	dust        *ParticlePool
	netLabel    *NetLabel
	driverSeat  *Prop

	scale       float32
	castShadows bool

	flexBatch  *worker.Batch
	wheelBatch *worker.Batch

	debug      DebugViewState
	debugPrims []scene.DebugPrimitive

	prevGear    int
	shiftFrom   float32
	shiftTimer  float32
	shifterPos  float32
	prevCrank   float32
	smokeAccum  float32
	bursts      int
	blinkTimer  float32
	blinkOn     bool
	beaconAngle float32

	linked map[*Actor]struct{}
}

// Spawn creates every scene node of the proxy for src. Indices in def must
// fit src's layout; see Definition.Validate.
func (f *Factory) Spawn(src sim.Actor, def Definition) *Actor {
	layout := src.Layout()
	if err := def.Validate(layout); err != nil {
		panic(fmt.Sprintf("gfx: spawn actor %d: %v", src.ID(), err))
	}
	a := &Actor{
		id:      src.ID(),
		name:    def.Name,
		sim:     src,
		store:   snapshot.New(layout),
		graph:   f.Graph,
		console: f.Console,
		cfg:     f.Config.withDefaults(),
		debug:   NewDebugViewState(),
		linked:  make(map[*Actor]struct{}),

		scale:       1,
		castShadows: true,
	}
	a.sb = a.store.Current()

	node := func(kind string, i int) string {
		return fmt.Sprintf("actor-%d/%s-%d", a.id, kind, i)
	}
	for i, d := range def.Rods {
		a.rods = append(a.rods, &Rod{element: newElement(f.Graph, node("rod", i), !d.Hidden), def: d})
	}
	for i, d := range def.Wheels {
		a.wheels = append(a.wheels, newWheelVisual(f.Graph, node("wheel", i), d))
	}
	for i, d := range def.Flexbodies {
		a.flexbodies = append(a.flexbodies, newFlexbody(f.Graph, node("flexbody", i), d))
	}
	for i, d := range def.Props {
		p := &Prop{element: newElement(f.Graph, node("prop", i), true), def: d}
		a.props = append(a.props, p)
		if d.DriverSeat {
			a.driverSeat = p
		}
	}
	for i, d := range def.Flares {
		a.flares = append(a.flares, &Flare{element: newElement(f.Graph, node("flare", i), true), def: d})
	}
	if def.Cab != nil {
		a.cab = newCab(f.Graph, node("cab", 0), *def.Cab)
	}
	for i, d := range def.Wings {
		a.wings = append(a.wings, &Wing{element: newElement(f.Graph, node("wing", i), true), def: d})
	}
	for _, d := range def.Exhausts {
		a.exhausts = append(a.exhausts, Exhaust{def: d})
	}
	for i, d := range def.AeroEngines {
		a.aeroEngines = append(a.aeroEngines, &AeroEngineVisual{element: newElement(f.Graph, node("aeroengine", i), true), def: d})
	}
	for i, d := range def.Airbrakes {
		a.airbrakes = append(a.airbrakes, &Airbrake{element: newElement(f.Graph, node("airbrake", i), true), def: d})
	}
	for i, d := range def.ScrewProps {
		a.screwProps = append(a.screwProps, &ScrewProp{element: newElement(f.Graph, node("screwprop", i), true), def: d})
	}
	a.slideNodes = append(a.slideNodes, def.SlideNodes...)
	a.smoke = newParticlePool(f.Graph, node("smoke", 0), a.cfg.ParticlePoolSize)
	a.dust = newParticlePool(f.Graph, node("dust", 0), a.cfg.ParticlePoolSize)
	a.netLabel = newNetLabel(f.Graph, node("netlabel", 0))

	a.spawned = true
	return a
}

// ID returns the simulated actor's ID.
func (a *Actor) ID() int {
	return a.id
}

// Name returns the definition name.
func (a *Actor) Name() string {
	return a.name
}

// Sim returns the simulated actor this proxy mirrors.
func (a *Actor) Sim() sim.Actor {
	return a.sim
}

// Snapshot returns the store the simulation publishes into.
func (a *Actor) Snapshot() *snapshot.Store {
	return a.store
}

// SimBuffer returns the snapshot acquired for the current frame. It must not
// be modified.
func (a *Actor) SimBuffer() *core.SimBuffer {
	return a.sb
}

// Publish copies the simulated actor's state into the store. It is the only
// method that runs on the simulation goroutine.
func (a *Actor) Publish() {
	a.store.PublishFrom(a.sim)
}

// IsInitialized reports whether the proxy has spawned and holds a published
// snapshot. Updates on an uninitialized proxy do nothing.
func (a *Actor) IsInitialized() bool {
	return a.spawned && !a.disposed && a.store.Seq() > 0
}

// IsLive reports whether the visuals follow a simulated actor state.
func (a *Actor) IsLive() bool {
	if a.sb == nil {
		return false
	}
	switch a.sb.State {
	case core.ActorStateNetworkedHidden, core.ActorStateDisposed:
		return false
	}
	return true
}

func (a *Actor) ready(op string) bool {
	if a.IsInitialized() {
		return true
	}
	if a.console != nil {
		a.console.PutOnce(fmt.Sprintf("actor:%d:uninitialized", a.id), console.AreaActor, console.LevelWarning,
			fmt.Sprintf("actor %d: %s skipped, actor not initialized", a.id, op))
	}
	return false
}

// BeginFrame acquires the latest snapshot for this frame.
func (a *Actor) BeginFrame() {
	if a.disposed {
		return
	}
	a.sb = a.store.Acquire()
}

// Dispose destroys every scene node of the proxy. Pending tasks must have
// been joined.
func (a *Actor) Dispose() {
	if a.disposed {
		return
	}
	a.disposed = true
	for _, e := range a.elements() {
		e.destroy()
	}
	a.graph.SubmitDebug(a.id, nil)
	for l := range a.linked {
		delete(l.linked, a)
	}
	a.linked = nil
}

// Disposed reports whether Dispose ran.
func (a *Actor) Disposed() bool {
	return a.disposed
}

func (a *Actor) elements() []*element {
	var out []*element
	for _, r := range a.rods {
		out = append(out, &r.element)
	}
	for _, w := range a.wheels {
		out = append(out, &w.element)
	}
	for _, f := range a.flexbodies {
		out = append(out, &f.element)
	}
	for _, p := range a.props {
		out = append(out, &p.element)
	}
	for _, f := range a.flares {
		out = append(out, &f.element)
	}
	if a.cab != nil {
		out = append(out, &a.cab.element)
	}
	for _, w := range a.wings {
		out = append(out, &w.element)
	}
	for _, v := range a.aeroEngines {
		out = append(out, &v.element)
	}
	for _, b := range a.airbrakes {
		out = append(out, &b.element)
	}
	for _, s := range a.screwProps {
		out = append(out, &s.element)
	}
	out = append(out, &a.smoke.element, &a.dust.element, &a.netLabel.element)
	return out
}

// UpdateRods places every rod between its two nodes.
func (a *Actor) UpdateRods() {
	if !a.ready("UpdateRods") {
		return
	}
	for _, r := range a.rods {
		r.Update(a.sb)
	}
}

// UpdateCabMesh rebuilds the cab surface.
func (a *Actor) UpdateCabMesh() {
	if !a.ready("UpdateCabMesh") || a.cab == nil {
		return
	}
	a.cab.Update(a.sb)
}

// UpdateWingMeshes rebuilds every wing panel.
func (a *Actor) UpdateWingMeshes() {
	if !a.ready("UpdateWingMeshes") {
		return
	}
	for _, w := range a.wings {
		w.Update(a.sb)
	}
}

// UpdateAirbrakes tilts every airbrake panel by its ratio.
func (a *Actor) UpdateAirbrakes() {
	if !a.ready("UpdateAirbrakes") {
		return
	}
	for _, ab := range a.airbrakes {
		ab.Update(a.sb)
	}
}

// UpdateScrewProps places every marine propeller and its rudder.
func (a *Actor) UpdateScrewProps() {
	if !a.ready("UpdateScrewProps") {
		return
	}
	for _, s := range a.screwProps {
		s.Update(a.sb)
	}
}

// UpdateFlexbodies forks one deformation task per flexbody into b. The
// results reach the scene in FinishFlexbodies.
func (a *Actor) UpdateFlexbodies(b *worker.Batch) {
	if !a.ready("UpdateFlexbodies") {
		return
	}
	sb := a.sb
	for _, fb := range a.flexbodies {
		fb.pending = true
		b.Go(func() { fb.compute(sb) })
	}
	a.flexBatch = b
}

// FinishFlexbodies joins the flexbody tasks and pushes the finished meshes.
func (a *Actor) FinishFlexbodies() {
	if a.flexBatch == nil {
		return
	}
	a.flexBatch.Join()
	a.flexBatch = nil
	for _, fb := range a.flexbodies {
		if fb.pending {
			fb.pending = false
			fb.push()
		}
	}
}

// UpdateWheelVisuals forks one task per wheel into b. The results reach the
// scene in FinishWheelVisuals.
func (a *Actor) UpdateWheelVisuals(b *worker.Batch) {
	if !a.ready("UpdateWheelVisuals") {
		return
	}
	sb := a.sb
	for _, w := range a.wheels {
		w.pending = true
		b.Go(func() { w.compute(sb) })
	}
	a.wheelBatch = b
}

// FinishWheelVisuals joins the wheel tasks and pushes the finished wheels.
func (a *Actor) FinishWheelVisuals() {
	if a.wheelBatch == nil {
		return
	}
	a.wheelBatch.Join()
	a.wheelBatch = nil
	for _, w := range a.wheels {
		if w.pending {
			w.pending = false
			w.push()
		}
	}
}

// ResetFlexbodies rebuilds every flexbody mesh from the current snapshot on
// the calling goroutine and pushes it, dropping any pending deformation. It
// is used after the simulated actor was reset in place.
func (a *Actor) ResetFlexbodies() {
	if !a.ready("ResetFlexbodies") {
		return
	}
	a.FinishFlexbodies()
	for _, fb := range a.flexbodies {
		fb.compute(a.sb)
		fb.push()
	}
}

// ScaleActor resizes the visuals by ratio after the simulated actor was
// scaled. Node positions already carry the new size; rod diameters, wheel
// radii, prop offsets and flexbody depth are scaled here. Pending tasks
// must have been joined.
func (a *Actor) ScaleActor(ratio float32) {
	if ratio <= 0 || a.disposed {
		return
	}
	a.scale *= ratio
	for _, r := range a.rods {
		r.def.Diameter *= ratio
	}
	for _, w := range a.wheels {
		w.def.Radius *= ratio
	}
	for _, p := range a.props {
		p.def.Offset = p.def.Offset.Mul(ratio)
	}
	for _, fb := range a.flexbodies {
		verts := make([]mgl32.Vec3, len(fb.def.Vertices))
		for i, v := range fb.def.Vertices {
			verts[i] = mgl32.Vec3{v.X(), v.Y(), v.Z() * ratio}
		}
		fb.def.Vertices = verts
	}
}

// Scale returns the accumulated ScaleActor ratio.
func (a *Actor) Scale() float32 {
	return a.scale
}

// Rods returns the rod sub-objects.
func (a *Actor) Rods() []*Rod { return a.rods }

// Wheels returns the wheel sub-objects.
func (a *Actor) Wheels() []*WheelVisual { return a.wheels }

// Flexbodies returns the flexbody sub-objects.
func (a *Actor) Flexbodies() []*Flexbody { return a.flexbodies }

// Props returns the prop sub-objects.
func (a *Actor) Props() []*Prop { return a.props }

// Flares returns the flare sub-objects.
func (a *Actor) Flares() []*Flare { return a.flares }

// Cab returns the cab, nil if the actor has none.
func (a *Actor) Cab() *Cab { return a.cab }

// Wings returns the wing sub-objects.
func (a *Actor) Wings() []*Wing { return a.wings }

// AeroEngines returns the aero engine visuals.
func (a *Actor) AeroEngines() []*AeroEngineVisual { return a.aeroEngines }

// Airbrakes returns the airbrake sub-objects.
func (a *Actor) Airbrakes() []*Airbrake { return a.airbrakes }

// ScrewProps returns the screw prop sub-objects.
func (a *Actor) ScrewProps() []*ScrewProp { return a.screwProps }
