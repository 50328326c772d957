package gfx

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/rorsim/gfxbridge/internal/ring"
	"github.com/rorsim/gfxbridge/internal/scene"
	"github.com/rorsim/gfxbridge/pkg/core"
)

// Particle is one element of a particle pool.
type Particle struct {
	Position mgl32.Vec3
	Velocity mgl32.Vec3
	Age      float32
	Life     float32
}

// Alive reports whether the particle has not yet expired.
func (p *Particle) Alive() bool {
	return p.Age < p.Life
}

// ParticlePool is a fixed-size pool; emitting into a full pool recycles the
// oldest particle.
type ParticlePool struct {
	element
	particles *ring.Buffer[Particle]
	points    []mgl32.Vec3
	emitted   int
}

func newParticlePool(graph scene.Graph, name string, size int) *ParticlePool {
	return &ParticlePool{
		element:   newElement(graph, name, true),
		particles: ring.New[Particle](size),
		points:    make([]mgl32.Vec3, 0, size),
	}
}

// Emit spawns a particle.
func (pp *ParticlePool) Emit(pos, vel mgl32.Vec3, life float32) {
	*pp.particles.Next() = Particle{Position: pos, Velocity: vel, Life: life}
	pp.emitted++
}

// Alive returns the number of live particles.
func (pp *ParticlePool) Alive() int {
	n := 0
	for i := 0; i < pp.particles.Len(); i++ {
		if pp.particles.At(i).Alive() {
			n++
		}
	}
	return n
}

// Emitted returns the total number of particles emitted.
func (pp *ParticlePool) Emitted() int {
	return pp.emitted
}

// Cap returns the fixed pool size.
func (pp *ParticlePool) Cap() int {
	return pp.particles.Cap()
}

func (pp *ParticlePool) step(dt float32) {
	pp.points = pp.points[:0]
	for i := 0; i < pp.particles.Len(); i++ {
		p := pp.particles.At(i)
		if !p.Alive() {
			continue
		}
		p.Age += dt
		p.Position = p.Position.Add(p.Velocity.Mul(dt))
		if p.Alive() {
			pp.points = append(pp.points, p.Position)
		}
	}
	pp.graph.UpdateMesh(pp.node, pp.points, nil)
}

// Exhaust smoke leaves the pipe at this speed (m/s).
const smokeSpeed = 2

// UpdateParticles emits exhaust smoke, crank bursts, contact dust and aero
// engine failure smoke, then advances every pool. Nothing is emitted while
// physics is paused; exhaust smoke and crank bursts need smoke enabled.
func (a *Actor) UpdateParticles(dt float32) {
	if !a.ready("UpdateParticles") {
		return
	}
	sb := a.sb
	if sb.PhysicsPaused {
		return
	}
	life := a.cfg.ParticleLife

	if sb.HasEngine {
		pt := sb.Powertrain
		burst := a.prevCrank < a.cfg.CrankBurstThreshold && pt.Crank >= a.cfg.CrankBurstThreshold
		a.prevCrank = pt.Crank
		if sb.Gameplay.SmokeEnabled {
			a.emitExhaust(pt, burst, dt)
		}
	}

	if sb.Node0Velocity.Len() > a.cfg.DustSpeed {
		up := mgl32.Vec3{0, 1, 0}
		for i := range sb.Nodes {
			if sb.Nodes[i].HasContact {
				a.dust.Emit(sb.Nodes[i].Position, up, life/2)
			}
		}
	}

	for _, ae := range a.aeroEngines {
		if sb.AeroEngines[ae.def.Engine].Failed {
			a.smoke.Emit(sb.NodePosition(ae.def.Hub), mgl32.Vec3{0, smokeSpeed, 0}, life)
		}
	}

	a.smoke.step(dt)
	a.dust.step(dt)
}

// emitExhaust puts RPM-scaled smoke out of every exhaust, plus a burst when
// the crank factor just crossed the threshold.
func (a *Actor) emitExhaust(pt core.PowertrainSB, burst bool, dt float32) {
	sb, life := a.sb, a.cfg.ParticleLife
	if pt.MaxRPM > 0 && pt.RPM > 0 {
		a.smokeAccum += dt * a.cfg.SmokeRate * clamp(pt.RPM/pt.MaxRPM, 0, 1)
	}
	for _, e := range a.exhausts {
		pos := sb.NodePosition(e.def.Node)
		dir := pos.Sub(sb.NodePosition(e.def.DirNode))
		if dir.Len() > 1e-6 {
			dir = dir.Normalize()
		}
		vel := dir.Mul(smokeSpeed)
		for i := 0; i < int(a.smokeAccum); i++ {
			a.smoke.Emit(pos, vel, life)
		}
		if burst {
			for i := 0; i < a.cfg.CrankBurst; i++ {
				a.smoke.Emit(pos, vel.Mul(2), life)
			}
		}
	}
	if burst {
		a.bursts++
	}
	a.smokeAccum -= float32(int(a.smokeAccum))
}

// Smoke returns the exhaust and failure smoke pool.
func (a *Actor) Smoke() *ParticlePool {
	return a.smoke
}

// Dust returns the contact dust pool.
func (a *Actor) Dust() *ParticlePool {
	return a.dust
}

// CrankBursts returns how many crank bursts have fired.
func (a *Actor) CrankBursts() int {
	return a.bursts
}

// Exhaust is a smoke emitter. It owns no scene node of its own.
type Exhaust struct {
	def ExhaustDef
}
