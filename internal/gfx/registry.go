package gfx

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/rorsim/gfxbridge/internal/console"
	"github.com/rorsim/gfxbridge/internal/scene"
	"github.com/rorsim/gfxbridge/internal/sim"
	"github.com/rorsim/gfxbridge/internal/worker"
)

const instrumentationName = "github.com/rorsim/gfxbridge/internal/gfx"

// FrameStats summarizes one RenderFrame.
type FrameStats struct {
	Frame    uint64
	Actors   int
	Updated  int
	Tasks    int
	JoinWait time.Duration
	Duration time.Duration
	Removed  int
}

// forgetter is implemented by sinks that can re-arm their once-only keys.
type forgetter interface {
	Forget(prefix string)
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithConfig sets the update pass tunables used for spawned actors.
func WithConfig(cfg Config) RegistryOption {
	return func(r *Registry) {
		r.factory.Config = cfg
	}
}

// Registry owns every graphics proxy and drives the per-frame update order.
// PublishAll runs on the simulation goroutine; everything else on the render
// goroutine unless noted.
type Registry struct {
	factory *Factory
	pool    *worker.Pool
	console console.Sink
	logger  *slog.Logger

	mu      sync.RWMutex
	actors  map[int]*Actor
	order   []int
	player  int
	inFrame bool
	pending []int
	frame   uint64

	// OTEL metrics
	frames   metric.Int64Counter
	duration metric.Float64Histogram
	updated  metric.Int64Counter
}

// NewRegistry creates an empty registry.
// Uses the global OTel meter for metrics (no-op if not configured).
func NewRegistry(graph scene.Graph, pool *worker.Pool, sink console.Sink, logger *slog.Logger, opts ...RegistryOption) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		factory: &Factory{Graph: graph, Console: sink, Config: DefaultConfig()},
		pool:    pool,
		console: sink,
		logger:  logger,
		actors:  make(map[int]*Actor),
		player:  -1,
	}
	for _, opt := range opts {
		opt(r)
	}

	m := otel.Meter(instrumentationName)
	var err error

	r.frames, err = m.Int64Counter(
		"gfx.frames",
		metric.WithDescription("Render frames processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating frames counter: %w", err)
	}

	r.updated, err = m.Int64Counter(
		"gfx.actors.updated",
		metric.WithDescription("Actor updates performed across all frames"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating updated counter: %w", err)
	}

	r.duration, err = m.Float64Histogram(
		"gfx.frame.duration",
		metric.WithDescription("Time spent in RenderFrame"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating frame duration histogram: %w", err)
	}

	return r, nil
}

// Add spawns the proxy of src. It creates scene nodes, so it must be called
// from the render goroutine, or before that goroutine starts.
func (r *Registry) Add(src sim.Actor, def Definition) (*Actor, error) {
	if err := def.Validate(src.Layout()); err != nil {
		return nil, fmt.Errorf("actor %d: invalid definition: %w", src.ID(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.actors[src.ID()]; ok {
		return nil, fmt.Errorf("actor %d already registered", src.ID())
	}
	a := r.factory.Spawn(src, def)
	r.actors[a.id] = a
	i, _ := slices.BinarySearch(r.order, a.id)
	r.order = slices.Insert(r.order, i, a.id)

	r.logger.Debug("actor spawned", "actorId", a.id, "name", def.Name,
		"rods", len(a.rods), "flexbodies", len(a.flexbodies), "props", len(a.props))
	return a, nil
}

// Get returns the proxy of actor id. Safe for concurrent use.
func (r *Registry) Get(id int) (*Actor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actors[id]
	return a, ok
}

// Actors returns every proxy ordered by ID. Safe for concurrent use.
func (r *Registry) Actors() []*Actor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() []*Actor {
	out := make([]*Actor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.actors[id])
	}
	return out
}

// Remove disposes the proxy of actor id. A removal requested while a frame
// is running takes effect after the frame's join. Disposal destroys scene
// nodes, so Remove must be called from the render goroutine.
func (r *Registry) Remove(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.actors[id]; !ok {
		return false
	}
	if r.inFrame {
		if !slices.Contains(r.pending, id) {
			r.pending = append(r.pending, id)
		}
		return true
	}
	r.removeLocked(id)
	return true
}

func (r *Registry) removeLocked(id int) {
	a, ok := r.actors[id]
	if !ok {
		return
	}
	a.Dispose()
	delete(r.actors, id)
	if i, found := slices.BinarySearch(r.order, id); found {
		r.order = slices.Delete(r.order, i, i+1)
	}
	if r.player == id {
		r.player = -1
	}
	if f, ok := r.console.(forgetter); ok {
		f.Forget(fmt.Sprintf("actor:%d:", id))
	}
	r.logger.Debug("actor removed", "actorId", id)
}

// Link associates two proxies of one assembly, e.g. a truck and its trailer.
// Safe for concurrent use.
func (r *Registry) Link(a, b int) error {
	if a == b {
		return fmt.Errorf("cannot link actor %d to itself", a)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	x, ok := r.actors[a]
	if !ok {
		return fmt.Errorf("actor %d not registered", a)
	}
	y, ok := r.actors[b]
	if !ok {
		return fmt.Errorf("actor %d not registered", b)
	}
	x.linked[y] = struct{}{}
	y.linked[x] = struct{}{}
	return nil
}

// Unlink removes the direct association between two proxies.
func (r *Registry) Unlink(a, b int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, okx := r.actors[a]
	y, oky := r.actors[b]
	if !okx || !oky {
		return
	}
	delete(x.linked, y)
	delete(y.linked, x)
}

// Linked returns every proxy reachable from id through links, ordered by ID
// and excluding id itself. Safe for concurrent use.
func (r *Registry) Linked(id int) []*Actor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.linkedLocked(id)
}

func (r *Registry) linkedLocked(id int) []*Actor {
	start, ok := r.actors[id]
	if !ok {
		return nil
	}
	seen := map[*Actor]struct{}{start: {}}
	queue := []*Actor{start}
	var out []*Actor
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for l := range cur.linked {
			if _, ok := seen[l]; ok {
				continue
			}
			seen[l] = struct{}{}
			out = append(out, l)
			queue = append(queue, l)
		}
	}
	slices.SortFunc(out, func(a, b *Actor) int { return a.id - b.id })
	return out
}

// SetPlayerActor marks the actor the player drives; -1 clears it. Linked
// actors are treated as the player's too.
func (r *Registry) SetPlayerActor(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.player = id
}

// PlayerActor returns the player's actor ID, -1 if none.
func (r *Registry) PlayerActor() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.player
}

// PublishAll publishes a snapshot of every registered actor. It is the
// producer step and runs on the simulation goroutine.
func (r *Registry) PublishAll() int {
	actors := r.Actors()
	for _, a := range actors {
		a.Publish()
	}
	return len(actors)
}

// RenderFrame runs one consumer step over every proxy in a fixed order:
// acquire snapshots, fork mesh tasks, animate, push structural updates and
// name labels, join and push the meshes, then draw debug overlays.
func (r *Registry) RenderFrame(dt float32) FrameStats {
	start := time.Now()

	r.mu.Lock()
	r.frame++
	r.inFrame = true
	frame := r.frame
	all := r.snapshotLocked()
	players := map[*Actor]bool{}
	if p, ok := r.actors[r.player]; ok {
		players[p] = true
		for _, l := range r.linkedLocked(r.player) {
			players[l] = true
		}
	}
	r.mu.Unlock()

	stats := FrameStats{Frame: frame, Actors: len(all)}

	for _, a := range all {
		a.BeginFrame()
	}
	live := make([]*Actor, 0, len(all))
	for _, a := range all {
		if a.IsInitialized() && a.IsLive() {
			live = append(live, a)
		}
	}
	stats.Updated = len(live)

	b := r.pool.Begin(frame)
	for _, a := range live {
		a.UpdateFlexbodies(b)
		a.UpdateWheelVisuals(b)
	}
	stats.Tasks = b.Len()

	for _, a := range live {
		isPlayer := players[a]
		a.UpdateProps(dt, isPlayer)
		a.UpdateFlares(dt, isPlayer)
		a.UpdateParticles(dt)
		a.UpdateAeroEngines(dt)
	}
	for _, a := range live {
		a.UpdateRods()
		a.UpdateCabMesh()
		a.UpdateWingMeshes()
		a.UpdateAirbrakes()
		a.UpdateScrewProps()
	}
	for _, a := range all {
		if a.IsInitialized() {
			a.UpdateNetLabels()
		}
	}

	joinStart := time.Now()
	for _, a := range live {
		a.FinishFlexbodies()
		a.FinishWheelVisuals()
	}
	b.Join()
	stats.JoinWait = time.Since(joinStart)

	for _, a := range live {
		a.UpdateDebugView()
	}

	stats.Removed = r.endFrame()
	stats.Duration = time.Since(start)

	ctx := context.Background()
	r.frames.Add(ctx, 1)
	r.updated.Add(ctx, int64(stats.Updated))
	r.duration.Record(ctx, float64(stats.Duration.Microseconds())/1000)
	return stats
}

// endFrame closes the frame and applies removals requested during it.
func (r *Registry) endFrame() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFrame = false
	n := len(r.pending)
	for _, id := range r.pending {
		r.removeLocked(id)
	}
	r.pending = r.pending[:0]
	return n
}

// Close disposes every proxy.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range slices.Clone(r.order) {
		r.removeLocked(id)
	}
}
