package scene

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// NodeState is the recorded state of one node in a Memory graph.
type NodeState struct {
	ID        NodeID
	Name      string
	Transform Transform
	Visible   bool
	Vertices  []mgl32.Vec3
	Normals   []mgl32.Vec3
	Params    map[string]float32
	Label     string

	MeshUpdates  int
	LabelUpdates int
}

// Memory is a Graph that records every call. It backs the headless driver and
// the tests.
type Memory struct {
	mu     sync.RWMutex
	nextID NodeID
	nodes  map[NodeID]*NodeState
	debug  map[int][]DebugPrimitive

	destroyed int
}

var _ Graph = (*Memory)(nil)

// NewMemory creates an empty recording graph.
func NewMemory() *Memory {
	return &Memory{
		nodes: make(map[NodeID]*NodeState),
		debug: make(map[int][]DebugPrimitive),
	}
}

func (m *Memory) CreateNode(name string) NodeID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.nodes[m.nextID] = &NodeState{
		ID:        m.nextID,
		Name:      name,
		Transform: IdentityTransform(),
		Visible:   true,
		Params:    make(map[string]float32),
	}
	return m.nextID
}

func (m *Memory) DestroyNode(id NodeID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[id]; ok {
		delete(m.nodes, id)
		m.destroyed++
	}
}

func (m *Memory) SetTransform(id NodeID, t Transform) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.nodes[id]; ok {
		n.Transform = t
	}
}

func (m *Memory) SetVisible(id NodeID, visible bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.nodes[id]; ok {
		n.Visible = visible
	}
}

// UpdateMesh copies the vertex data; callers may reuse their buffers.
func (m *Memory) UpdateMesh(id NodeID, vertices, normals []mgl32.Vec3) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[id]
	if !ok {
		return
	}
	n.Vertices = append(n.Vertices[:0], vertices...)
	n.Normals = append(n.Normals[:0], normals...)
	n.MeshUpdates++
}

func (m *Memory) SetMaterialParam(id NodeID, key string, value float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.nodes[id]; ok {
		n.Params[key] = value
	}
}

func (m *Memory) SetLabel(id NodeID, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.nodes[id]; ok {
		n.Label = text
		n.LabelUpdates++
	}
}

func (m *Memory) SubmitDebug(owner int, prims []DebugPrimitive) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(prims) == 0 {
		delete(m.debug, owner)
		return
	}
	m.debug[owner] = append([]DebugPrimitive(nil), prims...)
}

// Node returns a deep copy of the recorded state of id.
func (m *Memory) Node(id NodeID) (NodeState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return NodeState{}, false
	}
	out := *n
	out.Vertices = append([]mgl32.Vec3(nil), n.Vertices...)
	out.Normals = append([]mgl32.Vec3(nil), n.Normals...)
	out.Params = make(map[string]float32, len(n.Params))
	for k, v := range n.Params {
		out.Params[k] = v
	}
	return out, true
}

// Len returns the number of live nodes.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

// Destroyed returns how many nodes have been destroyed.
func (m *Memory) Destroyed() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.destroyed
}

// Debug returns the current debug overlay of owner.
func (m *Memory) Debug(owner int) []DebugPrimitive {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]DebugPrimitive(nil), m.debug[owner]...)
}
