package recorder

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rorsim/gfxbridge/internal/config"
	"github.com/rorsim/gfxbridge/internal/storage/memory"
	"github.com/rorsim/gfxbridge/pkg/core"
)

var layout = core.Layout{Nodes: 2}

func newRecorder(t *testing.T, interval time.Duration) (*Recorder, *memory.Backend) {
	t.Helper()
	b := memory.New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.Init())
	require.NoError(t, b.StartSession(&core.Session{ID: "s1", Name: "test"}))
	return New(b, interval, nil), b
}

func TestSample_UnregisteredActor(t *testing.T) {
	r, _ := newRecorder(t, 0)
	_, err := r.Sample(time.Now(), 1, core.NewSimBuffer(layout))
	assert.ErrorIs(t, err, ErrTooEarlyForStateAssociation)
}

func TestSample_RespectsInterval(t *testing.T) {
	r, b := newRecorder(t, 100*time.Millisecond)
	require.NoError(t, r.Register(core.ActorInfo{ID: 1, Name: "truck", Layout: layout}))

	sb := core.NewSimBuffer(layout)
	start := time.Unix(100, 0)
	tests := []struct {
		offset time.Duration
		stored bool
	}{
		{0, true},
		{50 * time.Millisecond, false},
		{99 * time.Millisecond, false},
		{100 * time.Millisecond, true},
		{150 * time.Millisecond, false},
		{250 * time.Millisecond, true},
	}
	for _, tt := range tests {
		ok, err := r.Sample(start.Add(tt.offset), 1, sb)
		require.NoError(t, err)
		assert.Equal(t, tt.stored, ok, "offset %s", tt.offset)
	}
	assert.Equal(t, uint64(3), r.Frames(1))
	assert.Equal(t, 3, b.FrameCount())
}

func TestSample_StoresCopy(t *testing.T) {
	r, b := newRecorder(t, 0)
	require.NoError(t, r.Register(core.ActorInfo{ID: 1, Layout: layout}))

	sb := core.NewSimBuffer(layout)
	sb.Nodes[1].Position = mgl32.Vec3{1, 2, 3}
	_, err := r.Sample(time.Now(), 1, sb)
	require.NoError(t, err)
	sb.Nodes[1].Position = mgl32.Vec3{9, 9, 9}

	rec, ok := b.Actor(1)
	require.True(t, ok)
	require.Len(t, rec.Frames, 1)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, rec.Frames[0].Snapshot.Nodes[1].Position)
	assert.Equal(t, uint64(1), rec.Frames[0].FrameNum)
}

func TestSample_ActorsAreIndependent(t *testing.T) {
	r, _ := newRecorder(t, time.Second)
	require.NoError(t, r.Register(core.ActorInfo{ID: 1, Layout: layout}))
	require.NoError(t, r.Register(core.ActorInfo{ID: 2, Layout: layout}))

	now := time.Now()
	sb := core.NewSimBuffer(layout)
	for _, id := range []int{1, 2} {
		ok, err := r.Sample(now, id, sb)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestRegister_BackendError(t *testing.T) {
	b := memory.New(config.MemoryConfig{OutputDir: t.TempDir()})
	r := New(b, 0, nil)
	err := r.Register(core.ActorInfo{ID: 1})
	assert.ErrorIs(t, err, core.ErrNoSession)
}

func TestUnregister(t *testing.T) {
	r, _ := newRecorder(t, 0)
	require.NoError(t, r.Register(core.ActorInfo{ID: 1, Layout: layout}))
	r.Unregister(1)
	_, err := r.Sample(time.Now(), 1, core.NewSimBuffer(layout))
	assert.ErrorIs(t, err, ErrTooEarlyForStateAssociation)
	assert.Zero(t, r.Frames(1))
}
