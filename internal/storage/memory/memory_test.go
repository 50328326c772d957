package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rorsim/gfxbridge/internal/config"
	"github.com/rorsim/gfxbridge/pkg/core"
)

var layout = core.Layout{Nodes: 2, CommandKeys: 1}

func newSession() *core.Session {
	return &core.Session{
		ID:        "0b7c6f0e",
		Name:      "demo: run",
		StartTime: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		SimRateHz: 200,
		RenderFPS: 60,
	}
}

func frame(actor int, num uint64) *core.Frame {
	sb := core.NewSimBuffer(layout)
	sb.ActorID = actor
	sb.Nodes[1].Position = mgl32.Vec3{1, 2, float32(num)}
	return &core.Frame{ActorID: actor, FrameNum: num, Time: time.Unix(int64(num), 0).UTC(), Snapshot: sb}
}

func newBackend(t *testing.T, compress bool) *Backend {
	t.Helper()
	b := New(config.MemoryConfig{OutputDir: filepath.Join(t.TempDir(), "out"), CompressOutput: compress})
	require.NoError(t, b.Init())
	t.Cleanup(func() { b.Close() })
	return b
}

func TestBackend_RequiresSession(t *testing.T) {
	b := newBackend(t, false)
	assert.ErrorIs(t, b.AddActor(&core.ActorInfo{ID: 1}), core.ErrNoSession)
	assert.ErrorIs(t, b.RecordFrame(frame(1, 1)), core.ErrNoSession)
	assert.ErrorIs(t, b.EndSession(), core.ErrNoSession)
}

func TestBackend_RecordsFramesPerActor(t *testing.T) {
	b := newBackend(t, false)
	require.NoError(t, b.StartSession(newSession()))
	require.NoError(t, b.AddActor(&core.ActorInfo{ID: 2, Name: "truck", Layout: layout}))
	require.NoError(t, b.AddActor(&core.ActorInfo{ID: 1, Name: "trailer", Layout: layout}))

	require.NoError(t, b.RecordFrame(frame(2, 1)))
	require.NoError(t, b.RecordFrame(frame(2, 5)))
	require.NoError(t, b.RecordFrame(frame(1, 5)))

	err := b.RecordFrame(frame(9, 5))
	assert.ErrorIs(t, err, core.ErrUnknownActor)

	rec, ok := b.Actor(2)
	require.True(t, ok)
	assert.Equal(t, "truck", rec.Info.Name)
	require.Len(t, rec.Frames, 2)
	assert.Equal(t, uint64(5), rec.Frames[1].FrameNum)
	assert.Equal(t, 3, b.FrameCount())

	_, ok = b.Actor(9)
	assert.False(t, ok)
}

func TestBackend_AddActorTwiceKeepsFrames(t *testing.T) {
	b := newBackend(t, false)
	require.NoError(t, b.StartSession(newSession()))
	require.NoError(t, b.AddActor(&core.ActorInfo{ID: 1, Name: "old"}))
	require.NoError(t, b.RecordFrame(frame(1, 1)))
	require.NoError(t, b.AddActor(&core.ActorInfo{ID: 1, Name: "new"}))

	rec, _ := b.Actor(1)
	assert.Equal(t, "new", rec.Info.Name)
	assert.Len(t, rec.Frames, 1)
}

func TestBackend_StartSessionResets(t *testing.T) {
	b := newBackend(t, false)
	require.NoError(t, b.StartSession(newSession()))
	require.NoError(t, b.AddActor(&core.ActorInfo{ID: 1}))
	require.NoError(t, b.RecordFrame(frame(1, 1)))

	require.NoError(t, b.StartSession(newSession()))
	_, ok := b.Actor(1)
	assert.False(t, ok)
	assert.Zero(t, b.FrameCount())
}

func TestEndSession_WritesJSON(t *testing.T) {
	b := newBackend(t, false)
	require.NoError(t, b.StartSession(newSession()))
	require.NoError(t, b.AddActor(&core.ActorInfo{ID: 2, Name: "truck", Layout: layout}))
	require.NoError(t, b.AddActor(&core.ActorInfo{ID: 1, Name: "trailer", Layout: layout}))
	require.NoError(t, b.RecordFrame(frame(2, 3)))
	require.NoError(t, b.RecordFrame(frame(1, 7)))

	require.NoError(t, b.EndSession())
	assert.Nil(t, b.Session())

	path := b.ExportedFilePath()
	assert.Equal(t, "demo__run_20260304_050607.json", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var export SessionExport
	require.NoError(t, json.Unmarshal(data, &export))

	assert.Equal(t, "0b7c6f0e", export.Session.ID)
	assert.Equal(t, uint64(7), export.EndFrame)
	assert.Equal(t, 2, export.FrameCount)
	require.Len(t, export.Actors, 2)
	assert.Equal(t, 1, export.Actors[0].ID, "ordered by id")
	assert.Equal(t, "truck", export.Actors[1].Name)
	require.Len(t, export.Actors[1].Frames, 1)
	snap := export.Actors[1].Frames[0].Snapshot
	require.NotNil(t, snap)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, snap.Nodes[1].Position)
	assert.Equal(t, layout, snap.Layout())
}

func TestEndSession_WritesGzip(t *testing.T) {
	b := newBackend(t, true)
	require.NoError(t, b.StartSession(newSession()))
	require.NoError(t, b.AddActor(&core.ActorInfo{ID: 1, Layout: layout}))
	require.NoError(t, b.RecordFrame(frame(1, 1)))
	require.NoError(t, b.EndSession())

	path := b.ExportedFilePath()
	assert.True(t, strings.HasSuffix(path, ".json.gz"))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gr, err := gzip.NewReader(f)
	require.NoError(t, err)

	var export SessionExport
	require.NoError(t, json.NewDecoder(gr).Decode(&export))
	assert.Equal(t, 1, export.FrameCount)
}
