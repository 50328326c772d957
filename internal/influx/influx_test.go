package influx

import (
	"bufio"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rorsim/gfxbridge/internal/config"
	"github.com/rorsim/gfxbridge/internal/gfx"
)

func unreachable() config.InfluxConfig {
	return config.InfluxConfig{
		Enabled:  true,
		Host:     "127.0.0.1",
		Port:     "1",
		Protocol: "http",
		Token:    "token",
		Org:      "org",
		Bucket:   "frame_performance",
	}
}

func readBackup(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	var lines []string
	sc := bufio.NewScanner(gz)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(zerolog.Nop(), filepath.Join(t.TempDir(), "backup.gz"), "s1")
	err := m.Connect(context.Background(), config.InfluxConfig{})
	assert.ErrorIs(t, err, ErrDisabled)
	assert.Nil(t, m.BackupWriter)
}

func TestWritePoint_NotInitialized(t *testing.T) {
	m := NewManager(zerolog.Nop(), "", "s1")
	assert.Error(t, m.WriteTick(1, time.Millisecond, time.Now()))
}

func TestConnect_UnreachableWritesBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.gz")
	m := NewManager(zerolog.Nop(), path, "abc")
	require.NoError(t, m.Connect(context.Background(), unreachable()))
	assert.False(t, m.IsValid)
	require.NotNil(t, m.BackupWriter)

	at := time.Unix(1700000000, 0)
	stats := gfx.FrameStats{Frame: 7, Actors: 3, Updated: 2, Tasks: 5, Duration: 4 * time.Millisecond}
	require.NoError(t, m.WriteFrame(stats, at))
	require.NoError(t, m.WriteTick(3, 500*time.Microsecond, at))
	require.NoError(t, m.Close())

	lines := readBackup(t, path)
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "render_frame,host="), lines[0])
	assert.Contains(t, lines[0], ",session=abc ")
	assert.Contains(t, lines[0], "frame=7i")
	assert.Contains(t, lines[0], "duration_ms=4")
	assert.True(t, strings.HasSuffix(lines[0], " 1700000000000000000"))
	assert.True(t, strings.HasPrefix(lines[1], "sim_tick,host="), lines[1])
	assert.Contains(t, lines[1], ",session=abc ")
	assert.Contains(t, lines[1], "published=3i")
}

func TestClose_Idempotent(t *testing.T) {
	m := NewManager(zerolog.Nop(), filepath.Join(t.TempDir(), "backup.gz"), "s1")
	require.NoError(t, m.Connect(context.Background(), unreachable()))
	require.NoError(t, m.Close())
	assert.NoError(t, m.Close())
}

func TestPoints(t *testing.T) {
	at := time.Now()
	p := FramePoint(pointTags(""), gfx.FrameStats{Frame: 1, JoinWait: 1500 * time.Microsecond}, at)
	assert.Equal(t, MeasurementRenderFrame, p.Name())
	assert.Equal(t, at, p.Time())

	fields := map[string]interface{}{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, 1.5, fields["join_wait_ms"])
	assert.Equal(t, int64(1), fields["frame"])

	tick := TickPoint(pointTags("s2"), 2, 0, at)
	assert.Equal(t, MeasurementSimTick, tick.Name())
	assert.Len(t, tick.FieldList(), 2)
}

func TestPoints_LineProtocolIsTagged(t *testing.T) {
	at := time.Unix(1, 0)
	tags := map[string]string{"host": "h", "session": "s"}

	line := influxdb2_write.PointToLineProtocol(FramePoint(tags, gfx.FrameStats{Frame: 7}, at), time.Nanosecond)
	assert.True(t, strings.HasPrefix(line, "render_frame,host=h,session=s "), line)

	line = influxdb2_write.PointToLineProtocol(TickPoint(tags, 3, time.Millisecond, at), time.Nanosecond)
	assert.True(t, strings.HasPrefix(line, "sim_tick,host=h,session=s "), line)

	for _, v := range pointTags("") {
		assert.NotEmpty(t, v)
	}
	assert.Equal(t, "none", pointTags("")["session"])
}
