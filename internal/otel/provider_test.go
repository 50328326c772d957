package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/log"

	"github.com/rorsim/gfxbridge/internal/config"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{Enabled: false})
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
	assert.NotNil(t, p.Meter("test"))
}

func TestNew_EnabledWithoutExporter(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "gfxbridge"})
	assert.ErrorIs(t, err, ErrNoExporter)
}

func TestNew_FileExporter(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(Config{
		Enabled:      true,
		ServiceName:  "gfxbridge",
		BatchTimeout: time.Second,
		LogWriter:    &buf,
	})
	require.NoError(t, err)
	require.NotNil(t, p.LoggerProvider())

	var rec log.Record
	rec.SetBody(log.StringValue("frame rendered"))
	p.LoggerProvider().Logger("test").Emit(context.Background(), rec)

	require.NoError(t, p.Flush(context.Background()))
	assert.Contains(t, buf.String(), "frame rendered")
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_ResourceDescribesDriver(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(Config{
		Enabled:     true,
		ServiceName: "gfxbridge",
		Version:     "1.2.3",
		LogWriter:   &buf,
		SimRateHz:   200,
		RenderFPS:   60,
	})
	require.NoError(t, err)
	t.Cleanup(func() { p.Shutdown(context.Background()) })

	assert.Equal(t, []string{"file"}, p.Exporters())
	set := p.Resource().Set()
	v, ok := set.Value(AttrSimRate)
	require.True(t, ok)
	assert.Equal(t, int64(200), v.AsInt64())
	v, ok = set.Value(AttrRenderFPS)
	require.True(t, ok)
	assert.Equal(t, int64(60), v.AsInt64())
	_, ok = set.Value(AttrWorkers)
	assert.False(t, ok, "unset values are left out")
	v, ok = set.Value(attribute.Key("service.version"))
	require.True(t, ok)
	assert.Equal(t, "1.2.3", v.AsString())
}

func TestFromConfig(t *testing.T) {
	var buf bytes.Buffer
	cfg := FromConfig(config.OTelConfig{
		Enabled:      true,
		ServiceName:  "svc",
		BatchTimeout: 3 * time.Second,
		Endpoint:     "collector:4318",
		Insecure:     true,
	}, config.DriverConfig{SimRateHz: 100, RenderFPS: 30, Workers: 2}, &buf)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "svc", cfg.ServiceName)
	assert.Equal(t, 3*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "collector:4318", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Same(t, &buf, cfg.LogWriter)
	assert.Equal(t, 100, cfg.SimRateHz)
	assert.Equal(t, 30, cfg.RenderFPS)
	assert.Equal(t, 2, cfg.Workers)
}
