// Package otel builds the OpenTelemetry log provider used by the slog bridge.
package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/rorsim/gfxbridge/internal/config"
)

// ErrNoExporter is returned when OTel is enabled without a log writer or
// OTLP endpoint.
var ErrNoExporter = errors.New("otel enabled but no log writer or endpoint configured")

const defaultBatchTimeout = 5 * time.Second

// Resource attribute keys describing the driver loop.
const (
	AttrSimRate   = attribute.Key("gfxbridge.sim.rate_hz")
	AttrRenderFPS = attribute.Key("gfxbridge.render.fps")
	AttrWorkers   = attribute.Key("gfxbridge.workers")
)

// Config holds OTel configuration
type Config struct {
	Enabled      bool
	ServiceName  string
	Version      string
	BatchTimeout time.Duration
	LogWriter    io.Writer // file receiving exported records
	Endpoint     string    // OTLP/HTTP endpoint, optional
	Insecure     bool

	SimRateHz int
	RenderFPS int
	Workers   int
}

// FromConfig fills a Config from the loaded settings, the driver loop and
// the OTel log file.
func FromConfig(c config.OTelConfig, drv config.DriverConfig, logWriter io.Writer) Config {
	return Config{
		Enabled:      c.Enabled,
		ServiceName:  c.ServiceName,
		BatchTimeout: c.BatchTimeout,
		LogWriter:    logWriter,
		Endpoint:     c.Endpoint,
		Insecure:     c.Insecure,
		SimRateHz:    drv.SimRateHz,
		RenderFPS:    drv.RenderFPS,
		Workers:      drv.Workers,
	}
}

// Provider owns the log provider the slog bridge exports through. A
// disabled Provider hands out nil and no-ops on Flush and Shutdown.
type Provider struct {
	cfg       Config
	res       *resource.Resource
	logs      *sdklog.LoggerProvider
	exporters []string
}

// New creates the provider. A disabled config yields a no-op provider.
func New(cfg Config) (*Provider, error) {
	p := &Provider{cfg: cfg}
	if !cfg.Enabled {
		return p, nil
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultBatchTimeout
	}

	ctx := context.Background()
	res, err := resource.New(ctx, resource.WithAttributes(driverAttributes(cfg)...))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	p.res = res

	opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	batch := func(e sdklog.Exporter, name string) {
		opts = append(opts, sdklog.WithProcessor(
			sdklog.NewBatchProcessor(e, sdklog.WithExportTimeout(cfg.BatchTimeout))))
		p.exporters = append(p.exporters, name)
	}

	if cfg.LogWriter != nil {
		e, err := stdoutlog.New(stdoutlog.WithWriter(cfg.LogWriter), stdoutlog.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create file log exporter: %w", err)
		}
		batch(e, "file")
	}
	if cfg.Endpoint != "" {
		e, err := newOTLPExporter(ctx, cfg)
		if err != nil {
			return nil, err
		}
		batch(e, "otlp:"+cfg.Endpoint)
	}
	if len(p.exporters) == 0 {
		return nil, ErrNoExporter
	}

	p.logs = sdklog.NewLoggerProvider(opts...)
	return p, nil
}

func driverAttributes(cfg Config) []attribute.KeyValue {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}
	if cfg.Version != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.Version))
	}
	if cfg.SimRateHz > 0 {
		attrs = append(attrs, AttrSimRate.Int(cfg.SimRateHz))
	}
	if cfg.RenderFPS > 0 {
		attrs = append(attrs, AttrRenderFPS.Int(cfg.RenderFPS))
	}
	if cfg.Workers > 0 {
		attrs = append(attrs, AttrWorkers.Int(cfg.Workers))
	}
	return attrs
}

func newOTLPExporter(ctx context.Context, cfg Config) (*otlploghttp.Exporter, error) {
	opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploghttp.WithInsecure())
	}
	e, err := otlploghttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}
	return e, nil
}

// LoggerProvider returns the log provider for the otelslog bridge, nil when
// disabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logs
}

// Resource returns the resource attached to every exported record, nil when
// disabled.
func (p *Provider) Resource() *resource.Resource {
	return p.res
}

// Exporters names the configured exporters in creation order.
func (p *Provider) Exporters() []string {
	return p.exporters
}

// Meter returns a meter from the global meter provider. The worker pool and
// the gfx registry record through it.
func (p *Provider) Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Flush exports pending records, e.g. before the session file is uploaded.
func (p *Provider) Flush(ctx context.Context) error {
	if p.logs == nil {
		return nil
	}
	if err := p.logs.ForceFlush(ctx); err != nil {
		return fmt.Errorf("log flush failed: %w", err)
	}
	return nil
}

// Shutdown flushes and stops the providers. Call it once on exit.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.logs == nil {
		return nil
	}
	if err := p.logs.Shutdown(ctx); err != nil {
		return fmt.Errorf("log shutdown failed: %w", err)
	}
	return nil
}

// Enabled returns whether OTel is enabled
func (p *Provider) Enabled() bool {
	return p.cfg.Enabled
}
