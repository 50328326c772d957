package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/rorsim/gfxbridge/internal/api"
	"github.com/rorsim/gfxbridge/internal/config"
	"github.com/rorsim/gfxbridge/internal/console"
	"github.com/rorsim/gfxbridge/internal/dispatcher"
	"github.com/rorsim/gfxbridge/internal/gfx"
	"github.com/rorsim/gfxbridge/internal/influx"
	"github.com/rorsim/gfxbridge/internal/logging"
	"github.com/rorsim/gfxbridge/internal/monitor"
	intOtel "github.com/rorsim/gfxbridge/internal/otel"
	"github.com/rorsim/gfxbridge/internal/recorder"
	"github.com/rorsim/gfxbridge/internal/scene"
	"github.com/rorsim/gfxbridge/internal/sim"
	"github.com/rorsim/gfxbridge/internal/storage"
	"github.com/rorsim/gfxbridge/internal/worker"
	"github.com/rorsim/gfxbridge/pkg/core"
)

// app holds everything the driver loop touches.
type app struct {
	logs    *logging.SlogManager
	logger  *slog.Logger
	otel    *intOtel.Provider
	closers []func() error

	frame     atomic.Uint64
	lastStats atomic.Pointer[gfx.FrameStats]
	sessionID string
	started   time.Time
	monitor   *monitor.Service

	driver   config.DriverConfig
	pool     *worker.Pool
	registry *gfx.Registry
	actors   []*sim.Scripted

	commands   *dispatcher.Dispatcher
	renderCmds chan func()
	simCmds    chan func()

	backend  storage.Backend
	recorder *recorder.Recorder
	metrics  *influx.Manager
}

// setup builds the app. The returned app is never nil so a partial setup can
// still be shut down.
func setup(flags *pflag.FlagSet, start time.Time) (*app, error) {
	a := &app{logs: logging.NewSlogManager()}
	a.logs.Setup(logging.Options{Level: "info"})
	a.logger = a.logs.Logger()

	configDir, _ := flags.GetString("config")
	if err := config.Load(configDir); err != nil {
		a.logger.Warn("Failed to load config, using defaults!", "error", err)
		config.SetDefaults()
	} else {
		a.logger.Info("Loaded config", "dir", configDir)
	}
	if err := config.BindFlags(flags); err != nil {
		return a, err
	}
	a.driver = config.GetDriverConfig()

	zl, err := a.setupLogging(start)
	if err != nil {
		return a, err
	}

	wl := logging.NewWorkerLogger(zl)
	a.pool, err = worker.NewPool(a.driver.Workers, wl)
	if err != nil {
		return a, fmt.Errorf("worker pool: %w", err)
	}

	gfxCfg := config.GetGfxConfig()
	a.registry, err = gfx.NewRegistry(scene.NewMemory(), a.pool, console.New(a.logger, 128), a.logger,
		gfx.WithConfig(gfx.Config{
			BlinkPeriod:         gfxCfg.BlinkPeriod,
			BeaconSpeed:         gfxCfg.BeaconSpeed,
			CrankBurstThreshold: gfxCfg.CrankBurstThreshold,
			ParticlePoolSize:    gfxCfg.ParticlePoolSize,
			NetLabelHeight:      gfxCfg.NetLabelHeight,
		}))
	if err != nil {
		return a, fmt.Errorf("registry: %w", err)
	}

	a.started = start
	session := &core.Session{
		ID:          uuid.NewString(),
		Name:        appName,
		StartTime:   start,
		SimRateHz:   a.driver.SimRateHz,
		RenderFPS:   a.driver.RenderFPS,
		Version:     Version,
		ActorCount:  a.driver.Actors,
		SampleDelay: float32(a.driver.RecorderInterval.Seconds()),
	}
	a.sessionID = session.ID
	if a.driver.RecorderEnabled {
		if err := a.setupStorage(session, zl); err != nil {
			return a, err
		}
	}

	a.setupMetrics(start, zl)

	if err := a.spawn(start); err != nil {
		return a, err
	}
	if err := a.setupCommands(wl); err != nil {
		return a, err
	}
	a.startMonitor()
	return a, nil
}

// pender is implemented by backends with buffered writes.
type pender interface {
	Pending() (actors, frames int)
}

func (a *app) startMonitor() {
	if a.driver.StatusInterval <= 0 {
		return
	}
	a.monitor = monitor.NewService(monitor.Dependencies{
		Logger:     a.logger,
		StatusPath: filepath.Join(config.GetString("logsDir"), "status.json"),
		Interval:   a.driver.StatusInterval,
		Status:     a.status,
	})
	if err := a.monitor.Start(); err != nil {
		a.logger.Warn("Status monitor disabled", "error", err)
		a.monitor = nil
	}
}

func (a *app) status() monitor.Status {
	st := monitor.Status{
		SessionID:       a.sessionID,
		WorkersInFlight: a.pool.InFlight(),
	}
	if fs := a.lastStats.Load(); fs != nil {
		st.Frame = fs.Frame
		st.Actors = fs.Actors
		st.Updated = fs.Updated
		st.Tasks = fs.Tasks
		st.FrameMs = float32(fs.Duration.Seconds() * 1000)
		st.JoinWaitMs = float32(fs.JoinWait.Seconds() * 1000)
	}
	if p, ok := a.backend.(pender); ok {
		st.PendingActors, st.PendingFrames = p.Pending()
	}
	return st
}

// setupLogging replaces the bootstrap stdout logger with the configured
// outputs and returns the zerolog logger shared by the pool and managers.
func (a *app) setupLogging(start time.Time) (zerolog.Logger, error) {
	logsDir := config.GetString("logsDir")
	level := config.GetString("logLevel")

	logFile, err := logging.OpenLogFile(logsDir, appName, start)
	if err != nil {
		return zerolog.Logger{}, err
	}
	a.closers = append(a.closers, logFile.Close)

	otelCfg := config.GetOTelConfig()
	var otelFile *os.File
	if otelCfg.Enabled {
		otelFile, err = logging.OpenLogFile(logsDir, appName+".otel", start)
		if err != nil {
			return zerolog.Logger{}, err
		}
		a.closers = append(a.closers, otelFile.Close)
	}
	cfg := intOtel.FromConfig(otelCfg, a.driver, nil)
	cfg.Version = Version
	if otelFile != nil {
		cfg.LogWriter = otelFile
	}
	a.otel, err = intOtel.New(cfg)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("otel: %w", err)
	}

	opts := logging.Options{
		File:     logFile,
		Level:    level,
		Provider: a.otel.LoggerProvider(),
		Context:  logging.FrameProvider(a.frame.Load),
	}
	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGraylogWriter(gl.Address)
		if err != nil {
			a.logger.Warn("Failed to open Graylog writer", "address", gl.Address, "error", err)
		} else {
			opts.Graylog = w
			a.closers = append(a.closers, w.Close)
		}
	}
	a.logs.Setup(opts)
	a.logger = a.logs.Logger()
	a.logger.Info("Starting up", "version", Version, "buildDate", BuildDate, "logFile", logFile.Name())

	return logging.NewZerolog(level, logFile), nil
}

func (a *app) setupStorage(session *core.Session, zl zerolog.Logger) error {
	cfg := config.GetStorageConfig()
	backend, err := storage.NewBackend(cfg, storage.Dependencies{
		Logger:       a.logger,
		DBLogger:     zl,
		FallbackName: appName + "_" + session.ID,
	})
	if err != nil {
		return fmt.Errorf("failed to create storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	if err := backend.StartSession(session); err != nil {
		_ = backend.Close()
		return fmt.Errorf("failed to start session: %w", err)
	}
	a.backend = backend
	a.recorder = recorder.New(backend, a.driver.RecorderInterval, a.logger)
	a.logger.Info("Storage backend initialized", "type", cfg.Type, "session", session.ID)
	return nil
}

// setupMetrics connects to InfluxDB. Failures only disable the points.
func (a *app) setupMetrics(start time.Time, zl zerolog.Logger) {
	cfg := config.GetInfluxConfig()
	if !cfg.Enabled {
		return
	}
	backup := filepath.Join(config.GetString("logsDir"),
		fmt.Sprintf("influx_backup.%s.log.gz", start.Format("20060102_150405")))
	m := influx.NewManager(zl, backup, a.sessionID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Connect(ctx, cfg); err != nil {
		a.logger.Warn("InfluxDB disabled", "error", err)
		return
	}
	a.metrics = m
}

func (a *app) spawn(start time.Time) error {
	def := demoDefinition()
	for id := 1; id <= a.driver.Actors; id++ {
		s := demoActor(id)
		if _, err := a.registry.Add(s, def); err != nil {
			return fmt.Errorf("spawn actor %d: %w", id, err)
		}
		a.actors = append(a.actors, s)

		if a.recorder != nil {
			err := a.recorder.Register(core.ActorInfo{
				ID:        id,
				Name:      s.Name(),
				Layout:    s.Layout(),
				SpawnTime: start,
			})
			if err != nil {
				return err
			}
		}
	}
	if len(a.actors) > 0 {
		a.registry.SetPlayerActor(1)
	}
	a.logger.Info("Actors spawned", "count", len(a.actors))
	return nil
}

// upload sends an exported recording to the recording server when one is
// configured.
func (a *app) upload(path string) {
	cfg := config.GetAPIConfig()
	if cfg.ServerURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	client := api.New(cfg.ServerURL, cfg.APIKey)
	if err := client.Healthcheck(ctx); err != nil {
		a.logger.Warn("Recording server unreachable, keeping local export", "error", err)
		return
	}
	err := client.Upload(ctx, path, core.UploadMetadata{
		SessionID:   a.sessionID,
		SessionName: appName,
		Duration:    time.Since(a.started).Seconds(),
		ActorCount:  len(a.actors),
		Tag:         cfg.Tag,
	})
	if errors.Is(err, api.ErrUnauthorized) {
		a.logger.Error("Recording server rejected api.apiKey, keeping local export", "path", path)
		return
	}
	if err != nil {
		a.logger.Error("Failed to upload recording", "path", path, "error", err)
		return
	}
	a.logger.Info("Recording uploaded", "server", cfg.ServerURL)
}

// shutdown ends the session and releases every resource in reverse setup
// order. Errors are logged, not returned.
func (a *app) shutdown() {
	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.commands != nil {
		a.commands.Close()
	}
	if a.registry != nil {
		a.registry.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}

	if a.backend != nil {
		if err := a.backend.EndSession(); err != nil {
			a.logger.Error("Failed to end session", "error", err)
		}
		if e, ok := a.backend.(storage.Exporter); ok && e.ExportedFilePath() != "" {
			a.logger.Info("Recording exported", "path", e.ExportedFilePath())
			a.upload(e.ExportedFilePath())
		}
		if err := a.backend.Close(); err != nil {
			a.logger.Error("Failed to close storage backend", "error", err)
		}
	}
	if a.metrics != nil {
		if err := a.metrics.Close(); err != nil {
			a.logger.Error("Failed to close InfluxDB manager", "error", err)
		}
	}

	a.logger.Info("Shut down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := a.logs.Flush(ctx)
	if a.otel != nil {
		err = errors.Join(err, a.otel.Shutdown(ctx))
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "flushing logs:", err)
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}
