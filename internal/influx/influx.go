package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/rorsim/gfxbridge/internal/config"
	"github.com/rorsim/gfxbridge/internal/gfx"
)

// Measurement names.
const (
	MeasurementRenderFrame = "render_frame"
	MeasurementSimTick     = "sim_tick"
)

// ErrDisabled is returned by Connect when influx output is turned off.
var ErrDisabled = errors.New("influx.enabled is false")

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	Bucket       string
	Logger       zerolog.Logger
	BackupPath   string

	org        string
	tags       map[string]string
	backupFile *os.File
	mu         sync.Mutex
}

// NewManager creates a new InfluxDB manager. Every point is tagged with the
// session ID and the host name.
func NewManager(log zerolog.Logger, backupPath, session string) *Manager {
	return &Manager{
		Writers:    make(map[string]influxdb2_api.WriteAPI),
		Logger:     log,
		BackupPath: backupPath,
		tags:       pointTags(session),
	}
}

// pointTags never returns an empty tag value; the line protocol encoder skips
// those and an untagged point in the backup file cannot be re-imported.
func pointTags(session string) map[string]string {
	if session == "" {
		session = "none"
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return map[string]string{"session": session, "host": host}
}

// Connect establishes a connection to InfluxDB. An unreachable server is not
// an error: points go to the gzip backup file instead.
func (m *Manager) Connect(ctx context.Context, cfg config.InfluxConfig) error {
	if !cfg.Enabled {
		return ErrDisabled
	}
	m.Bucket = cfg.Bucket
	m.org = cfg.Org

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%s", cfg.Protocol, cfg.Host, cfg.Port),
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	running, err := m.Client.Ping(ctx)
	m.IsValid = err == nil && running
	if !m.IsValid {
		m.Logger.Info().Str("backupPath", m.BackupPath).
			Msg("Failed to initialize InfluxDB client, writing to backup file")
		return m.openBackup()
	}

	if err := m.setupOrganizationAndBucket(ctx); err != nil {
		return err
	}
	m.createWriter()
	m.Logger.Info().Str("bucket", m.Bucket).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	if m.BackupWriter != nil {
		return nil
	}
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBucket(ctx context.Context) error {
	orgs := m.Client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, m.org)
	if err != nil {
		m.Logger.Info().Str("org", m.org).Msg("Organization not found, creating")
		org, err = orgs.CreateOrganizationWithName(ctx, m.org)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", m.org).Msg("Error creating organization")
			return err
		}
	}

	if _, err := m.Client.BucketsAPI().FindBucketByName(ctx, m.Bucket); err == nil {
		return nil
	}
	m.Logger.Info().Str("bucket", m.Bucket).Msg("Bucket not found, creating")

	// 30 days
	rule := domain.RetentionRuleTypeExpire
	_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, org, m.Bucket, domain.RetentionRule{
		Type:         &rule,
		EverySeconds: 60 * 60 * 24 * 30,
	})
	if err != nil {
		m.Logger.Error().Err(err).Str("bucket", m.Bucket).Msg("Error creating bucket")
		return err
	}
	return nil
}

func (m *Manager) createWriter() {
	w := m.Client.WriteAPI(m.org, m.Bucket)
	m.Writers[m.Bucket] = w

	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			m.Logger.Error().Err(writeErr).Str("bucket", m.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}(w.Errors())

	m.Logger.Debug().Str("bucket", m.Bucket).Msg("InfluxDB writer created")
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.IsValid {
		w, ok := m.Writers[m.Bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", m.Bucket)
		}
		w.WritePoint(point)
		return nil
	}

	if m.BackupWriter == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}
	line := strings.TrimSuffix(influxdb2_write.PointToLineProtocol(point, time.Nanosecond), "\n")
	if _, err := m.BackupWriter.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// WriteFrame records one render frame.
func (m *Manager) WriteFrame(stats gfx.FrameStats, at time.Time) error {
	return m.WritePoint(FramePoint(m.tags, stats, at))
}

// WriteTick records one simulation tick.
func (m *Manager) WriteTick(published int, d time.Duration, at time.Time) error {
	return m.WritePoint(TickPoint(m.tags, published, d, at))
}

// Close flushes pending points and releases the client and backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.Writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
		m.Client = nil
	}
	m.IsValid = false

	if m.BackupWriter == nil {
		return nil
	}
	err := errors.Join(m.BackupWriter.Close(), m.backupFile.Close())
	m.BackupWriter = nil
	m.backupFile = nil
	return err
}

// FramePoint builds a render_frame point.
func FramePoint(tags map[string]string, stats gfx.FrameStats, at time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(MeasurementRenderFrame,
		tags,
		map[string]interface{}{
			"frame":        int64(stats.Frame),
			"actors":       stats.Actors,
			"updated":      stats.Updated,
			"tasks":        stats.Tasks,
			"removed":      stats.Removed,
			"duration_ms":  ms(stats.Duration),
			"join_wait_ms": ms(stats.JoinWait),
		},
		at,
	)
}

// TickPoint builds a sim_tick point.
func TickPoint(tags map[string]string, published int, d time.Duration, at time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(MeasurementSimTick,
		tags,
		map[string]interface{}{
			"published":   published,
			"duration_ms": ms(d),
		},
		at,
	)
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
