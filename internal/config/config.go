package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "gfxbridge.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// PostgresConfig holds Postgres connection settings
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// DSN returns the libpq connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// WebSocketConfig holds websocket streaming backend settings
type WebSocketConfig struct {
	URL          string        `json:"url" mapstructure:"url"`
	Secret       string        `json:"secret" mapstructure:"secret"`
	WriteTimeout time.Duration `json:"writeTimeout" mapstructure:"writeTimeout"`
}

// StorageConfig holds storage backend configuration
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	Postgres  PostgresConfig  `json:"-" mapstructure:"-"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// GfxConfig holds the tunables of the graphics update passes
type GfxConfig struct {
	BlinkPeriod         time.Duration `json:"blinkPeriod" mapstructure:"blinkPeriod"`
	BeaconSpeed         float32       `json:"beaconSpeed" mapstructure:"beaconSpeed"`
	CrankBurstThreshold float32       `json:"crankBurstThreshold" mapstructure:"crankBurstThreshold"`
	ParticlePoolSize    int           `json:"particlePoolSize" mapstructure:"particlePoolSize"`
	NetLabelHeight      float32       `json:"netLabelHeight" mapstructure:"netLabelHeight"`
}

// DriverConfig holds the settings of the driver loop
type DriverConfig struct {
	SimRateHz        int           `json:"simRateHz"`
	RenderFPS        int           `json:"renderFps"`
	Workers          int           `json:"workers"`
	Actors           int           `json:"actors"`
	Duration         time.Duration `json:"duration"`
	RecorderEnabled  bool          `json:"recorderEnabled"`
	RecorderInterval time.Duration `json:"recorderInterval"`
	StatusInterval   time.Duration `json:"statusInterval"`
}

// InfluxConfig holds InfluxDB settings
type InfluxConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Protocol string
	Token    string
	Org      string
	Bucket   string
}

// APIConfig holds the recording server settings
type APIConfig struct {
	ServerURL string
	APIKey    string
	Tag       string
}

// GraylogConfig holds GELF output settings
type GraylogConfig struct {
	Enabled bool
	Address string
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("sim.rateHz", 200)
	viper.SetDefault("render.fps", 60)
	viper.SetDefault("workers.count", 4)
	viper.SetDefault("actors", 3)
	viper.SetDefault("duration", "0s")

	viper.SetDefault("gfx.blinkPeriod", "500ms")
	viper.SetDefault("gfx.beaconSpeed", 4)
	viper.SetDefault("gfx.crankBurstThreshold", 0.5)
	viper.SetDefault("gfx.particlePoolSize", 256)
	viper.SetDefault("gfx.netLabelHeight", 0.5)

	viper.SetDefault("recorder.enabled", true)
	viper.SetDefault("recorder.interval", "250ms")
	viper.SetDefault("monitor.interval", "1s")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.websocket.url", "")
	viper.SetDefault("storage.websocket.secret", "")
	viper.SetDefault("storage.websocket.writeTimeout", "10s")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "gfxbridge")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "gfxbridge-metrics")
	viper.SetDefault("influx.bucket", "frame_performance")

	viper.SetDefault("api.serverUrl", "")
	viper.SetDefault("api.apiKey", "")
	viper.SetDefault("api.tag", "")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "gfxbridge")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// SetDefaults registers the default values without reading a file. The
// driver uses it when no config file exists.
func SetDefaults() {
	setDefaults()
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// BindFlags makes set command-line flags override file values. Flag names
// are config keys.
func BindFlags(flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		err = viper.BindPFlag(f.Name, f)
	})
	if err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
		WebSocket: WebSocketConfig{
			URL:          viper.GetString("storage.websocket.url"),
			Secret:       viper.GetString("storage.websocket.secret"),
			WriteTimeout: viper.GetDuration("storage.websocket.writeTimeout"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetGfxConfig returns the graphics update configuration.
func GetGfxConfig() GfxConfig {
	return GfxConfig{
		BlinkPeriod:         viper.GetDuration("gfx.blinkPeriod"),
		BeaconSpeed:         float32(viper.GetFloat64("gfx.beaconSpeed")),
		CrankBurstThreshold: float32(viper.GetFloat64("gfx.crankBurstThreshold")),
		ParticlePoolSize:    viper.GetInt("gfx.particlePoolSize"),
		NetLabelHeight:      float32(viper.GetFloat64("gfx.netLabelHeight")),
	}
}

// GetDriverConfig returns the driver loop configuration.
func GetDriverConfig() DriverConfig {
	return DriverConfig{
		SimRateHz:        viper.GetInt("sim.rateHz"),
		RenderFPS:        viper.GetInt("render.fps"),
		Workers:          viper.GetInt("workers.count"),
		Actors:           viper.GetInt("actors"),
		Duration:         viper.GetDuration("duration"),
		RecorderEnabled:  viper.GetBool("recorder.enabled"),
		RecorderInterval: viper.GetDuration("recorder.interval"),
		StatusInterval:   viper.GetDuration("monitor.interval"),
	}
}

// GetInfluxConfig returns the InfluxDB configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetGraylogConfig returns the GELF output configuration.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetAPIConfig returns the recording server configuration.
func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL: viper.GetString("api.serverUrl"),
		APIKey:    viper.GetString("api.apiKey"),
		Tag:       viper.GetString("api.tag"),
	}
}
