// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sosodev/duration"
	"github.com/spf13/viper"
)

// Database drivers accepted by DATABASE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	// EnvProduction is the APP_ENV value that forbids the stock admin password.
	EnvProduction = "production"
	// StockUserPassword is the development default for DEFAULT_USER_PASSWORD.
	StockUserPassword = "abc12345"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the REST API listens on (e.g. :4000).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address of the ops gRPC server (health service). Empty disables it.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseDriver selects the storage backend: "postgres" or "sqlite".
	DatabaseDriver string `mapstructure:"DATABASE_DRIVER"`
	// DatabaseURL is the Postgres DSN; required when DatabaseDriver is postgres.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// SQLitePath is the database file used when DatabaseDriver is sqlite.
	SQLitePath string `mapstructure:"SQLITE_PATH"`
	// JWTSecret is the shared HMAC secret for signing access and refresh tokens.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// BcryptCost is the bcrypt cost factor (4–31); default 10.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// CPULoadUpdateIntervalMS is how often per-core CPU load is recomputed.
	CPULoadUpdateIntervalMS int `mapstructure:"CPU_LOAD_UPDATE_INTERVAL_MS"`
	// StatsCaptureSeconds is the comma-separated list of seconds within each minute at which a sample is captured.
	StatsCaptureSeconds string `mapstructure:"STATS_CAPTURE_SECONDS"`
	// StatsCleanupHour is the hour of day (0-23) for the daily retention cleanup.
	StatsCleanupHour int `mapstructure:"STATS_CLEANUP_HOUR"`
	// SystemStatsArchiveDepth is the ISO-8601 retention window for samples (e.g. P30D).
	SystemStatsArchiveDepth string `mapstructure:"SYSTEM_STATS_ARCHIVE_DEPTH"`
	// StatsReadLimit caps the number of samples returned by one range read.
	StatsReadLimit int `mapstructure:"STATS_READ_LIMIT"`
	// ThermalSensorPath is the sysfs file holding the temperature in millidegrees.
	ThermalSensorPath string `mapstructure:"THERMAL_SENSOR_PATH"`

	// DefaultUserLogin and DefaultUserPassword seed the admin account when the users table is empty.
	DefaultUserLogin    string `mapstructure:"DEFAULT_USER_LOGIN"`
	DefaultUserPassword string `mapstructure:"DEFAULT_USER_PASSWORD"`

	// OTLPEndpoint enables OTLP export of traces, metrics and logs when set.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext OTLP connection.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// PprofEnabled mounts the gin pprof handlers under /debug/pprof.
	PprofEnabled bool `mapstructure:"PPROF_ENABLED"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogJSON switches the log handler to JSON output.
	LogJSON bool `mapstructure:"LOG_JSON"`
	// Env is the application environment (e.g. "development", "production"). In production gin runs in release mode.
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":4000")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("DATABASE_DRIVER", DriverSQLite)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SQLITE_PATH", "data/o-monitor.db")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("CPU_LOAD_UPDATE_INTERVAL_MS", 1000)
	v.SetDefault("STATS_CAPTURE_SECONDS", "0,10,20,30,40,50")
	v.SetDefault("STATS_CLEANUP_HOUR", 3)
	v.SetDefault("SYSTEM_STATS_ARCHIVE_DEPTH", "P30D")
	v.SetDefault("STATS_READ_LIMIT", 5000)
	v.SetDefault("THERMAL_SENSOR_PATH", "/sys/devices/virtual/thermal/thermal_zone0/temp")
	v.SetDefault("DEFAULT_USER_LOGIN", "admin")
	v.SetDefault("DEFAULT_USER_PASSWORD", StockUserPassword)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("PPROF_ENABLED", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_JSON", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("config: JWT_SECRET must be set")
	}
	switch c.DatabaseDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL must be set when DATABASE_DRIVER=postgres")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("config: SQLITE_PATH must be set when DATABASE_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("config: DATABASE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.DatabaseDriver)
	}

	if c.Env == EnvProduction && c.DefaultUserPassword == StockUserPassword {
		return errors.New("config: DEFAULT_USER_PASSWORD must be changed when APP_ENV=production")
	}

	if c.BcryptCost == 0 {
		c.BcryptCost = 10
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if c.CPULoadUpdateIntervalMS <= 0 {
		return errors.New("config: CPU_LOAD_UPDATE_INTERVAL_MS must be positive")
	}
	if c.StatsCleanupHour < 0 || c.StatsCleanupHour > 23 {
		return errors.New("config: STATS_CLEANUP_HOUR must be between 0 and 23")
	}
	if c.StatsReadLimit <= 0 {
		return errors.New("config: STATS_READ_LIMIT must be positive")
	}
	if _, err := c.CaptureSpec(); err != nil {
		return err
	}
	if _, err := c.Retention(); err != nil {
		return err
	}
	return nil
}

// CPULoadUpdateInterval returns CPULoadUpdateIntervalMS as a time.Duration. Returns 1s if unset.
func (c *Config) CPULoadUpdateInterval() time.Duration {
	if c.CPULoadUpdateIntervalMS <= 0 {
		return time.Second
	}
	return time.Duration(c.CPULoadUpdateIntervalMS) * time.Millisecond
}

// Retention parses SystemStatsArchiveDepth as an ISO-8601 duration.
// Years and months are converted with the fixed lengths used by the duration library.
func (c *Config) Retention() (time.Duration, error) {
	d, err := duration.Parse(strings.TrimSpace(c.SystemStatsArchiveDepth))
	if err != nil {
		return 0, fmt.Errorf("config: SYSTEM_STATS_ARCHIVE_DEPTH %q: %w", c.SystemStatsArchiveDepth, err)
	}
	td := d.ToTimeDuration()
	if td <= 0 {
		return 0, fmt.Errorf("config: SYSTEM_STATS_ARCHIVE_DEPTH %q must be positive", c.SystemStatsArchiveDepth)
	}
	return td, nil
}

// CaptureSpec returns the six-field cron spec (seconds first) that fires at each configured second of every minute.
func (c *Config) CaptureSpec() (string, error) {
	parts := strings.Split(c.StatsCaptureSeconds, ",")
	secs := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n > 59 {
			return "", fmt.Errorf("config: STATS_CAPTURE_SECONDS has invalid second %q", s)
		}
		secs = append(secs, strconv.Itoa(n))
	}
	if len(secs) == 0 {
		return "", errors.New("config: STATS_CAPTURE_SECONDS must list at least one second")
	}
	return strings.Join(secs, ",") + " * * * * *", nil
}

// CleanupSpec returns the six-field cron spec for the daily retention cleanup.
func (c *Config) CleanupSpec() string {
	return fmt.Sprintf("0 0 %d * * *", c.StatsCleanupHour)
}
