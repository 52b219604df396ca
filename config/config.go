package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the application-wide configuration.
type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"db"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Auth           AuthConfig           `mapstructure:"auth"`
	Log            LogConfig            `mapstructure:"log"`
	Attendance     AttendanceConfig     `mapstructure:"attendance"`
	Reconciliation ReconciliationConfig `mapstructure:"reconciliation"`
	Job            JobConfig            `mapstructure:"job"`
}

// ServerConfig HTTP server settings
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"`
	CORS         CORSConfig `mapstructure:"cors"`
}

// CORSConfig cross-origin settings
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL settings
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
}

// DSN builds the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis settings
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig bearer token settings. Tokens are issued elsewhere; this
// service only verifies them.
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	Issuer         string        `mapstructure:"issuer"`
}

// LogConfig logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AttendanceConfig eligibility and clock settings.
type AttendanceConfig struct {
	Timezone           string `mapstructure:"timezone"`
	StandingWindowDays int    `mapstructure:"standing_window_days"`
	// Fail-open flags decide what an evaluator reports when its lookup fails.
	// Both default to false (deny access on infrastructure errors).
	ComplianceFailOpen bool `mapstructure:"compliance_fail_open"`
	StandingFailOpen   bool `mapstructure:"standing_fail_open"`
	// Max time-in/time-out submissions per student per minute.
	ClockRateLimit int `mapstructure:"clock_rate_limit"`
}

// Location resolves the configured timezone.
func (c *AttendanceConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// ReconciliationConfig forgot-time-out workflow settings.
type ReconciliationConfig struct {
	DefaultPageSize int           `mapstructure:"default_page_size"`
	MaxPageSize     int           `mapstructure:"max_page_size"`
	BulkMaxItems    int           `mapstructure:"bulk_max_items"`
	DecisionTimeout time.Duration `mapstructure:"decision_timeout"`
}

// JobConfig background job settings
type JobConfig struct {
	HoursResyncEnabled bool   `mapstructure:"hours_resync_enabled"`
	HoursResyncCron    string `mapstructure:"hours_resync_cron"`
}

// Load reads configuration from file and environment.
// Precedence: environment > config file > defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── defaults ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "ojt_attendance")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Manila")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.issuer", "ojt-attendance")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("attendance.timezone", "Asia/Manila")
	v.SetDefault("attendance.standing_window_days", 30)
	v.SetDefault("attendance.compliance_fail_open", false)
	v.SetDefault("attendance.standing_fail_open", false)
	v.SetDefault("attendance.clock_rate_limit", 10)

	v.SetDefault("reconciliation.default_page_size", 20)
	v.SetDefault("reconciliation.max_page_size", 100)
	v.SetDefault("reconciliation.bulk_max_items", 100)
	v.SetDefault("reconciliation.decision_timeout", "10s")

	v.SetDefault("job.hours_resync_enabled", true)
	v.SetDefault("job.hours_resync_cron", "30 2 * * *")

	// ── config file ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── environment ──
	v.SetEnvPrefix("OJT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// no config file: defaults and environment only
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the settings the service cannot run without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: auth.jwt_secret must not be empty")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("config: auth.jwt_secret must be at least 16 characters")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port must be between 1 and 65535")
	}
	if _, err := c.Attendance.Location(); err != nil {
		return fmt.Errorf("config: attendance.timezone %q: %w", c.Attendance.Timezone, err)
	}
	if c.Attendance.StandingWindowDays <= 0 {
		return fmt.Errorf("config: attendance.standing_window_days must be positive")
	}
	if c.Reconciliation.MaxPageSize <= 0 || c.Reconciliation.DefaultPageSize <= 0 ||
		c.Reconciliation.DefaultPageSize > c.Reconciliation.MaxPageSize {
		return fmt.Errorf("config: reconciliation page sizes are inconsistent")
	}
	if c.Reconciliation.BulkMaxItems <= 0 {
		return fmt.Errorf("config: reconciliation.bulk_max_items must be positive")
	}
	return nil
}
