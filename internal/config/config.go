// Package config loads the Grain server configuration from grain.yaml,
// GRAIN_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/psantana5/grain/pkg/cleanup"
	"github.com/psantana5/grain/pkg/logging"
	"github.com/psantana5/grain/pkg/ratelimit"
	"github.com/psantana5/grain/pkg/store"
	"github.com/psantana5/grain/pkg/tracing"
)

// EnvPrefix prefixes every environment override, e.g. GRAIN_DATABASE_DSN
const EnvPrefix = "GRAIN"

// ErrInvalid is returned by Validate
var ErrInvalid = errors.New("invalid configuration")

// Config is the server configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Cleanup   CleanupConfig   `mapstructure:"cleanup"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TLS             TLSConfig     `mapstructure:"tls"`

	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For is believed
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type TLSConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	CertFile     string   `mapstructure:"cert_file"`
	KeyFile      string   `mapstructure:"key_file"`
	AutoGenerate bool     `mapstructure:"auto_generate"`
	Hosts        []string `mapstructure:"hosts"`
}

type DatabaseConfig struct {
	Type            string        `mapstructure:"type"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	ConnectAttempts uint          `mapstructure:"connect_attempts"`
	ConnectDelay    time.Duration `mapstructure:"connect_delay"`
}

type AuthConfig struct {
	BcryptCost int           `mapstructure:"bcrypt_cost"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// RateLimitConfig limits requests per client IP. Login attempts have their own, stricter bucket.
type RateLimitConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	RPS        float64 `mapstructure:"rps"`
	Burst      int     `mapstructure:"burst"`
	LoginRPS   float64 `mapstructure:"login_rps"`
	LoginBurst int     `mapstructure:"login_burst"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	Insecure     bool    `mapstructure:"insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	Environment  string  `mapstructure:"environment"`
}

type CleanupConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	TrashRetentionDays int           `mapstructure:"trash_retention_days"`
	Interval           time.Duration `mapstructure:"interval"`
	VacuumInterval     time.Duration `mapstructure:"vacuum_interval"`
	InitialDelay       time.Duration `mapstructure:"initial_delay"`
}

// SetDefaults registers every key with its default value
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.metrics_addr", ":9090")
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.tls.enabled", false)
	v.SetDefault("server.tls.cert_file", "certs/grain.crt")
	v.SetDefault("server.tls.key_file", "certs/grain.key")
	v.SetDefault("server.tls.auto_generate", true)
	v.SetDefault("server.tls.hosts", []string{})
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "grain.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.conn_max_idle_time", time.Minute)
	v.SetDefault("database.connect_attempts", 5)
	v.SetDefault("database.connect_delay", 2*time.Second)

	v.SetDefault("auth.bcrypt_cost", bcrypt.DefaultCost)
	v.SetDefault("auth.session_ttl", 7*24*time.Hour)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.rps", 20.0)
	v.SetDefault("rate_limit.burst", 40)
	v.SetDefault("rate_limit.login_rps", 0.2)
	v.SetDefault("rate_limit.login_burst", 5)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.otlp_endpoint", "localhost:4318")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("tracing.environment", "development")

	def := cleanup.DefaultConfig()
	v.SetDefault("cleanup.enabled", def.Enabled)
	v.SetDefault("cleanup.trash_retention_days", def.TrashRetentionDays)
	v.SetDefault("cleanup.interval", def.CleanupInterval)
	v.SetDefault("cleanup.vacuum_interval", def.VacuumInterval)
	v.SetDefault("cleanup.initial_delay", def.InitialDelay)
}

// New returns a viper instance with defaults, search paths and env bindings.
// An explicit file replaces the search for grain.yaml.
func New(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("grain")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.grain")
		v.AddConfigPath("/etc/grain")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags lets command line flags override file and environment values.
// Flags are matched to keys through the given mapping, flag name to key.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, mapping map[string]string) error {
	for name, key := range mapping {
		f := flags.Lookup(name)
		if f == nil {
			return fmt.Errorf("unknown flag %q", name)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %q: %w", name, err)
		}
	}
	return nil
}

// Load reads the config file if there is one and decodes the result.
// A missing grain.yaml is not an error; a missing explicit file is.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "memory", "sqlite", "sqlite-pure", "postgres", "postgresql":
	default:
		return fmt.Errorf("%w: unsupported database type %q", ErrInvalid, c.Database.Type)
	}
	if c.Database.Type != "memory" && c.Database.DSN == "" {
		return fmt.Errorf("%w: database.dsn is required", ErrInvalid)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is required", ErrInvalid)
	}
	if _, err := ratelimit.NewClientIP(c.Server.TrustedProxies); err != nil {
		return fmt.Errorf("%w: server.trusted_proxies: %v", ErrInvalid, err)
	}
	if c.Server.TLS.Enabled && (c.Server.TLS.CertFile == "" || c.Server.TLS.KeyFile == "") {
		return fmt.Errorf("%w: server.tls needs cert_file and key_file", ErrInvalid)
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("%w: auth.bcrypt_cost must be between %d and %d", ErrInvalid, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("%w: auth.session_ttl must be positive", ErrInvalid)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("%w: rate_limit.rps and rate_limit.burst must be positive", ErrInvalid)
	}
	if c.RateLimit.LoginRPS <= 0 || c.RateLimit.LoginBurst <= 0 {
		return fmt.Errorf("%w: rate_limit.login_rps and rate_limit.login_burst must be positive", ErrInvalid)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: logging.format must be json or console", ErrInvalid)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("%w: tracing.sample_ratio must be within [0, 1]", ErrInvalid)
	}
	if c.Cleanup.TrashRetentionDays < 0 {
		return fmt.Errorf("%w: cleanup.trash_retention_days must not be negative", ErrInvalid)
	}
	if c.Cleanup.Enabled && (c.Cleanup.Interval <= 0 || c.Cleanup.VacuumInterval <= 0) {
		return fmt.Errorf("%w: cleanup intervals must be positive", ErrInvalid)
	}
	return nil
}

// ClientIP resolves client addresses through the configured trusted proxies
func (c *Config) ClientIP() (*ratelimit.ClientIP, error) {
	return ratelimit.NewClientIP(c.Server.TrustedProxies)
}

// StoreConfig converts the database section for store.NewStore
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Type:            c.Database.Type,
		DSN:             c.Database.DSN,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
		ConnMaxIdleTime: c.Database.ConnMaxIdleTime,
		ConnectAttempts: c.Database.ConnectAttempts,
		ConnectDelay:    c.Database.ConnectDelay,
	}
}

func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{Level: c.Logging.Level, Format: c.Logging.Format, File: c.Logging.File, Component: "grain"}
}

func (c *Config) TracingConfig(version string) tracing.Config {
	return tracing.Config{
		ServiceName:    "grain",
		ServiceVersion: version,
		Environment:    c.Tracing.Environment,
		OTLPEndpoint:   c.Tracing.OTLPEndpoint,
		Insecure:       c.Tracing.Insecure,
		SampleRatio:    c.Tracing.SampleRatio,
		Enabled:        c.Tracing.Enabled,
	}
}

func (c *Config) CleanupConfig() cleanup.Config {
	return cleanup.Config{
		Enabled:            c.Cleanup.Enabled,
		TrashRetentionDays: c.Cleanup.TrashRetentionDays,
		CleanupInterval:    c.Cleanup.Interval,
		VacuumInterval:     c.Cleanup.VacuumInterval,
		InitialDelay:       c.Cleanup.InitialDelay,
	}
}

// Watch reloads the config file on change and applies the new log level.
// Other settings need a restart.
func Watch(v *viper.Viper, level zap.AtomicLevel, log *zap.Logger) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		applyLogLevel(v, level, log, e)
	})
	v.WatchConfig()
}

func applyLogLevel(v *viper.Viper, level zap.AtomicLevel, log *zap.Logger, e fsnotify.Event) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}
	next := logging.ParseLevel(v.GetString("logging.level"))
	if next == level.Level() {
		return
	}
	log.Info("Log level changed",
		zap.String("file", e.Name),
		zap.Stringer("from", level.Level()),
		zap.Stringer("to", next))
	level.SetLevel(next)
}
