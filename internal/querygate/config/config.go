package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type ServerCfg struct {
	Address     string   `mapstructure:"address"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type DatabaseCfg struct {
	Driver       string `mapstructure:"driver"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// RateLimitCfg holds per-minute quotas. RequestsPerMinute is the general
// quota applied to every endpoint without a dedicated one.
type RateLimitCfg struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Query             int `mapstructure:"query"`
	Browse            int `mapstructure:"browse"`
	Schema            int `mapstructure:"schema"`
}

type JournalCfg struct {
	Capacity int `mapstructure:"capacity"`
}

// AuditCfg sizes the audit trail. When CheckpointDir and SigningKey are
// both set, serve writes a signed chain-head checkpoint on shutdown.
// SensitivityDict names a YAML dictionary used to tag query executions with
// sensitivity categories and a risk level; empty disables tagging.
type AuditCfg struct {
	Capacity        int    `mapstructure:"capacity"`
	CheckpointDir   string `mapstructure:"checkpoint_dir"`
	SigningKey      string `mapstructure:"signing_key"`
	SensitivityDict string `mapstructure:"sensitivity_dict"`
}

type GatewayCfg struct {
	QueueSize int `mapstructure:"queue_size"`
}

type LoggingCfg struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type Config struct {
	Version   string       `mapstructure:"version"`
	Server    ServerCfg    `mapstructure:"server"`
	Database  DatabaseCfg  `mapstructure:"database"`
	RateLimit RateLimitCfg `mapstructure:"rate_limit"`
	History   JournalCfg   `mapstructure:"history"`
	Audit     AuditCfg     `mapstructure:"audit"`
	Gateway   GatewayCfg   `mapstructure:"gateway"`
	Logging   LoggingCfg   `mapstructure:"logging"`
}

var cfg *Config

// EnvPrefix is the prefix for environment overrides, e.g.
// QUERYGATE_DATABASE_HOST overrides database.host.
const EnvPrefix = "QUERYGATE"

// Load populates global config from a viper instance
func Load(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// set defaults
	v.SetDefault("version", "0.1")
	v.SetDefault("server.address", ":3000")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("rate_limit.requests_per_minute", 100)
	v.SetDefault("rate_limit.query", 20)
	v.SetDefault("rate_limit.browse", 100)
	v.SetDefault("rate_limit.schema", 10)
	v.SetDefault("history.capacity", 500)
	v.SetDefault("audit.capacity", 1000)
	v.SetDefault("audit.checkpoint_dir", "")
	v.SetDefault("audit.signing_key", "")
	v.SetDefault("audit.sensitivity_dict", "")
	v.SetDefault("gateway.queue_size", 256)
	v.SetDefault("logging.level", "info")

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = &c
	return nil
}

// Validate rejects values the gateway cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite3":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if c.History.Capacity <= 0 {
		return fmt.Errorf("history.capacity must be positive, got %d", c.History.Capacity)
	}
	if c.Audit.Capacity <= 0 {
		return fmt.Errorf("audit.capacity must be positive, got %d", c.Audit.Capacity)
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate_limit.requests_per_minute must be positive, got %d", c.RateLimit.RequestsPerMinute)
	}
	return nil
}

func Get() *Config {
	if cfg == nil {
		cfg = &Config{}
	}
	return cfg
}
