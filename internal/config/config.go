// Package config loads the service configuration from defaults, an optional
// YAML file, .env files and CATALOG_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "CATALOG"

type Config struct {
	HTTPAddr        string            `mapstructure:"http_addr"`
	GRPCAddr        string            `mapstructure:"grpc_addr"`
	ShutdownTimeout time.Duration     `mapstructure:"shutdown_timeout"`
	LogLevel        string            `mapstructure:"log_level"`
	Store           StoreConfig       `mapstructure:"store"`
	Cache           CacheConfig       `mapstructure:"cache"`
	Redis           RedisConfig       `mapstructure:"redis"`
	MusicBrainz     MusicBrainzConfig `mapstructure:"musicbrainz"`
	Tracing         TracingConfig     `mapstructure:"tracing"`
}

type StoreConfig struct {
	Driver          string        `mapstructure:"driver"` // "mysql" or "sqlite"
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InitSchema      bool          `mapstructure:"init_schema"`
}

type CacheConfig struct {
	Driver          string        `mapstructure:"driver"` // "redis" or "memory"
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	PoolSize int    `mapstructure:"pool_size"`
}

type MusicBrainzConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Exporter     string  `mapstructure:"exporter"` // "stdout", "otlp" or "none"
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	ServiceName  string  `mapstructure:"service_name"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		HTTPAddr:        ":8080",
		GRPCAddr:        ":50051",
		ShutdownTimeout: 5 * time.Second,
		LogLevel:        "info",
		Store: StoreConfig{
			Driver:          "mysql",
			DSN:             "root:root@tcp(localhost:3306)/catalog?parseTime=true",
			MaxOpenConns:    50,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Cache: CacheConfig{
			Driver:          "redis",
			TTL:             60 * time.Second,
			CleanupInterval: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 100,
		},
		MusicBrainz: MusicBrainzConfig{
			BaseURL:   "https://musicbrainz.org",
			UserAgent: "record-catalog/1.0 ( ops@record-catalog.local )",
			Timeout:   10 * time.Second,
		},
		Tracing: TracingConfig{
			Exporter:    "stdout",
			SampleRate:  1.0,
			ServiceName: "record-catalog",
		},
	}
}

// Load builds the configuration. Precedence, highest first: environment
// variables, .env files, the config file at path (optional), defaults.
func Load(path string) (Config, error) {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("http_addr", d.HTTPAddr)
	v.SetDefault("grpc_addr", d.GRPCAddr)
	v.SetDefault("shutdown_timeout", d.ShutdownTimeout)
	v.SetDefault("log_level", d.LogLevel)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("store.max_open_conns", d.Store.MaxOpenConns)
	v.SetDefault("store.max_idle_conns", d.Store.MaxIdleConns)
	v.SetDefault("store.conn_max_lifetime", d.Store.ConnMaxLifetime)
	v.SetDefault("store.init_schema", d.Store.InitSchema)

	v.SetDefault("cache.driver", d.Cache.Driver)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.cleanup_interval", d.Cache.CleanupInterval)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)

	v.SetDefault("musicbrainz.base_url", d.MusicBrainz.BaseURL)
	v.SetDefault("musicbrainz.user_agent", d.MusicBrainz.UserAgent)
	v.SetDefault("musicbrainz.timeout", d.MusicBrainz.Timeout)

	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
}

func (c Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("store.driver: unsupported value %q", c.Store.Driver))
	}
	switch c.Cache.Driver {
	case "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("cache.driver: unsupported value %q", c.Cache.Driver))
	}
	switch c.Tracing.Exporter {
	case "stdout", "otlp", "none":
	default:
		errs = append(errs, fmt.Errorf("tracing.exporter: unsupported value %q", c.Tracing.Exporter))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_rate: %v is outside [0, 1]", c.Tracing.SampleRate))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}
	return errors.Join(errs...)
}
