package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Backend names accepted by log_store.backend and cache.backend.
const (
	BackendMemory     = "memory"
	BackendFilesystem = "filesystem"
	BackendPostgres   = "postgres"
	BackendGCS        = "gcs"
	BackendRedis      = "redis"
	BackendBadger     = "badger"
)

// Config represents the top-level application config.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
	Auth     AuthConfig     `koanf:"auth"`
	CORS     CORSConfig     `koanf:"cors"`
	LogStore LogStoreConfig `koanf:"log_store"`
	Database DatabaseConfig `koanf:"database"`
	GCS      GCSConfig      `koanf:"gcs"`
	Cache    CacheConfig    `koanf:"cache"`
	Redis    RedisConfig    `koanf:"redis"`
	Badger   BadgerConfig   `koanf:"badger"`
	MQTT     MQTTConfig     `koanf:"mqtt"`
}

type ServerConfig struct {
	Port            int    `koanf:"port"`
	Host            string `koanf:"host"`
	MaxBodySizeMB   int    `koanf:"max_body_size_mb"`
	Mode            string `koanf:"mode"`             // debug | release
	ShutdownTimeout string `koanf:"shutdown_timeout"` // parsed and validated on startup
}

type LogConfig struct {
	Level string `koanf:"level"` // debug | info | warn | error
}

// AuthConfig enables HTTP basic auth when Username is set.
type AuthConfig struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

func (c AuthConfig) Enabled() bool { return c.Username != "" }

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowCredentials bool     `koanf:"allow_credentials"`
}

// LogStoreConfig selects where log shards live.
type LogStoreConfig struct {
	Backend string `koanf:"backend"` // filesystem | postgres | gcs | memory
	Path    string `koanf:"path"`    // filesystem root
}

type DatabaseConfig struct {
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

type GCSConfig struct {
	Bucket   string `koanf:"bucket"`
	Endpoint string `koanf:"endpoint"` // emulator URL; empty uses Google
}

// CacheConfig selects where latest-location tiers live.
type CacheConfig struct {
	Backend string `koanf:"backend"` // redis | badger | postgres | memory
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type BadgerConfig struct {
	Path string `koanf:"path"` // empty runs in memory
}

type MQTTConfig struct {
	Enabled        bool   `koanf:"enabled"`
	BrokerURL      string `koanf:"broker_url"`
	ClientID       string `koanf:"client_id"`
	Username       string `koanf:"username"`
	Password       string `koanf:"password"`
	Topic          string `koanf:"topic"`
	QoS            int    `koanf:"qos"`
	HandlerTimeout string `koanf:"handler_timeout"`
}

// UsesPostgres reports whether any backend needs the database section.
func (c *Config) UsesPostgres() bool {
	return c.LogStore.Backend == BackendPostgres || c.Cache.Backend == BackendPostgres
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return fmt.Errorf("server.max_body_size_mb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}
	if _, err := positiveDuration(c.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid server.shutdown_timeout: %w", err)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q (must be debug, info, warn or error)", c.Log.Level)
	}

	if c.Auth.Enabled() && c.Auth.Password == "" {
		return fmt.Errorf("auth.password is required when auth.username is set")
	}

	switch c.LogStore.Backend {
	case BackendMemory, BackendPostgres:
	case BackendFilesystem:
		if strings.TrimSpace(c.LogStore.Path) == "" {
			return fmt.Errorf("log_store.path is required for the filesystem backend")
		}
	case BackendGCS:
		if strings.TrimSpace(c.GCS.Bucket) == "" {
			return fmt.Errorf("gcs.bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("unsupported log_store.backend %q", c.LogStore.Backend)
	}

	switch c.Cache.Backend {
	case BackendMemory, BackendPostgres, BackendBadger:
	case BackendRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return fmt.Errorf("redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unsupported cache.backend %q", c.Cache.Backend)
	}

	if c.UsesPostgres() {
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("database.dsn is required")
		}
		if c.Database.MaxOpenConns <= 0 {
			return fmt.Errorf("database.max_open_conns must be > 0")
		}
		if c.Database.MaxIdleConns <= 0 {
			return fmt.Errorf("database.max_idle_conns must be > 0")
		}
	}

	if c.MQTT.Enabled {
		if strings.TrimSpace(c.MQTT.BrokerURL) == "" {
			return fmt.Errorf("mqtt.broker_url is required when mqtt is enabled")
		}
		if strings.TrimSpace(c.MQTT.Topic) == "" {
			return fmt.Errorf("mqtt.topic is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			return fmt.Errorf("invalid mqtt.qos %d (must be 0, 1 or 2)", c.MQTT.QoS)
		}
		if _, err := positiveDuration(c.MQTT.HandlerTimeout); err != nil {
			return fmt.Errorf("invalid mqtt.handler_timeout: %w", err)
		}
	}

	return nil
}

func (c ServerConfig) ShutdownTimeoutDuration() time.Duration {
	d, _ := positiveDuration(c.ShutdownTimeout)
	return d
}

func (c MQTTConfig) HandlerTimeoutDuration() time.Duration {
	d, _ := positiveDuration(c.HandlerTimeout)
	return d
}

func positiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be > 0", s)
	}
	return d, nil
}

// Load parses config from defaults, then file, then env, and validates it.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":             8080,
		"server.host":             "0.0.0.0",
		"server.max_body_size_mb": 1,
		"server.mode":             "release",
		"server.shutdown_timeout": "5s",
		"log.level":               "info",
		"cors.allowed_origins":    []string{"http://localhost:5173"},
		"cors.allow_credentials":  true,
		"log_store.backend":       BackendFilesystem,
		"log_store.path":          "./data",
		"database.dsn":            "",
		"database.max_open_conns": 25,
		"database.max_idle_conns": 25,
		"database.auto_migrate":   true,
		"cache.backend":           BackendBadger,
		"redis.addr":              "localhost:6379",
		"redis.db":                0,
		"badger.path":             "./data/cache",
		"mqtt.enabled":            false,
		"mqtt.broker_url":         "tcp://localhost:1883",
		"mqtt.topic":              "owntracks/+/+",
		"mqtt.qos":                1,
		"mqtt.handler_timeout":    "10s",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("WAYPOINT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "WAYPOINT_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
