// Package config defines the top-level configuration for the prediction
// market daemon and provides validation helpers.
package config

import (
	"fmt"
	"math"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by PREDICTD_* environment
// variables.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Market   MarketConfig   `toml:"market"`
	LogLevel string         `toml:"log_level"`
}

// ServerConfig holds the HTTP/WebSocket server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"` // empty disables authentication
}

// StorageConfig selects the durable backend.
type StorageConfig struct {
	// Backend is "file" (JSON snapshots) or "postgres".
	Backend string `toml:"backend"`
	// DataDir is the snapshot directory for the file backend.
	DataDir string `toml:"data_dir"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the price cache and the
// signal bus. Disabled by default; the engine runs fine without it.
type RedisConfig struct {
	Enabled  bool   `toml:"enabled"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	PoolSize int    `toml:"pool_size"`
}

// S3Config holds S3-compatible object storage parameters for the trade
// archiver. Disabled by default.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// MarketConfig holds market-maker defaults.
type MarketConfig struct {
	// DefaultLiquidity is the b parameter used when a market is created
	// without an explicit one.
	DefaultLiquidity float64 `toml:"default_liquidity"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"*"},
		},
		Storage: StorageConfig{
			Backend: "file",
			DataDir: "data",
		},
		Postgres: PostgresConfig{
			Port:    5432,
			SSLMode: "disable",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Market: MarketConfig{
			DefaultLiquidity: 100,
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for inconsistencies before anything is
// wired up.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}

	switch strings.ToLower(c.Storage.Backend) {
	case "file":
		if strings.TrimSpace(c.Storage.DataDir) == "" {
			return fmt.Errorf("config: storage.data_dir must be set for the file backend")
		}
	case "postgres":
		if c.Postgres.DSN == "" && (c.Postgres.Host == "" || c.Postgres.Database == "" || c.Postgres.User == "") {
			return fmt.Errorf("config: postgres backend needs a dsn or host/database/user")
		}
	default:
		return fmt.Errorf("config: unsupported storage backend %q", c.Storage.Backend)
	}

	if c.Redis.Enabled && strings.TrimSpace(c.Redis.Addr) == "" {
		return fmt.Errorf("config: redis.addr must be set when redis is enabled")
	}
	if c.S3.Enabled && strings.TrimSpace(c.S3.Bucket) == "" {
		return fmt.Errorf("config: s3.bucket must be set when s3 is enabled")
	}

	if c.Market.DefaultLiquidity <= 0 || math.IsNaN(c.Market.DefaultLiquidity) || math.IsInf(c.Market.DefaultLiquidity, 0) {
		return fmt.Errorf("config: market.default_liquidity must be positive and finite")
	}
	return nil
}
