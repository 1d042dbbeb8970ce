// Package config carga la configuración del servidor desde YAML con
// overrides por variables de entorno AGENTGATE_*.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Cache   CacheConfig   `yaml:"cache"`
	JWT     JWTConfig     `yaml:"jwt"`
	Authz   AuthzConfig   `yaml:"authz"`
	Rate    RateConfig    `yaml:"rate"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// PublicURL es la URL base externa, usada en el documento de discovery.
	PublicURL string `yaml:"public_url"`
}

type StorageConfig struct {
	// Driver: "memory" o "postgres".
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type CacheConfig struct {
	// Kind: "memory" o "redis".
	Kind      string `yaml:"kind"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
	Prefix    string `yaml:"prefix"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	Issuer     string `yaml:"issuer"`
	AccessTTL  string `yaml:"access_ttl"`
	RefreshTTL string `yaml:"refresh_ttl"`
}

type AuthzConfig struct {
	RequestTTL    string `yaml:"request_ttl"`
	DefaultScope  string `yaml:"default_scope"`
	SweepInterval string `yaml:"sweep_interval"`
}

type RateConfig struct {
	Enabled bool   `yaml:"enabled"`
	Max     int64  `yaml:"max"`
	Window  string `yaml:"window"`
}

type LogConfig struct {
	Env   string `yaml:"env"`
	Level string `yaml:"level"`
}

// Load lee el archivo YAML (si existe) y aplica overrides de entorno.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("config: jwt.secret is required (AGENTGATE_JWT_SECRET)")
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	envStr(&c.Server.Addr, "AGENTGATE_ADDR")
	envStr(&c.Server.PublicURL, "AGENTGATE_PUBLIC_URL")
	envStr(&c.Storage.Driver, "AGENTGATE_STORAGE_DRIVER")
	envStr(&c.Storage.DSN, "AGENTGATE_STORAGE_DSN")
	envStr(&c.Cache.Kind, "AGENTGATE_CACHE_KIND")
	envStr(&c.Cache.RedisAddr, "AGENTGATE_REDIS_ADDR")
	envInt(&c.Cache.RedisDB, "AGENTGATE_REDIS_DB")
	envStr(&c.Cache.Prefix, "AGENTGATE_CACHE_PREFIX")
	envStr(&c.JWT.Secret, "AGENTGATE_JWT_SECRET")
	envStr(&c.JWT.Issuer, "AGENTGATE_JWT_ISSUER")
	envStr(&c.JWT.AccessTTL, "AGENTGATE_JWT_ACCESS_TTL")
	envStr(&c.JWT.RefreshTTL, "AGENTGATE_JWT_REFRESH_TTL")
	envStr(&c.Authz.RequestTTL, "AGENTGATE_AUTHZ_REQUEST_TTL")
	envStr(&c.Authz.DefaultScope, "AGENTGATE_AUTHZ_DEFAULT_SCOPE")
	envStr(&c.Authz.SweepInterval, "AGENTGATE_AUTHZ_SWEEP_INTERVAL")
	envBool(&c.Rate.Enabled, "AGENTGATE_RATE_ENABLED")
	envInt64(&c.Rate.Max, "AGENTGATE_RATE_MAX")
	envStr(&c.Rate.Window, "AGENTGATE_RATE_WINDOW")
	envStr(&c.Log.Env, "AGENTGATE_LOG_ENV")
	envStr(&c.Log.Level, "AGENTGATE_LOG_LEVEL")
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.PublicURL == "" {
		c.Server.PublicURL = "http://localhost:8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = "agentgate"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "agentgate"
	}
	if c.Rate.Max == 0 {
		c.Rate.Max = 60
	}
}

// AccessTTL retorna el TTL del access token (default 1h).
func (c *Config) AccessTTL() time.Duration {
	return parseDur(c.JWT.AccessTTL, time.Hour)
}

// RefreshTTL retorna el TTL del refresh token (default 30 días).
func (c *Config) RefreshTTL() time.Duration {
	return parseDur(c.JWT.RefreshTTL, 720*time.Hour)
}

// RequestTTL retorna el TTL de las authorization requests (default 10m).
func (c *Config) RequestTTL() time.Duration {
	return parseDur(c.Authz.RequestTTL, 10*time.Minute)
}

// SweepInterval retorna la frecuencia del sweeper (default 5m).
func (c *Config) SweepInterval() time.Duration {
	return parseDur(c.Authz.SweepInterval, 5*time.Minute)
}

// RateWindow retorna la ventana del rate limiter (default 1m).
func (c *Config) RateWindow() time.Duration {
	return parseDur(c.Rate.Window, time.Minute)
}

func parseDur(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func envStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func envBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
