package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	LogLevel  string          `koanf:"log_level"`
	Server    ServerConfig    `koanf:"server"`
	Backend   BackendConfig   `koanf:"backend"`
	Tenants   TenantsConfig   `koanf:"tenants"`
	Cache     CacheConfig     `koanf:"cache"`
	Analytics AnalyticsConfig `koanf:"analytics"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	UpstreamTimeout time.Duration `koanf:"upstream_timeout"` // per outbound call; 0 disables
}

// BackendConfig points at the headless content API and the identity service.
type BackendConfig struct {
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`
	AuthURL string `koanf:"auth_url"` // defaults to BaseURL
}

// TenantsConfig is the static hostname table plus the fallback slug.
type TenantsConfig struct {
	DefaultSlug string     `koanf:"default_slug"`
	Hosts       []HostRule `koanf:"hosts"`
}

// HostRule maps an exact hostname or a "*.domain" wildcard to a tenant slug.
// A wildcard rule with an empty slug uses the subdomain as the slug.
type HostRule struct {
	Host string `koanf:"host"`
	Slug string `koanf:"slug"`
}

type CacheConfig struct {
	Type  string      `koanf:"type"` // memory, redis
	Redis RedisConfig `koanf:"redis"`
}

type RedisConfig struct {
	Addr      string `koanf:"addr"`
	Password  string `koanf:"password"`
	DB        int    `koanf:"db"`
	KeyPrefix string `koanf:"key_prefix"`
}

type AnalyticsConfig struct {
	Sink  string      `koanf:"sink"` // upstream, kafka, none
	Kafka KafkaConfig `koanf:"kafka"`
}

type KafkaConfig struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

// RateLimitConfig bounds per-client submissions to the write endpoints.
type RateLimitConfig struct {
	RPS   float64 `koanf:"rps"`
	Burst int     `koanf:"burst"`
	// TrustedProxies lists peers allowed to set X-Forwarded-For.
	TrustedProxies []string `koanf:"trusted_proxies"`
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

// DefaultPath is the config file read when no path is given.
const DefaultPath = "config.yaml"

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

var defaults = map[string]any{
	"log_level":               "info",
	"server.port":             3000,
	"server.request_timeout":  "30s",
	"server.upstream_timeout": "15s",
	"cache.type":              "memory",
	"cache.redis.key_prefix":  "site:tenant-id:",
	"analytics.sink":          "upstream",
	"analytics.kafka.topic":   "site-analytics",
	"ratelimit.rps":           5.0,
	"ratelimit.burst":         20,
	"telemetry.service_name":  "tenant-gateway",
}

// Load reads path (when present), overlays SITE_* environment variables and
// applies the plain environment fallbacks used by existing deployments.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	// Load environment variables (can override file config)
	if err := k.Load(env.Provider("SITE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "SITE_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.Backend.BaseURL = substituteEnvVars(cfg.Backend.BaseURL)
	cfg.Backend.APIKey = substituteEnvVars(cfg.Backend.APIKey)
	cfg.Backend.AuthURL = substituteEnvVars(cfg.Backend.AuthURL)
	cfg.Cache.Redis.Password = substituteEnvVars(cfg.Cache.Redis.Password)
	cfg.applyEnvFallbacks()

	return &cfg, nil
}

// applyEnvFallbacks fills unset fields from the well-known variable names.
func (c *Config) applyEnvFallbacks() {
	c.Backend.BaseURL = firstNonEmpty(c.Backend.BaseURL, os.Getenv("BACKEND_URL"))
	c.Backend.APIKey = firstNonEmpty(c.Backend.APIKey, os.Getenv("API_KEY"))
	c.Backend.AuthURL = firstNonEmpty(c.Backend.AuthURL, os.Getenv("AUTH_URL"), c.Backend.BaseURL)
	c.Tenants.DefaultSlug = firstNonEmpty(c.Tenants.DefaultSlug, os.Getenv("TENANT_SLUG"))

	c.Backend.BaseURL = strings.TrimSuffix(c.Backend.BaseURL, "/")
	c.Backend.AuthURL = strings.TrimSuffix(c.Backend.AuthURL, "/")
}

// Validate reports configuration that would make the gateway unusable.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required (or set BACKEND_URL)")
	}
	switch c.Cache.Type {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required for redis cache")
		}
	default:
		return fmt.Errorf("unknown cache type %q", c.Cache.Type)
	}
	switch c.Analytics.Sink {
	case "upstream", "none":
	case "kafka":
		if len(c.Analytics.Kafka.Brokers) == 0 {
			return fmt.Errorf("analytics.kafka.brokers is required for kafka sink")
		}
	default:
		return fmt.Errorf("unknown analytics sink %q", c.Analytics.Sink)
	}
	for _, rule := range c.Tenants.Hosts {
		if rule.Host == "" {
			return fmt.Errorf("tenant host rule with empty host (slug %q)", rule.Slug)
		}
	}
	return nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
