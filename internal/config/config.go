// Package config loads gateway configuration from the environment.
//
// All downstream addresses are obtained through the service registry at
// runtime; the environment only configures the gateway process itself.
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the full gateway configuration.
type Config struct {
	Server   ServerConfig
	Registry RegistryConfig
	Probe    ProbeConfig
	Breaker  BreakerConfig
	Proxy    ProxyConfig
	Log      LogConfig
}

// ServerConfig configures the inbound HTTP listener.
type ServerConfig struct {
	Port         int           `envconfig:"GATEWAY_PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"GATEWAY_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `envconfig:"GATEWAY_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `envconfig:"GATEWAY_IDLE_TIMEOUT" default:"120s"`
}

// RegistryConfig configures the service registry and its reap loop.
type RegistryConfig struct {
	FilePath     string        `envconfig:"REGISTRY_FILE" default:"data/services.json"`
	ReapInterval time.Duration `envconfig:"REGISTRY_REAP_INTERVAL" default:"1m"`
	ReapTTL      time.Duration `envconfig:"REGISTRY_REAP_TTL" default:"2m"`
}

// ProbeConfig configures the health supervisor.
type ProbeConfig struct {
	Interval time.Duration `envconfig:"HEALTH_PROBE_INTERVAL" default:"30s"`
	Timeout  time.Duration `envconfig:"HEALTH_PROBE_TIMEOUT" default:"3s"`
}

// BreakerConfig configures the per-service circuit breakers.
type BreakerConfig struct {
	FailureThreshold int           `envconfig:"BREAKER_FAILURE_THRESHOLD" default:"3"`
	Cooldown         time.Duration `envconfig:"BREAKER_COOLDOWN" default:"30s"`
}

// ProxyConfig configures downstream forwarding.
type ProxyConfig struct {
	Timeout time.Duration `envconfig:"PROXY_TIMEOUT" default:"10s"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads configuration from the environment, optionally seeding it
// from a .env file first. A missing .env file is not an error.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
