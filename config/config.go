// Package config loads client configuration from YAML with environment
// variable overrides. Missing files and unparsable values fall back to
// defaults so a zero-config client always comes up against localhost.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full client configuration.
type Config struct {
	// Endpoint is the base HTTP(S) URL of the node. The WebSocket endpoint
	// is derived from it by scheme substitution (http→ws, https→wss).
	Endpoint string `yaml:"endpoint"`

	// Connection-level deadlines and keep-alive. These apply to the
	// underlying connections, not to individual RPC calls.
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	PingInterval time.Duration `yaml:"pingInterval"`

	// CallTimeout bounds each call's wait for a reply, including
	// subscribe/unsubscribe acks. Zero means wait forever.
	CallTimeout time.Duration `yaml:"callTimeout"`

	// RateLimit caps outbound unary calls per second; zero disables the
	// limiter. RateBurst is the token-bucket burst size.
	RateLimit float64 `yaml:"rateLimit"`
	RateBurst int     `yaml:"rateBurst"`

	Discovery DiscoveryConfig `yaml:"discovery"`
}

// DiscoveryConfig configures optional etcd-based endpoint discovery. When
// Endpoints is empty, discovery is disabled and Config.Endpoint is used
// directly.
type DiscoveryConfig struct {
	Endpoints []string `yaml:"endpoints"`
	Network   string   `yaml:"network"`
}

// Default returns the built-in configuration: a local node, 15 second
// connection deadlines and keep-alive, no per-call deadline, no rate limit.
func Default() *Config {
	return &Config{
		Endpoint:     "http://127.0.0.1:9000",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		PingInterval: 15 * time.Second,
		RateBurst:    1,
		Discovery:    DiscoveryConfig{Network: "mainnet"},
	}
}

type fileConfig struct {
	Client Config `yaml:"client"`
}

// LoadFromPath loads configuration from the given path, or from the default
// candidate paths when it is empty. Unreadable or unparsable files are
// skipped; env overrides are always applied last.
func LoadFromPath(configPath string) *Config {
	cfg := Default()

	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates,
			"configs/sui-rpc.yaml",
			"sui-rpc.yaml",
		)
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var parsed fileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			continue
		}
		Merge(cfg, parsed.Client)
		break
	}

	ApplyEnvOverrides(cfg)
	return cfg
}

// Merge copies the set fields of src over dst, leaving zero-valued fields of
// src alone.
func Merge(dst *Config, src Config) {
	if src.Endpoint != "" {
		dst.Endpoint = src.Endpoint
	}
	if src.ReadTimeout != 0 {
		dst.ReadTimeout = src.ReadTimeout
	}
	if src.WriteTimeout != 0 {
		dst.WriteTimeout = src.WriteTimeout
	}
	if src.PingInterval != 0 {
		dst.PingInterval = src.PingInterval
	}
	if src.CallTimeout != 0 {
		dst.CallTimeout = src.CallTimeout
	}
	if src.RateLimit != 0 {
		dst.RateLimit = src.RateLimit
	}
	if src.RateBurst != 0 {
		dst.RateBurst = src.RateBurst
	}
	if len(src.Discovery.Endpoints) != 0 {
		dst.Discovery.Endpoints = src.Discovery.Endpoints
	}
	if src.Discovery.Network != "" {
		dst.Discovery.Network = src.Discovery.Network
	}
}

// ApplyEnvOverrides applies SUIRPC_* environment variables on top of cfg.
func ApplyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("SUIRPC_ENDPOINT")); v != "" {
		cfg.Endpoint = v
	}
	if d, ok := parseDurationEnv("SUIRPC_CALL_TIMEOUT"); ok {
		cfg.CallTimeout = d
	}
	if d, ok := parseDurationEnv("SUIRPC_PING_INTERVAL"); ok {
		cfg.PingInterval = d
	}
	if v := strings.TrimSpace(os.Getenv("SUIRPC_RATE_LIMIT")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.RateLimit = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("SUIRPC_DISCOVERY_ENDPOINTS")); v != "" {
		cfg.Discovery.Endpoints = strings.Split(v, ",")
	}
	if v := strings.TrimSpace(os.Getenv("SUIRPC_NETWORK")); v != "" {
		cfg.Discovery.Network = v
	}
}

func parseDurationEnv(name string) (time.Duration, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}
