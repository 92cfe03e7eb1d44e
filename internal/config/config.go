// Package config defines runtime configuration for ollamagate.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Built-in defaults. Every one of them can be overridden by an environment
// variable (optionally from a .env file) and then by a CLI flag.
const (
	DefaultHost      = "0.0.0.0"
	DefaultPort      = 8080
	DefaultOllamaURL = "http://localhost:11434/api"
	DefaultStaticDir = "static"
	DefaultTimeout   = 2 * time.Minute
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Config holds all settings passed in via CLI flags or environment variables.
type Config struct {
	// Host is the network interface to bind the HTTP server to.
	Host string

	// Port is the HTTP server port.
	Port int

	// OllamaURL is the API root of the Ollama daemon, including the /api path.
	OllamaURL string

	// StaticDir is served for every path that is not an API route. When it
	// does not exist the embedded assets are served instead.
	StaticDir string

	// RequestTimeout bounds each call to Ollama. Zero disables the deadline.
	RequestTimeout time.Duration

	// RepairFragments runs undecodable response lines through jsonrepair
	// instead of dropping them straight away.
	RepairFragments bool

	LogLevel  string // debug, info, warn (or warning), error
	LogFormat string // text, json
}

// Default returns a Config populated with the built-in defaults only.
func Default() Config {
	return Config{
		Host:           DefaultHost,
		Port:           DefaultPort,
		OllamaURL:      DefaultOllamaURL,
		StaticDir:      DefaultStaticDir,
		RequestTimeout: DefaultTimeout,
		LogLevel:       DefaultLogLevel,
		LogFormat:      DefaultLogFormat,
	}
}

// FromEnv returns the defaults overridden by environment variables. A .env
// file in the working directory is loaded first if present; variables that
// are already set win over the file. A value that does not parse is logged
// through slog.Default and the default is kept.
func FromEnv() Config {
	_ = godotenv.Load() // missing .env is fine

	d := Default()
	return Config{
		Host:            envOrDefault("OLLAMAGATE_HOST", d.Host),
		Port:            envIntOrDefault("OLLAMAGATE_PORT", d.Port),
		OllamaURL:       envOrDefault("OLLAMA_URL", d.OllamaURL),
		StaticDir:       envOrDefault("OLLAMAGATE_STATIC_DIR", d.StaticDir),
		RequestTimeout:  envDurationOrDefault("OLLAMAGATE_TIMEOUT", d.RequestTimeout),
		RepairFragments: envBoolOrDefault("OLLAMAGATE_REPAIR_FRAGMENTS", d.RepairFragments),
		LogLevel:        envOrDefault("OLLAMAGATE_LOG_LEVEL", d.LogLevel),
		LogFormat:       envOrDefault("OLLAMAGATE_LOG_FORMAT", d.LogFormat),
	}
}

// Validate checks that every field holds a usable value.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d (must be 1-65535)", c.Port)
	}
	u, err := url.Parse(c.OllamaURL)
	if err != nil {
		return fmt.Errorf("invalid ollama url %q: %w", c.OllamaURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid ollama url %q: want http(s)://host[:port]/api", c.OllamaURL)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("invalid timeout %s (must be >= 0)", c.RequestTimeout)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q (must be debug, info, warn, or error)", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (must be text or json)", c.LogFormat)
	}
	return nil
}

// Addr returns the listen address, e.g. "0.0.0.0:8080".
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
		warnIgnored(key, v, err)
	}
	return fallback
}

func envDurationOrDefault(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
		warnIgnored(key, v, err)
	}
	return fallback
}

func envBoolOrDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
		warnIgnored(key, v, err)
	}
	return fallback
}

func warnIgnored(key, value string, err error) {
	slog.Warn("ignoring invalid environment value, using default", "key", key, "value", value, "error", err)
}
