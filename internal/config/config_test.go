package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, "0.0.0.0:8080", c.Addr())
	assert.Equal(t, "http://localhost:11434/api", c.OllamaURL)
	assert.Equal(t, 2*time.Minute, c.RequestTimeout)
	assert.False(t, c.RepairFragments)
}

func TestFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OLLAMAGATE_PORT", "9090")
	t.Setenv("OLLAMA_URL", "http://ollama:11434/api")
	t.Setenv("OLLAMAGATE_TIMEOUT", "30s")
	t.Setenv("OLLAMAGATE_REPAIR_FRAGMENTS", "true")
	t.Setenv("OLLAMAGATE_LOG_LEVEL", "debug")

	c := FromEnv()
	assert.Equal(t, 9090, c.Port)
	assert.Equal(t, "http://ollama:11434/api", c.OllamaURL)
	assert.Equal(t, 30*time.Second, c.RequestTimeout)
	assert.True(t, c.RepairFragments)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, DefaultHost, c.Host)
}

func TestFromEnvIgnoresGarbage(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	t.Chdir(t.TempDir())
	t.Setenv("OLLAMAGATE_PORT", "eighty")
	t.Setenv("OLLAMAGATE_TIMEOUT", "soon")
	t.Setenv("OLLAMAGATE_REPAIR_FRAGMENTS", "maybe")

	c := FromEnv()
	assert.Equal(t, DefaultPort, c.Port)
	assert.Equal(t, DefaultTimeout, c.RequestTimeout)
	assert.False(t, c.RepairFragments)

	logged := buf.String()
	assert.Contains(t, logged, "key=OLLAMAGATE_PORT value=eighty")
	assert.Contains(t, logged, "key=OLLAMAGATE_TIMEOUT value=soon")
	assert.Contains(t, logged, "key=OLLAMAGATE_REPAIR_FRAGMENTS value=maybe")
}

func TestFromEnvLoadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("OLLAMAGATE_STATIC_DIR=/srv/www\nOLLAMAGATE_LOG_FORMAT=json\n"), 0o644))
	// Registered so the values loaded from .env are cleared after the test.
	t.Setenv("OLLAMAGATE_STATIC_DIR", "")
	t.Setenv("OLLAMAGATE_LOG_FORMAT", "")
	os.Unsetenv("OLLAMAGATE_STATIC_DIR")
	os.Unsetenv("OLLAMAGATE_LOG_FORMAT")

	c := FromEnv()
	assert.Equal(t, "/srv/www", c.StaticDir)
	assert.Equal(t, "json", c.LogFormat)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"port zero":      func(c *Config) { c.Port = 0 },
		"port too large": func(c *Config) { c.Port = 70000 },
		"no scheme":      func(c *Config) { c.OllamaURL = "localhost:11434" },
		"ftp scheme":     func(c *Config) { c.OllamaURL = "ftp://localhost/api" },
		"bad url":        func(c *Config) { c.OllamaURL = "http://[::1" },
		"neg timeout":    func(c *Config) { c.RequestTimeout = -time.Second },
		"log level":      func(c *Config) { c.LogLevel = "trace" },
		"log format":     func(c *Config) { c.LogFormat = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	c := Default()
	c.RequestTimeout = 0
	c.LogLevel = "WARN"
	assert.NoError(t, c.Validate())
	c.LogLevel = "warning"
	assert.NoError(t, c.Validate())
}
