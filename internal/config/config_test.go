package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rileyhilliard/portctl/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, CurrentConfigVersion, cfg.Version)
	assert.Equal(t, "serial", cfg.Service)
	assert.Equal(t, BackendMemory, cfg.Bus.Backend)
	assert.Equal(t, "localhost:6379", cfg.Bus.Redis.Addr)
	assert.Equal(t, "portctl", cfg.Bus.Redis.Prefix)
	assert.Equal(t, 115200, cfg.Serial.Rate)
	assert.Equal(t, 8, cfg.Serial.DataBits)
	assert.Equal(t, 1.0, cfg.Serial.StopBits)
	assert.Equal(t, "none", cfg.Serial.Parity)
	assert.Equal(t, 5*time.Second, cfg.PortSvc.StatsInterval)
	assert.NoError(t, Validate(cfg))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, ConfigFileName)

	content := `
version: 1
service: arduino
bus:
  backend: redis
  redis:
    addr: redis.local:6380
    db: 2
serial:
  rate: 9600
  parity: even
portsvc:
  stats_interval: 750ms
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "arduino", cfg.Service)
	assert.Equal(t, BackendRedis, cfg.Bus.Backend)
	assert.Equal(t, "redis.local:6380", cfg.Bus.Redis.Addr)
	assert.Equal(t, 2, cfg.Bus.Redis.DB)
	assert.Equal(t, "portctl", cfg.Bus.Redis.Prefix, "unset keys keep defaults")
	assert.Equal(t, 9600, cfg.Serial.Rate)
	assert.Equal(t, 8, cfg.Serial.DataBits)
	assert.Equal(t, "even", cfg.Serial.Parity)
	assert.Equal(t, 750*time.Millisecond, cfg.PortSvc.StatsInterval)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/.portctl.yaml")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("service: [unclosed"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestFindExplicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1"), 0644))

	found, err := Find(path)
	require.NoError(t, err)
	assert.Equal(t, path, found)

	_, err = Find(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Specified config file not found")
}

func TestFindWalksUpToParent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte("version: 1"), 0644))

	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	t.Chdir(nested)

	found, err := Find("")
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(filepath.Join(root, ConfigFileName))
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(found)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)

	cfg := DefaultConfig()
	cfg.Service = "gps"
	cfg.Serial.Rate = 57600
	cfg.Serial.StopBits = 2
	cfg.PortSvc.StatsInterval = 3 * time.Second

	require.NoError(t, Write(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"future version", func(c *Config) { c.Version = 99 }, "from the future"},
		{"empty service", func(c *Config) { c.Service = "" }, "No service name"},
		{"unknown backend", func(c *Config) { c.Bus.Backend = "kafka" }, "Unknown bus backend"},
		{"redis without addr", func(c *Config) { c.Bus.Backend = BackendRedis; c.Bus.Redis.Addr = "" }, "bus.redis.addr"},
		{"zero rate", func(c *Config) { c.Serial.Rate = 0 }, "rate must be positive"},
		{"data bits too small", func(c *Config) { c.Serial.DataBits = 4 }, "Data bits"},
		{"data bits too large", func(c *Config) { c.Serial.DataBits = 9 }, "Data bits"},
		{"one and a half stop bits", func(c *Config) { c.Serial.StopBits = 1.5 }, ""},
		{"three stop bits", func(c *Config) { c.Serial.StopBits = 3 }, "Stop bits"},
		{"bad parity", func(c *Config) { c.Serial.Parity = "sometimes" }, "Unknown parity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
