package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Shoaibashk/GaugeLink/internal/serial"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialDefaultsToPortConfig(t *testing.T) {
	defaults := SerialDefaults{
		BaudRate:       19200,
		DataBits:       8,
		StopBits:       "2",
		Parity:         "none",
		FlowControl:    "hardware",
		ReadTimeoutMs:  250,
		WriteTimeoutMs: 300,
	}

	cfg, err := defaults.ToPortConfig()
	require.NoError(t, err)

	assert.Equal(t, serial.PortConfig{
		BaudRate:       19200,
		DataBits:       8,
		StopBits:       serial.StopBits2,
		Parity:         serial.ParityNone,
		FlowControl:    serial.FlowControlHardware,
		ReadTimeoutMs:  250,
		WriteTimeoutMs: 300,
	}, cfg)
}

func TestSerialDefaultsToPortConfigInvalid(t *testing.T) {
	defaults := SerialDefaults{
		BaudRate:    9600,
		DataBits:    8,
		StopBits:    "1",
		Parity:      "invalid",
		FlowControl: "none",
	}

	_, err := defaults.ToPortConfig()
	require.ErrorIs(t, err, serial.ErrInvalidConfig)
}

func TestDefaultConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	defaults, err := cfg.Serial.Defaults.ToPortConfig()
	require.NoError(t, err)
	assert.Equal(t, serial.DefaultConfig(), defaults)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty port", func(c *Config) { c.Serial.Port = "" }},
		{"baud", func(c *Config) { c.Serial.Defaults.BaudRate = 0 }},
		{"data bits", func(c *Config) { c.Serial.Defaults.DataBits = 9 }},
		{"flow control", func(c *Config) { c.Serial.Defaults.FlowControl = "broken" }},
		{"stop bits", func(c *Config) { c.Serial.Defaults.StopBits = "3" }},
		{"log level", func(c *Config) { c.Logging.Level = "chatty" }},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"interval", func(c *Config) { c.Monitor.IntervalMs = 0 }},
		{"channel", func(c *Config) { c.Monitor.Channels = []int{1, 7} }},
		{"unnamed controller", func(c *Config) { c.Controllers = []ControllerConfig{{Port: "COM2"}} }},
		{"duplicate name", func(c *Config) {
			c.Controllers = []ControllerConfig{{Name: "a", Port: "COM2"}, {Name: "a", Port: "COM3"}}
		}},
		{"duplicate port", func(c *Config) {
			c.Controllers = []ControllerConfig{{Name: "a", Port: "COM2"}, {Name: "b", Port: "COM2"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestControllerList(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Serial.Port = "/dev/ttyS0"
	assert.Equal(t, []ControllerConfig{{Name: DefaultControllerName, Port: "/dev/ttyS0"}}, cfg.ControllerList())

	cfg.Controllers = []ControllerConfig{{Name: "chamber", Port: "/dev/ttyUSB0"}, {Name: "loadlock", Port: "/dev/ttyUSB1"}}
	assert.Equal(t, cfg.Controllers, cfg.ControllerList())
}

func TestLoadFromFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
serial:
  port: /dev/ttyUSB0
  defaults:
    baud_rate: 19200
    stop_bits: 2
controllers:
  - name: chamber
    port: /dev/ttyUSB0
monitor:
  interval_ms: 500
  channels: [1, 3]
logging:
  level: debug
  format: json
`), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)
	assert.Equal(t, 19200, cfg.Serial.Defaults.BaudRate)
	assert.Equal(t, "2", cfg.Serial.Defaults.StopBits)
	assert.Equal(t, 8, cfg.Serial.Defaults.DataBits)
	assert.Equal(t, []ControllerConfig{{Name: "chamber", Port: "/dev/ttyUSB0"}}, cfg.Controllers)
	assert.Equal(t, 500, cfg.Monitor.IntervalMs)
	assert.Equal(t, []int{1, 3}, cfg.Monitor.Channels)
	assert.Equal(t, -10, cfg.Monitor.MinPriority)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadFromFileInvalid(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("monitor:\n  channels: [0]\n"), 0644))

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestSaveAndReload(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg := DefaultConfig()
	cfg.Serial.Port = "/dev/ttyS1"
	cfg.Logging.Level = "warn"

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyS1", loaded.Serial.Port)
	assert.Equal(t, "warn", loaded.Logging.Level)
	assert.Equal(t, cfg.Monitor, loaded.Monitor)
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
