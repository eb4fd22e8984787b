/*
Copyright 2024 GaugeLink Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config provides configuration loading and management for GaugeLink.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Shoaibashk/GaugeLink/internal/acm"
	"github.com/Shoaibashk/GaugeLink/internal/serial"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultControllerName names the controller used when none are configured
const DefaultControllerName = "acm1000"

// Config represents the complete configuration
type Config struct {
	Serial      SerialConfig       `mapstructure:"serial" yaml:"serial"`
	Controllers []ControllerConfig `mapstructure:"controllers" yaml:"controllers"`
	Logging     LoggingConfig      `mapstructure:"logging" yaml:"logging"`
	Metrics     MetricsConfig      `mapstructure:"metrics" yaml:"metrics"`
	Monitor     MonitorConfig      `mapstructure:"monitor" yaml:"monitor"`
}

// SerialConfig holds serial port settings
type SerialConfig struct {
	Port     string         `mapstructure:"port" yaml:"port"`
	Defaults SerialDefaults `mapstructure:"defaults" yaml:"defaults"`
}

// SerialDefaults holds default serial port parameters
type SerialDefaults struct {
	BaudRate       int    `mapstructure:"baud_rate" yaml:"baud_rate"`
	DataBits       int    `mapstructure:"data_bits" yaml:"data_bits"`
	StopBits       string `mapstructure:"stop_bits" yaml:"stop_bits"`
	Parity         string `mapstructure:"parity" yaml:"parity"`
	FlowControl    string `mapstructure:"flow_control" yaml:"flow_control"`
	ReadTimeoutMs  int    `mapstructure:"read_timeout_ms" yaml:"read_timeout_ms"`
	WriteTimeoutMs int    `mapstructure:"write_timeout_ms" yaml:"write_timeout_ms"`
}

// ControllerConfig names one controller and the port it is wired to
type ControllerConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	Port string `mapstructure:"port" yaml:"port"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig holds metrics/monitoring settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Address string `mapstructure:"address" yaml:"address"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// MonitorConfig holds poller settings
type MonitorConfig struct {
	IntervalMs  int   `mapstructure:"interval_ms" yaml:"interval_ms"`
	MinPriority int   `mapstructure:"min_priority" yaml:"min_priority"`
	Channels    []int `mapstructure:"channels" yaml:"channels"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Serial: SerialConfig{
			Port: "COM1",
			Defaults: SerialDefaults{
				BaudRate:       9600,
				DataBits:       8,
				StopBits:       "1",
				Parity:         "none",
				FlowControl:    "none",
				ReadTimeoutMs:  1000,
				WriteTimeoutMs: 1000,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: "0.0.0.0:9090",
			Path:    "/metrics",
		},
		Monitor: MonitorConfig{
			IntervalMs:  1000,
			MinPriority: -10,
			Channels:    []int{1, 2, 3, 4, 5, 6},
		},
	}
}

// ToPortConfig converts SerialDefaults into a concrete serial.PortConfig.
func (d SerialDefaults) ToPortConfig() (serial.PortConfig, error) {
	parity, err := serial.ParseParity(d.Parity)
	if err != nil {
		return serial.PortConfig{}, err
	}

	flowControl, err := serial.ParseFlowControl(d.FlowControl)
	if err != nil {
		return serial.PortConfig{}, err
	}

	stopBits, err := serial.ParseStopBits(d.StopBits)
	if err != nil {
		return serial.PortConfig{}, err
	}

	return serial.PortConfig{
		BaudRate:       d.BaudRate,
		DataBits:       d.DataBits,
		StopBits:       stopBits,
		Parity:         parity,
		FlowControl:    flowControl,
		ReadTimeoutMs:  d.ReadTimeoutMs,
		WriteTimeoutMs: d.WriteTimeoutMs,
	}, nil
}

// ControllerList returns the configured controllers. With none configured it
// returns a single controller on serial.port.
func (c *Config) ControllerList() []ControllerConfig {
	if len(c.Controllers) > 0 {
		return c.Controllers
	}
	return []ControllerConfig{{Name: DefaultControllerName, Port: c.Serial.Port}}
}

// SetDefaults sets default values in viper
func SetDefaults() {
	defaults := DefaultConfig()

	// Serial defaults
	viper.SetDefault("serial.port", defaults.Serial.Port)
	viper.SetDefault("serial.defaults.baud_rate", defaults.Serial.Defaults.BaudRate)
	viper.SetDefault("serial.defaults.data_bits", defaults.Serial.Defaults.DataBits)
	viper.SetDefault("serial.defaults.stop_bits", defaults.Serial.Defaults.StopBits)
	viper.SetDefault("serial.defaults.parity", defaults.Serial.Defaults.Parity)
	viper.SetDefault("serial.defaults.flow_control", defaults.Serial.Defaults.FlowControl)
	viper.SetDefault("serial.defaults.read_timeout_ms", defaults.Serial.Defaults.ReadTimeoutMs)
	viper.SetDefault("serial.defaults.write_timeout_ms", defaults.Serial.Defaults.WriteTimeoutMs)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.format", defaults.Logging.Format)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	viper.SetDefault("metrics.address", defaults.Metrics.Address)
	viper.SetDefault("metrics.path", defaults.Metrics.Path)

	// Monitor defaults
	viper.SetDefault("monitor.interval_ms", defaults.Monitor.IntervalMs)
	viper.SetDefault("monitor.min_priority", defaults.Monitor.MinPriority)
	viper.SetDefault("monitor.channels", defaults.Monitor.Channels)
}

// Load reads configuration from viper and returns a Config struct
func Load() (*Config, error) {
	cfg := &Config{}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	viper.SetConfigFile(path)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Load()
}

// LoadOrDefault loads configuration from file, or returns default if file doesn't exist
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return LoadFromFile(path)
}

// Save writes configuration to a YAML file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.YAML()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// YAML encodes the configuration in the config file format
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Serial.Port == "" && len(c.Controllers) == 0 {
		return fmt.Errorf("serial port is required")
	}

	if c.Serial.Defaults.BaudRate < 1 {
		return fmt.Errorf("baud_rate must be positive")
	}

	if c.Serial.Defaults.DataBits < 5 || c.Serial.Defaults.DataBits > 8 {
		return fmt.Errorf("data_bits must be between 5 and 8")
	}

	if _, err := c.Serial.Defaults.ToPortConfig(); err != nil {
		return fmt.Errorf("invalid serial defaults: %w", err)
	}

	names := make(map[string]bool)
	ports := make(map[string]bool)
	for i, ctrl := range c.Controllers {
		if ctrl.Name == "" || ctrl.Port == "" {
			return fmt.Errorf("controller %d: name and port are required", i)
		}
		if names[ctrl.Name] {
			return fmt.Errorf("duplicate controller name: %s", ctrl.Name)
		}
		if ports[ctrl.Port] {
			return fmt.Errorf("port %s is used by more than one controller", ctrl.Port)
		}
		names[ctrl.Name] = true
		ports[ctrl.Port] = true
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{"": true, "text": true, "json": true, "logfmt": true}
	if !validLogFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Monitor.IntervalMs < 1 {
		return fmt.Errorf("monitor interval_ms must be positive")
	}

	for _, ch := range c.Monitor.Channels {
		if ch < 1 || ch > acm.Channels {
			return fmt.Errorf("monitor channel %d out of range 1..%d", ch, acm.Channels)
		}
	}

	return nil
}

// DefaultConfigPath returns the default configuration file path for the current OS
func DefaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "GaugeLink", "config.yaml")
	case "darwin":
		return "/usr/local/etc/gaugelink/config.yaml"
	default:
		return "/etc/gaugelink/config.yaml"
	}
}

// UserConfigPath returns the user-specific configuration file path
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, ".gaugelink", "config.yaml")
	default:
		return filepath.Join(home, ".config", "gaugelink", "config.yaml")
	}
}

// InitViper initializes viper with default configuration paths
func InitViper(configFile string) error {
	SetDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, _ := os.UserHomeDir()
		if home != "" {
			viper.AddConfigPath(filepath.Join(home, ".gaugelink"))
			viper.AddConfigPath(filepath.Join(home, ".config", "gaugelink"))
		}
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/gaugelink")

		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("GAUGELINK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults
	}

	return nil
}
