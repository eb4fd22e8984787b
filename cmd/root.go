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

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Shoaibashk/GaugeLink/config"
	"github.com/Shoaibashk/GaugeLink/internal/acm"
	"github.com/Shoaibashk/GaugeLink/internal/serial"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is the application version
	Version = "dev"
	// Commit is the git commit the binary was built from
	Commit = "none"
	// BuildDate is the build timestamp
	BuildDate = "unknown"

	// cfgFile is the path to the config file
	cfgFile string

	// portManager owns every serial port opened by this process
	portManager = serial.NewManager(nil)

	// dialDevice opens a controller session. Tests replace it.
	dialDevice = openDevice

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "gaugelink",
		Short: "GaugeLink - ACM 1000 vacuum gauge controller tool",
		Long: `GaugeLink talks to Alcatel ACM 1000 six channel vacuum gauge controllers
over a serial line. It reads pressures and gauge status, changes channel
settings and exports readings as Prometheus metrics.`,
		SilenceUsage: true,
	}
)

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext executes the root command with a context
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gaugelink/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "verbose output")
	rootCmd.PersistentFlags().StringP("port", "p", "", "serial port device (e.g., /dev/ttyUSB0 or COM3)")
	rootCmd.PersistentFlags().IntP("baud", "b", 0, "baud rate (0 = from config)")
	rootCmd.PersistentFlags().StringP("controller", "c", "", "controller name from the config file")

	bindFlags()
}

// bindFlags binds persistent flags to their config keys
func bindFlags() {
	bindings := map[string]string{
		"verbose":                   "verbose",
		"serial.port":               "port",
		"serial.defaults.baud_rate": "baud",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("Failed to bind %s flag: %v", flag, err))
		}
	}
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if err := config.InitViper(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
	}
}

// IsVerbose reports whether --verbose was given
func IsVerbose() bool {
	return viper.GetBool("verbose")
}

// newLogger builds the process logger from the logging section
func newLogger(cfg config.LoggingConfig) *log.Logger {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	if IsVerbose() {
		level = log.DebugLevel
	}

	formatter := log.TextFormatter
	switch strings.ToLower(cfg.Format) {
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	}

	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
		Prefix:          "gaugelink",
	})
}

// selectController picks the controller named by --controller, or the first
// one configured. An explicit --port overrides the controller's port.
func selectController(cmd *cobra.Command, cfg *config.Config) (config.ControllerConfig, error) {
	name, _ := cmd.Flags().GetString("controller")
	controllers := cfg.ControllerList()

	ctrl := controllers[0]
	if name != "" {
		found := false
		for _, c := range controllers {
			if c.Name == name {
				ctrl, found = c, true
				break
			}
		}
		if !found {
			return config.ControllerConfig{}, fmt.Errorf("unknown controller %q", name)
		}
	}

	if cmd.Flags().Changed("port") {
		ctrl.Port, _ = cmd.Flags().GetString("port")
	}
	if ctrl.Port == "" {
		return config.ControllerConfig{}, fmt.Errorf("port is required (set via --port flag or GAUGELINK_SERIAL_PORT env var)")
	}
	return ctrl, nil
}

// openDevice opens ctrl's port and performs the controller handshake
func openDevice(ctrl config.ControllerConfig, portCfg serial.PortConfig, logger *log.Logger) (*acm.Device, error) {
	session, err := portManager.Open(ctrl.Port, portCfg)
	if err != nil {
		return nil, err
	}

	logger.Debug("port opened", "port", ctrl.Port, "session", session.ID, "baud", portCfg.BaudRate)

	dev, err := acm.Open(session, acm.WithLogger(logger.With("controller", ctrl.Name)))
	if err != nil {
		return nil, fmt.Errorf("controller %s on %s: %w", ctrl.Name, ctrl.Port, err)
	}
	return dev, nil
}

// withDevice runs fn against the selected controller and closes it afterwards
func withDevice(cmd *cobra.Command, fn func(dev *acm.Device, ctrl config.ControllerConfig) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctrl, err := selectController(cmd, cfg)
	if err != nil {
		return err
	}

	portCfg, err := cfg.Serial.Defaults.ToPortConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Logging)
	dev, err := dialDevice(ctrl, portCfg, logger)
	if err != nil {
		return err
	}
	defer dev.Close()

	return fn(dev, ctrl)
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
