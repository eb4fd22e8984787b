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
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/Shoaibashk/GaugeLink/config"
	"github.com/Shoaibashk/GaugeLink/internal/acm"
	"github.com/Shoaibashk/GaugeLink/internal/metrics"
	"github.com/Shoaibashk/GaugeLink/internal/poll"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Poll controllers and export metrics",
	Long: `Poll every configured controller on an interval and export the readings.

With metrics enabled (config metrics.enabled or --metrics) an HTTP server
serves /metrics for Prometheus, /health and /readings with the latest samples
as JSON. --once polls a single time and prints the samples instead.

Example:
  gaugelink monitor --metrics                     # Poll and serve on :9090
  gaugelink monitor --interval 500ms              # Faster polling
  gaugelink monitor --once -p /dev/ttyUSB0        # One pass, print and exit`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().Bool("once", false, "poll once, print the samples and exit")
	monitorCmd.Flags().Bool("metrics", false, "serve Prometheus metrics")
	monitorCmd.Flags().String("metrics-address", "", "metrics listen address (default from config)")
	monitorCmd.Flags().Duration("interval", 0, "poll interval (default from config)")
	monitorCmd.Flags().Int("min-priority", 0, "skip variables below this priority (default from config)")
	monitorCmd.Flags().Bool("json", false, "output in JSON format with --once")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	once, _ := cmd.Flags().GetBool("once")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyMonitorFlags(cmd, cfg)

	portCfg, err := cfg.Serial.Defaults.ToPortConfig()
	if err != nil {
		return err
	}

	controllers := cfg.ControllerList()
	if cmd.Flags().Changed("controller") || cmd.Flags().Changed("port") {
		ctrl, err := selectController(cmd, cfg)
		if err != nil {
			return err
		}
		controllers = []config.ControllerConfig{ctrl}
	}

	logger := newLogger(cfg.Logging)
	exporter := metrics.NewExporter()

	var devices []*acm.Device
	defer func() {
		for _, dev := range devices {
			dev.Close()
		}
	}()

	pollers := make([]*poll.Poller, 0, len(controllers))
	for _, ctrl := range controllers {
		dev, err := dialDevice(ctrl, portCfg, logger)
		if err != nil {
			return err
		}
		devices = append(devices, dev)

		if err := exporter.RegisterController(ctrl.Name, dev.Metrics()); err != nil {
			return fmt.Errorf("failed to register metrics for %s: %w", ctrl.Name, err)
		}

		pollers = append(pollers, poll.New(ctrl.Name, dev, poll.Options{
			Interval:    time.Duration(cfg.Monitor.IntervalMs) * time.Millisecond,
			MinPriority: cfg.Monitor.MinPriority,
			Channels:    cfg.Monitor.Channels,
			Logger:      logger,
			Observe:     exporter.Observe,
		}))
	}

	if once {
		var samples []poll.Sample
		for _, p := range pollers {
			samples = append(samples, p.Poll()...)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), samples)
		}
		return printSamples(cmd, samples)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Address, cfg.Metrics.Path, exporter, latestSamples(pollers), logger)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Metrics server shutdown", "err", err)
			}
		}()
	}

	logger.Info("Monitoring", "controllers", len(pollers), "interval", time.Duration(cfg.Monitor.IntervalMs)*time.Millisecond)

	var wg sync.WaitGroup
	for _, p := range pollers {
		wg.Add(1)
		go func(p *poll.Poller) {
			defer wg.Done()
			_ = p.Run(ctx)
		}(p)
	}
	wg.Wait()

	logger.Info("Monitor stopped")
	return nil
}

func applyMonitorFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("metrics") {
		cfg.Metrics.Enabled, _ = cmd.Flags().GetBool("metrics")
	}
	if addr, _ := cmd.Flags().GetString("metrics-address"); addr != "" {
		cfg.Metrics.Address = addr
	}
	if interval, _ := cmd.Flags().GetDuration("interval"); interval > 0 {
		cfg.Monitor.IntervalMs = int(interval / time.Millisecond)
	}
	if cmd.Flags().Changed("min-priority") {
		cfg.Monitor.MinPriority, _ = cmd.Flags().GetInt("min-priority")
	}
}

func latestSamples(pollers []*poll.Poller) metrics.ReadingsFunc {
	return func() []poll.Sample {
		var samples []poll.Sample
		for _, p := range pollers {
			samples = append(samples, p.Latest()...)
		}
		return samples
	}
}

func printSamples(cmd *cobra.Command, samples []poll.Sample) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CONTROLLER\tVARIABLE\tCHANNEL\tVALUE\tERROR")
	for _, s := range samples {
		ch := "-"
		if s.Channel > 0 {
			ch = fmt.Sprint(s.Channel)
		}
		value := ""
		if s.Err == "" {
			value = formatSampleValue(s.Value)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.Controller, s.Variable, ch, value, s.Err)
	}
	return w.Flush()
}

func formatSampleValue(v any) string {
	switch v := v.(type) {
	case float64:
		return fmt.Sprintf("%.4E", v)
	default:
		return fmt.Sprint(v)
	}
}
