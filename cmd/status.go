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
	"fmt"
	"text/tabwriter"

	"github.com/Shoaibashk/GaugeLink/config"
	"github.com/Shoaibashk/GaugeLink/internal/acm"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show channel status and settings",
	Long: `Show gauge status, gauge kind, switch state, measurement filter and
calibration factor for every channel, plus the controller error list.

Example:
  gaugelink status                  # Table output
  gaugelink status --json           # Output as JSON`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

// ChannelReport is one row of the status command
type ChannelReport struct {
	Channel     int                   `json:"channel"`
	Status      acm.ChannelStatus     `json:"status"`
	Kind        string                `json:"gauge_kind"`
	Enabled     acm.EnableState       `json:"enabled"`
	Filter      acm.MeasurementFilter `json:"measurement_filter"`
	Calibration float64               `json:"calibration_factor"`
}

// ControllerReport is the output of the status command
type ControllerReport struct {
	Controller string          `json:"controller"`
	Port       string          `json:"port"`
	Units      acm.Unit        `json:"units"`
	Channels   []ChannelReport `json:"channels"`
	Errors     []acm.ErrorCode `json:"errors"`
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().Bool("json", false, "output in JSON format")
}

func runStatus(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	return withDevice(cmd, func(dev *acm.Device, ctrl config.ControllerConfig) error {
		report, err := collectStatus(dev)
		if err != nil {
			return err
		}
		report.Controller = ctrl.Name
		report.Port = ctrl.Port

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), report)
		}
		return printStatusTable(cmd, report)
	})
}

func collectStatus(dev *acm.Device) (*ControllerReport, error) {
	report := &ControllerReport{}

	var err error
	if report.Units, err = dev.Units(); err != nil {
		return nil, fmt.Errorf("failed to read units: %w", err)
	}

	kinds, err := dev.GaugeKinds()
	if err != nil {
		return nil, fmt.Errorf("failed to read gauge kinds: %w", err)
	}
	enabled, err := dev.EnableStates()
	if err != nil {
		return nil, fmt.Errorf("failed to read switch states: %w", err)
	}
	filters, err := dev.MeasurementFilters()
	if err != nil {
		return nil, fmt.Errorf("failed to read measurement filters: %w", err)
	}
	factors, err := dev.CalibrationFactors()
	if err != nil {
		return nil, fmt.Errorf("failed to read calibration factors: %w", err)
	}

	for ch := 1; ch <= acm.Channels; ch++ {
		status, err := dev.ChannelStatus(ch)
		if err != nil {
			return nil, fmt.Errorf("failed to read channel %d: %w", ch, err)
		}
		report.Channels = append(report.Channels, ChannelReport{
			Channel:     ch,
			Status:      status,
			Kind:        kinds[ch-1],
			Enabled:     enabled[ch-1],
			Filter:      filters[ch-1],
			Calibration: factors[ch-1],
		})
	}

	if report.Errors, err = dev.CurrentErrors(); err != nil {
		return nil, fmt.Errorf("failed to read errors: %w", err)
	}
	return report, nil
}

func printStatusTable(cmd *cobra.Command, report *ControllerReport) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Controller: %s\n", report.Controller)
	fmt.Fprintf(out, "  Port:           %s\n", report.Port)
	fmt.Fprintf(out, "  Units:          %s\n", report.Units)
	fmt.Fprintf(out, "  Errors:         %v\n\n", report.Errors)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHANNEL\tSTATUS\tGAUGE\tSWITCH\tFILTER\tCAL")
	for _, c := range report.Channels {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", c.Channel, c.Status, c.Kind, c.Enabled, c.Filter, formatFactor(c.Calibration))
	}
	return w.Flush()
}
