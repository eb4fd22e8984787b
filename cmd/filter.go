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
	"math"
	"strconv"

	"github.com/Shoaibashk/GaugeLink/config"
	"github.com/Shoaibashk/GaugeLink/internal/acm"
	"github.com/spf13/cobra"
)

var filterCmd = &cobra.Command{
	Use:   "filter [CHANNEL [fast|medium|slow]]",
	Short: "Get or set measurement filters",
	Long: `Get or set the measurement filter of a channel.

Example:
  gaugelink filter               # Show all channels
  gaugelink filter 3             # Show channel 3
  gaugelink filter 3 slow        # Set channel 3 to slow`,
	Args: cobra.MaximumNArgs(2),
	RunE: runFilter,
}

var calibrationCmd = &cobra.Command{
	Use:   "calibration [CHANNEL [FACTOR]]",
	Short: "Get or set calibration factors",
	Long: `Get or set the calibration factor of a channel.

Example:
  gaugelink calibration          # Show all channels
  gaugelink calibration 1 1.25   # Set channel 1 to 1.25`,
	Args: cobra.MaximumNArgs(2),
	RunE: runCalibration,
}

func init() {
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(calibrationCmd)
}

func runFilter(cmd *cobra.Command, args []string) error {
	ch, err := channelArg(args)
	if err != nil {
		return err
	}

	var filter acm.MeasurementFilter
	if len(args) == 2 {
		if filter, err = acm.ParseMeasurementFilter(args[1]); err != nil {
			return err
		}
	}

	return withDevice(cmd, func(dev *acm.Device, _ config.ControllerConfig) error {
		out := cmd.OutOrStdout()
		switch len(args) {
		case 0:
			filters, err := dev.MeasurementFilters()
			if err != nil {
				return err
			}
			for i, f := range filters {
				fmt.Fprintf(out, "channel %d: %s\n", i+1, f)
			}
			return nil
		case 1:
			f, err := dev.MeasurementFilter(ch)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "channel %d: %s\n", ch, f)
			return nil
		default:
			got, err := dev.SetMeasurementFilter(ch, filter)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "channel %d: %s\n", ch, got)
			return nil
		}
	})
}

func runCalibration(cmd *cobra.Command, args []string) error {
	ch, err := channelArg(args)
	if err != nil {
		return err
	}

	var factor float64
	if len(args) == 2 {
		if factor, err = parseFactor(args[1]); err != nil {
			return err
		}
	}

	return withDevice(cmd, func(dev *acm.Device, _ config.ControllerConfig) error {
		out := cmd.OutOrStdout()
		switch len(args) {
		case 0:
			factors, err := dev.CalibrationFactors()
			if err != nil {
				return err
			}
			for i, f := range factors {
				fmt.Fprintf(out, "channel %d: %s\n", i+1, formatFactor(f))
			}
			return nil
		case 1:
			f, err := dev.CalibrationFactor(ch)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "channel %d: %s\n", ch, formatFactor(f))
			return nil
		default:
			got, err := dev.SetCalibrationFactor(ch, factor)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "channel %d: %s\n", ch, formatFactor(got))
			return nil
		}
	})
}

// channelArg parses the optional leading CHANNEL argument. It is 0 when absent.
func channelArg(args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	return parseChannel(args[0])
}

func parseFactor(value string) (float64, error) {
	factor, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid calibration factor %q", value)
	}
	if math.IsNaN(factor) || math.IsInf(factor, 0) {
		return 0, &acm.FactorError{Factor: factor}
	}
	return factor, nil
}

func formatFactor(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
