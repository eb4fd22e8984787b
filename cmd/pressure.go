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
	"strconv"
	"text/tabwriter"

	"github.com/Shoaibashk/GaugeLink/config"
	"github.com/Shoaibashk/GaugeLink/internal/acm"
	"github.com/spf13/cobra"
)

var pressureCmd = &cobra.Command{
	Use:   "pressure [CHANNEL...]",
	Short: "Read gauge pressures",
	Long: `Read the pressure and gauge status of one or more channels.

Without arguments all six channels are read. Values are shown in the
controller's display unit and in Pa.

Example:
  gaugelink pressure                 # All channels
  gaugelink pressure 1 3             # Channels 1 and 3
  gaugelink pressure 2 --strict      # Fail unless channel 2 reads ok
  gaugelink pressure --json          # Output as JSON`,
	RunE: runPressure,
}

func init() {
	rootCmd.AddCommand(pressureCmd)

	pressureCmd.Flags().Bool("json", false, "output in JSON format")
	pressureCmd.Flags().Bool("strict", false, "fail when a channel status is not ok")
}

func runPressure(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	strict, _ := cmd.Flags().GetBool("strict")

	channels, err := parseChannels(args)
	if err != nil {
		return err
	}

	return withDevice(cmd, func(dev *acm.Device, _ config.ControllerConfig) error {
		unit, err := dev.Units()
		if err != nil {
			return fmt.Errorf("failed to read units: %w", err)
		}

		readings := make([]acm.PressureReading, 0, len(channels))
		for _, ch := range channels {
			r, err := dev.Reading(ch, &unit)
			if err != nil {
				return fmt.Errorf("failed to read channel %d: %w", ch, err)
			}
			if strict && r.Status != acm.StatusOK {
				return &acm.GaugeStatusError{Channel: ch, Status: r.Status}
			}
			readings = append(readings, r)
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), readings)
		}
		return printPressureTable(cmd, readings)
	})
}

func printPressureTable(cmd *cobra.Command, readings []acm.PressureReading) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHANNEL\tSTATUS\tVALUE\tUNIT\tPA")
	for _, r := range readings {
		fmt.Fprintf(w, "%d\t%s\t%.4E\t%s\t%.4E\n", r.Channel, r.Status, r.Raw, r.Unit, r.Pascal)
	}
	return w.Flush()
}

// parseChannels parses channel arguments; none means all channels
func parseChannels(args []string) ([]int, error) {
	if len(args) == 0 {
		all := make([]int, acm.Channels)
		for i := range all {
			all[i] = i + 1
		}
		return all, nil
	}

	channels := make([]int, 0, len(args))
	for _, arg := range args {
		ch, err := parseChannel(arg)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

func parseChannel(arg string) (int, error) {
	ch, err := strconv.Atoi(arg)
	if err != nil || ch < 1 || ch > acm.Channels {
		return 0, fmt.Errorf("%w: %q", acm.ErrInvalidChannel, arg)
	}
	return ch, nil
}
