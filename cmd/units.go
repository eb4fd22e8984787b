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

	"github.com/Shoaibashk/GaugeLink/config"
	"github.com/Shoaibashk/GaugeLink/internal/acm"
	"github.com/spf13/cobra"
)

var unitsCmd = &cobra.Command{
	Use:   "units [mbar|torr|pa]",
	Short: "Get or set the display unit",
	Long: `Get or set the pressure unit the controller displays and reports in.

Example:
  gaugelink units                # Show the current unit
  gaugelink units torr           # Switch the display to Torr`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUnits,
}

func init() {
	rootCmd.AddCommand(unitsCmd)
}

func runUnits(cmd *cobra.Command, args []string) error {
	var target *acm.Unit
	if len(args) == 1 {
		u, err := acm.ParseUnit(args[0])
		if err != nil {
			return err
		}
		target = &u
	}

	return withDevice(cmd, func(dev *acm.Device, ctrl config.ControllerConfig) error {
		if target == nil {
			u, err := dev.Units()
			if err != nil {
				return fmt.Errorf("failed to read units: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		}

		u, err := dev.SetUnits(*target)
		if err != nil {
			return fmt.Errorf("failed to set units: %w", err)
		}
		if IsVerbose() {
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s display unit to %s\n", ctrl.Name, u)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), u)
		}
		return nil
	})
}
