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

var enableCmd = &cobra.Command{
	Use:   "enable [CHANNEL...]",
	Short: "Switch gauge channels on",
	Long: `Switch one or more gauge channels on. Other channels keep their state.
Channels without a connected gauge are left untouched.

Example:
  gaugelink enable 2             # Switch channel 2 on
  gaugelink enable --all         # Switch every channel on`,
	RunE: runEnable,
}

var disableCmd = &cobra.Command{
	Use:   "disable CHANNEL...",
	Short: "Switch gauge channels off",
	Long: `Switch one or more gauge channels off. Other channels keep their state.

Example:
  gaugelink disable 4`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDisable,
}

func init() {
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)

	enableCmd.Flags().Bool("all", false, "switch on every channel")
}

func runEnable(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	if all {
		if len(args) > 0 {
			return fmt.Errorf("--all takes no channel arguments")
		}
		return withDevice(cmd, func(dev *acm.Device, _ config.ControllerConfig) error {
			if err := dev.EnableSensors(); err != nil {
				return err
			}
			return printEnableStates(cmd, dev)
		})
	}

	if len(args) == 0 {
		return fmt.Errorf("at least one channel or --all is required")
	}
	return switchChannels(cmd, args, (*acm.Device).Enable)
}

func runDisable(cmd *cobra.Command, args []string) error {
	return switchChannels(cmd, args, (*acm.Device).Disable)
}

func switchChannels(cmd *cobra.Command, args []string, fn func(*acm.Device, int) (acm.EnableState, error)) error {
	channels, err := parseChannels(args)
	if err != nil {
		return err
	}

	return withDevice(cmd, func(dev *acm.Device, _ config.ControllerConfig) error {
		for _, ch := range channels {
			state, err := fn(dev, ch)
			if err != nil {
				return fmt.Errorf("channel %d: %w", ch, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "channel %d: %s\n", ch, state)
		}
		return nil
	})
}

func printEnableStates(cmd *cobra.Command, dev *acm.Device) error {
	states, err := dev.EnableStates()
	if err != nil {
		return err
	}
	for i, s := range states {
		fmt.Fprintf(cmd.OutOrStdout(), "channel %d: %s\n", i+1, s)
	}
	return nil
}
