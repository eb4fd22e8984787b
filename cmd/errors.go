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

var errorsCmd = &cobra.Command{
	Use:   "errors",
	Short: "Show or clear controller errors",
	Long: `Show the controller's current error list. With --reset the list is
printed as it was and then cleared.

Example:
  gaugelink errors
  gaugelink errors --reset`,
	Args: cobra.NoArgs,
	RunE: runErrors,
}

func init() {
	rootCmd.AddCommand(errorsCmd)

	errorsCmd.Flags().Bool("reset", false, "clear the error list after reading it")
	errorsCmd.Flags().Bool("json", false, "output in JSON format")
}

func runErrors(cmd *cobra.Command, args []string) error {
	reset, _ := cmd.Flags().GetBool("reset")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	return withDevice(cmd, func(dev *acm.Device, _ config.ControllerConfig) error {
		read := dev.CurrentErrors
		if reset {
			read = dev.ResetErrors
		}

		codes, err := read()
		if err != nil {
			return fmt.Errorf("failed to read errors: %w", err)
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), codes)
		}
		for _, c := range codes {
			fmt.Fprintf(cmd.OutOrStdout(), "%2d  %s\n", int(c), c)
		}
		return nil
	})
}
