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
	"time"

	"github.com/Shoaibashk/GaugeLink/config"
	"github.com/Shoaibashk/GaugeLink/internal/acm"
	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the controller answers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(cmd, func(dev *acm.Device, ctrl config.ControllerConfig) error {
			start := time.Now()
			if err := dev.Ping(); err != nil {
				return fmt.Errorf("controller %s on %s did not answer: %w", ctrl.Name, ctrl.Port, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s on %s: ok (%s)\n", ctrl.Name, ctrl.Port, time.Since(start).Round(time.Millisecond))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
}
