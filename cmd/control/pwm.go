/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package control

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nowtech/go-l9945/pkg/client"
	"github.com/nowtech/go-l9945/pkg/config"
)

func NewPwmCommand() *cobra.Command {
	var bridge, channel uint32
	var value float64
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "pwm",
		Short: "Set the PWM drive of a bridge or a channel through the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := client.NewApiClient(cfg)
			if bridge != 0 && channel != 0 {
				return fmt.Errorf("set either a bridge or a channel, not both")
			}
			if bridge != 0 {
				return apiClient.BridgePwm(bridge, value)
			}
			if channel != 0 {
				return apiClient.ChannelPwm(channel, value)
			}
			return fmt.Errorf("either a bridge or a channel is required")
		},
	}
	cmd.Flags().Uint32Var(&bridge, BridgeOptionName, 0, "Bridge number, 1 or 2")
	cmd.Flags().Uint32Var(&channel, ChannelOptionName, 0, "Channel number, 1 to 8")
	cmd.Flags().Float64Var(&value, PwmOptionName, 0, "Drive value: -1..1 for bridges, 0..1 for channels")
	return cmd
}
