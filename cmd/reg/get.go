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

package reg

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nowtech/go-l9945/pkg/config"
	"github.com/nowtech/go-l9945/pkg/device"
	"github.com/nowtech/go-l9945/pkg/srv"
)

func NewGetCommand() *cobra.Command {
	var addr string
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get the last persisted register value without touching the chip",
		RunE: func(cmd *cobra.Command, args []string) error {
			addrInt, err := strconv.ParseUint(addr, 0, 32)
			if err != nil {
				return err
			}
			reg := device.Register(addrInt)
			if err := reg.Validate(); err != nil {
				return err
			}
			state, err := srv.NewState(context.Background(), cfg)
			if err != nil {
				return err
			}
			defer state.Close()
			value, err := state.GetReg(reg)
			if err != nil {
				return err
			}
			cmd.Printf("%#x = %#010x\n", uint32(reg), value)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, AddrOptionName, "", "Register address 0..13")
	cmd.MarkFlagRequired(AddrOptionName)
	return cmd
}
