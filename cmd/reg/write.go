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
	"strconv"

	"github.com/spf13/cobra"

	pkgcmd "github.com/nowtech/go-l9945/pkg/cmd"
	"github.com/nowtech/go-l9945/pkg/config"
	"github.com/nowtech/go-l9945/pkg/device"
)

func NewWriteCommand() *cobra.Command {
	var addr, value string
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write a register on the chip",
		RunE: func(cmd *cobra.Command, args []string) error {
			addrInt, err := strconv.ParseUint(addr, 0, 32)
			if err != nil {
				return err
			}
			valueInt, err := strconv.ParseUint(value, 0, 32)
			if err != nil {
				return err
			}
			bench, err := pkgcmd.NewBench(cfg)
			if err != nil {
				return err
			}
			defer bench.Close()
			if err := bench.Dev.Reset(); err != nil {
				return err
			}
			return bench.Dev.WriteRegister(device.Register(addrInt), uint32(valueInt))
		},
	}
	cmd.Flags().StringVar(&addr, AddrOptionName, "", "Register address 0..13")
	cmd.MarkFlagRequired(AddrOptionName)
	cmd.Flags().StringVar(&value, ValueOptionName, "", "Register value (hexadecimal or decimal)")
	cmd.MarkFlagRequired(ValueOptionName)
	return cmd
}
