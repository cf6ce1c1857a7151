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

func NewReadCommand() *cobra.Command {
	var addr string
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read one or all registers from the chip",
		RunE: func(cmd *cobra.Command, args []string) error {
			bench, err := pkgcmd.NewBench(cfg)
			if err != nil {
				return err
			}
			defer bench.Close()
			if err := bench.Dev.Reset(); err != nil {
				return err
			}
			if addr != "" {
				addrInt, err := strconv.ParseUint(addr, 0, 32)
				if err != nil {
					return err
				}
				value, err := bench.Dev.ReadRegister(device.Register(addrInt))
				if err != nil {
					return err
				}
				cmd.Printf("%#x = %#010x\n", uint32(addrInt), value)
				return nil
			}
			if err := bench.Dev.ReadAll(); err != nil {
				return err
			}
			for r := device.Register(0); r < device.RegisterCount; r++ {
				value, _ := bench.Dev.Cached(r)
				cmd.Printf("%#x = %#010x\n", uint32(r), value)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, AddrOptionName, "", "Register address 0..13, all registers when omitted")
	return cmd
}
