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
	"sort"

	"github.com/spf13/cobra"

	"github.com/nowtech/go-l9945/pkg/client"
	"github.com/nowtech/go-l9945/pkg/config"
)

func NewReadCommand() *cobra.Command {
	var addr string
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read one or all registers through the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := client.NewApiClient(cfg)
			if addr != "" {
				value, err := apiClient.RegRead(addr)
				if err != nil {
					return err
				}
				cmd.Printf("%s = %s\n", addr, value)
				return nil
			}
			regs, err := apiClient.RegReadAll()
			if err != nil {
				return err
			}
			var keys []string
			for key := range regs {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				cmd.Printf("%s = %s\n", key, regs[key])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, AddrOptionName, "", "Register address 0..13, all registers when omitted")
	return cmd
}

func NewWriteCommand() *cobra.Command {
	var addr, value string
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write a register through the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := client.NewApiClient(cfg)
			return apiClient.RegWrite(addr, value)
		},
	}
	cmd.Flags().StringVar(&addr, AddrOptionName, "", "Register address 0..13")
	cmd.MarkFlagRequired(AddrOptionName)
	cmd.Flags().StringVar(&value, ValueOptionName, "", "Register value (hexadecimal or decimal)")
	cmd.MarkFlagRequired(ValueOptionName)
	return cmd
}
