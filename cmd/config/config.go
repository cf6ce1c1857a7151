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

package config

import (
	"github.com/spf13/cobra"

	pkgconfig "github.com/nowtech/go-l9945/pkg/config"
)

const (
	TransportOptionName  = "transport"
	SpidevPathOptionName = "spidev-path"
	SpeedOptionName      = "spidev-speed"
	IPOptionName         = "ip"
	ApiPortOptionName    = "api-port"
	OverwriteOptionName  = "overwrite"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(NewNewCommand())
	cmd.AddCommand(NewShowCommand())
	return cmd
}

func NewNewCommand() *cobra.Command {
	var transport, spidevPath, ip string
	var speed uint32
	var apiPort int
	var overwrite bool
	cfg := pkgconfig.NewDefaultConfig()
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Write a config file with the default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if transport != "" {
				cfg.Transport = transport
			}
			if spidevPath != "" {
				cfg.Spidev.Path = spidevPath
			}
			if speed != 0 {
				cfg.Spidev.SpeedHz = speed
			}
			if ip != "" {
				cfg.IP = ip
			}
			if apiPort != 0 {
				cfg.ApiPort = apiPort
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return cfg.Persist(overwrite)
		},
	}
	cmd.Flags().StringVar(&transport, TransportOptionName, "", "Transport to the chip. One of: sim, spidev")
	cmd.Flags().StringVar(&spidevPath, SpidevPathOptionName, "", "Spidev device path. E.g. /dev/spidev0.0")
	cmd.Flags().Uint32Var(&speed, SpeedOptionName, 0, "Spidev clock speed in Hz")
	cmd.Flags().StringVar(&ip, IPOptionName, "", "Address the API server binds")
	cmd.Flags().IntVar(&apiPort, ApiPortOptionName, 0, "Port the API server binds")
	cmd.Flags().BoolVar(&overwrite, OverwriteOptionName, false, "Overwrite an existing config file")
	return cmd
}

func NewShowCommand() *cobra.Command {
	cfg := pkgconfig.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Print(cfg.String())
			return nil
		},
	}
	return cmd
}
