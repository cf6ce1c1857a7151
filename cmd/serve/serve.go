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

package serve

import (
	"context"

	"github.com/spf13/cobra"

	pkgcmd "github.com/nowtech/go-l9945/pkg/cmd"
	"github.com/nowtech/go-l9945/pkg/config"
	"github.com/nowtech/go-l9945/pkg/srv"
)

const (
	IPOptionName      = "ip"
	ApiPortOptionName = "api-port"
)

func NewCommand() *cobra.Command {
	var ip string
	var apiPort int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API daemon in front of the chip",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ip != "" {
				cfg.IP = ip
			}
			if apiPort != 0 {
				cfg.ApiPort = apiPort
			}
			ctx := context.Background()

			bench, err := pkgcmd.NewBench(cfg)
			if err != nil {
				return err
			}
			defer bench.Close()
			if err := bench.Dev.Reset(); err != nil {
				return err
			}

			state, err := srv.NewState(ctx, cfg)
			if err != nil {
				return err
			}
			defer state.Close()

			api, err := srv.NewApiServer(ctx, cfg, bench.Dev, state)
			if err != nil {
				return err
			}
			return api.Run()
		},
	}
	cmd.Flags().StringVar(&ip, IPOptionName, "", "Address to bind. E.g. 192.168.1.2")
	cmd.Flags().IntVar(&apiPort, ApiPortOptionName, 0, "Port number to bind")
	return cmd
}
