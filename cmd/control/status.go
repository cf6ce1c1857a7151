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
	"github.com/spf13/cobra"

	"github.com/nowtech/go-l9945/pkg/client"
	"github.com/nowtech/go-l9945/pkg/config"
)

func NewStatusCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the driver state of the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := client.NewApiClient(cfg)
			status, err := apiClient.Status()
			if err != nil {
				return err
			}
			cmd.Printf("State: %s\nTransport: %s\n", status.State, status.Transport)
			return nil
		},
	}
	return cmd
}
