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

func NewDiagCommand() *cobra.Command {
	var test string
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "diag",
		Short: "Run a diagnostic test through the daemon and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := client.NewApiClient(cfg)
			report, err := apiClient.Diag(test)
			if err != nil {
				return err
			}
			cmd.Print(report)
			return nil
		},
	}
	cmd.Flags().StringVar(&test, TestOptionName, "None", "Test to run. One of: None, Auto, OffPulse, OnPulse, Bist")
	return cmd
}

func NewReportCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the most recent stored diagnostic report",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := client.NewApiClient(cfg)
			report, err := apiClient.LastReport()
			if err != nil {
				return err
			}
			cmd.Print(report)
			return nil
		},
	}
	return cmd
}
