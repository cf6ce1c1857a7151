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

package diag

import (
	"github.com/spf13/cobra"

	pkgcmd "github.com/nowtech/go-l9945/pkg/cmd"
	"github.com/nowtech/go-l9945/pkg/config"
	"github.com/nowtech/go-l9945/pkg/device"
)

const (
	TestOptionName = "test"
)

func NewCommand() *cobra.Command {
	var test string
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "diag",
		Short: "Run a diagnostic test over the configured transport and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := device.ParseTest(test)
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
			result, err := bench.Dev.Diagnose(t)
			if err != nil {
				return err
			}
			return device.WriteReport(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&test, TestOptionName, "None", "Test to run. One of: None, Auto, OffPulse, OnPulse, Bist")
	return cmd
}
