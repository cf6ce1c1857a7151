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

package reset

import (
	"github.com/spf13/cobra"

	pkgcmd "github.com/nowtech/go-l9945/pkg/cmd"
	"github.com/nowtech/go-l9945/pkg/config"
)

func NewCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Pulse the reset line and reload the default register image",
		RunE: func(cmd *cobra.Command, args []string) error {
			bench, err := pkgcmd.NewBench(cfg)
			if err != nil {
				return err
			}
			defer bench.Close()
			return bench.Dev.Reset()
		},
	}
	return cmd
}
