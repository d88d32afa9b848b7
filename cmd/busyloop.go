// Copyright 2025 The sockframe Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sockframe/sockframe/handler"
	"github.com/sockframe/sockframe/server"
)

var busyloopCmd = &cobra.Command{
	Use:   "busyloop",
	Short: "Run the busy-polled cooperative echo server",
	Run: func(cmd *cobra.Command, args []string) {
		settings, cfg, err := loadSetup()
		exitOnError(err, "failed to load settings")

		srv, err := server.NewBusyLoop(settings, handler.NewEcho())
		exitOnError(err, "failed to create server")

		exitOnError(runService(srv, cfg), "server terminated")
	},
	Example: "# sockframe busyloop",
}

func init() {
	rootCmd.AddCommand(busyloopCmd)
}
