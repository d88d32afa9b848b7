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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sockframe/sockframe/common"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := common.GetBuildInfo()
		if info.Version == "" {
			info.Version = common.Version
		}
		fmt.Printf("version: %s\n", info.Version)
		if info.GitHash != "" {
			fmt.Printf("git hash: %s\n", info.GitHash)
		}
		if info.Time != "" {
			fmt.Printf("build time: %s\n", info.Time)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
