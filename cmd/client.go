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

	"github.com/sockframe/sockframe/client"
	"github.com/sockframe/sockframe/logger"
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Connect to the server and exchange two demo messages",
	Run: func(cmd *cobra.Command, args []string) {
		settings, _, err := loadSetup()
		exitOnError(err, "failed to load settings")

		c := client.New(settings)
		err = c.WithConnection(func(c *client.Client) error {
			if err := c.Send("whatever"); err != nil {
				return err
			}
			response, err := c.ReceiveOne()
			if err != nil {
				return err
			}
			logger.Infof("%v", response)

			if err := c.Send("another message"); err != nil {
				return err
			}
			response, err = c.ReceiveOne()
			if err != nil {
				return err
			}
			logger.Infof("%v", response)
			return nil
		})
		exitOnError(err, "client session failed")
	},
	Example: "# sockframe client",
}

func init() {
	rootCmd.AddCommand(clientCmd)
}
