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
	"os"

	"github.com/spf13/cobra"

	"github.com/sockframe/sockframe/common"
	"github.com/sockframe/sockframe/confengine"
	"github.com/sockframe/sockframe/internal/sigs"
	"github.com/sockframe/sockframe/logger"
	"github.com/sockframe/sockframe/server"
)

var rootCmd = &cobra.Command{
	Use:   common.App,
	Short: "Length-prefixed JSON message framing over TCP",
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file path")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadSetup 组装 Settings 与可选的 YAML 配置
//
// 环境变量是基础配置来源 配置文件存在 settings 段时整段生效
// logger 段用于替换默认的 stdout 日志配置
func loadSetup() (*common.Settings, *confengine.Config, error) {
	if configPath == "" {
		settings, err := common.FromEnv()
		return settings, nil, err
	}

	cfg, err := confengine.LoadConfigPath(configPath)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Has("logger") {
		var opts logger.Options
		if err := cfg.UnpackChild("logger", &opts); err != nil {
			return nil, nil, err
		}
		logger.SetOptions(opts)
	}

	if cfg.Has("settings") {
		settings := common.Default()
		if err := cfg.UnpackChild("settings", settings); err != nil {
			return nil, nil, err
		}
		if err := settings.Validate(); err != nil {
			return nil, nil, err
		}
		return settings, cfg, nil
	}

	settings, err := common.FromEnv()
	return settings, cfg, err
}

// runService 启动 server 与可选的管理端 并等待终止信号
func runService(srv server.Server, cfg *confengine.Config) error {
	defer logger.Sync()

	if cfg != nil {
		adm, err := server.NewAdmin(cfg)
		if err != nil {
			return err
		}
		if adm != nil {
			go func() {
				if err := adm.ListenAndServe(); err != nil {
					logger.Errorf("failed to start admin server: %v", err)
				}
			}()
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case <-sigs.Terminate():
		return srv.Shutdown()

	case err := <-errCh:
		return err
	}
}

func exitOnError(err error, format string) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, format+": %v\n", err)
	os.Exit(1)
}
