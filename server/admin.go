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

package server

import (
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sockframe/sockframe/common"
	"github.com/sockframe/sockframe/confengine"
	"github.com/sockframe/sockframe/logger"
)

// AdminConfig 管理端 HTTP 服务配置
type AdminConfig struct {
	Enabled bool          `config:"enabled"`
	Address string        `config:"address"`
	Pprof   bool          `config:"pprof"`
	Timeout time.Duration `config:"timeout"`
}

// Admin 管理端 HTTP 服务 暴露指标与运维入口
type Admin struct {
	config AdminConfig
	router *mux.Router
	server *http.Server
}

// NewAdmin 创建并返回 Admin 实例
//
// 配置中没有 admin 段或者 .Enabled 为 false 时会返回空指针 调用方需先判断
func NewAdmin(conf *confengine.Config) (*Admin, error) {
	if !conf.Has("admin") {
		return nil, nil
	}

	var config AdminConfig
	if err := conf.UnpackChild("admin", &config); err != nil {
		return nil, err
	}
	if !config.Enabled {
		return nil, nil
	}

	router := mux.NewRouter()
	a := &Admin{
		config: config,
		router: router,
		server: &http.Server{
			Handler:      router,
			ReadTimeout:  config.Timeout,
			WriteTimeout: config.Timeout,
		},
	}
	a.registerRoutes()
	return a, nil
}

func (a *Admin) ListenAndServe() error {
	l, err := net.Listen("tcp", a.config.Address)
	if err != nil {
		return err
	}
	logger.Infof("admin server listening on %s", a.config.Address)
	return a.server.Serve(l)
}

func (a *Admin) registerRoutes() {
	// Metric Routes
	a.router.Methods(http.MethodGet).Path("/metrics").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uptime.Set(float64(time.Now().Unix() - common.Started()))
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Admin Routes
	a.router.Methods(http.MethodPost).Path("/-/logger").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		level := r.FormValue("level")
		logger.SetLoggerLevel(level)
		w.Write([]byte(`{"status": "success"}`))
	})

	if a.config.Pprof {
		a.router.Methods(http.MethodGet).Path("/debug/pprof/cmdline").HandlerFunc(pprof.Cmdline)
		a.router.Methods(http.MethodGet).Path("/debug/pprof/profile").HandlerFunc(pprof.Profile)
		a.router.Methods(http.MethodGet).Path("/debug/pprof/symbol").HandlerFunc(pprof.Symbol)
		a.router.Methods(http.MethodGet).Path("/debug/pprof/trace").HandlerFunc(pprof.Trace)
		a.router.Methods(http.MethodGet).Path("/debug/pprof/{other}").HandlerFunc(pprof.Index)
	}
}
