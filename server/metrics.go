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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sockframe/sockframe/common"
)

var (
	uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "uptime",
			Help:      "process uptime in seconds",
		},
	)

	acceptedConnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Subsystem: "server",
			Name:      "accepted_connections_total",
			Help:      "accepted connections total",
		},
		[]string{"mode"},
	)

	activeWorkers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Subsystem: "server",
			Name:      "active_workers",
			Help:      "currently live connection workers",
		},
		[]string{"mode"},
	)

	workerErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Subsystem: "server",
			Name:      "worker_errors_total",
			Help:      "workers terminated by unexpected errors total",
		},
		[]string{"mode"},
	)

	schedulerStepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Subsystem: "server",
			Name:      "scheduler_steps_total",
			Help:      "cooperative scheduler task steps total",
		},
		[]string{"mode"},
	)
)

const (
	modeThreadPool = "threadpool"
	modeBusyLoop   = "busyloop"
	modeReadiness  = "readiness"
)
