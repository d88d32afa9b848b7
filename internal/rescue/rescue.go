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

package rescue

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sockframe/sockframe/common"
	"github.com/sockframe/sockframe/logger"
)

var panicTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: common.App,
		Name:      "panic_total",
		Help:      "program causes panic total",
	},
	[]string{"scope"},
)

// PanicHandlers panic 处理链 scope 标识事故现场
//
// 一条链接的 panic 只应终结该链接的 worker 不应拖垮整个调度器
// 各调度器以自己的模式名作为 scope 便于在指标上区分事故来源
var PanicHandlers = []func(scope string, r any){
	incPanicCounter,
	logPanic,
}

func incPanicCounter(scope string, _ any) {
	panicTotal.WithLabelValues(scope).Inc()
}

func logPanic(scope string, r any) {
	const size = 64 << 10
	stacktrace := make([]byte, size)
	stacktrace = stacktrace[:runtime.Stack(stacktrace, false)]
	if _, ok := r.(string); ok {
		logger.Errorf("Observed a panic in %s: %s\n%s", scope, r, stacktrace)
	} else {
		logger.Errorf("Observed a panic in %s: %#v (%v)\n%s", scope, r, r, stacktrace)
	}
}

// HandleCrash 捕获当前协程的 panic 并交给处理链
func HandleCrash(scope string) {
	if r := recover(); r != nil {
		for _, fn := range PanicHandlers {
			fn(scope, r)
		}
	}
}
