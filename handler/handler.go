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

package handler

import (
	"github.com/sockframe/sockframe/logger"
	"github.com/sockframe/sockframe/worker"
)

// Handler 阻塞模式下的处理器能力
//
// 实现方拿到 worker 后注册回调并驱动其运行 直至链接结束
// handler 与链接的交互只允许通过 worker 的 Send / 回调进行
type Handler interface {
	// Handle 绑定并驱动 worker 返回时链接已经结束
	Handle(w *worker.Worker) error
}

// CoHandler 协作模式下的处理器能力
//
// Bind 在 worker 上注册回调 返回后 worker 即成为可调度的任务
// 回调内通过 Send 排入回复 以此把控制让回调度器
type CoHandler interface {
	Bind(w *worker.Resumable)
}

// Echo 将收到的消息原样发回的处理器
//
// 同时实现阻塞与协作两种能力
type Echo struct{}

// NewEcho 创建并返回 Echo 实例
func NewEcho() *Echo {
	return &Echo{}
}

// Handle 阻塞模式 绑定回调后驱动 worker 直至链接结束
func (e *Echo) Handle(w *worker.Worker) error {
	w.SetOnMessage(func(v any) {
		logger.Infof("got message %v in handler", v)
		if err := w.Send(v); err != nil {
			logger.Errorf("failed to echo message to %s: %v", w.RemoteAddr(), err)
		}
	})
	return w.Run()
}

// Bind 协作模式 注册回调 worker 的推进由调度器负责
func (e *Echo) Bind(w *worker.Resumable) {
	w.SetOnMessage(func(v any) {
		logger.Infof("got message %v in handler", v)
		if err := w.Send(v); err != nil {
			logger.Errorf("failed to echo message to %s: %v", w.RemoteAddr(), err)
		}
	})
}
