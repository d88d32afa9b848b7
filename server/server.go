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
	"github.com/pkg/errors"
)

func newError(format string, args ...any) error {
	format = "server: " + format
	return errors.Errorf(format, args...)
}

var (
	// ErrCoreHandlerNotSpecified 构造 server 时没有给 handler 构造期即失败
	ErrCoreHandlerNotSpecified = newError("core handler not specified")
)

// Server 服务端能力定义
//
// 三种调度模型分别独立实现本接口 相互之间没有继承关系
// Run 阻塞运行直至 Shutdown 被调用或者监听 socket 失效
type Server interface {
	// Run 绑定监听并开始服务 正常停机返回 nil
	Run() error

	// Shutdown 停止接收新链接并释放资源
	Shutdown() error
}
