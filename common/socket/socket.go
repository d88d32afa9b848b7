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

package socket

import (
	"github.com/pkg/errors"
)

func newError(format string, args ...any) error {
	format = "common/socket: " + format
	return errors.Errorf(format, args...)
}

var (
	// ErrWouldBlock 非阻塞操作暂时不可执行 稍后重试
	//
	// 对应 EAGAIN / EWOULDBLOCK 协作式 worker 以此为挂起信号
	ErrWouldBlock = newError("operation would block")

	// ErrPeerClosed 对端有序关闭 表现为零长度读
	//
	// 属于正常的终止信号而非错误
	ErrPeerClosed = newError("peer closed socket")

	// ErrTimeout 阻塞操作超出 socket_timeout
	ErrTimeout = newError("socket operation timed out")

	// ErrClosed socket 已经在本端关闭
	ErrClosed = newError("socket closed")
)

// Conn 一条已建立链接的读写能力
//
// 阻塞实现由 net.Conn 加超时包装而来 非阻塞实现基于原始 fd
// 两种实现的错误语义一致 worker 无需感知底层差异
//
// Conn 由单个 worker 独占 不允许并发读写
type Conn interface {
	// Read 读取至多 len(p) 个字节
	//
	// 对端有序关闭返回 ErrPeerClosed 非阻塞实现在无数据可读时返回 ErrWouldBlock
	Read(p []byte) (int, error)

	// Write 写入 p 中的字节 可能出现短写 返回实际写入的长度
	Write(p []byte) (int, error)

	// CloseWrite 半关闭 停止写方向
	CloseWrite() error

	// Close 关闭 socket
	Close() error

	// RemoteAddr 返回对端地址的字符串表示
	RemoteAddr() string
}
