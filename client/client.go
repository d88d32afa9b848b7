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

package client

import (
	"syscall"

	"github.com/pkg/errors"

	"github.com/sockframe/sockframe/common"
	"github.com/sockframe/sockframe/common/socket"
	"github.com/sockframe/sockframe/logger"
	"github.com/sockframe/sockframe/worker"
)

func newError(format string, args ...any) error {
	format = "client: " + format
	return errors.Errorf(format, args...)
}

var (
	// ErrNotConnected 在已建链范围之外调用 send / receive
	ErrNotConnected = newError("calling method for non-connected client")

	// ErrRefused 服务端拒绝建链
	ErrRefused = newError("server refused connection")
)

// Client 阻塞模式的客户端
//
// Connect 建链后 Send / ReceiveOne 复用阻塞 worker 的组帧逻辑
// 退出时必须调用 Close 无论中途是否出错
type Client struct {
	settings *common.Settings
	worker   *worker.Worker
}

// New 创建并返回 Client 实例
func New(settings *common.Settings) *Client {
	return &Client{settings: settings}
}

// Connect 建立到 settings 指定地址的链接
func (c *Client) Connect() error {
	conn, err := socket.Dial(c.settings.Address(), c.settings.SocketTimeout)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			logger.Warnf("the socket server is not responding or is refusing to respond")
			return ErrRefused
		}
		return newError("connect %s: %v", c.settings.Address(), err)
	}

	c.worker = worker.New(conn, c.settings)
	return nil
}

// Connected 返回是否处于已建链状态
func (c *Client) Connected() bool {
	return c.worker != nil
}

// Send 发送一条消息
func (c *Client) Send(v any) error {
	if c.worker == nil {
		return ErrNotConnected
	}
	return c.worker.Send(v)
}

// ReceiveOne 接收一条消息
func (c *Client) ReceiveOne() (any, error) {
	if c.worker == nil {
		return nil, ErrNotConnected
	}
	return c.worker.ReceiveOne()
}

// Close 关闭链接 可重复调用
func (c *Client) Close() {
	if c.worker == nil {
		return
	}
	c.worker.Disconnect()
	c.worker = nil
}

// WithConnection 在一次建链范围内执行 fn 退出时保证关闭链接
func (c *Client) WithConnection(fn func(c *Client) error) error {
	if err := c.Connect(); err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}
