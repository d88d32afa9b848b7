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
	"io"
	"net"
	"time"

	"github.com/pkg/errors"
)

// timeoutConn 带逐操作超时的阻塞 Conn 实现
//
// timeout 为 0 时不设置 deadline 读写与底层 net.Conn 行为一致
type timeoutConn struct {
	conn    net.Conn
	timeout time.Duration
}

// Dial 建立到 addr 的 TCP 链接
//
// timeout 同时约束建链和后续的每一次读写
func Dial(addr string, timeout time.Duration) (Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	return &timeoutConn{conn: conn, timeout: timeout}, nil
}

func (c *timeoutConn) Read(p []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}

	n, err := c.conn.Read(p)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF):
		if n > 0 {
			return n, nil
		}
		return 0, ErrPeerClosed
	case isTimeout(err):
		return n, ErrTimeout
	case errors.Is(err, net.ErrClosed):
		return n, ErrClosed
	}
	return n, errors.Wrap(err, "socket read")
}

func (c *timeoutConn) Write(p []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}

	n, err := c.conn.Write(p)
	switch {
	case err == nil:
		return n, nil
	case isTimeout(err):
		return n, ErrTimeout
	case errors.Is(err, net.ErrClosed):
		return n, ErrClosed
	}
	return n, errors.Wrap(err, "socket write")
}

func (c *timeoutConn) CloseWrite() error {
	if tc, ok := c.conn.(*net.TCPConn); ok {
		return tc.CloseWrite()
	}
	return nil
}

func (c *timeoutConn) Close() error {
	return c.conn.Close()
}

func (c *timeoutConn) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Listener 阻塞模式的监听 socket
//
// timeout 约束单次 Accept 的等待时间 超时返回 ErrTimeout 由调用方决定是否重试
type Listener struct {
	ln      *net.TCPListener
	timeout time.Duration
}

// Listen 在 addr 上创建监听
func Listen(addr string, timeout time.Duration) (*Listener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}
	ln, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln, timeout: timeout}, nil
}

// Accept 等待并返回下一条链接
func (l *Listener) Accept() (Conn, error) {
	if l.timeout > 0 {
		if err := l.ln.SetDeadline(time.Now().Add(l.timeout)); err != nil {
			return nil, err
		}
	}

	conn, err := l.ln.AcceptTCP()
	switch {
	case err == nil:
		return &timeoutConn{conn: conn, timeout: l.timeout}, nil
	case isTimeout(err):
		return nil, ErrTimeout
	case errors.Is(err, net.ErrClosed):
		return nil, ErrClosed
	}
	return nil, errors.Wrap(err, "socket accept")
}

// Addr 返回实际监听地址
func (l *Listener) Addr() string {
	return l.ln.Addr().String()
}

func (l *Listener) Close() error {
	return l.ln.Close()
}
