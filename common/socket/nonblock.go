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
	"net"
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const listenBacklog = 128

// NBConn 基于原始 fd 的非阻塞 Conn 实现
//
// 读写永不阻塞 内核缓冲区不可用时返回 ErrWouldBlock
// 协作式调度器持有 fd 用于注册 readiness 兴趣
type NBConn struct {
	fd     int
	remote string
}

func (c *NBConn) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(c.fd, p)
		switch err {
		case nil:
			if n == 0 {
				return 0, ErrPeerClosed
			}
			return n, nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return 0, ErrWouldBlock
		}
		return 0, errors.Wrap(err, "socket read")
	}
}

func (c *NBConn) Write(p []byte) (int, error) {
	for {
		n, err := unix.Write(c.fd, p)
		switch err {
		case nil:
			return n, nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return 0, ErrWouldBlock
		case unix.EPIPE:
			return 0, ErrPeerClosed
		}
		return 0, errors.Wrap(err, "socket write")
	}
}

func (c *NBConn) CloseWrite() error {
	return unix.Shutdown(c.fd, unix.SHUT_WR)
}

func (c *NBConn) Close() error {
	return unix.Close(c.fd)
}

func (c *NBConn) RemoteAddr() string {
	return c.remote
}

// FD 返回底层文件描述符 用于 readiness 注册
func (c *NBConn) FD() int {
	return c.fd
}

// NBListener 非阻塞的监听 socket
type NBListener struct {
	fd   int
	addr string
}

// ListenNonBlock 在 addr 上创建非阻塞监听
//
// Accept 出的链接同样处于非阻塞模式
func ListenNonBlock(addr string) (*NBListener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp4", addr)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrap(err, "create socket")
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "set SO_REUSEADDR")
	}

	var sa unix.SockaddrInet4
	sa.Port = tcpAddr.Port
	if ip4 := tcpAddr.IP.To4(); ip4 != nil {
		copy(sa.Addr[:], ip4)
	}
	if err := unix.Bind(fd, &sa); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "bind %s", addr)
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "listen")
	}
	return &NBListener{fd: fd, addr: addr}, nil
}

// Accept 接收下一条链接 无等待链接时返回 ErrWouldBlock
func (l *NBListener) Accept() (*NBConn, error) {
	for {
		nfd, sa, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		switch err {
		case nil:
			return &NBConn{fd: nfd, remote: sockaddrString(sa)}, nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return nil, ErrWouldBlock
		case unix.EBADF:
			return nil, ErrClosed
		}
		return nil, errors.Wrap(err, "socket accept")
	}
}

// FD 返回监听 socket 的文件描述符
func (l *NBListener) FD() int {
	return l.fd
}

// Addr 返回监听地址
func (l *NBListener) Addr() string {
	return l.addr
}

func (l *NBListener) Close() error {
	return unix.Close(l.fd)
}

func sockaddrString(sa unix.Sockaddr) string {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return net.JoinHostPort(net.IP(v.Addr[:]).String(), strconv.Itoa(v.Port))
	case *unix.SockaddrInet6:
		return net.JoinHostPort(net.IP(v.Addr[:]).String(), strconv.Itoa(v.Port))
	}
	return ""
}
