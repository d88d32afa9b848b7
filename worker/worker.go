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

package worker

import (
	"github.com/pkg/errors"

	"github.com/sockframe/sockframe/common"
	"github.com/sockframe/sockframe/common/socket"
	"github.com/sockframe/sockframe/frame"
	"github.com/sockframe/sockframe/internal/bytequeue"
	"github.com/sockframe/sockframe/logger"
)

func newError(format string, args ...any) error {
	format = "worker: " + format
	return errors.Errorf(format, args...)
}

var (
	// ErrOnMessageNotSet run 观察到消息时回调尚未配置 属于编程错误
	ErrOnMessageNotSet = newError("on_message effect not set")

	// ErrShortRead 对端在一帧中间关闭 帧无法完整
	ErrShortRead = newError("peer closed inside a frame")
)

// maxDelimitedHeader 定界符模式下头部的扫描上限
//
// 合法头部只有十进制数字 + 终结序列 超过该长度仍未见到终结序列
// 即可断定头部已经损坏 不必继续读
const maxDelimitedHeader = 1024

// Worker 阻塞模式下单条链接的消息装配线
//
// 独占持有 socket 与接收缓冲区 逐帧读出消息交给 on_message 回调
// handler 通过注入回调的方式与 Worker 交互 并使用 Send 发送回复
type Worker struct {
	conn     socket.Conn
	settings *common.Settings
	buf      *bytequeue.Queue

	onMessage func(v any)
	onConnect func()
}

// New 创建并返回 Worker 实例
func New(conn socket.Conn, settings *common.Settings) *Worker {
	return &Worker{
		conn:     conn,
		settings: settings,
		buf:      bytequeue.New(),
	}
}

// SetOnMessage 注册消息回调
func (w *Worker) SetOnMessage(fn func(v any)) {
	w.onMessage = fn
}

// SetOnConnect 注册建链回调
func (w *Worker) SetOnConnect(fn func()) {
	w.onConnect = fn
}

// RemoteAddr 返回对端地址
func (w *Worker) RemoteAddr() string {
	return w.conn.RemoteAddr()
}

// Send 将 value 编码为一帧并完整写出
//
// 会循环写直至每个字节都被 socket 接受 阻塞行为与 socket 一致
func (w *Worker) Send(v any) error {
	msg, err := frame.Make(v, w.settings)
	if err != nil {
		return err
	}
	logger.Debugf("sending message (%d bytes) to %s", len(msg), w.conn.RemoteAddr())

	var sent int
	for sent < len(msg) {
		n, err := w.conn.Write(msg[sent:])
		if err != nil {
			return err
		}
		sent += n
	}
	sentMessagesTotal.Inc()
	return nil
}

// ReceiveOne 读取并返回恰好一个完整消息
//
// 按头部格式先取头部再取 payload 多读出的字节放回接收缓冲区
func (w *Worker) ReceiveOne() (any, error) {
	var header []byte
	var err error

	switch w.settings.HeaderType {
	case common.HeaderTypeFixedLength:
		header, err = w.receiveN(w.settings.HeaderLength)
		if err != nil {
			return nil, err
		}
		header = frame.TrimPadding(header)
	default:
		header, err = w.receiveDelimited()
		if err != nil {
			return nil, err
		}
	}

	length, err := frame.ParseLength(header)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if length > 0 {
		payload, err = w.receiveN(length)
		if err != nil {
			// 头部已经取到 此处对端关闭意味着帧被截断
			if errors.Is(err, socket.ErrPeerClosed) {
				return nil, ErrShortRead
			}
			return nil, err
		}
	}

	v, err := frame.Parse(payload)
	if err != nil {
		return nil, err
	}
	receivedMessagesTotal.Inc()
	return v, nil
}

// Run 驱动链接直至其结束
//
// 可选地触发 on_connect 然后循环 接收一个消息交给 on_message
// 对端关闭与超时属于正常退出 其余错误向调用方透出
func (w *Worker) Run() error {
	if w.onConnect != nil {
		w.onConnect()
	}

	for {
		v, err := w.ReceiveOne()
		if err != nil {
			w.Disconnect()
			switch {
			case errors.Is(err, socket.ErrPeerClosed):
				logger.Debugf("peer %s closed connection", w.conn.RemoteAddr())
				return nil
			case errors.Is(err, socket.ErrTimeout):
				logger.Debugf("connection %s idle timeout", w.conn.RemoteAddr())
				return nil
			}
			return err
		}

		if w.onMessage == nil {
			w.Disconnect()
			return ErrOnMessageNotSet
		}
		w.onMessage(v)
	}
}

// Disconnect 半关闭写方向后关闭 socket
//
// 接收缓冲区中残留的字节不再属于任何帧 一并丢弃
func (w *Worker) Disconnect() {
	if n := w.buf.Drain(); n > 0 {
		logger.Debugf("discarding %d unconsumed bytes from %s", n, w.conn.RemoteAddr())
	}
	w.conn.CloseWrite()
	w.conn.Close()
}

// receiveN 获取恰好 n 个字节
//
// 优先从接收缓冲区取 缓冲区不足时向 socket 要剩余的部分
func (w *Worker) receiveN(n int) ([]byte, error) {
	collected := make([]byte, 0, n)
	for len(collected) < n {
		if !w.buf.Empty() {
			collected = append(collected, w.buf.TakeUpTo(n-len(collected))...)
			continue
		}

		p := make([]byte, n-len(collected))
		k, err := w.conn.Read(p)
		if err != nil {
			if errors.Is(err, socket.ErrPeerClosed) && len(collected) > 0 {
				return nil, ErrShortRead
			}
			return nil, err
		}
		collected = append(collected, p[:k]...)
	}
	return collected, nil
}

// receiveDelimited 读取定界符模式的头部
//
// 终结序列之后的字节属于下一帧 放回缓冲区队首
func (w *Worker) receiveDelimited() ([]byte, error) {
	term := w.settings.TerminatorBytes()

	var collected []byte
	for {
		header, rest, found := frame.CutHeader(collected, term)
		if found {
			w.buf.PushFront(rest)
			return header, nil
		}
		if len(collected) > maxDelimitedHeader {
			return nil, frame.ErrMalformedHeader
		}

		if !w.buf.Empty() {
			collected = append(collected, w.buf.TakeUpTo(w.settings.ChunkSize)...)
			continue
		}

		p := make([]byte, w.settings.ChunkSize)
		k, err := w.conn.Read(p)
		if err != nil {
			if errors.Is(err, socket.ErrPeerClosed) && len(collected) > 0 {
				return nil, ErrShortRead
			}
			return nil, err
		}
		collected = append(collected, p[:k]...)
	}
}
