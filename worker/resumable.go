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

// StepKind 单步推进的结果类型
type StepKind uint8

const (
	// StepProgressed 本步完成了一次实际推进 收完一帧或者发完一帧
	StepProgressed StepKind = iota

	// StepSuspendedRead socket 读返回 would-block 在读点挂起
	StepSuspendedRead

	// StepSuspendedWrite socket 写返回 would-block 在写点挂起
	StepSuspendedWrite

	// StepDone 对端有序关闭 任务正常终止
	StepDone

	// StepFailed 组帧错误或者意料之外的 socket 错误 任务异常终止
	StepFailed
)

func (k StepKind) String() string {
	switch k {
	case StepProgressed:
		return "progressed"
	case StepSuspendedRead:
		return "suspended_read"
	case StepSuspendedWrite:
		return "suspended_write"
	case StepDone:
		return "done"
	case StepFailed:
		return "failed"
	}
	return "unknown"
}

// Step 一次推进的结果 Err 仅在 StepFailed 时有值
type Step struct {
	Kind StepKind
	Err  error
}

// stage 接收状态机所处的阶段
type stage uint8

const (
	stageHeader stage = iota
	stagePayload
)

// Resumable 可挂起的连接 worker
//
// 与 Worker 的外部契约一致 但所有 socket 操作都以非阻塞方式执行
// 每个 would-block 点都是一个挂起点 调度器通过反复调用 Step 推进计算
//
// 跨挂起保留的状态 当前帧所处阶段 该阶段已收集的字节
// 解析出的 payload 长度 以及接收缓冲区
// 解析与组帧等纯 CPU 工作总是在单步之内完成 不构成挂起点
//
// 设计参考了流式协议解析器的做法 状态寄存在结构体字段上
// 任何一步都可以在 socket 边界中断 下一步从中断处继续
type Resumable struct {
	conn     socket.Conn
	settings *common.Settings
	buf      *bytequeue.Queue

	onMessage func(v any)
	onConnect func()
	started   bool

	// 接收状态机
	stage     stage
	collected []byte
	want      int

	// msg 最近一次解析出的消息
	msg any

	// out 已编码但尚未写完的出站字节
	out []byte
}

// NewResumable 创建并返回 Resumable 实例
//
// conn 必须处于非阻塞模式 否则 Step 会在 socket 上卡住
func NewResumable(conn socket.Conn, settings *common.Settings) *Resumable {
	return &Resumable{
		conn:     conn,
		settings: settings,
		buf:      bytequeue.New(),
	}
}

// SetOnMessage 注册消息回调
func (r *Resumable) SetOnMessage(fn func(v any)) {
	r.onMessage = fn
}

// SetOnConnect 注册建链回调
func (r *Resumable) SetOnConnect(fn func()) {
	r.onConnect = fn
}

// RemoteAddr 返回对端地址
func (r *Resumable) RemoteAddr() string {
	return r.conn.RemoteAddr()
}

// Message 返回最近一次解析出的消息
func (r *Resumable) Message() any {
	return r.msg
}

// Send 将 value 编码后排入出站队列
//
// 实际的写出由 Step 完成 回调中排入的回复在回调返回后的同一步内即尝试写出
// 写不动时在写点挂起 handler 以此向调度器让出控制
// 仅编码错误会立即返回
func (r *Resumable) Send(v any) error {
	msg, err := frame.Make(v, r.settings)
	if err != nil {
		return err
	}
	r.out = append(r.out, msg...)
	sentMessagesTotal.Inc()
	return nil
}

// Close 关闭底层 socket 调度器丢弃任务时调用
//
// 接收缓冲区中残留的字节不再属于任何帧 一并丢弃
func (r *Resumable) Close() {
	if n := r.buf.Drain(); n > 0 {
		logger.Debugf("discarding %d unconsumed bytes from %s", n, r.conn.RemoteAddr())
	}
	r.conn.CloseWrite()
	r.conn.Close()
}

// Step 推进计算一步
//
// 推进到下一个 would-block 点 或者完成一次接收/发送 或者终止
// 对端有序关闭映射为 StepDone 其余 socket 错误映射为 StepFailed
func (r *Resumable) Step() Step {
	if !r.started {
		r.started = true
		if r.onConnect != nil {
			r.onConnect()
		}
	}

	// 优先清空上一步没写完的出站字节 一帧写出完成即一步完成
	if len(r.out) > 0 {
		if st := r.flush(); st != nil {
			return *st
		}
		return Step{Kind: StepProgressed}
	}

	for {
		switch r.stage {
		case stageHeader:
			header, ok, err := r.takeHeader()
			if err != nil {
				return Step{Kind: StepFailed, Err: err}
			}
			if !ok {
				if st := r.readMore(); st != nil {
					return *st
				}
				continue
			}

			length, err := frame.ParseLength(header)
			if err != nil {
				return Step{Kind: StepFailed, Err: err}
			}
			r.want = length
			r.collected = nil
			r.stage = stagePayload

		case stagePayload:
			if len(r.collected) < r.want {
				if st := r.readMore(); st != nil {
					return *st
				}
				continue
			}

			v, err := frame.Parse(r.collected[:r.want])
			if err != nil {
				return Step{Kind: StepFailed, Err: err}
			}
			r.collected = nil
			r.want = 0
			r.stage = stageHeader
			r.msg = v
			receivedMessagesTotal.Inc()

			if r.onMessage == nil {
				return Step{Kind: StepFailed, Err: ErrOnMessageNotSet}
			}
			r.onMessage(v)

			// handler 可能已经排入回复 尽力写出 写不动就在写点挂起
			if len(r.out) > 0 {
				if st := r.flush(); st != nil {
					return *st
				}
			}
			return Step{Kind: StepProgressed}
		}
	}
}

// takeHeader 尝试从已收集的字节中取出完整头部
//
// 定长模式等待收齐 HeaderLength 个字节 定界符模式等待终结序列出现
// 终结序列之后的字节属于下一帧 放回缓冲区队首
func (r *Resumable) takeHeader() ([]byte, bool, error) {
	switch r.settings.HeaderType {
	case common.HeaderTypeFixedLength:
		if len(r.collected) < r.settings.HeaderLength {
			return nil, false, nil
		}
		return frame.TrimPadding(r.collected[:r.settings.HeaderLength]), true, nil
	default:
		header, rest, found := frame.CutHeader(r.collected, r.settings.TerminatorBytes())
		if !found {
			if len(r.collected) > maxDelimitedHeader {
				return nil, false, frame.ErrMalformedHeader
			}
			return nil, false, nil
		}
		r.buf.PushFront(rest)
		return header, true, nil
	}
}

// readMore 为当前阶段补充一批字节
//
// 优先消费接收缓冲区 为空时才发起一次非阻塞 socket 读
// 返回非空指针表示本步需要就此结束
func (r *Resumable) readMore() *Step {
	if !r.buf.Empty() {
		r.collected = append(r.collected, r.buf.TakeUpTo(r.readSize())...)
		return nil
	}

	p := make([]byte, r.readSize())
	n, err := r.conn.Read(p)
	switch {
	case err == nil:
		r.collected = append(r.collected, p[:n]...)
		return nil
	case errors.Is(err, socket.ErrWouldBlock):
		return &Step{Kind: StepSuspendedRead}
	case errors.Is(err, socket.ErrPeerClosed):
		// 零长度读 对端关闭 作为正常终止信号
		return &Step{Kind: StepDone}
	}
	return &Step{Kind: StepFailed, Err: err}
}

// readSize 当前阶段单次读取的目标长度
func (r *Resumable) readSize() int {
	if r.stage == stagePayload {
		return r.want - len(r.collected)
	}
	if r.settings.HeaderType == common.HeaderTypeFixedLength {
		return r.settings.HeaderLength - len(r.collected)
	}
	return r.settings.ChunkSize
}

// flush 尽力写出出站字节
//
// 返回非空指针表示挂起或者终止 返回 nil 表示已经全部写完
func (r *Resumable) flush() *Step {
	for len(r.out) > 0 {
		n, err := r.conn.Write(r.out)
		switch {
		case err == nil:
			r.out = r.out[n:]
		case errors.Is(err, socket.ErrWouldBlock):
			return &Step{Kind: StepSuspendedWrite}
		case errors.Is(err, socket.ErrPeerClosed):
			return &Step{Kind: StepDone}
		default:
			return &Step{Kind: StepFailed, Err: err}
		}
	}
	r.out = nil
	return nil
}
