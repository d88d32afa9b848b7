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
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/sockframe/sockframe/common"
	"github.com/sockframe/sockframe/common/socket"
	"github.com/sockframe/sockframe/handler"
	"github.com/sockframe/sockframe/internal/taskqueue"
	"github.com/sockframe/sockframe/internal/wait"
	"github.com/sockframe/sockframe/logger"
	"github.com/sockframe/sockframe/worker"
)

const (
	// acceptIdleWait accept 空转时的休眠时长
	acceptIdleWait = 10 * time.Millisecond

	// schedulerIdleWait 调度器空队列时的等待时长
	schedulerIdleWait = 10 * time.Millisecond
)

// task 调度器持有的任务 即一个可推进的 worker 计算
type task struct {
	w *worker.Resumable
}

// BusyLoop 忙轮询的协作式 server
//
// 两个并发活动 accept 循环非阻塞接收新链接并入队
// 后台调度协程从单一 FIFO 中轮转推进任务
// 严格 FIFO 每个存活任务在一轮队列扫描内至少被推进一次
//
// CPU 效率天然不高 这是该模型的取舍 readiness 模型解决这个问题
type BusyLoop struct {
	settings *common.Settings
	handler  handler.CoHandler

	ln    *socket.NBListener
	queue *taskqueue.Queue

	ctx       context.Context
	cancel    context.CancelFunc
	schedDone chan struct{}
	mu        sync.Mutex
}

// NewBusyLoop 创建并返回 BusyLoop 实例
func NewBusyLoop(settings *common.Settings, h handler.CoHandler) (*BusyLoop, error) {
	if h == nil {
		return nil, ErrCoreHandlerNotSpecified
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &BusyLoop{
		settings:  settings,
		handler:   h,
		queue:     taskqueue.New(),
		ctx:       ctx,
		cancel:    cancel,
		schedDone: make(chan struct{}),
	}, nil
}

// Run 绑定非阻塞监听 启动调度协程并进入 accept 循环
func (s *BusyLoop) Run() error {
	ln, err := socket.ListenNonBlock(s.settings.Address())
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	logger.Infof("busyloop server listening on %s", ln.Addr())

	go s.schedule()

	for {
		select {
		case <-s.ctx.Done():
			return nil
		default:
		}

		conn, err := ln.Accept()
		switch {
		case err == nil:
		case errors.Is(err, socket.ErrWouldBlock):
			time.Sleep(acceptIdleWait)
			continue
		case errors.Is(err, socket.ErrClosed):
			return nil
		default:
			logger.Errorf("accept failed: %v", err)
			continue
		}

		logger.Infof("listening to a new client %s", conn.RemoteAddr())
		acceptedConnsTotal.WithLabelValues(modeBusyLoop).Inc()

		w := worker.NewResumable(conn, s.settings)
		s.handler.Bind(w)
		if !s.queue.Push(&task{w: w}) {
			// 停机竞态 队列已关闭 释放刚接进来的链接
			w.Close()
			continue
		}
		activeWorkers.WithLabelValues(modeBusyLoop).Inc()
	}
}

// schedule 后台调度循环
//
// 轮转推进任务直到停机 停机后释放队列中剩余的任务
func (s *BusyLoop) schedule() {
	defer close(s.schedDone)

	wait.Until(s.ctx, modeBusyLoop, s.scheduleOnce)

	for {
		item, ok := s.queue.TryPop()
		if !ok {
			return
		}
		s.dropTask(item.(*task))
	}
}

// scheduleOnce 推进队首任务一步
//
// 单步推进后 未终止的任务重新排到队尾 终止的任务被丢弃并关闭 socket
func (s *BusyLoop) scheduleOnce() {
	item, ok := s.queue.PopTimeout(schedulerIdleWait)
	if !ok {
		return
	}
	t := item.(*task)

	// Step panic 时同样走释放路径 保证 socket 不泄漏
	requeued := false
	defer func() {
		if !requeued {
			s.dropTask(t)
		}
	}()

	step := t.w.Step()
	schedulerStepsTotal.WithLabelValues(modeBusyLoop).Inc()

	switch step.Kind {
	case worker.StepProgressed, worker.StepSuspendedRead, worker.StepSuspendedWrite:
		// 停机中队列会拒绝投递 此时直接释放链接
		requeued = s.queue.Push(t)

	case worker.StepDone:
		logger.Debugf("peer %s closed connection", t.w.RemoteAddr())

	case worker.StepFailed:
		// socket 多半已经半废 丢弃任务即可 server 继续运行
		logger.Errorf("task %s failed: %v", t.w.RemoteAddr(), step.Err)
		workerErrorsTotal.WithLabelValues(modeBusyLoop).Inc()
	}
}

func (s *BusyLoop) dropTask(t *task) {
	t.w.Close()
	activeWorkers.WithLabelValues(modeBusyLoop).Dec()
}

// Shutdown 停止 accept 通知调度器释放任务后退出
func (s *BusyLoop) Shutdown() error {
	s.cancel()

	var result *multierror.Error
	s.mu.Lock()
	started := s.ln != nil
	if started {
		if err := s.ln.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	s.mu.Unlock()

	s.queue.Close()
	if started {
		<-s.schedDone
	}
	return result.ErrorOrNil()
}
