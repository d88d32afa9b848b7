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
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/sockframe/sockframe/common"
	"github.com/sockframe/sockframe/common/socket"
	"github.com/sockframe/sockframe/handler"
	"github.com/sockframe/sockframe/internal/rescue"
	"github.com/sockframe/sockframe/internal/taskqueue"
	"github.com/sockframe/sockframe/logger"
	"github.com/sockframe/sockframe/worker"
)

// poolIdleWait pool 协程空轮询的等待时长
const poolIdleWait = 100 * time.Millisecond

// ThreadPool 阻塞模型的 server
//
// accept 循环阻塞等待新链接 每条链接构造一个阻塞 Worker
// 提交到固定大小的 worker 池 池满时任务在队列里排队 不丢弃任何 accept
type ThreadPool struct {
	settings *common.Settings
	handler  handler.Handler

	ln    *socket.Listener
	queue *taskqueue.Queue
	wg    sync.WaitGroup

	mu sync.Mutex
}

// NewThreadPool 创建并返回 ThreadPool 实例
func NewThreadPool(settings *common.Settings, h handler.Handler) (*ThreadPool, error) {
	if h == nil {
		return nil, ErrCoreHandlerNotSpecified
	}

	return &ThreadPool{
		settings: settings,
		handler:  h,
		queue:    taskqueue.New(),
	}, nil
}

// Run 绑定监听并开始服务
func (s *ThreadPool) Run() error {
	ln, err := socket.Listen(s.settings.Address(), s.settings.SocketTimeout)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	logger.Infof("threadpool server listening on %s", ln.Addr())

	for i := 0; i < s.settings.ThreadPoolSize; i++ {
		s.wg.Add(1)
		go s.poolWorker()
	}

	for {
		conn, err := ln.Accept()
		switch {
		case err == nil:
		case errors.Is(err, socket.ErrTimeout):
			// accept 超时只表示暂时没有新链接
			continue
		case errors.Is(err, socket.ErrClosed):
			return nil
		default:
			logger.Errorf("accept failed: %v", err)
			return err
		}

		logger.Infof("listening to a new client %s", conn.RemoteAddr())
		acceptedConnsTotal.WithLabelValues(modeThreadPool).Inc()

		w := worker.New(conn, s.settings)
		if !s.queue.Push(w) {
			// 停机竞态 队列已关闭 释放刚接进来的链接
			w.Disconnect()
		}
	}
}

// poolWorker 池内协程 从队列领取 worker 并运行至链接结束
func (s *ThreadPool) poolWorker() {
	defer s.wg.Done()

	for {
		item, ok := s.queue.PopTimeout(poolIdleWait)
		if !ok {
			if s.queue.Drained() {
				return
			}
			continue
		}

		w := item.(*worker.Worker)
		activeWorkers.WithLabelValues(modeThreadPool).Inc()
		func() {
			defer rescue.HandleCrash(modeThreadPool)
			defer w.Disconnect()
			if err := s.handler.Handle(w); err != nil {
				workerErrorsTotal.WithLabelValues(modeThreadPool).Inc()
				logger.Errorf("worker %s terminated: %v", w.RemoteAddr(), err)
			}
		}()
		activeWorkers.WithLabelValues(modeThreadPool).Dec()
	}
}

// Shutdown 关闭监听 socket 并等待池内 worker 退出
func (s *ThreadPool) Shutdown() error {
	var result *multierror.Error
	s.mu.Lock()
	if s.ln != nil {
		if err := s.ln.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	s.mu.Unlock()

	s.queue.Close()
	s.wg.Wait()
	return result.ErrorOrNil()
}
