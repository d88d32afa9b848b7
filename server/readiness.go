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
	"github.com/sockframe/sockframe/logger"
	"github.com/sockframe/sockframe/worker"
)

// pollInterval readiness 等待的上限 用于观测停机信号
const pollInterval = 500 * time.Millisecond

// rtask readiness 调度器的任务槽 记录任务与其 socket fd
type rtask struct {
	w    *worker.Resumable
	conn *socket.NBConn
}

// Readiness 基于就绪查询的协作式 server
//
// 单个调度循环同时负责 accept 与任务推进
// 维护读写两个兴趣集合 任务只在其 socket 对相应操作就绪时才被推进
//
// 不变式 每个存活 socket 恰好出现在读写集合之一中
// 监听 socket 永远处于读集合
type Readiness struct {
	settings *common.Settings
	handler  handler.CoHandler

	ln    *socket.NBListener
	tasks map[int]*rtask

	readSet  map[int]struct{}
	writeSet map[int]struct{}

	done      chan struct{}
	closeOnce sync.Once
	loopDone  chan struct{}
	mu        sync.Mutex
}

// NewReadiness 创建并返回 Readiness 实例
func NewReadiness(settings *common.Settings, h handler.CoHandler) (*Readiness, error) {
	if h == nil {
		return nil, ErrCoreHandlerNotSpecified
	}
	return &Readiness{
		settings: settings,
		handler:  h,
		tasks:    make(map[int]*rtask),
		readSet:  make(map[int]struct{}),
		writeSet: make(map[int]struct{}),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}, nil
}

// Run 绑定非阻塞监听并进入就绪调度循环
func (s *Readiness) Run() error {
	ln, err := socket.ListenNonBlock(s.settings.Address())
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	logger.Infof("readiness server listening on %s", ln.Addr())

	defer close(s.loopDone)
	s.readSet[ln.FD()] = struct{}{}

	for {
		select {
		case <-s.done:
			s.drainTasks()
			return nil
		default:
		}

		ready, err := socket.Poll(setKeys(s.readSet), setKeys(s.writeSet), pollInterval)
		if err != nil {
			logger.Errorf("readiness query failed: %v", err)
			return err
		}

		for _, fd := range ready.Readable {
			if fd == ln.FD() {
				s.acceptReady()
				continue
			}
			s.advance(fd)
		}
		for _, fd := range ready.Writable {
			s.advance(fd)
		}
		for _, fd := range ready.Failed {
			if fd == ln.FD() {
				select {
				case <-s.done:
					// 停机关闭了监听 socket 属于预期
					s.drainTasks()
					return nil
				default:
				}
				return newError("listening socket failed")
			}
			logger.Warnf("socket fd=%d reported exceptional, purging", fd)
			s.purge(fd)
		}
	}
}

// acceptReady 监听 socket 可读 接收排队中的全部新链接
func (s *Readiness) acceptReady() {
	for {
		conn, err := s.ln.Accept()
		switch {
		case err == nil:
		case errors.Is(err, socket.ErrWouldBlock):
			return
		case errors.Is(err, socket.ErrClosed):
			return
		default:
			logger.Errorf("accept failed: %v", err)
			return
		}

		logger.Infof("listening to a new client %s", conn.RemoteAddr())
		acceptedConnsTotal.WithLabelValues(modeReadiness).Inc()

		w := worker.NewResumable(conn, s.settings)
		s.handler.Bind(w)
		s.tasks[conn.FD()] = &rtask{w: w, conn: conn}
		s.readSet[conn.FD()] = struct{}{}
		activeWorkers.WithLabelValues(modeReadiness).Inc()
	}
}

// advance 推进 fd 对应的任务
//
// 连续推进直至任务挂起或者终止 根据挂起方向调整兴趣集合
func (s *Readiness) advance(fd int) {
	t, ok := s.tasks[fd]
	if !ok {
		return
	}

	for {
		// Step panic 时保持 Failed 语义 走清理路径
		step := worker.Step{Kind: worker.StepFailed, Err: newError("panic during step")}
		func() {
			defer rescue.HandleCrash(modeReadiness)
			step = t.w.Step()
		}()
		schedulerStepsTotal.WithLabelValues(modeReadiness).Inc()

		switch step.Kind {
		case worker.StepProgressed:
			continue

		case worker.StepSuspendedRead:
			delete(s.writeSet, fd)
			s.readSet[fd] = struct{}{}
			return

		case worker.StepSuspendedWrite:
			delete(s.readSet, fd)
			s.writeSet[fd] = struct{}{}
			return

		case worker.StepDone:
			logger.Debugf("peer %s closed connection", t.w.RemoteAddr())
			s.purge(fd)
			return

		case worker.StepFailed:
			logger.Errorf("task %s failed: %v", t.w.RemoteAddr(), step.Err)
			workerErrorsTotal.WithLabelValues(modeReadiness).Inc()
			s.purge(fd)
			return
		}
	}
}

// purge 将 fd 清理出任务表与两个兴趣集合并关闭 socket
func (s *Readiness) purge(fd int) {
	t, ok := s.tasks[fd]
	if !ok {
		return
	}
	delete(s.tasks, fd)
	delete(s.readSet, fd)
	delete(s.writeSet, fd)
	t.w.Close()
	activeWorkers.WithLabelValues(modeReadiness).Dec()
}

// drainTasks 停机时释放全部存活任务
func (s *Readiness) drainTasks() {
	for fd := range s.tasks {
		s.purge(fd)
	}
}

// Shutdown 通知调度循环退出并关闭监听 socket
func (s *Readiness) Shutdown() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})

	var result *multierror.Error
	s.mu.Lock()
	started := s.ln != nil
	if started {
		if err := s.ln.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	s.mu.Unlock()

	if started {
		<-s.loopDone
	}
	return result.ErrorOrNil()
}

func setKeys(set map[int]struct{}) []int {
	keys := make([]int, 0, len(set))
	for fd := range set {
		keys = append(keys, fd)
	}
	return keys
}
