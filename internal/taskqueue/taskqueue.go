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

package taskqueue

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Queue 无上界的 FIFO 任务队列
//
// 多生产者单消费者使用方式 accept 协程往里投递 调度协程取出执行
// 队列不设容量上限 保证投递永远不会被丢弃或者阻塞
type Queue struct {
	id     string
	mu     sync.Mutex
	items  []any
	closed bool

	// notify 容量为 1 Push 时尽力投递 用于唤醒 PopTimeout
	notify chan struct{}
}

func New() *Queue {
	return &Queue{
		id:     uuid.New().String(),
		notify: make(chan struct{}, 1),
	}
}

// ID 队列唯一标识
func (q *Queue) ID() string {
	return q.id
}

// Push 投递一个元素至队尾 返回是否投递成功
//
// 队列已关闭时投递会被拒绝 调用方需自行处置被拒绝的元素
func (q *Queue) Push(item any) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// TryPop 非阻塞地从队首弹出一个元素
func (q *Queue) TryPop() (any, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// PopTimeout 从队首弹出一个元素 队列为空时最多等待 timeout
func (q *Queue) PopTimeout(timeout time.Duration) (any, bool) {
	if item, ok := q.TryPop(); ok {
		return item, true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-q.notify:
			if item, ok := q.TryPop(); ok {
				return item, true
			}

		case <-timer.C:
			return q.TryPop()
		}
	}
}

// Len 返回队列当前长度
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close 关闭队列 已入队的元素仍可被弹出
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// Closed 返回队列是否已关闭
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Drained 返回队列是否已关闭且无剩余元素
//
// 调度方以此作为退出信号
func (q *Queue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.items) == 0
}
