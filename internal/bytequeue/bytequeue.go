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

package bytequeue

// Queue 按序存放字节块的双端队列
//
// 存放的是已经从 socket 读出但尚未被任何消息消费的字节
// 所有块的拼接即为未消费的字节流 不允许丢失或重复任何一个字节
//
// Queue 由单个 worker 独占 无并发访问需求
type Queue struct {
	chunks [][]byte
	size   int
}

func New() *Queue {
	return &Queue{}
}

// TakeUpTo 从队首取出至多 n 个字节
//
// 队列内容不足 n 时返回现有的全部字节 不会阻塞
// 跨块读取时会把块边界拼平 调用方拿到的是连续切片
func (q *Queue) TakeUpTo(n int) []byte {
	if n <= 0 || len(q.chunks) == 0 {
		return nil
	}

	head := q.chunks[0]
	if len(head) > n {
		// 队首块比需要的长 切开后剩余部分留在原位
		q.chunks[0] = head[n:]
		q.size -= n
		return head[:n]
	}

	taken := make([]byte, 0, n)
	for len(q.chunks) > 0 && len(taken) < n {
		head = q.chunks[0]
		remain := n - len(taken)
		if len(head) <= remain {
			taken = append(taken, head...)
			q.chunks = q.chunks[1:]
			continue
		}
		taken = append(taken, head[:remain]...)
		q.chunks[0] = head[remain:]
	}
	q.size -= len(taken)
	return taken
}

// PushFront 将多读出的字节重新插入队首
//
// 下一次 TakeUpTo 会优先看到这些字节
func (q *Queue) PushFront(b []byte) {
	if len(b) == 0 {
		return
	}
	q.chunks = append([][]byte{b}, q.chunks...)
	q.size += len(b)
}

// Push 将新读到的字节块追加到队尾
func (q *Queue) Push(b []byte) {
	if len(b) == 0 {
		return
	}
	q.chunks = append(q.chunks, b)
	q.size += len(b)
}

// Drain 清空队列并返回丢弃的字节数
//
// 链接收尾时调用 丢掉永远不会再被任何帧消费的残留字节
func (q *Queue) Drain() int {
	n := q.size
	q.chunks = nil
	q.size = 0
	return n
}

// Len 返回队列中未消费的字节总数
func (q *Queue) Len() int {
	return q.size
}

// Empty 返回队列是否为空
func (q *Queue) Empty() bool {
	return q.size == 0
}
