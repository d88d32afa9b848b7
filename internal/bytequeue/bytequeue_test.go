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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTakeUpTo(t *testing.T) {
	tests := []struct {
		name     string
		chunks   [][]byte
		n        int
		expected []byte
		remain   int
	}{
		{
			name:     "Empty queue",
			chunks:   nil,
			n:        10,
			expected: nil,
			remain:   0,
		},
		{
			name:     "Take part of a single chunk",
			chunks:   [][]byte{[]byte("helloworld")},
			n:        5,
			expected: []byte("hello"),
			remain:   5,
		},
		{
			name:     "Take across chunk boundary",
			chunks:   [][]byte{[]byte("hel"), []byte("lo"), []byte("world")},
			n:        7,
			expected: []byte("hellowo"),
			remain:   3,
		},
		{
			name:     "Take more than buffered",
			chunks:   [][]byte{[]byte("abc")},
			n:        10,
			expected: []byte("abc"),
			remain:   0,
		},
		{
			name:     "Non-positive length",
			chunks:   [][]byte{[]byte("abc")},
			n:        0,
			expected: nil,
			remain:   3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New()
			for _, chunk := range tt.chunks {
				q.Push(chunk)
			}
			assert.Equal(t, tt.expected, q.TakeUpTo(tt.n))
			assert.Equal(t, tt.remain, q.Len())
		})
	}
}

func TestPushFront(t *testing.T) {
	q := New()
	q.Push([]byte("next"))
	q.PushFront([]byte("leftover"))

	assert.Equal(t, 12, q.Len())
	assert.Equal(t, []byte("leftovernext"), q.TakeUpTo(12))
	assert.True(t, q.Empty())
}

func TestNoByteLostAcrossFrames(t *testing.T) {
	q := New()
	q.Push([]byte("aaabbbccc"))

	first := q.TakeUpTo(5)
	assert.Equal(t, []byte("aaabb"), first)

	// 多读出的字节放回去后必须最先被看到
	q.PushFront(first[3:])
	assert.Equal(t, []byte("bbbccc"), q.TakeUpTo(100))
	assert.True(t, q.Empty())
}

func TestDrain(t *testing.T) {
	q := New()
	q.Push([]byte("abc"))
	q.PushFront([]byte("xy"))

	assert.Equal(t, 5, q.Drain())
	assert.True(t, q.Empty())
	assert.Nil(t, q.TakeUpTo(10))

	// 清空后的队列可以继续使用
	q.Push([]byte("z"))
	assert.Equal(t, []byte("z"), q.TakeUpTo(1))
	assert.Equal(t, 0, q.Drain())
}

func TestTakeExactAfterPushFront(t *testing.T) {
	q := New()
	q.PushFront([]byte("xy"))
	q.Push([]byte("z"))

	assert.Equal(t, []byte("x"), q.TakeUpTo(1))
	assert.Equal(t, []byte("yz"), q.TakeUpTo(2))
	assert.Equal(t, 0, q.Len())
}
