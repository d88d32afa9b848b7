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
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Ready 一次 readiness 查询的结果集
//
// Failed 集合中的 fd 处于异常状态 调用方应将其清理出所有兴趣集合
type Ready struct {
	Readable []int
	Writable []int
	Failed   []int
}

// Poll 等待任一 fd 就绪
//
// read / write 分别为读兴趣与写兴趣集合 timeout < 0 表示无限等待
// POLLHUP 视为可读 对应的读操作会观测到零长度读 即对端关闭
func Poll(read, write []int, timeout time.Duration) (Ready, error) {
	fds := make([]unix.PollFd, 0, len(read)+len(write))
	for _, fd := range read {
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
	}
	for _, fd := range write {
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLOUT})
	}

	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}

	var ready Ready
	for {
		n, err := unix.Poll(fds, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return ready, errors.Wrap(err, "poll")
		}
		if n == 0 {
			return ready, nil
		}
		break
	}

	for _, pfd := range fds {
		fd := int(pfd.Fd)
		switch {
		case pfd.Revents&(unix.POLLERR|unix.POLLNVAL) != 0:
			ready.Failed = append(ready.Failed, fd)
		case pfd.Revents&(unix.POLLIN|unix.POLLHUP) != 0:
			ready.Readable = append(ready.Readable, fd)
		case pfd.Revents&unix.POLLOUT != 0:
			ready.Writable = append(ready.Writable, fd)
		}
	}
	return ready, nil
}
