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

package common

const (
	// App 应用程序名称
	App = "sockframe"

	// Version 应用程序版本
	Version = "v0.0.1"

	// DefaultChunkSize 默认的单次 socket 读取长度
	//
	// 消息边界与 TCP 分包无关 单次读多少字节并不影响正确性
	// 仅影响 syscall 次数与内存拷贝量 4K 是一个折中的取值
	DefaultChunkSize = 4096
)
