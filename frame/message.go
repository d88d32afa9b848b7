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

package frame

import (
	"github.com/goccy/go-json"
	"github.com/valyala/bytebufferpool"

	"github.com/sockframe/sockframe/common"
)

// Make 将 value 序列化为一帧完整的线上字节 header ∥ payload
//
// payload 的十进制长度放不进定长头部时返回 ErrHeaderCapacity
// 此时不会产生任何线上字节
func Make(v any, settings *common.Settings) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, newError("marshal payload: %v", err)
	}

	header, err := EncodeHeader(len(payload), settings)
	if err != nil {
		return nil, err
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.Write(header)
	buf.Write(payload)
	out := make([]byte, buf.Len())
	copy(out, buf.B)
	return out, nil
}

// Parse 将 payload 字节解析为一个 JSON 值
//
// 零长度 payload 解析为空字符串值 其余内容必须是单个合法的 JSON 值
func Parse(b []byte) (any, error) {
	if len(b) == 0 {
		return "", nil
	}

	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, newError("unmarshal payload: %v", err)
	}
	return v, nil
}
