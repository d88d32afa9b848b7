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
	"bytes"
	"strconv"

	"github.com/pkg/errors"

	"github.com/sockframe/sockframe/common"
)

func newError(format string, args ...any) error {
	format = "frame/codec: " + format
	return errors.Errorf(format, args...)
}

var (
	// ErrHeaderCapacity payload 长度的十进制表示放不进定长头部
	//
	// 发送方编码期错误 在任何字节上线之前就会返回 调用方可以恢复
	ErrHeaderCapacity = newError("message length exceeds header capacity")

	// ErrMalformedHeader 头部内容非法 零宽或者含有非数字字符
	//
	// 对该链接而言是致命的组帧错误
	ErrMalformedHeader = newError("malformed header")

	// ErrPayloadTooLarge 头部声明的长度超过单链接上限
	ErrPayloadTooLarge = newError("payload exceeds size limit")
)

// MaxPayloadSize 单条消息 payload 的上限
//
// 头部声明超过该值视为链接级的致命组帧错误
const MaxPayloadSize = 64 << 20

const padding = ' '

// EncodeHeader 为长度为 n 的 payload 生成头部字节
//
// 定长模式下输出恰好 HeaderLength 个字节 十进制数字 + 空格补齐
// 定界符模式下输出十进制数字 + 终结序列
func EncodeHeader(n int, settings *common.Settings) ([]byte, error) {
	digits := strconv.Itoa(n)

	switch settings.HeaderType {
	case common.HeaderTypeFixedLength:
		if len(digits) > settings.HeaderLength {
			return nil, ErrHeaderCapacity
		}
		header := make([]byte, settings.HeaderLength)
		copy(header, digits)
		for i := len(digits); i < settings.HeaderLength; i++ {
			header[i] = padding
		}
		return header, nil

	case common.HeaderTypeDelimiterTerminated:
		header := make([]byte, 0, len(digits)+len(settings.HeaderTerminator))
		header = append(header, digits...)
		header = append(header, settings.HeaderTerminator...)
		return header, nil
	}
	return nil, newError("unknown header type %q", settings.HeaderType)
}

// ParseLength 解析头部数字部分并返回 payload 长度
//
// 仅接受十进制数字 定长模式的尾部空格需要先经 TrimPadding 剥离
func ParseLength(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, ErrMalformedHeader
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, ErrMalformedHeader
		}
	}

	n, err := strconv.Atoi(string(b))
	if err != nil {
		return 0, ErrMalformedHeader
	}
	if n > MaxPayloadSize {
		return 0, ErrPayloadTooLarge
	}
	return n, nil
}

// TrimPadding 剥离定长头部尾部的空格补齐
func TrimPadding(b []byte) []byte {
	return bytes.TrimRight(b, string(padding))
}

// CutHeader 在 b 中定位终结序列
//
// 找到时返回头部字节与终结序列之后的剩余字节 剩余字节属于下一帧
// 需要由调用方放回接收缓冲区
func CutHeader(b, term []byte) (header, rest []byte, found bool) {
	idx := bytes.Index(b, term)
	if idx < 0 {
		return nil, b, false
	}
	return b[:idx], b[idx+len(term):], true
}
