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

import (
	"net"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

func newError(format string, args ...any) error {
	format = "common/settings: " + format
	return errors.Errorf(format, args...)
}

// HeaderType 消息头部格式类型
type HeaderType string

const (
	// HeaderTypeFixedLength 定长头部 十进制长度 + 空格补齐
	HeaderTypeFixedLength HeaderType = "fixed_length"

	// HeaderTypeDelimiterTerminated 定界符头部 十进制长度 + 终结序列
	HeaderTypeDelimiterTerminated HeaderType = "delimiter_terminated"
)

const (
	defaultHeaderLength   = 64
	defaultPort           = 5050
	defaultMsgFormat      = "utf-8"
	defaultDisconnectMsg  = "!DISCONNECT"
	defaultThreadPoolSize = 10
	defaultSocketTimeout  = 5 * time.Second
	defaultTerminator     = "\r\n\r\n"
)

// Settings 单个 server / client 实例的全部可调参数
//
// 构造完成后视为只读 可以在多个 worker 之间通过指针自由共享
// 字段语义与线上格式强相关 修改任何一端的配置都要求两端同步
type Settings struct {
	// HeaderLength 定长模式下头部的字节数
	// 其十进制位数必须足以表示应用会发送的任意 payload 长度
	HeaderLength int `config:"headerLength"`

	// Port 监听/连接端口
	Port int `config:"port"`

	// MsgFormat 头部数字与 JSON 文本的编码 仅支持 UTF-8 系列
	MsgFormat string `config:"msgFormat"`

	// DisconnectMessage 保留字段 不会出现在线路上
	DisconnectMessage string `config:"disconnectMessage"`

	// ServerAddress 监听/连接地址
	ServerAddress string `config:"serverAddress"`

	// MsgLengthFixed 保留字段 暂无消费方
	MsgLengthFixed int `config:"msgLengthFixed"`

	// ThreadPoolSize 阻塞型 server 的 worker 池大小
	ThreadPoolSize int `config:"threadPoolSize"`

	// ChunkSize 单次 socket 读取的缓冲区长度
	ChunkSize int `config:"chunkSize"`

	// SocketTimeout 阻塞操作的超时时间 0 表示不设置超时
	// 此时读写与 accept 无限期阻塞 不会切换为非阻塞模式
	SocketTimeout time.Duration `config:"socketTimeout"`

	// BlockingMode 保留字段 记录启动入口选择的模式
	BlockingMode bool `config:"blockingMode"`

	// HeaderType 头部格式 fixed_length / delimiter_terminated
	HeaderType HeaderType `config:"headerType"`

	// HeaderTerminator 定界符模式的终结序列 不允许为空
	HeaderTerminator string `config:"headerTerminator"`
}

// Default 创建并返回默认 Settings 实例
func Default() *Settings {
	return &Settings{
		HeaderLength:      defaultHeaderLength,
		Port:              defaultPort,
		MsgFormat:         defaultMsgFormat,
		DisconnectMessage: defaultDisconnectMsg,
		ServerAddress:     LocalIPv4(),
		ThreadPoolSize:    defaultThreadPoolSize,
		ChunkSize:         DefaultChunkSize,
		SocketTimeout:     defaultSocketTimeout,
		BlockingMode:      true,
		HeaderType:        HeaderTypeDelimiterTerminated,
		HeaderTerminator:  defaultTerminator,
	}
}

// FromEnv 从环境变量构造 Settings 缺省值与 Default 一致
func FromEnv() (*Settings, error) {
	settings := Default()

	assigns := []struct {
		name string
		fn   func(s string) error
	}{
		{"HEADER_LENGTH", func(s string) error {
			n, err := cast.ToIntE(s)
			settings.HeaderLength = n
			return err
		}},
		{"PORT", func(s string) error {
			n, err := cast.ToIntE(s)
			settings.Port = n
			return err
		}},
		{"FORMAT", func(s string) error {
			settings.MsgFormat = s
			return nil
		}},
		{"DISCONNECT_MESSAGE", func(s string) error {
			settings.DisconnectMessage = s
			return nil
		}},
		{"SERVER_ADDRESS", func(s string) error {
			settings.ServerAddress = s
			return nil
		}},
		{"MSG_LENGTH_FIXED", func(s string) error {
			n, err := cast.ToIntE(s)
			settings.MsgLengthFixed = n
			return err
		}},
		{"THREADPOOL_SIZE", func(s string) error {
			n, err := cast.ToIntE(s)
			settings.ThreadPoolSize = n
			return err
		}},
		{"BYTES_CHUNK_SIZE", func(s string) error {
			n, err := cast.ToIntE(s)
			settings.ChunkSize = n
			return err
		}},
		{"SOCKET_TIMEOUT", func(s string) error {
			f, err := cast.ToFloat64E(s)
			settings.SocketTimeout = time.Duration(f * float64(time.Second))
			return err
		}},
		{"BLOCKING_MODE_BOOL", func(s string) error {
			settings.BlockingMode = s == "True"
			return nil
		}},
		{"HEADER_TYPE", func(s string) error {
			settings.HeaderType = HeaderType(s)
			return nil
		}},
		{"HEADER_TERMINATION_SEQUENCE", func(s string) error {
			settings.HeaderTerminator = s
			return nil
		}},
	}

	for _, assign := range assigns {
		v, ok := os.LookupEnv(assign.name)
		if !ok || v == "" {
			continue
		}
		if err := assign.fn(v); err != nil {
			return nil, newError("parse env %s=%q: %v", assign.name, v, err)
		}
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate 校验 Settings 的内部一致性
func (s *Settings) Validate() error {
	if s.HeaderLength <= 0 {
		return newError("headerLength must be positive, got %d", s.HeaderLength)
	}
	if s.Port <= 0 || s.Port > 65535 {
		return newError("invalid port %d", s.Port)
	}
	if s.ChunkSize <= 0 {
		return newError("chunkSize must be positive, got %d", s.ChunkSize)
	}
	if s.ThreadPoolSize <= 0 {
		return newError("threadPoolSize must be positive, got %d", s.ThreadPoolSize)
	}
	if s.SocketTimeout < 0 {
		return newError("socketTimeout must be non-negative, got %s", s.SocketTimeout)
	}

	switch s.HeaderType {
	case HeaderTypeFixedLength, HeaderTypeDelimiterTerminated:
	default:
		return newError("unknown headerType %q", s.HeaderType)
	}
	if s.HeaderType == HeaderTypeDelimiterTerminated && s.HeaderTerminator == "" {
		return newError("headerTerminator must not be empty")
	}

	switch s.MsgFormat {
	case "utf-8", "utf8", "ascii", "us-ascii":
	default:
		return newError("unsupported msgFormat %q", s.MsgFormat)
	}
	return nil
}

// Address 返回 host:port 形式的地址
func (s *Settings) Address() string {
	return net.JoinHostPort(s.ServerAddress, strconv.Itoa(s.Port))
}

// TerminatorBytes 返回终结序列的字节表示
func (s *Settings) TerminatorBytes() []byte {
	return []byte(s.HeaderTerminator)
}

// LocalIPv4 将本机 hostname 解析为 IPv4 地址
//
// 解析失败时回退到 loopback
func LocalIPv4() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "127.0.0.1"
	}
	addrs, err := net.LookupIP(hostname)
	if err != nil {
		return "127.0.0.1"
	}
	for _, addr := range addrs {
		if v4 := addr.To4(); v4 != nil {
			return v4.String()
		}
	}
	return "127.0.0.1"
}
