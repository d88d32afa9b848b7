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

package server_test

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sockframe/sockframe/client"
	"github.com/sockframe/sockframe/common"
	"github.com/sockframe/sockframe/handler"
	"github.com/sockframe/sockframe/server"
)

func testSettings(t *testing.T) *common.Settings {
	settings := common.Default()
	settings.ServerAddress = "127.0.0.1"
	settings.Port = freePort(t)
	settings.SocketTimeout = 2 * time.Second
	return settings
}

func freePort(t *testing.T) int {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// waitReachable 等待 server 完成监听
func waitReachable(t *testing.T, addr string) {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server %s never became reachable", addr)
}

func startServer(t *testing.T, settings *common.Settings, srv server.Server) {
	go srv.Run()
	waitReachable(t, settings.Address())
	t.Cleanup(func() {
		srv.Shutdown()
	})
}

func echoOnce(t *testing.T, settings *common.Settings) {
	c := client.New(settings)
	require.NoError(t, c.Connect())
	defer c.Close()

	require.NoError(t, c.Send("whatever"))
	v, err := c.ReceiveOne()
	require.NoError(t, err)
	assert.Equal(t, "whatever", v)
}

func echoInOrder(t *testing.T, settings *common.Settings) {
	c := client.New(settings)
	require.NoError(t, c.Connect())
	defer c.Close()

	require.NoError(t, c.Send("a"))
	require.NoError(t, c.Send(map[string]any{"x": 1}))

	v, err := c.ReceiveOne()
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	v, err = c.ReceiveOne()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": float64(1)}, v)
}

func TestThreadPoolEcho(t *testing.T) {
	settings := testSettings(t)
	srv, err := server.NewThreadPool(settings, handler.NewEcho())
	require.NoError(t, err)
	startServer(t, settings, srv)

	echoOnce(t, settings)
	echoInOrder(t, settings)
}

func TestThreadPoolFixedHeader(t *testing.T) {
	settings := testSettings(t)
	settings.HeaderType = common.HeaderTypeFixedLength
	settings.HeaderLength = 16

	srv, err := server.NewThreadPool(settings, handler.NewEcho())
	require.NoError(t, err)
	startServer(t, settings, srv)

	echoOnce(t, settings)
}

func TestBusyLoopEcho(t *testing.T) {
	settings := testSettings(t)
	srv, err := server.NewBusyLoop(settings, handler.NewEcho())
	require.NoError(t, err)
	startServer(t, settings, srv)

	echoOnce(t, settings)
	echoInOrder(t, settings)
}

func TestReadinessEcho(t *testing.T) {
	settings := testSettings(t)
	srv, err := server.NewReadiness(settings, handler.NewEcho())
	require.NoError(t, err)
	startServer(t, settings, srv)

	echoOnce(t, settings)
	echoInOrder(t, settings)
}

// TestCooperativeFairness 多个客户端并发收发 任何一个都不应颗粒无收
func TestCooperativeFairness(t *testing.T) {
	for _, mode := range []string{"busyloop", "readiness"} {
		t.Run(mode, func(t *testing.T) {
			settings := testSettings(t)

			var srv server.Server
			var err error
			switch mode {
			case "busyloop":
				srv, err = server.NewBusyLoop(settings, handler.NewEcho())
			default:
				srv, err = server.NewReadiness(settings, handler.NewEcho())
			}
			require.NoError(t, err)
			startServer(t, settings, srv)

			const clients = 3
			const messages = 20

			var wg sync.WaitGroup
			replies := make([]int, clients)
			for i := 0; i < clients; i++ {
				wg.Add(1)
				go func(idx int) {
					defer wg.Done()

					c := client.New(settings)
					if err := c.Connect(); err != nil {
						t.Errorf("client %d connect: %v", idx, err)
						return
					}
					defer c.Close()

					for j := 0; j < messages; j++ {
						if err := c.Send(map[string]any{"client": idx, "seq": j}); err != nil {
							t.Errorf("client %d send: %v", idx, err)
							return
						}
						v, err := c.ReceiveOne()
						if err != nil {
							t.Errorf("client %d receive: %v", idx, err)
							return
						}
						m := v.(map[string]any)
						if int(m["seq"].(float64)) != j {
							t.Errorf("client %d got out-of-order reply %v", idx, v)
							return
						}
						replies[idx]++
					}
				}(i)
			}
			wg.Wait()

			for i, n := range replies {
				assert.Equal(t, messages, n, "client %d", i)
			}
		})
	}
}

func TestNilHandlerRejected(t *testing.T) {
	settings := testSettings(t)

	_, err := server.NewThreadPool(settings, nil)
	assert.ErrorIs(t, err, server.ErrCoreHandlerNotSpecified)

	_, err = server.NewBusyLoop(settings, nil)
	assert.ErrorIs(t, err, server.ErrCoreHandlerNotSpecified)

	_, err = server.NewReadiness(settings, nil)
	assert.ErrorIs(t, err, server.ErrCoreHandlerNotSpecified)
}

// TestOrderlyPeerClose 对端发完一条消息便关闭 server 不应受影响
func TestOrderlyPeerClose(t *testing.T) {
	settings := testSettings(t)
	srv, err := server.NewBusyLoop(settings, handler.NewEcho())
	require.NoError(t, err)
	startServer(t, settings, srv)

	c := client.New(settings)
	require.NoError(t, c.Connect())
	require.NoError(t, c.Send("bye"))
	v, err := c.ReceiveOne()
	require.NoError(t, err)
	assert.Equal(t, "bye", v)
	c.Close()

	// server 继续服务后续链接
	echoOnce(t, settings)
}
