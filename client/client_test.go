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

package client_test

import (
	"net"
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
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	settings := common.Default()
	settings.ServerAddress = "127.0.0.1"
	settings.Port = port
	settings.SocketTimeout = 2 * time.Second
	return settings
}

func TestMethodsOutsideConnection(t *testing.T) {
	c := client.New(testSettings(t))

	err := c.Send("whatever")
	assert.ErrorIs(t, err, client.ErrNotConnected)

	_, err = c.ReceiveOne()
	assert.ErrorIs(t, err, client.ErrNotConnected)

	assert.False(t, c.Connected())
	c.Close()
}

func TestConnectRefused(t *testing.T) {
	// 端口刚刚释放 无人监听
	c := client.New(testSettings(t))
	assert.Error(t, c.Connect())
	assert.False(t, c.Connected())
}

func TestWithConnectionAlwaysCloses(t *testing.T) {
	settings := testSettings(t)
	srv, err := server.NewThreadPool(settings, handler.NewEcho())
	require.NoError(t, err)
	go srv.Run()
	defer srv.Shutdown()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", settings.Address(), 100*time.Millisecond)
		if err == nil {
			conn.Close()
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	c := client.New(settings)
	err = c.WithConnection(func(c *client.Client) error {
		require.True(t, c.Connected())

		if err := c.Send("whatever"); err != nil {
			return err
		}
		v, err := c.ReceiveOne()
		if err != nil {
			return err
		}
		assert.Equal(t, "whatever", v)

		if err := c.Send("another message"); err != nil {
			return err
		}
		v, err = c.ReceiveOne()
		if err != nil {
			return err
		}
		assert.Equal(t, "another message", v)
		return nil
	})
	require.NoError(t, err)
	assert.False(t, c.Connected())
}
