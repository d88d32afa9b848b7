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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeDelimited(t *testing.T) {
	settings := delimitedSettings("\r\n\r\n")

	b, err := Make("whatever", settings)
	require.NoError(t, err)

	// JSON "whatever" 占 10 个字节
	assert.Equal(t, "10\r\n\r\n\"whatever\"", string(b))
}

func TestMakeFixed(t *testing.T) {
	settings := fixedSettings(8)

	b, err := Make("a", settings)
	require.NoError(t, err)
	assert.Equal(t, "3       \"a\"", string(b))
}

func TestMakeHeaderCapacityBreach(t *testing.T) {
	settings := fixedSettings(2)

	// JSON 形式约 100 字节 十进制长度放不进 2 字节头部
	payload := strings.Repeat("x", 100)
	b, err := Make(payload, settings)
	assert.ErrorIs(t, err, ErrHeaderCapacity)
	assert.Nil(t, b)
}

func TestParseEmptyPayload(t *testing.T) {
	v, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestParseInvalidJSON(t *testing.T) {
	_, err := Parse([]byte("{not json"))
	assert.Error(t, err)
}

func TestMessageRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected any
	}{
		{
			name:     "String",
			value:    "whatever",
			expected: "whatever",
		},
		{
			name:     "Number",
			value:    42,
			expected: float64(42),
		},
		{
			name:     "Object",
			value:    map[string]any{"x": 1},
			expected: map[string]any{"x": float64(1)},
		},
		{
			name:     "Array",
			value:    []any{"a", float64(2), nil},
			expected: []any{"a", float64(2), nil},
		},
		{
			name:     "Null",
			value:    nil,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := delimitedSettings("\r\n\r\n")
			b, err := Make(tt.value, settings)
			require.NoError(t, err)

			header, payload, found := CutHeader(b, settings.TerminatorBytes())
			require.True(t, found)
			n, err := ParseLength(header)
			require.NoError(t, err)
			require.Len(t, payload, n)

			v, err := Parse(payload)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}
