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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sockframe/sockframe/common"
)

func fixedSettings(headerLength int) *common.Settings {
	settings := common.Default()
	settings.HeaderType = common.HeaderTypeFixedLength
	settings.HeaderLength = headerLength
	return settings
}

func delimitedSettings(term string) *common.Settings {
	settings := common.Default()
	settings.HeaderType = common.HeaderTypeDelimiterTerminated
	settings.HeaderTerminator = term
	return settings
}

func TestEncodeHeaderFixed(t *testing.T) {
	tests := []struct {
		name         string
		headerLength int
		n            int
		expected     string
		err          error
	}{
		{
			name:         "Zero length",
			headerLength: 4,
			n:            0,
			expected:     "0   ",
		},
		{
			name:         "Padded digits",
			headerLength: 8,
			n:            125,
			expected:     "125     ",
		},
		{
			name:         "Digits exactly fill header",
			headerLength: 3,
			n:            999,
			expected:     "999",
		},
		{
			name:         "Digits exceed header",
			headerLength: 2,
			n:            100,
			err:          ErrHeaderCapacity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := EncodeHeader(tt.n, fixedSettings(tt.headerLength))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.Nil(t, b)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(b))
		})
	}
}

func TestEncodeHeaderDelimited(t *testing.T) {
	tests := []struct {
		name     string
		term     string
		n        int
		expected string
	}{
		{
			name:     "Default terminator",
			term:     "\r\n\r\n",
			n:        11,
			expected: "11\r\n\r\n",
		},
		{
			name:     "Custom terminator",
			term:     "||",
			n:        0,
			expected: "0||",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := EncodeHeader(tt.n, delimitedSettings(tt.term))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(b))
		})
	}
}

func TestParseLength(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected int
		err      error
	}{
		{
			name:     "Single digit",
			header:   "7",
			expected: 7,
		},
		{
			name:     "Multiple digits",
			header:   "4096",
			expected: 4096,
		},
		{
			name:     "Zero",
			header:   "0",
			expected: 0,
		},
		{
			name:   "Empty header",
			header: "",
			err:    ErrMalformedHeader,
		},
		{
			name:   "Non-digit contents",
			header: "12a4",
			err:    ErrMalformedHeader,
		},
		{
			name:   "Negative sign rejected",
			header: "-1",
			err:    ErrMalformedHeader,
		},
		{
			name:   "Inner space rejected",
			header: "1 2",
			err:    ErrMalformedHeader,
		},
		{
			name:   "Exceeds payload limit",
			header: "999999999",
			err:    ErrPayloadTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := ParseLength([]byte(tt.header))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, n)
		})
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 9, 10, 4095, 4096, 4097, 65536, 1 << 20} {
		fixed := fixedSettings(16)
		b, err := EncodeHeader(n, fixed)
		require.NoError(t, err)
		require.Len(t, b, 16)
		got, err := ParseLength(TrimPadding(b))
		require.NoError(t, err)
		assert.Equal(t, n, got)

		delim := delimitedSettings("\r\n\r\n")
		b, err = EncodeHeader(n, delim)
		require.NoError(t, err)
		header, rest, found := CutHeader(b, delim.TerminatorBytes())
		require.True(t, found)
		assert.Empty(t, rest)
		got, err = ParseLength(header)
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}

func TestCutHeader(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		term   string
		header string
		rest   string
		found  bool
	}{
		{
			name:   "Terminator present",
			input:  "11\r\n\r\nabc",
			term:   "\r\n\r\n",
			header: "11",
			rest:   "abc",
			found:  true,
		},
		{
			name:  "Terminator absent",
			input: "11\r\n",
			term:  "\r\n\r\n",
			rest:  "11\r\n",
		},
		{
			name:   "Nothing after terminator",
			input:  "0\r\n\r\n",
			term:   "\r\n\r\n",
			header: "0",
			rest:   "",
			found:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, rest, found := CutHeader([]byte(tt.input), []byte(tt.term))
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.rest, string(rest))
			if tt.found {
				assert.Equal(t, tt.header, string(header))
			}
		})
	}
}
