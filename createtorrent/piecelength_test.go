// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package createtorrent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAutoPieceLengthTable(t *testing.T) {
	tests := []struct {
		size int64
		want int64
	}{
		{1000, 16 * 1024},
		{2_684_355, 32 * 1024},
		{703_687_441_778, 8 * 1024 * 1024},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, autoPieceLength(tc.size))
	}
}

func TestResolvePieceLengthAuto(t *testing.T) {
	pl, err := resolvePieceLength(0, 1000, false, false)
	require.NoError(t, err)
	require.Equal(t, int64(16*1024), pl)
}

func TestResolvePieceLengthExplicitTooLarge(t *testing.T) {
	_, err := resolvePieceLength(256*1024*1024, 1000, false, false)
	require.ErrorIs(t, err, ErrPieceLengthTooLarge)
}

func TestResolvePieceLengthV2RoundsUpToBlockSize(t *testing.T) {
	pl, err := resolvePieceLength(1024, 1000, false, false)
	require.NoError(t, err)
	require.Equal(t, int64(16*1024), pl)
}

func TestResolvePieceLengthV2RejectsNonPowerOfTwo(t *testing.T) {
	_, err := resolvePieceLength(24*1024, 1000, false, false)
	require.Error(t, err)
}

func TestResolvePieceLengthV1OnlyRejectsNonMultiple(t *testing.T) {
	_, err := resolvePieceLength(12345, 1000, true, false)
	require.Error(t, err)

	pl, err := resolvePieceLength(12345, 1000, true, true)
	require.NoError(t, err)
	require.Equal(t, int64(12345), pl)
}
