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

package storage

import (
	"errors"
	"testing"

	"github.com/kraken-torrentd/diskengine/torrent"
	"github.com/stretchr/testify/require"
)

func TestPartFileFlushDueCreatesTracked(t *testing.T) {
	p := newPartFileState()
	p.trackFile(0, 100)
	p.trackFile(1, 200)

	created := make(map[torrent.FileIndex]int64)
	p.flushDue(func(fi torrent.FileIndex, size int64) error {
		created[fi] = size
		return nil
	})

	require.Equal(t, map[torrent.FileIndex]int64{0: 100, 1: 200}, created)
}

func TestPartFileFlushDueRetriesOnError(t *testing.T) {
	p := newPartFileState()
	p.trackFile(0, 100)

	calls := 0
	p.flushDue(func(fi torrent.FileIndex, size int64) error {
		calls++
		return errors.New("disk full")
	})
	require.Equal(t, 1, calls)

	// Still pending after a failed attempt.
	p.flushDue(func(fi torrent.FileIndex, size int64) error {
		calls++
		return nil
	})
	require.Equal(t, 2, calls)

	// Nothing left to flush.
	p.flushDue(func(fi torrent.FileIndex, size int64) error {
		calls++
		return nil
	})
	require.Equal(t, 2, calls)
}
