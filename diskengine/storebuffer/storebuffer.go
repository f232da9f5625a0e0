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

// Package storebuffer holds pending write buffers keyed by
// (torrent, piece, offset) so reads that race an in-flight write can be
// served from memory instead of waiting on the write job to land on disk.
package storebuffer

import (
	"sync"

	"github.com/kraken-torrentd/diskengine/torrent"
	"github.com/kraken-torrentd/diskengine/utils/lockermap"
	"github.com/kraken-torrentd/diskengine/utils/log"
)

// Key identifies one pending write buffer.
type Key struct {
	TorrentIndex int
	Piece        torrent.PieceIndex
	Offset       int64
}

// entry wraps a BufferReadWriter so it can be stored directly as a
// lockermap.Map value (which requires a sync.Locker).
type entry struct {
	mu  sync.Mutex
	buf *BufferReadWriter
}

func (e *entry) Lock()   { e.mu.Lock() }
func (e *entry) Unlock() { e.mu.Unlock() }

// Buffer is the concurrent map from Key to pending write buffer.
type Buffer struct {
	m lockermap.Map
}

// New returns an empty Buffer.
func New() *Buffer {
	return &Buffer{}
}

// Insert registers buf under key. The write job's dispatch calls it just
// before the disk write, not when the job is queued, so a read dispatched
// while that write is still waiting in the queue does not see its bytes.
// A duplicate insert for a key already pending is a
// caller bug (the same (torrent, piece, offset) write shouldn't be
// in-flight twice); it is logged and the existing entry is left in place.
func (b *Buffer) Insert(key Key, buf *BufferReadWriter) {
	if !b.m.TryStore(key, &entry{buf: buf}) {
		log.Errorf("storebuffer: insert %+v: already pending", key)
	}
}

// Erase removes key's entry, called once the write it backs completes.
func (b *Buffer) Erase(key Key) {
	b.m.Delete(key)
}

// Get looks up key and, if present, calls fn with its buffer under the
// entry's lock, returning true. Returns false on a miss.
func (b *Buffer) Get(key Key, fn func(buf *BufferReadWriter)) bool {
	return b.m.Load(key, func(v sync.Locker) {
		fn(v.(*entry).buf)
	})
}

// Get2 looks up both keyA and keyB, used for block-unaligned reads that
// straddle two block-aligned store-buffer entries. fn is called once with
// whichever buffers were found (nil for a miss). The low bit of the
// returned mask is set if keyA was found, the next bit if keyB was found.
func (b *Buffer) Get2(keyA, keyB Key, fn func(a, bb *BufferReadWriter)) int {
	var a, bb *BufferReadWriter
	var mask int
	if b.m.Load(keyA, func(v sync.Locker) { a = v.(*entry).buf }) {
		mask |= 1
	}
	if b.m.Load(keyB, func(v sync.Locker) { bb = v.(*entry).buf }) {
		mask |= 2
	}
	fn(a, bb)
	return mask
}
