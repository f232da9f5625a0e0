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
	"sync"

	"github.com/kraken-torrentd/diskengine/torrent"
)

// partFileState batches the sparse-file placeholder creation a filesystem
// without native sparse-file support still needs, so Initialize doesn't pay
// for it inline. Tick drains whatever accumulated since the last call.
type partFileState struct {
	mu      sync.Mutex
	pending map[torrent.FileIndex]int64
}

func newPartFileState() *partFileState {
	return &partFileState{pending: make(map[torrent.FileIndex]int64)}
}

func (p *partFileState) trackFile(fi torrent.FileIndex, size int64) {
	p.mu.Lock()
	p.pending[fi] = size
	p.mu.Unlock()
}

// flushDue drains every tracked file through create. A file whose create
// fails is tracked again and retried on the next call; the others are still
// attempted.
func (p *partFileState) flushDue(create func(fi torrent.FileIndex, size int64) error) {
	p.mu.Lock()
	due := p.pending
	p.pending = make(map[torrent.FileIndex]int64)
	p.mu.Unlock()

	for fi, size := range due {
		if err := create(fi, size); err != nil {
			p.trackFile(fi, size) // retry on the next tick
			continue
		}
	}
}
