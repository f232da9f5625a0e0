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

import "sync"

type pieceStatus int

const (
	pieceEmpty pieceStatus = iota
	pieceComplete
	pieceDirty
)

// piece tracks one piece's write status: empty (never written), dirty
// (a write is in flight), or complete (written and verified).
type piece struct {
	sync.RWMutex
	status pieceStatus
}

func (p *piece) complete() bool {
	p.RLock()
	defer p.RUnlock()
	return p.status == pieceComplete
}

func (p *piece) dirty() bool {
	p.RLock()
	defer p.RUnlock()
	return p.status == pieceDirty
}

// tryMarkDirty is the only valid way to transition a piece from empty to
// dirty. Returns the piece's prior dirty/complete state so the caller can
// tell a genuine transition from a conflicting concurrent write.
func (p *piece) tryMarkDirty() (dirty, complete bool) {
	p.Lock()
	defer p.Unlock()
	switch p.status {
	case pieceEmpty:
		p.status = pieceDirty
	case pieceDirty:
		dirty = true
	case pieceComplete:
		complete = true
	}
	return
}

func (p *piece) markEmpty() {
	p.Lock()
	defer p.Unlock()
	p.status = pieceEmpty
}

func (p *piece) markComplete() {
	p.Lock()
	defer p.Unlock()
	p.status = pieceComplete
}

// bitfield renders the piece statuses as a bool slice, true where complete.
func bitfield(pieces []*piece) []bool {
	out := make([]bool, len(pieces))
	for i, p := range pieces {
		out[i] = p.complete()
	}
	return out
}
