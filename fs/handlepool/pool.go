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

// Package handlepool implements a bounded LRU of open file handles, keyed by
// (torrent index, file index), with concurrent-open coalescing.
package handlepool

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/kraken-torrentd/diskengine/fs/handle"
	"github.com/kraken-torrentd/diskengine/utils/log"

	"github.com/uber-go/tally"
)

// Key identifies one file within one torrent's handle pool entries.
type Key struct {
	TorrentIndex int
	FileIndex    int
}

// Resolver maps a Key to the on-disk path to open when no cached entry
// satisfies a request.
type Resolver interface {
	Path(key Key) (string, error)
}

// OpenError is a storage error tagged with the "file_open" operation, per
// the pool's failure-mode contract: a propagated open error is delivered to
// every waiter coalesced on the same key.
type OpenError struct {
	Key Key
	Err error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("file_open %+v: %s", e.Key, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

type entry struct {
	key     Key
	h       *handle.Handle
	mode    handle.Mode
	element *list.Element

	// pending is true while an open for this key is outstanding; callers
	// that find a pending entry wait on done instead of opening a second
	// handle.
	pending bool
	done    chan struct{}
	openErr error
}

// Pool is a bounded LRU of open handles.
type Pool struct {
	mu       sync.Mutex
	capacity int
	resolver Resolver
	queue    *list.List
	entries  map[Key]*entry

	opens  tally.Counter
	evicts tally.Counter
	size   tally.Gauge
}

// New creates a Pool with the given capacity. capacity <= 0 disables
// eviction. Metrics are recorded against a no-op scope; use NewWithStats to
// report them against a real one.
func New(capacity int, resolver Resolver) *Pool {
	return NewWithStats(capacity, resolver, nil)
}

// NewWithStats is New, additionally reporting open/evict counters and a pool
// size gauge against s.
func NewWithStats(capacity int, resolver Resolver, s tally.Scope) *Pool {
	if s == nil {
		s = tally.NoopScope
	}
	return &Pool{
		capacity: capacity,
		resolver: resolver,
		queue:    list.New(),
		entries:  make(map[Key]*entry),
		opens:    s.Counter("handle_opens"),
		evicts:   s.Counter("handle_evicts"),
		size:     s.Gauge("handle_pool_size"),
	}
}

// Open returns a shared handle for key, opening it under mode if no cached
// entry satisfies the request. Concurrent callers requesting the same key
// coalesce onto a single open; all receive the same result.
func (p *Pool) Open(key Key, mode handle.Mode) (*handle.Handle, error) {
	for {
		p.mu.Lock()
		e, ok := p.entries[key]
		if ok && !e.pending {
			if e.h.Satisfies(mode) {
				p.queue.MoveToFront(e.element)
				p.mu.Unlock()
				return e.h, nil
			}
			// Cached entry can't serve this mode (e.g. read-only cached,
			// write requested): evict it and reopen under the wider mode.
			p.removeLocked(e)
			ok = false
		}
		if ok && e.pending {
			done := e.done
			p.mu.Unlock()
			<-done
			if e.openErr != nil {
				return nil, &OpenError{Key: key, Err: e.openErr}
			}
			continue
		}

		// Nobody is opening this key yet: claim it.
		e = &entry{key: key, pending: true, done: make(chan struct{})}
		p.entries[key] = e
		p.mu.Unlock()

		path, err := p.resolver.Path(key)
		var h *handle.Handle
		if err == nil {
			h, err = handle.Open(path, mode)
		}

		p.mu.Lock()
		if err != nil {
			e.openErr = err
			delete(p.entries, key)
			p.mu.Unlock()
			close(e.done)
			return nil, &OpenError{Key: key, Err: err}
		}
		e.pending = false
		e.h = h
		e.mode = mode
		e.element = p.queue.PushFront(e)
		p.evictIfNeededLocked()
		p.opens.Inc(1)
		p.size.Update(float64(len(p.entries)))
		p.mu.Unlock()
		close(e.done)
		return h, nil
	}
}

// removeLocked unlinks e from the LRU bookkeeping. Caller holds p.mu.
func (p *Pool) removeLocked(e *entry) {
	if e.element != nil {
		p.queue.Remove(e.element)
	}
	delete(p.entries, e.key)
}

// evictIfNeededLocked evicts the least-recently-used entry if the pool is
// over capacity. The handle's Close() runs after p.mu is released, since
// Close may be expensive on some platforms.
func (p *Pool) evictIfNeededLocked() {
	if p.capacity <= 0 || len(p.entries) <= p.capacity {
		return
	}
	back := p.queue.Back()
	if back == nil {
		return
	}
	victim := back.Value.(*entry)
	p.removeLocked(victim)
	p.evicts.Inc(1)

	go func() {
		if err := victim.h.Close(); err != nil {
			log.Errorf("handlepool: evict close %+v: %s", victim.key, err)
		}
	}()
}

// Release closes and removes every entry belonging to torrent.
func (p *Pool) Release(torrentIndex int) {
	p.mu.Lock()
	var victims []*entry
	for k, e := range p.entries {
		if k.TorrentIndex == torrentIndex && !e.pending {
			p.removeLocked(e)
			victims = append(victims, e)
		}
	}
	p.mu.Unlock()

	for _, e := range victims {
		if err := e.h.Close(); err != nil {
			log.Errorf("handlepool: release close %+v: %s", e.key, err)
		}
	}
}

// ReleaseAll closes and removes every entry in the pool.
func (p *Pool) ReleaseAll() {
	p.mu.Lock()
	var victims []*entry
	for _, e := range p.entries {
		if !e.pending {
			victims = append(victims, e)
		}
	}
	p.entries = make(map[Key]*entry)
	p.queue = list.New()
	p.mu.Unlock()

	for _, e := range victims {
		if err := e.h.Close(); err != nil {
			log.Errorf("handlepool: release close %+v: %s", e.key, err)
		}
	}
}

// Resize evicts entries until the population fits within n.
func (p *Pool) Resize(n int) {
	p.mu.Lock()
	p.capacity = n
	for len(p.entries) > n {
		prevLen := len(p.entries)
		p.evictIfNeededLocked()
		if len(p.entries) == prevLen {
			break
		}
	}
	p.mu.Unlock()
}

// CloseOldest closes the single least-recently-used handle, used by the disk
// engine's periodic maintenance pass.
func (p *Pool) CloseOldest() {
	p.mu.Lock()
	back := p.queue.Back()
	if back == nil {
		p.mu.Unlock()
		return
	}
	victim := back.Value.(*entry)
	p.removeLocked(victim)
	p.mu.Unlock()

	if err := victim.h.Close(); err != nil {
		log.Errorf("handlepool: close oldest %+v: %s", victim.key, err)
	}
}

// FlushNextFile picks the entry with the most accumulated dirty bytes and
// flushes it. This is a Windows-only behavior in the original engine
// (elsewhere write-coalescing doesn't stall the same way); it is a no-op
// everywhere else.
func (p *Pool) FlushNextFile() {
	flushNextFile(p)
}
