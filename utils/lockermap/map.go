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

// Package lockermap implements a concurrent map of sync.Locker values where
// callers lock individual entries rather than the whole map.
package lockermap

import "sync"

// Map is a concurrent map from arbitrary keys to sync.Locker values. The
// zero value is an empty map ready to use.
//
// Map exists because store buffers key in-flight state by
// (torrent, piece, offset) tuples and need per-key locking without
// serializing unrelated keys behind a single map mutex.
type Map struct {
	mu sync.Mutex
	m  map[interface{}]sync.Locker
}

func (m *Map) init() {
	if m.m == nil {
		m.m = make(map[interface{}]sync.Locker)
	}
}

// TryStore stores v under key if key is not already present. Returns false
// if key was already present.
func (m *Map) TryStore(key interface{}, v sync.Locker) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	if _, ok := m.m[key]; ok {
		return false
	}
	m.m[key] = v
	return true
}

// Load looks up key, locks the associated value, and runs f while holding
// that lock. Returns false if key does not exist, or if key was deleted
// between being found and its lock being acquired.
func (m *Map) Load(key interface{}, f func(sync.Locker)) bool {
	m.mu.Lock()
	v, ok := m.m[key]
	m.mu.Unlock()
	if !ok {
		return false
	}

	v.Lock()
	defer v.Unlock()

	// v may have been deleted (or replaced) while we were waiting for the
	// lock. Re-check under the map lock before running f.
	m.mu.Lock()
	cur, ok := m.m[key]
	m.mu.Unlock()
	if !ok || cur != v {
		return false
	}

	f(v)
	return true
}

// Delete removes key from the map, if present.
func (m *Map) Delete(key interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.m, key)
}

// Range iterates over the map, locking each value before invoking f on it.
// Entries deleted concurrently (between being observed and their lock being
// acquired) are skipped. Iteration stops early if f returns false.
func (m *Map) Range(f func(key interface{}, v sync.Locker) bool) {
	m.mu.Lock()
	keys := make([]interface{}, 0, len(m.m))
	for k := range m.m {
		keys = append(keys, k)
	}
	m.mu.Unlock()

	for _, k := range keys {
		cont := true
		m.Load(k, func(v sync.Locker) {
			cont = f(k, v)
		})
		if !cont {
			return
		}
	}
}
