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

package handle

import (
	"errors"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// MapMode selects whether a Mapping is read-only or read-write.
type MapMode int

// Mapping modes.
const (
	MapRead MapMode = iota
	MapReadWrite
)

// ErrClosed is returned by Mapping operations after Close.
var ErrClosed = errors.New("handle: mapping closed")

// Mapping is a memory-mapped region of a Handle's file. The zero value is
// not usable; obtain one via Handle.Map. A Mapping of size zero is
// represented as a nil *Mapping, per the "no mapping" contract.
type Mapping struct {
	mu     sync.Mutex
	region mmap.MMap
	closed bool
}

// Map maps size bytes of h's file. In MapRead mode the mapped size is
// min(file size, size); in MapReadWrite mode the file is truncated/extended
// to size first, since mmap requires the backing file be pre-sized. size ==
// 0 returns (nil, nil): "no mapping".
func (h *Handle) Map(size int64, mode MapMode) (*Mapping, error) {
	if size == 0 {
		return nil, nil
	}

	prot := mmap.RDONLY
	if mode == MapReadWrite {
		prot = mmap.RDWR
		if err := h.f.Truncate(size); err != nil {
			return nil, err
		}
	} else {
		info, err := h.f.Stat()
		if err != nil {
			return nil, err
		}
		if info.Size() < size {
			size = info.Size()
		}
	}

	region, err := mmap.MapRegion(h.f, int(size), prot, 0, 0)
	if err != nil {
		return nil, err
	}
	dontDumpHint(region)
	return &Mapping{region: region}, nil
}

// Bytes returns the mapped region. Valid until Close.
func (m *Mapping) Bytes() []byte {
	return m.region
}

// Len returns the length of the mapped region.
func (m *Mapping) Len() int {
	return len(m.region)
}

// Flush synchronously writes modified pages back to the file.
func (m *Mapping) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return m.region.Flush()
}

// Close unmaps the region. Idempotent; safe to call from a defer (RAII).
func (m *Mapping) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.region.Unmap()
}
