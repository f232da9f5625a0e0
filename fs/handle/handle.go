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

// Package handle implements opening a file under a declared mode set and,
// optionally, memory-mapping a region of it.
package handle

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/kraken-torrentd/diskengine/lib/fileio"
)

// Mode is a bitmask of open-mode flags.
type Mode uint16

// Open-mode bits.
const (
	Read Mode = 1 << iota
	Write
	Truncate
	NoCache
	NoAtime
	Sequential
	RandomAccess
	Hidden
)

func (m Mode) has(bit Mode) bool { return m&bit != 0 }

// Handle is an open file, optionally memory-mapped.
type Handle struct {
	mu   sync.Mutex
	path string
	mode Mode
	f    *os.File
	dirt int64 // approximate dirty byte count, used by flush heuristics.
}

// Open opens path under mode. If the parent directory is missing and Write
// is set, the parent chain is created once and the open retried exactly
// once, per the engine's file-handle contract.
func Open(path string, mode Mode) (*Handle, error) {
	f, err := open(path, mode)
	if err != nil {
		if os.IsNotExist(err) && mode.has(Write) {
			if mkErr := os.MkdirAll(filepath.Dir(path), 0755); mkErr != nil {
				return nil, err
			}
			f, err = open(path, mode)
		}
		if err != nil {
			return nil, err
		}
	}
	return &Handle{path: path, mode: mode, f: f}, nil
}

func open(path string, mode Mode) (*os.File, error) {
	flag := os.O_RDONLY
	switch {
	case mode.has(Write) && mode.has(Read):
		flag = os.O_RDWR
	case mode.has(Write):
		flag = os.O_WRONLY
	}
	if mode.has(Write) {
		flag |= os.O_CREATE
	}
	if mode.has(Truncate) {
		flag |= os.O_TRUNC
	}
	perm := os.FileMode(0644)
	if mode.has(Hidden) {
		perm = 0600
	}
	return os.OpenFile(path, flag, perm)
}

// Path returns the path the handle was opened with.
func (h *Handle) Path() string { return h.path }

// Mode returns the mode the handle was opened with.
func (h *Handle) Mode() Mode { return h.mode }

// Satisfies returns whether this handle can serve a request opened under
// requested. Write implies the handle must itself be read-write.
func (h *Handle) Satisfies(requested Mode) bool {
	if requested.has(Write) && !h.mode.has(Write) {
		return false
	}
	return true
}

// File returns the underlying *os.File, for operations fileio.Reader/Writer
// don't cover (e.g. Truncate).
func (h *Handle) File() *os.File { return h.f }

// Reader narrows the handle to the read half of its file descriptor.
func (h *Handle) Reader() fileio.Reader { return h.f }

// Writer narrows the handle to the write half of its file descriptor.
func (h *Handle) Writer() fileio.Writer { return h.f }

// MarkDirty records n additional dirty bytes, used by the Windows
// flush-most-dirty heuristic (a no-op bookkeeping call elsewhere).
func (h *Handle) MarkDirty(n int64) {
	h.mu.Lock()
	h.dirt += n
	h.mu.Unlock()
}

// DirtyBytes returns the accumulated dirty byte count.
func (h *Handle) DirtyBytes() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dirt
}

// Sync flushes the handle's buffered data to disk and resets the dirty
// counter.
func (h *Handle) Sync() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.f.Sync(); err != nil {
		return err
	}
	h.dirt = 0
	return nil
}

// Close closes the underlying file. Safe to call once; subsequent calls
// return the error from the OS.
func (h *Handle) Close() error {
	return h.f.Close()
}
