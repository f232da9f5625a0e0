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

// Package storage implements the per-torrent I/O façade: reading, writing
// and hashing piece data across a torrent's (possibly many) files, and the
// out-of-band operations (move, rename, release, delete) the disk engine
// runs behind a fence. All operations here are meant to run on disk-engine
// worker goroutines, never called directly by a caller's own goroutine.
package storage

import (
	"fmt"

	"github.com/kraken-torrentd/diskengine/fs"
	"github.com/kraken-torrentd/diskengine/fs/handle"
	"github.com/kraken-torrentd/diskengine/fs/handlepool"
	"github.com/kraken-torrentd/diskengine/torrent"
)

// Settings configures Storage.Initialize.
type Settings struct {
	// SparseSupported indicates the target filesystem can represent sparse
	// files natively (Truncate-to-length suffices). If false, Initialize
	// falls back to a part-file layout via partFileState.
	SparseSupported bool
}

// Storage is the I/O façade for exactly one torrent.
type Storage struct {
	torrentIndex int
	files        *torrent.FileStorage
	savePath     string
	handles      *handlepool.Pool

	pieces []*piece
	fence  *Fence
	part   *partFileState
}

// New creates a Storage for one torrent. torrentIndex must be unique among
// Storages sharing handles, since it keys handlepool.Key and Fence
// bookkeeping lives one per Storage.
func New(torrentIndex int, files *torrent.FileStorage, savePath string, handles *handlepool.Pool) *Storage {
	pieces := make([]*piece, files.NumPieces())
	for i := range pieces {
		pieces[i] = &piece{}
	}
	return &Storage{
		torrentIndex: torrentIndex,
		files:        files,
		savePath:     savePath,
		handles:      handles,
		pieces:       pieces,
		fence:        NewFence(),
		part:         newPartFileState(),
	}
}

// TorrentIndex returns the key this Storage's handles are filed under in
// the shared handlepool.Pool.
func (s *Storage) TorrentIndex() int { return s.torrentIndex }

// Fence returns this Storage's disk-job fence.
func (s *Storage) Fence() *Fence { return s.fence }

// Files returns the underlying file-geometry model.
func (s *Storage) Files() *torrent.FileStorage { return s.files }

// Bitfield reports which pieces are complete.
func (s *Storage) Bitfield() []bool { return bitfield(s.pieces) }

// HasPiece reports whether piece i is complete.
func (s *Storage) HasPiece(i torrent.PieceIndex) bool {
	if int(i) >= len(s.pieces) {
		return false
	}
	return s.pieces[i].complete()
}

// FilePath returns the absolute on-disk path of file fi. Exported so the
// disk engine's shared handlepool.Resolver (which fans out across every
// torrent's Storage by torrentIndex) can resolve paths without duplicating
// this Storage's save-path logic.
func (s *Storage) FilePath(fi torrent.FileIndex) (string, error) {
	if int(fi) >= s.files.NumFiles() {
		return "", fmt.Errorf("storage: file index %d out of range", fi)
	}
	return s.path(fi), nil
}

func (s *Storage) path(fi torrent.FileIndex) string {
	return fs.Combine(s.savePath, s.files.File(fi).Filename)
}

func (s *Storage) open(fi torrent.FileIndex, mode handle.Mode) (*handle.Handle, error) {
	key := handlepool.Key{TorrentIndex: s.torrentIndex, FileIndex: int(fi)}
	return s.handles.Open(key, mode)
}

// Initialize creates the on-disk directory layout for every file, and
// establishes sparse placeholders (or, when the filesystem doesn't support
// sparse files, a part-file layout drained lazily by Tick).
func (s *Storage) Initialize(settings Settings) error {
	for i := torrent.FileIndex(0); int(i) < s.files.NumFiles(); i++ {
		f := s.files.File(i)
		if f.IsPad() {
			continue
		}
		p := s.path(i)
		if err := fs.CreateDirectories(fs.Parent(p)); err != nil {
			return fmt.Errorf("storage: create directories for %q: %w", p, err)
		}
		if settings.SparseSupported {
			if err := s.initSparseFile(p, f.Size); err != nil {
				return fmt.Errorf("storage: init sparse file %q: %w", p, err)
			}
		} else {
			s.part.trackFile(i, f.Size)
		}
	}
	return nil
}

func (s *Storage) initSparseFile(path string, size int64) error {
	h, err := handle.Open(path, handle.Write)
	if err != nil {
		return err
	}
	if err := h.File().Truncate(size); err != nil {
		return err
	}
	return nil
}

// HasAnyFile reports whether any non-pad file already exists on disk, used
// by the caller to decide whether an un-resumed torrent needs a full
// recheck rather than a fresh download.
func (s *Storage) HasAnyFile() bool {
	for i := torrent.FileIndex(0); int(i) < s.files.NumFiles(); i++ {
		f := s.files.File(i)
		if f.IsPad() {
			continue
		}
		if fs.Exists(s.path(i)) {
			return true
		}
	}
	return false
}

// Tick drains deferred part-file metadata flushes. Called periodically by
// the disk engine's maintenance pass.
func (s *Storage) Tick() {
	s.part.flushDue(func(fi torrent.FileIndex, size int64) error {
		return s.initSparseFile(s.path(fi), size)
	})
}
