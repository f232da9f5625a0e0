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

// Package torrent implements the immutable per-torrent file model: the
// ordered file list, piece/block geometry, and the v1 (SHA-1 per piece) and
// v2 (SHA-256 Merkle-per-file) hash accessors.
package torrent

import "fmt"

// FileIndex identifies a file within a FileStorage.
type FileIndex int

// PieceIndex identifies a piece within a FileStorage.
type PieceIndex int

// FileFlag is a bit in FileEntry.Flags.
type FileFlag uint8

// File flags.
const (
	FlagPad FileFlag = 1 << iota
	FlagHidden
	FlagExecutable
	FlagSymlink
)

// Has reports whether f contains flag.
func (f FileFlag) Has(flag FileFlag) bool { return f&flag != 0 }

// FileEntry describes one file within a torrent's file list.
type FileEntry struct {
	// Filename is the path relative to the torrent's top-level directory
	// name (or, for single-file torrents, just the filename).
	Filename string
	// Size is the file's byte length, 0 <= Size <= 2^62.
	Size int64
	// Offset is the file's starting offset within the concatenated file
	// stream.
	Offset int64
	Flags  FileFlag
	// MTime is the optional modification time, seconds since epoch. Zero
	// means absent.
	MTime int64
	// SymlinkTarget is set iff FlagSymlink is set; a path relative to the
	// torrent root.
	SymlinkTarget string
	// V2Root is the SHA-256 Merkle root of the file's block hashes, set
	// exactly for v2/hybrid torrents' non-pad files.
	V2Root [32]byte
	hasV2Root bool
}

// IsPad reports whether this entry is a pad file.
func (e *FileEntry) IsPad() bool { return e.Flags.Has(FlagPad) }

// HasV2Root reports whether V2Root is populated.
func (e *FileEntry) HasV2Root() bool { return e.hasV2Root }

func (e *FileEntry) String() string {
	return fmt.Sprintf("FileEntry(%s, size=%d, offset=%d)", e.Filename, e.Size, e.Offset)
}
