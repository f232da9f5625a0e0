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

package torrent

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const blockSize = 16 * 1024

// Errors returned while building a FileStorage.
var (
	ErrNameCollision  = errors.New("torrent: filename conflicts with directory prefix of another file")
	ErrPieceLength    = errors.New("torrent: piece length must be a power of two")
	ErrNoFiles        = errors.New("torrent: file storage must have at least one file")
	ErrInvalidSize    = errors.New("torrent: file size out of range")
)

// FileStorage is the immutable, per-torrent description of a file list and
// its piece geometry. It is constructed once via Builder.Build; afterwards
// only RenameFile (a file's name) and Hashes.SetV2BlockHashes (a file's v2
// root) change it.
type FileStorage struct {
	name        string
	pieceLength int64
	totalSize   int64
	numPieces   int
	v1          bool
	v2          bool

	files  []FileEntry
	paths  *stringPool
	links  *stringPool
}

// Name returns the torrent's top-level name.
func (fs *FileStorage) Name() string { return fs.name }

// PieceLength returns the configured piece length in bytes.
func (fs *FileStorage) PieceLength() int64 { return fs.pieceLength }

// TotalSize returns the sum of all file sizes, including pad files.
func (fs *FileStorage) TotalSize() int64 { return fs.totalSize }

// NumPieces returns the number of pieces covering TotalSize.
func (fs *FileStorage) NumPieces() int { return fs.numPieces }

// NumFiles returns the number of entries in the file list, including pad
// files.
func (fs *FileStorage) NumFiles() int { return len(fs.files) }

// IsV1 reports whether this FileStorage carries v1 (SHA-1) hashes.
func (fs *FileStorage) IsV1() bool { return fs.v1 }

// IsV2 reports whether this FileStorage carries v2 (SHA-256 Merkle) hashes.
func (fs *FileStorage) IsV2() bool { return fs.v2 }

// File returns the entry at i.
func (fs *FileStorage) File(i FileIndex) FileEntry {
	return fs.files[i]
}

// Files returns the full (sorted, padded) file list. The returned slice
// must not be mutated.
func (fs *FileStorage) Files() []FileEntry {
	return fs.files
}

// RenameFile updates file i's recorded filename, one of the two
// post-construction mutators of FileStorage: storage's rename_file
// operation needs somewhere to record the new name once the on-disk rename
// succeeds.
func (fs *FileStorage) RenameFile(i FileIndex, newName string) error {
	if err := validateFilename(newName); err != nil {
		return err
	}
	f := fs.files[i]
	f.Filename = newName
	fs.files[i] = f
	fs.paths.intern(dirOf(newName))
	return nil
}

// Builder accumulates files before validating and freezing them into a
// FileStorage.
type Builder struct {
	name        string
	pieceLength int64
	v1          bool
	v2          bool
	files       []FileEntry
	err         error
}

// NewBuilder starts building a FileStorage named name with the given piece
// length and v1/v2 hash flags. At least one of v1, v2 must be true.
func NewBuilder(name string, pieceLength int64, v1, v2 bool) *Builder {
	b := &Builder{name: name, pieceLength: pieceLength, v1: v1, v2: v2}
	if pieceLength <= 0 || pieceLength&(pieceLength-1) != 0 {
		b.err = ErrPieceLength
	}
	if v2 && pieceLength < blockSize {
		b.err = fmt.Errorf("%w: v2 requires >= 16 KiB", ErrPieceLength)
	}
	return b
}

// AddFile enforces the per-file invariants of spec §3: the filename must be
// a valid relative path under 4096 bytes, and size must be in [0, 2^62].
// Files may be added in any order; Build sorts them.
func (b *Builder) AddFile(filename string, size int64, flags FileFlag, mtime int64, symlinkTarget string) *Builder {
	if b.err != nil {
		return b
	}
	if err := validateFilename(filename); err != nil {
		b.err = err
		return b
	}
	if size < 0 || size > (1<<62) {
		b.err = ErrInvalidSize
		return b
	}
	b.files = append(b.files, FileEntry{
		Filename:      filename,
		Size:          size,
		Flags:         flags,
		MTime:         mtime,
		SymlinkTarget: symlinkTarget,
	})
	return b
}

func validateFilename(filename string) error {
	if filename == "" || len(filename) >= 4096 {
		return fmt.Errorf("%w: %q", ErrNameCollision, filename)
	}
	for _, part := range strings.Split(filename, "/") {
		if part == "" || part == ".." {
			return fmt.Errorf("torrent: invalid filename component in %q", filename)
		}
	}
	if strings.HasPrefix(filename, "/") {
		return fmt.Errorf("torrent: absolute filename %q", filename)
	}
	return nil
}

// Build validates the accumulated invariants (sorted order, directory/file
// collisions, v2 piece alignment via pad-file insertion) and returns an
// immutable FileStorage.
func (b *Builder) Build() (*FileStorage, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.files) == 0 {
		return nil, ErrNoFiles
	}

	files := make([]FileEntry, len(b.files))
	copy(files, b.files)
	sort.Slice(files, func(i, j int) bool {
		return files[i].Filename < files[j].Filename
	})

	if err := checkDirFileCollisions(files); err != nil {
		return nil, err
	}

	if b.v2 {
		files = insertPadFiles(files, b.pieceLength, b.v2)
	}

	var total int64
	for i := range files {
		files[i].Offset = total
		total += files[i].Size
	}

	numPieces := int((total + b.pieceLength - 1) / b.pieceLength)
	if total == 0 {
		numPieces = 0
	}

	fs := &FileStorage{
		name:        b.name,
		pieceLength: b.pieceLength,
		totalSize:   total,
		numPieces:   numPieces,
		v1:          b.v1,
		v2:          b.v2,
		files:       files,
		paths:       newStringPool(),
		links:       newStringPool(),
	}
	for _, f := range files {
		fs.paths.intern(dirOf(f.Filename))
		if f.Flags.Has(FlagSymlink) {
			fs.links.intern(f.SymlinkTarget)
		}
	}
	return fs, nil
}

func dirOf(filename string) string {
	i := strings.LastIndex(filename, "/")
	if i < 0 {
		return ""
	}
	return filename[:i]
}

// checkDirFileCollisions enforces the v2 requirement that no filename may
// be a directory prefix of another file's path.
func checkDirFileCollisions(files []FileEntry) error {
	names := make(map[string]bool, len(files))
	for _, f := range files {
		names[f.Filename] = true
	}
	for _, f := range files {
		dir := dirOf(f.Filename)
		for dir != "" {
			if names[dir] {
				return fmt.Errorf("%w: %q is both a file and a directory", ErrNameCollision, dir)
			}
			dir = dirOf(dir)
		}
	}
	return nil
}

// insertPadFiles inserts synthetic pad entries between files so that every
// non-pad file begins at a piece boundary, as required for v2 and optionally
// done for v1/hybrid compatibility.
func insertPadFiles(files []FileEntry, pieceLength int64, tailPad bool) []FileEntry {
	out := make([]FileEntry, 0, len(files)+len(files))
	var offset int64
	for i, f := range files {
		if f.Size > 0 {
			if rem := offset % pieceLength; rem != 0 {
				padSize := pieceLength - rem
				out = append(out, FileEntry{
					Filename: fmt.Sprintf(".pad/%d", padSize),
					Size:     padSize,
					Flags:    FlagPad,
				})
				offset += padSize
			}
		}
		out = append(out, f)
		offset += f.Size
		_ = i
	}
	if tailPad {
		if rem := offset % pieceLength; rem != 0 {
			padSize := pieceLength - rem
			out = append(out, FileEntry{
				Filename: fmt.Sprintf(".pad/%d", padSize),
				Size:     padSize,
				Flags:    FlagPad,
			})
		}
	}
	return out
}
