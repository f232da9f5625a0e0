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
	"errors"
	"fmt"

	"github.com/kraken-torrentd/diskengine/fs/handle"
	"github.com/kraken-torrentd/diskengine/torrent"
)

// Flags carries the per-request hints the disk engine's job router and
// Storage's I/O paths both consult.
type Flags uint8

// Flag bits.
const (
	// SequentialAccess hints that this job's bytes will be consumed in
	// piece order; the disk engine's routing rule sends hash/hash2 jobs
	// carrying this flag to the hash pool when one exists.
	SequentialAccess Flags = 1 << iota
)

// Has reports whether bit is set.
func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// ErrPieceNotComplete is returned by operations that require a piece to
// already be marked complete.
var ErrPieceNotComplete = errors.New("storage: piece not complete")

// ErrPieceComplete is returned when a write targets a piece that has
// already been marked complete.
var ErrPieceComplete = errors.New("storage: piece already complete")

// ErrWriteConflict is returned when a write targets a piece another write
// is already in flight for.
var ErrWriteConflict = errors.New("storage: piece is already being written")

// ErrShortIO is returned when a read or write stops short of piece_size2 for
// reasons other than reaching the end of the torrent.
var ErrShortIO = errors.New("storage: short read or write")

// Read fills buf (piece-relative, starting at offset) by gathering bytes
// from the underlying file(s). A short read is a fatal error whenever
// offset+len(buf) is within piece_size2(piece).
func (s *Storage) Read(buf []byte, piece torrent.PieceIndex, offset int64, mode handle.Mode, flags Flags) (int, error) {
	if !s.pieces[piece].complete() {
		return 0, ErrPieceNotComplete
	}
	slices := s.files.MapBlock(piece, offset, int64(len(buf)))
	var n int
	for _, sl := range slices {
		h, err := s.open(sl.File, mode|handle.Read)
		if err != nil {
			return n, fmt.Errorf("storage: open file %d: %w", sl.File, err)
		}
		got, err := h.Reader().ReadAt(buf[n:int64(n)+sl.Length], sl.FileOffset)
		n += got
		if err != nil {
			return n, fmt.Errorf("storage: read file %d: %w", sl.File, err)
		}
	}
	if int64(n) < int64(len(buf)) && int64(offset)+int64(len(buf)) <= s.files.PieceSize2(piece) {
		return n, ErrShortIO
	}
	return n, nil
}

// Write scatters buf (piece-relative, starting at offset) across the
// underlying file(s). Concurrent writes to the same (piece, offset) are the
// caller's (the disk engine's) responsibility not to reorder; Storage only
// guarantees each individual Write call is atomic with respect to its own
// byte range.
func (s *Storage) Write(buf []byte, piece torrent.PieceIndex, offset int64, mode handle.Mode, flags Flags) (int, error) {
	slices := s.files.MapBlock(piece, offset, int64(len(buf)))
	var n int
	for _, sl := range slices {
		h, err := s.open(sl.File, mode|handle.Write)
		if err != nil {
			return n, fmt.Errorf("storage: open file %d: %w", sl.File, err)
		}
		put, err := h.Writer().WriteAt(buf[n:int64(n)+sl.Length], sl.FileOffset)
		n += put
		if err != nil {
			return n, fmt.Errorf("storage: write file %d: %w", sl.File, err)
		}
		h.MarkDirty(int64(put))
	}
	if int64(n) < int64(len(buf)) && int64(offset)+int64(len(buf)) <= s.files.PieceSize2(piece) {
		return n, ErrShortIO
	}
	return n, nil
}

// MarkPieceWriting transitions piece from empty to dirty, the only legal
// precondition for a Write job to proceed. It mirrors the conflict/complete
// outcomes the caller must branch on before issuing the actual Write.
func (s *Storage) MarkPieceWriting(piece torrent.PieceIndex) (conflict, complete bool) {
	p := s.pieces[piece]
	if p.complete() {
		return false, true
	}
	if p.dirty() {
		return true, false
	}
	dirty, comp := p.tryMarkDirty()
	return dirty, comp
}

// MarkPieceFailed reverts a dirty piece back to empty after a failed write,
// so another attempt may claim it.
func (s *Storage) MarkPieceFailed(piece torrent.PieceIndex) {
	s.pieces[piece].markEmpty()
}

// MarkPieceComplete transitions a dirty piece to complete. Must only be
// called once per piece, after its hash has verified.
func (s *Storage) MarkPieceComplete(piece torrent.PieceIndex) {
	s.pieces[piece].markComplete()
}

// Hash streams piece's bytes into hasher for v1 digest computation,
// len bytes starting at offset 0 within the piece.
func (s *Storage) Hash(piece torrent.PieceIndex, length int64, mode handle.Mode, flags Flags, hasher *torrent.PieceHasher) (int64, error) {
	return s.hashInto(piece, 0, length, mode, func(b []byte) { hasher.Write(b) })
}

// Hash2 streams one v2 block's bytes into hasher.
func (s *Storage) Hash2(piece torrent.PieceIndex, offset, length int64, mode handle.Mode, flags Flags, hasher *torrent.BlockHasher) (int64, error) {
	return s.hashInto(piece, offset, length, mode, func(b []byte) { hasher.Write(b) })
}

func (s *Storage) hashInto(piece torrent.PieceIndex, offset, length int64, mode handle.Mode, write func([]byte)) (int64, error) {
	slices := s.files.MapBlock(piece, offset, length)
	buf := make([]byte, torrent.BlockSize)
	var n int64
	for _, sl := range slices {
		h, err := s.open(sl.File, mode|handle.Read)
		if err != nil {
			return n, fmt.Errorf("storage: open file %d: %w", sl.File, err)
		}
		remaining := sl.Length
		at := sl.FileOffset
		for remaining > 0 {
			chunk := int64(len(buf))
			if remaining < chunk {
				chunk = remaining
			}
			got, err := h.Reader().ReadAt(buf[:chunk], at)
			n += int64(got)
			if got > 0 {
				write(buf[:got])
			}
			if err != nil {
				return n, fmt.Errorf("storage: hash read file %d: %w", sl.File, err)
			}
			at += int64(got)
			remaining -= int64(got)
		}
	}
	return n, nil
}
