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

import "sort"

// FileSlice is one file's contribution to a block-or-larger request, as
// returned by MapBlock.
type FileSlice struct {
	File       FileIndex
	FileOffset int64
	Length     int64
}

// BlockSize is the fixed sub-piece alignment unit used throughout the
// engine (16 KiB).
const BlockSize = blockSize

// PieceSize returns the length of piece i: piece_length, except possibly
// shorter for the final piece of the torrent.
func (fs *FileStorage) PieceSize(i PieceIndex) int64 {
	start := int64(i) * fs.pieceLength
	if start >= fs.totalSize {
		return 0
	}
	if start+fs.pieceLength > fs.totalSize {
		return fs.totalSize - start
	}
	return fs.pieceLength
}

// PieceSize2 is the v2-aware piece size: it may be shorter than PieceSize
// when the piece straddles a file boundary within the last piece of a file.
// Pad files never straddle, so this only differs from PieceSize for the
// final piece of a non-pad file that doesn't end on a piece boundary.
func (fs *FileStorage) PieceSize2(i PieceIndex) int64 {
	base := fs.PieceSize(i)
	if base == 0 {
		return 0
	}
	start := int64(i) * fs.pieceLength
	end := start + base
	fi := fs.FileIndexAtOffset(start)
	if fi < 0 {
		return base
	}
	f := fs.files[fi]
	fileEnd := f.Offset + f.Size
	if fileEnd < end {
		return fileEnd - start
	}
	return base
}

// BlocksInPiece returns the number of 16 KiB blocks covering piece i.
func (fs *FileStorage) BlocksInPiece(i PieceIndex) int {
	size := fs.PieceSize(i)
	return int((size + blockSize - 1) / blockSize)
}

// FileIndexAtOffset returns the index of the file containing global stream
// offset o, or -1 if o is out of range.
func (fs *FileStorage) FileIndexAtOffset(o int64) FileIndex {
	i := sort.Search(len(fs.files), func(i int) bool {
		return fs.files[i].Offset+fs.files[i].Size > o
	})
	if i == len(fs.files) {
		return -1
	}
	return FileIndex(i)
}

// FileIndexAtPiece returns the index of the first file touched by piece p.
func (fs *FileStorage) FileIndexAtPiece(p PieceIndex) FileIndex {
	return fs.FileIndexAtOffset(int64(p) * fs.pieceLength)
}

// FileIndexForRoot returns the index of the non-pad file whose v2_root
// equals h, or -1 if none matches.
func (fs *FileStorage) FileIndexForRoot(h [32]byte) FileIndex {
	for i, f := range fs.files {
		if f.hasV2Root && f.V2Root == h {
			return FileIndex(i)
		}
	}
	return -1
}

// MapBlock returns the ordered list of file slices covered by the byte
// range [piece*piece_length+offset, +size).
func (fs *FileStorage) MapBlock(piece PieceIndex, offset int64, size int64) []FileSlice {
	start := int64(piece)*fs.pieceLength + offset
	end := start + size

	var out []FileSlice
	cur := start
	for cur < end {
		fi := fs.FileIndexAtOffset(cur)
		if fi < 0 {
			break
		}
		f := fs.files[fi]
		fileOffset := cur - f.Offset
		avail := f.Size - fileOffset
		want := end - cur
		length := avail
		if want < length {
			length = want
		}
		if length > 0 {
			out = append(out, FileSlice{File: fi, FileOffset: fileOffset, Length: length})
		}
		cur += length
		if length == 0 {
			// Avoid looping forever on a zero-size file.
			cur = f.Offset + f.Size + 1
		}
	}
	return out
}

// MapFile is the inverse of MapBlock: given a byte range within one file,
// it returns the piece and in-piece offset of the first piece touched, and
// the number of bytes of size that land within that piece. Callers iterate
// for subsequent pieces.
func (fs *FileStorage) MapFile(file FileIndex, fileOffset int64, size int64) (piece PieceIndex, pieceOffset int64, length int64) {
	f := fs.files[file]
	global := f.Offset + fileOffset
	piece = PieceIndex(global / fs.pieceLength)
	pieceOffset = global % fs.pieceLength
	avail := fs.pieceLength - pieceOffset
	length = size
	if avail < length {
		length = avail
	}
	remaining := f.Size - fileOffset
	if remaining < length {
		length = remaining
	}
	return piece, pieceOffset, length
}
