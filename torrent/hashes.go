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
	"crypto/sha1"
	"crypto/sha256"
	"fmt"

	"github.com/kraken-torrentd/diskengine/torrent/merkle"
)

// Hashes holds the per-piece v1 SHA-1 digests and per-file v2 block-hash
// layers for one FileStorage. It is attached after construction (hashes are
// normally filled in by the create-torrent pipeline or by loading an
// existing metainfo). FileStorage holds no hash data apart from each file's
// v2 root, which SetV2BlockHashes records on the file entry.
type Hashes struct {
	fs *FileStorage

	// v1Pieces holds one 20-byte SHA-1 digest per piece, concatenated.
	v1Pieces []byte

	// v2Blocks holds, per non-pad file with size > 0, the ordered SHA-256
	// block hashes (the piece layer).
	v2Blocks map[FileIndex][][32]byte
}

// NewHashes creates an empty Hashes for fs, sized for v1Pieces if fs.IsV1().
func NewHashes(fileStorage *FileStorage) *Hashes {
	h := &Hashes{fs: fileStorage}
	if fileStorage.IsV1() {
		h.v1Pieces = make([]byte, fileStorage.NumPieces()*sha1.Size)
	}
	if fileStorage.IsV2() {
		h.v2Blocks = make(map[FileIndex][][32]byte)
	}
	return h
}

// SetV1PieceHash stores the SHA-1 digest for piece i.
func (h *Hashes) SetV1PieceHash(i PieceIndex, digest [sha1.Size]byte) {
	copy(h.v1Pieces[int(i)*sha1.Size:], digest[:])
}

// V1PieceHash returns the SHA-1 digest for piece i.
func (h *Hashes) V1PieceHash(i PieceIndex) ([]byte, error) {
	if int(i) >= h.fs.NumPieces() {
		return nil, fmt.Errorf("torrent: piece index %d out of range %d", i, h.fs.NumPieces())
	}
	start := int(i) * sha1.Size
	return h.v1Pieces[start : start+sha1.Size], nil
}

// SetV2BlockHashes stores the ordered per-block SHA-256 hashes for file i
// and computes/stores its Merkle root.
func (h *Hashes) SetV2BlockHashes(i FileIndex, blocks [][32]byte) {
	h.v2Blocks[i] = blocks
	root := merkle.Root(blocks)
	f := h.fs.files[i]
	f.V2Root = root
	f.hasV2Root = true
	h.fs.files[i] = f
}

// V2BlockHashes returns the per-block SHA-256 hashes stored for file i.
func (h *Hashes) V2BlockHashes(i FileIndex) [][32]byte {
	return h.v2Blocks[i]
}

// PieceHasher is an incremental SHA-1 hasher used for v1 digest computation,
// matching the "hash" disk-job contract: bytes are streamed in and the
// final digest is read once.
type PieceHasher struct {
	h hashState
}

type hashState interface {
	Write(p []byte) (int, error)
	Sum([]byte) []byte
}

// NewPieceHasher returns a fresh incremental SHA-1 hasher for a v1 piece.
func NewPieceHasher() *PieceHasher {
	return &PieceHasher{h: sha1.New()}
}

// Write streams piece bytes into the hasher.
func (p *PieceHasher) Write(b []byte) (int, error) { return p.h.Write(b) }

// Sum20 returns the final 20-byte SHA-1 digest.
func (p *PieceHasher) Sum20() [sha1.Size]byte {
	var out [sha1.Size]byte
	copy(out[:], p.h.Sum(nil))
	return out
}

// BlockHasher is an incremental SHA-256 hasher used for a single v2 block.
type BlockHasher struct {
	h hashState
}

// NewBlockHasher returns a fresh incremental SHA-256 hasher for one v2
// block.
func NewBlockHasher() *BlockHasher {
	return &BlockHasher{h: sha256.New()}
}

// Write streams block bytes into the hasher.
func (b *BlockHasher) Write(p []byte) (int, error) { return b.h.Write(p) }

// Sum32 returns the final 32-byte SHA-256 digest.
func (b *BlockHasher) Sum32() [32]byte {
	var out [32]byte
	copy(out[:], b.h.Sum(nil))
	return out
}
