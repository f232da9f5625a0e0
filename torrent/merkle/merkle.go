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

// Package merkle computes v2 torrent Merkle trees: a SHA-256 hash tree over
// a file's 16 KiB block hashes, padded to a power-of-two leaf count with a
// memoized pad hash.
package merkle

import (
	"crypto/sha256"
	"sync"
)

var (
	padMu    sync.Mutex
	padCache = map[int]([32]byte){}
)

// padHash returns the memoized Merkle pad hash for a subtree of 2^level
// leaves. Matches the "pad hash of merkle_pad(piece_length/16384, 1)"
// convention: the pad value at level 0 is the SHA-256 of a 16 KiB block of
// zero bytes, and each level up combines two copies of the previous level's
// pad.
func padHash(level int) [32]byte {
	padMu.Lock()
	defer padMu.Unlock()
	var h [32]byte
	for l := 0; l <= level; l++ {
		if c, ok := padCache[l]; ok {
			h = c
			continue
		}
		if l == 0 {
			h = sha256.Sum256(make([]byte, 16*1024))
		} else {
			h = combine(h, h)
		}
		padCache[l] = h
	}
	return h
}

func combine(a, b [32]byte) [32]byte {
	buf := make([]byte, 64)
	copy(buf[:32], a[:])
	copy(buf[32:], b[:])
	return sha256.Sum256(buf)
}

// nextPow2 returns the smallest power of two >= n (n >= 1).
func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func log2(n int) int {
	l := 0
	for n > 1 {
		n >>= 1
		l++
	}
	return l
}

// Root computes the Merkle root over blockHashes, padding the leaf layer to
// a power of two with memoized pad hashes. A file with zero or one block
// hashes returns that hash directly (or the level-0 pad hash for zero
// blocks), since spec defines files smaller than one piece as storing the
// piece root directly without a pieces-layer entry.
func Root(blockHashes [][32]byte) [32]byte {
	n := len(blockHashes)
	if n == 0 {
		return padHash(0)
	}
	if n == 1 {
		return blockHashes[0]
	}

	padded := nextPow2(n)
	level := log2(padded)

	layer := make([][32]byte, padded)
	copy(layer, blockHashes)
	for i := n; i < padded; i++ {
		layer[i] = padHash(0)
	}

	for lvl := 0; lvl < level; lvl++ {
		next := make([][32]byte, len(layer)/2)
		for i := range next {
			next[i] = combine(layer[2*i], layer[2*i+1])
		}
		layer = next
	}
	return layer[0]
}

// PadHash exposes the memoized pad hash at the given tree level, used when
// assembling a larger hybrid tree that must graft a file's root against
// sibling pad subtrees.
func PadHash(level int) [32]byte {
	return padHash(level)
}
