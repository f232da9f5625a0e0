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

// Package createtorrent walks a file tree, builds its torrent.FileStorage,
// drives a diskengine to compute v1/v2 hashes, and emits canonical bencoded
// metainfo.
package createtorrent

import (
	"errors"
	"sort"

	"github.com/c2h5oh/datasize"
)

// autoPieceLengthTable maps total content size to piece length as a sorted
// threshold list, fixed by the algorithm rather than user-configured.
var autoPieceLengthTable = []struct {
	threshold   datasize.ByteSize
	pieceLength datasize.ByteSize
}{
	{2_684_355, 16 * datasize.KB},
	{10_737_418, 32 * datasize.KB},
	{42_949_673, 64 * datasize.KB},
	{171_798_692, 128 * datasize.KB},
	{687_194_767, 256 * datasize.KB},
	{2_748_779_069, 512 * datasize.KB},
	{10_995_116_278, 1 * datasize.MB},
	{43_980_465_111, 2 * datasize.MB},
	{175_921_860_444, 4 * datasize.MB},
	{703_687_441_777, 8 * datasize.MB},
}

// ErrPieceLengthTooLarge is returned when an explicit or computed piece
// length exceeds 128 MiB.
var ErrPieceLengthTooLarge = errors.New("createtorrent: piece length exceeds 128 MiB")

const maxPieceLength = 128 * 1024 * 1024

// autoPieceLength picks the smallest table entry whose threshold exceeds
// totalSize.
func autoPieceLength(totalSize int64) int64 {
	i := sort.Search(len(autoPieceLengthTable), func(i int) bool {
		return int64(autoPieceLengthTable[i].threshold) > totalSize
	})
	if i == len(autoPieceLengthTable) {
		i = len(autoPieceLengthTable) - 1
	}
	return int64(autoPieceLengthTable[i].pieceLength)
}

// resolvePieceLength honors an explicit piece length (validating it) or
// computes the automatic one for totalSize, applying the clamping and
// power-of-two rules below.
func resolvePieceLength(explicit int64, totalSize int64, v1Only, allowOddPieceSize bool) (int64, error) {
	pl := explicit
	if pl == 0 {
		pl = autoPieceLength(totalSize)
	}
	if pl > maxPieceLength {
		return 0, ErrPieceLengthTooLarge
	}
	if !v1Only {
		if pl < 16*1024 {
			pl = 16 * 1024
		}
		if pl&(pl-1) != 0 {
			return 0, errors.New("createtorrent: piece length must be a power of two for v2/hybrid torrents")
		}
		return pl, nil
	}
	if !allowOddPieceSize && pl%(16*1024) != 0 {
		return 0, errors.New("createtorrent: piece length must be a multiple of 16 KiB unless allow_odd_piece_size is set")
	}
	return pl, nil
}
