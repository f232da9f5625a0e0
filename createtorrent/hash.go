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

package createtorrent

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/kraken-torrentd/diskengine/diskengine"
	"github.com/kraken-torrentd/diskengine/storage"
	"github.com/kraken-torrentd/diskengine/torrent"
	"github.com/kraken-torrentd/diskengine/utils/heap"
)

// JobsInFlight computes the bounded hash-job concurrency:
// max(jobsPerThread * hashThreads, 1 MiB / pieceLength).
func JobsInFlight(jobsPerThread, hashThreads int, pieceLength int64) int {
	byThreads := jobsPerThread * hashThreads
	byMiB := int((1 << 20) / pieceLength)
	if byMiB > byThreads {
		return byMiB
	}
	if byThreads < 1 {
		return 1
	}
	return byThreads
}

// HashAll drives the disk engine to compute v1 SHA-1 piece hashes for fs's
// entire piece range against s, filling in hashes as each completes and
// refilling the in-flight job set FIFO by ascending piece index (via
// utils/heap, matching its priority-ascending-pop contract) until none
// remain, then returns.
func HashAll(fs *torrent.FileStorage, s *storage.Storage, engine *diskengine.Engine, hashes *torrent.Hashes, jobsInFlight int) error {
	n := fs.NumPieces()
	if n == 0 {
		return nil
	}
	if jobsInFlight <= 0 {
		jobsInFlight = 1
	}

	pq := heap.NewPriorityQueue()
	for i := 0; i < n; i++ {
		pq.Push(&heap.Item{Value: strconv.Itoa(i), Priority: i})
	}

	type result struct {
		idx int
		sum [20]byte
		err error
	}
	results := make(chan result, n)

	var mu sync.Mutex
	launch := func() bool {
		item, err := pq.Pop()
		if err != nil {
			return false
		}
		idx, _ := strconv.Atoi(item.Value)
		size := fs.PieceSize(torrent.PieceIndex(idx))
		engine.Submit(&diskengine.Job{
			Kind:    diskengine.Hash,
			Storage: s,
			Piece:   torrent.PieceIndex(idx),
			Size:    size,
			WantV1:  true,
			Callback: func(res *diskengine.Result) {
				results <- result{idx: idx, sum: res.PieceHash, err: res.Err}
			},
		})
		return true
	}

	mu.Lock()
	inFlight := 0
	for inFlight < jobsInFlight && launch() {
		inFlight++
	}
	mu.Unlock()

	completed := 0
	for completed < n {
		r := <-results
		completed++
		if r.err != nil {
			return fmt.Errorf("createtorrent: hash piece %d: %w", r.idx, r.err)
		}
		hashes.SetV1PieceHash(torrent.PieceIndex(r.idx), r.sum)

		mu.Lock()
		if !launch() {
			inFlight--
		}
		mu.Unlock()
	}
	return nil
}

// HashAllV2 drives the disk engine to compute v2 SHA-256 block hashes for
// every non-pad file in fs, storing each file's ordered block hashes (and
// its derived Merkle root) into hashes once all of its blocks return. Unlike
// HashAll's per-piece FIFO, block jobs for one file must all complete before
// that file's hashes are set, since SetV2BlockHashes takes the whole
// ordered slice at once.
func HashAllV2(fs *torrent.FileStorage, s *storage.Storage, engine *diskengine.Engine, hashes *torrent.Hashes, jobsInFlight int) error {
	if jobsInFlight <= 0 {
		jobsInFlight = 1
	}

	type blockJob struct {
		file   torrent.FileIndex
		block  int
		offset int64
		size   int64
	}
	var jobs []blockJob
	pending := map[torrent.FileIndex]int{}
	blocks := map[torrent.FileIndex][][32]byte{}

	const blockSize = 16 * 1024
	for i, f := range fs.Files() {
		if f.IsPad() || f.Size == 0 {
			continue
		}
		fi := torrent.FileIndex(i)
		nblocks := int((f.Size + blockSize - 1) / blockSize)
		blocks[fi] = make([][32]byte, nblocks)
		pending[fi] = nblocks
		for b := 0; b < nblocks; b++ {
			off := int64(b) * blockSize
			size := blockSize
			if rem := f.Size - off; rem < int64(size) {
				size = int(rem)
			}
			jobs = append(jobs, blockJob{file: fi, block: b, offset: f.Offset + off, size: int64(size)})
		}
	}
	if len(jobs) == 0 {
		return nil
	}

	type result struct {
		job blockJob
		sum [32]byte
		err error
	}
	results := make(chan result, len(jobs))

	var mu sync.Mutex
	next := 0
	launch := func() bool {
		if next >= len(jobs) {
			return false
		}
		j := jobs[next]
		next++
		piece := torrent.PieceIndex(j.offset / fs.PieceLength())
		pieceOffset := j.offset % fs.PieceLength()
		engine.Submit(&diskengine.Job{
			Kind:    diskengine.Hash2,
			Storage: s,
			Piece:   piece,
			Offset:  pieceOffset,
			Size:    j.size,
			Flags:   storage.SequentialAccess,
			Callback: func(res *diskengine.Result) {
				results <- result{job: j, sum: res.BlockHash, err: res.Err}
			},
		})
		return true
	}

	mu.Lock()
	inFlight := 0
	for inFlight < jobsInFlight && launch() {
		inFlight++
	}
	mu.Unlock()

	completed := 0
	for completed < len(jobs) {
		r := <-results
		completed++
		if r.err != nil {
			return fmt.Errorf("createtorrent: hash2 file %d block %d: %w", r.job.file, r.job.block, r.err)
		}
		blocks[r.job.file][r.job.block] = r.sum
		pending[r.job.file]--
		if pending[r.job.file] == 0 {
			hashes.SetV2BlockHashes(r.job.file, blocks[r.job.file])
		}

		mu.Lock()
		if !launch() {
			inFlight--
		}
		mu.Unlock()
	}
	return nil
}
