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

// Package diskengine runs the disk I/O job queue: two thread pools (generic
// and hash), job routing between them, per-storage fencing, and periodic
// maintenance (closing idle handles, flushing dirty mappings).
package diskengine

import (
	"github.com/kraken-torrentd/diskengine/fs/handle"
	"github.com/kraken-torrentd/diskengine/storage"
	"github.com/kraken-torrentd/diskengine/torrent"
	"go.uber.org/atomic"
)

// Kind identifies a job variant.
type Kind int

// Job variants, per spec.
const (
	Read Kind = iota
	PartialRead
	Write
	Hash
	Hash2
	MoveStorage
	ReleaseFiles
	DeleteFiles
	CheckFastresume
	RenameFile
	StopTorrent
	FilePriority
	ClearPiece
)

// isFence reports whether k establishes a fence boundary on its Storage.
func (k Kind) isFence() bool {
	switch k {
	case MoveStorage, ReleaseFiles, DeleteFiles, CheckFastresume, RenameFile, StopTorrent, FilePriority, ClearPiece:
		return true
	}
	return false
}

// Job describes one unit of disk work against one Storage.
type Job struct {
	Kind    Kind
	Storage *storage.Storage

	Piece  torrent.PieceIndex
	Offset int64
	Size   int64
	Mode   handle.Mode
	Flags  storage.Flags

	// Read fills Buffer; Write takes ownership of Buffer and writes it.
	Buffer []byte
	// BufferOffset is PartialRead's destination offset into a
	// pre-allocated Buffer (the store-buffer fast path).
	BufferOffset int64

	// WantV1 is carried on the job but not consulted: dispatchHash always
	// computes the SHA-1 piece digest, and v2 block hashes come only from
	// separate Hash2 jobs.
	WantV1 bool

	NewPath      string
	MovePolicy   storage.MovePolicy
	DeleteOption storage.DeleteOption
	FileIndex    torrent.FileIndex
	NewName      string
	ResumeParams storage.ResumeParams
	Links        []string
	Priorities   []int

	aborted  atomic.Bool
	Callback func(*Result)
}

// Abort marks j as canceled. A worker that pops an aborted job returns a
// canceled Result without dispatching it.
func (j *Job) Abort() { j.aborted.Store(true) }

func (j *Job) isAborted() bool { return j.aborted.Load() }

// Result is delivered to Job.Callback once the job finishes (or is
// canceled/fatally errors).
type Result struct {
	Job *Job

	N           int64
	PieceHash   [20]byte
	BlockHash   [32]byte
	BlockHashes [][32]byte
	NewPath     string
	Verified    bool

	Canceled bool
	Err      error
}
