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

package diskengine

import (
	"fmt"

	"github.com/kraken-torrentd/diskengine/diskengine/storebuffer"
	"github.com/kraken-torrentd/diskengine/storage"
	"github.com/kraken-torrentd/diskengine/torrent"
)

// dispatch runs one job to completion against its Storage and returns its
// Result. A panic-free error from the Storage call becomes a fatal Result
// rather than escaping the worker goroutine, per the "on exception: set ret
// = fatal_disk_error" step. buf is consulted by reads and populated by
// writes so a read racing an in-flight write on the same (torrent, piece,
// offset) sees that write's bytes instead of stale or partial on-disk data.
func dispatch(j *Job, buf *storebuffer.Buffer) *Result {
	switch j.Kind {
	case Read:
		return dispatchRead(j, buf)
	case PartialRead:
		return dispatchPartialRead(j, buf)
	case Write:
		return dispatchWrite(j, buf)
	case Hash:
		return dispatchHash(j)
	case Hash2:
		return dispatchHash2(j)
	case MoveStorage:
		newPath, err := j.Storage.MoveStorage(j.NewPath, j.MovePolicy)
		return &Result{Job: j, NewPath: newPath, Err: err}
	case ReleaseFiles:
		j.Storage.ReleaseFiles()
		return &Result{Job: j}
	case DeleteFiles:
		return &Result{Job: j, Err: j.Storage.DeleteFiles(j.DeleteOption)}
	case CheckFastresume:
		ok, err := j.Storage.VerifyResumeData(j.ResumeParams, j.Links)
		return &Result{Job: j, Verified: ok, Err: err}
	case RenameFile:
		return &Result{Job: j, Err: j.Storage.RenameFile(j.FileIndex, j.NewName)}
	case StopTorrent:
		j.Storage.ReleaseFiles()
		return &Result{Job: j}
	case FilePriority:
		// File priority has no on-disk effect in this engine (no selective
		// sparse allocation by priority); it exists solely as a fence point
		// so priority changes order correctly against other disk jobs.
		return &Result{Job: j}
	case ClearPiece:
		j.Storage.MarkPieceFailed(j.Piece)
		return &Result{Job: j}
	default:
		return &Result{Job: j, Err: fmt.Errorf("diskengine: unknown job kind %d", j.Kind)}
	}
}

func dispatchRead(j *Job, buf *storebuffer.Buffer) *Result {
	key := storeBufferKey(j)
	if servedFromBuffer(buf, key, j.Buffer) {
		return &Result{Job: j, N: int64(len(j.Buffer))}
	}
	n, err := j.Storage.Read(j.Buffer, j.Piece, j.Offset, j.Mode, j.Flags)
	return &Result{Job: j, N: int64(n), Err: err}
}

func dispatchPartialRead(j *Job, buf *storebuffer.Buffer) *Result {
	dst := j.Buffer[j.BufferOffset : j.BufferOffset+j.Size]
	key := storeBufferKey(j)
	if servedFromBuffer(buf, key, dst) {
		return &Result{Job: j, N: int64(len(dst))}
	}
	n, err := j.Storage.Read(dst, j.Piece, j.Offset, j.Mode, j.Flags)
	return &Result{Job: j, N: int64(n), Err: err}
}

func dispatchWrite(j *Job, buf *storebuffer.Buffer) *Result {
	conflict, complete := j.Storage.MarkPieceWriting(j.Piece)
	if complete {
		return &Result{Job: j, Err: storage.ErrPieceComplete}
	}
	if conflict {
		return &Result{Job: j, Err: storage.ErrWriteConflict}
	}

	key := storeBufferKey(j)
	pending := storebuffer.NewBufferReadWriter(uint64(len(j.Buffer)))
	_, _ = pending.Write(j.Buffer)
	buf.Insert(key, pending)
	defer buf.Erase(key)

	n, err := j.Storage.Write(j.Buffer, j.Piece, j.Offset, j.Mode, j.Flags)
	if err != nil {
		j.Storage.MarkPieceFailed(j.Piece)
		return &Result{Job: j, N: int64(n), Err: err}
	}
	return &Result{Job: j, N: int64(n)}
}

func storeBufferKey(j *Job) storebuffer.Key {
	return storebuffer.Key{TorrentIndex: j.Storage.TorrentIndex(), Piece: j.Piece, Offset: j.Offset}
}

// servedFromBuffer fills dst entirely from key's pending write buffer, if
// one is present and covers at least len(dst) bytes, reporting whether it
// did so. A partial or absent buffer falls through to the disk read.
func servedFromBuffer(buf *storebuffer.Buffer, key storebuffer.Key, dst []byte) bool {
	served := false
	buf.Get(key, func(b *storebuffer.BufferReadWriter) {
		if b.Size() < int64(len(dst)) {
			return
		}
		n, err := b.ReadAt(dst, 0)
		served = err == nil && n == len(dst)
	})
	return served
}

func dispatchHash(j *Job) *Result {
	hasher := torrent.NewPieceHasher()
	n, err := j.Storage.Hash(j.Piece, j.Size, j.Mode, j.Flags, hasher)
	res := &Result{Job: j, N: n, Err: err}
	if err == nil {
		res.PieceHash = hasher.Sum20()
	}
	return res
}

func dispatchHash2(j *Job) *Result {
	hasher := torrent.NewBlockHasher()
	n, err := j.Storage.Hash2(j.Piece, j.Offset, j.Size, j.Mode, j.Flags, hasher)
	res := &Result{Job: j, N: n, Err: err}
	if err == nil {
		res.BlockHash = hasher.Sum32()
	}
	return res
}
