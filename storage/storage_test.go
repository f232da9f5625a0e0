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
	"path/filepath"
	"testing"

	"github.com/kraken-torrentd/diskengine/fs/handle"
	"github.com/kraken-torrentd/diskengine/fs/handlepool"
	"github.com/kraken-torrentd/diskengine/torrent"
	"github.com/stretchr/testify/require"
)

const testPieceLength = 16 * 1024

func newTestStorage(t *testing.T, sizes ...int64) (*Storage, string) {
	t.Helper()
	b := torrent.NewBuilder("t", testPieceLength, true, false)
	for i, sz := range sizes {
		b.AddFile(string(rune('a'+i))+".txt", sz, 0, 0, "")
	}
	fileStorage, err := b.Build()
	require.NoError(t, err)

	dir := t.TempDir()
	s := New(0, fileStorage, dir, nil)
	return s, dir
}

func newResolvedStorage(t *testing.T, sizes ...int64) *Storage {
	t.Helper()
	b := torrent.NewBuilder("t", testPieceLength, true, false)
	for i, sz := range sizes {
		b.AddFile(string(rune('a'+i))+".txt", sz, 0, 0, "")
	}
	fileStorage, err := b.Build()
	require.NoError(t, err)

	dir := t.TempDir()
	resolver := &selfResolver{}
	handles := handlepool.New(0, resolver)
	s := New(0, fileStorage, dir, handles)
	resolver.s = s
	return s
}

type selfResolver struct{ s *Storage }

func (r *selfResolver) Path(key handlepool.Key) (string, error) {
	return r.s.FilePath(torrent.FileIndex(key.FileIndex))
}

func TestFilePath(t *testing.T) {
	s, dir := newTestStorage(t, 10, 20)
	p, err := s.FilePath(0)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "a.txt"), filepath.FromSlash(p))

	_, err = s.FilePath(5)
	require.Error(t, err)
}

func TestInitializeCreatesSparseFiles(t *testing.T) {
	s, dir := newTestStorage(t, 100)
	require.NoError(t, s.Initialize(Settings{SparseSupported: true}))

	info, err := filepath.Glob(filepath.Join(dir, "*"))
	require.NoError(t, err)
	require.Len(t, info, 1)
}

func TestHasAnyFile(t *testing.T) {
	s, _ := newTestStorage(t, 100)
	require.False(t, s.HasAnyFile())
	require.NoError(t, s.Initialize(Settings{SparseSupported: true}))
	require.True(t, s.HasAnyFile())
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := newResolvedStorage(t, 100)
	require.NoError(t, s.Initialize(Settings{SparseSupported: true}))

	data := []byte("hello, world")
	n, err := s.Write(data, 0, 0, handle.Write|handle.Read, 0)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	conflict, complete := s.MarkPieceWriting(0)
	require.False(t, conflict)
	require.False(t, complete)
	s.MarkPieceComplete(0)

	buf := make([]byte, len(data))
	n, err = s.Read(buf, 0, 0, handle.Read, 0)
	require.NoError(t, err)
	require.Equal(t, data, buf)
	require.Equal(t, len(data), n)
}

func TestReadBeforeCompleteFails(t *testing.T) {
	s := newResolvedStorage(t, 100)
	require.NoError(t, s.Initialize(Settings{SparseSupported: true}))

	buf := make([]byte, 10)
	_, err := s.Read(buf, 0, 0, handle.Read, 0)
	require.ErrorIs(t, err, ErrPieceNotComplete)
}

func TestMarkPieceWritingTransitions(t *testing.T) {
	s := newResolvedStorage(t, 100)

	conflict, complete := s.MarkPieceWriting(0)
	require.False(t, conflict)
	require.False(t, complete)

	conflict, complete = s.MarkPieceWriting(0)
	require.True(t, conflict)
	require.False(t, complete)

	s.MarkPieceFailed(0)
	conflict, complete = s.MarkPieceWriting(0)
	require.False(t, conflict)
	require.False(t, complete)

	s.MarkPieceComplete(0)
	conflict, complete = s.MarkPieceWriting(0)
	require.False(t, conflict)
	require.True(t, complete)
}

func TestHashStream(t *testing.T) {
	s := newResolvedStorage(t, 100)
	require.NoError(t, s.Initialize(Settings{SparseSupported: true}))

	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i)
	}
	_, err := s.Write(data, 0, 0, handle.Write|handle.Read, 0)
	require.NoError(t, err)

	hasher := torrent.NewPieceHasher()
	n, err := s.Hash(0, 100, handle.Read, 0, hasher)
	require.NoError(t, err)
	require.Equal(t, int64(100), n)
	require.NotEqual(t, [20]byte{}, hasher.Sum20())
}

func TestBitfield(t *testing.T) {
	s := newResolvedStorage(t, testPieceLength*2+10)
	require.Equal(t, []bool{false, false, false}, s.Bitfield())
	s.MarkPieceComplete(0)
	require.Equal(t, []bool{true, false, false}, s.Bitfield())
	require.True(t, s.HasPiece(0))
	require.False(t, s.HasPiece(1))
	require.False(t, s.HasPiece(5))
}
