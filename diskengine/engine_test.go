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
	"sync"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/kraken-torrentd/diskengine/fs/handle"
	"github.com/kraken-torrentd/diskengine/fs/handlepool"
	"github.com/kraken-torrentd/diskengine/storage"
	"github.com/kraken-torrentd/diskengine/torrent"
	"github.com/stretchr/testify/require"
)

const testPieceLength = 16 * 1024

func newTestEngine(t *testing.T, cfg Config, onComplete func(*Result)) (*Engine, *storage.Storage) {
	t.Helper()

	b := torrent.NewBuilder("t", testPieceLength, true, false)
	b.AddFile("a.txt", 100, 0, 0, "")
	fileStorage, err := b.Build()
	require.NoError(t, err)

	dir := t.TempDir()
	resolver := &pathResolver{}
	handles := handlepool.New(0, resolver)
	st := storage.New(0, fileStorage, dir, handles)
	resolver.s = st
	require.NoError(t, st.Initialize(storage.Settings{SparseSupported: true}))

	e := New(cfg, clock.NewMock(), handles, nil, onComplete)
	e.Register(0, st)
	t.Cleanup(e.Stop)
	return e, st
}

type pathResolver struct{ s *storage.Storage }

func (r *pathResolver) Path(key handlepool.Key) (string, error) {
	return r.s.FilePath(torrent.FileIndex(key.FileIndex))
}

func submitAndWait(e *Engine, j *Job) *Result {
	done := make(chan *Result, 1)
	j.Callback = func(r *Result) { done <- r }
	e.Submit(j)
	return <-done
}

func TestEngineWriteThenHash(t *testing.T) {
	e, st := newTestEngine(t, Config{GenericWorkers: 2, HashWorkers: 1}, nil)

	data := []byte("hello, disk engine")
	res := submitAndWait(e, &Job{
		Kind:    Write,
		Storage: st,
		Piece:   0,
		Offset:  0,
		Mode:    handle.Write | handle.Read,
		Buffer:  data,
	})
	require.NoError(t, res.Err)
	require.Equal(t, int64(len(data)), res.N)

	st.MarkPieceComplete(0)

	res = submitAndWait(e, &Job{
		Kind:    Hash,
		Storage: st,
		Piece:   0,
		Size:    int64(len(data)),
		Mode:    handle.Read,
	})
	require.NoError(t, res.Err)
	require.NotEqual(t, [20]byte{}, res.PieceHash)
}

func TestEngineWriteToCompletePieceRejected(t *testing.T) {
	e, st := newTestEngine(t, Config{GenericWorkers: 1, HashWorkers: 0}, nil)

	st.MarkPieceComplete(0)
	res := submitAndWait(e, &Job{
		Kind:    Write,
		Storage: st,
		Piece:   0,
		Mode:    handle.Write | handle.Read,
		Buffer:  []byte("x"),
	})
	require.ErrorIs(t, res.Err, storage.ErrPieceComplete)
}

func TestEngineFenceRunsAfterPriorWritesDrain(t *testing.T) {
	e, st := newTestEngine(t, Config{GenericWorkers: 2, HashWorkers: 0}, nil)

	res := submitAndWait(e, &Job{
		Kind:    Write,
		Storage: st,
		Piece:   0,
		Mode:    handle.Write | handle.Read,
		Buffer:  []byte("abc"),
	})
	require.NoError(t, res.Err)

	res = submitAndWait(e, &Job{
		Kind:       MoveStorage,
		Storage:    st,
		NewPath:    t.TempDir(),
		MovePolicy: storage.AlwaysReplace,
	})
	require.NoError(t, res.Err)
}

func TestEnginePathResolvesAcrossRegisteredStorages(t *testing.T) {
	e, st := newTestEngine(t, Config{GenericWorkers: 1, HashWorkers: 0}, nil)

	p, err := e.Path(handlepool.Key{TorrentIndex: 0, FileIndex: 0})
	require.NoError(t, err)

	want, err := st.FilePath(0)
	require.NoError(t, err)
	require.Equal(t, want, p)
}

func TestEnginePathUnknownTorrent(t *testing.T) {
	e, _ := newTestEngine(t, Config{GenericWorkers: 1, HashWorkers: 0}, nil)

	_, err := e.Path(handlepool.Key{TorrentIndex: 99, FileIndex: 0})
	require.Error(t, err)
}

func TestEngineUnregisterStopsMaintenanceTracking(t *testing.T) {
	e, _ := newTestEngine(t, Config{GenericWorkers: 1, HashWorkers: 0}, nil)

	e.Unregister(0)
	_, err := e.Path(handlepool.Key{TorrentIndex: 0, FileIndex: 0})
	require.Error(t, err)
}

func TestEngineOnCompleteInvoked(t *testing.T) {
	var mu sync.Mutex
	var calls int
	e, st := newTestEngine(t, Config{GenericWorkers: 1, HashWorkers: 0}, func(r *Result) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	res := submitAndWait(e, &Job{
		Kind:    Write,
		Storage: st,
		Piece:   0,
		Mode:    handle.Write | handle.Read,
		Buffer:  []byte("x"),
	})
	require.NoError(t, res.Err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	}, time.Second, time.Millisecond)
}
