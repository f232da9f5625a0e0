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

package handlepool

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kraken-torrentd/diskengine/fs/handle"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
)

type fakeResolver struct {
	dir      string
	mu      sync.Mutex
	opens   int
	errKeys map[Key]error
}

func newFakeResolver(dir string) *fakeResolver {
	return &fakeResolver{dir: dir, errKeys: make(map[Key]error)}
}

func (r *fakeResolver) Path(key Key) (string, error) {
	r.mu.Lock()
	r.opens++
	err := r.errKeys[key]
	r.mu.Unlock()
	if err != nil {
		return "", err
	}
	return filepath.Join(r.dir, fmt.Sprintf("%d-%d.bin", key.TorrentIndex, key.FileIndex)), nil
}

func TestPoolOpenCachesHandle(t *testing.T) {
	dir := t.TempDir()
	r := newFakeResolver(dir)
	p := New(0, r)

	key := Key{TorrentIndex: 1, FileIndex: 0}
	h1, err := p.Open(key, handle.Write|handle.Read)
	require.NoError(t, err)

	h2, err := p.Open(key, handle.Read)
	require.NoError(t, err)

	require.Same(t, h1, h2)
	require.Equal(t, 1, r.opens)
}

func TestPoolOpenReopensUnderWiderMode(t *testing.T) {
	dir := t.TempDir()
	r := newFakeResolver(dir)
	p := New(0, r)

	key := Key{TorrentIndex: 1, FileIndex: 0}
	_, err := p.Open(key, handle.Read)
	require.Error(t, err) // file doesn't exist yet under read-only

	h, err := p.Open(key, handle.Write|handle.Read)
	require.NoError(t, err)
	require.True(t, h.Satisfies(handle.Write))
}

func TestPoolOpenPropagatesResolverError(t *testing.T) {
	dir := t.TempDir()
	r := newFakeResolver(dir)
	key := Key{TorrentIndex: 9, FileIndex: 0}
	r.errKeys[key] = errors.New("no such torrent")
	p := New(0, r)

	_, err := p.Open(key, handle.Read)
	require.Error(t, err)
	var openErr *OpenError
	require.ErrorAs(t, err, &openErr)
	require.Equal(t, key, openErr.Key)
}

func TestPoolConcurrentOpenCoalesces(t *testing.T) {
	dir := t.TempDir()
	r := newFakeResolver(dir)
	p := New(0, r)
	key := Key{TorrentIndex: 1, FileIndex: 0}

	var wg sync.WaitGroup
	handles := make([]*handle.Handle, 10)
	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := p.Open(key, handle.Write|handle.Read)
			require.NoError(t, err)
			handles[i] = h
		}()
	}
	wg.Wait()

	for _, h := range handles[1:] {
		require.Same(t, handles[0], h)
	}
	require.Equal(t, 1, r.opens)
}

func TestPoolEvictsLRUOverCapacity(t *testing.T) {
	dir := t.TempDir()
	r := newFakeResolver(dir)
	p := New(1, r)

	k0 := Key{TorrentIndex: 0, FileIndex: 0}
	k1 := Key{TorrentIndex: 0, FileIndex: 1}

	_, err := p.Open(k0, handle.Write|handle.Read)
	require.NoError(t, err)
	_, err = p.Open(k1, handle.Write|handle.Read)
	require.NoError(t, err)

	p.mu.Lock()
	_, has0 := p.entries[k0]
	_, has1 := p.entries[k1]
	p.mu.Unlock()

	require.False(t, has0)
	require.True(t, has1)
}

func TestPoolWithStatsRecordsOpensAndEvicts(t *testing.T) {
	dir := t.TempDir()
	r := newFakeResolver(dir)
	scope := tally.NewTestScope("", nil)
	p := NewWithStats(1, r, scope)

	k0 := Key{TorrentIndex: 0, FileIndex: 0}
	k1 := Key{TorrentIndex: 0, FileIndex: 1}

	_, err := p.Open(k0, handle.Write|handle.Read)
	require.NoError(t, err)
	_, err = p.Open(k1, handle.Write|handle.Read)
	require.NoError(t, err)

	snap := scope.Snapshot()
	require.EqualValues(t, 2, snap.Counters()["handle_opens+"].Value())
	require.EqualValues(t, 1, snap.Counters()["handle_evicts+"].Value())
}

func TestPoolRelease(t *testing.T) {
	dir := t.TempDir()
	r := newFakeResolver(dir)
	p := New(0, r)

	k0 := Key{TorrentIndex: 0, FileIndex: 0}
	k1 := Key{TorrentIndex: 1, FileIndex: 0}
	_, err := p.Open(k0, handle.Write|handle.Read)
	require.NoError(t, err)
	_, err = p.Open(k1, handle.Write|handle.Read)
	require.NoError(t, err)

	p.Release(0)

	p.mu.Lock()
	_, has0 := p.entries[k0]
	_, has1 := p.entries[k1]
	p.mu.Unlock()

	require.False(t, has0)
	require.True(t, has1)
}

func TestPoolReleaseAll(t *testing.T) {
	dir := t.TempDir()
	r := newFakeResolver(dir)
	p := New(0, r)

	_, err := p.Open(Key{TorrentIndex: 0, FileIndex: 0}, handle.Write|handle.Read)
	require.NoError(t, err)
	_, err = p.Open(Key{TorrentIndex: 1, FileIndex: 0}, handle.Write|handle.Read)
	require.NoError(t, err)

	p.ReleaseAll()

	p.mu.Lock()
	n := len(p.entries)
	p.mu.Unlock()
	require.Equal(t, 0, n)
}

func TestPoolResizeEvicts(t *testing.T) {
	dir := t.TempDir()
	r := newFakeResolver(dir)
	p := New(0, r)

	for i := 0; i < 3; i++ {
		_, err := p.Open(Key{TorrentIndex: 0, FileIndex: i}, handle.Write|handle.Read)
		require.NoError(t, err)
	}

	p.Resize(1)

	p.mu.Lock()
	n := len(p.entries)
	p.mu.Unlock()
	require.Equal(t, 1, n)
}

func TestPoolCloseOldest(t *testing.T) {
	dir := t.TempDir()
	r := newFakeResolver(dir)
	p := New(0, r)

	k0 := Key{TorrentIndex: 0, FileIndex: 0}
	k1 := Key{TorrentIndex: 0, FileIndex: 1}
	_, err := p.Open(k0, handle.Write|handle.Read)
	require.NoError(t, err)
	_, err = p.Open(k1, handle.Write|handle.Read)
	require.NoError(t, err)

	p.CloseOldest()

	p.mu.Lock()
	_, has0 := p.entries[k0]
	_, has1 := p.entries[k1]
	p.mu.Unlock()

	require.False(t, has0)
	require.True(t, has1)
}
