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

	"github.com/kraken-torrentd/diskengine/diskengine"
	"github.com/kraken-torrentd/diskengine/fs/handlepool"
	"github.com/kraken-torrentd/diskengine/storage"
	"github.com/kraken-torrentd/diskengine/torrent"

	"github.com/andres-erbsen/clock"
)

// singleTorrentResolver satisfies handlepool.Resolver for the one Storage a
// create-torrent run opens; the disk engine elsewhere resolves across many
// torrents via a registry, but creation only ever touches one.
type singleTorrentResolver struct {
	s *storage.Storage
}

func (r *singleTorrentResolver) Path(key handlepool.Key) (string, error) {
	return r.s.FilePath(torrent.FileIndex(key.FileIndex))
}

// Params bundles the inputs to Create.
type Params struct {
	Name           string
	Root           string // directory WalkTree reads files from
	PieceLength    int64  // 0 selects spec's automatic table
	Flags          Flags
	JobsPerThread  int
	HashThreads    int
	HandleCapacity int
}

// Create runs the full create-torrent pipeline: walk Root's
// file tree, build a canonical, padded torrent.FileStorage, drive a disk
// engine to compute v1/v2 hashes over it, and return the canonical bencoded
// metainfo bytes.
func Create(p Params) ([]byte, error) {
	specs, err := WalkTree(p.Root)
	if err != nil {
		return nil, fmt.Errorf("createtorrent: walk %q: %w", p.Root, err)
	}

	fileStorage, err := Build(p.Name, specs, p.PieceLength, p.Flags)
	if err != nil {
		return nil, fmt.Errorf("createtorrent: build: %w", err)
	}

	hashes := torrent.NewHashes(fileStorage)

	resolver := &singleTorrentResolver{}
	handles := handlepool.New(p.HandleCapacity, resolver)
	st := storage.New(0, fileStorage, p.Root, handles)
	resolver.s = st

	hashThreads := p.HashThreads
	if hashThreads <= 0 {
		hashThreads = 1
	}
	engine := diskengine.New(diskengine.Config{
		GenericWorkers: 1,
		HashWorkers:    hashThreads,
	}, clock.New(), handles, nil, nil)
	defer engine.Stop()

	inFlight := JobsInFlight(p.JobsPerThread, hashThreads, fileStorage.PieceLength())

	if fileStorage.IsV1() {
		if err := HashAll(fileStorage, st, engine, hashes, inFlight); err != nil {
			return nil, err
		}
	}
	if fileStorage.IsV2() {
		if err := HashAllV2(fileStorage, st, engine, hashes, inFlight); err != nil {
			return nil, err
		}
	}

	return EncodeMetainfo(fileStorage, hashes)
}
