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
	"io/fs"
	"os"
	"path/filepath"

	kfs "github.com/kraken-torrentd/diskengine/fs"
	"github.com/kraken-torrentd/diskengine/torrent"
)

// PathSpec is one input file to the create-torrent pipeline.
type PathSpec struct {
	Path          string // relative to the torrent root
	Size          int64
	Flags         torrent.FileFlag
	MTime         int64
	SymlinkTarget string
}

// Flags bundles the create-torrent boolean options.
type Flags struct {
	V1Only                      bool
	V2Only                      bool
	CanonicalFiles              bool
	CanonicalFilesNoTailPadding bool
	ModificationTime            bool
	Symlinks                    bool
	AllowOddPieceSize           bool
	NoAttributes                bool
}

// WalkTree enumerates root into the PathSpec vector Build expects as input,
// using fs for path canonicalization.
func WalkTree(root string) ([]PathSpec, error) {
	var specs []PathSpec
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		var flags torrent.FileFlag
		var target string
		if info.Mode()&fs.ModeSymlink != 0 {
			flags |= torrent.FlagSymlink
			t, lerr := os.Readlink(p)
			if lerr != nil {
				return lerr
			}
			target = t
		} else if info.Mode()&0111 != 0 {
			flags |= torrent.FlagExecutable
		}
		specs = append(specs, PathSpec{
			Path:          kfs.FromNative(rel),
			Size:          info.Size(),
			Flags:         flags,
			MTime:         info.ModTime().Unix(),
			SymlinkTarget: target,
		})
		return nil
	})
	return specs, err
}

// Build validates, canonicalizes and assembles specs into a
// torrent.FileStorage, resolving piece length (0 means auto) and the
// v1/v2/hybrid flags.
func Build(name string, specs []PathSpec, pieceLength int64, flags Flags) (*torrent.FileStorage, error) {
	var total int64
	for _, s := range specs {
		total += s.Size
	}

	pl, err := resolvePieceLength(pieceLength, total, flags.V1Only, flags.AllowOddPieceSize)
	if err != nil {
		return nil, err
	}

	v1 := !flags.V2Only
	v2 := !flags.V1Only

	b := torrent.NewBuilder(name, pl, v1, v2)
	for _, s := range specs {
		fflags := s.Flags
		if !flags.Symlinks {
			fflags &^= torrent.FlagSymlink
		}
		if flags.NoAttributes {
			fflags &^= torrent.FlagExecutable | torrent.FlagHidden
		}
		mtime := s.MTime
		if !flags.ModificationTime {
			mtime = 0
		}
		b.AddFile(s.Path, s.Size, fflags, mtime, s.SymlinkTarget)
	}
	return b.Build()
}
