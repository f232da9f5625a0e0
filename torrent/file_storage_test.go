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

package torrent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilderRejectsBadPieceLength(t *testing.T) {
	b := NewBuilder("t", 100, true, false)
	_, err := b.AddFile("a", 10, 0, 0, "").Build()
	require.ErrorIs(t, err, ErrPieceLength)
}

func TestBuilderRejectsNoFiles(t *testing.T) {
	b := NewBuilder("t", blockSize, true, false)
	_, err := b.Build()
	require.ErrorIs(t, err, ErrNoFiles)
}

func TestBuilderRejectsInvalidFilename(t *testing.T) {
	b := NewBuilder("t", blockSize, true, false)
	b.AddFile("../escape", 10, 0, 0, "")
	_, err := b.Build()
	require.Error(t, err)
}

func TestBuilderSortsFilesAndComputesOffsets(t *testing.T) {
	b := NewBuilder("t", blockSize, true, false)
	b.AddFile("b.txt", 10, 0, 0, "")
	b.AddFile("a.txt", 20, 0, 0, "")
	fs, err := b.Build()
	require.NoError(t, err)

	require.Equal(t, "a.txt", fs.Files()[0].Filename)
	require.Equal(t, "b.txt", fs.Files()[1].Filename)
	require.Equal(t, int64(0), fs.Files()[0].Offset)
	require.Equal(t, int64(20), fs.Files()[1].Offset)
	require.Equal(t, int64(30), fs.TotalSize())
}

func TestBuilderRejectsDirFileCollision(t *testing.T) {
	b := NewBuilder("t", blockSize, true, false)
	b.AddFile("a", 10, 0, 0, "")
	b.AddFile("a/b", 10, 0, 0, "")
	_, err := b.Build()
	require.ErrorIs(t, err, ErrNameCollision)
}

func TestBuilderV2InsertsPadFiles(t *testing.T) {
	b := NewBuilder("t", blockSize, false, true)
	b.AddFile("a.txt", 100, 0, 0, "")
	b.AddFile("b.txt", 100, 0, 0, "")
	fs, err := b.Build()
	require.NoError(t, err)

	var sawPad bool
	for _, f := range fs.Files() {
		if f.IsPad() {
			sawPad = true
			require.Equal(t, int64(blockSize-100), f.Size)
		}
	}
	require.True(t, sawPad)

	// Every non-pad file begins at a piece boundary.
	for _, f := range fs.Files() {
		if !f.IsPad() {
			require.Equal(t, int64(0), f.Offset%blockSize)
		}
	}
}

func TestRenameFile(t *testing.T) {
	b := NewBuilder("t", blockSize, true, false)
	b.AddFile("a.txt", 10, 0, 0, "")
	fs, err := b.Build()
	require.NoError(t, err)

	require.NoError(t, fs.RenameFile(0, "renamed.txt"))
	require.Equal(t, "renamed.txt", fs.File(0).Filename)

	require.Error(t, fs.RenameFile(0, "../escape"))
}

func TestIsV1IsV2(t *testing.T) {
	b1 := NewBuilder("t", blockSize, true, false)
	b1.AddFile("a", 10, 0, 0, "")
	fs1, err := b1.Build()
	require.NoError(t, err)
	require.True(t, fs1.IsV1())
	require.False(t, fs1.IsV2())

	b2 := NewBuilder("t", blockSize, false, true)
	b2.AddFile("a", 10, 0, 0, "")
	fs2, err := b2.Build()
	require.NoError(t, err)
	require.True(t, fs2.IsV2())
}
