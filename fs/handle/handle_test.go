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

package handle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenCreatesMissingParent(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "sub", "dir", "f.bin")

	h, err := Open(p, Write|Read)
	require.NoError(t, err)
	defer h.Close()

	require.Equal(t, p, h.Path())
	require.True(t, h.Mode().has(Write))
}

func TestOpenReadMissingFileFails(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "missing.bin")

	_, err := Open(p, Read)
	require.Error(t, err)
	require.True(t, os.IsNotExist(err))
}

func TestSatisfies(t *testing.T) {
	h := &Handle{mode: Read}
	require.True(t, h.Satisfies(Read))
	require.False(t, h.Satisfies(Write))

	rw := &Handle{mode: Read | Write}
	require.True(t, rw.Satisfies(Write))
}

func TestMarkDirtyAndSync(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "f.bin")

	h, err := Open(p, Write|Read)
	require.NoError(t, err)
	defer h.Close()

	_, err = h.File().WriteAt([]byte("hello"), 0)
	require.NoError(t, err)
	h.MarkDirty(5)
	require.Equal(t, int64(5), h.DirtyBytes())

	require.NoError(t, h.Sync())
	require.Equal(t, int64(0), h.DirtyBytes())
}
