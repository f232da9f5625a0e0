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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapZeroSizeIsNilMapping(t *testing.T) {
	dir := t.TempDir()
	h, err := Open(filepath.Join(dir, "f.bin"), Write|Read)
	require.NoError(t, err)
	defer h.Close()

	m, err := h.Map(0, MapRead)
	require.NoError(t, err)
	require.Nil(t, m)
}

func TestMapReadWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	h, err := Open(filepath.Join(dir, "f.bin"), Write|Read)
	require.NoError(t, err)
	defer h.Close()

	m, err := h.Map(16, MapReadWrite)
	require.NoError(t, err)
	require.NotNil(t, m)
	defer m.Close()

	require.Equal(t, 16, m.Len())
	copy(m.Bytes(), []byte("hello world"))
	require.NoError(t, m.Flush())
}

func TestMapReadClampsToFileSize(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "f.bin")
	h, err := Open(p, Write|Read)
	require.NoError(t, err)
	require.NoError(t, h.File().Truncate(8))
	require.NoError(t, h.Close())

	h2, err := Open(p, Read)
	require.NoError(t, err)
	defer h2.Close()

	m, err := h2.Map(1024, MapRead)
	require.NoError(t, err)
	require.NotNil(t, m)
	defer m.Close()
	require.Equal(t, 8, m.Len())
}

func TestMappingCloseIdempotent(t *testing.T) {
	dir := t.TempDir()
	h, err := Open(filepath.Join(dir, "f.bin"), Write|Read)
	require.NoError(t, err)
	defer h.Close()

	m, err := h.Map(16, MapReadWrite)
	require.NoError(t, err)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	require.ErrorIs(t, m.Flush(), ErrClosed)
}
