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
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/kraken-torrentd/diskengine/lib/torrent/bencode"
	"github.com/stretchr/testify/require"
)

func TestCreateEndToEndHybrid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), bytes.Repeat([]byte("x"), 40000), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("hello world"), 0644))

	raw, err := Create(Params{
		Name:          "test-torrent",
		Root:          dir,
		JobsPerThread: 4,
		HashThreads:   2,
	})
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	var top map[string]interface{}
	require.NoError(t, bencode.Unmarshal(raw, &top))

	info, ok := top["info"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "test-torrent", info["name"])
	require.NotEmpty(t, info["pieces"])
	require.Equal(t, int64(2), info["meta version"])
	require.NotNil(t, info["file tree"])
	require.NotNil(t, top["piece layers"])
}

func TestCreateV1Only(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("small file"), 0644))

	raw, err := Create(Params{
		Name:  "solo",
		Root:  dir,
		Flags: Flags{V1Only: true},
	})
	require.NoError(t, err)

	var top map[string]interface{}
	require.NoError(t, bencode.Unmarshal(raw, &top))
	info := top["info"].(map[string]interface{})
	require.Equal(t, int64(len("small file")), info["length"])
	require.Nil(t, info["meta version"])
	require.Nil(t, top["piece layers"])
}
