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
	"strings"

	"github.com/kraken-torrentd/diskengine/lib/torrent/bencode"
	"github.com/kraken-torrentd/diskengine/torrent"
)

// EncodeMetainfo renders fs/hashes as a canonical bencoded metainfo
// dictionary: a v1 "info" dict (files/length + pieces) when
// fs.IsV1, a v2 "file tree" + "meta version" when fs.IsV2, and a top-level
// "piece layers" dict mapping the Merkle root of each non-pad file larger
// than one piece to its concatenated block hashes. Dict keys are sorted by the bencode Encoder
// itself, so the maps built here need not pre-sort.
func EncodeMetainfo(fs *torrent.FileStorage, hashes *torrent.Hashes) ([]byte, error) {
	info := map[string]interface{}{
		"name":         fs.Name(),
		"piece length": fs.PieceLength(),
	}

	var pieceLayers map[string]interface{}

	if fs.IsV1() {
		if fs.NumFiles() == 1 && fs.Files()[0].Filename == fs.Name() {
			info["length"] = fs.Files()[0].Size
		} else {
			var files []interface{}
			for _, f := range fs.Files() {
				files = append(files, v1FileDict(f))
			}
			info["files"] = files
		}
		var pieces bytes.Buffer
		for i := 0; i < fs.NumPieces(); i++ {
			h, err := hashes.V1PieceHash(torrent.PieceIndex(i))
			if err != nil {
				return nil, err
			}
			pieces.Write(h)
		}
		info["pieces"] = pieces.Bytes()
	}

	if fs.IsV2() {
		info["meta version"] = 2
		tree := map[string]interface{}{}
		pieceLayers = map[string]interface{}{}
		for i, f := range fs.Files() {
			if f.IsPad() {
				continue
			}
			insertFileTreeLeaf(tree, f.Filename, f)
			if f.Size > fs.PieceLength() {
				blocks := hashes.V2BlockHashes(torrent.FileIndex(i))
				var buf bytes.Buffer
				for _, b := range blocks {
					buf.Write(b[:])
				}
				pieceLayers[string(f.V2Root[:])] = buf.Bytes()
			}
		}
		info["file tree"] = tree
	}

	top := map[string]interface{}{
		"info": info,
	}
	if pieceLayers != nil {
		top["piece layers"] = pieceLayers
	}

	return bencode.Marshal(top)
}

func v1FileDict(f torrent.FileEntry) map[string]interface{} {
	return map[string]interface{}{
		"length": f.Size,
		"path":   splitPath(f.Filename),
	}
}

// insertFileTreeLeaf walks/creates the nested directory dicts of BEP52's
// "file tree" for filename and attaches its leaf metadata under the
// empty-string key.
func insertFileTreeLeaf(tree map[string]interface{}, filename string, f torrent.FileEntry) {
	parts := splitPath(filename)
	node := tree
	for _, part := range parts[:len(parts)-1] {
		next, ok := node[part].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			node[part] = next
		}
		node = next
	}

	leaf := map[string]interface{}{
		"length": f.Size,
	}
	if f.Size > 0 {
		leaf["pieces root"] = string(f.V2Root[:])
	}
	attr := fileAttr(f)
	if attr != "" {
		leaf["attr"] = attr
	}
	if f.MTime != 0 {
		leaf["mtime"] = f.MTime
	}
	if f.Flags.Has(torrent.FlagSymlink) {
		leaf["symlink path"] = splitPath(f.SymlinkTarget)
	}
	node[parts[len(parts)-1]] = map[string]interface{}{"": leaf}
}

func fileAttr(f torrent.FileEntry) string {
	var attr strings.Builder
	if f.Flags.Has(torrent.FlagExecutable) {
		attr.WriteByte('x')
	}
	if f.Flags.Has(torrent.FlagHidden) {
		attr.WriteByte('h')
	}
	if f.Flags.Has(torrent.FlagSymlink) {
		attr.WriteByte('l')
	}
	if f.IsPad() {
		attr.WriteByte('p')
	}
	return attr.String()
}

func splitPath(p string) []interface{} {
	parts := strings.Split(p, "/")
	out := make([]interface{}, len(parts))
	for i, part := range parts {
		out[i] = part
	}
	return out
}
