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
	"hash/crc32"
	"strings"

	"github.com/kraken-torrentd/diskengine/fs"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// FilePathHash returns a case-folded CRC-32C of the full on-disk path for
// file i under savePath, used by the session to detect two files mapping
// to the same path.
func (t *FileStorage) FilePathHash(i FileIndex, savePath string) uint32 {
	full := fs.Combine(savePath, t.files[i].Filename)
	folded := strings.ToLower(full)
	return crc32.Checksum([]byte(folded), castagnoli)
}
