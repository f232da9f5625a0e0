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

import "github.com/kraken-torrentd/diskengine/utils/log"

// flushNextFile picks the entry with the most accumulated dirty bytes and
// flushes it, to defeat write-coalescing that would otherwise stall under
// memory pressure on Windows.
func flushNextFile(p *Pool) {
	p.mu.Lock()
	var dirtiest *entry
	var maxDirty int64
	for _, e := range p.entries {
		if e.pending {
			continue
		}
		if d := e.h.DirtyBytes(); d > maxDirty {
			maxDirty = d
			dirtiest = e
		}
	}
	p.mu.Unlock()

	if dirtiest == nil {
		return
	}
	if err := dirtiest.h.Sync(); err != nil {
		log.Errorf("handlepool: flush_next_file %+v: %s", dirtiest.key, err)
	}
}
