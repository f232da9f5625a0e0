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

import "github.com/spaolacci/murmur3"

// stringPool deduplicates repeated strings (directory prefixes, symlink
// targets) across a large file list, the way FileStorage's "paths" and
// "symlinks" dedup tables are described in spec. Lookups are bucketed by a
// murmur3 hash of the string to avoid rehashing full path strings on every
// insert into the underlying Go map.
type pooledString struct {
	s   string
	idx int
}

type stringPool struct {
	buckets map[uint32][]pooledString
	values  []string
}

func newStringPool() *stringPool {
	return &stringPool{buckets: make(map[uint32][]pooledString)}
}

// intern returns the canonical, deduplicated copy of s and its index in the
// pool's insertion-ordered values slice.
func (p *stringPool) intern(s string) (string, int) {
	h := murmur3.Sum32([]byte(s))
	for _, existing := range p.buckets[h] {
		if existing.s == s {
			return existing.s, existing.idx
		}
	}
	idx := len(p.values)
	p.values = append(p.values, s)
	p.buckets[h] = append(p.buckets[h], pooledString{s: s, idx: idx})
	return s, idx
}

// Len returns the number of distinct strings interned.
func (p *stringPool) Len() int { return len(p.values) }
