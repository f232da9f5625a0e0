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

// Package memsize formats byte and bit counts as human-readable strings,
// for log lines and diagnostics that report sizes.
package memsize

import "fmt"

// Byte-based size units.
const (
	B  = 1
	KB = B * 1024
	MB = KB * 1024
	GB = MB * 1024
	TB = GB * 1024
)

// Bit-based size units.
const (
	Kbit = 1024
	Mbit = Kbit * 1024
	Gbit = Mbit * 1024
	Tbit = Gbit * 1024
)

// Format renders bytes as a human-readable byte size, e.g. "1.50GB".
func Format(bytes uint64) string {
	return format(bytes, "B", []uint64{TB, GB, MB, KB}, []string{"TB", "GB", "MB", "KB"})
}

// BitFormat renders bits as a human-readable bit size, e.g. "1.50Gbit".
func BitFormat(bits uint64) string {
	return format(bits, "bit", []uint64{Tbit, Gbit, Mbit, Kbit}, []string{"Tbit", "Gbit", "Mbit", "Kbit"})
}

func format(n uint64, baseSuffix string, thresholds []uint64, suffixes []string) string {
	if n == 0 {
		return "0" + baseSuffix
	}
	for i, t := range thresholds {
		if n >= t {
			return fmt.Sprintf("%.2f%s", float64(n)/float64(t), suffixes[i])
		}
	}
	return fmt.Sprintf("%.2f%s", float64(n), baseSuffix)
}
