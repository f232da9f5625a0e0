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

// Package diskspaceutil reports disk utilization and size for the
// filesystem backing the process's working directory.
package diskspaceutil

import "syscall"

// FileSystemSize returns the total size, in bytes, of the filesystem
// backing the current working directory.
func FileSystemSize() (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(".", &stat); err != nil {
		return 0, err
	}
	return stat.Blocks * uint64(stat.Bsize), nil
}

// FileSystemUtil returns the percentage (0-100) of the filesystem backing
// the current working directory that is currently in use.
func FileSystemUtil() (float64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(".", &stat); err != nil {
		return 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	if total == 0 {
		return 0, nil
	}
	free := stat.Bavail * uint64(stat.Bsize)
	used := total - free
	return float64(used) / float64(total) * 100, nil
}
