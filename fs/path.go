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

// Package fs implements cross-platform path manipulation and filesystem
// operations for torrent file trees. Logical paths are always "/"-separated;
// conversion to the OS-native separator happens only at the point a path is
// handed to a syscall, mirroring how the underlying file store never native-
// joins a path until the instant it touches disk.
package fs

import (
	"errors"
	"path"
	"strings"
)

// ErrInvalidPath is returned by validation helpers when a path component is
// empty, absolute, or a ".." segment.
var ErrInvalidPath = errors.New("fs: invalid path")

// Combine joins two logical path components with "/".
func Combine(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return strings.TrimSuffix(a, "/") + "/" + strings.TrimPrefix(b, "/")
}

// Append is an alias of Combine retained for symmetry with the "append" op
// named in the torrent engine's path API.
func Append(a, b string) string {
	return Combine(a, b)
}

// Parent returns the logical parent of p, or "" if p has no parent.
func Parent(p string) string {
	p = strings.TrimSuffix(p, "/")
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	return p[:i]
}

// Filename returns the last logical path component of p.
func Filename(p string) string {
	p = strings.TrimSuffix(p, "/")
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return p
	}
	return p[i+1:]
}

// Extension returns the extension of p's filename, including the leading
// dot, or "" if none.
func Extension(p string) string {
	return path.Ext(Filename(p))
}

// RemoveExtension strips Extension(p) from p.
func RemoveExtension(p string) string {
	ext := Extension(p)
	if ext == "" {
		return p
	}
	return strings.TrimSuffix(p, ext)
}

// SplitFirst splits p into its first component and the remainder.
func SplitFirst(p string) (first, rest string) {
	p = strings.TrimPrefix(p, "/")
	i := strings.Index(p, "/")
	if i < 0 {
		return p, ""
	}
	return p[:i], p[i+1:]
}

// SplitLast splits p into the path up to (not including) the last component,
// and the last component itself.
func SplitLast(p string) (dir, last string) {
	return Parent(p), Filename(p)
}

// IsComplete returns whether p is an absolute path (native or "/"-rooted).
func IsComplete(p string) bool {
	if strings.HasPrefix(p, "/") {
		return true
	}
	// Windows drive-letter absolute path, e.g. "C:/..." or "C:\...".
	if len(p) >= 2 && p[1] == ':' {
		return true
	}
	return false
}

// IsRoot returns whether p denotes the filesystem root.
func IsRoot(p string) bool {
	return p == "/" || p == ""
}

// HasParent returns whether p has a non-empty parent.
func HasParent(p string) bool {
	return Parent(p) != ""
}

// Validate enforces the torrent engine's filename invariants: no absolute
// path, no empty component, no ".." component, length under 4096.
func Validate(p string) error {
	if p == "" {
		return ErrInvalidPath
	}
	if len(p) >= 4096 {
		return ErrInvalidPath
	}
	if IsComplete(p) {
		return ErrInvalidPath
	}
	for _, part := range strings.Split(p, "/") {
		if part == "" || part == ".." {
			return ErrInvalidPath
		}
	}
	return nil
}

// LexicallyRelative returns target expressed relative to base, using purely
// lexical (non-symlink-aware) path comparison.
func LexicallyRelative(base, target string) (string, error) {
	return path.Rel(base, target)
}

// PathCompare performs a lexicographic, per-path-element comparison of two
// (directory, file) pairs, as required by FileStorage's sorted-files
// invariant. It returns -1, 0 or 1.
func PathCompare(aDir, aFile, bDir, bFile string) int {
	a := Combine(aDir, aFile)
	b := Combine(bDir, bFile)
	aParts := strings.Split(a, "/")
	bParts := strings.Split(b, "/")
	for i := 0; i < len(aParts) && i < len(bParts); i++ {
		if aParts[i] != bParts[i] {
			if aParts[i] < bParts[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(aParts) < len(bParts):
		return -1
	case len(aParts) > len(bParts):
		return 1
	default:
		return 0
	}
}
