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

package fs

import (
	"errors"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
)

// ToNative converts a logical "/"-separated path to the OS's native
// separator, and prefixes it with a directory root.
func ToNative(root, p string) string {
	native := filepath.FromSlash(p)
	return filepath.Join(root, native)
}

// FromNative converts a native OS path back to a logical "/"-separated path.
func FromNative(p string) string {
	return filepath.ToSlash(p)
}

// ToUNC converts an absolute Windows path into its "\\?\" long-path form.
// It is a no-op on every other platform and a no-op for already-UNC or
// relative paths.
func ToUNC(p string) string {
	if runtime.GOOS != "windows" {
		return p
	}
	if strings.HasPrefix(p, `\\?\`) {
		return p
	}
	if !filepath.IsAbs(p) {
		return p
	}
	if strings.HasPrefix(p, `\\`) {
		// UNC network share: \\server\share -> \\?\UNC\server\share
		return `\\?\UNC\` + strings.TrimPrefix(p, `\\`)
	}
	return `\\?\` + p
}

// Exists returns whether p exists on disk.
func Exists(p string) bool {
	_, err := os.Lstat(p)
	return err == nil
}

// Stat stats p, optionally following symlinks.
func Stat(p string, followLinks bool) (os.FileInfo, error) {
	if followLinks {
		return os.Stat(p)
	}
	return os.Lstat(p)
}

// CurrentDir returns the process's current working directory.
func CurrentDir() (string, error) {
	return os.Getwd()
}

// Canonicalize returns the absolute, symlink-resolved form of p.
func Canonicalize(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return abs, nil
		}
		return "", err
	}
	return resolved, nil
}

// Remove removes the single file or empty directory at p.
func Remove(p string) error {
	return os.Remove(p)
}

// RemoveAll recursively removes p.
func RemoveAll(p string) error {
	return os.RemoveAll(p)
}

// CreateDirectory creates the single directory p (parent must exist).
func CreateDirectory(p string) error {
	return os.Mkdir(p, 0755)
}

// CreateDirectories creates p and any missing parents.
func CreateDirectories(p string) error {
	return os.MkdirAll(p, 0755)
}

// Rename performs an atomic rename from -> to, within the same volume.
func Rename(from, to string) error {
	return os.Rename(from, to)
}

// AtomicRename is an alias of Rename: os.Rename is already atomic within a
// single filesystem, which is the only case the engine relies on.
func AtomicRename(from, to string) error {
	return Rename(from, to)
}

// CopyFile copies the contents of from to to, creating to's parent
// directories as needed. The copy is not atomic; callers that need atomicity
// should copy to a temp file and Rename into place.
func CopyFile(from, to string) error {
	src, err := os.Open(from)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return err
	}

	info, err := src.Stat()
	if err != nil {
		return err
	}

	dst, err := os.OpenFile(to, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return dst.Close()
}

// MoveFile moves a file from -> to, falling back to copy+remove when the
// rename crosses a filesystem boundary.
func MoveFile(from, to string) error {
	err := os.Rename(from, to)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return err
	}
	if err := CopyFile(from, to); err != nil {
		return err
	}
	return os.Remove(from)
}

// RecursiveCopy copies the directory tree rooted at from into to.
func RecursiveCopy(from, to string) error {
	return filepath.Walk(from, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(from, p)
		if err != nil {
			return err
		}
		dst := filepath.Join(to, rel)
		if info.IsDir() {
			return os.MkdirAll(dst, info.Mode().Perm())
		}
		return CopyFile(p, dst)
	})
}

// HardLink attempts to hard-link from to to. Per the engine's contract, when
// the filesystem rejects the link as unsupported or cross-device, it falls
// back to a full copy rather than failing.
func HardLink(from, to string) error {
	if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return err
	}
	err := os.Link(from, to)
	if err == nil {
		return nil
	}
	if isCrossDevice(err) || isUnsupported(err) {
		return CopyFile(from, to)
	}
	return err
}

func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return linkErr.Err == syscall.EXDEV
	}
	return errors.Is(err, syscall.EXDEV)
}

func isUnsupported(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return errors.Is(linkErr.Err, syscall.ENOTSUP) || errors.Is(linkErr.Err, syscall.EPERM)
	}
	return false
}

// ReadAll reads the entirety of the file at p.
func ReadAll(p string) ([]byte, error) {
	return ioutil.ReadFile(p)
}
