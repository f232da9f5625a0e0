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

package storage

import (
	"fmt"
	"path/filepath"

	"github.com/kraken-torrentd/diskengine/fs"
	"github.com/kraken-torrentd/diskengine/torrent"
	"github.com/kraken-torrentd/diskengine/utils/errutil"
	"github.com/kraken-torrentd/diskengine/utils/log"
)

// MovePolicy controls how move_storage behaves when the destination already
// has a conflicting file, named after libtorrent's add_torrent_params
// storage-mode constants.
type MovePolicy int

// Move policies.
const (
	AlwaysReplace MovePolicy = iota
	FailIfExist
	DontReplace
)

// MoveStorage relocates every non-pad file to newPath, honoring policy on
// conflicts. Files whose recorded path is already absolute and outside
// savePath are left in place, per spec. Open handles for this torrent are
// released first, since a handle keeps its file open by path.
func (s *Storage) MoveStorage(newPath string, policy MovePolicy) (string, error) {
	s.handles.Release(s.torrentIndex)

	for i := torrent.FileIndex(0); int(i) < s.files.NumFiles(); i++ {
		f := s.files.File(i)
		if f.IsPad() {
			continue
		}
		if filepath.IsAbs(f.Filename) {
			continue
		}
		from := s.path(i)
		to := fs.Combine(newPath, f.Filename)
		if !fs.Exists(from) {
			continue
		}
		exists := fs.Exists(to)
		switch {
		case exists && policy == FailIfExist:
			return s.savePath, fmt.Errorf("storage: move_storage: %q already exists", to)
		case exists && policy == DontReplace:
			continue
		}
		if err := fs.CreateDirectories(fs.Parent(to)); err != nil {
			return s.savePath, fmt.Errorf("storage: move_storage: create directories: %w", err)
		}
		if err := fs.MoveFile(from, to); err != nil {
			return s.savePath, fmt.Errorf("storage: move_storage: %q -> %q: %w", from, to, err)
		}
	}
	s.savePath = newPath
	return s.savePath, nil
}

// RenameFile renames file fi's recorded path to newName, closing its
// cached handle first since a rename can't proceed while a handle still
// has it open.
func (s *Storage) RenameFile(fi torrent.FileIndex, newName string) error {
	if int(fi) >= s.files.NumFiles() {
		return fmt.Errorf("storage: file index %d out of range", fi)
	}
	s.handles.Release(s.torrentIndex)

	from := s.path(fi)
	to := fs.Combine(s.savePath, newName)
	if fs.Exists(from) {
		if err := fs.CreateDirectories(fs.Parent(to)); err != nil {
			return fmt.Errorf("storage: rename_file: create directories: %w", err)
		}
		if err := fs.Rename(from, to); err != nil {
			return fmt.Errorf("storage: rename_file: %q -> %q: %w", from, to, err)
		}
	}
	return s.files.RenameFile(fi, newName)
}

// ReleaseFiles drops every cached handle for this torrent without deleting
// any data.
func (s *Storage) ReleaseFiles() {
	s.handles.Release(s.torrentIndex)
}

// DeleteOption selects what delete_files removes.
type DeleteOption int

// Delete options.
const (
	RemovePartial DeleteOption = iota
	RemoveFiles
	RemoveData
)

// DeleteFiles removes on-disk data per opt. It is best-effort: it keeps
// going after an individual file fails, and returns every failure joined
// together rather than just the first.
func (s *Storage) DeleteFiles(opt DeleteOption) error {
	s.handles.Release(s.torrentIndex)

	var errs []error
	report := func(err error) {
		if err != nil {
			errs = append(errs, err)
			log.Errorf("storage: delete_files: %s", err)
		}
	}

	for i := torrent.FileIndex(0); int(i) < s.files.NumFiles(); i++ {
		f := s.files.File(i)
		if f.IsPad() {
			continue
		}
		p := s.path(i)
		if !fs.Exists(p) {
			continue
		}
		switch opt {
		case RemovePartial:
			if !s.fileComplete(f) {
				report(fs.Remove(p))
			}
		case RemoveFiles, RemoveData:
			report(fs.Remove(p))
		}
	}
	if opt == RemoveData {
		report(fs.RemoveAll(s.savePath))
	}
	return errutil.Join(errs)
}

// fileComplete reports whether every piece touching f's byte range is
// marked complete.
func (s *Storage) fileComplete(f torrent.FileEntry) bool {
	if f.Size == 0 {
		return true
	}
	start := f.Offset / s.files.PieceLength()
	end := (f.Offset + f.Size - 1) / s.files.PieceLength()
	for p := start; p <= end; p++ {
		if !s.HasPiece(torrent.PieceIndex(p)) {
			return false
		}
	}
	return true
}

// ResumeParams is the subset of a resume bundle Storage needs to verify
// on-disk state without rehashing: the expected size of each non-pad file.
type ResumeParams struct {
	FileSizes []int64
}

// VerifyResumeData checks that every file's on-disk size matches the
// resume bundle. links, when non-empty for a given file index, names an
// external source to hard-link from instead of checking the existing file
// (matching libtorrent's file_storage.cpp verify_resume_data behavior of
// honoring per-file link sources). A hard-link I/O error fails the whole
// verification; a plain size mismatch returns (false, nil) so the caller
// knows to rehash rather than treating it as a hard failure.
func (s *Storage) VerifyResumeData(params ResumeParams, links []string) (bool, error) {
	ok := true
	for i := torrent.FileIndex(0); int(i) < s.files.NumFiles(); i++ {
		f := s.files.File(i)
		if f.IsPad() {
			continue
		}
		if int(i) < len(links) && links[i] != "" {
			to := s.path(i)
			if err := fs.CreateDirectories(fs.Parent(to)); err != nil {
				return false, fmt.Errorf("storage: verify_resume_data: create directories: %w", err)
			}
			if err := fs.HardLink(links[i], to); err != nil {
				return false, fmt.Errorf("storage: verify_resume_data: hard link %q -> %q: %w", links[i], to, err)
			}
			continue
		}
		if int(i) >= len(params.FileSizes) {
			ok = false
			continue
		}
		info, err := fs.Stat(s.path(i), true)
		if err != nil {
			ok = false
			continue
		}
		if info.Size() != params.FileSizes[i] {
			ok = false
		}
	}
	return ok, nil
}
