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
	"sync"

	"github.com/kraken-torrentd/diskengine/utils/syncutil"
)

// FenceJob is an opaque handle the disk engine attaches to a queued job so
// the fence can hand it back once unblocked.
type FenceJob interface{}

// Fence establishes a happens-before boundary for one Storage: a fence job
// (move_storage, release_files, delete_files, check_fastresume, rename_file,
// stop_torrent, file_priority, clear_piece) waits for every job queued
// before it to finish, and no job queued after it runs until it completes.
//
// The in-flight count is kept in a syncutil.Counters of size one rather than
// a bare int so every Storage's fence shares the same counter primitive the
// disk engine uses elsewhere for per-torrent bookkeeping.
type Fence struct {
	mu       sync.Mutex
	inFlight *syncutil.Counters
	fenceUp  bool
	pending  FenceJob // the held fence job, waiting for inFlight to drain
	blocked  []FenceJob
}

// NewFence returns an unfenced Fence with zero jobs in flight.
func NewFence() *Fence {
	return &Fence{inFlight: syncutil.NewCounters(1)}
}

// Admit registers the start of a non-fence job. If the fence is up, job
// joins the blocked queue and runNow is false; the caller must not run it
// until Fence later hands it back via JobComplete's released slice.
func (f *Fence) Admit(job FenceJob) (runNow bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fenceUp {
		f.blocked = append(f.blocked, job)
		return false
	}
	f.inFlight.Increment(0)
	return true
}

// RaiseFence registers a fence job. Per spec: if nothing is in flight, the
// fence job runs immediately (and is now "up", so it must still call
// JobComplete(true) when done). If jobs are in flight, the fence job is held
// until they drain. If a fence is already up, the new fence job simply joins
// the blocked queue behind it.
func (f *Fence) RaiseFence(job FenceJob) (runNow bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fenceUp {
		f.blocked = append(f.blocked, job)
		return false
	}
	f.fenceUp = true
	if f.inFlight.Get(0) == 0 {
		return true
	}
	f.pending = job
	return false
}

// JobComplete reports one job finishing. wasFence indicates whether the
// completing job was itself the active fence job. It returns the jobs newly
// unblocked as a result (at most one fence job, or the whole blocked queue
// once the fence clears).
func (f *Fence) JobComplete(wasFence bool) []FenceJob {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !wasFence {
		f.inFlight.Decrement(0)
	}

	if !f.fenceUp {
		return nil
	}

	if f.pending != nil {
		if f.inFlight.Get(0) != 0 {
			return nil
		}
		job := f.pending
		f.pending = nil
		return []FenceJob{job}
	}

	if wasFence {
		f.fenceUp = false
		released := f.blocked
		f.blocked = nil
		return released
	}

	return nil
}

// JobsBlocked reports how many jobs are currently held behind the fence,
// used by the engine's diagnostics.
func (f *Fence) JobsBlocked() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.blocked)
}
