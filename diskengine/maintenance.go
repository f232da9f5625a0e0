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

package diskengine

import (
	"time"

	"github.com/kraken-torrentd/diskengine/storage"
)

const windowsFlushInterval = 30 * time.Second

// maintain runs the periodic housekeeping pass assigned to the lowest-id
// generic worker: tick every storage whose due time has passed,
// close the single oldest idle handle once the close interval elapses, and
// (Windows only, a no-op elsewhere) flush the most-dirty mapping every 30
// seconds.
func (e *Engine) maintain() {
	now := e.clk.Now()
	e.tickDueStorages(now)

	if now.Sub(e.lastClose) >= e.cfg.CloseInterval {
		e.handles.CloseOldest()
		e.lastClose = now
	}
	if now.Sub(e.lastWindowsFlush) >= windowsFlushInterval {
		e.handles.FlushNextFile()
		e.lastWindowsFlush = now
	}
}

func (e *Engine) tickDueStorages(now time.Time) {
	e.storagesMu.Lock()
	var due []*storage.Storage
	for idx, s := range e.storages {
		if !now.Before(e.nextTick[idx]) {
			due = append(due, s)
			e.nextTick[idx] = now.Add(e.cfg.TickInterval)
		}
	}
	e.storagesMu.Unlock()

	for _, s := range due {
		s.Tick()
	}
}
