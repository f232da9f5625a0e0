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
	"fmt"
	"sync"
	"time"

	"github.com/kraken-torrentd/diskengine/diskengine/storebuffer"
	"github.com/kraken-torrentd/diskengine/fs/handlepool"
	"github.com/kraken-torrentd/diskengine/storage"
	"github.com/kraken-torrentd/diskengine/torrent"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"
)

// Config configures an Engine.
type Config struct {
	GenericWorkers int
	HashWorkers    int
	CloseInterval  time.Duration // how often the oldest idle handle is closed
	TickInterval   time.Duration // how often due storages are ticked
}

func (c Config) applyDefaults() Config {
	if c.GenericWorkers <= 0 {
		c.GenericWorkers = 4
	}
	if c.CloseInterval <= 0 {
		c.CloseInterval = time.Minute
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 30 * time.Second
	}
	return c
}

// Engine runs the disk job queue: a generic pool and a hash pool, each
// draining a FIFO guarded by one mutex+cond, plus a maintenance pass driven
// from the lowest-id generic worker.
type Engine struct {
	cfg     Config
	clk     clock.Clock
	handles *handlepool.Pool
	stats   *metrics

	mu       sync.Mutex
	cond     *sync.Cond
	generic  []*Job
	hash     []*Job
	stopping bool

	compMu      sync.Mutex
	comp        []*Result
	dispatching bool
	onComplete  func(*Result)

	storagesMu sync.Mutex
	storages   map[int]*storage.Storage
	nextTick   map[int]time.Time

	buf *storebuffer.Buffer

	lastClose        time.Time
	lastWindowsFlush time.Time

	wg sync.WaitGroup
}

// New creates an Engine and starts its worker pools. onComplete is invoked
// (from a single dispatcher goroutine, never concurrently) for every
// finished job, in addition to that job's own Callback. stats may be nil, in
// which case metrics are recorded against a no-op scope.
func New(cfg Config, clk clock.Clock, handles *handlepool.Pool, stats tally.Scope, onComplete func(*Result)) *Engine {
	cfg = cfg.applyDefaults()
	e := &Engine{
		cfg:        cfg,
		clk:        clk,
		handles:    handles,
		stats:      newMetrics(stats),
		onComplete: onComplete,
		storages:   make(map[int]*storage.Storage),
		nextTick:   make(map[int]time.Time),
		buf:        storebuffer.New(),
	}
	e.cond = sync.NewCond(&e.mu)
	e.wg.Add(cfg.GenericWorkers + cfg.HashWorkers)
	for i := 0; i < cfg.GenericWorkers; i++ {
		go e.runWorker(true, i)
	}
	for i := 0; i < cfg.HashWorkers; i++ {
		go e.runWorker(false, i)
	}
	return e
}

// Register adds s to the set of storages ticked by periodic maintenance.
func (e *Engine) Register(torrentIndex int, s *storage.Storage) {
	e.storagesMu.Lock()
	e.storages[torrentIndex] = s
	e.nextTick[torrentIndex] = e.clk.Now().Add(e.cfg.TickInterval)
	e.storagesMu.Unlock()
}

// Unregister removes a storage from periodic maintenance (e.g. once its
// torrent stops).
func (e *Engine) Unregister(torrentIndex int) {
	e.storagesMu.Lock()
	delete(e.storages, torrentIndex)
	delete(e.nextTick, torrentIndex)
	e.storagesMu.Unlock()
}

// Path implements handlepool.Resolver across every Storage this Engine
// knows about, keyed the same way Register is: the handle pool shared by
// all of an Engine's worker goroutines resolves a (torrent, file) pair by
// looking up the registered Storage and asking it for that file's path.
func (e *Engine) Path(key handlepool.Key) (string, error) {
	e.storagesMu.Lock()
	s, ok := e.storages[key.TorrentIndex]
	e.storagesMu.Unlock()
	if !ok {
		return "", fmt.Errorf("diskengine: no storage registered for torrent %d", key.TorrentIndex)
	}
	return s.FilePath(torrent.FileIndex(key.FileIndex))
}

// Stop signals every worker to exit once its queue has been drained, and
// waits for them to do so.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopping = true
	e.cond.Broadcast()
	e.mu.Unlock()
	e.wg.Wait()
}

// poolFor implements the hash/hash2 routing rule: they go to the hash pool
// iff SequentialAccess is set and the engine has at least one hash worker;
// otherwise (and for every other kind) they go to the generic pool.
func (e *Engine) poolFor(j *Job) bool {
	if (j.Kind == Hash || j.Kind == Hash2) && j.Flags.Has(storage.SequentialAccess) && e.cfg.HashWorkers > 0 {
		return false // hash pool
	}
	return true // generic pool
}

// Submit enqueues j, honoring j.Storage's fence: a fence job either goes
// straight to its pool, is held until in-flight jobs on that storage drain,
// or joins the blocked queue behind an already-raised fence; a non-fence
// job is admitted immediately unless a fence is currently up.
func (e *Engine) Submit(j *Job) {
	f := j.Storage.Fence()
	var runNow bool
	if j.Kind.isFence() {
		runNow = f.RaiseFence(j)
	} else {
		runNow = f.Admit(j)
	}
	if runNow {
		e.enqueue(j)
	}
}

func (e *Engine) enqueue(j *Job) {
	e.mu.Lock()
	if e.poolFor(j) {
		e.generic = append(e.generic, j)
	} else {
		e.hash = append(e.hash, j)
	}
	depth := len(e.generic) + len(e.hash)
	e.cond.Broadcast()
	e.mu.Unlock()
	e.stats.queueDepth.Update(float64(depth))
}

func (e *Engine) runWorker(generic bool, id int) {
	defer e.wg.Done()
	for {
		e.mu.Lock()
		for e.queueEmpty(generic) && !e.stopping {
			e.cond.Wait()
		}
		if e.stopping && e.queueEmpty(generic) {
			e.mu.Unlock()
			return
		}
		j := e.pop(generic)
		e.mu.Unlock()

		var res *Result
		if j.isAborted() {
			res = &Result{Job: j, Canceled: true}
		} else {
			res = dispatch(j, e.buf)
		}
		e.finish(j, res)

		if generic && id == 0 {
			e.maintain()
		}
	}
}

func (e *Engine) queueEmpty(generic bool) bool {
	if generic {
		return len(e.generic) == 0
	}
	return len(e.hash) == 0
}

func (e *Engine) pop(generic bool) *Job {
	if generic {
		j := e.generic[0]
		e.generic = e.generic[1:]
		return j
	}
	j := e.hash[0]
	e.hash = e.hash[1:]
	return j
}

// finish records j's completion against its fence, re-enqueues any jobs the
// fence newly unblocked, and posts res to the completion dispatcher.
func (e *Engine) finish(j *Job, res *Result) {
	released := j.Storage.Fence().JobComplete(j.Kind.isFence())
	for _, rj := range released {
		e.enqueue(rj.(*Job))
	}
	e.deliver(res)
}

// deliver appends res to the completion list and ensures exactly one
// dispatch goroutine is draining it at a time.
func (e *Engine) deliver(res *Result) {
	e.compMu.Lock()
	e.comp = append(e.comp, res)
	if e.dispatching {
		e.compMu.Unlock()
		return
	}
	e.dispatching = true
	e.compMu.Unlock()

	go e.drainCompletions()
}

func (e *Engine) drainCompletions() {
	for {
		e.compMu.Lock()
		batch := e.comp
		e.comp = nil
		if len(batch) == 0 {
			e.dispatching = false
			e.compMu.Unlock()
			return
		}
		e.compMu.Unlock()

		for _, res := range batch {
			e.stats.recordResult(res)
			if e.onComplete != nil {
				e.onComplete(res)
			}
			if res.Job.Callback != nil {
				res.Job.Callback(res)
			}
		}
	}
}
