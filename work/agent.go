// Copyright 2026 The simple-pow-chain Authors
// This file is part of simple-pow-chain.
//
// simple-pow-chain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// simple-pow-chain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with simple-pow-chain. If not, see <http://www.gnu.org/licenses/>.

package work

import (
	"sync"
	"sync/atomic"

	"github.com/doocho/simple-pow-chain/core/types"
)

// Task is the unit of work handed to an Agent: an unmined block
// template plus the tip and pending-pool hashes it was built against,
// so the worker can commit-or-discard it atomically afterwards.
type Task struct {
	Tip     *types.Block
	Drained map[string]struct{}
	Block   *types.Block
}

// Result is what an Agent reports back once a Task's nonce search
// succeeds.
type Result struct {
	Task  *Task
	Block *types.Block
}

// Agent mines Tasks handed to it over Work() and reports successes on
// the channel set by SetReturnCh.
type Agent interface {
	Work() chan<- *Task
	SetReturnCh(ch chan<- *Result)
	Start()
	Stop()
}

// CpuAgent runs the nonce search on the local CPU. Because the worker
// only ever has one template in flight at a time (spec §4.4: mining
// always targets the current tip), CpuAgent only ever needs to
// supersede at most one running search: a new Task arriving on Work()
// cancels whatever search is running and starts over against it.
type CpuAgent struct {
	workCh   chan *Task
	quit     chan struct{}
	returnCh chan<- *Result

	mu     sync.Mutex
	cancel chan struct{} // closed to abandon the in-flight nonce search, if any

	running int32
}

// NewCpuAgent creates an idle agent; call Start to begin its loop.
func NewCpuAgent() *CpuAgent {
	return &CpuAgent{
		workCh: make(chan *Task, 1),
		quit:   make(chan struct{}),
	}
}

func (a *CpuAgent) Work() chan<- *Task            { return a.workCh }
func (a *CpuAgent) SetReturnCh(ch chan<- *Result) { a.returnCh = ch }

// Start begins the loop that hands each incoming Task to mine,
// superseding any search already running.
func (a *CpuAgent) Start() {
	if !atomic.CompareAndSwapInt32(&a.running, 0, 1) {
		return // already started
	}
	go a.loop()
}

// Stop halts the loop and abandons any in-flight nonce search.
func (a *CpuAgent) Stop() {
	if !atomic.CompareAndSwapInt32(&a.running, 1, 0) {
		return // already stopped
	}
	close(a.quit)
	a.abandonCurrent()
}

func (a *CpuAgent) loop() {
	for {
		select {
		case task := <-a.workCh:
			a.beginMining(task)
		case <-a.quit:
			return
		}
	}
}

// beginMining cancels whatever search is currently running, then
// starts a fresh one for task.
func (a *CpuAgent) beginMining(task *Task) {
	a.mu.Lock()
	a.abandonCurrentLocked()
	cancel := make(chan struct{})
	a.cancel = cancel
	a.mu.Unlock()

	go a.mine(task, cancel)
}

func (a *CpuAgent) abandonCurrent() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.abandonCurrentLocked()
}

func (a *CpuAgent) abandonCurrentLocked() {
	if a.cancel != nil {
		close(a.cancel)
		a.cancel = nil
	}
}

func (a *CpuAgent) mine(task *Task, cancel <-chan struct{}) {
	found, err := task.Block.Mine(cancel)
	if err != nil {
		logger.Warn("nonce search failed", "err", err)
		a.returnCh <- nil
		return
	}
	if !found {
		a.returnCh <- nil
		return
	}
	logger.Info("found a valid nonce", "index", task.Block.Index, "hash", task.Block.Hash)
	a.returnCh <- &Result{Task: task, Block: task.Block}
}
