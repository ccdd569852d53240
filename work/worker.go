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

// Package work drives the background mining loop: it assembles a
// block template from the chain's current tip and pending pool, hands
// it to an Agent for the nonce search, and commits or discards the
// result depending on whether the tip moved while mining. The shape is
// the teacher's Agent/Task/Result worker pattern (work/worker.go,
// work/agent.go) narrowed to a single CPU agent.
package work

import (
	"sync/atomic"
	"time"

	"github.com/doocho/simple-pow-chain/core/chain"
	"github.com/doocho/simple-pow-chain/core/types"
	"github.com/doocho/simple-pow-chain/log"
	"github.com/doocho/simple-pow-chain/metrics"
	"github.com/doocho/simple-pow-chain/params"
)

const (
	// resultQueueSize bounds how many Results may be buffered between
	// the agent and the worker's wait loop.
	resultQueueSize = 10

	// retemplateInterval is how often the worker checks whether the
	// chain's tip moved out from under its in-flight Task even though
	// no Result has arrived yet (e.g. a concurrent ReplaceChain from
	// gossip). The nonce search itself polls far more often than this;
	// this only bounds how stale a template can go unnoticed.
	retemplateInterval = 200 * time.Millisecond
)

var (
	logger       = log.NewModuleLogger(log.ModuleMiner)
	minedCounter = metrics.NewRegisteredCounter(metrics.MinedBlocks)
	staleCounter = metrics.NewRegisteredCounter(metrics.StaleTemplates)
)

// Worker owns a Chain and a mining Agent, and feeds one the other's
// output in a loop until Stop is called.
type Worker struct {
	chain        *chain.Chain
	agent        Agent
	minerAddress string

	recv   chan *Result
	quit   chan struct{}
	mined  chan *types.Block // newly committed blocks, for the node to gossip
	mining int32
}

// NewWorker creates a Worker bound to chain, mining on behalf of
// minerAddress using a local CpuAgent.
func NewWorker(c *chain.Chain, minerAddress string) *Worker {
	w := &Worker{
		chain:        c,
		minerAddress: minerAddress,
		recv:         make(chan *Result, resultQueueSize),
		quit:         make(chan struct{}),
		mined:        make(chan *types.Block, params.MiningBroadcastBuffer),
	}
	agent := NewCpuAgent()
	agent.SetReturnCh(w.recv)
	w.agent = agent
	return w
}

// Mined returns the channel on which freshly committed blocks are
// published, for a P2P node to broadcast as NewBlock.
func (w *Worker) Mined() <-chan *types.Block { return w.mined }

// Start begins the agent and the scheduling loop. Calling Start twice
// is a no-op.
func (w *Worker) Start() {
	if !atomic.CompareAndSwapInt32(&w.mining, 0, 1) {
		return
	}
	w.agent.Start()
	go w.update()
}

// Stop halts the agent and the scheduling loop. Any in-flight nonce
// search is abandoned.
func (w *Worker) Stop() {
	if !atomic.CompareAndSwapInt32(&w.mining, 1, 0) {
		return
	}
	w.agent.Stop()
	close(w.quit)
}

// update is the scheduling loop: it pushes a fresh Task whenever the
// tip changes, either because a Result just committed or because the
// chain advanced out from under us via gossip (spec §4.4, §9).
func (w *Worker) update() {
	ticker := time.NewTicker(retemplateInterval)
	defer ticker.Stop()

	var currentTip *types.Block
	w.retemplate(&currentTip)

	for {
		select {
		case <-w.quit:
			return
		case res := <-w.recv:
			w.handleResult(res)
			currentTip = nil // force a fresh template next tick
		case <-ticker.C:
			w.retemplate(&currentTip)
		}
	}
}

func (w *Worker) retemplate(currentTip **types.Block) {
	txs, tip, drained := w.chain.BuildTemplate(w.minerAddress)
	if tip == nil {
		return // no genesis yet; nothing to mine against
	}
	if *currentTip == tip {
		return // already mining against this tip
	}

	block, err := types.NewBlock(tip.Index+1, txs, tip.Hash, w.chain.Difficulty())
	if err != nil {
		logger.Error("failed to build block template", "err", err)
		return
	}
	*currentTip = tip

	task := &Task{Tip: tip, Drained: drained, Block: block}
	select {
	case w.agent.Work() <- task:
	case <-w.quit:
	}
}

func (w *Worker) handleResult(res *Result) {
	if res == nil || res.Task == nil || res.Block == nil {
		return
	}
	if !w.chain.CommitMined(res.Block, res.Task.Tip, res.Task.Drained) {
		staleCounter.Inc(1)
		logger.Debug("discarding stale mining result", "index", res.Block.Index)
		return
	}
	minedCounter.Inc(1)
	select {
	case w.mined <- res.Block:
	default:
		// Nobody is listening for gossip (e.g. mining standalone in
		// tests); the block is already durably appended to the chain.
	}
}
