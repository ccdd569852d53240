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

// Package chain owns the ordered block list, the pending-transaction
// pool, and the balance view replayed from them. It is the only
// component allowed to mutate the chain; every mutation is serialized
// by a single coarse lock (spec §5).
package chain

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/doocho/simple-pow-chain/core/types"
	"github.com/doocho/simple-pow-chain/log"
	"github.com/doocho/simple-pow-chain/metrics"
	"github.com/doocho/simple-pow-chain/params"
)

var (
	logger          = log.NewModuleLogger(log.ModuleChain)
	acceptedCounter = metrics.NewRegisteredCounter(metrics.AcceptedBlocks)
	rejectedCounter = metrics.NewRegisteredCounter(metrics.RejectedBlocks)
)

// Chain holds the canonical block list, the pending pool, and the
// node-local difficulty, all protected by a single RWMutex.
type Chain struct {
	mu         sync.RWMutex
	blocks     []*types.Block
	pending    map[string]*types.Transaction
	difficulty int
}

// New creates an empty Chain. Call CreateGenesis before any other
// mutating operation.
func New(difficulty int) *Chain {
	return &Chain{
		pending:    make(map[string]*types.Transaction),
		difficulty: difficulty,
	}
}

// Difficulty returns the chain's configured difficulty.
func (c *Chain) Difficulty() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.difficulty
}

// Len returns the number of blocks currently stored, genesis included.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}

// Tip returns the last block, or nil if the chain has no genesis yet.
func (c *Chain) Tip() *types.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tipLocked()
}

func (c *Chain) tipLocked() *types.Block {
	if len(c.blocks) == 0 {
		return nil
	}
	return c.blocks[len(c.blocks)-1]
}

// Blocks returns a shallow copy of the block list, safe for a caller to
// range over (e.g. to answer a RequestChain gossip message).
func (c *Chain) Blocks() []*types.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*types.Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// CreateGenesis mines and appends the index-0 block. It fails if the
// chain already has a genesis block (spec §4.3 precondition).
func (c *Chain) CreateGenesis() (*types.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.blocks) != 0 {
		return nil, errors.New("chain: genesis already created")
	}

	genesis, err := types.NewBlock(0, nil, types.ZeroHash, c.difficulty)
	if err != nil {
		return nil, err
	}
	if _, err := genesis.Mine(nil); err != nil {
		return nil, err
	}
	c.blocks = append(c.blocks, genesis)
	logger.Info("created genesis block", "hash", genesis.Hash)
	return genesis, nil
}

// AddTransaction validates tx and, if accepted, inserts it into the
// pending pool. Rejection (bad signature, zero amount, duplicate hash
// already pooled or already mined) is silent and reported only via the
// boolean return (spec §4.1 Failure / §4.3 add_transaction).
func (c *Chain) AddTransaction(tx *types.Transaction) bool {
	if tx == nil || !tx.Verify() {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.pending[tx.TxHash]; exists {
		return false
	}
	if c.hashMinedLocked(tx.TxHash) {
		return false
	}
	c.pending[tx.TxHash] = tx
	return true
}

func (c *Chain) hashMinedLocked(txHash string) bool {
	for _, b := range c.blocks {
		for _, tx := range b.Transactions {
			if tx.TxHash == txHash {
				return true
			}
		}
	}
	return false
}

// BuildTemplate assembles the coinbase-first transaction list for a
// new block without mutating the pending pool: it replays balances
// from genesis, then admits pending transfers in deterministic
// (hash-sorted) order, skipping any transfer that would spend more
// than its sender's balance at that point in the template (spec §8
// scenario 3: of two conflicting transfers, exactly one is admitted;
// the other is left in the pool rather than both being applied).
// It also returns the tip the template extends and the set of
// pending-pool hashes it admitted, for CommitMined/MinePending to
// drain on success. Returns a nil tip if the chain has no genesis yet.
func (c *Chain) BuildTemplate(minerAddress string) (txs []*types.Transaction, tip *types.Block, drained map[string]struct{}) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tip = c.tipLocked()
	if tip == nil {
		return nil, nil, nil
	}

	coinbase, err := types.NewCoinbase(minerAddress, params.BlockSubsidy)
	if err != nil {
		// Coinbase construction cannot fail in practice (no signing
		// involved); surface an empty template rather than panic.
		return nil, tip, nil
	}

	balances, _ := c.replayLocked()
	balances[minerAddress] += int64(params.BlockSubsidy)

	hashes := make([]string, 0, len(c.pending))
	for hash := range c.pending {
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)

	txs = make([]*types.Transaction, 0, len(hashes)+1)
	txs = append(txs, coinbase)
	drained = make(map[string]struct{}, len(hashes))
	for _, hash := range hashes {
		tx := c.pending[hash]
		if tx.Kind != types.Transfer {
			continue
		}
		if balances[tx.From] < int64(tx.Amount) {
			continue // left in the pool; would double-spend in this template
		}
		balances[tx.From] -= int64(tx.Amount)
		balances[tx.To] += int64(tx.Amount)
		txs = append(txs, tx)
		drained[hash] = struct{}{}
	}
	return txs, tip, drained
}

// MinePending assembles a block via BuildTemplate, mines it
// synchronously, and commits it if the tip hasn't moved meanwhile
// (spec §4.3 mine_pending). It is the direct, single-threaded form of
// the operation; the background mining pipeline in package work uses
// the same BuildTemplate/CommitMined pair so it never holds the chain
// lock during nonce search (spec §9 design note).
func (c *Chain) MinePending(minerAddress string) (*types.Block, error) {
	txs, tip, drained := c.BuildTemplate(minerAddress)
	if tip == nil {
		return nil, errors.New("chain: cannot mine without a genesis block")
	}

	block, err := types.NewBlock(tip.Index+1, txs, tip.Hash, c.Difficulty())
	if err != nil {
		return nil, err
	}
	if _, err := block.Mine(nil); err != nil {
		return nil, err
	}

	if !c.CommitMined(block, tip, drained) {
		return nil, errNewTip{tip: c.Tip()}
	}
	return block, nil
}

type errNewTip struct{ tip *types.Block }

func (e errNewTip) Error() string { return "chain: tip advanced during mining, block discarded" }

// CommitMined appends a block that was mined outside the chain lock
// against a previously observed tip. It succeeds only if the chain's
// tip is still expectedTip; otherwise the caller must rebuild its
// template against the new tip (spec §9 design note, §5 ordering).
func (c *Chain) CommitMined(block *types.Block, expectedTip *types.Block, drained map[string]struct{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tipLocked() != expectedTip {
		return false
	}
	c.blocks = append(c.blocks, block)
	for hash := range drained {
		delete(c.pending, hash)
	}
	logger.Info("committed mined block", "index", block.Index, "hash", block.Hash)
	return true
}

// AddBlock validates a single candidate extension of the current tip
// and appends it on success (spec §4.3 add_block). Forks are not
// resolved here -- only ReplaceChain resolves forks.
func (c *Chain) AddBlock(block *types.Block) bool {
	if block == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tip := c.tipLocked()
	if tip == nil {
		rejectedCounter.Inc(1)
		return false
	}
	if !block.IsValid(c.difficulty) {
		rejectedCounter.Inc(1)
		return false
	}
	if block.Index != tip.Index+1 {
		rejectedCounter.Inc(1)
		return false
	}
	if block.PreviousHash != tip.Hash {
		rejectedCounter.Inc(1)
		return false
	}
	if !validCoinbaseShape(block) {
		rejectedCounter.Inc(1)
		return false
	}
	if hasDuplicateTxHash(block) {
		rejectedCounter.Inc(1)
		return false
	}
	balances, _ := c.replayLocked()
	if !applyBlockTransfers(balances, block) {
		rejectedCounter.Inc(1)
		return false
	}

	c.blocks = append(c.blocks, block)
	for _, tx := range block.Transactions {
		delete(c.pending, tx.TxHash)
	}
	acceptedCounter.Inc(1)
	logger.Info("accepted block", "index", block.Index, "hash", block.Hash)
	return true
}

// IsValidChain statically validates an arbitrary candidate chain
// end-to-end: genesis shape, per-block proof-of-work, linkage,
// coinbase shape, transfer signatures, and replayed balance
// non-negativity (spec §4.3 is_valid_chain, §8 quantified invariants).
func (c *Chain) IsValidChain(candidate []*types.Block) bool {
	difficulty := c.Difficulty()
	return isValidChain(candidate, difficulty)
}

func isValidChain(candidate []*types.Block, difficulty int) bool {
	if len(candidate) == 0 {
		return false
	}
	genesis := candidate[0]
	if genesis.Index != 0 || genesis.PreviousHash != types.ZeroHash {
		return false
	}
	seenHashes := make(map[string]struct{}, len(candidate))
	for i, b := range candidate {
		if !b.IsValid(difficulty) {
			return false
		}
		if _, dup := seenHashes[b.Hash]; dup {
			return false
		}
		seenHashes[b.Hash] = struct{}{}

		if i > 0 {
			prev := candidate[i-1]
			if b.Index != prev.Index+1 {
				return false
			}
			if b.PreviousHash != prev.Hash {
				return false
			}
			if !validCoinbaseShape(b) {
				return false
			}
		}
		if hasDuplicateTxHash(b) {
			return false
		}
	}

	balances := make(map[string]int64)
	for _, b := range candidate {
		if !applyBlockTransfers(balances, b) {
			return false
		}
	}
	return true
}

// validCoinbaseShape checks spec invariant 5: a non-genesis block's
// first transaction must be exactly one coinbase of the block subsidy,
// and no later transaction may itself be a coinbase.
func validCoinbaseShape(b *types.Block) bool {
	if b.Index == 0 {
		return true
	}
	if len(b.Transactions) == 0 {
		return false
	}
	first := b.Transactions[0]
	if first.Kind != types.Coinbase || first.Amount != params.BlockSubsidy {
		return false
	}
	for _, tx := range b.Transactions[1:] {
		if tx.Kind == types.Coinbase {
			return false
		}
	}
	return true
}

func hasDuplicateTxHash(b *types.Block) bool {
	seen := make(map[string]struct{}, len(b.Transactions))
	for _, tx := range b.Transactions {
		if _, dup := seen[tx.TxHash]; dup {
			return true
		}
		seen[tx.TxHash] = struct{}{}
	}
	return false
}

// applyBlockTransfers replays every transaction of b against balances
// in list order, crediting recipients and debiting senders, and
// verifying every transfer's signature. It reports false the moment a
// sender's balance would go negative or a transfer fails to verify
// (spec invariant 7 and 8).
func applyBlockTransfers(balances map[string]int64, b *types.Block) bool {
	for _, tx := range b.Transactions {
		switch tx.Kind {
		case types.Coinbase:
			balances[tx.To] += int64(tx.Amount)
		case types.Transfer:
			if !tx.Verify() {
				return false
			}
			if balances[tx.From] < int64(tx.Amount) {
				return false
			}
			balances[tx.From] -= int64(tx.Amount)
			balances[tx.To] += int64(tx.Amount)
		}
	}
	return true
}

func (c *Chain) replayLocked() (map[string]int64, bool) {
	balances := make(map[string]int64)
	for _, b := range c.blocks {
		if !applyBlockTransfers(balances, b) {
			return balances, false
		}
	}
	return balances, true
}

// ReplaceChain adopts candidate as the local chain iff it is strictly
// longer than the current chain and passes IsValidChain (spec §4.3
// replace_chain; spec §9 Open Question resolved as strict `>`, which
// keeps the local chain on a length tie). After a successful
// replacement, pending entries already mined in candidate are dropped,
// and the remaining pending entries are re-validated against the new
// balance view.
func (c *Chain) ReplaceChain(candidate []*types.Block) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(candidate) <= len(c.blocks) {
		return false
	}
	if !isValidChain(candidate, c.difficulty) {
		return false
	}

	c.blocks = append([]*types.Block(nil), candidate...)

	mined := make(map[string]struct{})
	for _, b := range c.blocks {
		for _, tx := range b.Transactions {
			mined[tx.TxHash] = struct{}{}
		}
	}
	for hash := range c.pending {
		if _, done := mined[hash]; done {
			delete(c.pending, hash)
		}
	}

	balances, _ := c.replayLocked()
	for hash, tx := range c.pending {
		if tx.Kind != types.Transfer {
			continue
		}
		if balances[tx.From] < int64(tx.Amount) {
			delete(c.pending, hash)
			continue
		}
		balances[tx.From] -= int64(tx.Amount)
		balances[tx.To] += int64(tx.Amount)
	}

	logger.Info("replaced chain", "length", len(c.blocks))
	return true
}

// GetBalance replays the full chain and returns address's balance:
// credited by every coinbase/transfer received, debited by every
// transfer sent (spec §4.3 get_balance).
func (c *Chain) GetBalance(address string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	balances, _ := c.replayLocked()
	return balances[address]
}

// PendingCount returns the number of transactions currently pooled,
// mainly for tests and status logging.
func (c *Chain) PendingCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pending)
}

// String implements fmt.Stringer for debug logging.
func (c *Chain) String() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tip := c.tipLocked()
	if tip == nil {
		return "chain{empty}"
	}
	return fmt.Sprintf("chain{len=%d tip=%s}", len(c.blocks), tip.Hash)
}
