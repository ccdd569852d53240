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

package types

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/doocho/simple-pow-chain/crypto"
)

// ZeroHash is the all-zero previous-hash value that marks the genesis
// block: 32 zero bytes, hex-encoded.
const ZeroHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Block is the header-plus-transactions unit of the chain, following
// spec §3: index, timestamp, an ordered transaction list, the parent
// hash, the mining nonce, the difficulty it was mined under, and its
// own hash.
type Block struct {
	Index        int64          `json:"index"`
	Timestamp    int64          `json:"timestamp"`
	Transactions []*Transaction `json:"transactions"`
	PreviousHash string         `json:"previous_hash"`
	Nonce        uint64         `json:"nonce"`
	Difficulty   int            `json:"difficulty"`
	Hash         string         `json:"hash"`
}

// headerFields is the canonical, hash-excluding encoding hashed to
// produce Block.Hash. Field order matches spec §3 exactly.
type headerFields struct {
	Index        int64          `json:"index"`
	Timestamp    int64          `json:"timestamp"`
	Transactions []*Transaction `json:"transactions"`
	PreviousHash string         `json:"previous_hash"`
	Nonce        uint64         `json:"nonce"`
	Difficulty   int            `json:"difficulty"`
}

// CalculateHash deterministically recomputes the hex hash of b from its
// current fields, ignoring whatever is cached in b.Hash.
func CalculateHash(b *Block) (string, error) {
	raw, err := json.Marshal(headerFields{
		Index:        b.Index,
		Timestamp:    b.Timestamp,
		Transactions: b.Transactions,
		PreviousHash: b.PreviousHash,
		Nonce:        b.Nonce,
		Difficulty:   b.Difficulty,
	})
	if err != nil {
		return "", err
	}
	digest := crypto.Sha256(raw)
	return hex.EncodeToString(digest[:]), nil
}

// NewBlock constructs an unmined block: timestamp set to now, nonce at
// zero, hash computed over that initial state. Mine must be called
// before the block satisfies the difficulty target.
func NewBlock(index int64, txs []*Transaction, previousHash string, difficulty int) (*Block, error) {
	b := &Block{
		Index:        index,
		Timestamp:    time.Now().Unix(),
		Transactions: txs,
		PreviousHash: previousHash,
		Nonce:        0,
		Difficulty:   difficulty,
	}
	hash, err := CalculateHash(b)
	if err != nil {
		return nil, err
	}
	b.Hash = hash
	return b, nil
}

// meetsDifficulty reports whether hash has at least difficulty leading
// hex '0' nibbles.
func meetsDifficulty(hash string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	if len(hash) < difficulty {
		return false
	}
	return strings.Count(hash[:difficulty], "0") == difficulty
}

// Mine searches nonces starting from b.Nonce's current value until the
// header hash meets b.Difficulty leading hex zeros, or until stop is
// closed/signaled. It returns true once it found a valid nonce, false
// if it was preempted first. The nonce counter wraps at the uint64
// boundary (spec §4.2); wrap is never expected to matter at
// development difficulties.
//
// The loop polls stop between attempts rather than blocking on it, so a
// higher block arriving via chain replacement can cancel an in-flight
// search promptly (spec §5).
func (b *Block) Mine(stop <-chan struct{}) (bool, error) {
	for {
		select {
		case <-stop:
			return false, nil
		default:
		}

		hash, err := CalculateHash(b)
		if err != nil {
			return false, err
		}
		if meetsDifficulty(hash, b.Difficulty) {
			b.Hash = hash
			return true, nil
		}
		b.Nonce++
	}
}

// IsValid reports whether b's stored hash matches its recomputed hash
// and meets the supplied difficulty. Index/parent linkage is a
// chain-level concern, not checked here (spec §4.2).
func (b *Block) IsValid(difficulty int) bool {
	hash, err := CalculateHash(b)
	if err != nil {
		return false
	}
	if hash != b.Hash {
		return false
	}
	return meetsDifficulty(hash, difficulty)
}
