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
	"errors"
	"time"

	"github.com/doocho/simple-pow-chain/crypto"
)

// Kind tags which of the two transaction variants a Transaction is.
type Kind uint8

const (
	// Coinbase credits the miner of a block with the block subsidy.
	Coinbase Kind = iota
	// Transfer moves value from a signed sender to a recipient.
	Transfer
)

func (k Kind) String() string {
	if k == Coinbase {
		return "coinbase"
	}
	return "transfer"
}

// Transaction is the tagged union described in spec §3: a Coinbase
// record or a signed Transfer record. Unused fields are left at their
// zero value for the other variant (e.g. Coinbase never sets From).
type Transaction struct {
	Kind      Kind   `json:"kind"`
	From      string `json:"from,omitempty"`
	To        string `json:"to"`
	Amount    uint64 `json:"amount"`
	Timestamp int64  `json:"timestamp"`
	Signature []byte `json:"signature,omitempty"`
	PublicKey []byte `json:"public_key,omitempty"`

	// TxHash caches the canonical hash so repeated lookups (pool
	// membership, dedup) don't re-marshal the signing fields.
	TxHash string `json:"tx_hash"`
}

// signingFields is the canonical, signature-excluding encoding used for
// both TxHash and the message an ECDSA signature covers. Field order is
// fixed by struct declaration order, which Go's encoding/json preserves,
// so the same logical transaction always serializes to the same bytes.
type signingFields struct {
	Kind      Kind   `json:"kind"`
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    uint64 `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

func canonicalBytes(kind Kind, from, to string, amount uint64, timestamp int64) ([]byte, error) {
	return json.Marshal(signingFields{
		Kind:      kind,
		From:      from,
		To:        to,
		Amount:    amount,
		Timestamp: timestamp,
	})
}

// computeHash returns the digest used as both TxHash and signing
// message: the raw 32-byte SHA-256 of the canonical encoding.
func computeHash(kind Kind, from, to string, amount uint64, timestamp int64) ([32]byte, error) {
	raw, err := canonicalBytes(kind, from, to, amount, timestamp)
	if err != nil {
		return [32]byte{}, err
	}
	return crypto.Sha256(raw), nil
}

// NewCoinbase builds the block-subsidy transaction that must be the
// first entry of every non-genesis block.
func NewCoinbase(to string, reward uint64) (*Transaction, error) {
	ts := time.Now().Unix()
	digest, err := computeHash(Coinbase, "", to, reward, ts)
	if err != nil {
		return nil, err
	}
	return &Transaction{
		Kind:      Coinbase,
		To:        to,
		Amount:    reward,
		Timestamp: ts,
		TxHash:    hex.EncodeToString(digest[:]),
	}, nil
}

// NewTransfer builds and signs a transfer of amount from the holder of
// fromPriv to the to address.
func NewTransfer(fromPriv *crypto.PrivateKey, to string, amount uint64) (*Transaction, error) {
	if amount == 0 {
		return nil, errors.New("types: transfer amount must be > 0")
	}
	pub := fromPriv.PubKey()
	from := crypto.Address(pub)
	ts := time.Now().Unix()

	digest, err := computeHash(Transfer, from, to, amount, ts)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(fromPriv, digest[:])
	if err != nil {
		return nil, err
	}
	return &Transaction{
		Kind:      Transfer,
		From:      from,
		To:        to,
		Amount:    amount,
		Timestamp: ts,
		Signature: sig,
		PublicKey: pub.SerializeCompressed(),
		TxHash:    hex.EncodeToString(digest[:]),
	}, nil
}

// Hash recomputes the canonical hash from the transaction's own fields,
// independent of the cached TxHash, for use by validators that must not
// trust a peer-supplied hash.
func (tx *Transaction) Hash() (string, error) {
	digest, err := computeHash(tx.Kind, tx.From, tx.To, tx.Amount, tx.Timestamp)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(digest[:]), nil
}

// Verify reports whether tx is well-formed: a Coinbase is always valid
// (the block-level shape check lives in core/chain), a Transfer must
// carry a public key that derives to From, a signature that verifies
// against the canonical hash under that key, and a positive amount.
func (tx *Transaction) Verify() bool {
	if tx.Kind == Coinbase {
		return true
	}
	if tx.Amount == 0 {
		return false
	}
	pub, err := crypto.ParsePublicKey(tx.PublicKey)
	if err != nil {
		return false
	}
	if crypto.Address(pub) != tx.From {
		return false
	}
	digest, err := computeHash(tx.Kind, tx.From, tx.To, tx.Amount, tx.Timestamp)
	if err != nil {
		return false
	}
	recomputed := hex.EncodeToString(digest[:])
	if recomputed != tx.TxHash {
		return false
	}
	return crypto.Verify(pub, digest[:], tx.Signature)
}
