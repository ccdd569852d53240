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

// Package params holds the network-wide constants and the per-run
// configuration structs shared by cmd/node and cmd/seed, mirroring the
// teacher's params/protocol_params.go constant-table convention.
package params

import "time"

const (
	// BlockSubsidy is the fixed coinbase reward of every non-genesis
	// block (spec §3).
	BlockSubsidy uint64 = 50

	// DefaultDifficulty is the bootstrap difficulty used when a node
	// isn't told otherwise.
	DefaultDifficulty = 2

	// DialTimeout bounds an outbound peer connection attempt (spec §5).
	DialTimeout = 5 * time.Second

	// ChainRequestTimeout bounds how long a node waits for a
	// ResponseChain after sending RequestChain during startup sync
	// (spec §4.4 startup sequence).
	ChainRequestTimeout = 5 * time.Second

	// ReconnectInterval is the fixed retry interval for a dropped peer
	// whose address is still known (spec §4.4: "fixed retry interval
	// is sufficient").
	ReconnectInterval = 10 * time.Second

	// SeedTTL is how long the seed registry keeps a peer entry without
	// having heard from it again (spec §4.5).
	SeedTTL = 5 * time.Minute

	// GossipSeenCacheSize bounds the per-peer duplicate-suppression
	// cache of recently broadcast block/tx hashes (spec §9 design
	// note on broadcast amplification).
	GossipSeenCacheSize = 1024

	// MiningBroadcastBuffer is the channel depth between the mining
	// pipeline and the node's gossip broadcaster.
	MiningBroadcastBuffer = 8
)

// NodeConfig is the set of knobs cmd/node exposes as CLI flags.
type NodeConfig struct {
	ListenAddr   string
	SeedAddr     string
	PeerAddr     string
	Difficulty   int
	MinerAddress string
	Mine         bool
	Genesis      bool
}

// SeedConfig is the set of knobs cmd/seed exposes as CLI flags.
type SeedConfig struct {
	ListenAddr string
}
