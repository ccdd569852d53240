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

// Package metrics registers and exposes the small set of in-process
// counters and gauges the node tracks, backed by rcrowley/go-metrics --
// the same registry the teacher's work/worker.go registers
// miner/timelimitreached and miner/toolongtx counters against.
package metrics

import (
	gometrics "github.com/rcrowley/go-metrics"
)

// DefaultRegistry is the process-wide registry all counters/gauges are
// registered into, mirroring the teacher's use of the library's global
// default registry.
var DefaultRegistry = gometrics.DefaultRegistry

// NewRegisteredCounter returns a counter registered under name, or the
// already-registered one if name was used before.
func NewRegisteredCounter(name string) gometrics.Counter {
	return gometrics.GetOrRegisterCounter(name, DefaultRegistry)
}

// NewRegisteredGauge returns a gauge registered under name, or the
// already-registered one if name was used before.
func NewRegisteredGauge(name string) gometrics.Gauge {
	return gometrics.GetOrRegisterGauge(name, DefaultRegistry)
}

// Counter names used across the node.
const (
	MinedBlocks     = "miner/minedblocks"
	StaleTemplates  = "miner/staletemplates"
	AcceptedBlocks  = "chain/acceptedblocks"
	RejectedBlocks  = "chain/rejectedblocks"
	ConnectedPeers  = "p2p/connectedpeers"
	BroadcastBlocks = "p2p/broadcastblocks"
)
