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

// Package seed implements the stateless rendezvous described in spec
// §4.5: a registry of known peer addresses, aged out by a TTL on
// access. It is modeled on the teacher's Kademlia bucket table
// (networks/p2p/discover/table.go) generalized from a bucket tree down
// to one flat, mutex-guarded map, since the spec calls for no routing
// structure at all -- just a list newcomers can fetch.
package seed

import (
	"sync"
	"time"

	"github.com/doocho/simple-pow-chain/log"
	"github.com/doocho/simple-pow-chain/params"
)

var logger = log.NewModuleLogger(log.ModuleSeed)

// Registry holds address -> last-seen, evicting entries older than a
// TTL whenever they're touched by a request.
type Registry struct {
	mu       sync.Mutex
	lastSeen map[string]time.Time
	ttl      time.Duration
	now      func() time.Time
}

// NewRegistry creates an empty registry with the default TTL
// (params.SeedTTL).
func NewRegistry() *Registry {
	return &Registry{
		lastSeen: make(map[string]time.Time),
		ttl:      params.SeedTTL,
		now:      time.Now,
	}
}

// Register inserts or refreshes addr's last-seen timestamp.
func (r *Registry) Register(addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSeen[addr] = r.now()
	logger.Debug("registered peer", "addr", addr)
}

// PeersExcept evicts stale entries, then returns every known address
// except self (spec §4.5: "return all known addresses except the
// caller's own self-declared address").
func (r *Registry) PeersExcept(self string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.ttl)
	peers := make([]string, 0, len(r.lastSeen))
	for addr, seenAt := range r.lastSeen {
		if seenAt.Before(cutoff) {
			delete(r.lastSeen, addr)
			continue
		}
		if addr == self {
			continue
		}
		peers = append(peers, addr)
	}
	return peers
}

// Len reports the number of entries currently held, stale or not;
// mainly for tests and status logging.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lastSeen)
}
