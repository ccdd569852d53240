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

package p2p

import (
	"bufio"
	"net"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/doocho/simple-pow-chain/networks/protocol"
	"github.com/doocho/simple-pow-chain/params"
)

// Peer is one duplex connection to another node. addr is the address
// this node would dial to reach the peer again -- for an outbound
// connection that's the address we dialed; for an inbound connection
// it's the remote ephemeral address, not generally re-dialable (spec
// §4.4: "a peer connection is a duplex stream").
type Peer struct {
	addr string
	conn net.Conn

	writeMu sync.Mutex
	seen    *lru.Cache // hashes this peer is already known to have
}

func newPeer(addr string, conn net.Conn) *Peer {
	cache, _ := lru.New(params.GossipSeenCacheSize)
	return &Peer{addr: addr, conn: conn, seen: cache}
}

// send writes msg to the peer, framed per package protocol.
func (p *Peer) send(msg protocol.Message) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return protocol.WriteMessage(p.conn, msg)
}

// markSeen records that the peer is now known to have hash (because it
// sent it to us, or we're about to send it to them) and reports
// whether it was already marked -- the duplicate-suppression check
// that caps gossip amplification (spec §9).
func (p *Peer) markSeen(hash string) (alreadySeen bool) {
	if p.seen.Contains(hash) {
		return true
	}
	p.seen.Add(hash, struct{}{})
	return false
}

// readLoop decodes frames from the peer until a transport or protocol
// error occurs, dispatching each to handle. It always ends by dropping
// the peer from the live set (spec §4.4 outbound lifecycle, §7
// transport/protocol errors).
func (p *Peer) readLoop(handle func(*Peer, protocol.Message), onClose func(*Peer)) {
	defer onClose(p)
	defer p.conn.Close()

	reader := bufio.NewReader(p.conn)
	for {
		msg, err := protocol.ReadMessage(reader)
		if err != nil {
			return
		}
		handle(p, msg)
	}
}
