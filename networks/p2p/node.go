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

// Package p2p implements the node side of the network: a TCP listener
// and dialer, the six-message gossip protocol, and the startup
// sequence that brings a fresh process up to the network's current
// chain (spec §4.4). It is grounded on the teacher's networks/p2p
// server, generalized from its devp2p handshake/capability negotiation
// down to the flat JSON protocol package defines.
package p2p

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/doocho/simple-pow-chain/core/chain"
	"github.com/doocho/simple-pow-chain/core/types"
	"github.com/doocho/simple-pow-chain/log"
	"github.com/doocho/simple-pow-chain/metrics"
	"github.com/doocho/simple-pow-chain/networks/protocol"
	"github.com/doocho/simple-pow-chain/params"
	"github.com/doocho/simple-pow-chain/work"
)

var (
	logger           = log.NewModuleLogger(log.ModuleP2P)
	peerGauge        = metrics.NewRegisteredGauge(metrics.ConnectedPeers)
	broadcastCounter = metrics.NewRegisteredCounter(metrics.BroadcastBlocks)
)

// Node owns a Chain, an optional mining Worker, and the live/known peer
// sets. It is the top-level object cmd/node constructs and runs.
type Node struct {
	cfg    params.NodeConfig
	chain  *chain.Chain
	worker *work.Worker

	mu    sync.Mutex
	peers map[string]*Peer    // addr -> live connection
	known map[string]struct{} // every address ever dialed or learned

	listener net.Listener
	quit     chan struct{}

	gotChain     chan struct{}
	gotChainOnce sync.Once
}

// New builds a Node from cfg. If cfg.Mine is set, a background work.Worker
// is created (not yet started -- Run starts it after the startup chain
// sync; until the chain has a tip the worker has nothing to mine).
func New(cfg params.NodeConfig) *Node {
	difficulty := cfg.Difficulty
	if difficulty <= 0 {
		difficulty = params.DefaultDifficulty
	}
	c := chain.New(difficulty)

	n := &Node{
		cfg:      cfg,
		chain:    c,
		peers:    make(map[string]*Peer),
		known:    make(map[string]struct{}),
		quit:     make(chan struct{}),
		gotChain: make(chan struct{}),
	}
	if cfg.Mine {
		n.worker = work.NewWorker(c, cfg.MinerAddress)
	}
	return n
}

// Chain exposes the node's chain, mainly for an RPC/status layer or tests.
func (n *Node) Chain() *chain.Chain { return n.chain }

// Run binds the listener, executes the startup sequence (spec §4.4:
// bootstrap from seed, dial a direct peer, sync the chain, create
// genesis if configured and nobody answered), then blocks serving
// gossip until Stop is called.
func (n *Node) Run() error {
	ln, err := net.Listen("tcp", n.cfg.ListenAddr)
	if err != nil {
		return err
	}
	n.listener = ln
	logger.Info("node listening", "addr", n.cfg.ListenAddr)
	go n.acceptLoop()

	if n.cfg.SeedAddr != "" {
		n.bootstrapFromSeed()
	}
	if n.cfg.PeerAddr != "" {
		n.dialAndRegister(n.cfg.PeerAddr)
	}
	n.syncChain()

	if n.worker != nil {
		n.worker.Start()
		go n.broadcastMinedLoop()
	}
	go n.reconnectLoop()

	<-n.quit
	return nil
}

// Stop tears down the listener, the worker, and every live peer
// connection.
func (n *Node) Stop() {
	select {
	case <-n.quit:
		return // already stopped
	default:
		close(n.quit)
	}
	if n.worker != nil {
		n.worker.Stop()
	}
	if n.listener != nil {
		n.listener.Close()
	}
	n.mu.Lock()
	for _, p := range n.peers {
		p.conn.Close()
	}
	n.mu.Unlock()
}

// PeerCount reports the number of live connections, mainly for status
// logging and tests.
func (n *Node) PeerCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.peers)
}

func (n *Node) acceptLoop() {
	for {
		conn, err := n.listener.Accept()
		if err != nil {
			select {
			case <-n.quit:
				return
			default:
				logger.Warn("accept failed", "err", err)
				continue
			}
		}
		peer := newPeer(conn.RemoteAddr().String(), conn)
		n.addPeer(peer, false)
		go peer.readLoop(n.handleMessage, n.onPeerClosed)
	}
}

func (n *Node) dialPeer(addr string) (*Peer, error) {
	conn, err := net.DialTimeout("tcp", addr, params.DialTimeout)
	if err != nil {
		return nil, err
	}
	return newPeer(addr, conn), nil
}

// dialAndRegister dials addr, and on success adds it as a live,
// reconnectable peer and asks it for its current chain.
func (n *Node) dialAndRegister(addr string) {
	n.mu.Lock()
	n.known[addr] = struct{}{}
	n.mu.Unlock()

	peer, err := n.dialPeer(addr)
	if err != nil {
		logger.Warn("dial failed", "addr", addr, "err", err)
		return
	}
	n.addPeer(peer, true)
	go peer.readLoop(n.handleMessage, n.onPeerClosed)
	n.requestChainFrom(peer)
}

func (n *Node) addPeer(p *Peer, persist bool) {
	n.mu.Lock()
	n.peers[p.addr] = p
	if persist {
		n.known[p.addr] = struct{}{}
	}
	n.mu.Unlock()
	peerGauge.Update(int64(n.PeerCount()))
	logger.Info("peer connected", "addr", p.addr)
}

func (n *Node) onPeerClosed(p *Peer) {
	n.mu.Lock()
	if n.peers[p.addr] == p {
		delete(n.peers, p.addr)
	}
	n.mu.Unlock()
	peerGauge.Update(int64(n.PeerCount()))
	logger.Info("peer disconnected", "addr", p.addr)
}

// reconnectLoop retries, at a fixed interval, every known address that
// isn't currently live (spec §4.4: "a fixed retry interval is
// sufficient").
func (n *Node) reconnectLoop() {
	ticker := time.NewTicker(params.ReconnectInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.quit:
			return
		case <-ticker.C:
			n.mu.Lock()
			missing := make([]string, 0)
			for addr := range n.known {
				if _, live := n.peers[addr]; !live {
					missing = append(missing, addr)
				}
			}
			n.mu.Unlock()
			for _, addr := range missing {
				n.dialAndRegister(addr)
			}
		}
	}
}

// bootstrapFromSeed asks the configured seed for its current peer list
// and dials every address it returns (spec §4.4 step 2, §4.5 protocol).
func (n *Node) bootstrapFromSeed() {
	conn, err := net.DialTimeout("tcp", n.cfg.SeedAddr, params.DialTimeout)
	if err != nil {
		logger.Warn("seed dial failed", "addr", n.cfg.SeedAddr, "err", err)
		return
	}
	defer conn.Close()

	req, err := protocol.Encode(protocol.RequestPeers, protocol.PeersRequest{ListenAddr: n.cfg.ListenAddr})
	if err != nil {
		logger.Error("failed to encode RequestPeers", "err", err)
		return
	}
	if err := protocol.WriteMessage(conn, req); err != nil {
		logger.Warn("failed to write RequestPeers to seed", "err", err)
		return
	}

	conn.SetReadDeadline(time.Now().Add(params.DialTimeout))
	msg, err := protocol.ReadMessage(bufio.NewReader(conn))
	if err != nil {
		logger.Warn("no response from seed", "err", err)
		return
	}
	if msg.Type != protocol.ResponsePeers {
		return
	}
	var addrs []string
	if err := msg.Decode(&addrs); err != nil {
		logger.Warn("undecodable ResponsePeers from seed", "err", err)
		return
	}
	for _, addr := range addrs {
		if addr == n.cfg.ListenAddr {
			continue
		}
		n.dialAndRegister(addr)
	}
}

// syncChain requests the chain from every currently connected peer and
// waits up to ChainRequestTimeout for the first reply to land. If the
// chain is still empty afterward and the node was started with
// --genesis, it mines a fresh genesis block; otherwise it stays idle
// until a peer's ResponseChain arrives, whenever that is (spec §4.4
// step 3-4).
func (n *Node) syncChain() {
	n.mu.Lock()
	peers := make([]*Peer, 0, len(n.peers))
	for _, p := range n.peers {
		peers = append(peers, p)
	}
	n.mu.Unlock()

	for _, p := range peers {
		n.requestChainFrom(p)
	}

	if len(peers) > 0 {
		select {
		case <-n.gotChain:
		case <-time.After(params.ChainRequestTimeout):
		}
	}

	if n.chain.Len() == 0 && n.cfg.Genesis {
		if _, err := n.chain.CreateGenesis(); err != nil {
			logger.Error("failed to create genesis", "err", err)
		}
	}
}

func (n *Node) requestChainFrom(p *Peer) {
	msg, err := protocol.Encode(protocol.RequestChain, struct{}{})
	if err != nil {
		return
	}
	if err := p.send(msg); err != nil {
		logger.Warn("failed to request chain", "addr", p.addr, "err", err)
	}
}

func (n *Node) signalGotChain() {
	n.gotChainOnce.Do(func() { close(n.gotChain) })
}

// broadcastMinedLoop forwards every block the local worker commits to
// every connected peer.
func (n *Node) broadcastMinedLoop() {
	for {
		select {
		case <-n.quit:
			return
		case b, ok := <-n.worker.Mined():
			if !ok {
				return
			}
			n.broadcastBlock(b, nil)
		}
	}
}

func (n *Node) broadcastBlock(b *types.Block, except *Peer) {
	msg, err := protocol.Encode(protocol.NewBlock, b)
	if err != nil {
		logger.Error("failed to encode NewBlock", "err", err)
		return
	}
	n.forEachPeer(except, func(p *Peer) {
		if p.markSeen(b.Hash) {
			return
		}
		if err := p.send(msg); err != nil {
			logger.Warn("broadcast block failed", "addr", p.addr, "err", err)
		}
	})
	broadcastCounter.Inc(1)
}

func (n *Node) broadcastTx(tx *types.Transaction, except *Peer) {
	msg, err := protocol.Encode(protocol.NewTransaction, tx)
	if err != nil {
		logger.Error("failed to encode NewTransaction", "err", err)
		return
	}
	n.forEachPeer(except, func(p *Peer) {
		if p.markSeen(tx.TxHash) {
			return
		}
		if err := p.send(msg); err != nil {
			logger.Warn("broadcast transaction failed", "addr", p.addr, "err", err)
		}
	})
}

func (n *Node) forEachPeer(except *Peer, fn func(*Peer)) {
	n.mu.Lock()
	peers := make([]*Peer, 0, len(n.peers))
	for _, p := range n.peers {
		if p == except {
			continue
		}
		peers = append(peers, p)
	}
	n.mu.Unlock()
	for _, p := range peers {
		fn(p)
	}
}

// handleMessage dispatches one decoded frame from peer. It is the only
// place the six protocol.Tag values are interpreted on the node side
// (spec §4.4 message handling table).
func (n *Node) handleMessage(from *Peer, msg protocol.Message) {
	switch msg.Type {
	case protocol.NewBlock:
		n.handleNewBlock(from, msg)
	case protocol.NewTransaction:
		n.handleNewTransaction(from, msg)
	case protocol.RequestChain:
		n.handleRequestChain(from)
	case protocol.ResponseChain:
		n.handleResponseChain(msg)
	case protocol.RequestPeers:
		n.handleRequestPeers(from, msg)
	case protocol.ResponsePeers:
		n.handleResponsePeers(msg)
	default:
		logger.Debug("ignoring unsupported message", "type", msg.Type, "from", from.addr)
	}
}

func (n *Node) handleNewBlock(from *Peer, msg protocol.Message) {
	var b types.Block
	if err := msg.Decode(&b); err != nil {
		logger.Warn("undecodable NewBlock payload", "err", err)
		return
	}
	from.markSeen(b.Hash)

	tipBefore := n.chain.Tip()
	if n.chain.AddBlock(&b) {
		n.broadcastBlock(&b, from)
		return
	}
	// Rejected: either we have no chain yet, or the sender may be on a
	// longer fork. Either way, ask them for their full chain.
	if tipBefore == nil || b.Index > tipBefore.Index {
		n.requestChainFrom(from)
	}
}

func (n *Node) handleNewTransaction(from *Peer, msg protocol.Message) {
	var tx types.Transaction
	if err := msg.Decode(&tx); err != nil {
		logger.Warn("undecodable NewTransaction payload", "err", err)
		return
	}
	from.markSeen(tx.TxHash)
	if n.chain.AddTransaction(&tx) {
		n.broadcastTx(&tx, from)
	}
}

func (n *Node) handleRequestChain(from *Peer) {
	blocks := n.chain.Blocks()
	resp, err := protocol.Encode(protocol.ResponseChain, blocks)
	if err != nil {
		logger.Error("failed to encode ResponseChain", "err", err)
		return
	}
	if err := from.send(resp); err != nil {
		logger.Warn("failed to send ResponseChain", "addr", from.addr, "err", err)
	}
}

func (n *Node) handleResponseChain(msg protocol.Message) {
	var blocks []*types.Block
	if err := msg.Decode(&blocks); err != nil {
		logger.Warn("undecodable ResponseChain payload", "err", err)
		return
	}
	if len(blocks) > 0 {
		n.signalGotChain()
	}
	n.chain.ReplaceChain(blocks)
}

func (n *Node) handleRequestPeers(from *Peer, msg protocol.Message) {
	var req protocol.PeersRequest
	if err := msg.Decode(&req); err != nil {
		logger.Warn("undecodable RequestPeers payload", "err", err)
		return
	}
	self := req.ListenAddr
	if self == "" {
		self = from.addr
	}

	n.mu.Lock()
	addrs := make([]string, 0, len(n.known))
	for addr := range n.known {
		if addr != self {
			addrs = append(addrs, addr)
		}
	}
	n.mu.Unlock()

	resp, err := protocol.Encode(protocol.ResponsePeers, addrs)
	if err != nil {
		logger.Error("failed to encode ResponsePeers", "err", err)
		return
	}
	if err := from.send(resp); err != nil {
		logger.Warn("failed to send ResponsePeers", "addr", from.addr, "err", err)
	}
}

func (n *Node) handleResponsePeers(msg protocol.Message) {
	var addrs []string
	if err := msg.Decode(&addrs); err != nil {
		logger.Warn("undecodable ResponsePeers payload", "err", err)
		return
	}
	for _, addr := range addrs {
		if addr == n.cfg.ListenAddr {
			continue
		}
		n.mu.Lock()
		_, known := n.known[addr]
		n.mu.Unlock()
		if !known {
			n.dialAndRegister(addr)
		}
	}
}
