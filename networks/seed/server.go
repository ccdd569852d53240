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

package seed

import (
	"bufio"
	"net"
	"sync"

	"github.com/doocho/simple-pow-chain/networks/protocol"
)

// Server accepts connections and answers RequestPeers against a
// Registry. It never holds a chain and never proxies blocks or
// transactions (spec §4.5: "keeps no chain state and never proxies
// blocks").
type Server struct {
	registry *Registry
	listener net.Listener

	wg   sync.WaitGroup
	quit chan struct{}
}

// NewServer creates a Server backed by a fresh Registry.
func NewServer() *Server {
	return &Server{
		registry: NewRegistry(),
		quit:     make(chan struct{}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (s *Server) Registry() *Registry { return s.registry }

// Run binds listenAddr and serves connections until Stop is called. A
// bind failure is returned; later accept errors are logged and the loop
// keeps accepting.
func (s *Server) Run(listenAddr string) error {
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}
	s.listener = ln
	logger.Info("seed listening", "addr", listenAddr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return nil
			default:
				logger.Warn("accept failed", "err", err)
				continue
			}
		}
		s.wg.Add(1)
		go s.serve(conn)
	}
}

// Stop closes the listener, then waits until every in-flight connection
// has ended; it does not close those connections itself.
func (s *Server) Stop() {
	close(s.quit)
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
}

func (s *Server) serve(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	reader := bufio.NewReader(conn)
	for {
		msg, err := protocol.ReadMessage(reader)
		if err != nil {
			return // transport/protocol error: drop the connection (spec §7)
		}
		s.handle(conn, msg)
	}
}

func (s *Server) handle(conn net.Conn, msg protocol.Message) {
	switch msg.Type {
	case protocol.RequestPeers:
		var req protocol.PeersRequest
		if err := msg.Decode(&req); err != nil {
			logger.Warn("undecodable RequestPeers payload", "err", err)
			return
		}
		self := req.ListenAddr
		if self == "" {
			self = conn.RemoteAddr().String()
		}
		s.registry.Register(self)

		peers := s.registry.PeersExcept(self)
		resp, err := protocol.Encode(protocol.ResponsePeers, peers)
		if err != nil {
			logger.Error("failed to encode ResponsePeers", "err", err)
			return
		}
		if err := protocol.WriteMessage(conn, resp); err != nil {
			logger.Warn("failed to write ResponsePeers", "err", err)
		}
	default:
		logger.Debug("seed ignoring unsupported message", "type", msg.Type)
	}
}
