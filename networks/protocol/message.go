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

// Package protocol defines the tagged-union wire message exchanged by
// both node<->node and node<->seed connections (spec §4.4, §4.5), and
// the newline-delimited JSON framing both sides commit to (spec §6,
// Open Question resolved in SPEC_FULL.md §6).
package protocol

import (
	"bufio"
	"encoding/json"
	"io"
)

// Tag identifies the payload shape carried by a Message.
type Tag string

const (
	NewBlock       Tag = "NewBlock"
	NewTransaction Tag = "NewTransaction"
	RequestChain   Tag = "RequestChain"
	ResponseChain  Tag = "ResponseChain"
	RequestPeers   Tag = "RequestPeers"
	ResponsePeers  Tag = "ResponsePeers"
)

// Message is the envelope every frame carries: a tag and its raw
// payload, decoded lazily by the handler for that tag.
type Message struct {
	Type    Tag             `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// PeersRequest is the RequestPeers payload: the caller's self-declared
// listen address, used by a seed or peer to register/refresh it (spec
// §4.5: "Register(address) implicit in the request").
type PeersRequest struct {
	ListenAddr string `json:"listen_addr"`
}

// Encode builds a Message tagged t whose payload is the JSON encoding
// of v.
func Encode(t Tag, v interface{}) (Message, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: t, Payload: raw}, nil
}

// Decode unmarshals m's payload into v.
func (m Message) Decode(v interface{}) error {
	return json.Unmarshal(m.Payload, v)
}

// WriteMessage writes msg as a single JSON object followed by a
// newline -- the framing every peer on the network must agree on.
func WriteMessage(w io.Writer, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	raw = append(raw, '\n')
	_, err = w.Write(raw)
	return err
}

// ReadMessage reads one newline-delimited JSON frame from r. It uses a
// bufio.Reader (not bufio.Scanner) so a large ResponseChain payload
// isn't bounded by Scanner's default token-size limit.
func ReadMessage(r *bufio.Reader) (Message, error) {
	line, err := r.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return Message{}, err
	}
	var msg Message
	if jsonErr := json.Unmarshal(line, &msg); jsonErr != nil {
		return Message{}, jsonErr
	}
	return msg, nil
}
