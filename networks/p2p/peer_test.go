package p2p

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doocho/simple-pow-chain/networks/protocol"
)

func TestMarkSeenSuppressesRepeats(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	p := newPeer("peer:0", client)
	assert.False(t, p.markSeen("hash-1"), "first sighting must not be suppressed")
	assert.True(t, p.markSeen("hash-1"), "repeat sighting must be suppressed")
	assert.False(t, p.markSeen("hash-2"), "a distinct hash is tracked independently")
}

func TestReadLoopDispatchesThenReturnsOnClose(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	p := newPeer("peer:0", server)

	var mu sync.Mutex
	var received []protocol.Tag
	closed := make(chan struct{})

	go p.readLoop(
		func(_ *Peer, msg protocol.Message) {
			mu.Lock()
			received = append(received, msg.Type)
			mu.Unlock()
		},
		func(*Peer) { close(closed) },
	)

	msg, err := protocol.Encode(protocol.RequestChain, struct{}{})
	require.NoError(t, err)
	require.NoError(t, protocol.WriteMessage(client, msg))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1 && received[0] == protocol.RequestChain
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, client.Close())
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("readLoop did not return after the peer connection closed")
	}
}
