package work

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doocho/simple-pow-chain/core/chain"
)

func TestWorkerMinesInBackground(t *testing.T) {
	c := chain.New(1)
	_, err := c.CreateGenesis()
	require.NoError(t, err)

	w := NewWorker(c, "miner-address")
	w.Start()
	defer w.Stop()

	select {
	case block := <-w.Mined():
		assert.Equal(t, int64(1), block.Index)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not mine a block in time")
	}

	assert.GreaterOrEqual(t, c.Len(), 2)
}

func TestWorkerStopIsIdempotent(t *testing.T) {
	c := chain.New(1)
	_, err := c.CreateGenesis()
	require.NoError(t, err)

	w := NewWorker(c, "miner-address")
	w.Start()
	w.Stop()
	assert.NotPanics(t, func() { w.Stop() })
}
