package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doocho/simple-pow-chain/core/types"
	"github.com/doocho/simple-pow-chain/crypto"
)

const minerAddr = "miner-address"

func newGenesisChain(t *testing.T, difficulty int) *Chain {
	t.Helper()
	c := New(difficulty)
	_, err := c.CreateGenesis()
	require.NoError(t, err)
	return c
}

// Scenario 1: solo mining.
func TestSoloMiningThreeBlocks(t *testing.T) {
	c := newGenesisChain(t, 2)

	for i := 0; i < 3; i++ {
		_, err := c.MinePending(minerAddr)
		require.NoError(t, err)
	}

	assert.Equal(t, 4, c.Len())
	assert.Equal(t, int64(150), c.GetBalance(minerAddr))

	for _, b := range c.Blocks()[1:] {
		assert.True(t, b.IsValid(2))
	}
}

// Scenario 2: transfer.
func TestTransferAppliesAfterMining(t *testing.T) {
	c := newGenesisChain(t, 1)

	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	minerKeyAddr := crypto.Address(priv.PubKey())

	_, err = c.MinePending(minerKeyAddr)
	require.NoError(t, err)

	tx, err := types.NewTransfer(priv, "X", 50)
	require.NoError(t, err)
	assert.True(t, c.AddTransaction(tx))

	block, err := c.MinePending(minerKeyAddr)
	require.NoError(t, err)

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, int64(50), c.GetBalance("X"))
	assert.Equal(t, int64(50), c.GetBalance(minerKeyAddr))
	require.Len(t, block.Transactions, 2)
	assert.Equal(t, types.Coinbase, block.Transactions[0].Kind)
	assert.Equal(t, tx.TxHash, block.Transactions[1].TxHash)
}

// Scenario 3: double-spend rejection, at the mine_pending level. Of
// two pooled transfers spending the same 50 units, exactly one is
// admitted into the mined block; the other stays pending.
func TestMinePendingAdmitsOnlyOneOfConflictingTransfers(t *testing.T) {
	c := newGenesisChain(t, 1)

	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.Address(priv.PubKey())

	_, err = c.MinePending(addr) // addr now has 50
	require.NoError(t, err)

	tx1, err := types.NewTransfer(priv, "A", 50)
	require.NoError(t, err)
	tx2, err := types.NewTransfer(priv, "B", 50)
	require.NoError(t, err)
	require.True(t, c.AddTransaction(tx1))
	require.True(t, c.AddTransaction(tx2))
	require.Equal(t, 2, c.PendingCount())

	// Mine to a different address so the new coinbase doesn't fund the
	// second transfer.
	block, err := c.MinePending(minerAddr)
	require.NoError(t, err)

	assert.Len(t, block.Transactions, 2, "coinbase plus exactly one transfer")
	assert.Equal(t, 1, c.PendingCount(), "the losing transfer stays pooled")
	assert.GreaterOrEqual(t, c.GetBalance(addr), int64(0))
}

// Scenario 3 continued: a hand-built block that tries to apply two
// transfers spending the same 50 units must be rejected by AddBlock,
// even though both transfers are individually well-signed.
func TestDoubleSpendBlockRejected(t *testing.T) {
	c := newGenesisChain(t, 1)

	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.Address(priv.PubKey())

	_, err = c.MinePending(addr) // addr now has 50
	require.NoError(t, err)

	tx1, err := types.NewTransfer(priv, "A", 50)
	require.NoError(t, err)
	tx2, err := types.NewTransfer(priv, "B", 50)
	require.NoError(t, err)

	tip := c.Tip()
	coinbase, err := types.NewCoinbase(minerAddr, 50) // not addr: it must not fund either spend
	require.NoError(t, err)
	block, err := types.NewBlock(tip.Index+1, []*types.Transaction{coinbase, tx1, tx2}, tip.Hash, 1)
	require.NoError(t, err)
	_, err = block.Mine(nil)
	require.NoError(t, err)

	before := c.Len()
	assert.False(t, c.AddBlock(block))
	assert.Equal(t, before, c.Len())
	assert.GreaterOrEqual(t, c.GetBalance(addr), int64(0))
}

// A block spending only one of the two conflicting transfers is valid.
func TestSingleSpendOfTwoConflictingIsAccepted(t *testing.T) {
	c := newGenesisChain(t, 1)

	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.Address(priv.PubKey())

	_, err = c.MinePending(addr)
	require.NoError(t, err)

	tx1, err := types.NewTransfer(priv, "A", 50)
	require.NoError(t, err)

	tip := c.Tip()
	coinbase, err := types.NewCoinbase(addr, 50)
	require.NoError(t, err)
	block, err := types.NewBlock(tip.Index+1, []*types.Transaction{coinbase, tx1}, tip.Hash, 1)
	require.NoError(t, err)
	_, err = block.Mine(nil)
	require.NoError(t, err)

	assert.True(t, c.AddBlock(block))
	assert.Equal(t, int64(50), c.GetBalance("A"))
}

// Scenario 6 (rejection path exercised directly against AddBlock):
// a block whose hash doesn't meet difficulty is rejected and the
// sender/peer is not disconnected at this layer (no such concept here;
// we just assert the chain is unchanged).
func TestAddBlockRejectsInsufficientDifficulty(t *testing.T) {
	c := newGenesisChain(t, 4)
	tip := c.Tip()

	bad, err := types.NewBlock(tip.Index+1, nil, tip.Hash, 4)
	require.NoError(t, err)
	// Force nonce 0 without mining -- almost certainly fails a
	// difficulty-4 target.
	bad.Hash, err = types.CalculateHash(bad)
	require.NoError(t, err)

	before := c.Len()
	accepted := c.AddBlock(bad)
	assert.False(t, accepted)
	assert.Equal(t, before, c.Len())
}

func TestAddBlockIdempotentOnDuplicate(t *testing.T) {
	c := newGenesisChain(t, 1)
	block, err := c.MinePending(minerAddr)
	require.NoError(t, err)

	before := c.Len()
	// Re-appending the same already-mined block must fail the
	// index/parent linkage check against the new tip.
	assert.False(t, c.AddBlock(block))
	assert.Equal(t, before, c.Len())
}

func TestReplaceChainRequiresStrictlyLonger(t *testing.T) {
	c := newGenesisChain(t, 1)
	_, err := c.MinePending(minerAddr)
	require.NoError(t, err)

	same := c.Blocks()
	assert.False(t, c.ReplaceChain(same))
}

func TestReplaceChainAdoptsLongerValidChain(t *testing.T) {
	c := newGenesisChain(t, 1)

	other := New(1)
	_, err := other.CreateGenesis()
	require.NoError(t, err)
	_, err = other.MinePending(minerAddr)
	require.NoError(t, err)
	_, err = other.MinePending(minerAddr)
	require.NoError(t, err)

	assert.True(t, c.ReplaceChain(other.Blocks()))
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, other.Tip().Hash, c.Tip().Hash)
}

func TestGetBalanceNeverNegativeForWellFormedChain(t *testing.T) {
	c := newGenesisChain(t, 1)
	for i := 0; i < 5; i++ {
		_, err := c.MinePending(minerAddr)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, c.GetBalance(minerAddr), int64(0))
}

func TestIsValidChainRejectsBrokenLinkage(t *testing.T) {
	c := newGenesisChain(t, 1)
	_, err := c.MinePending(minerAddr)
	require.NoError(t, err)

	blocks := c.Blocks()
	blocks[1].PreviousHash = "deadbeef"
	assert.False(t, c.IsValidChain(blocks))
}
