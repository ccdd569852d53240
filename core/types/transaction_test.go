package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doocho/simple-pow-chain/crypto"
)

func TestNewCoinbaseAlwaysVerifies(t *testing.T) {
	tx, err := NewCoinbase("miner-address", 50)
	require.NoError(t, err)
	assert.True(t, tx.Verify())
	assert.Equal(t, uint64(50), tx.Amount)
}

func TestNewTransferVerifies(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	tx, err := NewTransfer(priv, "recipient-address", 10)
	require.NoError(t, err)
	assert.True(t, tx.Verify())
	assert.Equal(t, crypto.Address(priv.PubKey()), tx.From)
}

func TestNewTransferRejectsZeroAmount(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	_, err = NewTransfer(priv, "recipient-address", 0)
	assert.Error(t, err)
}

func TestVerifyRejectsTamperedAmount(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	tx, err := NewTransfer(priv, "recipient-address", 10)
	require.NoError(t, err)

	tx.Amount = 1000
	assert.False(t, tx.Verify())
}

func TestVerifyRejectsMismatchedPublicKey(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	other, err := crypto.GenerateKey()
	require.NoError(t, err)

	tx, err := NewTransfer(priv, "recipient-address", 10)
	require.NoError(t, err)

	tx.PublicKey = other.PubKey().SerializeCompressed()
	assert.False(t, tx.Verify())
}

func TestHashIsDeterministic(t *testing.T) {
	tx, err := NewCoinbase("miner-address", 50)
	require.NoError(t, err)

	h1, err := tx.Hash()
	require.NoError(t, err)
	h2, err := tx.Hash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Equal(t, tx.TxHash, h1)
}
