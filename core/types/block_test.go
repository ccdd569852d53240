package types

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBlockHashMatchesCalculateHash(t *testing.T) {
	b, err := NewBlock(0, nil, ZeroHash, 1)
	require.NoError(t, err)

	want, err := CalculateHash(b)
	require.NoError(t, err)
	assert.Equal(t, want, b.Hash)
}

func TestMineSatisfiesDifficulty(t *testing.T) {
	b, err := NewBlock(1, nil, ZeroHash, 2)
	require.NoError(t, err)

	found, err := b.Mine(nil)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, strings.HasPrefix(b.Hash, "00"))
	assert.True(t, b.IsValid(2))
}

func TestMineIsPreemptible(t *testing.T) {
	b, err := NewBlock(1, nil, ZeroHash, 64)
	require.NoError(t, err)

	stop := make(chan struct{})
	close(stop)

	found, err := b.Mine(stop)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIsValidRejectsTamperedHash(t *testing.T) {
	b, err := NewBlock(1, nil, ZeroHash, 1)
	require.NoError(t, err)
	_, err = b.Mine(nil)
	require.NoError(t, err)

	b.Hash = "not-a-real-hash"
	assert.False(t, b.IsValid(1))
}

func TestIsValidRejectsInsufficientDifficulty(t *testing.T) {
	b, err := NewBlock(1, nil, ZeroHash, 0)
	require.NoError(t, err)
	_, err = b.Mine(nil)
	require.NoError(t, err)

	assert.False(t, b.IsValid(64))
}

func TestBlockRoundTripsThroughJSON(t *testing.T) {
	tx, err := NewCoinbase("miner", 50)
	require.NoError(t, err)
	b, err := NewBlock(1, []*Transaction{tx}, ZeroHash, 1)
	require.NoError(t, err)
	_, err = b.Mine(nil)
	require.NoError(t, err)

	raw, err := json.Marshal(b)
	require.NoError(t, err)

	var out Block
	require.NoError(t, json.Unmarshal(raw, &out))

	gotHash, err := CalculateHash(&out)
	require.NoError(t, err)
	assert.Equal(t, b.Hash, gotHash)
	assert.Equal(t, b.Hash, out.Hash)
}
