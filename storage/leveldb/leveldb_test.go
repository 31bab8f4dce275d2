package leveldb

import (
	"testing"

	"github.com/defistate/clamm-engine/storage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	s, err := NewMemory()
	require.NoError(t, err)
	defer s.Close()

	a, b := common.HexToHash("0xa"), common.HexToHash("0xb")
	require.NoError(t, s.Write(storage.Batch{
		a: common.HexToHash("0x1"),
		b: common.HexToHash("0x2"),
	}))

	got, err := s.Get(a)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x1"), got)

	require.NoError(t, s.Write(storage.Batch{a: {}}))
	got, err = s.Get(a)
	require.NoError(t, err)
	assert.Equal(t, common.Hash{}, got)

	got, err = s.Get(b)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x2"), got)
}

func TestStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	key := common.HexToHash("0xfeed")

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Write(storage.Batch{key: common.HexToHash("0x42")}))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x42"), got)
}
