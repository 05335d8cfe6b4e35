package store

import (
	"math"
	"math/big"
	"testing"

	"github.com/mezonai/ethash/db"
	"github.com/mezonai/ethash/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeHeader(number int64, parent *types.Header) *types.Header {
	h := &types.Header{
		UncleHash:  types.EmptyUncleHash,
		Difficulty: big.NewInt(131072),
		Number:     big.NewInt(number),
		GasLimit:   5000,
		Time:       uint64(number * 15),
		Extra:      []byte("store"),
	}
	if parent != nil {
		h.ParentHash = parent.Hash()
	}
	return h
}

func TestHeaderStorePutAndGet(t *testing.T) {
	provider, err := db.NewMemLevelDBProvider()
	require.NoError(t, err)
	s, err := NewGenericHeaderStore(provider)
	require.NoError(t, err)
	defer s.Close()

	head, err := s.Head()
	require.NoError(t, err)
	assert.Nil(t, head)

	genesis := makeHeader(0, nil)
	child := makeHeader(1, genesis)
	require.NoError(t, s.Put(genesis))
	require.NoError(t, s.Put(child))

	got, err := s.HeaderByHash(child.Hash())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, child.Hash(), got.Hash())

	got, err = s.HeaderByNumber(0)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, genesis.Hash(), got.Hash())

	parent, err := s.Parent(child)
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, genesis.Hash(), parent.Hash())

	head, err = s.Head()
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, uint64(1), head.NumberU64())

	missing, err := s.HeaderByNumber(7)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestHeaderStoreHeadSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	provider, err := db.NewLevelDBProvider(dir)
	require.NoError(t, err)
	s, err := NewGenericHeaderStore(provider)
	require.NoError(t, err)

	genesis := makeHeader(0, nil)
	require.NoError(t, s.Put(genesis))
	require.NoError(t, s.Put(makeHeader(1, genesis)))
	require.NoError(t, s.Close())

	provider, err = db.NewLevelDBProvider(dir)
	require.NoError(t, err)
	s, err = NewGenericHeaderStore(provider)
	require.NoError(t, err)
	defer s.Close()

	head, err := s.Head()
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, uint64(1), head.NumberU64())
}

func TestHeaderStoreRejectsMissingNumber(t *testing.T) {
	provider, err := db.NewMemLevelDBProvider()
	require.NoError(t, err)
	s, err := NewGenericHeaderStore(provider)
	require.NoError(t, err)
	defer s.Close()

	assert.ErrorIs(t, s.Put(&types.Header{}), ErrMissingNumber)

	huge := new(big.Int).Add(new(big.Int).SetUint64(math.MaxUint64), big.NewInt(2))
	assert.ErrorIs(t, s.Put(&types.Header{Number: huge}), ErrNumberOutOfRange)
	head, err := s.Head()
	require.NoError(t, err)
	assert.Nil(t, head)
}

func TestNewGenericHeaderStoreNilProvider(t *testing.T) {
	_, err := NewGenericHeaderStore(nil)
	assert.Error(t, err)
}
