package ethash

import (
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mezonai/ethash/config"
	"github.com/mezonai/ethash/types"
)

var (
	mainnetOnce   sync.Once
	mainnetEngine *Ethash
)

// sharedMainnetEngine returns one real-size engine per test binary, so the
// 16 MiB epoch 0 cache is generated once.
func sharedMainnetEngine(t *testing.T) *Ethash {
	t.Helper()
	if testing.Short() {
		t.Skip("real-size caches are slow")
	}
	mainnetOnce.Do(func() {
		mainnetEngine = New(config.DefaultEthashConfig(), config.MainnetChainParams(), nil)
	})
	return mainnetEngine
}

// testChainParams activates Byzantium from genesis and lowers the minimum
// difficulty so test-mode seals are found in a few hundred tries.
func testChainParams() *config.ChainParams {
	params := config.MainnetChainParams()
	zero := uint64(0)
	params.HomesteadBlock = &zero
	params.ByzantiumBlock = &zero
	params.ConstantinopleBlock = nil
	params.MuirGlacierBlock = nil
	params.LondonBlock = nil
	params.ArrowGlacierBlock = nil
	params.GrayGlacierBlock = nil
	params.MinimumDifficulty = 16
	return params
}

func newTestEngine() *Ethash {
	return New(config.TestEthashConfig(), testChainParams(), nil)
}

func testParentHeader() *types.Header {
	return &types.Header{
		ParentHash: common.HexToHash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		UncleHash:  types.EmptyUncleHash,
		Difficulty: big.NewInt(100),
		Number:     big.NewInt(1),
		GasLimit:   5000,
		Time:       1000,
	}
}

func testChildHeader(params *config.ChainParams, parent *types.Header) *types.Header {
	child := &types.Header{
		ParentHash: parent.Hash(),
		UncleHash:  types.EmptyUncleHash,
		Number:     new(big.Int).Add(parent.Number, big.NewInt(1)),
		GasLimit:   parent.GasLimit,
		Time:       parent.Time + 10,
		Extra:      []byte("ethash test"),
	}
	child.Difficulty = CalcDifficulty(params, child, parent)
	return child
}
