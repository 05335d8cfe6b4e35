package ethash

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Dataset is anything the memory-hard hash can be evaluated against. Light
// caches and full datasets of the same epoch yield identical results.
type Dataset interface {
	Epoch() uint64
	Seed() common.Hash
	Compute(hash common.Hash, nonce uint64) (mix, result common.Hash)
}

var two256 = new(big.Int).Lsh(big.NewInt(1), 256)

// Hash evaluates the proof-of-work function for a seal hash and nonce.
func Hash(ds Dataset, sealHash common.Hash, nonce uint64) (mix, result common.Hash) {
	return ds.Compute(sealHash, nonce)
}

// Boundary returns the largest result satisfying difficulty, 2^256/difficulty.
// Difficulties of one or less map to the maximum value.
func Boundary(difficulty *big.Int) *uint256.Int {
	if difficulty.Cmp(common.Big1) <= 0 {
		return new(uint256.Int).SetAllOne()
	}
	target, _ := uint256.FromBig(new(big.Int).Div(two256, difficulty))
	return target
}

// QuickCheck reports whether result, read as a big-endian integer, is within
// the target of difficulty. A missing or non-positive difficulty never passes.
func QuickCheck(result common.Hash, difficulty *big.Int) bool {
	if difficulty == nil || difficulty.Sign() <= 0 {
		return false
	}
	return !new(uint256.Int).SetBytes32(result[:]).Gt(Boundary(difficulty))
}
