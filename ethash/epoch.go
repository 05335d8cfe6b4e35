package ethash

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mezonai/ethash/config"
	"golang.org/x/crypto/sha3"
)

const (
	EpochLength = 30000 // Blocks per epoch

	datasetInitBytes   = 1 << 30 // Bytes in dataset at genesis
	datasetGrowthBytes = 1 << 23 // Dataset growth per epoch
	cacheInitBytes     = 1 << 24 // Bytes in cache at genesis
	cacheGrowthBytes   = 1 << 17 // Cache growth per epoch
	mixBytes           = 128     // Width of mix
	hashBytes          = 64      // Hash length in bytes
	hashWords          = 16      // Number of 32 bit ints in a hash
	datasetParents     = 256     // Number of parents of each dataset element
	cacheRounds        = 3       // Number of rounds in cache production
	loopAccesses       = 64      // Number of accesses in hashimoto loop

	// maxEpoch bounds the seed hash inverse lookup.
	maxEpoch = 32768

	testCacheSize   = 1024
	testDatasetSize = 32 * 1024
)

// Epoch describes the datasets shared by a span of EpochLength blocks.
type Epoch struct {
	Number      uint64
	Seed        common.Hash
	CacheSize   uint64
	DatasetSize uint64
}

// EpochForBlock derives the epoch context of a block number.
func EpochForBlock(block uint64) Epoch {
	return epochFor(config.PowModeNormal, block)
}

func epochFor(mode config.PowMode, block uint64) Epoch {
	number := block / EpochLength
	return Epoch{
		Number:      number,
		Seed:        SeedHash(number),
		CacheSize:   cacheSizeFor(mode, number),
		DatasetSize: datasetSizeFor(mode, number),
	}
}

var seedMemo struct {
	sync.Mutex
	epoch uint64
	seed  common.Hash
}

// SeedHash returns the seed of an epoch: 32 zero bytes for epoch 0, then one
// keccak256 per epoch. Requests at or above the furthest computed epoch
// continue the chain from there. The chain is walked without holding the
// memo lock.
func SeedHash(epoch uint64) common.Hash {
	seedMemo.Lock()
	from, seed := seedMemo.epoch, seedMemo.seed
	seedMemo.Unlock()
	if epoch < from {
		from, seed = 0, common.Hash{}
	}

	keccak256 := makeHasher(sha3.NewLegacyKeccak256())
	for ; from < epoch; from++ {
		keccak256(seed[:], seed[:])
	}

	seedMemo.Lock()
	if epoch > seedMemo.epoch {
		seedMemo.epoch, seedMemo.seed = epoch, seed
	}
	seedMemo.Unlock()
	return seed
}

// checkBlockEpoch rejects blocks whose epoch lies beyond the supported seed
// range, before any seed hash is derived for them.
func checkBlockEpoch(block uint64) error {
	if epoch := block / EpochLength; epoch >= maxEpoch {
		return fmt.Errorf("%w: epoch %d of block %d beyond %d", ErrUnknownSeed, epoch, block, maxEpoch)
	}
	return nil
}

var seedIndex struct {
	sync.Mutex
	epochs map[common.Hash]uint64
	next   uint64
	seed   common.Hash
}

// EpochForSeed resolves the epoch a seed hash belongs to. Seeds of epochs
// beyond maxEpoch are reported unknown.
func EpochForSeed(seed common.Hash) (uint64, bool) {
	seedIndex.Lock()
	defer seedIndex.Unlock()

	if seedIndex.epochs == nil {
		seedIndex.epochs = make(map[common.Hash]uint64)
	}
	if epoch, ok := seedIndex.epochs[seed]; ok {
		return epoch, true
	}
	keccak256 := makeHasher(sha3.NewLegacyKeccak256())
	for seedIndex.next < maxEpoch {
		current, epoch := seedIndex.seed, seedIndex.next
		seedIndex.epochs[current] = epoch
		keccak256(seedIndex.seed[:], seedIndex.seed[:])
		seedIndex.next++
		if current == seed {
			return epoch, true
		}
	}
	return 0, false
}

// CacheSize returns the light cache size in bytes for an epoch: the growth
// schedule rounded down until the number of 64 byte items is prime.
func CacheSize(epoch uint64) uint64 {
	size := cacheInitBytes + cacheGrowthBytes*epoch - hashBytes
	for !new(big.Int).SetUint64(size / hashBytes).ProbablyPrime(1) {
		size -= 2 * hashBytes
	}
	return size
}

// DatasetSize returns the full dataset size in bytes for an epoch, rounded
// down until the number of 128 byte items is prime.
func DatasetSize(epoch uint64) uint64 {
	size := datasetInitBytes + datasetGrowthBytes*epoch - mixBytes
	for !new(big.Int).SetUint64(size / mixBytes).ProbablyPrime(1) {
		size -= 2 * mixBytes
	}
	return size
}

func cacheSizeFor(mode config.PowMode, epoch uint64) uint64 {
	if mode == config.PowModeTest {
		return testCacheSize
	}
	return CacheSize(epoch)
}

func datasetSizeFor(mode config.PowMode, epoch uint64) uint64 {
	if mode == config.PowModeTest {
		return testDatasetSize
	}
	return DatasetSize(epoch)
}
