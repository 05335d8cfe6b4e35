package ethash

import (
	"encoding/binary"
	"hash"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
	"golang.org/x/sync/errgroup"
)

// hasher is a repetitive hasher allowing the same hash data structures to be
// reused between hash runs. Not safe for concurrent use.
type hasher func(dest []byte, data []byte)

func makeHasher(h hash.Hash) hasher {
	return func(dest []byte, data []byte) {
		h.Write(data)
		h.Sum(dest[:0])
		h.Reset()
	}
}

// generateCache builds the light cache of an epoch from its seed: a
// sequential keccak512 chain followed by cacheRounds passes of the
// RandMemoHash memory-hard function. dest is filled little-endian.
func generateCache(dest []uint32, seed common.Hash) {
	cache := make([]byte, len(dest)*4)
	size := uint64(len(cache))
	rows := int(size) / hashBytes

	keccak512 := makeHasher(sha3.NewLegacyKeccak512())
	keccak512(cache, seed[:])
	for offset := uint64(hashBytes); offset < size; offset += hashBytes {
		keccak512(cache[offset:], cache[offset-hashBytes:offset])
	}

	temp := make([]byte, hashBytes)
	for i := 0; i < cacheRounds; i++ {
		for j := 0; j < rows; j++ {
			var (
				srcOff = ((j - 1 + rows) % rows) * hashBytes
				dstOff = j * hashBytes
				xorOff = int(binary.LittleEndian.Uint32(cache[dstOff:])%uint32(rows)) * hashBytes
			)
			for k := 0; k < hashBytes; k++ {
				temp[k] = cache[srcOff+k] ^ cache[xorOff+k]
			}
			keccak512(cache[dstOff:], temp)
		}
	}
	for i := range dest {
		dest[i] = binary.LittleEndian.Uint32(cache[i*4:])
	}
}

// fnv is an algorithm inspired by the FNV hash, used as a non-associative
// substitute for XOR. The multiplier is the FNV prime 0x01000193.
func fnv(a, b uint32) uint32 {
	return a*0x01000193 ^ b
}

func fnvHash(mix []uint32, data []uint32) {
	for i := 0; i < len(mix); i++ {
		mix[i] = mix[i]*0x01000193 ^ data[i]
	}
}

// generateDatasetItem combines datasetParents pseudorandomly selected cache
// nodes into the 64 byte dataset item at index.
func generateDatasetItem(cache []uint32, index uint32, keccak512 hasher) []byte {
	rows := uint32(len(cache) / hashWords)

	mix := make([]byte, hashBytes)
	binary.LittleEndian.PutUint32(mix, cache[(index%rows)*hashWords]^index)
	for i := 1; i < hashWords; i++ {
		binary.LittleEndian.PutUint32(mix[i*4:], cache[(index%rows)*hashWords+uint32(i)])
	}
	keccak512(mix, mix)

	intMix := make([]uint32, hashWords)
	for i := 0; i < len(intMix); i++ {
		intMix[i] = binary.LittleEndian.Uint32(mix[i*4:])
	}
	for i := uint32(0); i < datasetParents; i++ {
		parent := fnv(index^i, intMix[i%16]) % rows
		fnvHash(intMix, cache[parent*hashWords:])
	}
	for i, val := range intMix {
		binary.LittleEndian.PutUint32(mix[i*4:], val)
	}
	keccak512(mix, mix)
	return mix
}

// generateDataset fills dest with the full dataset derived from cache, split
// over threads workers. progress receives whole percentages in strictly
// increasing order, one call at a time.
func generateDataset(dest []uint32, cache []uint32, threads int, progress func(percent uint32)) {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	items := uint32(len(dest) / hashWords)
	if uint32(threads) > items {
		threads = int(items)
	}
	if threads == 0 {
		return
	}

	var (
		done     atomic.Uint32
		reported atomic.Uint32
		reportMu sync.Mutex
		g        errgroup.Group
	)
	report := func(p uint32) {
		if p <= reported.Load() {
			return
		}
		reportMu.Lock()
		defer reportMu.Unlock()
		if p > reported.Load() {
			reported.Store(p)
			progress(p)
		}
	}

	batch := (items + uint32(threads) - 1) / uint32(threads)
	for t := 0; t < threads; t++ {
		first := uint32(t) * batch
		limit := min(first+batch, items)
		g.Go(func() error {
			keccak512 := makeHasher(sha3.NewLegacyKeccak512())
			for index := first; index < limit; index++ {
				item := generateDatasetItem(cache, index, keccak512)
				for i := 0; i < hashWords; i++ {
					dest[index*hashWords+uint32(i)] = binary.LittleEndian.Uint32(item[i*4:])
				}
				n := done.Add(1)
				if progress != nil {
					report(uint32(uint64(n) * 100 / uint64(items)))
				}
			}
			return nil
		})
	}
	g.Wait()
}

// hashimoto aggregates data from the full dataset (via lookup) to produce the
// mix digest and final result for a header hash and nonce.
func hashimoto(hash common.Hash, nonce uint64, size uint64, lookup func(index uint32) []uint32) (common.Hash, common.Hash) {
	rows := uint32(size / mixBytes)

	seed := make([]byte, hashBytes)
	copy(seed, hash[:])
	binary.LittleEndian.PutUint64(seed[32:], nonce)
	keccak512 := makeHasher(sha3.NewLegacyKeccak512())
	keccak512(seed, seed[:40])
	seedHead := binary.LittleEndian.Uint32(seed)

	mix := make([]uint32, mixBytes/4)
	for i := 0; i < len(mix); i++ {
		mix[i] = binary.LittleEndian.Uint32(seed[i%16*4:])
	}
	temp := make([]uint32, len(mix))
	for i := 0; i < loopAccesses; i++ {
		parent := fnv(uint32(i)^seedHead, mix[i%len(mix)]) % rows
		for j := uint32(0); j < mixBytes/hashBytes; j++ {
			copy(temp[j*hashWords:], lookup(2*parent+j))
		}
		fnvHash(mix, temp)
	}
	for i := 0; i < len(mix); i += 4 {
		mix[i/4] = fnv(fnv(fnv(mix[i], mix[i+1]), mix[i+2]), mix[i+3])
	}
	mix = mix[:len(mix)/4]

	var digest common.Hash
	for i, val := range mix {
		binary.LittleEndian.PutUint32(digest[i*4:], val)
	}
	var result common.Hash
	keccak256 := makeHasher(sha3.NewLegacyKeccak256())
	keccak256(result[:], append(seed, digest[:]...))
	return digest, result
}

// hashimotoLight recomputes the dataset items it needs from the cache.
func hashimotoLight(size uint64, cache []uint32, hash common.Hash, nonce uint64) (common.Hash, common.Hash) {
	keccak512 := makeHasher(sha3.NewLegacyKeccak512())
	data := make([]uint32, hashWords)
	lookup := func(index uint32) []uint32 {
		raw := generateDatasetItem(cache, index, keccak512)
		for i := range data {
			data[i] = binary.LittleEndian.Uint32(raw[i*4:])
		}
		return data
	}
	return hashimoto(hash, nonce, size, lookup)
}

func hashimotoFull(dataset []uint32, hash common.Hash, nonce uint64) (common.Hash, common.Hash) {
	lookup := func(index uint32) []uint32 {
		offset := index * hashWords
		return dataset[offset : offset+hashWords]
	}
	return hashimoto(hash, nonce, uint64(len(dataset))*4, lookup)
}
