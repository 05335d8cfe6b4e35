package ethash

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mezonai/ethash/config"
	"github.com/mezonai/ethash/events"
	"github.com/mezonai/ethash/logx"
	"github.com/mezonai/ethash/monitoring"
)

// LightCache is the verification cache of one epoch. Immutable once built
// and safe for any number of concurrent readers.
type LightCache struct {
	epoch       uint64
	seed        common.Hash
	cache       []uint32
	datasetSize uint64
}

func (c *LightCache) Epoch() uint64     { return c.epoch }
func (c *LightCache) Seed() common.Hash { return c.seed }

// Size returns the cache size in bytes.
func (c *LightCache) Size() uint64 { return uint64(len(c.cache)) * 4 }

// DatasetSize returns the size of the full dataset this cache expands to.
func (c *LightCache) DatasetSize() uint64 { return c.datasetSize }

// Item returns a copy of the i-th 64 byte cache node.
func (c *LightCache) Item(i int) []byte {
	item := make([]byte, hashBytes)
	for j := 0; j < hashWords; j++ {
		binary.LittleEndian.PutUint32(item[j*4:], c.cache[i*hashWords+j])
	}
	return item
}

// Compute runs hashimoto, deriving the dataset items it touches on the fly.
func (c *LightCache) Compute(hash common.Hash, nonce uint64) (mix, result common.Hash) {
	return hashimotoLight(c.datasetSize, c.cache, hash, nonce)
}

func newLightCache(mode config.PowMode, epoch uint64, seed common.Hash) *LightCache {
	cache := make([]uint32, cacheSizeFor(mode, epoch)/4)
	generateCache(cache, seed)
	return &LightCache{
		epoch:       epoch,
		seed:        seed,
		cache:       cache,
		datasetSize: datasetSizeFor(mode, epoch),
	}
}

type lightEntry struct {
	done  chan struct{}
	cache *LightCache
}

// LightStore holds one light cache per seed hash for the lifetime of the
// store. Nothing is ever evicted.
type LightStore struct {
	mode config.PowMode
	bus  *events.EventBus

	mu     sync.RWMutex
	caches map[common.Hash]*lightEntry
}

func NewLightStore(mode config.PowMode, bus *events.EventBus) *LightStore {
	return &LightStore{
		mode:   mode,
		bus:    bus,
		caches: make(map[common.Hash]*lightEntry),
	}
}

// Get returns the light cache for seed, building it on first use. Concurrent
// callers for the same seed wait for the single build and share its result;
// the map lock is not held while building, so other seeds are not blocked.
func (s *LightStore) Get(seed common.Hash) (*LightCache, error) {
	s.mu.RLock()
	entry, ok := s.caches[seed]
	s.mu.RUnlock()
	if ok {
		<-entry.done
		return entry.cache, nil
	}

	epoch, known := EpochForSeed(seed)
	if !known {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSeed, seed.Hex())
	}

	s.mu.Lock()
	if entry, ok = s.caches[seed]; ok {
		s.mu.Unlock()
		<-entry.done
		return entry.cache, nil
	}
	entry = &lightEntry{done: make(chan struct{})}
	s.caches[seed] = entry
	count := len(s.caches)
	s.mu.Unlock()

	start := time.Now()
	logx.Info("LIGHT", fmt.Sprintf("Generating light cache | epoch=%d | seed=%s", epoch, seed.Hex()))
	entry.cache = newLightCache(s.mode, epoch, seed)
	close(entry.done)

	elapsed := time.Since(start)
	monitoring.RecordLightCacheBuild(elapsed)
	monitoring.SetLightCacheCount(count)
	logx.Info("LIGHT", fmt.Sprintf("Light cache ready | epoch=%d | size=%d | elapsed=%s", epoch, entry.cache.Size(), elapsed))
	s.bus.Publish(events.NewLightCacheReady(epoch, seed, elapsed))
	return entry.cache, nil
}

// Len returns the number of caches built or being built.
func (s *LightStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.caches)
}
