package ethash

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"weak"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mezonai/ethash/config"
	"github.com/mezonai/ethash/events"
	"github.com/mezonai/ethash/exception"
	"github.com/mezonai/ethash/logx"
	"github.com/mezonai/ethash/monitoring"
)

// FullDataset is the mining dataset of one epoch. Immutable once built.
type FullDataset struct {
	epoch   uint64
	seed    common.Hash
	dataset []uint32
}

func (d *FullDataset) Epoch() uint64     { return d.epoch }
func (d *FullDataset) Seed() common.Hash { return d.seed }

// Size returns the dataset size in bytes.
func (d *FullDataset) Size() uint64 { return uint64(len(d.dataset)) * 4 }

// Compute runs hashimoto against the precomputed dataset.
func (d *FullDataset) Compute(hash common.Hash, nonce uint64) (mix, result common.Hash) {
	return hashimotoFull(d.dataset, hash, nonce)
}

// generation is the handle of the one running dataset build. done is closed
// after result is set.
type generation struct {
	epoch   uint64
	seed    common.Hash
	start   time.Time
	percent atomic.Uint32
	done    chan struct{}
	result  *FullDataset
}

// FullStore builds full datasets in the background, one at a time, and keeps
// completed ones only while something references them. The most recently
// used dataset is always kept.
type FullStore struct {
	mode         config.PowMode
	threads      int
	pollInterval time.Duration
	lights       *LightStore
	bus          *events.EventBus

	// beforePublish, if set, runs once a dataset is computed and before it
	// becomes visible. Tests use it to hold a generation in flight.
	beforePublish func(epoch uint64)

	mu         sync.Mutex
	datasets   map[common.Hash]weak.Pointer[FullDataset]
	lastUsed   *FullDataset
	generating *generation
}

func NewFullStore(cfg *config.EthashConfig, lights *LightStore, bus *events.EventBus) *FullStore {
	pollInterval := time.Duration(cfg.ProgressIntervalMs) * time.Millisecond
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	return &FullStore{
		mode:         cfg.PowMode,
		threads:      cfg.DatasetThreads,
		pollInterval: pollInterval,
		lights:       lights,
		bus:          bus,
		datasets:     make(map[common.Hash]weak.Pointer[FullDataset]),
	}
}

// lookupLocked returns a live dataset for seed and marks it most recently
// used. Entries whose dataset was collected are dropped.
func (s *FullStore) lookupLocked(seed common.Hash) *FullDataset {
	ptr, ok := s.datasets[seed]
	if !ok {
		return nil
	}
	ds := ptr.Value()
	if ds == nil {
		delete(s.datasets, seed)
		return nil
	}
	s.lastUsed = ds
	return ds
}

// Lookup returns the dataset for seed if one is resident, without blocking on
// or starting a generation.
func (s *FullStore) Lookup(seed common.Hash) *FullDataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookupLocked(seed)
}

// RequestGeneration reports whether the dataset for seed is ready. If it is
// not, nothing is generating and create is set, a background generation is
// started. It never blocks on generation.
func (s *FullStore) RequestGeneration(seed common.Hash, create bool) (bool, error) {
	epoch, ok := EpochForSeed(seed)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownSeed, seed.Hex())
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lookupLocked(seed) != nil {
		return true, nil
	}
	if s.generating == nil && create {
		s.startLocked(epoch, seed)
	}
	return false, nil
}

// Progress returns the epoch and completion percentage of the running
// generation. generating is false when the store is idle.
func (s *FullStore) Progress() (epoch uint64, generating bool, percent uint32) {
	s.mu.Lock()
	gen := s.generating
	s.mu.Unlock()
	if gen == nil {
		return 0, false, 0
	}
	return gen.epoch, true, gen.percent.Load()
}

// Full blocks until the dataset for seed is available. A generation running
// for another seed is waited out first, it is never interrupted. Without
// create, a nil dataset is returned when nothing exists or is being built for
// seed. onProgress, if set, is polled during the build and always receives
// 100 before a dataset is returned. ctx bounds the wait only: an abandoned
// generation still runs to completion.
func (s *FullStore) Full(ctx context.Context, seed common.Hash, create bool, onProgress func(percent uint32)) (*FullDataset, error) {
	epoch, ok := EpochForSeed(seed)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSeed, seed.Hex())
	}
	for {
		s.mu.Lock()
		if ds := s.lookupLocked(seed); ds != nil {
			s.mu.Unlock()
			report(onProgress, 100)
			return ds, nil
		}
		gen := s.generating
		switch {
		case gen == nil && !create:
			s.mu.Unlock()
			return nil, nil
		case gen == nil:
			gen = s.startLocked(epoch, seed)
		case gen.seed != seed && !create:
			s.mu.Unlock()
			return nil, nil
		}
		s.mu.Unlock()

		if gen.seed != seed {
			logx.Info("DAG", fmt.Sprintf("Waiting for running generation | running_epoch=%d | wanted_epoch=%d", gen.epoch, epoch))
			if err := s.wait(ctx, gen, nil); err != nil {
				return nil, err
			}
			continue
		}
		if err := s.wait(ctx, gen, onProgress); err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.lastUsed = gen.result
		s.mu.Unlock()
		report(onProgress, 100)
		return gen.result, nil
	}
}

func (s *FullStore) wait(ctx context.Context, gen *generation, onProgress func(uint32)) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-gen.done:
			return nil
		case <-ticker.C:
			report(onProgress, gen.percent.Load())
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func report(onProgress func(uint32), percent uint32) {
	if onProgress != nil {
		onProgress(percent)
	}
}

// startLocked registers a new generation and launches the build. The caller
// holds s.mu and has checked that nothing is generating, which makes
// s.generating the one slot for builds.
func (s *FullStore) startLocked(epoch uint64, seed common.Hash) *generation {
	gen := &generation{
		epoch: epoch,
		seed:  seed,
		start: time.Now(),
		done:  make(chan struct{}),
	}
	s.generating = gen
	monitoring.SetGeneratingEpoch(int64(epoch))
	monitoring.SetDatasetProgress(0)
	s.bus.Publish(events.NewDatasetGenerationStarted(epoch, seed))
	logx.Info("DAG", fmt.Sprintf("Starting dataset generation | epoch=%d | seed=%s", epoch, seed.Hex()))

	exception.SafeGoWithPanic("ethash-dataset-generation", func() {
		s.generate(gen)
	})
	return gen
}

func (s *FullStore) generate(gen *generation) {
	light, err := s.lights.Get(gen.seed)
	if err != nil {
		// The seed was resolved before the generation started.
		panic(err)
	}
	dataset := make([]uint32, datasetSizeFor(s.mode, gen.epoch)/4)
	generateDataset(dataset, light.cache, s.threads, func(percent uint32) {
		gen.percent.Store(percent)
		monitoring.SetDatasetProgress(percent)
	})
	ds := &FullDataset{epoch: gen.epoch, seed: gen.seed, dataset: dataset}
	if s.beforePublish != nil {
		s.beforePublish(gen.epoch)
	}

	s.mu.Lock()
	s.datasets[gen.seed] = weak.Make(ds)
	s.lastUsed = ds
	runtime.AddCleanup(ds, s.onRelease, releaseInfo{epoch: gen.epoch, seed: gen.seed})
	resident := len(s.datasets)
	gen.result = ds
	gen.percent.Store(100)
	s.generating = nil
	s.mu.Unlock()
	close(gen.done)

	elapsed := time.Since(gen.start)
	monitoring.RecordDatasetBuild(elapsed)
	monitoring.SetDatasetProgress(100)
	monitoring.SetGeneratingEpoch(-1)
	monitoring.SetResidentDatasets(resident)
	logx.Info("DAG", fmt.Sprintf("Dataset ready | epoch=%d | size=%d | elapsed=%s", gen.epoch, ds.Size(), elapsed))
	s.bus.Publish(events.NewDatasetReady(gen.epoch, gen.seed, elapsed))
}

type releaseInfo struct {
	epoch uint64
	seed  common.Hash
}

// onRelease runs after the collector reclaimed a dataset. A newer dataset for
// the same seed keeps its entry.
func (s *FullStore) onRelease(r releaseInfo) {
	s.mu.Lock()
	if ptr, ok := s.datasets[r.seed]; ok && ptr.Value() == nil {
		delete(s.datasets, r.seed)
	}
	resident := len(s.datasets)
	s.mu.Unlock()

	monitoring.SetResidentDatasets(resident)
	logx.Debug("DAG", fmt.Sprintf("Dataset released | epoch=%d", r.epoch))
	s.bus.Publish(events.NewDatasetReleased(r.epoch, r.seed))
}

// Resident returns the number of datasets that are still reachable.
func (s *FullStore) Resident() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for seed, ptr := range s.datasets {
		if ptr.Value() == nil {
			delete(s.datasets, seed)
			continue
		}
		n++
	}
	return n
}
