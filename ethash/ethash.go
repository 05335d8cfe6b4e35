// Package ethash implements the ethash proof-of-work: per-epoch verification
// caches and mining datasets, the memory-hard hash over them, difficulty
// adjustment and header verification.
package ethash

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mezonai/ethash/config"
	"github.com/mezonai/ethash/events"
	"github.com/mezonai/ethash/logx"
	"github.com/mezonai/ethash/types"
)

// Ethash owns the light cache and full dataset stores of one node. Verifiers
// and miners share a single instance.
type Ethash struct {
	config *config.EthashConfig
	params *config.ChainParams

	lights *LightStore
	fulls  *FullStore
}

// New creates an engine. A nil cfg or params selects the defaults and bus may
// be nil when nobody listens for dataset lifecycle events.
func New(cfg *config.EthashConfig, params *config.ChainParams, bus *events.EventBus) *Ethash {
	if cfg == nil {
		cfg = config.DefaultEthashConfig()
	}
	if params == nil {
		params = config.MainnetChainParams()
	}
	lights := NewLightStore(cfg.PowMode, bus)
	e := &Ethash{
		config: cfg,
		params: params,
		lights: lights,
		fulls:  NewFullStore(cfg, lights, bus),
	}
	logx.Info("ETHASH", fmt.Sprintf("Engine created | pow_mode=%s | dataset_threads=%d | seal_threads=%d",
		cfg.PowMode, cfg.DatasetThreads, cfg.SealThreads))
	return e
}

func (e *Ethash) Config() *config.EthashConfig { return e.config }
func (e *Ethash) Params() *config.ChainParams  { return e.params }

// Epoch returns the epoch context of block, sized for the engine's mode.
func (e *Ethash) Epoch(block uint64) Epoch {
	return epochFor(e.config.PowMode, block)
}

// Light returns the light cache for seed, building it if needed.
func (e *Ethash) Light(seed common.Hash) (*LightCache, error) {
	return e.lights.Get(seed)
}

// LightForBlock returns the light cache of the epoch containing block.
func (e *Ethash) LightForBlock(block uint64) (*LightCache, error) {
	if err := checkBlockEpoch(block); err != nil {
		return nil, err
	}
	return e.lights.Get(SeedHash(block / EpochLength))
}

// RequestGeneration reports whether the full dataset for seed is ready and
// starts building it in the background if allowed and possible.
func (e *Ethash) RequestGeneration(seed common.Hash, create bool) (bool, error) {
	return e.fulls.RequestGeneration(seed, create)
}

// GenerationProgress reports the running dataset generation, if any.
func (e *Ethash) GenerationProgress() (epoch uint64, generating bool, percent uint32) {
	return e.fulls.Progress()
}

// Full blocks until the full dataset for seed is available. See FullStore.Full.
func (e *Ethash) Full(ctx context.Context, seed common.Hash, create bool, onProgress func(percent uint32)) (*FullDataset, error) {
	return e.fulls.Full(ctx, seed, create, onProgress)
}

// CalcDifficulty returns the difficulty header must carry on top of parent.
func (e *Ethash) CalcDifficulty(header, parent *types.Header) *big.Int {
	return CalcDifficulty(e.params, header, parent)
}

// dataset prefers a resident full dataset over the light cache.
func (e *Ethash) dataset(seed common.Hash) (Dataset, error) {
	if full := e.fulls.Lookup(seed); full != nil {
		return full, nil
	}
	return e.lights.Get(seed)
}
