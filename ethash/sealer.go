package ethash

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/mezonai/ethash/logx"
	"github.com/mezonai/ethash/monitoring"
	"github.com/mezonai/ethash/types"
	"golang.org/x/sync/errgroup"
)

// sealReportInterval is how many nonces a seal thread tries between metric
// updates and cancellation checks.
const sealReportInterval = 1 << 12

var errSealFound = errors.New("seal found")

// Seal searches a nonce for header against the full dataset of its epoch and
// returns a sealed copy. The dataset is generated first if needed. threads
// <= 0 falls back to the configured seal threads, then to NumCPU. Cancelling
// ctx stops the search, but not a dataset generation it waits for.
func (e *Ethash) Seal(ctx context.Context, header *types.Header, threads int) (*types.Header, error) {
	if header.Difficulty == nil || header.Difficulty.Sign() <= 0 {
		return nil, fmt.Errorf("%w: cannot seal with difficulty %v", ErrInvalidDifficulty, header.Difficulty)
	}
	if threads <= 0 {
		threads = e.config.SealThreads
	}
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	if header.Number == nil || !header.Number.IsUint64() {
		return nil, fmt.Errorf("%w: cannot seal block %v", ErrInvalidNumber, header.Number)
	}
	number := header.NumberU64()
	if err := checkBlockEpoch(number); err != nil {
		return nil, err
	}
	ds, err := e.fulls.Full(ctx, SeedHash(number/EpochLength), true, nil)
	if err != nil {
		return nil, err
	}

	var (
		sealHash = header.SealHash()
		target   = Boundary(header.Difficulty)
		found    = make(chan *types.Header, 1)
	)
	logx.Info("SEAL", fmt.Sprintf("Searching nonce | number=%d | difficulty=%v | threads=%d", number, header.Difficulty, threads))

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < threads; i++ {
		start := rand.Uint64()
		g.Go(func() error {
			return search(gctx, ds, header, sealHash, target, start, found)
		})
	}
	err = g.Wait()
	select {
	case sealed := <-found:
		logx.Info("SEAL", fmt.Sprintf("Sealed header | number=%d | nonce=%#x", number, sealed.Nonce.Uint64()))
		return sealed, nil
	default:
		return nil, err
	}
}

func search(ctx context.Context, ds Dataset, header *types.Header, sealHash common.Hash, target *uint256.Int, nonce uint64, found chan<- *types.Header) error {
	var (
		attempts uint64
		result   = new(uint256.Int)
	)
	defer func() { monitoring.AddSealHashes(attempts % sealReportInterval) }()

	for {
		attempts++
		if attempts%sealReportInterval == 0 {
			monitoring.AddSealHashes(sealReportInterval)
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		mix, digest := ds.Compute(sealHash, nonce)
		if !result.SetBytes32(digest[:]).Gt(target) {
			sealed := header.Copy()
			sealed.Nonce = types.EncodeNonce(nonce)
			sealed.MixDigest = mix
			select {
			case found <- sealed:
			default:
			}
			return errSealFound
		}
		nonce++
	}
}
