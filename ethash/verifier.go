package ethash

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mezonai/ethash/logx"
	"github.com/mezonai/ethash/monitoring"
	"github.com/mezonai/ethash/types"
)

// Strictness selects how much of a header Verify checks.
type Strictness int

const (
	// QuickNonce only checks that the seal meets the difficulty target.
	QuickNonce Strictness = iota
	// CheckEverything also checks the mix digest and the header fields
	// against the parent.
	CheckEverything
)

func (s Strictness) String() string {
	switch s {
	case QuickNonce:
		return "quick"
	case CheckEverything:
		return "full"
	default:
		return fmt.Sprintf("strictness(%d)", int(s))
	}
}

// ParseStrictness maps "quick" and "full" to their levels.
func ParseStrictness(s string) (Strictness, error) {
	switch s {
	case "quick":
		return QuickNonce, nil
	case "full":
		return CheckEverything, nil
	}
	return 0, fmt.Errorf("unknown verification level %q", s)
}

// Verify checks header at the given level. parent may be nil, which skips
// the checks that relate the header to its parent. A non-nil uncles slice is
// checked against the header's uncle hash. Seal failures are *NonceError,
// difficulty mismatches *DifficultyError; both match their sentinel with
// errors.Is. The genesis header, with a zero parent hash, carries no seal.
func (e *Ethash) Verify(level Strictness, header, parent *types.Header, uncles []*types.Header) error {
	err := e.verify(level, header, parent, uncles)
	monitoring.RecordVerification(level.String(), outcomeOf(err))
	if err != nil {
		logx.Warn("VERIFY", fmt.Sprintf("Header rejected | level=%s | number=%d | err=%v", level, header.NumberU64(), err))
	}
	return err
}

// VerifySeal checks only the proof-of-work of header.
func (e *Ethash) VerifySeal(header *types.Header) error {
	return e.Verify(QuickNonce, header, nil, nil)
}

func (e *Ethash) verify(level Strictness, header, parent *types.Header, uncles []*types.Header) error {
	if header.Number == nil {
		return fmt.Errorf("%w: missing", ErrInvalidNumber)
	}
	if !header.Number.IsUint64() {
		return fmt.Errorf("%w: %v out of range", ErrInvalidNumber, header.Number)
	}
	if level == CheckEverything {
		if err := e.verifyFields(header, parent, uncles); err != nil {
			return err
		}
	}
	if header.ParentHash == (common.Hash{}) {
		return nil
	}
	return e.verifySeal(level, header)
}

func (e *Ethash) verifyFields(header, parent *types.Header, uncles []*types.Header) error {
	params := e.params
	if header.Difficulty == nil {
		return ErrMissingDifficulty
	}
	if minimum := params.MinimumDifficultyBig(); header.Difficulty.Cmp(minimum) < 0 {
		return fmt.Errorf("%w: %v below minimum %v", ErrInvalidDifficulty, header.Difficulty, minimum)
	}
	if header.GasLimit < params.MinGasLimit || header.GasLimit > params.MaxGasLimit {
		return fmt.Errorf("%w: %d outside [%d, %d]", ErrInvalidGasLimit, header.GasLimit, params.MinGasLimit, params.MaxGasLimit)
	}
	if size := uint64(len(header.Extra)); size > params.MaximumExtraDataSize {
		return fmt.Errorf("%w: %d > %d", ErrExtraDataTooLong, size, params.MaximumExtraDataSize)
	}
	if uncles != nil {
		if want := types.CalcUncleHash(uncles); want != header.UncleHash {
			return fmt.Errorf("%w: have %s, want %s", ErrInvalidUncleHash, header.UncleHash.Hex(), want.Hex())
		}
	}
	if parent == nil {
		return nil
	}

	if parent.Number == nil || new(big.Int).Add(parent.Number, big1).Cmp(header.Number) != 0 {
		return fmt.Errorf("%w: %v does not follow parent %v", ErrInvalidNumber, header.Number, parent.Number)
	}
	if header.Time <= parent.Time {
		return fmt.Errorf("%w: %d <= %d", ErrInvalidTimestamp, header.Time, parent.Time)
	}
	if expected := CalcDifficulty(params, header, parent); expected.Cmp(header.Difficulty) != 0 {
		return &DifficultyError{Number: header.NumberU64(), Expected: expected, Got: header.Difficulty}
	}
	diff := int64(header.GasLimit) - int64(parent.GasLimit)
	if diff < 0 {
		diff = -diff
	}
	if limit := parent.GasLimit / params.GasLimitBoundDivisor; uint64(diff) >= limit {
		return fmt.Errorf("%w: have %d, parent %d, max change %d", ErrInvalidGasLimit, header.GasLimit, parent.GasLimit, limit)
	}
	return nil
}

func (e *Ethash) verifySeal(level Strictness, header *types.Header) error {
	number := header.NumberU64()
	if err := checkBlockEpoch(number); err != nil {
		return err
	}
	seed := SeedHash(number / EpochLength)
	ds, err := e.dataset(seed)
	if err != nil {
		return err
	}

	mix, result := Hash(ds, header.SealHash(), header.Nonce.Uint64())
	fail := func(reason string) error {
		return &NonceError{
			Number:     number,
			Nonce:      header.Nonce,
			Seed:       seed,
			Mix:        mix,
			Result:     result,
			ClaimedMix: header.MixDigest,
			Reason:     reason,
		}
	}
	if !QuickCheck(result, header.Difficulty) {
		return fail("difficulty target not met")
	}
	if level == CheckEverything && mix != header.MixDigest {
		return fail("mix digest mismatch")
	}
	return nil
}

func outcomeOf(err error) monitoring.VerifyOutcome {
	switch {
	case err == nil:
		return monitoring.VerifyOK
	case errors.Is(err, ErrInvalidBlockNonce):
		return monitoring.VerifyInvalidNonce
	case errors.Is(err, ErrInvalidDifficulty):
		return monitoring.VerifyInvalidDifficulty
	case errors.Is(err, ErrUnknownSeed):
		return monitoring.VerifyUnknownEpoch
	default:
		return monitoring.VerifyInvalidHeaderField
	}
}
