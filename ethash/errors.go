package ethash

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mezonai/ethash/types"
)

var (
	ErrInvalidBlockNonce = errors.New("invalid block nonce")
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	ErrInvalidNumber     = errors.New("invalid block number")
	ErrInvalidTimestamp  = errors.New("timestamp not after parent")
	ErrInvalidGasLimit   = errors.New("invalid gas limit")
	ErrExtraDataTooLong  = errors.New("extra-data too long")
	ErrInvalidUncleHash  = errors.New("uncle hash mismatch")
	ErrUnknownSeed       = errors.New("unknown seed hash")
	ErrMissingDifficulty = errors.New("header has no difficulty")
)

// NonceError reports a header whose seal does not hold. It carries the mix
// and result computed during verification so callers can log them without
// hashing again.
type NonceError struct {
	Number     uint64
	Nonce      types.BlockNonce
	Seed       common.Hash
	Mix        common.Hash
	Result     common.Hash
	ClaimedMix common.Hash
	Reason     string
}

func (e *NonceError) Error() string {
	return fmt.Sprintf("%s: %s (number=%d nonce=%#x seed=%s mix=%s result=%s claimedMix=%s)",
		ErrInvalidBlockNonce, e.Reason, e.Number, e.Nonce.Uint64(), e.Seed.Hex(), e.Mix.Hex(), e.Result.Hex(), e.ClaimedMix.Hex())
}

func (e *NonceError) Is(target error) bool {
	return target == ErrInvalidBlockNonce
}

// DifficultyError reports a header whose difficulty differs from the value
// the adjustment rules compute from its parent.
type DifficultyError struct {
	Number   uint64
	Expected *big.Int
	Got      *big.Int
}

func (e *DifficultyError) Error() string {
	return fmt.Sprintf("%s: number=%d have %v, want %v", ErrInvalidDifficulty, e.Number, e.Got, e.Expected)
}

func (e *DifficultyError) Is(target error) bool {
	return target == ErrInvalidDifficulty
}
