package ethash

import (
	"math/big"

	"github.com/mezonai/ethash/config"
	"github.com/mezonai/ethash/types"
)

var (
	big1          = big.NewInt(1)
	big2          = big.NewInt(2)
	big9          = big.NewInt(9)
	big10         = big.NewInt(10)
	bigMinus99    = big.NewInt(-99)
	expDiffPeriod = big.NewInt(100000)
)

// CalcDifficulty returns the difficulty a block must have when created on
// top of parent, under the fork rules active at the block's number.
func CalcDifficulty(params *config.ChainParams, header, parent *types.Header) *big.Int {
	number := header.NumberU64()
	var diff *big.Int
	switch {
	case params.IsByzantium(number):
		diff = calcDifficultyAdjusted(params, header, parent, true)
	case params.IsHomestead(number):
		diff = calcDifficultyAdjusted(params, header, parent, false)
	default:
		diff = calcDifficultyFrontier(params, header, parent)
	}
	addBomb(diff, number, params.BombDelay(number))
	return floorAt(diff, params.MinimumDifficultyBig())
}

// timeDelta is header.Time - parent.Time as a signed value.
func timeDelta(header, parent *types.Header) *big.Int {
	dt := new(big.Int).SetUint64(header.Time)
	return dt.Sub(dt, new(big.Int).SetUint64(parent.Time))
}

func parentDifficulty(parent *types.Header) *big.Int {
	if parent.Difficulty == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(parent.Difficulty)
}

// calcDifficultyFrontier moves the parent difficulty by one bound step up or
// down depending on whether the block came faster than the duration limit.
func calcDifficultyFrontier(params *config.ChainParams, header, parent *types.Header) *big.Int {
	diff := parentDifficulty(parent)
	adjust := new(big.Int).Div(diff, new(big.Int).SetUint64(params.DifficultyBoundDivisor))

	if timeDelta(header, parent).Cmp(new(big.Int).SetUint64(params.DurationLimit)) < 0 {
		diff.Add(diff, adjust)
	} else {
		diff.Sub(diff, adjust)
	}
	return floorAt(diff, params.MinimumDifficultyBig())
}

// calcDifficultyAdjusted implements the Homestead rule
//
//	diff = parent + parent/2048 * max(1 - dt/10, -99)
//
// and, with byzantium set, its successor which targets uncles too
//
//	diff = parent + parent/2048 * max((2 if uncles else 1) - dt/9, -99)
func calcDifficultyAdjusted(params *config.ChainParams, header, parent *types.Header, byzantium bool) *big.Int {
	factor := new(big.Int).Set(big1)
	divisor := big10
	if byzantium {
		divisor = big9
		if parent.HasUncles() {
			factor.Set(big2)
		}
	}
	factor.Sub(factor, new(big.Int).Quo(timeDelta(header, parent), divisor))
	if factor.Cmp(bigMinus99) < 0 {
		factor.Set(bigMinus99)
	}

	diff := parentDifficulty(parent)
	adjust := new(big.Int).Div(diff, new(big.Int).SetUint64(params.DifficultyBoundDivisor))
	adjust.Mul(adjust, factor)
	diff.Add(diff, adjust)
	return floorAt(diff, params.MinimumDifficultyBig())
}

// addBomb adds the exponential ice age term 2^(period-2), where period counts
// 100000 block spans of the number shifted back by delay.
func addBomb(diff *big.Int, number, delay uint64) {
	fake := new(big.Int)
	if number >= delay {
		fake.SetUint64(number - delay)
	}
	period := fake.Div(fake, expDiffPeriod)
	if period.Cmp(big1) > 0 {
		exp := new(big.Int).Sub(period, big2)
		diff.Add(diff, new(big.Int).Exp(big2, exp, nil))
	}
}

func floorAt(diff, minimum *big.Int) *big.Int {
	if diff.Cmp(minimum) < 0 {
		diff.Set(minimum)
	}
	return diff
}
