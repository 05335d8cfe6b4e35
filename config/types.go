package config

import "math/big"

// PowMode selects the dataset sizes used by the ethash engine.
type PowMode string

const (
	// PowModeNormal uses the real, epoch dependent cache and dataset sizes.
	PowModeNormal PowMode = "normal"

	// PowModeTest shrinks the cache to 1 KiB and the dataset to 32 KiB. Seals
	// produced in this mode are only valid for other test-mode engines.
	PowModeTest PowMode = "test"
)

// EthashConfig holds the [ethash] section of the node configuration.
type EthashConfig struct {
	PowMode            PowMode `ini:"pow_mode"`
	DatasetThreads     int     `ini:"dataset_threads"`
	ProgressIntervalMs int     `ini:"progress_interval_ms"`
	SealThreads        int     `ini:"seal_threads"`
}

// ChainParams are the chain operation parameters consumed by the difficulty
// adjustment and header field checks. A nil fork block means the fork never
// activates.
type ChainParams struct {
	HomesteadBlock      *uint64 `yaml:"homestead_block"`
	ByzantiumBlock      *uint64 `yaml:"byzantium_block"`
	ConstantinopleBlock *uint64 `yaml:"constantinople_block"`
	MuirGlacierBlock    *uint64 `yaml:"muir_glacier_block"`
	LondonBlock         *uint64 `yaml:"london_block"`
	ArrowGlacierBlock   *uint64 `yaml:"arrow_glacier_block"`
	GrayGlacierBlock    *uint64 `yaml:"gray_glacier_block"`

	MinimumDifficulty      uint64 `yaml:"minimum_difficulty"`
	DifficultyBoundDivisor uint64 `yaml:"difficulty_bound_divisor"`
	DurationLimit          uint64 `yaml:"duration_limit"`

	MinGasLimit          uint64 `yaml:"min_gas_limit"`
	MaxGasLimit          uint64 `yaml:"max_gas_limit"`
	GasLimitBoundDivisor uint64 `yaml:"gas_limit_bound_divisor"`
	MaximumExtraDataSize uint64 `yaml:"maximum_extra_data_size"`
}

// ChainFile is the top-level structure for chain.yml
type ChainFile struct {
	Chain ChainParams `yaml:"chain"`
}

// bombDelay pairs a fork activation block with the ice age delay it introduces.
type bombDelay struct {
	fork  *uint64
	delay uint64
}

// MinimumDifficultyBig returns the difficulty floor as a big integer.
func (p *ChainParams) MinimumDifficultyBig() *big.Int {
	return new(big.Int).SetUint64(p.MinimumDifficulty)
}
