package config

import (
	"fmt"
	"os"

	"github.com/mezonai/ethash/logx"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

const (
	defaultProgressIntervalMs = 100

	// Ice age delays, in blocks, introduced by the respective forks.
	byzantiumBombDelay      = 3000000
	constantinopleBombDelay = 5000000
	muirGlacierBombDelay    = 9000000
	londonBombDelay         = 9700000
	arrowGlacierBombDelay   = 10700000
	grayGlacierBombDelay    = 11400000
)

func u64(v uint64) *uint64 { return &v }

// DefaultEthashConfig returns the configuration used when no file is given.
func DefaultEthashConfig() *EthashConfig {
	return &EthashConfig{
		PowMode:            PowModeNormal,
		ProgressIntervalMs: defaultProgressIntervalMs,
	}
}

// TestEthashConfig returns a configuration with tiny datasets, for tests.
func TestEthashConfig() *EthashConfig {
	cfg := DefaultEthashConfig()
	cfg.PowMode = PowModeTest
	cfg.ProgressIntervalMs = 5
	return cfg
}

// LoadEthashConfig reads the [ethash] section from an .ini file
func LoadEthashConfig(path string) (*EthashConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load ethash config %s", path)
	}
	ethashCfg := DefaultEthashConfig()
	if err := cfg.Section("ethash").MapTo(ethashCfg); err != nil {
		return nil, errors.Wrap(err, "failed to map [ethash] section")
	}
	if err := ethashCfg.Validate(); err != nil {
		return nil, err
	}
	logx.Info("CONFIG", fmt.Sprintf("Loaded ethash config from %s: %+v", path, *ethashCfg))
	return ethashCfg, nil
}

// Validate checks the configuration values
func (c *EthashConfig) Validate() error {
	switch c.PowMode {
	case PowModeNormal, PowModeTest:
	case "":
		c.PowMode = PowModeNormal
	default:
		return fmt.Errorf("unsupported pow_mode: %s", c.PowMode)
	}
	if c.DatasetThreads < 0 {
		return fmt.Errorf("dataset_threads cannot be negative: %d", c.DatasetThreads)
	}
	if c.SealThreads < 0 {
		return fmt.Errorf("seal_threads cannot be negative: %d", c.SealThreads)
	}
	if c.ProgressIntervalMs <= 0 {
		c.ProgressIntervalMs = defaultProgressIntervalMs
	}
	return nil
}

// MainnetChainParams returns the Ethereum mainnet fork schedule.
func MainnetChainParams() *ChainParams {
	return &ChainParams{
		HomesteadBlock:      u64(1150000),
		ByzantiumBlock:      u64(4370000),
		ConstantinopleBlock: u64(7280000),
		MuirGlacierBlock:    u64(9200000),
		LondonBlock:         u64(12965000),
		ArrowGlacierBlock:   u64(13773000),
		GrayGlacierBlock:    u64(15050000),

		MinimumDifficulty:      131072,
		DifficultyBoundDivisor: 2048,
		DurationLimit:          13,

		MinGasLimit:          5000,
		MaxGasLimit:          0x7fffffffffffffff,
		GasLimitBoundDivisor: 1024,
		MaximumExtraDataSize: 32,
	}
}

// LoadChainParams reads and parses a chain.yml file. Missing numeric values
// are taken from MainnetChainParams, missing fork blocks mean "never".
func LoadChainParams(path string) (*ChainParams, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open chain params %s", path)
	}
	defer file.Close()

	var chainFile ChainFile
	if err := yaml.NewDecoder(file).Decode(&chainFile); err != nil {
		return nil, errors.Wrapf(err, "failed to decode chain params %s", path)
	}
	params := &chainFile.Chain
	params.fillDefaults()
	logx.Info("CONFIG", fmt.Sprintf("Loaded chain params from %s: homestead=%s byzantium=%s minDifficulty=%d",
		path, blockString(params.HomesteadBlock), blockString(params.ByzantiumBlock), params.MinimumDifficulty))
	return params, nil
}

func (p *ChainParams) fillDefaults() {
	def := MainnetChainParams()
	if p.MinimumDifficulty == 0 {
		p.MinimumDifficulty = def.MinimumDifficulty
	}
	if p.DifficultyBoundDivisor == 0 {
		p.DifficultyBoundDivisor = def.DifficultyBoundDivisor
	}
	if p.DurationLimit == 0 {
		p.DurationLimit = def.DurationLimit
	}
	if p.MinGasLimit == 0 {
		p.MinGasLimit = def.MinGasLimit
	}
	if p.MaxGasLimit == 0 {
		p.MaxGasLimit = def.MaxGasLimit
	}
	if p.GasLimitBoundDivisor == 0 {
		p.GasLimitBoundDivisor = def.GasLimitBoundDivisor
	}
	if p.MaximumExtraDataSize == 0 {
		p.MaximumExtraDataSize = def.MaximumExtraDataSize
	}
}

func blockString(b *uint64) string {
	if b == nil {
		return "never"
	}
	return fmt.Sprintf("%d", *b)
}

func isForked(fork *uint64, number uint64) bool {
	return fork != nil && number >= *fork
}

func (p *ChainParams) IsHomestead(number uint64) bool {
	return isForked(p.HomesteadBlock, number)
}

func (p *ChainParams) IsByzantium(number uint64) bool {
	return isForked(p.ByzantiumBlock, number)
}

func (p *ChainParams) IsConstantinople(number uint64) bool {
	return isForked(p.ConstantinopleBlock, number)
}

// BombDelay returns the number of blocks by which the difficulty bomb is
// pushed back at the given block. The latest activated fork wins.
func (p *ChainParams) BombDelay(number uint64) uint64 {
	delays := []bombDelay{
		{p.GrayGlacierBlock, grayGlacierBombDelay},
		{p.ArrowGlacierBlock, arrowGlacierBombDelay},
		{p.LondonBlock, londonBombDelay},
		{p.MuirGlacierBlock, muirGlacierBombDelay},
		{p.ConstantinopleBlock, constantinopleBombDelay},
		{p.ByzantiumBlock, byzantiumBombDelay},
	}
	for _, d := range delays {
		if isForked(d.fork, number) {
			return d.delay
		}
	}
	return 0
}
