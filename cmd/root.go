package cmd

import (
	"os"

	"github.com/mezonai/ethash/config"
	"github.com/mezonai/ethash/logx"
	"github.com/spf13/cobra"
)

var (
	configPath string
	chainPath  string
	testMode   bool
	logStdout  bool
)

var rootCmd = &cobra.Command{
	Use:   "ethash",
	Short: "Ethash proof-of-work toolkit",
	Long:  "Command line interface for generating ethash caches and datasets, computing difficulty and verifying block headers.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if logStdout {
			logx.SetOutput(cmd.ErrOrStderr())
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to an .ini file with an [ethash] section")
	rootCmd.PersistentFlags().StringVar(&chainPath, "chain", "", "Path to a chain.yml with fork blocks (default mainnet)")
	rootCmd.PersistentFlags().BoolVar(&testMode, "test", false, "Use the tiny test-mode cache and dataset")
	rootCmd.PersistentFlags().BoolVar(&logStdout, "stdout", false, "Log to stderr instead of the log file")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command execution failed:", err)
		os.Exit(1)
	}
}

// loadConfiguration reads the engine and chain configuration named by the
// global flags, falling back to the defaults.
func loadConfiguration() (*config.EthashConfig, *config.ChainParams, error) {
	cfg := config.DefaultEthashConfig()
	if configPath != "" {
		loaded, err := config.LoadEthashConfig(configPath)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}
	if testMode {
		cfg.PowMode = config.PowModeTest
	}

	params := config.MainnetChainParams()
	if chainPath != "" {
		loaded, err := config.LoadChainParams(chainPath)
		if err != nil {
			return nil, nil, err
		}
		params = loaded
	}
	return cfg, params, nil
}
