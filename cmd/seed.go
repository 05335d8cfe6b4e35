package cmd

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var (
	seedBlock  uint64
	cacheBlock uint64
	dagBlock   uint64
)

type epochInfo struct {
	Block       uint64      `json:"block"`
	Epoch       uint64      `json:"epoch"`
	Seed        common.Hash `json:"seed"`
	CacheSize   uint64      `json:"cacheSize"`
	DatasetSize uint64      `json:"datasetSize"`
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Print the epoch, seed hash and dataset sizes of a block",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine(nil)
		if err != nil {
			return err
		}
		epoch := engine.Epoch(seedBlock)
		return printJSON(cmd.OutOrStdout(), epochInfo{
			Block:       seedBlock,
			Epoch:       epoch.Number,
			Seed:        epoch.Seed,
			CacheSize:   epoch.CacheSize,
			DatasetSize: epoch.DatasetSize,
		})
	},
}

var makeCacheCmd = &cobra.Command{
	Use:   "makecache",
	Short: "Generate the light verification cache of a block's epoch",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine(nil)
		if err != nil {
			return err
		}
		start := time.Now()
		light, err := engine.LightForBlock(cacheBlock)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "epoch %d cache of %d bytes generated in %s, first item %x\n",
			light.Epoch(), light.Size(), time.Since(start).Round(time.Millisecond), light.Item(0))
		return nil
	},
}

var makeDagCmd = &cobra.Command{
	Use:   "makedag",
	Short: "Generate the full mining dataset of a block's epoch",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine(nil)
		if err != nil {
			return err
		}
		epoch := engine.Epoch(dagBlock)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "generating epoch %d dataset (%d bytes)\n", epoch.Number, epoch.DatasetSize)

		start := time.Now()
		last := uint32(0)
		ds, err := engine.Full(cmd.Context(), epoch.Seed, true, func(percent uint32) {
			if percent >= last+10 || percent == 100 && last != 100 {
				fmt.Fprintf(out, "  %3d%%\n", percent)
				last = percent
			}
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "epoch %d dataset of %d bytes generated in %s\n", ds.Epoch(), ds.Size(), time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd, makeCacheCmd, makeDagCmd)
	seedCmd.Flags().Uint64Var(&seedBlock, "block", 0, "Block number")
	makeCacheCmd.Flags().Uint64Var(&cacheBlock, "block", 0, "Block number")
	makeDagCmd.Flags().Uint64Var(&dagBlock, "block", 0, "Block number")
}
