package cmd

import (
	"fmt"

	"github.com/mezonai/ethash/db"
	"github.com/mezonai/ethash/ethash"
	"github.com/mezonai/ethash/logx"
	"github.com/mezonai/ethash/store"
	"github.com/spf13/cobra"
)

var (
	importDBDir      string
	importHeaderPath string
	importLevel      string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Verify headers and store them in a header database",
	Long: `Read one header or an array of headers from a JSON file, verify each against
its stored parent and write it to the header database. Headers whose parent is
unknown are verified without the parent checks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := ethash.ParseStrictness(importLevel)
		if err != nil {
			return err
		}
		headers, err := readHeaders(importHeaderPath)
		if err != nil {
			return err
		}
		engine, err := newEngine(nil)
		if err != nil {
			return err
		}

		provider, err := db.NewLevelDBProvider(importDBDir)
		if err != nil {
			return err
		}
		hs, err := store.NewGenericHeaderStore(provider)
		if err != nil {
			provider.Close()
			return err
		}
		defer hs.Close()

		for _, header := range headers {
			parent, err := hs.Parent(header)
			if err != nil {
				return err
			}
			if parent == nil {
				logx.Warn("CMD", fmt.Sprintf("Parent of header %d not stored, skipping parent checks", header.NumberU64()))
			}
			if err := engine.Verify(level, header, parent, nil); err != nil {
				return fmt.Errorf("header %d: %w", header.NumberU64(), err)
			}
			if err := hs.Put(header); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported header %d (%s)\n", header.NumberU64(), header.Hash().Hex())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importDBDir, "db", "headers", "Header database directory")
	importCmd.Flags().StringVar(&importHeaderPath, "header", "", "Header JSON file (single header or array)")
	importCmd.Flags().StringVar(&importLevel, "level", "full", "Verification level: quick or full")
	_ = importCmd.MarkFlagRequired("header")
}
