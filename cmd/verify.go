package cmd

import (
	"errors"
	"fmt"

	"github.com/mezonai/ethash/db"
	"github.com/mezonai/ethash/ethash"
	"github.com/mezonai/ethash/store"
	"github.com/mezonai/ethash/types"
	"github.com/spf13/cobra"
)

var (
	verifyLevel      string
	verifyDBDir      string
	verifyNumber     uint64
	verifyHeaderPath string
	verifyParentPath string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the proof-of-work of a block header",
	Long: `Verify a header either read from a JSON file (--header, with an optional
--parent) or looked up by number in a header database (--db, --number).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := ethash.ParseStrictness(verifyLevel)
		if err != nil {
			return err
		}
		header, parent, err := loadVerifyTarget()
		if err != nil {
			return err
		}
		engine, err := newEngine(nil)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		err = engine.Verify(level, header, parent, nil)
		var nonceErr *ethash.NonceError
		if errors.As(err, &nonceErr) {
			fmt.Fprintf(out, "computed mix %s\ncomputed result %s\n", nonceErr.Mix.Hex(), nonceErr.Result.Hex())
		}
		if err != nil {
			return fmt.Errorf("header %d: %w", header.NumberU64(), err)
		}
		fmt.Fprintf(out, "header %d (%s) valid at level %s\n", header.NumberU64(), header.Hash().Hex(), level)
		return nil
	},
}

func loadVerifyTarget() (header, parent *types.Header, err error) {
	if verifyHeaderPath != "" {
		if header, err = readHeader(verifyHeaderPath); err != nil {
			return nil, nil, err
		}
		if verifyParentPath != "" {
			if parent, err = readHeader(verifyParentPath); err != nil {
				return nil, nil, err
			}
		}
		return header, parent, nil
	}
	if verifyDBDir == "" {
		return nil, nil, errors.New("either --header or --db is required")
	}

	provider, err := db.NewLevelDBProvider(verifyDBDir)
	if err != nil {
		return nil, nil, err
	}
	hs, err := store.NewGenericHeaderStore(provider)
	if err != nil {
		provider.Close()
		return nil, nil, err
	}
	defer hs.Close()

	if header, err = hs.HeaderByNumber(verifyNumber); err != nil {
		return nil, nil, err
	}
	if header == nil {
		return nil, nil, fmt.Errorf("no header %d in %s", verifyNumber, verifyDBDir)
	}
	if parent, err = hs.Parent(header); err != nil {
		return nil, nil, err
	}
	return header, parent, nil
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVar(&verifyLevel, "level", "full", "Verification level: quick or full")
	verifyCmd.Flags().StringVar(&verifyDBDir, "db", "", "Header database directory")
	verifyCmd.Flags().Uint64Var(&verifyNumber, "number", 0, "Header number to verify from the database")
	verifyCmd.Flags().StringVar(&verifyHeaderPath, "header", "", "Header JSON file")
	verifyCmd.Flags().StringVar(&verifyParentPath, "parent", "", "Parent header JSON file")
}
