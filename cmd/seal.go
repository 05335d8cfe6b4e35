package cmd

import (
	"github.com/spf13/cobra"
)

var (
	sealHeaderPath string
	sealParentPath string
	sealThreads    int
)

var sealCmd = &cobra.Command{
	Use:   "seal",
	Short: "Search a proof-of-work nonce for a header",
	Long: `Seal the header read from --header against the full dataset of its epoch and
print the sealed header as JSON. When --parent is given and the header carries no
difficulty, the difficulty is computed from the parent first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		header, err := readHeader(sealHeaderPath)
		if err != nil {
			return err
		}
		engine, err := newEngine(nil)
		if err != nil {
			return err
		}
		if sealParentPath != "" && header.Difficulty == nil {
			parent, err := readHeader(sealParentPath)
			if err != nil {
				return err
			}
			header.Difficulty = engine.CalcDifficulty(header, parent)
		}

		sealed, err := engine.Seal(cmd.Context(), header, sealThreads)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), sealed)
	},
}

func init() {
	rootCmd.AddCommand(sealCmd)
	sealCmd.Flags().StringVar(&sealHeaderPath, "header", "", "Header JSON file to seal")
	sealCmd.Flags().StringVar(&sealParentPath, "parent", "", "Parent header JSON file, used to fill in the difficulty")
	sealCmd.Flags().IntVar(&sealThreads, "threads", 0, "Search threads (default: seal_threads from config, then CPU count)")
	_ = sealCmd.MarkFlagRequired("header")
}
