package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	difficultyParentPath string
	difficultyHeaderPath string
)

var difficultyCmd = &cobra.Command{
	Use:   "difficulty",
	Short: "Compute the difficulty a header must have on top of its parent",
	Long: `Compute the difficulty of a child header from its parent header. Only the
number and timestamp of the child are used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine(nil)
		if err != nil {
			return err
		}
		parent, err := readHeader(difficultyParentPath)
		if err != nil {
			return err
		}
		header, err := readHeader(difficultyHeaderPath)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), engine.CalcDifficulty(header, parent))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(difficultyCmd)
	difficultyCmd.Flags().StringVar(&difficultyParentPath, "parent", "", "Parent header JSON file")
	difficultyCmd.Flags().StringVar(&difficultyHeaderPath, "header", "", "Child header JSON file")
	_ = difficultyCmd.MarkFlagRequired("parent")
	_ = difficultyCmd.MarkFlagRequired("header")
}
