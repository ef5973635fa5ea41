package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFindSimilarCmd() *cobra.Command {
	var line int
	var name string
	var limit int

	cmd := &cobra.Command{
		Use:   "find-similar <file>",
		Short: "Find blocks similar to a block in an already-indexed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveRoot()
			if err != nil {
				return err
			}
			idx, err := openIndex(root)
			if err != nil {
				return err
			}
			defer func() { _ = idx.Close() }()

			results, err := idx.FindSimilar(cmd.Context(), args[0], line, name, limit)
			if err != nil {
				return err
			}

			if len(results) == 0 {
				exitCode = ExitNoMatch
				fmt.Fprintln(cmd.OutOrStdout(), "no similar blocks found")
				return nil
			}

			exitCode = ExitMatch
			printResultsText(cmd, results)
			return nil
		},
	}

	cmd.Flags().IntVar(&line, "line", 0, "line number within the file identifying the block")
	cmd.Flags().StringVar(&name, "name", "", "block name within the file (function, type, etc.)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results")
	return cmd
}
