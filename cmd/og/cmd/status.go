package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether an index exists and how many blocks it holds",
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

			if !idx.IsIndexed() {
				fmt.Fprintf(cmd.OutOrStdout(), "no index under %s\n", root)
				return nil
			}

			count, err := idx.Count()
			if err != nil {
				return fmt.Errorf("count blocks: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "index at %s: %d blocks\n", root, count)
			return nil
		},
	}
}
