package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the index for the current project",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveRoot()
			if err != nil {
				return err
			}
			idx, err := openIndex(root)
			if err != nil {
				return err
			}
			if err := idx.Clear(); err != nil {
				return fmt.Errorf("clear index: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared index under %s\n", root)
			return nil
		},
	}
}
