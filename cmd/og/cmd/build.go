package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nijaru/og/internal/semindex"
	"github.com/nijaru/og/internal/walker"
)

func newBuildCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build or incrementally update the index for the current project",
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

			w, err := walker.New()
			if err != nil {
				return err
			}
			walkOpts := walker.Options{Root: root}
			if cfg != nil {
				walkOpts.Include = cfg.Paths.Include
				walkOpts.Exclude = cfg.Paths.Exclude
				walkOpts.MaxFileSize = cfg.Performance.MaxFileSize
			}
			found, err := w.Walk(walkOpts)
			if err != nil {
				return fmt.Errorf("walk project: %w", err)
			}
			slog.Debug("walk complete", "root", root, "files_found", len(found))

			files := make([]semindex.File, 0, len(found))
			for _, f := range found {
				content, err := os.ReadFile(f.AbsPath)
				if err != nil {
					continue
				}
				files = append(files, semindex.File{RelPath: f.Path, Content: content, MTime: f.MTime})
			}

			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "scanning %d files under %s\n", len(files), root)
			}

			stats, err := idx.Update(cmd.Context(), files)
			if err != nil {
				slog.Error("build index failed", "root", root, "error", err)
				return fmt.Errorf("build index: %w", err)
			}
			slog.Info("build complete", "root", root, "files", stats.Files, "blocks", stats.Blocks,
				"skipped", stats.Skipped, "errors", stats.Errors, "deleted", stats.Deleted)

			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d files, %d blocks (%d skipped, %d errors, %d deleted)\n",
				stats.Files, stats.Blocks, stats.Skipped, stats.Errors, stats.Deleted)
			return nil
		},
	}

	cmd.Flags().BoolVar(&quiet, "quiet", false, "suppress progress output")
	return cmd
}
