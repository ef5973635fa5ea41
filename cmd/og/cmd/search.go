package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nijaru/og/internal/semindex"
)

func newSearchCmd() *cobra.Command {
	var limit int
	var format string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			if !cmd.Flags().Changed("limit") && cfg != nil && cfg.Index.MaxResults > 0 {
				limit = cfg.Index.MaxResults
			}

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
				return fmt.Errorf("no index found under %s, run 'og build' first", root)
			}

			results, err := idx.Search(cmd.Context(), query, limit)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			if len(results) == 0 {
				exitCode = ExitNoMatch
				if format != "json" {
					fmt.Fprintf(cmd.OutOrStdout(), "no results for %q\n", query)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "[]")
				}
				return nil
			}

			exitCode = ExitMatch
			if format == "json" {
				return printResultsJSON(cmd, results)
			}
			printResultsText(cmd, results)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json")
	return cmd
}

func printResultsText(cmd *cobra.Command, results []semindex.Result) {
	out := cmd.OutOrStdout()
	for i, r := range results {
		loc := r.File
		if r.Line > 0 {
			loc = fmt.Sprintf("%s:%d", r.File, r.Line)
		}
		fmt.Fprintf(out, "%d. %s  %s %s (score %.3f)\n", i+1, loc, r.Type, r.Name, r.Score)
		for _, line := range snippet(r.Content, 3) {
			fmt.Fprintf(out, "     %s\n", line)
		}
	}
}

func printResultsJSON(cmd *cobra.Command, results []semindex.Result) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func snippet(content string, n int) []string {
	lines := strings.Split(content, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines
}
