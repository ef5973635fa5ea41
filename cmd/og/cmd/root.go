// Package cmd provides the CLI commands for og.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nijaru/og/internal/config"
	"github.com/nijaru/og/internal/logging"
	"github.com/nijaru/og/internal/semindex"
	"github.com/nijaru/og/pkg/version"
)

// Exit code contract: the index either matched something (0), ran cleanly
// but found nothing (1), or failed outright (2).
const (
	ExitMatch   = 0
	ExitNoMatch = 1
	ExitError   = 2
)

var rootPath string
var searchScope string
var verbose bool

// cfg is the configuration loaded from the resolved project root's
// .og/config.yaml by PersistentPreRunE, available to every subcommand.
var cfg *config.Config

// logCleanup flushes and closes the log file opened by PersistentPreRunE.
var logCleanup func()

// NewRootCmd creates the root command for the og CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "og",
		Short: "Local incremental semantic code search",
		Long: `og indexes a codebase with hybrid lexical and late-interaction
semantic search and answers queries against it entirely on disk, with no
network calls and no server process.`,
		Version:            version.Version,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  setupRun,
		PersistentPostRunE: teardownRun,
	}
	cmd.SetVersionTemplate("og version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&rootPath, "root", "", "project root (default: discovered from cwd, or cwd itself)")
	cmd.PersistentFlags().StringVar(&searchScope, "scope", "", "restrict to a path prefix within the index")
	cmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")

	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newFindSimilarCmd())
	cmd.AddCommand(newClearCmd())

	return cmd
}

// setupRun loads the project config and opens file-based logging before any
// subcommand runs. Config and log location both key off the resolved root,
// so this waits for flag parsing (root, if set) to have happened.
func setupRun(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot()
	if err != nil {
		return err
	}

	cfg, err = config.Load(filepath.Join(root, semindex.IndexDirName, "config.yaml"))
	if err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	if verbose {
		logCfg = logging.DebugConfig()
	}
	logCfg.WriteToStderr = false
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return err
	}
	// A prior run's PersistentPostRunE may not have fired (cobra skips it
	// when RunE returned an error), so close any writer still open before
	// replacing it.
	if logCleanup != nil {
		logCleanup()
	}
	logCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

func teardownRun(cmd *cobra.Command, args []string) error {
	if logCleanup != nil {
		logCleanup()
		logCleanup = nil
	}
	return nil
}

// Execute runs the root command and returns the process exit code, honoring
// the EXIT_MATCH/EXIT_NO_MATCH/EXIT_ERROR contract: commands that can report
// "no match" (search, find-similar) set exitCode themselves before
// returning a nil error; any returned error is reported to stderr and maps
// to ExitError.
func Execute() int {
	exitCode = ExitMatch
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "og:", err)
		return ExitError
	}
	return exitCode
}

// exitCode is set by subcommands that distinguish "ran fine, no results"
// from "ran fine, found something", since cobra's RunE only carries error.
var exitCode int
