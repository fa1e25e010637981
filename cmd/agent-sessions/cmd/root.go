// Package cmd provides the CLI commands for agent-sessions.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ovachiever/agent-sessions/internal/logging"
	"github.com/ovachiever/agent-sessions/pkg/version"
)

var (
	debugMode      bool
	storePath      string
	loggingCleanup func()
)

// NewRootCmd builds the agent-sessions root command and wires every
// subcommand onto it.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "agent-sessions",
		Short:   "Search and browse AI coding assistant session history",
		Version: version.Version,
		Long: `agent-sessions indexes transcripts from Claude Code, Cursor, Factory
Droid, and OpenCode into a single searchable store and serves hybrid
lexical/semantic search over them.`,
		SilenceUsage:      true,
		PersistentPreRunE: startLogging,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			stopLogging()
			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging to ~/.agent-sessions/logs/")
	cmd.PersistentFlags().StringVar(&storePath, "store", "", "path to the session store (default: ~/.cache/agent-sessions/sessions.db)")

	cmd.AddCommand(newReindexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newSearchHistoryCmd())
	cmd.AddCommand(newBrowseCmd())
	cmd.AddCommand(newProjectsCmd())
	cmd.AddCommand(newProvidersCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newCacheCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startLogging(cmd *cobra.Command, args []string) error {
	logCfg := logging.DefaultConfig()
	if debugMode {
		logCfg = logging.DebugConfig()
	}
	logCfg.WriteToStderr = false

	_, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		// Logging failure is not fatal to the CLI; continue without a file
		// sink rather than blocking the command.
		return nil
	}
	loggingCleanup = cleanup
	return nil
}

func stopLogging() {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
}

// Execute runs the root command and exits the process on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
