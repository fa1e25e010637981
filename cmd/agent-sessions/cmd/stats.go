package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ovachiever/agent-sessions/internal/output"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show overall session store counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd)
		},
	}
}

func runStats(cmd *cobra.Command) error {
	out := output.New(cmd.OutOrStdout())

	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	sessionCount, err := st.CountSessions("")
	if err != nil {
		return fmt.Errorf("count sessions: %w", err)
	}
	messageCount, err := st.CountMessages()
	if err != nil {
		return fmt.Errorf("count messages: %w", err)
	}
	chunkCount, err := st.CountChunks()
	if err != nil {
		return fmt.Errorf("count chunks: %w", err)
	}
	projectStats, err := st.GetProjectStats()
	if err != nil {
		return fmt.Errorf("get project stats: %w", err)
	}

	out.Statusf("", "%d sessions, %d messages, %d chunks, %d projects", sessionCount, messageCount, chunkCount, len(projectStats))
	return nil
}
