package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ovachiever/agent-sessions/internal/output"
)

func newProjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List indexed projects with session and message counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjects(cmd)
		},
	}
}

func runProjects(cmd *cobra.Command) error {
	out := output.New(cmd.OutOrStdout())

	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	stats, err := st.GetProjectStats()
	if err != nil {
		return fmt.Errorf("get project stats: %w", err)
	}
	if len(stats) == 0 {
		out.Status("∅", "no indexed projects")
		return nil
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].LastActivityAt > stats[j].LastActivityAt })

	for _, p := range stats {
		last := time.Unix(p.LastActivityAt, 0).Format("2006-01-02")
		out.Statusf("•", "%-30s %4d sessions  %6d messages  last active %s", p.ProjectName, p.SessionCount, p.MessageCount, last)
	}
	return nil
}
