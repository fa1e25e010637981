package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ovachiever/agent-sessions/internal/model"
	"github.com/ovachiever/agent-sessions/internal/output"
	"github.com/ovachiever/agent-sessions/internal/readapi"
)

func newBrowseCmd() *cobra.Command {
	var (
		harness      string
		project      string
		childrenOnly bool
		limit        int
		offset       int
	)

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "List indexed sessions, newest first",
		Long: `Lists sessions from the store without running a search, for browsing
by harness or project. Filtering and paging are done with flags rather
than an interactive terminal UI.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd, harness, project, childrenOnly, limit, offset)
		},
	}

	cmd.Flags().StringVar(&harness, "harness", "", "restrict to one harness (e.g. claude-code)")
	cmd.Flags().StringVar(&project, "project", "", "restrict to one project path")
	cmd.Flags().BoolVar(&childrenOnly, "children", false, "show only sub-agent child sessions")
	cmd.Flags().IntVar(&limit, "limit", 25, "maximum number of sessions")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of sessions to skip")

	return cmd
}

func runBrowse(cmd *cobra.Command, harness, project string, childrenOnly bool, limit, offset int) error {
	out := output.New(cmd.OutOrStdout())

	st, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	api := readapi.New(readapi.Config{
		Store:                  st,
		ChildLinkWindowSeconds: int64(cfg.ChildLinkWindowDuration().Seconds()),
	})

	filter := model.SessionFilter{Harness: harness, Project: project}
	if childrenOnly {
		isChild := true
		filter.IsChild = &isChild
	}

	sessions, err := api.ListSessions(filter, limit, offset)
	if err != nil {
		return fmt.Errorf("get sessions: %w", err)
	}
	if len(sessions) == 0 {
		out.Status("∅", "no matching sessions")
		return nil
	}

	for _, s := range sessions {
		when := time.Unix(s.ModifiedAt, 0).Format("2006-01-02 15:04")
		marker := ""
		if s.IsChild {
			marker = " [child]"
		}
		out.Statusf("•", "%s  %-14s %-24s %-40s%s", when, s.Harness, s.ProjectName, truncateTitle(s.Title, 40), marker)
	}
	return nil
}
