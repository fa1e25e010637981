package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ovachiever/agent-sessions/internal/model"
	"github.com/ovachiever/agent-sessions/internal/output"
	"github.com/ovachiever/agent-sessions/internal/search"
)

func newSearchCmd() *cobra.Command {
	var (
		limit   int
		harness string
		project string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed sessions by hybrid lexical/semantic ranking",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), limit, harness, project)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", search.DefaultLimit, "maximum number of results")
	cmd.Flags().StringVar(&harness, "harness", "", "restrict results to one harness (e.g. claude-code)")
	cmd.Flags().StringVar(&project, "project", "", "restrict results to one project path")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, limit int, harness, project string) error {
	ctx := cmd.Context()
	out := output.New(cmd.OutOrStdout())

	st, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	embedder := newEmbedderFromConfig(ctx, cfg)
	if embedder != nil {
		defer func() { _ = embedder.Close() }()
	} else {
		out.Warning("embedder unavailable, falling back to lexical-only search")
	}

	api, err := newReadAPI(st, cfg, embedder)
	if err != nil {
		return err
	}

	results, err := api.Search(ctx, query, limit, model.SessionFilter{Harness: harness, Project: project})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(results) == 0 {
		out.Status("∅", "no matching sessions")
		return nil
	}

	for i, r := range results {
		signal := signalLabel(r)
		out.Statusf(fmt.Sprintf("%2d.", i+1), "%-50s %-14s %-24s [%.3f %s]",
			truncateTitle(r.Session.Title, 50), r.Session.Harness, r.Session.ProjectName, r.Combined, signal)
	}
	return nil
}

func signalLabel(r search.Result) string {
	switch {
	case r.InLexical && r.InSemantic:
		return "lex+sem"
	case r.InLexical:
		return "lex"
	case r.InSemantic:
		return "sem"
	default:
		return ""
	}
}

func truncateTitle(title string, n int) string {
	if title == "" {
		title = "(untitled session)"
	}
	if len(title) <= n {
		return title
	}
	return title[:n-1] + "…"
}

func newSearchHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search-history",
		Short: "Show recent search queries and their result counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearchHistory(cmd, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of entries")
	return cmd
}

func runSearchHistory(cmd *cobra.Command, limit int) error {
	out := output.New(cmd.OutOrStdout())

	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	entries, err := st.GetSearchHistory(limit)
	if err != nil {
		return fmt.Errorf("get search history: %w", err)
	}
	if len(entries) == 0 {
		out.Status("∅", "no search history")
		return nil
	}

	for _, e := range entries {
		when := time.Unix(e.CreatedAt, 0).Format("2006-01-02 15:04")
		out.Statusf("•", "%s  %-40q  %d results  %dms", when, e.Query, e.ResultCount, e.DurationMS)
	}
	return nil
}
