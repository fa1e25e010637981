package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ovachiever/agent-sessions/internal/embed"
	"github.com/ovachiever/agent-sessions/internal/index"
	"github.com/ovachiever/agent-sessions/internal/output"
)

func newReindexCmd() *cobra.Command {
	var (
		full         bool
		metadataOnly bool
		offline      bool
	)

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Scan every available harness and update the session store",
		Long: `Discovers sessions from every available provider (Claude Code, Cursor,
Factory Droid, OpenCode) and brings the session store up to date.

By default this runs an incremental update: only sessions that are new or
whose source file changed since the last pass are re-indexed. Use --full
to discard nothing and re-process every session from scratch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReindex(cmd, full, metadataOnly, offline)
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "re-index every session from scratch instead of incrementally")
	cmd.Flags().BoolVar(&metadataOnly, "metadata-only", false, "skip chunking/tagging/embedding, index session metadata only")
	cmd.Flags().BoolVar(&offline, "offline", false, "skip semantic embedding entirely, index lexically only")

	return cmd
}

func runReindex(cmd *cobra.Command, full, metadataOnly, offline bool) error {
	ctx := cmd.Context()
	out := output.New(cmd.OutOrStdout())

	st, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	var embedder embed.Embedder
	if !offline && !metadataOnly {
		if e := newEmbedderFromConfig(ctx, cfg); e != nil {
			embedder = e
			defer func() { _ = embedder.Close() }()
		} else {
			out.Warning("embedder unavailable, indexing lexically only")
		}
	}

	api, err := newReadAPI(st, cfg, embedder)
	if err != nil {
		return err
	}

	progress := func(current, total int, sessionID string) {
		out.Progress(current, total, sessionID)
	}

	start := time.Now()
	var stats index.Stats
	if full {
		stats, err = api.ReindexFull(ctx, index.ReindexOptions{MetadataOnly: metadataOnly, Progress: progress})
	} else {
		var maxAge time.Duration
		if cfg.Performance.IncrementalMaxAge != "" {
			maxAge = cfg.IncrementalMaxAgeDuration()
		}
		stats, err = api.ReindexIncremental(ctx, index.IncrementalOptions{MaxAge: maxAge, Progress: progress})
	}
	out.ProgressDone()
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}

	out.Successf("indexed %d sessions (%d skipped), %d messages, %d chunks in %s",
		stats.SessionsIndexed, stats.SessionsSkipped, stats.MessagesIndexed, stats.ChunksCreated, time.Since(start).Round(time.Millisecond))
	return nil
}
