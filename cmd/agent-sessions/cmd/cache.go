package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ovachiever/agent-sessions/internal/cache"
	"github.com/ovachiever/agent-sessions/internal/output"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the legacy on-disk summary/metadata caches",
	}
	cmd.AddCommand(newCacheMigrateCmd())
	return cmd
}

func newCacheMigrateCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy the legacy summary cache into the session store",
		Long: `One-time migration of the legacy on-disk summary cache
(~/.factory/session-summaries.json by default) into the store's
summaries table. Sessions the store already has a summary for are
skipped, so running this repeatedly is a no-op.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheMigrate(cmd, path)
		},
	}
	cmd.Flags().StringVar(&path, "path", cache.DefaultSummaryCachePath(), "path to the legacy summary cache file")
	return cmd
}

func runCacheMigrate(cmd *cobra.Command, path string) error {
	out := output.New(cmd.OutOrStdout())

	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	summaryCache := cache.NewSummaryCache(path)
	migrated, err := cache.MigrateSummaries(summaryCache, st, nil)
	if err != nil {
		return fmt.Errorf("migrate summary cache: %w", err)
	}

	out.Successf("migrated %d summaries from %s", migrated, path)
	return nil
}
