package cache

import (
	"log/slog"

	"github.com/ovachiever/agent-sessions/internal/model"
)

// SummaryStore is the subset of *store.Store that migration needs,
// kept narrow so this package doesn't import internal/store directly.
type SummaryStore interface {
	GetSummary(sessionID string) (*model.Summary, error)
	UpsertSummary(sum model.Summary) error
}

// MigrateSummaries copies every entry from the legacy on-disk summary
// cache into dst's summaries table, skipping sessions that already
// have a stored summary. It does not delete the on-disk cache file;
// callers decide when the legacy file is safe to remove. Returns the
// number of summaries migrated.
func MigrateSummaries(cache *SummaryCache, dst SummaryStore, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	migrated := 0
	for sessionID, entry := range cache.Entries() {
		existing, err := dst.GetSummary(sessionID)
		if err != nil {
			return migrated, err
		}
		if existing != nil {
			continue
		}

		err = dst.UpsertSummary(model.Summary{
			SessionID:   sessionID,
			Text:        entry.Summary,
			ModelName:   "legacy-cache",
			ContentHash: entry.Hash,
		})
		if err != nil {
			logger.Warn("migrate summary failed", "session_id", sessionID, "error", err)
			continue
		}
		migrated++
	}

	logger.Info("summary cache migration complete", "migrated", migrated)
	return migrated, nil
}
