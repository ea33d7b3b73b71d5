package analytics

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"career-twin/internal/storage"
)

type sessionLoader interface {
	LoadSessions(ctx context.Context) ([]storage.Entry, error)
}

type compactor interface {
	Compact(ctx context.Context, keep int) (int, error)
}

type notifier interface {
	Notify(ctx context.Context, text string) error
}

// DailyReport builds a job that summarizes the current UTC day and hands
// the text to n.
func DailyReport(store sessionLoader, n notifier, now func() time.Time) func(ctx context.Context) error {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context) error {
		entries, err := store.LoadSessions(ctx)
		if err != nil {
			return errors.Wrap(err, "load sessions for report")
		}
		stats := AnalyzeDay(entries, now().UTC())
		if err := n.Notify(ctx, stats.GenerateReportSummary()); err != nil {
			return errors.Wrap(err, "deliver daily report")
		}
		return nil
	}
}

// Compaction builds a job that trims the store to the newest keep sessions.
func Compaction(store compactor, keep int) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		removed, err := store.Compact(ctx, keep)
		if err != nil {
			return errors.Wrap(err, "compact session log")
		}
		log.Info().Int("removed", removed).Int("keep", keep).Msg("session log compacted")
		return nil
	}
}
