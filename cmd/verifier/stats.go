package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/btcsignalcore/engine/internal/budget"
	"github.com/btcsignalcore/engine/internal/store"
)

// dailyStatsRefreshInterval controls how often today's aggregate row in
// daily_stats is recomputed; it only needs to track resolutions loosely
// since it backs reporting, not the budget state machine itself.
const dailyStatsRefreshInterval = 5 * time.Minute

// summaryInterval controls how often the daily-progress notification fires.
const summaryInterval = 30 * time.Minute

type summaryNotifier interface {
	DailySummary(ctx context.Context, p budget.Progress)
}

// runDailySummary periodically reports today's pace toward the daily target
// regardless of whether any signal has resolved recently.
func runDailySummary(ctx context.Context, mgr *budget.Manager, notifier summaryNotifier, log zerolog.Logger) {
	ticker := time.NewTicker(summaryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			progress, err := mgr.TodayProgress(ctx, time.Now().UTC())
			if err != nil {
				log.Warn().Err(err).Msg("failed to load daily progress")
				continue
			}
			notifier.DailySummary(ctx, progress)
		}
	}
}

// runDailyStatsRefresh periodically recomputes today's daily_stats row so
// dashboards and the periodic summary notification have fresh aggregates
// without waiting on the next resolution.
func runDailyStatsRefresh(ctx context.Context, st *store.Store, log zerolog.Logger) {
	ticker := time.NewTicker(dailyStatsRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			today := time.Now().UTC()
			if err := st.RefreshDailyStats(ctx, today); err != nil {
				log.Warn().Err(err).Msg("failed to refresh daily stats")
			}
		}
	}
}
