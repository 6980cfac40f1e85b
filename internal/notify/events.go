package notify

import (
	"context"
	"fmt"

	"github.com/btcsignalcore/engine/internal/budget"
	"github.com/btcsignalcore/engine/internal/quality"
	"github.com/btcsignalcore/engine/internal/regime"
	"github.com/btcsignalcore/engine/internal/signal"
	"github.com/btcsignalcore/engine/internal/tracker"
)

// NewSignal reports a freshly accepted PENDING signal (C6 step 9).
func (m *Manager) NewSignal(ctx context.Context, s signal.Signal) {
	m.send(ctx, Message{
		Title:    fmt.Sprintf("New %s Signal", s.Direction),
		Body:     s.Reasoning,
		Severity: SeverityInfo,
		Metadata: map[string]interface{}{
			"strategy":      s.Strategy,
			"entry":         s.Entry,
			"stop":          s.Stop,
			"target":        s.Target,
			"setup_quality": s.SetupQuality,
		},
	})
}

// NotifyNewSignal implements internal/signal.Notifier.
func (m *Manager) NotifyNewSignal(ctx context.Context, s signal.Signal) error {
	m.NewSignal(ctx, s)
	return nil
}

// RegimeChange reports a transition between market regimes.
func (m *Manager) RegimeChange(ctx context.Context, from, to regime.Regime, confidence float64) {
	m.send(ctx, Message{
		Title:    "Regime Change",
		Body:     fmt.Sprintf("%s -> %s (confidence %.2f)", from, to, confidence),
		Severity: SeverityInfo,
	})
}

// TradeResult reports a resolved signal's outcome (C7 step 5).
func (m *Manager) TradeResult(ctx context.Context, r tracker.Resolution) {
	severity := SeverityInfo
	if r.Status == signal.Loss {
		severity = SeverityWarning
	}
	m.send(ctx, Message{
		Title:    fmt.Sprintf("Signal %s", r.Status),
		Body:     fmt.Sprintf("%s at %.2f, pnl %.2f (%s)", r.SignalID, r.ResultPrice, r.ResultPnL, r.ResultReason),
		Severity: severity,
		Metadata: map[string]interface{}{"mfe": r.MFE, "mae": r.MAE, "duration_min": r.DurationMin},
	})
}

// DailyBudgetTransition reports a daily state leaving ACTIVE (C8).
func (m *Manager) DailyBudgetTransition(ctx context.Context, status budget.Status, pnl float64) {
	severity := SeverityInfo
	if status == budget.StopHit {
		severity = SeverityWarning
	}
	m.send(ctx, Message{
		Title:    fmt.Sprintf("Daily Budget: %s", status),
		Body:     fmt.Sprintf("Trading halted for today at pnl %.2f", pnl),
		Severity: severity,
	})
}

// DailySummary reports today's progress toward the daily target, used by the
// Verifier's periodic summary tick (not tied to any single resolution).
func (m *Manager) DailySummary(ctx context.Context, p budget.Progress) {
	m.send(ctx, Message{
		Title:    fmt.Sprintf("Daily Progress: %s", p.Status),
		Body:     fmt.Sprintf("pnl %.2f (%.0f%% of target), %d trades remaining", p.PnL, p.TargetPct, p.TradesRemaining),
		Severity: SeverityInfo,
	})
}

// HealthAlert reports a subsystem failure or degraded condition (C1/C11
// failure semantics: logged always, propagated never).
func (m *Manager) HealthAlert(ctx context.Context, component string, err error) {
	m.send(ctx, Message{
		Title:    fmt.Sprintf("Health Alert: %s", component),
		Body:     err.Error(),
		Severity: SeverityCritical,
	})
}

// QualityDegradation reports the quality scorer's rolling-trend alert (C9).
func (m *Manager) QualityDegradation(ctx context.Context, trend quality.Trend, mean float64) {
	severity := SeverityWarning
	if trend == quality.TrendCritical {
		severity = SeverityCritical
	}
	m.send(ctx, Message{
		Title:    fmt.Sprintf("Trade Quality %s", trend),
		Body:     fmt.Sprintf("10-sample mean trade_iq is %.1f", mean),
		Severity: severity,
	})
}
