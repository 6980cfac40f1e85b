// Package budget implements the per-UTC-day trading budget state machine:
// once a day leaves ACTIVE it never re-enters until the midnight reset.
package budget

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsignalcore/engine/internal/gates"
	"github.com/btcsignalcore/engine/internal/tracker"
)

// Status is the daily budget's lifecycle state.
type Status string

const (
	Active    Status = "ACTIVE"
	TargetHit Status = "TARGET_HIT"
	StopHit   Status = "STOP_HIT"
	MaxTrades Status = "MAX_TRADES"
)

const (
	targetPnL           = 10.0
	stopPnL             = -15.0
	maxTradeCount       = 3
	cooldownAfterLosses = 2
	cooldownMinutes     = 60.0
)

// DailyState is one row per UTC date. The Signal Engine marks a position
// open at emission (MarkPositionOpen); the Verifier applies resolutions
// (OnResolved).
type DailyState struct {
	Date              time.Time // UTC midnight
	PnL               float64
	TradeCount        int
	Wins              int
	Losses            int
	ConsecutiveLosses int
	HasPosition       bool
	Status            Status
	TargetHitAt       *time.Time
	StopHitAt         *time.Time
	LastTradeAt       *time.Time
}

// NewDailyState returns a fresh ACTIVE row for the given UTC date.
func NewDailyState(date time.Time) DailyState {
	return DailyState{Date: dateOnly(date), Status: Active}
}

func dateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Store is the durable-store surface the budget manager depends on.
type Store interface {
	GetOrCreateDailyState(ctx context.Context, date time.Time) (DailyState, error)
	SaveDailyState(ctx context.Context, state DailyState) error
}

// Notifier is the optional C11 collaborator informed when a day transitions
// out of ACTIVE.
type Notifier interface {
	DailyBudgetTransition(ctx context.Context, status Status, pnl float64)
}

// Manager applies resolved-signal outcomes to the current day's state and
// answers gate-pipeline budget queries.
type Manager struct {
	Store    Store
	Notifier Notifier
}

func New(store Store) *Manager {
	return &Manager{Store: store}
}

// ResetDailyStateIfNeeded replaces (never deletes) the row for today's UTC
// date if one does not already exist — idempotent under retry.
func (m *Manager) ResetDailyStateIfNeeded(ctx context.Context, now time.Time) error {
	_, err := m.Store.GetOrCreateDailyState(ctx, now)
	return err
}

// OnResolved applies a resolved signal's pnl/outcome to today's daily state
// and re-evaluates the status transition. Implements tracker.BudgetUpdater.
func (m *Manager) OnResolved(ctx context.Context, res tracker.Resolution) error {
	state, err := m.Store.GetOrCreateDailyState(ctx, res.ResultTs)
	if err != nil {
		return fmt.Errorf("load daily state: %w", err)
	}

	state.PnL += res.ResultPnL
	state.HasPosition = false
	ts := res.ResultTs

	if res.Status == "WIN" {
		state.Wins++
		state.ConsecutiveLosses = 0
	} else {
		state.Losses++
		state.ConsecutiveLosses++
	}
	state.LastTradeAt = &ts

	wasActive := state.Status == Active
	transition(&state, ts)
	if wasActive && state.Status != Active && m.Notifier != nil {
		m.Notifier.DailyBudgetTransition(ctx, state.Status, state.PnL)
	}

	return m.Store.SaveDailyState(ctx, state)
}

// transition applies the monotone ACTIVE -> {TARGET_HIT, STOP_HIT,
// MAX_TRADES} transition. A day that has already left ACTIVE is untouched.
func transition(state *DailyState, now time.Time) {
	if state.Status != Active {
		return
	}
	switch {
	case state.PnL >= targetPnL:
		state.Status = TargetHit
		state.TargetHitAt = &now
	case state.PnL <= stopPnL:
		state.Status = StopHit
		state.StopHitAt = &now
	case state.TradeCount >= maxTradeCount:
		state.Status = MaxTrades
	}
}

// MinutesSinceLastTrade reports the cooldown clock G5 needs; a very large
// value is returned when there has been no trade yet today.
func (s DailyState) MinutesSinceLastTrade(now time.Time) float64 {
	if s.LastTradeAt == nil {
		return cooldownMinutes * 100
	}
	return now.Sub(*s.LastTradeAt).Minutes()
}

// InCooldown reports whether G5's consecutive-loss cooldown currently
// blocks a new signal.
func (s DailyState) InCooldown(now time.Time) bool {
	return s.ConsecutiveLosses >= cooldownAfterLosses && s.MinutesSinceLastTrade(now) < cooldownMinutes
}

// TodayBudget loads (or creates) today's row and converts it to the shape
// the gate pipeline's G5 evaluator expects.
func (m *Manager) TodayBudget(ctx context.Context, now time.Time) (gates.BudgetState, error) {
	state, err := m.Store.GetOrCreateDailyState(ctx, now)
	if err != nil {
		return gates.BudgetState{}, err
	}
	return gates.BudgetState{
		PnL:                   state.PnL,
		TradeCount:            state.TradeCount,
		Status:                string(state.Status),
		HasPosition:           state.HasPosition,
		ConsecutiveLosses:     state.ConsecutiveLosses,
		MinutesSinceLastTrade: state.MinutesSinceLastTrade(now),
	}, nil
}

// Progress is a point-in-time summary of today's pace toward the daily
// target, used by the Verifier's periodic summary notification.
type Progress struct {
	PnL             float64
	TargetPct       float64 // pnl as a percentage of the daily target, clamped to [0,100] when pnl >= 0
	TradesRemaining int
	Status          Status
}

// Progress reports today's pace toward the daily target and trade cap.
func (s DailyState) Progress() Progress {
	targetPct := 0.0
	if s.PnL > 0 {
		targetPct = s.PnL / targetPnL * 100
		if targetPct > 100 {
			targetPct = 100
		}
	}
	remaining := maxTradeCount - s.TradeCount
	if remaining < 0 {
		remaining = 0
	}
	return Progress{PnL: s.PnL, TargetPct: targetPct, TradesRemaining: remaining, Status: s.Status}
}

// TodayProgress loads (or creates) today's row and summarizes it for the
// periodic summary notification.
func (m *Manager) TodayProgress(ctx context.Context, now time.Time) (Progress, error) {
	state, err := m.Store.GetOrCreateDailyState(ctx, now)
	if err != nil {
		return Progress{}, err
	}
	return state.Progress(), nil
}

// MarkPositionOpen flags today's row as holding an open position and counts
// the trade against today's cap, called by the engine immediately after
// persisting a new PENDING signal (spec step 8: trade_count increments at
// emission, not at resolution).
func (m *Manager) MarkPositionOpen(ctx context.Context, now time.Time) error {
	state, err := m.Store.GetOrCreateDailyState(ctx, now)
	if err != nil {
		return err
	}
	state.HasPosition = true
	state.TradeCount++
	wasActive := state.Status == Active
	transition(&state, now)
	if wasActive && state.Status != Active && m.Notifier != nil {
		m.Notifier.DailyBudgetTransition(ctx, state.Status, state.PnL)
	}
	return m.Store.SaveDailyState(ctx, state)
}
