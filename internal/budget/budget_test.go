package budget

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btcsignalcore/engine/internal/tracker"
)

type memStore struct {
	states map[string]DailyState
}

func newMemStore() *memStore { return &memStore{states: make(map[string]DailyState)} }

func (m *memStore) key(d time.Time) string { return dateOnly(d).Format("2006-01-02") }

func (m *memStore) GetOrCreateDailyState(ctx context.Context, date time.Time) (DailyState, error) {
	k := m.key(date)
	if s, ok := m.states[k]; ok {
		return s, nil
	}
	s := NewDailyState(date)
	m.states[k] = s
	return s, nil
}

func (m *memStore) SaveDailyState(ctx context.Context, state DailyState) error {
	m.states[m.key(state.Date)] = state
	return nil
}

func TestOnResolved_WinAccumulatesPnL(t *testing.T) {
	store := newMemStore()
	mgr := New(store)
	now := time.Now().UTC()

	err := mgr.OnResolved(context.Background(), tracker.Resolution{
		Status: "WIN", ResultPnL: 15, ResultTs: now,
	})
	require.NoError(t, err)

	state, _ := store.GetOrCreateDailyState(context.Background(), now)
	assert.Equal(t, 15.0, state.PnL)
	assert.Equal(t, 1, state.Wins)
	assert.Equal(t, 0, state.ConsecutiveLosses)
}

func TestOnResolved_TargetHitTransition(t *testing.T) {
	store := newMemStore()
	mgr := New(store)
	now := time.Now().UTC()

	require.NoError(t, mgr.OnResolved(context.Background(), tracker.Resolution{Status: "WIN", ResultPnL: 15, ResultTs: now}))

	state, _ := store.GetOrCreateDailyState(context.Background(), now)
	assert.Equal(t, TargetHit, state.Status)
	assert.NotNil(t, state.TargetHitAt)
}

func TestOnResolved_StopHitTransition(t *testing.T) {
	store := newMemStore()
	mgr := New(store)
	now := time.Now().UTC()

	require.NoError(t, mgr.OnResolved(context.Background(), tracker.Resolution{Status: "LOSS", ResultPnL: -7.5, ResultTs: now}))
	require.NoError(t, mgr.OnResolved(context.Background(), tracker.Resolution{Status: "LOSS", ResultPnL: -7.5, ResultTs: now}))

	state, _ := store.GetOrCreateDailyState(context.Background(), now)
	assert.Equal(t, StopHit, state.Status)
	assert.Equal(t, 2, state.ConsecutiveLosses)
}

func TestOnResolved_MonotoneStatusNeverReverts(t *testing.T) {
	store := newMemStore()
	mgr := New(store)
	now := time.Now().UTC()

	require.NoError(t, mgr.OnResolved(context.Background(), tracker.Resolution{Status: "WIN", ResultPnL: 15, ResultTs: now}))
	// A further resolved trade the same day must not move status back to ACTIVE.
	require.NoError(t, mgr.OnResolved(context.Background(), tracker.Resolution{Status: "LOSS", ResultPnL: -7.5, ResultTs: now}))

	state, _ := store.GetOrCreateDailyState(context.Background(), now)
	assert.Equal(t, TargetHit, state.Status)
}

func TestOnResolved_MaxTradesTransition(t *testing.T) {
	store := newMemStore()
	mgr := New(store)
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		require.NoError(t, mgr.MarkPositionOpen(context.Background(), now))
		require.NoError(t, mgr.OnResolved(context.Background(), tracker.Resolution{Status: "LOSS", ResultPnL: -1, ResultTs: now}))
	}

	state, _ := store.GetOrCreateDailyState(context.Background(), now)
	assert.Equal(t, MaxTrades, state.Status)
	assert.Equal(t, 3, state.TradeCount)
}

func TestTodayBudget_ConvertsToGateShape(t *testing.T) {
	store := newMemStore()
	mgr := New(store)
	now := time.Now().UTC()

	bs, err := mgr.TodayBudget(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", bs.Status)
	assert.Equal(t, 0, bs.TradeCount)
}

func TestInCooldown_TrueAfterTwoConsecutiveLosses(t *testing.T) {
	now := time.Now().UTC()
	s := DailyState{ConsecutiveLosses: 2, LastTradeAt: &now}
	assert.True(t, s.InCooldown(now.Add(10*time.Minute)))
	assert.False(t, s.InCooldown(now.Add(61*time.Minute)))
}

func TestProgress_PartialTargetReportsPctAndRemaining(t *testing.T) {
	now := time.Now().UTC()
	s := DailyState{Date: dateOnly(now), PnL: 5, TradeCount: 1, Status: Active}
	p := s.Progress()
	assert.Equal(t, 50.0, p.TargetPct)
	assert.Equal(t, 2, p.TradesRemaining)
	assert.Equal(t, Active, p.Status)
}

func TestProgress_ClampsAboveHundredAndZeroRemaining(t *testing.T) {
	now := time.Now().UTC()
	s := DailyState{Date: dateOnly(now), PnL: 25, TradeCount: 5, Status: TargetHit}
	p := s.Progress()
	assert.Equal(t, 100.0, p.TargetPct)
	assert.Equal(t, 0, p.TradesRemaining)
}

func TestProgress_NegativePnLReportsZeroPct(t *testing.T) {
	now := time.Now().UTC()
	s := DailyState{Date: dateOnly(now), PnL: -3, TradeCount: 0, Status: Active}
	p := s.Progress()
	assert.Equal(t, 0.0, p.TargetPct)
}

func TestTodayProgress_LoadsFromStore(t *testing.T) {
	store := newMemStore()
	mgr := New(store)
	now := time.Now().UTC()

	require.NoError(t, mgr.MarkPositionOpen(context.Background(), now))
	require.NoError(t, mgr.OnResolved(context.Background(), tracker.Resolution{Status: "WIN", ResultPnL: 4, ResultTs: now}))

	p, err := mgr.TodayProgress(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 4.0, p.PnL)
	assert.Equal(t, 2, p.TradesRemaining)
}
