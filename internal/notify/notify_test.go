package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/btcsignalcore/engine/internal/budget"
	"github.com/btcsignalcore/engine/internal/quality"
	"github.com/btcsignalcore/engine/internal/regime"
	"github.com/btcsignalcore/engine/internal/signal"
	"github.com/btcsignalcore/engine/internal/strategy"
	"github.com/btcsignalcore/engine/internal/tracker"
)

type recordingChannel struct {
	messages []Message
}

func (r *recordingChannel) Send(ctx context.Context, msg Message) error {
	r.messages = append(r.messages, msg)
	return nil
}

func TestNotifyNewSignal_Delivers(t *testing.T) {
	ch := &recordingChannel{}
	mgr := NewManager(ch)

	sig := signal.Signal{Direction: strategy.Long, Strategy: strategy.TrendMomentum, Reasoning: "test reasoning"}
	err := mgr.NotifyNewSignal(context.Background(), sig)

	assert.NoError(t, err)
	assert.Len(t, ch.messages, 1)
	assert.Equal(t, "test reasoning", ch.messages[0].Body)
}

func TestTradeResult_LossIsWarning(t *testing.T) {
	ch := &recordingChannel{}
	mgr := NewManager(ch)

	mgr.TradeResult(context.Background(), tracker.Resolution{SignalID: "s1", Status: signal.Loss, ResultPnL: -7.5})

	assert.Len(t, ch.messages, 1)
	assert.Equal(t, SeverityWarning, ch.messages[0].Severity)
}

func TestDailyBudgetTransition_StopHitIsWarning(t *testing.T) {
	ch := &recordingChannel{}
	mgr := NewManager(ch)

	mgr.DailyBudgetTransition(context.Background(), budget.StopHit, -15)

	assert.Len(t, ch.messages, 1)
	assert.Equal(t, SeverityWarning, ch.messages[0].Severity)
}

func TestHealthAlert_AlwaysCritical(t *testing.T) {
	ch := &recordingChannel{}
	mgr := NewManager(ch)

	mgr.HealthAlert(context.Background(), "market-data", errors.New("stream disconnected"))

	assert.Len(t, ch.messages, 1)
	assert.Equal(t, SeverityCritical, ch.messages[0].Severity)
}

func TestQualityDegradation_CriticalTrendEscalates(t *testing.T) {
	ch := &recordingChannel{}
	mgr := NewManager(ch)

	mgr.QualityDegradation(context.Background(), quality.TrendCritical, 42.0)

	assert.Len(t, ch.messages, 1)
	assert.Equal(t, SeverityCritical, ch.messages[0].Severity)
}

func TestRegimeChange_Delivers(t *testing.T) {
	ch := &recordingChannel{}
	mgr := NewManager(ch)

	mgr.RegimeChange(context.Background(), regime.Ranging, regime.TrendingUp, 0.8)

	assert.Len(t, ch.messages, 1)
	assert.Contains(t, ch.messages[0].Body, "TRENDING_UP")
}

func TestManager_MultipleChannelsAllReceive(t *testing.T) {
	ch1, ch2 := &recordingChannel{}, &recordingChannel{}
	mgr := NewManager(ch1, ch2)

	mgr.HealthAlert(context.Background(), "store", errors.New("boom"))

	assert.Len(t, ch1.messages, 1)
	assert.Len(t, ch2.messages, 1)
}
