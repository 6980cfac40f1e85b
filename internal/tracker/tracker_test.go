package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/btcsignalcore/engine/internal/strategy"
)

func TestDecide_LongHitsTarget(t *testing.T) {
	tr := &Tracker{open: make(map[string]*extremes)}
	sig := PendingSignal{ID: "a", Direction: strategy.Long, Entry: 100, Stop: 97.5, Target: 100.5, CreatedAt: time.Now()}
	ext := newExtremes(sig.Entry, sig.Direction, sig.CreatedAt)
	ext.update(100.6)

	res, resolved := tr.decide(sig, ext, 100.6, time.Now())
	assert.True(t, resolved)
	assert.Equal(t, "TP_HIT", res.ResultReason)
	assert.Equal(t, winPnL, res.ResultPnL)
}

func TestDecide_TieFavorsTP(t *testing.T) {
	tr := &Tracker{open: make(map[string]*extremes)}
	// A price that simultaneously satisfies both the target and stop
	// conditions (pathological but must resolve to TP per the tie-break rule).
	sig := PendingSignal{ID: "b", Direction: strategy.Long, Entry: 100, Stop: 100.5, Target: 100.5, CreatedAt: time.Now()}
	ext := newExtremes(sig.Entry, sig.Direction, sig.CreatedAt)
	ext.update(100.5)

	res, resolved := tr.decide(sig, ext, 100.5, time.Now())
	assert.True(t, resolved)
	assert.Equal(t, "TP_HIT", res.ResultReason)
}

func TestDecide_ShortHitsStop(t *testing.T) {
	tr := &Tracker{open: make(map[string]*extremes)}
	sig := PendingSignal{ID: "c", Direction: strategy.Short, Entry: 100, Stop: 100.25, Target: 99.5, CreatedAt: time.Now()}
	ext := newExtremes(sig.Entry, sig.Direction, sig.CreatedAt)
	ext.update(100.3)

	res, resolved := tr.decide(sig, ext, 100.3, time.Now())
	assert.True(t, resolved)
	assert.Equal(t, "SL_HIT", res.ResultReason)
	assert.Equal(t, lossPnL, res.ResultPnL)
}

func TestDecide_Timeout(t *testing.T) {
	tr := &Tracker{open: make(map[string]*extremes)}
	created := time.Now().Add(-241 * time.Minute)
	sig := PendingSignal{ID: "d", Direction: strategy.Long, Entry: 100, Stop: 97.5, Target: 100.5, CreatedAt: created}
	ext := newExtremes(sig.Entry, sig.Direction, created)
	ext.update(100.2)

	res, resolved := tr.decide(sig, ext, 100.2, time.Now())
	assert.True(t, resolved)
	assert.Equal(t, "TIMEOUT", res.ResultReason)
	assert.InDelta(t, 6.0, res.ResultPnL, 0.01) // 0.2% of entry * $3000
}

func TestDecide_NoResolutionWhileOpen(t *testing.T) {
	tr := &Tracker{open: make(map[string]*extremes)}
	sig := PendingSignal{ID: "e", Direction: strategy.Long, Entry: 100, Stop: 97.5, Target: 100.5, CreatedAt: time.Now()}
	ext := newExtremes(sig.Entry, sig.Direction, sig.CreatedAt)
	ext.update(100.1)

	_, resolved := tr.decide(sig, ext, 100.1, time.Now())
	assert.False(t, resolved)
}

func TestExtremes_MFEMAE_Long(t *testing.T) {
	ext := newExtremes(100, strategy.Long, time.Now())
	ext.update(101)
	ext.update(99)
	mfe, mae := ext.mfeMae()
	assert.InDelta(t, 1.0, mfe, 0.001)
	assert.InDelta(t, 1.0, mae, 0.001)
}

func TestExtremes_MFEMAE_Short(t *testing.T) {
	ext := newExtremes(100, strategy.Short, time.Now())
	ext.update(101)
	ext.update(98)
	mfe, mae := ext.mfeMae()
	assert.InDelta(t, 2.0, mfe, 0.001)
	assert.InDelta(t, 1.0, mae, 0.001)
}
