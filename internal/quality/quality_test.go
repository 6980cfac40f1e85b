package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_WinWithHighConfidenceScoresHigh(t *testing.T) {
	in := Inputs{
		Confidence: 0.9, SetupQuality: 85, MFE: 0.5, MAE: 0.1,
		Status: "WIN", MarginPlanned: 150, MarginActual: 150, PnLPct: 0.005,
	}
	score := Score(in)
	assert.Greater(t, score, 70.0)
	assert.LessOrEqual(t, score, 100.0)
}

func TestScore_LossWithHighConfidencePenalized(t *testing.T) {
	high := Score(Inputs{Confidence: 0.9, SetupQuality: 85, MFE: 0.1, MAE: 0.5, Status: "LOSS", MarginPlanned: 150, MarginActual: 150})
	low := Score(Inputs{Confidence: 0.5, SetupQuality: 70, MFE: 0.1, MAE: 0.5, Status: "LOSS", MarginPlanned: 150, MarginActual: 150})
	assert.Less(t, high, low)
}

func TestTimingScore_AllFavorableIsHundred(t *testing.T) {
	assert.Equal(t, 100.0, timingScore(1.0, 0))
}

func TestTimingScore_NoExcursionIsNeutral(t *testing.T) {
	assert.Equal(t, 50.0, timingScore(0, 0))
}

func TestPositionAccuracyScore_WithinDollarIsHundred(t *testing.T) {
	assert.Equal(t, 100.0, positionAccuracyScore(150, 150.5))
}

func TestPositionAccuracyScore_FallsOffLinearly(t *testing.T) {
	score := positionAccuracyScore(150, 175)
	assert.Less(t, score, 100.0)
	assert.Greater(t, score, 0.0)
}

func TestHistory_TrendWarningBelowSixty(t *testing.T) {
	h := NewHistory()
	for i := 0; i < 10; i++ {
		h.Add(55)
	}
	mean, trend := h.Trend()
	assert.Equal(t, 55.0, mean)
	assert.Equal(t, TrendWarning, trend)
}

func TestHistory_TrendCriticalBelowFifty(t *testing.T) {
	h := NewHistory()
	for i := 0; i < 10; i++ {
		h.Add(40)
	}
	_, trend := h.Trend()
	assert.Equal(t, TrendCritical, trend)
}

func TestHistory_TrendOKAboveSixty(t *testing.T) {
	h := NewHistory()
	for i := 0; i < 10; i++ {
		h.Add(80)
	}
	_, trend := h.Trend()
	assert.Equal(t, TrendOK, trend)
}

func TestHistory_BoundedAtHundred(t *testing.T) {
	h := NewHistory()
	for i := 0; i < 150; i++ {
		h.Add(float64(i))
	}
	assert.Len(t, h.scores, historySize)
}

func TestHistory_DirectionImprovingOnRisingScores(t *testing.T) {
	h := NewHistory()
	for _, s := range []float64{40, 40, 40, 40, 40, 70, 70, 70, 70, 70} {
		h.Add(s)
	}
	assert.Equal(t, Improving, h.Direction())
}

func TestHistory_DirectionDecliningOnFallingScores(t *testing.T) {
	h := NewHistory()
	for _, s := range []float64{70, 70, 70, 70, 70, 40, 40, 40, 40, 40} {
		h.Add(s)
	}
	assert.Equal(t, Declining, h.Direction())
}

func TestHistory_DirectionStableWithinDelta(t *testing.T) {
	h := NewHistory()
	for i := 0; i < 10; i++ {
		h.Add(65)
	}
	assert.Equal(t, Stable, h.Direction())
}

func TestHistory_DirectionStableBelowTwoSamples(t *testing.T) {
	h := NewHistory()
	h.Add(90)
	assert.Equal(t, Stable, h.Direction())
}
