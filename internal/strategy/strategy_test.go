package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/btcsignalcore/engine/internal/features"
	"github.com/btcsignalcore/engine/internal/regime"
)

func TestDirectionAllowed_TrendingUpRejectsShort(t *testing.T) {
	reg := regime.Result{Regime: regime.TrendingUp, ExhaustionRisk: 0.1}
	assert.True(t, directionAllowed(reg, Long))
	assert.False(t, directionAllowed(reg, Short))
}

func TestDirectionAllowed_ExhaustionException(t *testing.T) {
	reg := regime.Result{Regime: regime.TrendingUp, ExhaustionRisk: 0.8}
	assert.True(t, directionAllowed(reg, Short))
}

func TestComputePrices_Long(t *testing.T) {
	target, stop := computePrices(100, Long)
	assert.InDelta(t, 100.5, target, 1e-9)
	assert.InDelta(t, 99.75, stop, 1e-9)
}

func TestComputePrices_Short(t *testing.T) {
	target, stop := computePrices(100, Short)
	assert.InDelta(t, 99.5, target, 1e-9)
	assert.InDelta(t, 100.25, stop, 1e-9)
}

func TestFundingFade_LongOnExtremeNegativeFunding(t *testing.T) {
	var vec features.Vector
	vec[features.FundingStart+0] = -0.002 // funding_current
	vec[features.TechnicalStart+1] = 40   // rsi_14
	dir, ok := fundingFade(vec)
	assert.True(t, ok)
	assert.Equal(t, Long, dir)
}

func TestRangeScalping_Long(t *testing.T) {
	var vec features.Vector
	vec[features.TechnicalStart+1] = 30        // rsi_14
	vec[features.PriceActionStart+2] = 0.6     // lower_wick_ratio
	vec[features.MicrostructureStart+0] = 10.0 // cvd
	dir, ok := rangeScalping(vec)
	assert.True(t, ok)
	assert.Equal(t, Long, dir)
}

func TestPropose_SetupQualityFloorRejects(t *testing.T) {
	var vec features.Vector
	vec[features.FundingStart+0] = -0.002
	vec[features.TechnicalStart+1] = 40
	reg := regime.Result{Regime: regime.Ranging}
	proposal := Propose(vec, reg, 100)
	assert.False(t, proposal.OK)
}
