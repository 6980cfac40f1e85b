package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/btcsignalcore/engine/internal/features"
)

func vecWith(set func(v *features.Vector)) features.Vector {
	var v features.Vector
	set(&v)
	return v
}

func TestClassify_HighVolatility(t *testing.T) {
	vec := vecWith(func(v *features.Vector) {
		v[features.TechnicalStart+13] = 85 // atr_percentile
	})
	result := Classify(vec, ExhaustionInputs{})
	assert.Equal(t, HighVolatility, result.Regime)
	assert.InDelta(t, 0.85, result.Confidence, 1e-9)
}

func TestClassify_TrendingUp(t *testing.T) {
	vec := vecWith(func(v *features.Vector) {
		v[features.TechnicalStart+14] = 30 // adx
		v[features.TechnicalStart+2] = 103 // ema9
		v[features.TechnicalStart+3] = 102 // ema21
		v[features.TechnicalStart+4] = 101 // ema50
	})
	result := Classify(vec, ExhaustionInputs{})
	assert.Equal(t, TrendingUp, result.Regime)
	assert.GreaterOrEqual(t, result.Confidence, 0.65)
}

func TestClassify_TrendingDown(t *testing.T) {
	vec := vecWith(func(v *features.Vector) {
		v[features.TechnicalStart+14] = 45 // adx
		v[features.TechnicalStart+2] = 98  // ema9
		v[features.TechnicalStart+3] = 99  // ema21
		v[features.TechnicalStart+4] = 100 // ema50
	})
	result := Classify(vec, ExhaustionInputs{})
	assert.Equal(t, TrendingDown, result.Regime)
}

func TestClassify_DefaultChoppy(t *testing.T) {
	vec := vecWith(func(v *features.Vector) {
		v[features.TechnicalStart+14] = 22 // adx<25 (+10), body_ratio 0 (+10) -> choppiness 70 > 50 and adx<25 -> CHOPPY
	})
	result := Classify(vec, ExhaustionInputs{})
	assert.Equal(t, Choppy, result.Regime)
}

func TestClassify_Ranging(t *testing.T) {
	vec := vecWith(func(v *features.Vector) {
		v[features.TechnicalStart+14] = 28 // adx >= 25, choppiness base 50-10=40 < 50
		v[features.PriceActionStart] = 0.5 // body_ratio >= 0.3, so no +10 body bonus
	})
	result := Classify(vec, ExhaustionInputs{})
	assert.Equal(t, Ranging, result.Regime)
}

func TestExhaustionRisk_Weighted(t *testing.T) {
	vec := features.Vector{}
	result := Classify(vec, ExhaustionInputs{
		RSIDivergence:   1,
		VolDeclining:    1,
		BodyShrinking:   1,
		ExtremeRSI:      1,
		OnchainDivDelta: 1,
	})
	assert.InDelta(t, 1.0, result.ExhaustionRisk, 1e-9)
}

func TestStructureQuality_Baseline(t *testing.T) {
	vec := features.Vector{}
	result := Classify(vec, ExhaustionInputs{})
	assert.InDelta(t, 0.6, result.StructureQuality, 1e-9)
}
