// Package strategy proposes a (strategy, direction) pair from the current
// feature vector and regime, then scores the proposal's setup quality.
package strategy

import (
	"github.com/btcsignalcore/engine/internal/features"
	"github.com/btcsignalcore/engine/internal/regime"
)

// Name identifies one of the four tradable strategies.
type Name string

const (
	TrendMomentum   Name = "TREND_MOMENTUM"
	LiquidationHunt Name = "LIQUIDATION_HUNT"
	FundingFade     Name = "FUNDING_FADE"
	RangeScalping   Name = "RANGE_SCALPING"
)

// Direction is the proposed trade side.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// minSetupQuality is the floor below which a proposal is dropped.
const minSetupQuality = 70.0

// fundingExtremeThreshold and liqZoneThreshold match the selection-order
// thresholds documented for the proposer.
const (
	fundingExtremeThreshold = 0.001
	liqZoneThreshold        = 0.02
	liqDensityThreshold     = 5_000_000.0
)

// Proposal is the proposer's output for one tick, or the zero value (check
// OK) when nothing qualifies.
type Proposal struct {
	Strategy     Name
	Direction    Direction
	SetupQuality float64
	Entry        float64
	Target       float64
	Stop         float64
	OK           bool
}

// Propose selects exactly one (strategy, direction) or returns OK=false.
// entry is the current price used to compute target/stop.
func Propose(vec features.Vector, reg regime.Result, entry float64) Proposal {
	if strat, dir, ok := selectStrategyDirection(vec, reg); ok {
		if !directionAllowed(reg, dir) {
			return Proposal{}
		}
		quality := setupQuality(vec, dir)
		if quality < minSetupQuality {
			return Proposal{}
		}
		target, stop := computePrices(entry, dir)
		return Proposal{Strategy: strat, Direction: dir, SetupQuality: quality, Entry: entry, Target: target, Stop: stop, OK: true}
	}
	return Proposal{}
}

// directionAllowed enforces the hard direction-vs-regime invariant: in a
// trending regime, direction must match trend direction unless exhaustion
// risk exceeds 0.7.
func directionAllowed(reg regime.Result, dir Direction) bool {
	switch reg.Regime {
	case regime.TrendingUp:
		return dir == Long || reg.ExhaustionRisk > 0.7
	case regime.TrendingDown:
		return dir == Short || reg.ExhaustionRisk > 0.7
	default:
		return true
	}
}

// selectStrategyDirection follows the documented selection order. Once a
// category is selected by its precedence condition, a validator miss means
// no proposal this tick — it does not fall through to the next category.
func selectStrategyDirection(vec features.Vector, reg regime.Result) (Name, Direction, bool) {
	if absF(vec.FundingCurrent()) > fundingExtremeThreshold {
		dir, ok := fundingFade(vec)
		return FundingFade, dir, ok
	}
	if nearLiqZone(vec) {
		dir, ok := liquidationHuntAny(vec)
		return LiquidationHunt, dir, ok
	}
	switch reg.Regime {
	case regime.TrendingUp, regime.TrendingDown:
		dir, ok := trendMomentum(vec)
		return TrendMomentum, dir, ok
	case regime.Ranging:
		dir, ok := rangeScalping(vec)
		return RangeScalping, dir, ok
	case regime.HighVolatility:
		dir, ok := liquidationHuntAny(vec)
		return LiquidationHunt, dir, ok
	}
	return "", "", false
}

func nearLiqZone(vec features.Vector) bool {
	return vec.DistanceToLongLiq() < liqZoneThreshold || vec.DistanceToShortLiq() < liqZoneThreshold
}

func trendMomentum(vec features.Vector) (Direction, bool) {
	ema9, ema21, ema50 := vec.EMA9(), vec.EMA21(), vec.EMA50()
	rsi := vec.RSI14()
	priceNearEMA21 := ema21 != 0 && absF((ema9-ema21)/ema21) <= 0.003
	funding := vec.FundingCurrent()

	if ema9 > ema21 && ema21 > ema50 && priceNearEMA21 && rsi > 40 && rsi < 60 && vec.CVDTrend() > 0 && funding <= 0.0005 {
		return Long, true
	}
	if ema9 < ema21 && ema21 < ema50 && priceNearEMA21 && rsi > 40 && rsi < 60 && vec.CVDTrend() < 0 && funding >= -0.0005 {
		return Short, true
	}
	return "", false
}

// liquidationHuntAny checks either side; regime-direction gating (for the
// trending regimes) is applied afterward via directionAllowed.
func liquidationHuntAny(vec features.Vector) (Direction, bool) {
	if liqHuntSide(vec, Long) {
		return Long, true
	}
	if liqHuntSide(vec, Short) {
		return Short, true
	}
	return "", false
}

func liqHuntSide(vec features.Vector, dir Direction) bool {
	if dir == Long {
		return vec.DistanceToLongLiq() < liqZoneThreshold &&
			vec.LongLiqDensity1Pct() > liqDensityThreshold &&
			vec.OrderbookImbalance() > 0 &&
			vec.CVDTrend() > 0
	}
	return vec.DistanceToShortLiq() < liqZoneThreshold &&
		vec.ShortLiqDensity1Pct() > liqDensityThreshold &&
		vec.OrderbookImbalance() < 0 &&
		vec.CVDTrend() < 0
}

func fundingFade(vec features.Vector) (Direction, bool) {
	funding := vec.FundingCurrent()
	rsi := vec.RSI14()
	if funding < -fundingExtremeThreshold && rsi < 50 {
		return Long, true
	}
	if funding > fundingExtremeThreshold && rsi > 50 {
		return Short, true
	}
	return "", false
}

func rangeScalping(vec features.Vector) (Direction, bool) {
	rsi := vec.RSI14()
	if rsi < 35 && vec.LowerWickRatio() > 0.5 && vec.CVD() > 0 {
		return Long, true
	}
	if rsi > 65 && vec.UpperWickRatio() > 0.5 && vec.CVD() < 0 {
		return Short, true
	}
	return "", false
}

// computePrices applies the fixed 0.5%/0.25% target/stop offsets by
// direction.
func computePrices(entry float64, dir Direction) (target, stop float64) {
	if dir == Long {
		return entry * 1.005, entry * 0.9975
	}
	return entry * 0.995, entry * 1.0025
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
