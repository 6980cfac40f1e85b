package features

import "github.com/btcsignalcore/engine/internal/market"

// swingLookback is the half-window used to classify a candle as a local
// swing high/low when scanning the 5m sequence for structure.
const swingLookback = 3

// computePriceAction fills PriceAction[15] from the 5m candle sequence.
func computePriceAction(candles []market.Candle) [PriceActionLen]float64 {
	var out [PriceActionLen]float64
	if len(candles) == 0 {
		return out
	}

	last := candles[len(candles)-1]
	rng := last.Range()
	if rng > 0 {
		out[fBodyRatio] = last.BodyRatio()
		out[fUpperWickRatio] = last.UpperWick() / rng
		out[fLowerWickRatio] = last.LowerWick() / rng
	}

	out[fRangeExpansion] = rangeExpansion(candles)
	out[fBreakoutStrength] = breakoutStrength(candles)

	swingHighs, swingLows := findSwings(candles)
	out[fSwingHighDist] = distanceToLast(swingHighs, last.Close)
	out[fSwingLowDist] = distanceToLast(swingLows, last.Close)

	hh, ll, hl, lh := countSwingTransitions(swingHighs, swingLows)
	out[fHHCount] = float64(hh)
	out[fLLCount] = float64(ll)
	out[fHLCount] = float64(hl)
	out[fLHCount] = float64(lh)

	out[fTrendStructure] = trendStructure(hh, ll, hl, lh)
	out[fConsolidationBars] = float64(consolidationBars(candles))
	out[fVolatilityContraction] = volatilityContraction(candles)
	out[fKeyLevelDistance] = keyLevelDistance(candles, last.Close)

	return out
}

// rangeExpansion is the current bar's range over the mean range of the
// preceding 20 bars; 1.0 when there isn't enough history.
func rangeExpansion(candles []market.Candle) float64 {
	if len(candles) < 2 {
		return 1.0
	}
	last := candles[len(candles)-1]
	window := trailingWindow(candles[:len(candles)-1], 20)
	if len(window) == 0 {
		return 1.0
	}
	sum := 0.0
	for _, c := range window {
		sum += c.Range()
	}
	avg := sum / float64(len(window))
	if avg == 0 {
		return 1.0
	}
	return last.Range() / avg
}

// breakoutStrength is how far the current close has cleared the prior
// 20-bar high/low, normalized by the 20-bar average range.
func breakoutStrength(candles []market.Candle) float64 {
	if len(candles) < 2 {
		return 0
	}
	last := candles[len(candles)-1]
	window := trailingWindow(candles[:len(candles)-1], 20)
	if len(window) == 0 {
		return 0
	}
	hi, lo := window[0].High, window[0].Low
	sumRange := 0.0
	for _, c := range window {
		hi = maxF(hi, c.High)
		lo = minF(lo, c.Low)
		sumRange += c.Range()
	}
	avgRange := sumRange / float64(len(window))
	if avgRange == 0 {
		return 0
	}
	if last.Close > hi {
		return (last.Close - hi) / avgRange
	}
	if last.Close < lo {
		return (last.Close - lo) / avgRange
	}
	return 0
}

type swingPoint struct {
	index int
	price float64
}

// findSwings scans for local extrema using a symmetric lookback/lookahead
// window of swingLookback bars on each side.
func findSwings(candles []market.Candle) (highs, lows []swingPoint) {
	n := len(candles)
	for i := swingLookback; i < n-swingLookback; i++ {
		isHigh, isLow := true, true
		for j := i - swingLookback; j <= i+swingLookback; j++ {
			if j == i {
				continue
			}
			if candles[j].High >= candles[i].High {
				isHigh = false
			}
			if candles[j].Low <= candles[i].Low {
				isLow = false
			}
		}
		if isHigh {
			highs = append(highs, swingPoint{index: i, price: candles[i].High})
		}
		if isLow {
			lows = append(lows, swingPoint{index: i, price: candles[i].Low})
		}
	}
	return highs, lows
}

func distanceToLast(points []swingPoint, price float64) float64 {
	if len(points) == 0 || price == 0 {
		return 0
	}
	last := points[len(points)-1]
	return (price - last.price) / price
}

// countSwingTransitions counts higher-highs/lower-lows/higher-lows/lower-highs
// across consecutive swing points in the recent structure.
func countSwingTransitions(highs, lows []swingPoint) (hh, ll, hl, lh int) {
	for i := 1; i < len(highs); i++ {
		if highs[i].price > highs[i-1].price {
			hh++
		} else {
			lh++
		}
	}
	for i := 1; i < len(lows); i++ {
		if lows[i].price < lows[i-1].price {
			ll++
		} else {
			hl++
		}
	}
	return hh, ll, hl, lh
}

// trendStructure summarizes swing transitions into [-1,1]: positive for
// higher-highs/higher-lows dominance, negative for lower-lows/lower-highs.
func trendStructure(hh, ll, hl, lh int) float64 {
	up := hh + hl
	down := ll + lh
	total := up + down
	if total == 0 {
		return 0
	}
	return float64(up-down) / float64(total)
}

// consolidationBars counts the trailing run of candles whose range stays
// within 1.5x the ATR-scale implied by the last 20-bar average range.
func consolidationBars(candles []market.Candle) int {
	window := trailingWindow(candles, 20)
	if len(window) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range window {
		sum += c.Range()
	}
	avg := sum / float64(len(window))
	if avg == 0 {
		return 0
	}
	count := 0
	for i := len(candles) - 1; i >= 0; i-- {
		if candles[i].Range() > avg*1.5 {
			break
		}
		count++
	}
	return count
}

// volatilityContraction is the ratio of the most recent 10-bar average range
// to the preceding 10-bar average range; below 1.0 signals contraction.
func volatilityContraction(candles []market.Candle) float64 {
	if len(candles) < 20 {
		return 1.0
	}
	recent := candles[len(candles)-10:]
	prior := candles[len(candles)-20 : len(candles)-10]
	recentAvg := avgRange(recent)
	priorAvg := avgRange(prior)
	if priorAvg == 0 {
		return 1.0
	}
	return recentAvg / priorAvg
}

func avgRange(candles []market.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range candles {
		sum += c.Range()
	}
	return sum / float64(len(candles))
}

// keyLevelDistance is the normalized distance from price to the nearest
// round-number key level (nearest multiple of 500 for BTC-scale prices).
func keyLevelDistance(candles []market.Candle, price float64) float64 {
	_ = candles
	if price == 0 {
		return 0
	}
	const step = 500.0
	nearest := step * float64(round(price/step))
	return (price - nearest) / price
}

func round(v float64) int64 {
	if v >= 0 {
		return int64(v + 0.5)
	}
	return int64(v - 0.5)
}

func trailingWindow(candles []market.Candle, n int) []market.Candle {
	if len(candles) <= n {
		return candles
	}
	return candles[len(candles)-n:]
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
