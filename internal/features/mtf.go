package features

import "github.com/btcsignalcore/engine/internal/market"

// computeMTF fills MTF[15] from the 15m, 5m, 3m and 1m candle sequences,
// scoring cross-timeframe trend alignment against the 5m-anchored feature
// set computed elsewhere.
func computeMTF(candlesByTF map[market.Timeframe][]market.Candle) [MTFLen]float64 {
	var out [MTFLen]float64

	trend15, strength15, rsi15 := timeframeTrend(candlesByTF[market.TF15m])
	out[fTrend15m] = trend15
	out[fStrength15m] = strength15
	out[fRSI15m] = rsi15

	trend5, strength5, rsi5 := timeframeTrend(candlesByTF[market.TF5m])
	out[fTrend5m] = trend5
	out[fStrength5m] = strength5
	out[fRSI5m] = rsi5

	out[fMomentum3m] = momentum(candlesByTF[market.TF3m], 10)
	out[fMomentum1m] = momentum(candlesByTF[market.TF1m], 10)

	out[fMTFAlignment] = mtfAlignment(trend15, trend5, out[fMomentum3m], out[fMomentum1m])
	out[fMTFConfluenceScore] = mtfConfluence(strength15, strength5, out[fMTFAlignment])

	support, resistance := htfLevels(candlesByTF[market.TF15m])
	price := lastClose(candlesByTF[market.TF5m])
	out[fHTFSupportDist] = normalizedDistance(price, support)
	out[fHTFResistanceDist] = normalizedDistance(price, resistance)

	out[fTFDivergence] = tfDivergence(trend15, trend5)
	out[fMomentumAcceleration] = momentumAcceleration(candlesByTF[market.TF1m])
	out[fTrendAgeBars] = float64(trendAgeBars(candlesByTF[market.TF5m]))

	return out
}

// timeframeTrend reports direction in [-1,1] (EMA21 vs EMA50 slope sign
// scaled by separation), strength in [0,1] and RSI-14 for a timeframe.
func timeframeTrend(candles []market.Candle) (direction, strength, rsi float64) {
	if len(candles) < 21 {
		return 0, 0, 50
	}
	closes := closesOf(candles)
	ema21 := lastOrDefault(runEMA(closes, 21), closes[len(closes)-1])
	ema50 := lastOrDefault(runEMA(closes, minInt(50, len(closes))), closes[len(closes)-1])
	price := closes[len(closes)-1]
	if price == 0 {
		return 0, 0, 50
	}
	sep := (ema21 - ema50) / price
	direction = clamp(sep*50, -1, 1)
	strength = clamp(absF(sep)*50, 0, 1)
	rsi = lastOrDefault(runRSI(closes, 14), 50)
	return direction, strength, rsi
}

func momentum(candles []market.Candle, lookback int) float64 {
	if len(candles) <= lookback {
		return 0
	}
	recent := candles[len(candles)-1].Close
	past := candles[len(candles)-1-lookback].Close
	if past == 0 {
		return 0
	}
	return (recent - past) / past
}

// mtfAlignment is the fraction of the four timeframe direction signals that
// agree in sign with the 5m direction, in [-1,1] (negative when the
// majority opposes 5m).
func mtfAlignment(trend15, trend5, momentum3, momentum1 float64) float64 {
	signals := []float64{trend15, trend5, momentum3, momentum1}
	anchor := sign(trend5)
	if anchor == 0 {
		return 0
	}
	agree := 0
	for _, s := range signals {
		if sign(s) == anchor {
			agree++
		}
	}
	return float64(2*agree-len(signals)) / float64(len(signals))
}

func mtfConfluence(strength15, strength5, alignment float64) float64 {
	return clamp((strength15+strength5)/2*absF(alignment), 0, 1)
}

// htfLevels returns the 15m swing high/low over the trailing 50 bars as
// naive resistance/support anchors.
func htfLevels(candles []market.Candle) (support, resistance float64) {
	window := trailingWindow(candles, 50)
	if len(window) == 0 {
		return 0, 0
	}
	support, resistance = window[0].Low, window[0].High
	for _, c := range window {
		support = minF(support, c.Low)
		resistance = maxF(resistance, c.High)
	}
	return support, resistance
}

func normalizedDistance(price, level float64) float64 {
	if price == 0 || level == 0 {
		return 0
	}
	return (price - level) / price
}

func lastClose(candles []market.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	return candles[len(candles)-1].Close
}

func tfDivergence(trend15, trend5 float64) float64 {
	return absF(trend15 - trend5)
}

// momentumAcceleration is the change in 1m momentum between the most recent
// and prior 10-bar windows.
func momentumAcceleration(candles []market.Candle) float64 {
	if len(candles) < 21 {
		return 0
	}
	current := momentum(candles, 10)
	prior := momentum(candles[:len(candles)-10], 10)
	return current - prior
}

// trendAgeBars counts how many trailing 5m bars have kept the same EMA21-vs-
// EMA50 sign as the current bar.
func trendAgeBars(candles []market.Candle) int {
	if len(candles) < 51 {
		return 0
	}
	closes := closesOf(candles)
	ema21 := runEMA(closes, 21)
	ema50 := runEMA(closes, 50)
	if len(ema21) == 0 || len(ema50) == 0 {
		return 0
	}
	offset := len(closes) - len(ema21)
	ema50Offset := len(closes) - len(ema50)

	currentSign := sign(ema21[len(ema21)-1] - ema50[len(ema50)-1])
	if currentSign == 0 {
		return 0
	}
	age := 0
	for i := len(ema21) - 1; i >= 0; i-- {
		j := i + offset - ema50Offset
		if j < 0 || j >= len(ema50) {
			break
		}
		if sign(ema21[i]-ema50[j]) != currentSign {
			break
		}
		age++
	}
	return age
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
