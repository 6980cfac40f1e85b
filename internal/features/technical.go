package features

import (
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"

	"github.com/btcsignalcore/engine/internal/market"
)

// computeTechnical fills Technical[20] from the 5m candle sequence. RSI is
// Wilder via cinar/indicator/v2/momentum; EMA/MACD via .../trend; Bollinger
// via .../volatility. ATR/ADX/Stochastic/VWAP are computed directly — the
// pack's indicator library has no ADX, and matching the Wilder-TR-average
// ATR and the spec's unsmoothed-DX-as-ADX quirk exactly is simpler hand
// rolled than coaxed out of a generic library.
func computeTechnical(candles []market.Candle, hist *Histories) [TechnicalLen]float64 {
	var out [TechnicalLen]float64
	if len(candles) == 0 {
		out[fRSI7] = 50
		out[fRSI14] = 50
		return out
	}

	closes := closesOf(candles)

	out[fRSI7] = lastOrDefault(runRSI(closes, 7), 50)
	out[fRSI14] = lastOrDefault(runRSI(closes, 14), 50)

	out[fEMA9] = lastOrDefault(runEMA(closes, 9), closes[len(closes)-1])
	out[fEMA21] = lastOrDefault(runEMA(closes, 21), closes[len(closes)-1])
	out[fEMA50] = lastOrDefault(runEMA(closes, 50), closes[len(closes)-1])
	out[fEMA200] = lastOrDefault(runEMA(closes, 200), closes[len(closes)-1])

	macdLine, macdSignal, macdHist := runMACD(closes)
	out[fMACDLine] = macdLine
	out[fMACDSignal] = macdSignal
	out[fMACDHistogram] = macdHist

	upper, lower, position := runBollinger(closes)
	out[fBBUpper] = upper
	out[fBBLower] = lower
	out[fBBPosition] = position

	atr := wilderATR(candles, 14)
	out[fATR14] = atr
	hist.ATR.Push(atr)
	out[fATRPercentile] = hist.ATR.PercentileOf(atr)

	adx, plusDI, minusDI := unsmoothedDX(candles, 14)
	out[fADX] = adx
	out[fPlusDI] = plusDI
	out[fMinusDI] = minusDI

	k, d := stochastic(candles, 14, 3)
	out[fStochK] = k
	out[fStochD] = d

	out[fVWAP] = vwap(candles)

	return out
}

func closesOf(candles []market.Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

func toChan(values []float64) chan float64 {
	ch := make(chan float64, len(values))
	for _, v := range values {
		ch <- v
	}
	close(ch)
	return ch
}

func drain(ch chan float64) []float64 {
	var out []float64
	for v := range ch {
		out = append(out, v)
	}
	return out
}

func lastOrDefault(values []float64, def float64) float64 {
	if len(values) == 0 {
		return def
	}
	return values[len(values)-1]
}

func runRSI(closes []float64, period int) []float64 {
	if period < 1 || period >= len(closes) {
		return nil
	}
	ind := momentum.NewRsiWithPeriod[float64](period)
	return drain(ind.Compute(toChan(closes)))
}

func runEMA(closes []float64, period int) []float64 {
	if period < 1 || period > len(closes) {
		return nil
	}
	ind := trend.NewEmaWithPeriod[float64](period)
	return drain(ind.Compute(toChan(closes)))
}

func runMACD(closes []float64) (line, signal, histogram float64) {
	if len(closes) < 26+9 {
		return 0, 0, 0
	}
	ind := trend.NewMacdWithPeriod[float64](12, 26, 9)
	macdChan, signalChan := ind.Compute(toChan(closes))
	macdValues := drain(macdChan)
	signalValues := drain(signalChan)
	line = lastOrDefault(macdValues, 0)
	signal = lastOrDefault(signalValues, 0)
	return line, signal, line - signal
}

func runBollinger(closes []float64) (upper, lower, position float64) {
	if len(closes) < 20 {
		price := lastOrDefault(closes, 0)
		return price, price, 0.5
	}
	ind := volatility.NewBollingerBandsWithPeriod[float64](20)
	lowerChan, _, upperChan := ind.Compute(toChan(closes))
	lowerValues := drain(lowerChan)
	upperValues := drain(upperChan)
	upper = lastOrDefault(upperValues, closes[len(closes)-1])
	lower = lastOrDefault(lowerValues, closes[len(closes)-1])
	price := closes[len(closes)-1]
	if upper == lower {
		return upper, lower, 0.5
	}
	position = clamp((price-lower)/(upper-lower), 0, 1)
	return upper, lower, position
}

// wilderATR computes the Wilder-smoothed average true range: the first
// period true ranges seed a simple mean, and every later true range in the
// sequence is folded in with Wilder smoothing.
func wilderATR(candles []market.Candle, period int) float64 {
	if len(candles) < 2 {
		return 0
	}
	trs := trueRanges(candles)
	if len(trs) == 0 {
		return 0
	}
	if len(trs) < period {
		period = len(trs)
	}
	return wilderSmooth(trs, period)
}

func trueRanges(candles []market.Candle) []float64 {
	trs := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prevClose := candles[i-1].Close
		c := candles[i]
		tr := max3(
			c.High-c.Low,
			absF(c.High-prevClose),
			absF(c.Low-prevClose),
		)
		trs = append(trs, tr)
	}
	return trs
}

func wilderSmooth(values []float64, period int) float64 {
	if len(values) < period {
		period = len(values)
	}
	if period == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values[:period] {
		sum += v
	}
	avg := sum / float64(period)
	for _, v := range values[period:] {
		avg = (avg*float64(period-1) + v) / float64(period)
	}
	return avg
}

// unsmoothedDX computes a single-bar DX (Wilder +DI/-DI without retained
// smoothing across bars) and reports it as ADX, preserving the original
// system's documented quirk (spec.md Open Question on ADX).
func unsmoothedDX(candles []market.Candle, period int) (adx, plusDI, minusDI float64) {
	if len(candles) < period+1 {
		return 0, 0, 0
	}
	window := candles[len(candles)-period-1:]

	var plusDM, minusDM, trSum float64
	for i := 1; i < len(window); i++ {
		upMove := window[i].High - window[i-1].High
		downMove := window[i-1].Low - window[i].Low
		if upMove > downMove && upMove > 0 {
			plusDM += upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM += downMove
		}
		trSum += max3(
			window[i].High-window[i].Low,
			absF(window[i].High-window[i-1].Close),
			absF(window[i].Low-window[i-1].Close),
		)
	}
	if trSum == 0 {
		return 0, 0, 0
	}
	plusDI = 100 * plusDM / trSum
	minusDI = 100 * minusDM / trSum
	diSum := plusDI + minusDI
	if diSum == 0 {
		return 0, plusDI, minusDI
	}
	dx := 100 * absF(plusDI-minusDI) / diSum
	return dx, plusDI, minusDI
}

func stochastic(candles []market.Candle, kPeriod, dPeriod int) (k, d float64) {
	if len(candles) < kPeriod {
		return 50, 50
	}
	kValues := make([]float64, 0, dPeriod)
	for i := len(candles) - dPeriod; i < len(candles); i++ {
		if i < kPeriod-1 {
			continue
		}
		window := candles[i-kPeriod+1 : i+1]
		hi, lo := window[0].High, window[0].Low
		for _, c := range window {
			hi = max(hi, c.High)
			lo = min(lo, c.Low)
		}
		if hi == lo {
			kValues = append(kValues, 50)
			continue
		}
		kValues = append(kValues, 100*(window[len(window)-1].Close-lo)/(hi-lo))
	}
	k = lastOrDefault(kValues, 50)
	if len(kValues) == 0 {
		return 50, 50
	}
	sum := 0.0
	for _, v := range kValues {
		sum += v
	}
	d = sum / float64(len(kValues))
	return k, d
}

func vwap(candles []market.Candle) float64 {
	var notional, volume float64
	for _, c := range candles {
		notional += c.Close * c.Volume
		volume += c.Volume
	}
	if volume == 0 {
		return lastOrDefault(closesOf(candles), 0)
	}
	return notional / volume
}

func max3(a, b, c float64) float64 {
	return max(max(a, b), c)
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
