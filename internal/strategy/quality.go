package strategy

import "github.com/btcsignalcore/engine/internal/features"

// setupQuality is the weighted sum of six components, each independently
// capped at its listed weight: MTF 20, Volume/CVD 20, Key Levels 15,
// OnChain 15, Momentum 15, Microstructure 15.
func setupQuality(vec features.Vector, dir Direction) float64 {
	return mtfScore(vec, dir) +
		volumeCVDScore(vec, dir) +
		keyLevelsScore(vec) +
		onchainScore(vec, dir) +
		momentumScore(vec, dir) +
		microstructureScore(vec, dir)
}

// mtfScore awards up to 20: 10 for alignment count >= 3, plus up to 10
// scaled by confluence score.
func mtfScore(vec features.Vector, dir Direction) float64 {
	score := 0.0
	if directionSign(dir)*vec.MTFAlignment() > 0 {
		if vec.MTFAlignmentCount() >= 3 {
			score += 10
		} else if vec.MTFAlignmentCount() >= 2 {
			score += 5
		}
	}
	score += clamp(vec.MTFConfluenceScore(), 0, 1) * 10
	return score
}

// volumeCVDScore awards up to 20 from CVD trend direction and magnitude.
func volumeCVDScore(vec features.Vector, dir Direction) float64 {
	score := 0.0
	if directionSign(dir)*vec.CVDTrend() > 0 {
		score += 12
	}
	if directionSign(dir)*vec.CVD() > 0 {
		score += 8
	}
	return score
}

// keyLevelsScore awards up to 15 for proximity to a key level / HTF support
// or resistance.
func keyLevelsScore(vec features.Vector) float64 {
	score := 0.0
	if absF(vec.KeyLevelDistance()) < 0.005 {
		score += 7
	}
	if absF(vec.HTFSupportDist()) < 0.01 || absF(vec.HTFResistanceDist()) < 0.01 {
		score += 8
	}
	return score
}

// onchainScore awards up to 15 from whale activity and netflow direction.
func onchainScore(vec features.Vector, dir Direction) float64 {
	score := 0.0
	whaleScore := clamp((vec.WhaleActivityScore()-50)/50, -1, 1)
	if directionSign(dir)*whaleScore > 0 {
		score += 8
	}
	if directionSign(dir)*vec.SmartMoneyFlow() > 0 {
		score += 7
	}
	return score
}

// momentumScore awards up to 15 from RSI positioning and MACD histogram sign.
func momentumScore(vec features.Vector, dir Direction) float64 {
	score := 0.0
	rsi := vec.RSI14()
	if dir == Long && rsi > 40 && rsi < 70 {
		score += 8
	}
	if dir == Short && rsi < 60 && rsi > 30 {
		score += 8
	}
	if directionSign(dir)*vec.MACDHistogram() > 0 {
		score += 7
	}
	return score
}

// microstructureScore awards up to 15 from order book imbalance and
// aggressor ratio direction.
func microstructureScore(vec features.Vector, dir Direction) float64 {
	score := 0.0
	if directionSign(dir)*vec.OrderbookImbalance() > 0 {
		score += 8
	}
	aggressorSkew := vec.AggressorRatio() - 0.5
	if directionSign(dir)*aggressorSkew > 0 {
		score += 7
	}
	return score
}

func directionSign(dir Direction) float64 {
	if dir == Long {
		return 1
	}
	return -1
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
