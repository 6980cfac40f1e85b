package features

import "time"

// fundingExtremeThreshold marks a funding rate as extreme beyond ±0.1%,
// matching the original system's constant.
const fundingExtremeThreshold = 0.001

// FundingState carries the cross-tick history a single funding-feature
// computation needs: the rate/price series used for trend, percentile and
// divergence, mirroring FundingAnalyzer's instance state in the original.
type FundingState struct {
	rateHistory  []float64
	priceHistory []float64
}

// NewFundingState returns empty funding history state.
func NewFundingState() *FundingState {
	return &FundingState{}
}

// computeFunding fills Funding[8] from the current funding rate/mark price,
// the next funding timestamp, and running history kept in state.
func computeFunding(state *FundingState, hist *ringBuffer, currentFunding, currentPrice float64, nextFundingTs, now time.Time) [FundingLen]float64 {
	var out [FundingLen]float64

	state.rateHistory = append(state.rateHistory, currentFunding)
	state.priceHistory = append(state.priceHistory, currentPrice)
	if len(state.rateHistory) > 90 {
		state.rateHistory = state.rateHistory[len(state.rateHistory)-90:]
		state.priceHistory = state.priceHistory[len(state.priceHistory)-90:]
	}

	out[fFundingCurrent] = currentFunding
	out[fFundingPredicted] = currentFunding

	out[fFundingTrend8h] = trendOverLast(state.rateHistory, 3)
	out[fFundingTrend24h] = trendOverLast(state.rateHistory, 9)

	out[fFundingExtreme] = boolF(absF(currentFunding) > fundingExtremeThreshold)

	out[fTimeToFunding] = timeToFundingMinutes(nextFundingTs, now)

	out[fFundingPercentile] = hist.PercentileOf(currentFunding)
	hist.Push(currentFunding)

	out[fFundingVsPriceDiv] = fundingVsPriceDivergence(state.rateHistory, state.priceHistory)

	return out
}

// trendOverLast is last-minus-first over the trailing n samples (n=3 for the
// 8h slot, n=9 for the 24h slot). computeFunding appends one sample per call,
// i.e. once per engine tick, so n counts ticks rather than 8h funding
// postings.
func trendOverLast(history []float64, n int) float64 {
	if len(history) < n {
		return 0
	}
	window := history[len(history)-n:]
	return window[len(window)-1] - window[0]
}

func timeToFundingMinutes(next, now time.Time) float64 {
	if next.After(now) {
		return next.Sub(now).Minutes()
	}
	hoursUntil := 8 - (now.Hour() % 8)
	if hoursUntil == 8 {
		hoursUntil = 0
	}
	return float64(hoursUntil*60 - now.Minute())
}

// fundingVsPriceDivergence flags funding and price trending in opposite
// directions over the trailing 3 samples, scaled the same way the original
// system scales it.
func fundingVsPriceDivergence(rateHistory, priceHistory []float64) float64 {
	if len(rateHistory) < 3 || len(priceHistory) < 3 {
		return 0
	}
	recentRate := rateHistory[len(rateHistory)-3:]
	recentPrice := priceHistory[len(priceHistory)-3:]

	fundingChange := recentRate[2] - recentRate[0]
	fundingBullish := fundingChange > 0

	if recentPrice[0] == 0 {
		return 0
	}
	priceChange := (recentPrice[2] - recentPrice[0]) / recentPrice[0]
	priceBullish := priceChange > 0

	if fundingBullish == priceBullish {
		return 0
	}
	divergence := absF(fundingChange*1000) + absF(priceChange*100)
	if fundingBullish {
		return divergence
	}
	return -divergence
}
