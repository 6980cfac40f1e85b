package features

// maxFlowHistory caps the netflow percentile history at 30*24 samples, the
// original system's window size. computeOnchain pushes one sample per call
// (once per engine tick), so the window spans 720 ticks.
const maxFlowHistory = 30 * 24

// computeOnchain fills OnChain[20] from an HTTPProvider/degraded snapshot
// plus the running netflow history carried in hist for percentile ranking.
func computeOnchain(snap OnchainSnapshot, hist *ringBuffer) [OnChainLen]float64 {
	var out [OnChainLen]float64

	netflow := snap.ExchangeInflow - snap.ExchangeOutflow

	out[fExchangeInflow] = snap.ExchangeInflow
	out[fExchangeOutflow] = snap.ExchangeOutflow
	out[fNetflow] = netflow

	prevLen := 0
	hist.mu.Lock()
	prevLen = len(hist.values)
	var prevNetflow float64
	if prevLen > 0 {
		prevNetflow = hist.values[prevLen-1]
	}
	hist.mu.Unlock()

	out[fFlowPercentile] = hist.PercentileOf(netflow)
	hist.Push(netflow)
	if prevLen > 0 {
		out[fFlowVelocity] = netflow - prevNetflow
	}

	out[fLargeTxCount] = snap.LargeTxCount
	out[fWhaleAccumulation] = snap.WhaleAccumulation
	out[fWhaleDistribution] = snap.WhaleDistribution
	out[fSmartMoneyFlow] = snap.WhaleAccumulation - snap.WhaleDistribution
	out[fWhaleActivityScore] = whaleActivityScore(snap)

	out[fMinerReserve] = snap.MinerReserve
	out[fActiveAddresses] = snap.ActiveAddresses
	out[fTransactionCount] = snap.TransactionCount
	out[fSOPR] = snap.SOPR
	out[fSupplyOnExchange] = snap.SupplyOnExchange

	return out
}

// whaleActivityScore mirrors the original system's 50-baseline composite:
// transaction-count and net-accumulation adjustments, clamped to [0,100].
func whaleActivityScore(snap OnchainSnapshot) float64 {
	score := 50.0
	switch {
	case snap.LargeTxCount > 100:
		score += 10
	case snap.LargeTxCount < 20:
		score -= 10
	}
	netWhale := snap.WhaleAccumulation - snap.WhaleDistribution
	if netWhale > 0 {
		score += minF(20, netWhale*2)
	} else {
		score -= minF(20, absF(netWhale)*2)
	}
	return clamp(score, 0, 100)
}
