package features

import "github.com/btcsignalcore/engine/internal/market"

// largeOrderThreshold is the USD notional above which a trade counts toward
// large_order_flow.
const largeOrderThreshold = 100_000.0

// pocBinSize rounds trade prices to the nearest $10 when building the volume
// profile used for point-of-control distance.
const pocBinSize = 10.0

// MicrostructureState carries the cross-tick CVD history and volume profile
// a single microstructure computation needs, mirroring MicrostructureAnalyzer's
// instance state in the original system.
type MicrostructureState struct {
	cvdHistory    []float64
	volumeProfile map[float64]float64
}

// NewMicrostructureState returns empty microstructure state.
func NewMicrostructureState() *MicrostructureState {
	return &MicrostructureState{volumeProfile: make(map[float64]float64)}
}

// computeMicrostructure fills Microstructure[12] from the recent trade tape,
// current order book, last price and 5m VWAP.
func computeMicrostructure(state *MicrostructureState, trades []market.Trade, book market.Book, currentPrice, vwapValue float64, hist *ringBuffer) [MicrostructureLen]float64 {
	var out [MicrostructureLen]float64

	cvd, cvdTrend := computeCVD(state, trades)
	out[fCVD] = cvd
	out[fCVDTrend] = cvdTrend

	imbalance, imbalance10 := orderbookImbalance(book)
	out[fOrderbookImbalance] = imbalance
	out[fOrderbookImbalance10] = imbalance10

	spreadBps := book.SpreadBps() * 10000
	out[fSpreadBps] = spreadBps
	out[fSpreadPercentile] = hist.PercentileOf(spreadBps)
	hist.Push(spreadBps)

	out[fDepthRatio] = depthRatio(book)

	out[fLargeOrderFlow] = largeOrderFlow(trades)
	out[fTapeSpeed] = float64(len(trades))
	out[fAggressorRatio] = aggressorRatio(trades)

	out[fVWAPDistance] = vwapDistanceOf(currentPrice, vwapValue)

	updateVolumeProfile(state, trades)
	poc := pointOfControl(state)
	if poc > 0 && currentPrice > 0 {
		out[fPOCDistance] = (currentPrice - poc) / currentPrice
	}

	return out
}

func computeCVD(state *MicrostructureState, trades []market.Trade) (cvd, trend float64) {
	if len(trades) == 0 {
		return 0, 0
	}
	var buyVol, sellVol float64
	for _, t := range trades {
		if t.IsBuy() {
			buyVol += t.Notional()
		} else {
			sellVol += t.Notional()
		}
	}
	cvd = buyVol - sellVol

	state.cvdHistory = append(state.cvdHistory, cvd)
	if len(state.cvdHistory) > 100 {
		state.cvdHistory = state.cvdHistory[len(state.cvdHistory)-100:]
	}

	if len(state.cvdHistory) >= 10 {
		recent := state.cvdHistory[len(state.cvdHistory)-10:]
		if recent[0] != 0 {
			trend = (recent[len(recent)-1] - recent[0]) / absF(recent[0])
		}
	}
	return cvd, trend
}

func orderbookImbalance(book market.Book) (full, top10 float64) {
	if len(book.Bids) == 0 || len(book.Asks) == 0 {
		return 0, 0
	}
	var totalBid, totalAsk float64
	for _, b := range book.Bids {
		totalBid += b.Qty * b.Price
	}
	for _, a := range book.Asks {
		totalAsk += a.Qty * a.Price
	}
	total := totalBid + totalAsk
	if total > 0 {
		full = (totalBid - totalAsk) / total
	}

	bid10 := sumLevels(book.Bids, 10)
	ask10 := sumLevels(book.Asks, 10)
	total10 := bid10 + ask10
	if total10 > 0 {
		top10 = (bid10 - ask10) / total10
	}
	return full, top10
}

func sumLevels(levels []market.BookLevel, n int) float64 {
	if len(levels) < n {
		n = len(levels)
	}
	var sum float64
	for _, l := range levels[:n] {
		sum += l.Qty * l.Price
	}
	return sum
}

// depthRatio is the fraction of total book quantity sitting within 0.1% of
// mid price.
func depthRatio(book market.Book) float64 {
	if len(book.Bids) == 0 || len(book.Asks) == 0 {
		return 0
	}
	mid := book.Mid()
	if mid == 0 {
		return 0
	}
	rangeUp := mid * 1.001
	rangeDown := mid * 0.999

	var bidDepth, askDepth, totalBid, totalAsk float64
	for _, b := range book.Bids {
		totalBid += b.Qty
		if b.Price >= rangeDown {
			bidDepth += b.Qty
		}
	}
	for _, a := range book.Asks {
		totalAsk += a.Qty
		if a.Price <= rangeUp {
			askDepth += a.Qty
		}
	}
	total := totalBid + totalAsk
	if total == 0 {
		return 0
	}
	return (bidDepth + askDepth) / total
}

func largeOrderFlow(trades []market.Trade) float64 {
	var total float64
	for _, t := range trades {
		if v := t.Notional(); v >= largeOrderThreshold {
			total += v
		}
	}
	return total
}

func aggressorRatio(trades []market.Trade) float64 {
	if len(trades) == 0 {
		return 0.5
	}
	buys := 0
	for _, t := range trades {
		if t.IsBuy() {
			buys++
		}
	}
	return float64(buys) / float64(len(trades))
}

func vwapDistanceOf(currentPrice, vwapValue float64) float64 {
	if vwapValue == 0 {
		return 0
	}
	return (currentPrice - vwapValue) / vwapValue
}

const maxVolumeProfileLevels = 50

func updateVolumeProfile(state *MicrostructureState, trades []market.Trade) {
	if len(trades) == 0 {
		return
	}
	for _, t := range trades {
		level := roundTo(t.Price, pocBinSize)
		state.volumeProfile[level] += t.Qty * t.Price
	}
	if len(state.volumeProfile) > maxVolumeProfileLevels*2 {
		trimVolumeProfile(state, maxVolumeProfileLevels)
	}
}

func trimVolumeProfile(state *MicrostructureState, keep int) {
	type levelVolume struct {
		level  float64
		volume float64
	}
	levels := make([]levelVolume, 0, len(state.volumeProfile))
	for l, v := range state.volumeProfile {
		levels = append(levels, levelVolume{l, v})
	}
	for i := 0; i < len(levels); i++ {
		maxIdx := i
		for j := i + 1; j < len(levels); j++ {
			if levels[j].volume > levels[maxIdx].volume {
				maxIdx = j
			}
		}
		levels[i], levels[maxIdx] = levels[maxIdx], levels[i]
	}
	if keep > len(levels) {
		keep = len(levels)
	}
	trimmed := make(map[float64]float64, keep)
	for _, lv := range levels[:keep] {
		trimmed[lv.level] = lv.volume
	}
	state.volumeProfile = trimmed
}

func pointOfControl(state *MicrostructureState) float64 {
	if len(state.volumeProfile) == 0 {
		return 0
	}
	var pocLevel, maxVol float64
	first := true
	for l, v := range state.volumeProfile {
		if first || v > maxVol {
			pocLevel, maxVol = l, v
			first = false
		}
	}
	return pocLevel
}

func roundTo(v, step float64) float64 {
	return step * float64(round(v/step))
}
