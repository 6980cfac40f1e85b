package features

import (
	"context"
	"time"

	"github.com/btcsignalcore/engine/internal/market"
	"github.com/btcsignalcore/engine/internal/metrics"
)

// State carries every piece of cross-tick memory the feature groups need:
// the two percentile ring buffers, the onchain flow history, the funding
// rate/price history and the microstructure CVD/volume-profile history.
// One State lives for the lifetime of the signal-engine process.
type State struct {
	Histories      *Histories
	FlowHistory    *ringBuffer
	Funding        *FundingState
	Microstructure *MicrostructureState
}

// NewState builds empty cross-tick feature state.
func NewState() *State {
	return &State{
		Histories:      NewHistories(),
		FlowHistory:    newRingBuffer(maxFlowHistory),
		Funding:        NewFundingState(),
		Microstructure: NewMicrostructureState(),
	}
}

// Compute derives the full 100-slot Vector from the current market snapshot,
// the external-data cache (onchain/liquidation), and the process's running
// feature state. degraded lists any groups that fell back to neutral values
// because their upstream data was unavailable.
func Compute(ctx context.Context, snap *market.Snapshot, ext *ExtCache, state *State) (vec Vector, degraded []string) {
	start := time.Now()
	defer func() {
		metrics.RecordFeatureCompute(float64(time.Since(start).Milliseconds()))
		for _, group := range degraded {
			metrics.RecordDegradedFeatureGroup(group)
		}
	}()

	candles5m := snap.Candles(market.TF5m)
	currentPrice := snap.LastPrice()

	writeGroup(&vec, TechnicalStart, computeTechnical(candles5m, state.Histories)[:])
	writeGroup(&vec, PriceActionStart, computePriceAction(candles5m)[:])

	candlesByTF := map[market.Timeframe][]market.Candle{
		market.TF1m:  snap.Candles(market.TF1m),
		market.TF3m:  snap.Candles(market.TF3m),
		market.TF5m:  candles5m,
		market.TF15m: snap.Candles(market.TF15m),
	}
	writeGroup(&vec, MTFStart, computeMTF(candlesByTF)[:])

	onchainSnap, err := ext.OnchainSnapshot(ctx)
	if err != nil {
		degraded = append(degraded, "onchain")
		onchainSnap = OnchainSnapshot{SOPR: 1.0}
	}
	writeGroup(&vec, OnChainStart, computeOnchain(onchainSnap, state.FlowHistory)[:])

	levels, err := ext.LiquidationLevels(ctx)
	if err != nil {
		degraded = append(degraded, "liquidation")
		levels = nil
	}
	vol1h, _ := ext.LiquidationVolume(ctx, "h1")
	vol24h, _ := ext.LiquidationVolume(ctx, "h24")
	writeGroup(&vec, LiquidationStart, computeLiquidation(levels, vol1h, vol24h, currentPrice)[:])

	funding := snap.Funding()
	writeGroup(&vec, FundingStart, computeFunding(state.Funding, state.Histories.Funding, funding.Rate, currentPrice, funding.NextFundingTs, time.Now().UTC())[:])

	book := snap.Book()
	trades := snap.Trades()
	vwapValue := vec[TechnicalStart+fVWAP]
	writeGroup(&vec, MicrostructureStart, computeMicrostructure(state.Microstructure, trades, book, currentPrice, vwapValue, state.Histories.Spread)[:])

	return vec, degraded
}

func writeGroup(vec *Vector, start int, values []float64) {
	for i, v := range values {
		vec[start+i] = v
	}
}
