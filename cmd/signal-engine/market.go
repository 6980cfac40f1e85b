package main

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/btcsignalcore/engine/internal/market"
)

// backfillMarket seeds every timeframe's closed-candle history plus a
// current book/price/funding read before the live stream takes over,
// mirroring the assembler's documented startup sequence (§4.1).
func backfillMarket(ctx context.Context, provider market.DataProvider, snap *market.Snapshot, log zerolog.Logger) {
	for _, tf := range market.Timeframes {
		candles, err := provider.FetchKlines(ctx, tf, 500)
		if err != nil {
			log.Error().Err(err).Str("timeframe", string(tf)).Msg("failed to backfill klines")
			continue
		}
		snap.SeedCandles(tf, candles)
	}

	if book, err := provider.FetchBook(ctx); err != nil {
		log.Error().Err(err).Msg("failed to backfill order book")
	} else {
		snap.ApplyDepth(book)
	}

	if funding, err := provider.FetchFunding(ctx); err != nil {
		log.Error().Err(err).Msg("failed to backfill funding")
	} else {
		snap.ApplyMark(funding)
	}
}

// applyStreamEvent dispatches one normalized stream event into the snapshot.
func applyStreamEvent(snap *market.Snapshot, ev market.Event) {
	switch ev.Kind {
	case market.EventKline:
		snap.ApplyKline(ev.Timeframe, ev.Candle)
	case market.EventAggTrade:
		snap.ApplyTrade(ev.Trade)
	case market.EventDepth:
		snap.ApplyDepth(ev.Book)
	case market.EventMarkPrice:
		snap.ApplyMark(ev.Funding)
	}
}
