package market

import (
	"context"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2/futures"
	"github.com/rs/zerolog"

	"github.com/btcsignalcore/engine/internal/metrics"
)

// idleTimeout is the WS read idle window; exceeding it without any event is
// treated as a dead connection and triggers a reconnect.
const idleTimeout = 30 * time.Second

// reconnectBackoff is the fixed back-off applied after any sub-stream closes.
const reconnectBackoff = 5 * time.Second

// EventKind identifies the dispatch key of a combined-stream message, named
// after the exchange's own "e" field values.
type EventKind string

const (
	EventKline     EventKind = "kline"
	EventAggTrade  EventKind = "aggTrade"
	EventDepth     EventKind = "depthUpdate"
	EventMarkPrice EventKind = "markPriceUpdate"
)

// Event is a dispatched stream message, normalized to the package's own
// types so downstream code never touches go-binance wire structs directly.
type Event struct {
	Kind      EventKind
	Timeframe Timeframe // set only for Kline events
	Candle    Candle    // set only for Kline events
	Trade     Trade     // set only for AggTrade events
	Book      Book      // set only for Depth events
	Funding   Funding   // set only for MarkPrice events
}

// Stream maintains the combined WebSocket subscriptions for one symbol
// (kline per timeframe, aggregate trades, top-20 depth at 100ms, mark price
// at 1s) and dispatches normalized events to handler. State in Snapshot is
// never cleared across reconnects — only rebuilt from new events.
type Stream struct {
	symbol  string
	log     zerolog.Logger
	handler func(Event)
}

// NewStream builds a combined-stream subscriber for symbol.
func NewStream(symbol string, log zerolog.Logger, handler func(Event)) *Stream {
	return &Stream{symbol: symbol, log: log.With().Str("component", "market_stream").Logger(), handler: handler}
}

// Run opens every sub-stream and reconnects each independently forever until
// ctx is cancelled. Each sub-stream close triggers a fixed back-off
// reconnect for that sub-stream only; the others keep running.
func (s *Stream) Run(ctx context.Context) {
	for _, tf := range Timeframes {
		go s.runKline(ctx, tf)
	}
	go s.runAggTrade(ctx)
	go s.runDepth(ctx)
	go s.runMarkPrice(ctx)
	<-ctx.Done()
}

func (s *Stream) runKline(ctx context.Context, tf Timeframe) {
	interval := intervalByTF[tf]
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		doneC, stopC, err := binance.WsKlineServe(s.symbol, interval, func(event *binance.WsKlineEvent) {
			s.dispatchKline(tf, event)
		}, s.errHandler)
		if err != nil {
			s.log.Error().Err(err).Str("tf", string(tf)).Msg("failed to open kline stream")
			metrics.RecordProviderError("binance_ws", err)
			s.waitBackoff(ctx)
			continue
		}

		s.waitForCloseOrIdle(ctx, doneC, stopC)
	}
}

func (s *Stream) runAggTrade(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		doneC, stopC, err := binance.WsAggTradeServe(s.symbol, s.dispatchAggTrade, s.errHandler)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to open agg-trade stream")
			metrics.RecordProviderError("binance_ws", err)
			s.waitBackoff(ctx)
			continue
		}

		s.waitForCloseOrIdle(ctx, doneC, stopC)
	}
}

func (s *Stream) runDepth(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		doneC, stopC, err := binance.WsPartialDepthServe100Ms(s.symbol, depthLimit, s.dispatchDepth, s.errHandler)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to open depth stream")
			metrics.RecordProviderError("binance_ws", err)
			s.waitBackoff(ctx)
			continue
		}

		s.waitForCloseOrIdle(ctx, doneC, stopC)
	}
}

func (s *Stream) runMarkPrice(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		doneC, stopC, err := binance.WsMarkPriceServe(s.symbol, s.dispatchMarkPrice, s.errHandler)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to open mark-price stream")
			metrics.RecordProviderError("binance_ws", err)
			s.waitBackoff(ctx)
			continue
		}

		s.waitForCloseOrIdle(ctx, doneC, stopC)
	}
}

// waitForCloseOrIdle blocks until the sub-stream closes, ctx is cancelled,
// or the idle timeout elapses with no intervening close — in which case it
// stops the stream itself to force a reconnect.
func (s *Stream) waitForCloseOrIdle(ctx context.Context, doneC, stopC chan struct{}) {
	select {
	case <-ctx.Done():
		close(stopC)
		return
	case <-doneC:
		s.waitBackoff(ctx)
	case <-time.After(idleTimeout):
		close(stopC)
		<-doneC
		s.waitBackoff(ctx)
	}
}

func (s *Stream) waitBackoff(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(reconnectBackoff):
	}
}

func (s *Stream) dispatchKline(tf Timeframe, event *binance.WsKlineEvent) {
	c := Candle{
		Ts:     time.UnixMilli(event.Kline.StartTime),
		Closed: event.Kline.IsFinal,
	}
	c.Open = parseFloat(event.Kline.Open)
	c.High = parseFloat(event.Kline.High)
	c.Low = parseFloat(event.Kline.Low)
	c.Close = parseFloat(event.Kline.Close)
	c.Volume = parseFloat(event.Kline.Volume)
	c.QuoteVolume = parseFloat(event.Kline.QuoteVolume)
	c.Trades = event.Kline.TradeNum
	s.handler(Event{Kind: EventKline, Timeframe: tf, Candle: c})
}

func (s *Stream) dispatchAggTrade(event *binance.WsAggTradeEvent) {
	t := Trade{
		Ts:           time.UnixMilli(event.Time),
		Price:        parseFloat(event.Price),
		Qty:          parseFloat(event.Quantity),
		BuyerIsMaker: event.Maker,
	}
	s.handler(Event{Kind: EventAggTrade, Trade: t})
}

func (s *Stream) dispatchDepth(event *binance.WsDepthEvent) {
	book := Book{Ts: time.UnixMilli(event.Time)}
	for _, b := range event.Bids {
		book.Bids = append(book.Bids, BookLevel{Price: parseFloat(b.Price), Qty: parseFloat(b.Quantity)})
	}
	for _, a := range event.Asks {
		book.Asks = append(book.Asks, BookLevel{Price: parseFloat(a.Price), Qty: parseFloat(a.Quantity)})
	}
	s.handler(Event{Kind: EventDepth, Book: book})
}

func (s *Stream) dispatchMarkPrice(event *binance.WsMarkPriceEvent) {
	f := Funding{
		Ts:            time.UnixMilli(event.Time),
		Rate:          parseFloat(event.FundingRate),
		MarkPrice:     parseFloat(event.MarkPrice),
		NextFundingTs: time.UnixMilli(event.NextFundingTime),
	}
	s.handler(Event{Kind: EventMarkPrice, Funding: f})
}

func (s *Stream) errHandler(err error) {
	s.log.Warn().Err(err).Msg("market websocket error")
	metrics.RecordProviderError("binance_ws", err)
}

func parseFloat(raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}
