// Package market maintains the live per-timeframe candle sequences, recent
// trades, book top, and funding rate for a single instrument, backfilling
// history on startup and updating state from a combined WebSocket stream.
package market

import "time"

// Timeframe is one of the four candle intervals the assembler maintains.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF3m  Timeframe = "3m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
)

// Timeframes lists the four maintained intervals in assembler iteration order.
var Timeframes = []Timeframe{TF1m, TF3m, TF5m, TF15m}

// candleCapacity is the bounded FIFO size per timeframe sequence.
const candleCapacity = 500

// tradeCapacity is the bounded FIFO size of the recent-trade queue.
const tradeCapacity = 1000

// Candle is one OHLCV bar for a fixed timeframe.
type Candle struct {
	Ts          time.Time
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
	QuoteVolume float64
	Trades      int64
	Closed      bool
}

// Body returns |close-open|.
func (c Candle) Body() float64 {
	return abs(c.Close - c.Open)
}

// Range returns high-low.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// BodyRatio returns body/range, or 0 if range is 0.
func (c Candle) BodyRatio() float64 {
	r := c.Range()
	if r == 0 {
		return 0
	}
	return c.Body() / r
}

// UpperWick returns high-max(open,close).
func (c Candle) UpperWick() float64 {
	return c.High - max(c.Open, c.Close)
}

// LowerWick returns min(open,close)-low.
func (c Candle) LowerWick() float64 {
	return min(c.Open, c.Close) - c.Low
}

// Trade is a single executed trade print.
type Trade struct {
	Ts             time.Time
	Price          float64
	Qty            float64
	BuyerIsMaker   bool
}

// IsBuy reports whether the trade's aggressor side was a buyer.
func (t Trade) IsBuy() bool {
	return !t.BuyerIsMaker
}

// Notional returns price*qty.
func (t Trade) Notional() float64 {
	return t.Price * t.Qty
}

// BookLevel is one price/quantity level of the order book.
type BookLevel struct {
	Price float64
	Qty   float64
}

// Book is the latest top-of-book snapshot, sorted best-first on both sides.
type Book struct {
	Ts   time.Time
	Bids []BookLevel
	Asks []BookLevel
}

// Mid returns the midpoint of the best bid and best ask, or 0 if either side
// is empty.
func (b Book) Mid() float64 {
	if len(b.Bids) == 0 || len(b.Asks) == 0 {
		return 0
	}
	return (b.Bids[0].Price + b.Asks[0].Price) / 2
}

// SpreadBps returns (ask-bid)/mid in basis points terms (as a raw ratio; the
// caller multiplies by 10000 where a bps unit is required), or 0 if empty.
func (b Book) SpreadBps() float64 {
	mid := b.Mid()
	if mid == 0 || len(b.Bids) == 0 || len(b.Asks) == 0 {
		return 0
	}
	return (b.Asks[0].Price - b.Bids[0].Price) / mid
}

// Funding is the latest perpetual-futures funding snapshot.
type Funding struct {
	Ts            time.Time
	Rate          float64
	MarkPrice     float64
	NextFundingTs time.Time
}

func abs(v float64) float64 {
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
