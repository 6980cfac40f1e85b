package market

import "sync"

// Snapshot is the assembler's in-memory market state: per-timeframe candle
// sequences, a bounded trade queue, the latest book, the latest funding, and
// the last observed trade price. Within a timeframe, candles are
// non-decreasing in ts and at most one unclosed candle exists, always last.
type Snapshot struct {
	mu         sync.RWMutex
	candles    map[Timeframe][]Candle
	trades     []Trade
	book       Book
	funding    Funding
	lastPrice  float64
}

// NewSnapshot returns an empty snapshot ready for backfill.
func NewSnapshot() *Snapshot {
	s := &Snapshot{
		candles: make(map[Timeframe][]Candle, len(Timeframes)),
	}
	for _, tf := range Timeframes {
		s.candles[tf] = make([]Candle, 0, candleCapacity)
	}
	return s
}

// SeedCandles replaces the stored sequence for tf with a freshly backfilled,
// already-sorted set of closed candles (used once at startup).
func (s *Snapshot) SeedCandles(tf Timeframe, candles []Candle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(candles) > candleCapacity {
		candles = candles[len(candles)-candleCapacity:]
	}
	cp := make([]Candle, len(candles))
	copy(cp, candles)
	s.candles[tf] = cp
}

// ApplyKline applies one kline event: replaces the last candle in place if it
// shares the incoming candle's ts and remains unclosed, otherwise appends
// (evicting the oldest past capacity) and updates last price from the close.
func (s *Snapshot) ApplyKline(tf Timeframe, c Candle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.candles[tf]
	if n := len(seq); n > 0 && seq[n-1].Ts.Equal(c.Ts) && !seq[n-1].Closed {
		seq[n-1] = c
	} else {
		seq = append(seq, c)
		if len(seq) > candleCapacity {
			seq = seq[len(seq)-candleCapacity:]
		}
	}
	s.candles[tf] = seq
	s.lastPrice = c.Close
}

// ApplyTrade appends a trade to the bounded FIFO queue and updates last price.
func (s *Snapshot) ApplyTrade(t Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, t)
	if len(s.trades) > tradeCapacity {
		s.trades = s.trades[len(s.trades)-tradeCapacity:]
	}
	s.lastPrice = t.Price
}

// ApplyDepth overwrites the book atomically; the feed delivers a top-N
// snapshot, never a delta to merge.
func (s *Snapshot) ApplyDepth(b Book) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.book = b
}

// ApplyMark overwrites the funding snapshot.
func (s *Snapshot) ApplyMark(f Funding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.funding = f
}

// Candles returns a copy of the stored sequence for tf, oldest first.
func (s *Snapshot) Candles(tf Timeframe) []Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seq := s.candles[tf]
	cp := make([]Candle, len(seq))
	copy(cp, seq)
	return cp
}

// Trades returns a copy of the recent-trade queue, oldest first.
func (s *Snapshot) Trades() []Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]Trade, len(s.trades))
	copy(cp, s.trades)
	return cp
}

// Book returns the latest book snapshot.
func (s *Snapshot) Book() Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.book
}

// Funding returns the latest funding snapshot.
func (s *Snapshot) Funding() Funding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.funding
}

// LastPrice returns the last observed trade or kline close price. A zero
// value means no event has arrived yet — callers must skip the tick.
func (s *Snapshot) LastPrice() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPrice
}
