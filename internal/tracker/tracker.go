// Package tracker polls live price on a fixed tick and resolves pending
// signals against their take-profit, stop-loss and timeout conditions.
package tracker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/btcsignalcore/engine/internal/signal"
	"github.com/btcsignalcore/engine/internal/strategy"
)

const (
	winPnL       = 15.0
	lossPnL      = -7.50
	notional     = 3000.0
	maxHoldMin   = 240.0
)

// Resolution is the outcome of a single resolved signal, ready to be
// persisted by the caller.
type Resolution struct {
	SignalID     string
	Status       signal.Status
	ResultPrice  float64
	ResultTs     time.Time
	ResultPnL    float64
	ResultReason string
	MFE          float64
	MAE          float64
	DurationMin  float64
}

// extremes tracks the favorable/adverse price excursions for one open
// signal between ticks, keyed by signal ID in the Tracker.
type extremes struct {
	entry     float64
	direction strategy.Direction
	openedAt  time.Time
	maxPrice  float64
	minPrice  float64
}

func newExtremes(entry float64, dir strategy.Direction, openedAt time.Time) *extremes {
	return &extremes{entry: entry, direction: dir, openedAt: openedAt, maxPrice: entry, minPrice: entry}
}

func (e *extremes) update(price float64) {
	if price > e.maxPrice {
		e.maxPrice = price
	}
	if price < e.minPrice {
		e.minPrice = price
	}
}

// mfeMae returns the maximum favorable and adverse excursions as
// non-negative percentages of entry, in the direction of the trade.
func (e *extremes) mfeMae() (mfe, mae float64) {
	if e.direction == strategy.Long {
		mfe = (e.maxPrice - e.entry) / e.entry * 100
		mae = (e.entry - e.minPrice) / e.entry * 100
	} else {
		mfe = (e.entry - e.minPrice) / e.entry * 100
		mae = (e.maxPrice - e.entry) / e.entry * 100
	}
	if mfe < 0 {
		mfe = 0
	}
	if mae < 0 {
		mae = 0
	}
	return mfe, mae
}

// PriceProvider is the minimal capability the tracker needs from the
// exchange: a single current-price read per tick.
type PriceProvider interface {
	FetchPrice(ctx context.Context) (float64, error)
}

// PendingSignal is the subset of a persisted signal the tracker needs to
// evaluate TP/SL/timeout against.
type PendingSignal struct {
	ID        string
	Direction strategy.Direction
	Entry     float64
	Stop      float64
	Target    float64
	CreatedAt time.Time
}

// Store is the durable-store surface the tracker depends on.
type Store interface {
	ListPending(ctx context.Context) ([]PendingSignal, error)
	AppendPriceSample(ctx context.Context, signalID string, price float64, ts time.Time) error
	ResolveSignal(ctx context.Context, r Resolution) error
}

// BudgetUpdater is the C8 collaborator notified on every resolution.
type BudgetUpdater interface {
	OnResolved(ctx context.Context, r Resolution) error
}

// QualityScorer is the C9 collaborator notified on every resolution.
type QualityScorer interface {
	Score(ctx context.Context, signalID string) error
}

// Tracker runs the fixed-tick price poll and resolution loop.
type Tracker struct {
	Provider PriceProvider
	Store    Store
	Budget   BudgetUpdater
	Quality  QualityScorer
	Log      zerolog.Logger

	open map[string]*extremes
}

// New constructs a Tracker with its in-memory extremes map initialized.
func New(provider PriceProvider, store Store, budget BudgetUpdater, quality QualityScorer, log zerolog.Logger) *Tracker {
	return &Tracker{Provider: provider, Store: store, Budget: budget, Quality: quality, Log: log, open: make(map[string]*extremes)}
}

// Run polls at the given tick until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.runTick(ctx)
		}
	}
}

func (t *Tracker) runTick(ctx context.Context) {
	price, err := t.Provider.FetchPrice(ctx)
	if err != nil {
		t.Log.Warn().Err(err).Msg("price fetch failed, deferring tick")
		return
	}

	pending, err := t.Store.ListPending(ctx)
	if err != nil {
		t.Log.Error().Err(err).Msg("failed to list pending signals")
		return
	}

	now := time.Now().UTC()
	seen := make(map[string]bool, len(pending))

	for _, sig := range pending {
		seen[sig.ID] = true

		ext, ok := t.open[sig.ID]
		if !ok {
			ext = newExtremes(sig.Entry, sig.Direction, sig.CreatedAt)
			t.open[sig.ID] = ext
		}
		ext.update(price)

		if err := t.Store.AppendPriceSample(ctx, sig.ID, price, now); err != nil {
			t.Log.Warn().Err(err).Str("signal_id", sig.ID).Msg("failed to append price sample")
		}

		res, resolved := t.decide(sig, ext, price, now)
		if !resolved {
			continue
		}

		if err := t.Store.ResolveSignal(ctx, res); err != nil {
			t.Log.Error().Err(err).Str("signal_id", sig.ID).Msg("failed to write resolution")
			continue
		}
		if t.Budget != nil {
			if err := t.Budget.OnResolved(ctx, res); err != nil {
				t.Log.Error().Err(err).Str("signal_id", sig.ID).Msg("failed to update daily budget")
			}
		}
		if t.Quality != nil {
			if err := t.Quality.Score(ctx, sig.ID); err != nil {
				t.Log.Warn().Err(err).Str("signal_id", sig.ID).Msg("failed to score trade quality")
			}
		}
		delete(t.open, sig.ID)
	}

	for id := range t.open {
		if !seen[id] {
			delete(t.open, id)
		}
	}
}

// decide implements the TP/SL/timeout resolution in §4.7: TP and SL are
// both checked against the single last-tick price, with TP winning ties.
func (t *Tracker) decide(sig PendingSignal, ext *extremes, price float64, now time.Time) (Resolution, bool) {
	duration := now.Sub(sig.CreatedAt).Minutes()

	var hitTarget, hitStop bool
	if sig.Direction == strategy.Long {
		hitTarget = price >= sig.Target
		hitStop = price <= sig.Stop
	} else {
		hitTarget = price <= sig.Target
		hitStop = price >= sig.Stop
	}

	mfe, mae := ext.mfeMae()

	switch {
	case hitTarget:
		return t.resolution(sig, signal.Win, sig.Target, now, winPnL, "TP_HIT", mfe, mae, duration), true
	case hitStop:
		return t.resolution(sig, signal.Loss, sig.Stop, now, lossPnL, "SL_HIT", mfe, mae, duration), true
	case duration >= maxHoldMin:
		pnlPct := (price - sig.Entry) / sig.Entry
		if sig.Direction == strategy.Short {
			pnlPct = -pnlPct
		}
		pnl := pnlPct * notional
		return t.resolution(sig, signal.Timeout, price, now, pnl, "TIMEOUT", mfe, mae, duration), true
	default:
		return Resolution{}, false
	}
}

func (t *Tracker) resolution(sig PendingSignal, status signal.Status, price float64, ts time.Time, pnl float64, reason string, mfe, mae, duration float64) Resolution {
	return Resolution{
		SignalID:     sig.ID,
		Status:       status,
		ResultPrice:  price,
		ResultTs:     ts,
		ResultPnL:    pnl,
		ResultReason: reason,
		MFE:          mfe,
		MAE:          mae,
		DurationMin:  duration,
	}
}
