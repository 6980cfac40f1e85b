package signal

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/btcsignalcore/engine/internal/features"
	"github.com/btcsignalcore/engine/internal/gates"
	"github.com/btcsignalcore/engine/internal/market"
	"github.com/btcsignalcore/engine/internal/regime"
	"github.com/btcsignalcore/engine/internal/strategy"
)

// Store is the subset of the durable store the engine loop needs. The
// concrete implementation lives in internal/store; the engine depends only
// on this interface to keep the dependency direction leaf-ward.
type Store interface {
	TodayBudget(ctx context.Context, now time.Time) (gates.BudgetState, error)
	ResetDailyStateIfNeeded(ctx context.Context, now time.Time) error
	MarkPositionOpen(ctx context.Context, now time.Time) error
	InsertSignal(ctx context.Context, s Signal, vec features.Vector) error
	WriteHeartbeat(ctx context.Context, botName, status string, signalsToday int, reg regime.Regime, pnl float64, errMsg string) error
}

// Classifier is the optional ensemble classifier collaborator (C11-adjacent,
// out of core scope beyond this contract). A nil Classifier means the
// engine runs in degraded mode using gates.HeuristicClassifier.
type Classifier interface {
	Classify(ctx context.Context, vec features.Vector, proposal strategy.Proposal) (*gates.ClassifierResult, error)
}

// Notifier is the sink for advisory messages (C11).
type Notifier interface {
	NotifyNewSignal(ctx context.Context, s Signal) error
}

// RegimeNotifier is the optional collaborator informed when the classified
// regime changes between ticks.
type RegimeNotifier interface {
	RegimeChange(ctx context.Context, from, to regime.Regime, confidence float64)
}

// Engine orchestrates C1-C5 on a fixed tick.
type Engine struct {
	Provider   market.DataProvider
	Snapshot   *market.Snapshot
	ExtCache   *features.ExtCache
	State      *features.State
	Store          Store
	Classifier     Classifier
	Notifier       Notifier
	RegimeNotifier RegimeNotifier
	Log            zerolog.Logger

	BotName         string
	Margin          float64
	Leverage        int
	AIConfidenceMin float64

	signalsToday int
	lastRegime   regime.Regime
	haveRegime   bool
}

// Run drives the fixed-period tick loop until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.runTick(ctx)
		}
	}
}

// runTick performs the ten-step sequence documented for the signal engine
// loop. Every step that can fail logs and returns rather than propagating,
// since the loop must keep ticking.
func (e *Engine) runTick(ctx context.Context) {
	now := time.Now().UTC()

	// 1. UTC-midnight rollover (idempotent).
	if err := e.Store.ResetDailyStateIfNeeded(ctx, now); err != nil {
		e.Log.Error().Err(err).Msg("failed to reset daily state")
		return
	}

	// 2. Budget gate.
	budget, err := e.Store.TodayBudget(ctx, now)
	if err != nil {
		e.Log.Error().Err(err).Msg("failed to read daily budget")
		return
	}
	if budget.Status != "ACTIVE" {
		e.heartbeat(ctx, "daily_limit", regime.Choppy, budget.PnL)
		return
	}

	// 3. Market snapshot.
	lastPrice := e.Snapshot.LastPrice()
	if lastPrice == 0 {
		e.heartbeat(ctx, "waiting", regime.Choppy, budget.PnL)
		return
	}

	// 4. Features + regime.
	vec, degraded := features.Compute(ctx, e.Snapshot, e.ExtCache, e.State)
	for _, group := range degraded {
		e.Log.Warn().Str("group", group).Msg("feature group degraded this tick")
	}
	reg := regime.Classify(vec, exhaustionInputsFrom(vec))
	if e.RegimeNotifier != nil {
		if e.haveRegime && e.lastRegime != reg.Regime {
			e.RegimeNotifier.RegimeChange(ctx, e.lastRegime, reg.Regime, reg.Confidence)
		}
		e.lastRegime, e.haveRegime = reg.Regime, true
	}
	if reg.Regime == regime.Choppy {
		e.heartbeat(ctx, "waiting", reg.Regime, budget.PnL)
		return
	}

	// 5. Propose.
	proposal := strategy.Propose(vec, reg, lastPrice)
	if !proposal.OK {
		e.heartbeat(ctx, "running", reg.Regime, budget.PnL)
		return
	}

	// 6. Classifier (optional).
	classifierResult := e.queryClassifier(ctx, vec, proposal)

	// 7. Gates.
	decision := gates.Evaluate(gates.Input{
		Now:             now,
		NextFundingTs:   e.Snapshot.Funding().NextFundingTs,
		Vec:             vec,
		Regime:          reg,
		Proposal:        proposal,
		Classifier:      classifierResult,
		Budget:          budget,
		AIConfidenceMin: e.AIConfidenceMin,
	})
	if !decision.Pass {
		e.Log.Debug().Str("blocking_gate", string(decision.FailedGate)).Msg("signal rejected by gates")
		e.heartbeat(ctx, "running", reg.Regime, budget.PnL)
		return
	}

	// Final guard: classifier direction/confidence re-checked explicitly
	// even though G4 already enforced it, per the documented double-check.
	if classifierResult != nil {
		if classifierResult.NoTrade || classifierResult.Direction != proposal.Direction || classifierResult.Confidence < e.AIConfidenceMin {
			e.Log.Debug().Msg("signal dropped at final guard")
			return
		}
	}

	// 8. Persist.
	sig, err := New(proposal, reg, decision, e.Margin, e.Leverage, now)
	if err != nil {
		e.Log.Error().Err(err).Msg("failed to construct signal")
		return
	}
	if err := e.Store.InsertSignal(ctx, sig, vec); err != nil {
		e.Log.Error().Err(err).Msg("failed to persist signal")
		return
	}
	if err := e.Store.MarkPositionOpen(ctx, now); err != nil {
		e.Log.Warn().Err(err).Msg("failed to mark position open")
	}
	e.signalsToday++

	// 9. Notify.
	if e.Notifier != nil {
		if err := e.Notifier.NotifyNewSignal(ctx, sig); err != nil {
			e.Log.Warn().Err(err).Msg("failed to send new-signal notification")
		}
	}

	// 10. Heartbeat.
	e.heartbeat(ctx, "running", reg.Regime, budget.PnL)
}

func (e *Engine) queryClassifier(ctx context.Context, vec features.Vector, proposal strategy.Proposal) *gates.ClassifierResult {
	if e.Classifier == nil {
		return gates.HeuristicClassifier(vec)
	}
	result, err := e.Classifier.Classify(ctx, vec, proposal)
	if err != nil {
		e.Log.Warn().Err(err).Msg("classifier call failed, falling back to heuristic")
		return gates.HeuristicClassifier(vec)
	}
	return result
}

func (e *Engine) heartbeat(ctx context.Context, status string, reg regime.Regime, pnl float64) {
	if err := e.Store.WriteHeartbeat(ctx, e.BotName, status, e.signalsToday, reg, pnl, ""); err != nil {
		e.Log.Warn().Err(err).Msg("failed to write heartbeat")
	}
}

// exhaustionInputsFrom derives the regime classifier's exhaustion inputs
// from the feature vector's own indicators, since the dedicated feature
// groups (RSI divergence, volume decline, etc.) are expressed relative to
// history already folded into the vector.
func exhaustionInputsFrom(vec features.Vector) regime.ExhaustionInputs {
	rsi := vec.RSI14()
	extremeRSI := 0.0
	if rsi > 75 || rsi < 25 {
		extremeRSI = 1.0
	}

	volDeclining := 0.0
	if vec.VolatilityContraction() < 1.0 {
		volDeclining = clamp01(1.0 - vec.VolatilityContraction())
	}

	bodyShrinking := 0.0
	if vec.BodyRatio() < 0.3 {
		bodyShrinking = 1.0
	}

	rsiDivergence := 0.0
	if (vec.TrendStructure() > 0 && rsi < 50) || (vec.TrendStructure() < 0 && rsi > 50) {
		rsiDivergence = 1.0
	}

	onchainDiv := 0.0
	if (vec.TrendStructure() > 0 && vec.Netflow() > 0) || (vec.TrendStructure() < 0 && vec.Netflow() < 0) {
		onchainDiv = 1.0
	}

	return regime.ExhaustionInputs{
		RSIDivergence:   rsiDivergence,
		VolDeclining:    volDeclining,
		BodyShrinking:   bodyShrinking,
		ExtremeRSI:      extremeRSI,
		OnchainDivDelta: onchainDiv,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
