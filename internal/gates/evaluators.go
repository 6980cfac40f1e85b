package gates

import (
	"time"

	"github.com/btcsignalcore/engine/internal/features"
	"github.com/btcsignalcore/engine/internal/regime"
	"github.com/btcsignalcore/engine/internal/strategy"
)

// sessionScore reports the trading-session score for a UTC hour per the
// documented table; returns (score, isDeadZone).
func sessionScore(hour int) (float64, bool) {
	switch {
	case hour >= 21 && hour < 24:
		return 0, true // Dead Zone
	case hour >= 13 && hour < 16:
		return 1.0, false // Overlap (London/NY)
	case hour >= 16 && hour < 21:
		return 0.9, false // NY
	case hour >= 8 && hour < 13:
		return 0.8, false // London
	default:
		return 0.5, false // Asia
	}
}

// evalContext is G1: session-table score, halved within 20 minutes of the
// next funding timestamp, failing below 0.5.
func evalContext(now, nextFundingTs time.Time) GateResult {
	score, deadZone := sessionScore(now.UTC().Hour())
	if deadZone {
		return GateResult{Gate: GateContext, Outcome: Fail, Score: 0, Reason: "Dead Zone"}
	}

	if !nextFundingTs.IsZero() {
		untilFunding := nextFundingTs.Sub(now)
		if untilFunding >= 0 && untilFunding <= 20*time.Minute {
			score *= 0.5
		}
	}

	if score < 0.5 {
		return GateResult{Gate: GateContext, Outcome: Fail, Score: score, Reason: "low session score"}
	}
	return GateResult{Gate: GateContext, Outcome: Pass, Score: score}
}

// evalRegime is G2: regime must not be CHOPPY, and the classifier's own
// confidence/exhaustion/structure outputs must clear their thresholds.
func evalRegime(reg regime.Result) GateResult {
	if reg.Regime == regime.Choppy {
		return GateResult{Gate: GateRegime, Outcome: Fail, Score: 0, Reason: "choppy regime"}
	}
	if reg.ExhaustionRisk >= 0.5 {
		return GateResult{Gate: GateRegime, Outcome: Fail, Score: reg.Confidence, Reason: "exhaustion risk too high"}
	}
	if reg.StructureQuality < 0.6 {
		return GateResult{Gate: GateRegime, Outcome: Fail, Score: reg.Confidence, Reason: "structure quality too low"}
	}
	if reg.Confidence < 0.65 {
		return GateResult{Gate: GateRegime, Outcome: Fail, Score: reg.Confidence, Reason: "confidence too low"}
	}
	return GateResult{Gate: GateRegime, Outcome: Pass, Score: reg.Confidence}
}

// evalQuality is G3: setup_quality, MTF alignment count, and RSI not
// extreme against the proposed direction.
func evalQuality(vec features.Vector, proposal strategy.Proposal) GateResult {
	score := clamp(proposal.SetupQuality/100, 0, 1)

	if proposal.SetupQuality < 70 {
		return GateResult{Gate: GateQuality, Outcome: Fail, Score: score, Reason: "setup quality below floor"}
	}
	if vec.MTFAlignmentCount() < 2 {
		return GateResult{Gate: GateQuality, Outcome: Fail, Score: score, Reason: "insufficient MTF alignment"}
	}

	rsi := vec.RSI14()
	if proposal.Direction == strategy.Long && rsi > 80 {
		return GateResult{Gate: GateQuality, Outcome: Fail, Score: score, Reason: "RSI extreme against LONG"}
	}
	if proposal.Direction == strategy.Short && rsi < 20 {
		return GateResult{Gate: GateQuality, Outcome: Fail, Score: score, Reason: "RSI extreme against SHORT"}
	}

	return GateResult{Gate: GateQuality, Outcome: Pass, Score: score}
}

// evalAI is G4: PASS/FAIL when a classifier result is present, SKIP with a
// fixed 0.65 score when absent.
func evalAI(classifier *ClassifierResult, proposal strategy.Proposal, confidenceMin float64) GateResult {
	if classifier == nil {
		return GateResult{Gate: GateAI, Outcome: Skip, Score: 0.65}
	}
	if classifier.NoTrade {
		return GateResult{Gate: GateAI, Outcome: Fail, Score: classifier.Confidence, Reason: "classifier NO_TRADE"}
	}
	if classifier.Direction != proposal.Direction {
		return GateResult{Gate: GateAI, Outcome: Fail, Score: classifier.Confidence, Reason: "classifier direction disagrees"}
	}
	if classifier.Confidence < confidenceMin {
		return GateResult{Gate: GateAI, Outcome: Fail, Score: classifier.Confidence, Reason: "classifier confidence below floor"}
	}
	if classifier.RiskFactors > 1 {
		return GateResult{Gate: GateAI, Outcome: Fail, Score: classifier.Confidence, Reason: "too many risk factors"}
	}
	return GateResult{Gate: GateAI, Outcome: Pass, Score: classifier.Confidence}
}

// evalBudget is G5, the final and authoritative budget check.
func evalBudget(budget BudgetState) GateResult {
	if budget.Status != "ACTIVE" {
		return GateResult{Gate: GateBudget, Outcome: Fail, Score: 0, Reason: "daily status not ACTIVE"}
	}
	if budget.HasPosition {
		return GateResult{Gate: GateBudget, Outcome: Fail, Score: 0, Reason: "position already open"}
	}
	if !(budget.PnL < 10) {
		return GateResult{Gate: GateBudget, Outcome: Fail, Score: 0, Reason: "daily target reached"}
	}
	if !(budget.PnL > -15) {
		return GateResult{Gate: GateBudget, Outcome: Fail, Score: 0, Reason: "daily stop reached"}
	}
	if budget.TradeCount >= 3 {
		return GateResult{Gate: GateBudget, Outcome: Fail, Score: 0, Reason: "max trades reached"}
	}
	if budget.ConsecutiveLosses >= 2 && budget.MinutesSinceLastTrade < 60 {
		return GateResult{Gate: GateBudget, Outcome: Fail, Score: 0, Reason: "cooldown after consecutive losses"}
	}
	return GateResult{Gate: GateBudget, Outcome: Pass, Score: 1.0}
}

// HeuristicClassifier implements the degraded-mode fallback: LONG if
// rsi<35, SHORT if rsi>65, confidence bounded to [0.3,0.95]. It still
// enforces direction-agreement with the proposal via evalAI.
func HeuristicClassifier(vec features.Vector) *ClassifierResult {
	rsi := vec.RSI14()
	switch {
	case rsi < 35:
		return &ClassifierResult{Direction: strategy.Long, Confidence: clamp((35-rsi)/35*0.65+0.3, 0.3, 0.95)}
	case rsi > 65:
		return &ClassifierResult{Direction: strategy.Short, Confidence: clamp((rsi-65)/35*0.65+0.3, 0.3, 0.95)}
	default:
		return &ClassifierResult{NoTrade: true, Confidence: 0.3}
	}
}
