// Package gates runs the five-stage evaluation pipeline that turns a
// strategy proposal into a go/no-go decision, short-circuiting on the first
// failing gate.
package gates

import (
	"time"

	"github.com/btcsignalcore/engine/internal/features"
	"github.com/btcsignalcore/engine/internal/regime"
	"github.com/btcsignalcore/engine/internal/strategy"
)

// Name identifies one of the five gates, in evaluation order.
type Name string

const (
	GateContext Name = "G1_CONTEXT"
	GateRegime  Name = "G2_REGIME"
	GateQuality Name = "G3_QUALITY"
	GateAI      Name = "G4_AI"
	GateBudget  Name = "G5_DAILY_BUDGET"
)

// Outcome is the per-gate verdict.
type Outcome string

const (
	Pass Outcome = "PASS"
	Fail Outcome = "FAIL"
	Skip Outcome = "SKIP"
)

// GateResult is one gate's verdict, score and optional reason.
type GateResult struct {
	Gate    Name
	Outcome Outcome
	Score   float64
	Reason  string
}

// ClassifierResult is the optional ensemble output; a nil pointer means the
// classifier was unavailable this tick.
type ClassifierResult struct {
	Direction  strategy.Direction
	Confidence float64
	RiskFactors int
	NoTrade    bool
}

// BudgetState is the subset of daily-budget state G5 needs.
type BudgetState struct {
	PnL                float64
	TradeCount         int
	Status             string // "ACTIVE", "TARGET_HIT", "STOP_HIT", "MAX_TRADES"
	HasPosition        bool
	ConsecutiveLosses  int
	MinutesSinceLastTrade float64
}

// Input bundles everything the pipeline needs for one evaluation.
type Input struct {
	Now              time.Time
	NextFundingTs    time.Time
	Vec              features.Vector
	Regime           regime.Result
	Proposal         strategy.Proposal
	Classifier       *ClassifierResult
	Budget           BudgetState
	AIConfidenceMin  float64
}

// Decision is the pipeline's final verdict: PASS only if every gate through
// G5 passed (or, for G4, skipped).
type Decision struct {
	Gates     []GateResult
	Pass      bool
	Score     float64
	FailedGate Name
}

// Evaluate runs G1..G5 in order, short-circuiting on the first FAIL.
func Evaluate(in Input) Decision {
	var results []GateResult

	g1 := evalContext(in.Now, in.NextFundingTs)
	results = append(results, g1)
	if g1.Outcome == Fail {
		return finish(results, g1.Gate)
	}

	g2 := evalRegime(in.Regime)
	results = append(results, g2)
	if g2.Outcome == Fail {
		return finish(results, g2.Gate)
	}

	g3 := evalQuality(in.Vec, in.Proposal)
	results = append(results, g3)
	if g3.Outcome == Fail {
		return finish(results, g3.Gate)
	}

	g4 := evalAI(in.Classifier, in.Proposal, in.AIConfidenceMin)
	results = append(results, g4)
	if g4.Outcome == Fail {
		return finish(results, g4.Gate)
	}

	g5 := evalBudget(in.Budget)
	results = append(results, g5)
	if g5.Outcome == Fail {
		return Decision{Gates: results, Pass: false, Score: 0.0, FailedGate: g5.Gate}
	}

	return finish(results, "")
}

// finish computes the overall score as the mean of the scores evaluated so
// far (PASS case: all gates; FAIL case: up to and including the failing
// gate). G5 failure is handled by the caller directly with score 0.0.
func finish(results []GateResult, failedGate Name) Decision {
	sum := 0.0
	for _, r := range results {
		sum += r.Score
	}
	score := 0.0
	if len(results) > 0 {
		score = sum / float64(len(results))
	}
	return Decision{
		Gates:      results,
		Pass:       failedGate == "",
		Score:      score,
		FailedGate: failedGate,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
