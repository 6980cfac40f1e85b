package gates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/btcsignalcore/engine/internal/features"
	"github.com/btcsignalcore/engine/internal/regime"
	"github.com/btcsignalcore/engine/internal/strategy"
)

func passingInput() Input {
	var vec features.Vector
	vec[features.TechnicalStart+1] = 50                // rsi_14
	vec[features.MTFStart+8] = 1.0                      // mtf_alignment (all agree)

	return Input{
		Now:             time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC),
		Vec:             vec,
		Regime:          regime.Result{Regime: regime.TrendingUp, Confidence: 0.8, ExhaustionRisk: 0.1, StructureQuality: 0.8},
		Proposal:        strategy.Proposal{Direction: strategy.Long, SetupQuality: 80, OK: true},
		Classifier:      nil,
		AIConfidenceMin: 0.65,
		Budget:          BudgetState{Status: "ACTIVE", PnL: 0, TradeCount: 0},
	}
}

func TestEvaluate_AllPassWithSkippedAI(t *testing.T) {
	decision := Evaluate(passingInput())
	assert.True(t, decision.Pass)
	assert.Equal(t, Skip, decision.Gates[3].Outcome)
}

func TestEvaluate_DeadZoneFailsG1(t *testing.T) {
	in := passingInput()
	in.Now = time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC)
	decision := Evaluate(in)
	assert.False(t, decision.Pass)
	assert.Equal(t, GateContext, decision.FailedGate)
}

func TestSessionScore_Hour7IsAsiaNotLondon(t *testing.T) {
	score, deadZone := sessionScore(7)
	assert.False(t, deadZone)
	assert.Equal(t, 0.5, score)
}

func TestSessionScore_Hour8IsLondon(t *testing.T) {
	score, deadZone := sessionScore(8)
	assert.False(t, deadZone)
	assert.Equal(t, 0.8, score)
}

func TestEvaluate_ChoppyFailsG2(t *testing.T) {
	in := passingInput()
	in.Regime.Regime = regime.Choppy
	decision := Evaluate(in)
	assert.False(t, decision.Pass)
	assert.Equal(t, GateRegime, decision.FailedGate)
}

func TestEvaluate_G5FailureForcesZeroScore(t *testing.T) {
	in := passingInput()
	in.Budget.Status = "TARGET_HIT"
	decision := Evaluate(in)
	assert.False(t, decision.Pass)
	assert.Equal(t, GateBudget, decision.FailedGate)
	assert.Equal(t, 0.0, decision.Score)
}

func TestEvaluate_HasPositionFailsG5(t *testing.T) {
	in := passingInput()
	in.Budget.HasPosition = true
	decision := Evaluate(in)
	assert.False(t, decision.Pass)
	assert.Equal(t, GateBudget, decision.FailedGate)
}

func TestHeuristicClassifier_OversoldLong(t *testing.T) {
	var vec features.Vector
	vec[features.TechnicalStart+1] = 20
	result := HeuristicClassifier(vec)
	assert.Equal(t, strategy.Long, result.Direction)
	assert.GreaterOrEqual(t, result.Confidence, 0.3)
	assert.LessOrEqual(t, result.Confidence, 0.95)
}
