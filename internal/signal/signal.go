// Package signal defines the Signal record and the orchestration loop that
// ties market data, feature derivation, regime classification, strategy
// proposal and the gate pipeline together on a fixed tick.
package signal

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/btcsignalcore/engine/internal/gates"
	"github.com/btcsignalcore/engine/internal/regime"
	"github.com/btcsignalcore/engine/internal/strategy"
)

// Status is the signal's lifecycle state.
type Status string

const (
	Pending   Status = "PENDING"
	Win       Status = "WIN"
	Loss      Status = "LOSS"
	Timeout   Status = "TIMEOUT"
	Cancelled Status = "CANCELLED"
)

// Signal is immutable once written except for its result columns, which the
// Verifier owns exclusively.
type Signal struct {
	ID           string
	CreatedAt    time.Time
	Direction    strategy.Direction
	Strategy     strategy.Name
	Entry        float64
	Stop         float64
	Target       float64
	Margin       float64
	Leverage     int
	Confidence   float64
	SetupQuality float64
	Regime       regime.Regime
	Reasoning    string
	GateScores   [4]float64 // G1..G4
	Gate5Passed  bool

	Status       Status
	ResultPrice  *float64
	ResultTs     *time.Time
	ResultPnL    *float64
	ResultReason *string
	MFE          *float64
	MAE          *float64
	DurationMin  *float64
	TradeIQ      *float64
	Analyzed     bool
}

// New builds a PENDING signal from an accepted gate decision.
func New(proposal strategy.Proposal, reg regime.Result, decision gates.Decision, margin float64, leverage int, now time.Time) (Signal, error) {
	if !decision.Pass {
		return Signal{}, fmt.Errorf("cannot create signal from a failed gate decision")
	}
	if err := validateDirectionPrices(proposal); err != nil {
		return Signal{}, err
	}

	var gateScores [4]float64
	for i := 0; i < 4 && i < len(decision.Gates); i++ {
		gateScores[i] = decision.Gates[i].Score
	}

	return Signal{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		Direction:    proposal.Direction,
		Strategy:     proposal.Strategy,
		Entry:        proposal.Entry,
		Stop:         proposal.Stop,
		Target:       proposal.Target,
		Margin:       margin,
		Leverage:     leverage,
		Confidence:   reg.Confidence,
		SetupQuality: proposal.SetupQuality,
		Regime:       reg.Regime,
		Reasoning:    reasoningLine(proposal, reg),
		GateScores:   gateScores,
		Gate5Passed:  true,
		Status:       Pending,
	}, nil
}

// validateDirectionPrices enforces the ordering invariant: for LONG,
// stop < entry < target; for SHORT, target < entry < stop.
func validateDirectionPrices(p strategy.Proposal) error {
	if p.Direction == strategy.Long {
		if !(p.Stop < p.Entry && p.Entry < p.Target) {
			return fmt.Errorf("invalid LONG price ordering: stop=%v entry=%v target=%v", p.Stop, p.Entry, p.Target)
		}
		return nil
	}
	if !(p.Target < p.Entry && p.Entry < p.Stop) {
		return fmt.Errorf("invalid SHORT price ordering: target=%v entry=%v stop=%v", p.Target, p.Entry, p.Stop)
	}
	return nil
}

func reasoningLine(p strategy.Proposal, reg regime.Result) string {
	return fmt.Sprintf("%s %s in %s (setup_quality=%.1f confidence=%.2f)", p.Strategy, p.Direction, reg.Regime, p.SetupQuality, reg.Confidence)
}
