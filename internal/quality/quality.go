// Package quality scores resolved signals on a 0-100 trade_iq scale and
// tracks a rolling trend across the most recent scores.
package quality

import (
	"context"
	"fmt"
)

const (
	historySize = 100

	warningMean  = 60.0
	criticalMean = 50.0
	trendWindow  = 10
)

// Trend is the rolling-mean alert level.
type Trend string

const (
	TrendOK       Trend = "OK"
	TrendWarning  Trend = "WARNING"
	TrendCritical Trend = "CRITICAL"
)

// Inputs bundles everything a resolved signal contributes to its own score.
type Inputs struct {
	Confidence   float64 // [0,1]
	SetupQuality float64 // [0,100]
	MFE          float64
	MAE          float64
	Status       string // WIN, LOSS, TIMEOUT
	MarginPlanned float64
	MarginActual  float64
	PnLPct        float64 // realized pnl as a fraction of entry, signed
}

// Score computes trade_iq = 0.45*Decision + 0.30*Execution + 0.25*Risk.
func Score(in Inputs) float64 {
	decision := decisionScore(in)
	execution := executionScore(in)
	risk := riskScore(in)
	return clamp(0.45*decision+0.30*execution+0.25*risk, 0, 100)
}

func decisionScore(in Inputs) float64 {
	confidenceVsOutcome := confidenceVsOutcomeScore(in.Confidence, in.Status)
	setupVsOutcome := setupVsOutcomeScore(in.SetupQuality, in.Status)
	timing := timingScore(in.MFE, in.MAE)
	return 0.4*confidenceVsOutcome + 0.3*setupVsOutcome + 0.3*timing
}

// confidenceVsOutcomeScore rewards high confidence on a WIN and penalizes
// high confidence on a LOSS by the same magnitude, centered on a 50 base.
func confidenceVsOutcomeScore(confidence float64, status string) float64 {
	delta := (confidence - 0.5) * 100
	switch status {
	case "WIN":
		return clamp(50+delta, 0, 100)
	case "LOSS":
		return clamp(50-delta, 0, 100)
	default:
		return 50
	}
}

func setupVsOutcomeScore(setupQuality float64, status string) float64 {
	delta := setupQuality - 70
	switch status {
	case "WIN":
		return clamp(50+delta, 0, 100)
	case "LOSS":
		return clamp(50-delta, 0, 100)
	default:
		return 50
	}
}

// timingScore uses MFE/(MFE+MAE): a trade that ran mostly favorable before
// resolving scores near 100, one that spent most of its life underwater
// scores near 0.
func timingScore(mfe, mae float64) float64 {
	total := mfe + mae
	if total <= 0 {
		return 50
	}
	return clamp(mfe/total*100, 0, 100)
}

func executionScore(in Inputs) float64 {
	const slippage = 90.0
	const entryPrecision = 80.0
	exitEfficiency := 50.0
	switch in.Status {
	case "WIN":
		exitEfficiency = 100
	case "TIMEOUT":
		exitEfficiency = 50
	case "LOSS":
		exitEfficiency = 40
	}
	return 0.5*slippage + 0.3*entryPrecision + 0.2*exitEfficiency
}

func riskScore(in Inputs) float64 {
	positionAccuracy := positionAccuracyScore(in.MarginPlanned, in.MarginActual)
	slDiscipline := 100.0 // fixed: Inputs carries nothing that records a missed SL/TP
	rrAchieved := rrAchievedScore(in.Status, in.PnLPct)
	return 0.5*positionAccuracy + 0.3*slDiscipline + 0.2*rrAchieved
}

// positionAccuracyScore is 100 when the actual margin is within $1 of plan,
// falling off linearly to 0 at a $50 deviation.
func positionAccuracyScore(planned, actual float64) float64 {
	diff := actual - planned
	if diff < 0 {
		diff = -diff
	}
	if diff <= 1 {
		return 100
	}
	score := 100 - (diff-1)/49*100
	return clamp(score, 0, 100)
}

func rrAchievedScore(status string, pnlPct float64) float64 {
	switch status {
	case "WIN":
		return 100
	case "LOSS":
		return 80
	default: // TIMEOUT: scaled by realized pnl against the planned 2:1 R:R
		const plannedTargetPct = 0.005
		ratio := pnlPct / plannedTargetPct
		return clamp(50+ratio*50, 0, 100)
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

// History keeps a bounded rolling window of recent scores and derives the
// trend alert level from the last trendWindow entries.
type History struct {
	scores []float64
}

func NewHistory() *History {
	return &History{scores: make([]float64, 0, historySize)}
}

func (h *History) Add(score float64) {
	h.scores = append(h.scores, score)
	if len(h.scores) > historySize {
		h.scores = h.scores[len(h.scores)-historySize:]
	}
}

// Trend reports the rolling 10-sample mean and its alert level.
func (h *History) Trend() (mean float64, trend Trend) {
	n := len(h.scores)
	if n == 0 {
		return 0, TrendOK
	}
	window := trendWindow
	if n < window {
		window = n
	}
	sum := 0.0
	for _, s := range h.scores[n-window:] {
		sum += s
	}
	mean = sum / float64(window)

	switch {
	case mean < criticalMean:
		trend = TrendCritical
	case mean < warningMean:
		trend = TrendWarning
	default:
		trend = TrendOK
	}
	return mean, trend
}

// Direction is the rolling-history shape, independent of the absolute
// WARNING/CRITICAL alert level: whether recent scores are trending up, down,
// or holding steady against the window before them.
type Direction string

const (
	Improving Direction = "IMPROVING"
	Declining Direction = "DECLINING"
	Stable    Direction = "STABLE"
)

// directionDelta is the minimum gap between the two half-window means
// needed to call the trend improving or declining rather than stable.
const directionDelta = 3.0

// Direction compares the mean of the most recent half-window against the
// half-window before it.
func (h *History) Direction() Direction {
	n := len(h.scores)
	window := trendWindow
	if n < window {
		window = n
	}
	if window < 2 {
		return Stable
	}
	recent := h.scores[n-window:]
	half := window / 2
	if half == 0 {
		return Stable
	}
	older := mean(recent[:half])
	newer := mean(recent[half:])
	switch {
	case newer-older >= directionDelta:
		return Improving
	case older-newer >= directionDelta:
		return Declining
	default:
		return Stable
	}
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

// Store is the durable-store surface the scorer depends on to load an
// unanalyzed signal's inputs and persist the computed trade_iq.
type Store interface {
	LoadScoringInputs(ctx context.Context, signalID string) (Inputs, error)
	SaveTradeIQ(ctx context.Context, signalID string, tradeIQ float64) error
}

// Notifier is the optional C11 collaborator informed when the rolling trend
// degrades to WARNING or CRITICAL.
type Notifier interface {
	QualityDegradation(ctx context.Context, trend Trend, mean float64)
}

// Scorer scores unanalyzed resolved signals and maintains the rolling
// history used for trend alerts.
type Scorer struct {
	Store    Store
	History  *History
	Notifier Notifier
}

func New(store Store) *Scorer {
	return &Scorer{Store: store, History: NewHistory()}
}

// Score loads a resolved signal's inputs, computes trade_iq, records it in
// the rolling history, and persists it. Implements tracker.QualityScorer.
func (s *Scorer) Score(ctx context.Context, signalID string) error {
	inputs, err := s.Store.LoadScoringInputs(ctx, signalID)
	if err != nil {
		return fmt.Errorf("load scoring inputs for %s: %w", signalID, err)
	}
	tradeIQ := Score(inputs)
	s.History.Add(tradeIQ)

	mean, trend := s.History.Trend()
	if trend != TrendOK && s.Notifier != nil {
		s.Notifier.QualityDegradation(ctx, trend, mean)
	}

	return s.Store.SaveTradeIQ(ctx, signalID, tradeIQ)
}
