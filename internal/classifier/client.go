// Package classifier is the optional ensemble-classifier HTTP client (G4's
// collaborator). When disabled or unreachable, callers fall back to
// gates.HeuristicClassifier; this package only implements the live path.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/btcsignalcore/engine/internal/features"
	"github.com/btcsignalcore/engine/internal/gates"
	"github.com/btcsignalcore/engine/internal/risk"
	"github.com/btcsignalcore/engine/internal/strategy"
)

// Config controls the live classifier endpoint.
type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// request is the wire payload sent to the ensemble classifier: the raw
// feature vector plus the strategy's proposed direction, so the classifier
// can return an independent verdict for the final guard to compare against.
type request struct {
	Features          [100]float64 `json:"features"`
	ProposedDirection string       `json:"proposed_direction"`
	Strategy          string       `json:"strategy"`
}

// response is the ensemble classifier's verdict.
type response struct {
	Direction   string `json:"direction"` // LONG, SHORT, NO_TRADE
	Confidence  float64 `json:"confidence"`
	RiskFactors int     `json:"risk_factors"`
}

// Client calls the live ensemble classifier over HTTP, guarded by a circuit
// breaker so a failing classifier degrades the engine rather than blocking it.
type Client struct {
	endpoint       string
	httpClient     *http.Client
	circuitBreaker *risk.CircuitBreakerManager
}

func New(cfg Config, cb *risk.CircuitBreakerManager) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		endpoint:       cfg.Endpoint,
		httpClient:     &http.Client{Timeout: timeout},
		circuitBreaker: cb,
	}
}

// Classify implements internal/signal.Classifier.
func (c *Client) Classify(ctx context.Context, vec features.Vector, proposal strategy.Proposal) (*gates.ClassifierResult, error) {
	op := func() (interface{}, error) {
		return c.call(ctx, vec, proposal)
	}

	var result interface{}
	var err error
	if c.circuitBreaker != nil {
		result, err = c.circuitBreaker.Classifier().Execute(op)
	} else {
		result, err = op()
	}
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return nil, fmt.Errorf("classifier circuit breaker open")
		}
		return nil, err
	}
	return result.(*gates.ClassifierResult), nil
}

func (c *Client) call(ctx context.Context, vec features.Vector, proposal strategy.Proposal) (*gates.ClassifierResult, error) {
	body, err := json.Marshal(request{
		Features:          vec,
		ProposedDirection: string(proposal.Direction),
		Strategy:          string(proposal.Strategy),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal classifier request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build classifier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read classifier response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed response
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal classifier response: %w", err)
	}

	log.Debug().Dur("latency", time.Since(start)).Str("direction", parsed.Direction).Msg("classifier responded")

	if parsed.Direction == "NO_TRADE" {
		return &gates.ClassifierResult{NoTrade: true, Confidence: parsed.Confidence, RiskFactors: parsed.RiskFactors}, nil
	}
	return &gates.ClassifierResult{
		Direction:   strategy.Direction(parsed.Direction),
		Confidence:  parsed.Confidence,
		RiskFactors: parsed.RiskFactors,
	}, nil
}
