package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCircuitBreakerReason(t *testing.T) {
	tests := []struct {
		name     string
		reason   string
		expected string
	}{
		{"rate limit", "rate limited by upstream", ReasonRateLimit},
		{"timeout", "context deadline exceeded", ReasonTimeout},
		{"server error", "received 503 from exchange", ReasonServerError},
		{"stale", "stale data detected", ReasonStaleData},
		{"manual", "manual halt requested", ReasonManualHalt},
		{"unknown", "something unexpected", ReasonOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeCircuitBreakerReason(tt.reason))
		})
	}
}

func TestNormalizeProviderError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil error", nil, ""},
		{"timeout", errors.New("request timeout"), ProviderErrorTimeout},
		{"rate limit", errors.New("429 too many requests"), ProviderErrorRateLimit},
		{"auth", errors.New("401 unauthorized"), ProviderErrorAuth},
		{"network", errors.New("network connection refused"), ProviderErrorNetwork},
		{"invalid", errors.New("400 invalid symbol"), ProviderErrorInvalidReq},
		{"server", errors.New("502 bad gateway"), ProviderErrorServerError},
		{"other", errors.New("mystery failure"), ProviderErrorOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeProviderError(tt.err))
		})
	}
}

func TestRecordSignal(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordSignal("TREND_MOMENTUM", "LONG", 0.72, 78)
		RecordSignal("LIQUIDATION_HUNT", "SHORT", 0.68, 85)
	})
}

func TestRecordGateEvaluation(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordGateEvaluation("context", GateOutcomePassed)
		RecordGateEvaluation("regime", GateOutcomeFailed)
		RecordGateEvaluation("ai_confidence", GateOutcomeSkipped)
	})
}

func TestSetRegime(t *testing.T) {
	regimes := []string{"TRENDING_UP", "TRENDING_DOWN", "RANGING", "HIGH_VOLATILITY", "CHOPPY"}
	assert.NotPanics(t, func() {
		SetRegime("TRENDING_UP", regimes, 0.81)
		SetRegime("CHOPPY", regimes, 0.40)
	})
}

func TestRecordFeatureCompute(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordFeatureCompute(12.5)
	})
}

func TestRecordDegradedFeatureGroup(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordDegradedFeatureGroup("onchain")
		RecordDegradedFeatureGroup("liquidation")
	})
}

func TestSetDailyBudgetState(t *testing.T) {
	statuses := []string{"ACTIVE", "TARGET_HIT", "STOP_HIT", "MAX_TRADES"}
	assert.NotPanics(t, func() {
		SetDailyBudgetState(4.5, 1, 0, "ACTIVE", statuses)
		SetDailyBudgetState(10.0, 3, 0, "TARGET_HIT", statuses)
	})
}

func TestRecordTrackerOutcome(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordTrackerOutcome("WIN", 42.0)
		RecordTrackerOutcome("LOSS", 118.0)
		RecordTrackerOutcome("TIMEOUT", 240.0)
	})
}

func TestRecordTradeIQ(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordTradeIQ(82, 75.4)
		RecordTradeIQ(45, 52.1)
	})
}

func TestRecordTradeIQDegradation(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordTradeIQDegradation("WARNING")
		RecordTradeIQDegradation("CRITICAL")
	})
}

func TestSetHeartbeatAge(t *testing.T) {
	assert.NotPanics(t, func() {
		SetHeartbeatAge("signal-engine", 3.2)
		SetHeartbeatAge("verifier", 601.0)
	})
}

func TestRecordTick(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordTick("signal-engine", 8.1)
		RecordTick("verifier", 15.9)
	})
}

func TestRecordStoreQuery(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordStoreQuery("insert_signal", 3.4)
		RecordStoreQuery("get_pending_signals", 6.0)
	})
}

func TestRecordMarketData(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordMarketData("klines", 45.0)
		RecordMarketData("depth", 22.0)
	})
}

func TestRecordProviderError(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordProviderError("binance", errors.New("timeout"))
		RecordProviderError("glassnode", nil)
	})
}

func TestRecordNotification(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordNotification("new_signal")
		RecordNotification("daily_target_hit")
	})
}

func TestRecordRedisOperation(t *testing.T) {
	tests := []struct {
		name      string
		operation string
	}{
		{"get operation", "get"},
		{"set operation", "set"},
		{"del operation", "del"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordRedisOperation(tt.operation)
			})
		})
	}
}

func TestUpdateCircuitBreaker(t *testing.T) {
	tests := []struct {
		name    string
		breaker string
		open    bool
	}{
		{"market data open", "market_data", true},
		{"database closed", "database", false},
		{"classifier open", "classifier", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				UpdateCircuitBreaker(tt.breaker, tt.open)
			})
		})
	}
}

func TestRecordCircuitBreakerTrip(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordCircuitBreakerTrip("market_data", "rate limited")
		RecordCircuitBreakerTrip("classifier", "timeout")
	})
}

func TestRecordCircuitBreakerRequest(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordCircuitBreakerRequest("database", "success")
		RecordCircuitBreakerRequest("database", "failure")
	})
}
