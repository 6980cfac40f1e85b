package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bounded cardinality constants for metric labels.
// These ensure metrics don't have unbounded label values which can cause memory issues.
const (
	// Circuit breaker trip reasons (bounded set)
	ReasonRateLimit   = "rate_limit"
	ReasonTimeout     = "timeout"
	ReasonServerError = "server_error"
	ReasonStaleData   = "stale_data"
	ReasonManualHalt  = "manual_halt"
	ReasonOther       = "other"

	// Gate outcomes (bounded set)
	GateOutcomePassed  = "passed"
	GateOutcomeFailed  = "failed"
	GateOutcomeSkipped = "skipped"

	// Provider error categories (bounded set)
	ProviderErrorTimeout     = "timeout"
	ProviderErrorRateLimit   = "rate_limit"
	ProviderErrorAuth        = "authentication"
	ProviderErrorNetwork     = "network"
	ProviderErrorInvalidReq  = "invalid_request"
	ProviderErrorServerError = "server_error"
	ProviderErrorOther       = "other"
)

// NormalizeCircuitBreakerReason maps arbitrary reasons to a bounded set.
func NormalizeCircuitBreakerReason(reason string) string {
	lower := strings.ToLower(reason)
	switch {
	case strings.Contains(lower, "rate") || strings.Contains(lower, "limit"):
		return ReasonRateLimit
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline"):
		return ReasonTimeout
	case strings.Contains(lower, "500") || strings.Contains(lower, "502") || strings.Contains(lower, "503"):
		return ReasonServerError
	case strings.Contains(lower, "stale"):
		return ReasonStaleData
	case strings.Contains(lower, "manual") || strings.Contains(lower, "halt"):
		return ReasonManualHalt
	default:
		return ReasonOther
	}
}

// NormalizeProviderError maps arbitrary provider error messages to a bounded set.
func NormalizeProviderError(err error) string {
	if err == nil {
		return ""
	}
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline"):
		return ProviderErrorTimeout
	case strings.Contains(errStr, "rate") || strings.Contains(errStr, "429"):
		return ProviderErrorRateLimit
	case strings.Contains(errStr, "auth") || strings.Contains(errStr, "401") || strings.Contains(errStr, "403"):
		return ProviderErrorAuth
	case strings.Contains(errStr, "network") || strings.Contains(errStr, "connection"):
		return ProviderErrorNetwork
	case strings.Contains(errStr, "400") || strings.Contains(errStr, "invalid"):
		return ProviderErrorInvalidReq
	case strings.Contains(errStr, "500") || strings.Contains(errStr, "502") || strings.Contains(errStr, "503"):
		return ProviderErrorServerError
	default:
		return ProviderErrorOther
	}
}

// Signal Engine metrics
var (
	// SignalsGenerated counts signals produced by the proposer, by strategy and direction.
	SignalsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalcore_signals_generated_total",
		Help: "Total number of signals generated by strategy and direction",
	}, []string{"strategy", "direction"})

	// SignalConfidence observes the final confidence score of generated signals.
	SignalConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "signalcore_signal_confidence",
		Help:    "Confidence of generated signals",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})

	// SetupQuality observes the setup quality score (0-100) of generated signals.
	SetupQuality = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "signalcore_setup_quality",
		Help:    "Setup quality score of generated signals",
		Buckets: []float64{60, 65, 70, 75, 80, 85, 90, 95, 100},
	})

	// GateEvaluations counts gate pipeline outcomes by gate name and outcome.
	GateEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalcore_gate_evaluations_total",
		Help: "Total gate evaluations by gate name and outcome",
	}, []string{"gate", "outcome"})

	// GateOverallScore observes the overall gate-pipeline score for every evaluation.
	GateOverallScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "signalcore_gate_overall_score",
		Help:    "Overall gate pipeline score per evaluation",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})

	// RegimeDistribution tracks the current regime as a one-hot gauge vector.
	RegimeDistribution = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "signalcore_regime_current",
		Help: "Current regime indicator (1 for the active regime, 0 otherwise)",
	}, []string{"regime"})

	// RegimeConfidence observes regime classifier confidence on every tick.
	RegimeConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "signalcore_regime_confidence",
		Help:    "Regime classifier confidence per tick",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})

	// FeatureComputeDuration observes time spent computing the feature vector.
	FeatureComputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "signalcore_feature_compute_duration_ms",
		Help:    "Feature vector computation duration in milliseconds",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
	})

	// DegradedFeatureGroups counts ticks where a feature group fell back to
	// its degraded-mode sentinel values.
	DegradedFeatureGroups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalcore_degraded_feature_groups_total",
		Help: "Total ticks where a feature group used degraded-mode defaults",
	}, []string{"group"})
)

// Daily Budget metrics
var (
	// DailyPnL is the running total P&L for the current UTC day.
	DailyPnL = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signalcore_daily_pnl",
		Help: "Running profit and loss for the current UTC day",
	})

	// DailyTradeCount is the number of trades taken so far today.
	DailyTradeCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signalcore_daily_trade_count",
		Help: "Number of trades taken so far today",
	})

	// DailyBudgetStatus is a one-hot gauge vector over budget states.
	DailyBudgetStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "signalcore_daily_budget_status",
		Help: "Current daily budget status indicator (1 for the active status, 0 otherwise)",
	}, []string{"status"})

	// ConsecutiveLosses tracks the current consecutive-loss streak.
	ConsecutiveLosses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signalcore_consecutive_losses",
		Help: "Current consecutive loss streak",
	})
)

// Tracker / Trade-IQ metrics
var (
	// TrackerOutcomes counts signal resolutions by outcome (WIN/LOSS/TIMEOUT).
	TrackerOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalcore_tracker_outcomes_total",
		Help: "Total signal resolutions by outcome",
	}, []string{"outcome"})

	// TrackerHoldDuration observes signal hold time in minutes.
	TrackerHoldDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "signalcore_tracker_hold_duration_minutes",
		Help:    "Signal hold duration in minutes until resolution",
		Buckets: []float64{5, 15, 30, 60, 120, 180, 240},
	})

	// TradeIQScore observes the trade-IQ score (0-100) for each resolved signal.
	TradeIQScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "signalcore_trade_iq_score",
		Help:    "Trade-IQ quality score per resolved signal",
		Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})

	// TradeIQRollingAvg10 is the rolling average of the last 10 trade-IQ scores.
	TradeIQRollingAvg10 = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signalcore_trade_iq_rolling_avg_10",
		Help: "Rolling average of the last 10 trade-IQ scores",
	})

	// TradeIQDegradationAlerts counts degradation alerts by level (WARNING/CRITICAL).
	TradeIQDegradationAlerts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalcore_trade_iq_degradation_alerts_total",
		Help: "Total trade-IQ degradation alerts by level",
	}, []string{"level"})
)

// Market data / process health metrics
var (
	// HeartbeatAge observes the age of the most recently read heartbeat row.
	HeartbeatAge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "signalcore_heartbeat_age_seconds",
		Help: "Age in seconds of the last observed heartbeat, by process",
	}, []string{"process"})

	// TickDuration observes the duration of one scheduler tick.
	TickDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "signalcore_tick_duration_ms",
		Help:    "Tick loop duration in milliseconds, by process",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"process"})

	// StoreQueryDuration observes durable-store query latency.
	StoreQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "signalcore_store_query_duration_ms",
		Help:    "Durable store query duration in milliseconds",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"query"})

	// MarketDataLatency observes exchange REST/WS call latency.
	MarketDataLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "signalcore_market_data_latency_ms",
		Help:    "Exchange market data call latency in milliseconds",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500},
	}, []string{"endpoint"})

	// ProviderErrors counts normalized provider errors by provider and category.
	ProviderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalcore_provider_errors_total",
		Help: "Total provider errors by provider and normalized category",
	}, []string{"provider", "category"})

	// NotificationsSent counts notifications dispatched by kind.
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalcore_notifications_sent_total",
		Help: "Total notifications sent by kind",
	}, []string{"kind"})

	// RedisCacheHitRate tracks hit ratio for the external-data cache.
	RedisCacheHitRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signalcore_redis_cache_hit_rate",
		Help: "External data cache hit rate as a ratio (0.0 to 1.0)",
	})

	// RedisOperations counts Redis operations by type.
	RedisOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalcore_redis_operations_total",
		Help: "Total number of Redis operations by type",
	}, []string{"operation"})
)

// Circuit Breaker Metrics
var (
	// CircuitBreakerStatus is 1 when the named breaker is tripped, 0 otherwise.
	CircuitBreakerStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "signalcore_circuit_breaker_status",
		Help: "Circuit breaker status (1 = open/tripped, 0 = closed)",
	}, []string{"breaker"})

	// CircuitBreakerTrips counts trips by breaker and normalized reason.
	CircuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalcore_circuit_breaker_trips_total",
		Help: "Total number of circuit breaker trips",
	}, []string{"breaker", "reason"})

	// CircuitBreakerRequests counts requests routed through a breaker, by outcome.
	CircuitBreakerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalcore_circuit_breaker_requests_total",
		Help: "Total requests routed through a circuit breaker by outcome",
	}, []string{"breaker", "outcome"})
)

// Helper functions to update metrics

// RecordSignal records a generated signal's strategy, direction, confidence and quality.
func RecordSignal(strategy, direction string, confidence float64, setupQuality int) {
	SignalsGenerated.WithLabelValues(strategy, direction).Inc()
	SignalConfidence.Observe(confidence)
	SetupQuality.Observe(float64(setupQuality))
}

// RecordGateEvaluation records a single gate's outcome.
func RecordGateEvaluation(gate, outcome string) {
	GateEvaluations.WithLabelValues(gate, outcome).Inc()
}

// SetRegime updates the one-hot regime gauge vector and observes confidence.
func SetRegime(current string, all []string, confidence float64) {
	for _, r := range all {
		value := 0.0
		if r == current {
			value = 1.0
		}
		RegimeDistribution.WithLabelValues(r).Set(value)
	}
	RegimeConfidence.Observe(confidence)
}

// RecordFeatureCompute records feature vector computation latency.
func RecordFeatureCompute(durationMs float64) {
	FeatureComputeDuration.Observe(durationMs)
}

// RecordDegradedFeatureGroup records that a feature group fell back to degraded defaults.
func RecordDegradedFeatureGroup(group string) {
	DegradedFeatureGroups.WithLabelValues(group).Inc()
}

// SetDailyBudgetState updates the daily P&L, trade count, consecutive losses and status gauges.
func SetDailyBudgetState(pnl float64, tradeCount, consecutiveLosses int, status string, allStatuses []string) {
	DailyPnL.Set(pnl)
	DailyTradeCount.Set(float64(tradeCount))
	ConsecutiveLosses.Set(float64(consecutiveLosses))
	for _, s := range allStatuses {
		value := 0.0
		if s == status {
			value = 1.0
		}
		DailyBudgetStatus.WithLabelValues(s).Set(value)
	}
}

// RecordTrackerOutcome records a resolved signal's outcome and hold duration.
func RecordTrackerOutcome(outcome string, holdMinutes float64) {
	TrackerOutcomes.WithLabelValues(outcome).Inc()
	TrackerHoldDuration.Observe(holdMinutes)
}

// RecordTradeIQ records a trade-IQ score and updates the rolling average gauge.
func RecordTradeIQ(score int, rollingAvg10 float64) {
	TradeIQScore.Observe(float64(score))
	TradeIQRollingAvg10.Set(rollingAvg10)
}

// RecordTradeIQDegradation records a WARNING or CRITICAL trade-IQ degradation alert.
func RecordTradeIQDegradation(level string) {
	TradeIQDegradationAlerts.WithLabelValues(level).Inc()
}

// SetHeartbeatAge records the observed age of a process's heartbeat row.
func SetHeartbeatAge(process string, ageSeconds float64) {
	HeartbeatAge.WithLabelValues(process).Set(ageSeconds)
}

// RecordTick records one scheduler tick's duration for a process.
func RecordTick(process string, durationMs float64) {
	TickDuration.WithLabelValues(process).Observe(durationMs)
}

// RecordStoreQuery records durable store query latency by query name.
func RecordStoreQuery(query string, durationMs float64) {
	StoreQueryDuration.WithLabelValues(query).Observe(durationMs)
}

// RecordMarketData records exchange data call latency by endpoint.
func RecordMarketData(endpoint string, durationMs float64) {
	MarketDataLatency.WithLabelValues(endpoint).Observe(durationMs)
}

// RecordProviderError records a normalized provider error.
func RecordProviderError(provider string, err error) {
	if err == nil {
		return
	}
	ProviderErrors.WithLabelValues(provider, NormalizeProviderError(err)).Inc()
}

// RecordNotification records a dispatched notification by kind.
func RecordNotification(kind string) {
	NotificationsSent.WithLabelValues(kind).Inc()
}

// RecordRedisOperation records a Redis operation by type.
func RecordRedisOperation(operation string) {
	RedisOperations.WithLabelValues(operation).Inc()
}

// UpdateCircuitBreaker updates a circuit breaker's tripped/closed status gauge.
func UpdateCircuitBreaker(breaker string, open bool) {
	status := 0.0
	if open {
		status = 1.0
	}
	CircuitBreakerStatus.WithLabelValues(breaker).Set(status)
}

// RecordCircuitBreakerTrip records a circuit breaker trip with a normalized reason.
func RecordCircuitBreakerTrip(breaker, reason string) {
	CircuitBreakerTrips.WithLabelValues(breaker, NormalizeCircuitBreakerReason(reason)).Inc()
}

// RecordCircuitBreakerRequest records a request routed through a breaker by outcome.
func RecordCircuitBreakerRequest(breaker, outcome string) {
	CircuitBreakerRequests.WithLabelValues(breaker, outcome).Inc()
}
