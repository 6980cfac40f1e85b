package features

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/btcsignalcore/engine/internal/metrics"
)

// externalCacheTTL is the staleness window for onchain/liquidation data,
// matching the original system's 5-minute cache interval.
const externalCacheTTL = 5 * time.Minute

// LiquidationLevel mirrors a single liquidation-heatmap entry.
type LiquidationLevel struct {
	Price  float64
	Volume float64
	Side   string // "long" or "short"
}

// OnchainSnapshot is the subset of glassnode-style metrics the onchain group
// needs for one compute pass.
type OnchainSnapshot struct {
	ExchangeInflow    float64
	ExchangeOutflow   float64
	ActiveAddresses   float64
	TransactionCount  float64
	SOPR              float64
	MinerReserve      float64
	SupplyOnExchange  float64
	LargeTxCount      float64
	WhaleAccumulation float64
	WhaleDistribution float64
}

// ExternalProvider is satisfied by a real HTTP-backed client (degraded when
// no API key is configured, per spec.md §4.2) or a test double.
type ExternalProvider interface {
	FetchLiquidationLevels(ctx context.Context) ([]LiquidationLevel, error)
	FetchLiquidationVolume(ctx context.Context, window string) (float64, error)
	FetchOnchainSnapshot(ctx context.Context) (OnchainSnapshot, error)
}

// ExtCache is a Redis-backed, 5-minute TTL cache in front of an
// ExternalProvider, so repeated engine ticks don't refetch onchain/liquidation
// data every 60s tick when it only updates every 5 minutes upstream.
type ExtCache struct {
	rdb      *redis.Client
	provider ExternalProvider
	log      zerolog.Logger
}

// NewExtCache wires a Redis client and an upstream provider together.
func NewExtCache(rdb *redis.Client, provider ExternalProvider, log zerolog.Logger) *ExtCache {
	return &ExtCache{rdb: rdb, provider: provider, log: log.With().Str("component", "ext_cache").Logger()}
}

// LiquidationLevels returns the cached heatmap, refetching on a cache miss
// or stale entry.
func (c *ExtCache) LiquidationLevels(ctx context.Context) ([]LiquidationLevel, error) {
	const key = "ext:liq:levels"
	var levels []LiquidationLevel
	if c.getCached(ctx, key, &levels) {
		metrics.RecordRedisOperation("get_hit")
		return levels, nil
	}
	metrics.RecordRedisOperation("get_miss")

	levels, err := c.provider.FetchLiquidationLevels(ctx)
	if err != nil {
		return nil, err
	}
	c.setCached(ctx, key, levels)
	return levels, nil
}

// LiquidationVolume returns cached recent liquidation volume for a window
// ("h1" or "h24").
func (c *ExtCache) LiquidationVolume(ctx context.Context, window string) (float64, error) {
	key := fmt.Sprintf("ext:liq:volume:%s", window)
	var vol float64
	if c.getCached(ctx, key, &vol) {
		metrics.RecordRedisOperation("get_hit")
		return vol, nil
	}
	metrics.RecordRedisOperation("get_miss")

	vol, err := c.provider.FetchLiquidationVolume(ctx, window)
	if err != nil {
		return 0, err
	}
	c.setCached(ctx, key, vol)
	return vol, nil
}

// OnchainSnapshot returns the cached onchain metrics bundle.
func (c *ExtCache) OnchainSnapshot(ctx context.Context) (OnchainSnapshot, error) {
	const key = "ext:onchain:snapshot"
	var snap OnchainSnapshot
	if c.getCached(ctx, key, &snap) {
		metrics.RecordRedisOperation("get_hit")
		return snap, nil
	}
	metrics.RecordRedisOperation("get_miss")

	snap, err := c.provider.FetchOnchainSnapshot(ctx)
	if err != nil {
		return OnchainSnapshot{}, err
	}
	c.setCached(ctx, key, snap)
	return snap, nil
}

func (c *ExtCache) getCached(ctx context.Context, key string, dest any) bool {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("failed to decode cached value")
		return false
	}
	return true
}

func (c *ExtCache) setCached(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("failed to encode value for cache")
		return
	}
	if err := c.rdb.Set(ctx, key, raw, externalCacheTTL).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("failed to write cache entry")
		return
	}
	metrics.RecordRedisOperation("set")
}

// DegradedProvider is the zero-config ExternalProvider used when no
// coinglass/glassnode API key is configured: it always reports empty/neutral
// data, matching the original system's own fallback behavior rather than
// failing outright.
type DegradedProvider struct{}

func (DegradedProvider) FetchLiquidationLevels(ctx context.Context) ([]LiquidationLevel, error) {
	return nil, nil
}

func (DegradedProvider) FetchLiquidationVolume(ctx context.Context, window string) (float64, error) {
	return 0, nil
}

func (DegradedProvider) FetchOnchainSnapshot(ctx context.Context) (OnchainSnapshot, error) {
	return OnchainSnapshot{SOPR: 1.0}, nil
}

// HTTPProvider fetches liquidation and onchain data from Coinglass and
// Glassnode respectively, retrying transient failures via retryablehttp.
type HTTPProvider struct {
	client           *retryablehttp.Client
	coinglassAPIKey  string
	glassnodeAPIKey  string
	symbol           string
}

// NewHTTPProvider builds an ExternalProvider backed by real upstream APIs.
// An empty key for either service degrades that service's methods to the
// DegradedProvider's neutral values.
func NewHTTPProvider(coinglassAPIKey, glassnodeAPIKey, symbol string, log zerolog.Logger) *HTTPProvider {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = nil
	return &HTTPProvider{client: client, coinglassAPIKey: coinglassAPIKey, glassnodeAPIKey: glassnodeAPIKey, symbol: symbol}
}

func (p *HTTPProvider) FetchLiquidationLevels(ctx context.Context) ([]LiquidationLevel, error) {
	if p.coinglassAPIKey == "" {
		return nil, nil
	}
	url := "https://open-api.coinglass.com/public/v2/liquidation_heatmap?symbol=" + p.symbol
	var body struct {
		Success bool `json:"success"`
		Data    []struct {
			Price  string `json:"price"`
			Volume string `json:"volume"`
			Side   string `json:"side"`
		} `json:"data"`
	}
	if err := p.getJSON(ctx, url, &body); err != nil {
		metrics.RecordProviderError("coinglass", err)
		return nil, err
	}
	if !body.Success {
		return nil, nil
	}
	levels := make([]LiquidationLevel, 0, len(body.Data))
	for _, d := range body.Data {
		levels = append(levels, LiquidationLevel{
			Price:  parseFloat(d.Price),
			Volume: parseFloat(d.Volume),
			Side:   d.Side,
		})
	}
	return levels, nil
}

func (p *HTTPProvider) FetchLiquidationVolume(ctx context.Context, window string) (float64, error) {
	if p.coinglassAPIKey == "" {
		return 0, nil
	}
	url := fmt.Sprintf("https://open-api.coinglass.com/public/v2/liquidation_info?symbol=%s&time_type=%s", p.symbol, window)
	var body struct {
		Success bool `json:"success"`
		Data    struct {
			VolUsd string `json:"volUsd"`
		} `json:"data"`
	}
	if err := p.getJSON(ctx, url, &body); err != nil {
		metrics.RecordProviderError("coinglass", err)
		return 0, err
	}
	if !body.Success {
		return 0, nil
	}
	return parseFloat(body.Data.VolUsd), nil
}

func (p *HTTPProvider) FetchOnchainSnapshot(ctx context.Context) (OnchainSnapshot, error) {
	if p.glassnodeAPIKey == "" {
		return OnchainSnapshot{SOPR: 1.0}, nil
	}
	snap := OnchainSnapshot{SOPR: 1.0}
	metricTargets := map[string]*float64{
		"transactions/transfers_to_exchanges_count":   &snap.ExchangeInflow,
		"transactions/transfers_from_exchanges_count": &snap.ExchangeOutflow,
		"addresses/active_count":                      &snap.ActiveAddresses,
		"transactions/count":                          &snap.TransactionCount,
		"indicators/sopr":                             &snap.SOPR,
		"mining/balance":                               &snap.MinerReserve,
		"distribution/balance_exchanges":                &snap.SupplyOnExchange,
	}
	for metric, dest := range metricTargets {
		v, err := p.fetchGlassnodeMetric(ctx, metric)
		if err != nil {
			continue
		}
		*dest = v
	}
	return snap, nil
}

func (p *HTTPProvider) fetchGlassnodeMetric(ctx context.Context, metric string) (float64, error) {
	url := fmt.Sprintf("https://api.glassnode.com/v1/metrics/%s?a=BTC&api_key=%s&i=24h", metric, p.glassnodeAPIKey)
	var body []struct {
		V float64 `json:"v"`
	}
	if err := p.getJSON(ctx, url, &body); err != nil {
		return 0, err
	}
	if len(body) == 0 {
		return 0, fmt.Errorf("glassnode %s: empty response", metric)
	}
	return body[len(body)-1].V, nil
}

func (p *HTTPProvider) getJSON(ctx context.Context, url string, dest any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
