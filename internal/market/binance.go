package market

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2/futures"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/btcsignalcore/engine/internal/metrics"
	"github.com/btcsignalcore/engine/internal/risk"
)

const (
	maxRetries      = 3
	baseRetryDelay  = 500 * time.Millisecond
	klineLimit      = 500
	depthLimit      = 20
)

// DataProvider is the read-only capability the assembler needs from an
// exchange: historical backfill plus point-in-time reads. The system never
// places orders, so this interface carries no order-execution methods.
type DataProvider interface {
	FetchKlines(ctx context.Context, tf Timeframe, limit int) ([]Candle, error)
	FetchBook(ctx context.Context) (Book, error)
	FetchPrice(ctx context.Context) (float64, error)
	FetchFunding(ctx context.Context) (Funding, error)
	OpenStream(ctx context.Context, symbol string, handler func(Event)) (stop func(), err error)
}

// BinanceProvider implements DataProvider against Binance USD-M futures.
type BinanceProvider struct {
	client  *binance.Client
	symbol  string
	limiter *rate.Limiter
	log     zerolog.Logger
	breaker *risk.CircuitBreakerManager
}

// NewBinanceProvider builds a read-only market data client. Testnet toggles
// the package-global Binance testnet flag, matching the teacher's client
// construction pattern.
func NewBinanceProvider(apiKey, secretKey, symbol string, testnet bool, log zerolog.Logger) *BinanceProvider {
	client := binance.NewClient(apiKey, secretKey)
	if testnet {
		binance.UseTestnet = true
		log.Info().Msg("binance market data client initialized (testnet)")
	}
	return &BinanceProvider{
		client: client,
		symbol: symbol,
		// Paces REST backfill calls during startup so klines/book/funding
		// fetches across all four timeframes don't burst past Binance's
		// weight limits.
		limiter: rate.NewLimiter(rate.Limit(5), 10),
		log:     log,
	}
}

// WithBreaker attaches the exchange circuit breaker; every REST call made
// after this returns trips and recovers through it. Optional: a provider
// with no breaker attached calls Binance directly.
func (p *BinanceProvider) WithBreaker(cb *risk.CircuitBreakerManager) *BinanceProvider {
	p.breaker = cb
	return p
}

// viaBreaker routes a retrying REST call through the exchange breaker when
// one is attached, so a sustained Binance outage trips once instead of
// exhausting retries on every tick.
func (p *BinanceProvider) viaBreaker(op func() error) error {
	if p.breaker == nil {
		return op()
	}
	_, err := p.breaker.Exchange().Execute(func() (interface{}, error) {
		return nil, op()
	})
	return err
}

var intervalByTF = map[Timeframe]string{
	TF1m:  "1m",
	TF3m:  "3m",
	TF5m:  "5m",
	TF15m: "15m",
}

// FetchKlines fetches the most recent closed candles for a timeframe.
func (p *BinanceProvider) FetchKlines(ctx context.Context, tf Timeframe, limit int) ([]Candle, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	var raw []*binance.Kline
	err := p.viaBreaker(func() error {
		return retryWithBackoff(func() error {
			var err error
			raw, err = p.client.NewKlinesService().
				Symbol(p.symbol).
				Interval(intervalByTF[tf]).
				Limit(limit).
				Do(ctx)
			return err
		}, fmt.Sprintf("fetch_klines_%s", tf))
	})
	metrics.RecordMarketData("klines", float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordProviderError("binance", err)
		return nil, fmt.Errorf("fetch klines %s: %w", tf, err)
	}

	candles := make([]Candle, 0, len(raw))
	for _, k := range raw {
		c, err := parseKline(k)
		if err != nil {
			return nil, fmt.Errorf("parse kline %s: %w", tf, err)
		}
		c.Closed = true
		candles = append(candles, c)
	}
	return candles, nil
}

func parseKline(k *binance.Kline) (Candle, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return Candle{}, err
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return Candle{}, err
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return Candle{}, err
	}
	closeP, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return Candle{}, err
	}
	vol, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return Candle{}, err
	}
	quoteVol, err := strconv.ParseFloat(k.QuoteAssetVolume, 64)
	if err != nil {
		return Candle{}, err
	}
	return Candle{
		Ts:          time.UnixMilli(k.OpenTime),
		Open:        open,
		High:        high,
		Low:         low,
		Close:       closeP,
		Volume:      vol,
		QuoteVolume: quoteVol,
		Trades:      k.TradeNum,
	}, nil
}

// FetchBook fetches a top-20 depth snapshot.
func (p *BinanceProvider) FetchBook(ctx context.Context) (Book, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return Book{}, err
	}

	start := time.Now()
	var resp *binance.DepthResponse
	err := p.viaBreaker(func() error {
		return retryWithBackoff(func() error {
			var err error
			resp, err = p.client.NewDepthService().Symbol(p.symbol).Limit(depthLimit).Do(ctx)
			return err
		}, "fetch_depth")
	})
	metrics.RecordMarketData("depth", float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordProviderError("binance", err)
		return Book{}, fmt.Errorf("fetch depth: %w", err)
	}

	book := Book{Ts: time.Now().UTC()}
	for _, b := range resp.Bids {
		price, _ := strconv.ParseFloat(b.Price, 64)
		qty, _ := strconv.ParseFloat(b.Quantity, 64)
		book.Bids = append(book.Bids, BookLevel{Price: price, Qty: qty})
	}
	for _, a := range resp.Asks {
		price, _ := strconv.ParseFloat(a.Price, 64)
		qty, _ := strconv.ParseFloat(a.Quantity, 64)
		book.Asks = append(book.Asks, BookLevel{Price: price, Qty: qty})
	}
	return book, nil
}

// FetchPrice fetches the latest mark/last price via a single REST call,
// matching the Verifier's polling contract (§4.7).
func (p *BinanceProvider) FetchPrice(ctx context.Context) (float64, error) {
	start := time.Now()
	var resp []*binance.SymbolPrice
	err := p.viaBreaker(func() error {
		return retryWithBackoff(func() error {
			var err error
			resp, err = p.client.NewListPricesService().Symbol(p.symbol).Do(ctx)
			return err
		}, "fetch_price")
	})
	metrics.RecordMarketData("price", float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordProviderError("binance", err)
		return 0, fmt.Errorf("fetch price: %w", err)
	}
	if len(resp) == 0 {
		return 0, fmt.Errorf("fetch price: empty response")
	}
	price, err := strconv.ParseFloat(resp[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price: %w", err)
	}
	return price, nil
}

// FetchFunding fetches the current premium index (funding rate, mark price,
// next funding time).
func (p *BinanceProvider) FetchFunding(ctx context.Context) (Funding, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return Funding{}, err
	}

	start := time.Now()
	var resp *binance.PremiumIndex
	err := p.viaBreaker(func() error {
		return retryWithBackoff(func() error {
			var err error
			resp, err = p.client.NewPremiumIndexService().Symbol(p.symbol).Do(ctx)
			return err
		}, "fetch_funding")
	})
	metrics.RecordMarketData("premium_index", float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordProviderError("binance", err)
		return Funding{}, fmt.Errorf("fetch funding: %w", err)
	}

	rate, err := strconv.ParseFloat(resp.LastFundingRate, 64)
	if err != nil {
		return Funding{}, fmt.Errorf("parse funding rate: %w", err)
	}
	mark, err := strconv.ParseFloat(resp.MarkPrice, 64)
	if err != nil {
		return Funding{}, fmt.Errorf("parse mark price: %w", err)
	}
	return Funding{
		Ts:            time.Now().UTC(),
		Rate:          rate,
		MarkPrice:     mark,
		NextFundingTs: time.UnixMilli(resp.NextFundingTime),
	}, nil
}

// OpenStream starts the combined WebSocket subscriptions in the background
// and returns a stop func that cancels them. Snapshot state is populated by
// the caller's handler, not by this method directly.
func (p *BinanceProvider) OpenStream(ctx context.Context, symbol string, handler func(Event)) (func(), error) {
	streamCtx, cancel := context.WithCancel(ctx)
	stream := NewStream(symbol, p.log, handler)
	go stream.Run(streamCtx)
	return cancel, nil
}

// isRetryableError reports whether a failed call is worth retrying:
// transient network/5xx/timeout conditions, not malformed requests.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	category := metrics.NormalizeProviderError(err)
	switch category {
	case metrics.ProviderErrorTimeout, metrics.ProviderErrorNetwork, metrics.ProviderErrorServerError, metrics.ProviderErrorRateLimit:
		return true
	default:
		return false
	}
}

func retryWithBackoff(operation func() error, operationName string) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryableError(err) {
			return err
		}
		if attempt < maxRetries {
			delay := baseRetryDelay * time.Duration(1<<uint(attempt))
			time.Sleep(delay)
		}
	}
	return fmt.Errorf("%s: exhausted retries: %w", operationName, lastErr)
}
