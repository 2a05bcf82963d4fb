package provider

import (
	"context"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/argo-riskbot/internal/types"
	"github.com/rxtech-lab/argo-riskbot/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// BinanceMaxKlines is the largest page the klines endpoint returns.
const BinanceMaxKlines = 1000

// BinanceKlinesService abstracts binance.KlinesService for testing.
type BinanceKlinesService interface {
	Symbol(symbol string) BinanceKlinesService
	Interval(interval string) BinanceKlinesService
	Limit(limit int) BinanceKlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// BinancePricesService abstracts binance.ListPricesService for testing.
type BinancePricesService interface {
	Symbol(symbol string) BinancePricesService
	Do(ctx context.Context) ([]*binance.SymbolPrice, error)
}

// BinanceAPIClient abstracts the public market data endpoints.
type BinanceAPIClient interface {
	NewKlinesService() BinanceKlinesService
	NewListPricesService() BinancePricesService
}

type realBinanceAPIClient struct {
	client *binance.Client
}

func (r *realBinanceAPIClient) NewKlinesService() BinanceKlinesService {
	return &realKlinesService{service: r.client.NewKlinesService()}
}

func (r *realBinanceAPIClient) NewListPricesService() BinancePricesService {
	return &realPricesService{service: r.client.NewListPricesService()}
}

type realKlinesService struct {
	service *binance.KlinesService
}

func (s *realKlinesService) Symbol(symbol string) BinanceKlinesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realKlinesService) Interval(interval string) BinanceKlinesService {
	s.service = s.service.Interval(interval)

	return s
}

func (s *realKlinesService) Limit(limit int) BinanceKlinesService {
	s.service = s.service.Limit(limit)

	return s
}

func (s *realKlinesService) Do(ctx context.Context) ([]*binance.Kline, error) {
	return s.service.Do(ctx)
}

type realPricesService struct {
	service *binance.ListPricesService
}

func (s *realPricesService) Symbol(symbol string) BinancePricesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realPricesService) Do(ctx context.Context) ([]*binance.SymbolPrice, error) {
	return s.service.Do(ctx)
}

// BinanceConfig configures the public market data client.
type BinanceConfig struct {
	BaseURL           string
	Testnet           bool
	RequestsPerSecond float64
}

type BinanceClient struct {
	apiClient BinanceAPIClient
	limiter   *rate.Limiter
}

// NewBinanceClient creates an unauthenticated client for public endpoints.
func NewBinanceClient(config BinanceConfig) *BinanceClient {
	if config.Testnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient("", "")
	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	return NewBinanceClientWithAPI(&realBinanceAPIClient{client: client}, newLimiter(config.RequestsPerSecond))
}

// NewBinanceClientWithAPI creates a client over a custom API implementation.
// A nil limiter disables rate limiting.
func NewBinanceClientWithAPI(api BinanceAPIClient, limiter *rate.Limiter) *BinanceClient {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}

	return &BinanceClient{
		apiClient: api,
		limiter:   limiter,
	}
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}

	return rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
}

// LatestPrice returns the last traded price for symbol.
func (c *BinanceClient) LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return decimal.Zero, errors.Wrap(errors.ErrCodeMarketDataUnavailable, "rate limiter wait aborted", err)
	}

	prices, err := c.apiClient.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrapf(errors.ErrCodeMarketDataUnavailable, err, "failed to fetch price for %s", symbol)
	}

	for _, p := range prices {
		if p.Symbol != symbol {
			continue
		}

		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return decimal.Zero, errors.Wrapf(errors.ErrCodeMarketDataUnavailable, err, "bad price %q for %s", p.Price, symbol)
		}

		if !price.IsPositive() {
			return decimal.Zero, errors.Newf(errors.ErrCodeMarketDataUnavailable, "non-positive price %s for %s", price, symbol)
		}

		return price, nil
	}

	return decimal.Zero, errors.Newf(errors.ErrCodeMarketDataUnavailable, "no price returned for %s", symbol)
}

// Candles fetches the most recent count klines for symbol, oldest first.
func (c *BinanceClient) Candles(ctx context.Context, symbol string, interval string, count int) ([]types.Candle, error) {
	if count <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "candle count must be positive, got %d", count)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMarketDataUnavailable, "rate limiter wait aborted", err)
	}

	klines, err := c.apiClient.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(min(count, BinanceMaxKlines)).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataUnavailable, err, "failed to fetch klines for %s", symbol)
	}

	return processKlines(klines)
}

// processKlines converts Binance kline data to candles.
func processKlines(klines []*binance.Kline) ([]types.Candle, error) {
	candles := make([]types.Candle, 0, len(klines))

	for _, k := range klines {
		values := [5]float64{}
		for i, raw := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrCodeMarketDataUnavailable, err, "bad kline value %q", raw)
			}

			values[i] = v
		}

		candles = append(candles, types.Candle{
			OpenTime:  time.UnixMilli(k.OpenTime),
			CloseTime: time.UnixMilli(k.CloseTime),
			Open:      values[0],
			High:      values[1],
			Low:       values[2],
			Close:     values[3],
			Volume:    values[4],
		})
	}

	return candles, nil
}

var _ Source = (*BinanceClient)(nil)
