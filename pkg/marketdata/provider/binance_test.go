package provider

import (
	"context"
	"errors"
	"testing"

	binance "github.com/adshao/go-binance/v2"
	argoerrors "github.com/rxtech-lab/argo-riskbot/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// mockBinanceAPIClient implements BinanceAPIClient for testing.
type mockBinanceAPIClient struct {
	klines    []*binance.Kline
	klinesErr error
	prices    []*binance.SymbolPrice
	pricesErr error

	klinesService *mockBinanceKlinesService
	pricesService *mockBinancePricesService
}

func (m *mockBinanceAPIClient) NewKlinesService() BinanceKlinesService {
	m.klinesService = &mockBinanceKlinesService{client: m}

	return m.klinesService
}

func (m *mockBinanceAPIClient) NewListPricesService() BinancePricesService {
	m.pricesService = &mockBinancePricesService{client: m}

	return m.pricesService
}

type mockBinanceKlinesService struct {
	client   *mockBinanceAPIClient
	symbol   string
	interval string
	limit    int
}

func (m *mockBinanceKlinesService) Symbol(symbol string) BinanceKlinesService {
	m.symbol = symbol

	return m
}

func (m *mockBinanceKlinesService) Interval(interval string) BinanceKlinesService {
	m.interval = interval

	return m
}

func (m *mockBinanceKlinesService) Limit(limit int) BinanceKlinesService {
	m.limit = limit

	return m
}

func (m *mockBinanceKlinesService) Do(_ context.Context) ([]*binance.Kline, error) {
	return m.client.klines, m.client.klinesErr
}

type mockBinancePricesService struct {
	client *mockBinanceAPIClient
	symbol string
}

func (m *mockBinancePricesService) Symbol(symbol string) BinancePricesService {
	m.symbol = symbol

	return m
}

func (m *mockBinancePricesService) Do(_ context.Context) ([]*binance.SymbolPrice, error) {
	return m.client.prices, m.client.pricesErr
}

type BinanceClientTestSuite struct {
	suite.Suite
	api    *mockBinanceAPIClient
	client *BinanceClient
}

func TestBinanceClientSuite(t *testing.T) {
	suite.Run(t, new(BinanceClientTestSuite))
}

func (suite *BinanceClientTestSuite) SetupTest() {
	suite.api = &mockBinanceAPIClient{}
	suite.client = NewBinanceClientWithAPI(suite.api, nil)
}

func (suite *BinanceClientTestSuite) TestNewMarketDataProvider() {
	src, err := NewMarketDataProvider(ProviderBinance, BinanceConfig{RequestsPerSecond: 5})
	suite.NoError(err)
	suite.NotNil(src)

	_, err = NewMarketDataProvider("polygon", BinanceConfig{})
	suite.Error(err)
}

func (suite *BinanceClientTestSuite) TestLatestPrice() {
	suite.api.prices = []*binance.SymbolPrice{{Symbol: "BTCUSDT", Price: "64250.12000000"}}

	price, err := suite.client.LatestPrice(context.Background(), "BTCUSDT")
	suite.Require().NoError(err)
	suite.Equal("BTCUSDT", suite.api.pricesService.symbol)
	suite.True(decimal.RequireFromString("64250.12").Equal(price))
}

func (suite *BinanceClientTestSuite) TestLatestPriceErrors() {
	tests := []struct {
		name   string
		prices []*binance.SymbolPrice
		err    error
	}{
		{"transport error", nil, errors.New("timeout")},
		{"empty response", nil, nil},
		{"other symbol", []*binance.SymbolPrice{{Symbol: "ETHUSDT", Price: "3000"}}, nil},
		{"bad number", []*binance.SymbolPrice{{Symbol: "BTCUSDT", Price: "n/a"}}, nil},
		{"zero price", []*binance.SymbolPrice{{Symbol: "BTCUSDT", Price: "0"}}, nil},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.api.prices = tc.prices
			suite.api.pricesErr = tc.err

			_, err := suite.client.LatestPrice(context.Background(), "BTCUSDT")
			suite.True(argoerrors.HasCode(err, argoerrors.ErrCodeMarketDataUnavailable), "got %v", err)
		})
	}
}

func (suite *BinanceClientTestSuite) TestCandles() {
	suite.api.klines = []*binance.Kline{
		{OpenTime: 1000, CloseTime: 1999, Open: "1", High: "2", Low: "0.5", Close: "1.5", Volume: "10"},
		{OpenTime: 2000, CloseTime: 2999, Open: "1.5", High: "3", Low: "1.4", Close: "2.5", Volume: "12"},
	}

	candles, err := suite.client.Candles(context.Background(), "ETHUSDT", "15m", 250)
	suite.Require().NoError(err)
	suite.Len(candles, 2)
	suite.Equal("ETHUSDT", suite.api.klinesService.symbol)
	suite.Equal("15m", suite.api.klinesService.interval)
	suite.Equal(250, suite.api.klinesService.limit)

	suite.Equal(1.5, candles[0].Close)
	suite.Equal(2.5, candles[1].Close)
	suite.Equal(3.0, candles[1].High)
	suite.Equal(int64(2000), candles[1].OpenTime.UnixMilli())
	suite.True(candles[0].OpenTime.Before(candles[1].OpenTime))
}

func (suite *BinanceClientTestSuite) TestCandlesLimitIsCapped() {
	_, err := suite.client.Candles(context.Background(), "ETHUSDT", "1h", 5000)
	suite.Require().NoError(err)
	suite.Equal(BinanceMaxKlines, suite.api.klinesService.limit)
}

func (suite *BinanceClientTestSuite) TestCandlesErrors() {
	_, err := suite.client.Candles(context.Background(), "ETHUSDT", "1h", 0)
	suite.True(argoerrors.HasCode(err, argoerrors.ErrCodeInvalidParameter))

	suite.api.klinesErr = errors.New("418 teapot")
	_, err = suite.client.Candles(context.Background(), "ETHUSDT", "1h", 10)
	suite.True(argoerrors.HasCode(err, argoerrors.ErrCodeMarketDataUnavailable))

	suite.api.klinesErr = nil
	suite.api.klines = []*binance.Kline{{Open: "x", High: "1", Low: "1", Close: "1", Volume: "1"}}
	_, err = suite.client.Candles(context.Background(), "ETHUSDT", "1h", 10)
	suite.True(argoerrors.HasCode(err, argoerrors.ErrCodeMarketDataUnavailable))
}
