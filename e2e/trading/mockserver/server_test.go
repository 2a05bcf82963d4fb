package mockserver

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type MockServerTestSuite struct {
	suite.Suite
	server *MockBinanceServer
}

func TestMockServerSuite(t *testing.T) {
	suite.Run(t, new(MockServerTestSuite))
}

func (suite *MockServerTestSuite) SetupTest() {
	config := ServerConfig{
		InitialBalances: map[string]float64{
			"USDT": 10000.0,
			"BTC":  1.0,
		},
		Symbols: []SymbolInfo{
			{Symbol: "BTCUSDT", TickSize: "0.01000000", StepSize: "0.00001000", MinQty: "0.00001000", MinNotional: "10.00000000"},
			{Symbol: "ETHUSDT"},
		},
		Commission: 0.001,
	}

	suite.server = NewMockBinanceServer(config)
	err := suite.server.Start(":0")
	suite.Require().NoError(err)
}

func (suite *MockServerTestSuite) TearDownTest() {
	if suite.server != nil {
		suite.server.Stop()
	}
}

func (suite *MockServerTestSuite) getJSON(path string, out interface{}) int {
	resp, err := http.Get(suite.server.BaseURL() + path)
	suite.Require().NoError(err)
	defer resp.Body.Close()

	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(out))

	return resp.StatusCode
}

func (suite *MockServerTestSuite) postOrder(form url.Values) (int, map[string]interface{}) {
	resp, err := http.Post(suite.server.BaseURL()+"/api/v3/order", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	suite.Require().NoError(err)
	defer resp.Body.Close()

	var body map[string]interface{}
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))

	return resp.StatusCode, body
}

func marketOrder(symbol, side, quantity string) url.Values {
	return url.Values{
		"symbol":   {symbol},
		"side":     {side},
		"type":     {"MARKET"},
		"quantity": {quantity},
	}
}

func (suite *MockServerTestSuite) TestServerStartAndStop() {
	suite.NotEmpty(suite.server.Address())
	suite.Contains(suite.server.BaseURL(), "http://")
}

func (suite *MockServerTestSuite) TestSetAndGetPrice() {
	suite.server.SetPrice("BTCUSDT", 50000.0)
	suite.Equal(50000.0, suite.server.GetPrice("BTCUSDT"))
	suite.Equal(0.0, suite.server.GetPrice("NONEXISTENT"))
}

func (suite *MockServerTestSuite) TestGetBalance() {
	balance := suite.server.GetBalance("USDT")
	suite.Require().NotNil(balance)
	suite.Equal("USDT", balance.Asset)
	suite.Equal(10000.0, balance.Free)
	suite.Nil(suite.server.GetBalance("NONEXISTENT"))
}

func (suite *MockServerTestSuite) TestExchangeInfoFilters() {
	var info struct {
		Symbols []struct {
			Symbol     string                   `json:"symbol"`
			Status     string                   `json:"status"`
			BaseAsset  string                   `json:"baseAsset"`
			QuoteAsset string                   `json:"quoteAsset"`
			Filters    []map[string]interface{} `json:"filters"`
		} `json:"symbols"`
	}

	status := suite.getJSON("/api/v3/exchangeInfo?symbol=BTCUSDT", &info)
	suite.Equal(http.StatusOK, status)
	suite.Require().Len(info.Symbols, 1)

	sym := info.Symbols[0]
	suite.Equal("TRADING", sym.Status)
	suite.Equal("BTC", sym.BaseAsset)
	suite.Equal("USDT", sym.QuoteAsset)

	filters := map[string]map[string]interface{}{}
	for _, f := range sym.Filters {
		filters[f["filterType"].(string)] = f
	}
	suite.Equal("0.01000000", filters["PRICE_FILTER"]["tickSize"])
	suite.Equal("0.00001000", filters["LOT_SIZE"]["stepSize"])
	suite.Equal("10.00000000", filters["NOTIONAL"]["minNotional"])
}

func (suite *MockServerTestSuite) TestExchangeInfoDefaults() {
	var info struct {
		Symbols []struct {
			Filters []map[string]interface{} `json:"filters"`
		} `json:"symbols"`
	}

	suite.getJSON("/api/v3/exchangeInfo?symbol=ETHUSDT", &info)
	suite.Require().Len(info.Symbols, 1)
	suite.Equal("0.00100000", info.Symbols[0].Filters[1]["stepSize"])
	suite.Equal("5.00000000", info.Symbols[0].Filters[2]["minNotional"])
}

func (suite *MockServerTestSuite) TestExchangeInfoUnknownSymbol() {
	var body map[string]interface{}

	status := suite.getJSON("/api/v3/exchangeInfo?symbol=DOGEUSDT", &body)
	suite.Equal(http.StatusBadRequest, status)
	suite.Equal(float64(codeUnknownSymbol), body["code"])
}

func (suite *MockServerTestSuite) TestTickerPriceEndpoint() {
	suite.server.SetPrice("BTCUSDT", 50000.0)
	suite.server.SetPrice("ETHUSDT", 3000.0)

	var prices []map[string]string
	suite.Equal(http.StatusOK, suite.getJSON("/api/v3/ticker/price", &prices))
	suite.Len(prices, 2)

	var single []map[string]string
	suite.Equal(http.StatusOK, suite.getJSON("/api/v3/ticker/price?symbol=BTCUSDT", &single))
	suite.Require().Len(single, 1)
	suite.Equal("BTCUSDT", single[0]["symbol"])
	suite.Equal("50000.00000000", single[0]["price"])
}

func (suite *MockServerTestSuite) TestKlinesServeTailOfSeries() {
	suite.server.SetCloses("BTCUSDT", []float64{1, 2, 3, 4, 5})

	var klines [][]interface{}
	suite.Equal(http.StatusOK, suite.getJSON("/api/v3/klines?symbol=BTCUSDT&interval=15m&limit=3", &klines))
	suite.Require().Len(klines, 3)
	suite.Len(klines[0], 12)

	suite.Equal("2.00000000", klines[0][1])
	suite.Equal("3.00000000", klines[0][4])
	suite.Equal("5.00000000", klines[2][4])
	suite.Less(klines[0][0].(float64), klines[1][0].(float64))
}

func (suite *MockServerTestSuite) TestKlinesMissingParams() {
	var body map[string]interface{}
	suite.Equal(http.StatusBadRequest, suite.getJSON("/api/v3/klines", &body))
	suite.Equal(http.StatusBadRequest, suite.getJSON("/api/v3/klines?symbol=BTCUSDT&interval=7m", &body))
}

func (suite *MockServerTestSuite) TestAccountEndpoint() {
	var account map[string]interface{}
	suite.Equal(http.StatusOK, suite.getJSON("/api/v3/account", &account))

	suite.True(account["canTrade"].(bool))
	suite.Equal("SPOT", account["accountType"])
	suite.Len(account["balances"].([]interface{}), 2)
}

func (suite *MockServerTestSuite) TestCreateMarketBuyOrder() {
	suite.server.SetPrice("BTCUSDT", 50000.0)

	status, body := suite.postOrder(marketOrder("BTCUSDT", "BUY", "0.1"))
	suite.Require().Equal(http.StatusOK, status)

	suite.Equal("FILLED", body["status"])
	suite.Equal("0.10000000", body["executedQty"])
	suite.Equal("5000.00000000", body["cummulativeQuoteQty"])
	suite.NotEmpty(body["clientOrderId"])

	fills := body["fills"].([]interface{})
	suite.Require().Len(fills, 1)
	suite.Equal("50000.00000000", fills[0].(map[string]interface{})["price"])
	suite.Equal("5.00000000", fills[0].(map[string]interface{})["commission"])

	suite.InDelta(5000.0, suite.server.GetBalance("USDT").Free, 1e-9)
	suite.InDelta(1.1, suite.server.GetBalance("BTC").Free, 1e-9)

	orders := suite.server.GetOrders()
	suite.Require().Len(orders, 1)
	suite.Equal(OrderSideBuy, orders[0].Side)
}

func (suite *MockServerTestSuite) TestCreateMarketSellOrder() {
	suite.server.SetPrice("BTCUSDT", 40000.0)

	status, _ := suite.postOrder(marketOrder("BTCUSDT", "SELL", "0.5"))
	suite.Require().Equal(http.StatusOK, status)

	suite.InDelta(30000.0, suite.server.GetBalance("USDT").Free, 1e-9)
	suite.InDelta(0.5, suite.server.GetBalance("BTC").Free, 1e-9)
}

func (suite *MockServerTestSuite) TestCreateOrderInsufficientBalance() {
	suite.server.SetPrice("BTCUSDT", 50000.0)

	status, body := suite.postOrder(marketOrder("BTCUSDT", "BUY", "1"))
	suite.Equal(http.StatusBadRequest, status)
	suite.Equal(float64(codeInsufficientBalance), body["code"])
	suite.Empty(suite.server.GetOrders())
}

func (suite *MockServerTestSuite) TestCreateOrderRejected() {
	suite.server.SetPrice("BTCUSDT", 50000.0)
	suite.server.RejectOrders("trading halted")

	status, body := suite.postOrder(marketOrder("BTCUSDT", "BUY", "0.01"))
	suite.Equal(http.StatusBadRequest, status)
	suite.Equal("trading halted", body["msg"])

	suite.server.RejectOrders("")

	status, _ = suite.postOrder(marketOrder("BTCUSDT", "BUY", "0.01"))
	suite.Equal(http.StatusOK, status)
}

func (suite *MockServerTestSuite) TestCreateOrderValidation() {
	suite.server.SetPrice("BTCUSDT", 50000.0)

	limit := marketOrder("BTCUSDT", "BUY", "0.01")
	limit.Set("type", "LIMIT")

	status, _ := suite.postOrder(limit)
	suite.Equal(http.StatusBadRequest, status)

	status, _ = suite.postOrder(marketOrder("BTCUSDT", "BUY", "abc"))
	suite.Equal(http.StatusBadRequest, status)

	status, _ = suite.postOrder(marketOrder("XRPUSDT", "BUY", "1"))
	suite.Equal(http.StatusBadRequest, status)
}

func (suite *MockServerTestSuite) TestRequestsCounted() {
	var body map[string]interface{}
	suite.getJSON("/api/v3/account", &body)
	suite.getJSON("/api/v3/account", &body)

	suite.Equal(2, suite.server.Requests("/api/v3/account"))
	suite.Equal(0, suite.server.Requests("/api/v3/order"))
}
