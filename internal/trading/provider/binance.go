package tradingprovider

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/argo-riskbot/internal/types"
	"github.com/rxtech-lab/argo-riskbot/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Service interfaces for mocking the Binance API

// CreateOrderService interface for creating orders.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side binance.SideType) CreateOrderService
	Type(orderType binance.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	NewOrderRespType(respType binance.NewOrderRespType) CreateOrderService
	Do(ctx context.Context) (*binance.CreateOrderResponse, error)
}

// GetAccountService interface for getting account info.
type GetAccountService interface {
	Do(ctx context.Context) (*binance.Account, error)
}

// ExchangeInfoService interface for reading symbol trading rules.
type ExchangeInfoService interface {
	Symbol(symbol string) ExchangeInfoService
	Do(ctx context.Context) (*binance.ExchangeInfo, error)
}

// BinanceClient interface abstracts the Binance client for testing.
type BinanceClient interface {
	NewCreateOrderService() CreateOrderService
	NewGetAccountService() GetAccountService
	NewExchangeInfoService() ExchangeInfoService
}

// realBinanceClient wraps the actual binance.Client.
type realBinanceClient struct {
	client *binance.Client
}

func (r *realBinanceClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

func (r *realBinanceClient) NewGetAccountService() GetAccountService {
	return &realGetAccountService{service: r.client.NewGetAccountService()}
}

func (r *realBinanceClient) NewExchangeInfoService() ExchangeInfoService {
	return &realExchangeInfoService{service: r.client.NewExchangeInfoService()}
}

// Real service wrappers

type realCreateOrderService struct {
	service *binance.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side binance.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) NewOrderRespType(respType binance.NewOrderRespType) CreateOrderService {
	s.service = s.service.NewOrderRespType(respType)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

type realGetAccountService struct {
	service *binance.GetAccountService
}

func (s *realGetAccountService) Do(ctx context.Context) (*binance.Account, error) {
	return s.service.Do(ctx)
}

type realExchangeInfoService struct {
	service *binance.ExchangeInfoService
}

func (s *realExchangeInfoService) Symbol(symbol string) ExchangeInfoService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realExchangeInfoService) Do(ctx context.Context) (*binance.ExchangeInfo, error) {
	return s.service.Do(ctx)
}

// BinanceTradingSystemProvider implements TradingSystemProvider using Binance API.
// It is stateless - all data is fetched directly from the Binance API.
type BinanceTradingSystemProvider struct {
	client  BinanceClient
	limiter *rate.Limiter
	now     func() time.Time
}

// NewBinanceTradingSystemProvider creates a new Binance trading system.
// If config.Testnet is true, connects to Binance Testnet (https://testnet.binance.vision/).
// If config.BaseURL is set, it takes precedence over Testnet.
func NewBinanceTradingSystemProvider(config BinanceProviderConfig) (*BinanceTradingSystemProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.Testnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient(config.ApiKey, config.SecretKey)

	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	return newBinanceTradingSystemProviderWithClient(&realBinanceClient{client: client}, NewLimiter(config.RequestsPerSecond)), nil
}

// NewBinanceRulesProvider creates an unauthenticated provider for the public
// endpoints only. ExchangeRules works; orders and balances are rejected by
// the exchange.
func NewBinanceRulesProvider(baseURL string, testnet bool, rps float64) *BinanceTradingSystemProvider {
	if testnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = baseURL
	}

	return newBinanceTradingSystemProviderWithClient(&realBinanceClient{client: client}, NewLimiter(rps))
}

// newBinanceTradingSystemProviderWithClient creates a new Binance trading system with a custom client.
// This is used for testing with mock clients.
func newBinanceTradingSystemProviderWithClient(client BinanceClient, limiter *rate.Limiter) *BinanceTradingSystemProvider {
	if limiter == nil {
		limiter = NewLimiter(0)
	}

	return &BinanceTradingSystemProvider{
		client:  client,
		limiter: limiter,
		now:     time.Now,
	}
}

// NewLimiter returns a limiter allowing rps requests per second with a burst
// of the same size. A non-positive rps means unlimited.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}

	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	return rate.NewLimiter(rate.Limit(rps), burst)
}

// PlaceMarketOrder places a market order on Binance and reports the fill.
func (b *BinanceTradingSystemProvider) PlaceMarketOrder(ctx context.Context, order types.MarketOrder) (types.OrderFill, error) {
	if err := order.Validate(); err != nil {
		return types.OrderFill{}, err
	}

	var side binance.SideType

	switch order.Side {
	case types.PurchaseTypeBuy:
		side = binance.SideTypeBuy
	case types.PurchaseTypeSell:
		side = binance.SideTypeSell
	default:
		return types.OrderFill{}, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported order side: %s", order.Side)
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return types.OrderFill{}, errors.Wrap(errors.ErrCodeOrderFailed, "rate limiter wait aborted", err)
	}

	res, err := b.client.NewCreateOrderService().
		Symbol(order.Symbol).
		Side(side).
		Type(binance.OrderTypeMarket).
		Quantity(order.Quantity.String()).
		NewOrderRespType(binance.NewOrderRespTypeFULL).
		Do(ctx)
	if err != nil {
		return types.OrderFill{}, errors.Wrap(errors.ErrCodeOrderFailed, "failed to place order on Binance", err)
	}

	fill, err := fillFromResponse(res)
	if err != nil {
		return types.OrderFill{}, err
	}

	if fill.TransactTime.IsZero() {
		fill.TransactTime = b.now()
	}

	return fill, nil
}

// ExchangeRules returns the PRICE_FILTER, LOT_SIZE and notional filters for symbol.
func (b *BinanceTradingSystemProvider) ExchangeRules(ctx context.Context, symbol string) (types.ExchangeRules, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return types.ExchangeRules{}, errors.Wrap(errors.ErrCodeMetadataUnavailable, "rate limiter wait aborted", err)
	}

	info, err := b.client.NewExchangeInfoService().Symbol(symbol).Do(ctx)
	if err != nil {
		return types.ExchangeRules{}, errors.Wrapf(errors.ErrCodeMetadataUnavailable, err, "failed to get exchange info for %s", symbol)
	}

	for _, s := range info.Symbols {
		if s.Symbol == symbol {
			return rulesFromSymbol(s)
		}
	}

	return types.ExchangeRules{}, errors.Newf(errors.ErrCodeMetadataUnavailable, "symbol %s not listed", symbol)
}

// QuoteBalance returns the free balance of asset in the account.
func (b *BinanceTradingSystemProvider) QuoteBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return decimal.Zero, errors.Wrap(errors.ErrCodeOrderFailed, "rate limiter wait aborted", err)
	}

	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrap(errors.ErrCodeOrderFailed, "failed to get account info from Binance", err)
	}

	for _, balance := range account.Balances {
		if balance.Asset == asset {
			free, err := decimal.NewFromString(balance.Free)
			if err != nil {
				return decimal.Zero, errors.Wrapf(errors.ErrCodeOrderFailed, err, "bad %s balance %q", asset, balance.Free)
			}

			return free, nil
		}
	}

	return decimal.Zero, nil
}

func fillFromResponse(res *binance.CreateOrderResponse) (types.OrderFill, error) {
	executed, err := parseDecimal(res.ExecutedQuantity)
	if err != nil {
		return types.OrderFill{}, errors.Wrap(errors.ErrCodeOrderFailed, "bad executed quantity in order response", err)
	}

	quote, err := parseDecimal(res.CummulativeQuoteQuantity)
	if err != nil {
		return types.OrderFill{}, errors.Wrap(errors.ErrCodeOrderFailed, "bad quote quantity in order response", err)
	}

	fill := types.OrderFill{
		OrderID:     strconv.FormatInt(res.OrderID, 10),
		Symbol:      res.Symbol,
		Side:        mapBinanceSide(res.Side),
		Status:      mapBinanceOrderStatus(res.Status),
		ExecutedQty: executed,
		QuoteQty:    quote,
	}

	if res.TransactTime > 0 {
		fill.TransactTime = time.UnixMilli(res.TransactTime)
	}

	// Weighted average over individual fills, falling back to quote/executed.
	weighted := decimal.Zero
	filledQty := decimal.Zero

	for _, f := range res.Fills {
		price, perr := parseDecimal(f.Price)
		qty, qerr := parseDecimal(f.Quantity)

		if perr != nil || qerr != nil {
			continue
		}

		weighted = weighted.Add(price.Mul(qty))
		filledQty = filledQty.Add(qty)
	}

	switch {
	case filledQty.IsPositive():
		fill.FillPrice = weighted.Div(filledQty)
	case executed.IsPositive():
		fill.FillPrice = quote.Div(executed)
	}

	return fill, nil
}

func rulesFromSymbol(s binance.Symbol) (types.ExchangeRules, error) {
	rules := types.ExchangeRules{
		Symbol: s.Symbol,
		Status: s.Status,
	}

	for _, f := range s.Filters {
		filterType, _ := f["filterType"].(string)

		switch filterType {
		case "PRICE_FILTER":
			tick, err := filterDecimal(f, "tickSize")
			if err != nil {
				return types.ExchangeRules{}, err
			}

			rules.TickSize = tick
		case "LOT_SIZE":
			step, err := filterDecimal(f, "stepSize")
			if err != nil {
				return types.ExchangeRules{}, err
			}

			minQty, err := filterDecimal(f, "minQty")
			if err != nil {
				return types.ExchangeRules{}, err
			}

			rules.StepSize = step
			rules.MinQty = minQty
		case "MIN_NOTIONAL", "NOTIONAL":
			minNotional, err := filterDecimal(f, "minNotional")
			if err != nil {
				return types.ExchangeRules{}, err
			}

			// NOTIONAL superseded MIN_NOTIONAL; keep the stricter one if both appear.
			if minNotional.GreaterThan(rules.MinNotional) {
				rules.MinNotional = minNotional
			}
		}
	}

	return rules, nil
}

func filterDecimal(filter map[string]interface{}, key string) (decimal.Decimal, error) {
	raw, ok := filter[key].(string)
	if !ok {
		return decimal.Zero, errors.Newf(errors.ErrCodeMetadataUnavailable, "filter field %s missing", key)
	}

	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.Wrapf(errors.ErrCodeMetadataUnavailable, err, "filter field %s is not a number", key)
	}

	return v, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}

	return decimal.NewFromString(s)
}

func mapBinanceSide(side binance.SideType) types.PurchaseType {
	if side == binance.SideTypeSell {
		return types.PurchaseTypeSell
	}

	return types.PurchaseTypeBuy
}

// mapBinanceOrderStatus maps Binance order status to our OrderStatus type.
func mapBinanceOrderStatus(status binance.OrderStatusType) types.OrderStatus {
	switch status {
	case binance.OrderStatusTypeNew:
		return types.OrderStatusNew
	case binance.OrderStatusTypePartiallyFilled:
		return types.OrderStatusPartiallyFilled
	case binance.OrderStatusTypeFilled:
		return types.OrderStatusFilled
	case binance.OrderStatusTypeCanceled:
		return types.OrderStatusCancelled
	case binance.OrderStatusTypeRejected:
		return types.OrderStatusRejected
	case binance.OrderStatusTypeExpired:
		return types.OrderStatusExpired
	default:
		return types.OrderStatusFailed
	}
}

var _ TradingSystemProvider = (*BinanceTradingSystemProvider)(nil)
