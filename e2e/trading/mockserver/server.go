// Package mockserver provides a mock Binance spot REST server for testing.
// Market orders fill immediately at the current price and move balances.
package mockserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Binance error codes returned by the mock.
const (
	codeInvalidParameter    = -1102
	codeUnknownSymbol       = -1121
	codeInsufficientBalance = -2010
)

// MockBinanceServer provides a mock Binance server for testing.
type MockBinanceServer struct {
	mu sync.RWMutex

	httpServer *http.Server
	listener   net.Listener

	balances   map[string]*Balance
	orders     map[int64]*Order
	orderIDSeq int64
	symbols    map[string]SymbolInfo

	currentPrices map[string]float64
	closes        map[string][]float64
	commission    float64
	rejectOrders  string
	requests      map[string]int
}

// Balance represents an account balance.
type Balance struct {
	Asset  string
	Free   float64
	Locked float64
}

// OrderSide represents the side of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Order represents a filled market order.
type Order struct {
	OrderID     int64
	Symbol      string
	Side        OrderSide
	Quantity    float64
	Price       float64
	QuoteQty    float64
	CreatedAt   time.Time
	ClientOrder string
}

// SymbolInfo carries the listing and filters served by exchangeInfo.
type SymbolInfo struct {
	Symbol      string
	BaseAsset   string
	QuoteAsset  string
	Status      string
	TickSize    string
	StepSize    string
	MinQty      string
	MinNotional string
}

// ServerConfig holds configuration for the mock server.
type ServerConfig struct {
	// InitialBalances maps asset to initial free balance.
	InitialBalances map[string]float64
	// Symbols lists tradable symbols. Missing filter fields get defaults.
	Symbols []SymbolInfo
	// Commission is the taker fee fraction reported on fills.
	Commission float64
}

// NewMockBinanceServer creates a new mock Binance server.
func NewMockBinanceServer(config ServerConfig) *MockBinanceServer {
	server := &MockBinanceServer{
		balances:      make(map[string]*Balance),
		orders:        make(map[int64]*Order),
		orderIDSeq:    1000,
		symbols:       make(map[string]SymbolInfo),
		currentPrices: make(map[string]float64),
		closes:        make(map[string][]float64),
		commission:    config.Commission,
		requests:      make(map[string]int),
	}

	for asset, amount := range config.InitialBalances {
		server.balances[asset] = &Balance{Asset: asset, Free: amount}
	}

	for _, info := range config.Symbols {
		server.symbols[info.Symbol] = withDefaults(info)
	}

	return server
}

func withDefaults(info SymbolInfo) SymbolInfo {
	if info.BaseAsset == "" || info.QuoteAsset == "" {
		info.BaseAsset, info.QuoteAsset = splitSymbol(info.Symbol)
	}

	defaults := map[*string]string{
		&info.Status:      "TRADING",
		&info.TickSize:    "0.01000000",
		&info.StepSize:    "0.00100000",
		&info.MinQty:      "0.00100000",
		&info.MinNotional: "5.00000000",
	}
	for field, value := range defaults {
		if *field == "" {
			*field = value
		}
	}

	return info
}

func splitSymbol(symbol string) (string, string) {
	for _, quote := range []string{"USDT", "BUSD", "FDUSD", "BTC", "ETH", "BNB"} {
		if strings.HasSuffix(symbol, quote) && len(symbol) > len(quote) {
			return strings.TrimSuffix(symbol, quote), quote
		}
	}

	return symbol[:len(symbol)/2], symbol[len(symbol)/2:]
}

// Start starts the mock server on the given address.
// If address is empty or ":0", a random available port is used.
func (s *MockBinanceServer) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.listener = listener

	router := mux.NewRouter()
	router.Use(s.countRequests)

	router.HandleFunc("/api/v3/ping", s.handlePing).Methods(http.MethodGet)
	router.HandleFunc("/api/v3/exchangeInfo", s.handleExchangeInfo).Methods(http.MethodGet)
	router.HandleFunc("/api/v3/ticker/price", s.handleTickerPrice).Methods(http.MethodGet)
	router.HandleFunc("/api/v3/klines", s.handleKlines).Methods(http.MethodGet)
	router.HandleFunc("/api/v3/account", s.handleAccount).Methods(http.MethodGet)
	router.HandleFunc("/api/v3/order", s.handleCreateOrder).Methods(http.MethodPost)

	s.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			fmt.Printf("HTTP server error: %v\n", err)
		}
	}()

	return nil
}

// Stop stops the mock server.
func (s *MockBinanceServer) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

// Address returns the address the server is listening on.
func (s *MockBinanceServer) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// BaseURL returns the base URL for the server.
func (s *MockBinanceServer) BaseURL() string {
	return "http://" + s.Address()
}

// SetPrice sets the current price for a symbol.
func (s *MockBinanceServer) SetPrice(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentPrices[symbol] = price
}

// GetPrice returns the current price for a symbol.
func (s *MockBinanceServer) GetPrice(symbol string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.currentPrices[symbol]
}

// SetCloses sets the close series served by klines for symbol, oldest first.
func (s *MockBinanceServer) SetCloses(symbol string, closes []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closes[symbol] = append([]float64(nil), closes...)
}

// RejectOrders makes every new order fail with msg. An empty msg restores
// normal fills.
func (s *MockBinanceServer) RejectOrders(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rejectOrders = msg
}

// GetBalance returns the balance for an asset.
func (s *MockBinanceServer) GetBalance(asset string) *Balance {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if bal, ok := s.balances[asset]; ok {
		return &Balance{Asset: bal.Asset, Free: bal.Free, Locked: bal.Locked}
	}

	return nil
}

// GetOrders returns all orders in placement order.
func (s *MockBinanceServer) GetOrders() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		result = append(result, *o)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].OrderID < result[j].OrderID })

	return result
}

// Requests returns how many requests hit path.
func (s *MockBinanceServer) Requests(path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.requests[path]
}

func (s *MockBinanceServer) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.URL.Path]++
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeError replies with Binance's {"code","msg"} error body.
func writeError(w http.ResponseWriter, status int, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": code, "msg": msg})
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 8, 64)
}

// handlePing handles GET /api/v3/ping
func (s *MockBinanceServer) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]interface{}{})
}

// handleExchangeInfo handles GET /api/v3/exchangeInfo
func (s *MockBinanceServer) handleExchangeInfo(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := r.FormValue("symbol")

	symbols := make([]map[string]interface{}, 0, len(s.symbols))
	for _, info := range s.symbols {
		if wanted != "" && info.Symbol != wanted {
			continue
		}

		symbols = append(symbols, map[string]interface{}{
			"symbol":     info.Symbol,
			"status":     info.Status,
			"baseAsset":  info.BaseAsset,
			"quoteAsset": info.QuoteAsset,
			"orderTypes": []string{"LIMIT", "MARKET"},
			"filters": []map[string]interface{}{
				{"filterType": "PRICE_FILTER", "minPrice": "0.01000000", "maxPrice": "1000000.00000000", "tickSize": info.TickSize},
				{"filterType": "LOT_SIZE", "minQty": info.MinQty, "maxQty": "9000.00000000", "stepSize": info.StepSize},
				{"filterType": "NOTIONAL", "minNotional": info.MinNotional, "applyMinToMarket": true},
			},
		})
	}

	if wanted != "" && len(symbols) == 0 {
		writeError(w, http.StatusBadRequest, codeUnknownSymbol, "Invalid symbol.")

		return
	}

	writeJSON(w, map[string]interface{}{
		"timezone":   "UTC",
		"serverTime": time.Now().UnixMilli(),
		"symbols":    symbols,
	})
}

// handleTickerPrice handles GET /api/v3/ticker/price
func (s *MockBinanceServer) handleTickerPrice(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type priceResponse struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}

	if symbol := r.FormValue("symbol"); symbol != "" {
		price, ok := s.currentPrices[symbol]
		if !ok {
			writeError(w, http.StatusBadRequest, codeUnknownSymbol, "Invalid symbol.")

			return
		}

		writeJSON(w, []priceResponse{{Symbol: symbol, Price: formatFloat(price)}})

		return
	}

	response := make([]priceResponse, 0, len(s.currentPrices))
	for sym, price := range s.currentPrices {
		response = append(response, priceResponse{Symbol: sym, Price: formatFloat(price)})
	}

	writeJSON(w, response)
}

// handleKlines handles GET /api/v3/klines. It serves the tail of the
// configured close series; open, high and low derive from neighbouring closes.
func (s *MockBinanceServer) handleKlines(w http.ResponseWriter, r *http.Request) {
	symbol := r.FormValue("symbol")
	interval := r.FormValue("interval")

	if symbol == "" || interval == "" {
		writeError(w, http.StatusBadRequest, codeInvalidParameter, "Mandatory parameter was not sent.")

		return
	}

	step := parseInterval(interval)
	if step == 0 {
		writeError(w, http.StatusBadRequest, codeInvalidParameter, "Invalid interval.")

		return
	}

	limit := 500
	if raw := r.FormValue("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, codeInvalidParameter, "Invalid limit.")

			return
		}

		limit = min(n, 1000)
	}

	s.mu.RLock()
	all := s.closes[symbol]
	s.mu.RUnlock()

	offset := max(0, len(all)-limit)
	closes := all[offset:]

	end := time.Now().Truncate(step)
	start := end.Add(-time.Duration(len(closes)) * step)

	// [openTime, open, high, low, close, volume, closeTime, quoteVolume, trades, takerBase, takerQuote, ignore]
	klines := make([][]interface{}, 0, len(closes))
	for i, c := range closes {
		// Each candle opens at the previous close, including the first one served.
		open := c
		if offset+i > 0 {
			open = all[offset+i-1]
		}

		openTime := start.Add(time.Duration(i) * step)
		klines = append(klines, []interface{}{
			openTime.UnixMilli(),
			formatFloat(open),
			formatFloat(max(open, c)),
			formatFloat(min(open, c)),
			formatFloat(c),
			formatFloat(1),
			openTime.Add(step).UnixMilli() - 1,
			formatFloat(c),
			1,
			"0",
			"0",
			"0",
		})
	}

	writeJSON(w, klines)
}

// handleAccount handles GET /api/v3/account
func (s *MockBinanceServer) handleAccount(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type balanceResponse struct {
		Asset  string `json:"asset"`
		Free   string `json:"free"`
		Locked string `json:"locked"`
	}

	balances := make([]balanceResponse, 0, len(s.balances))
	for _, bal := range s.balances {
		balances = append(balances, balanceResponse{
			Asset:  bal.Asset,
			Free:   formatFloat(bal.Free),
			Locked: formatFloat(bal.Locked),
		})
	}

	writeJSON(w, map[string]interface{}{
		"makerCommission": 10,
		"takerCommission": 10,
		"canTrade":        true,
		"canWithdraw":     true,
		"canDeposit":      true,
		"updateTime":      time.Now().UnixMilli(),
		"accountType":     "SPOT",
		"balances":        balances,
	})
}

// handleCreateOrder handles POST /api/v3/order for MARKET orders.
func (s *MockBinanceServer) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	symbol := r.FormValue("symbol")
	side := OrderSide(r.FormValue("side"))
	orderType := r.FormValue("type")
	quantityStr := r.FormValue("quantity")

	if symbol == "" || side == "" || orderType == "" || quantityStr == "" {
		writeError(w, http.StatusBadRequest, codeInvalidParameter, "Mandatory parameter was not sent.")

		return
	}

	if orderType != "MARKET" {
		writeError(w, http.StatusBadRequest, codeInvalidParameter, "Only MARKET orders are supported.")

		return
	}

	quantity, err := strconv.ParseFloat(quantityStr, 64)
	if err != nil || quantity <= 0 {
		writeError(w, http.StatusBadRequest, codeInvalidParameter, "Invalid quantity.")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rejectOrders != "" {
		writeError(w, http.StatusBadRequest, codeInsufficientBalance, s.rejectOrders)

		return
	}

	info, ok := s.symbols[symbol]
	if !ok {
		writeError(w, http.StatusBadRequest, codeUnknownSymbol, "Invalid symbol.")

		return
	}

	price, ok := s.currentPrices[symbol]
	if !ok {
		writeError(w, http.StatusBadRequest, codeInvalidParameter, "No price available for symbol.")

		return
	}

	cost := price * quantity

	switch side {
	case OrderSideBuy:
		quote := s.balances[info.QuoteAsset]
		if quote == nil || quote.Free < cost {
			writeError(w, http.StatusBadRequest, codeInsufficientBalance, "Account has insufficient balance for requested action.")

			return
		}

		quote.Free -= cost
		s.credit(info.BaseAsset, quantity)
	case OrderSideSell:
		base := s.balances[info.BaseAsset]
		if base == nil || base.Free < quantity {
			writeError(w, http.StatusBadRequest, codeInsufficientBalance, "Account has insufficient balance for requested action.")

			return
		}

		base.Free -= quantity
		s.credit(info.QuoteAsset, cost)
	default:
		writeError(w, http.StatusBadRequest, codeInvalidParameter, "Invalid side.")

		return
	}

	s.orderIDSeq++
	order := &Order{
		OrderID:     s.orderIDSeq,
		Symbol:      symbol,
		Side:        side,
		Quantity:    quantity,
		Price:       price,
		QuoteQty:    cost,
		CreatedAt:   time.Now(),
		ClientOrder: uuid.New().String(),
	}
	s.orders[order.OrderID] = order

	writeJSON(w, map[string]interface{}{
		"symbol":              symbol,
		"orderId":             order.OrderID,
		"orderListId":         -1,
		"clientOrderId":       order.ClientOrder,
		"transactTime":        order.CreatedAt.UnixMilli(),
		"price":               formatFloat(0),
		"origQty":             formatFloat(quantity),
		"executedQty":         formatFloat(quantity),
		"cummulativeQuoteQty": formatFloat(cost),
		"status":              "FILLED",
		"timeInForce":         "GTC",
		"type":                orderType,
		"side":                string(side),
		"fills": []map[string]interface{}{
			{
				"price":           formatFloat(price),
				"qty":             formatFloat(quantity),
				"commission":      formatFloat(cost * s.commission),
				"commissionAsset": info.QuoteAsset,
				"tradeId":         order.OrderID,
			},
		},
	})
}

func (s *MockBinanceServer) credit(asset string, amount float64) {
	bal, ok := s.balances[asset]
	if !ok {
		bal = &Balance{Asset: asset}
		s.balances[asset] = bal
	}

	bal.Free += amount
}

// parseInterval converts a Binance interval string to a duration.
func parseInterval(interval string) time.Duration {
	switch interval {
	case "1s":
		return time.Second
	case "1m":
		return time.Minute
	case "3m":
		return 3 * time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "2h":
		return 2 * time.Hour
	case "4h":
		return 4 * time.Hour
	case "6h":
		return 6 * time.Hour
	case "8h":
		return 8 * time.Hour
	case "12h":
		return 12 * time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return 0
	}
}
