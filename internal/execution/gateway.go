// Package execution turns trade intents into ledger mutations, either by
// simulating a fill at the current price (paper) or by placing a market order
// and applying the venue's confirmed fill (live).
package execution

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-riskbot/internal/ledger"
	"github.com/rxtech-lab/argo-riskbot/internal/logger"
	tradingprovider "github.com/rxtech-lab/argo-riskbot/internal/trading/provider"
	"github.com/rxtech-lab/argo-riskbot/internal/types"
	"github.com/rxtech-lab/argo-riskbot/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MetadataResolver resolves exchange rules for a symbol.
type MetadataResolver interface {
	Resolve(ctx context.Context, symbol string) (types.SymbolMetadata, error)
}

// OpenRequest describes a long entry.
type OpenRequest struct {
	Symbol      string
	NotionalUSD decimal.Decimal
	Price       decimal.Decimal
	SLPct       decimal.Decimal
	TPPct       decimal.Decimal
	TSLPct      decimal.Decimal
	Reason      string
	Indicators  map[string]float64
}

func (r OpenRequest) validate() error {
	if r.Symbol == "" {
		return errors.New(errors.ErrCodeInvalidParameter, "symbol is required")
	}

	if !r.NotionalUSD.IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidParameter, "notional must be positive, got %s", r.NotionalUSD)
	}

	if !r.Price.IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidParameter, "price must be positive, got %s", r.Price)
	}

	one := decimal.NewFromInt(1)
	for name, pct := range map[string]decimal.Decimal{"sl": r.SLPct, "tsl": r.TSLPct} {
		if !pct.IsPositive() || !pct.LessThan(one) {
			return errors.Newf(errors.ErrCodeInvalidParameter, "%s fraction must be in (0, 1), got %s", name, pct)
		}
	}

	if !r.TPPct.IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidParameter, "tp fraction must be positive, got %s", r.TPPct)
	}

	return nil
}

// Sizing is the outcome of applying exchange rules to a notional.
type Sizing struct {
	Quantity decimal.Decimal
	Notional decimal.Decimal
	// Clamped is true when the rounded quantity was raised to the minimum.
	Clamped bool
}

// Size converts notional/price into an order quantity that satisfies the
// symbol's precision, minimum quantity and minimum notional.
func Size(meta types.SymbolMetadata, notional, price decimal.Decimal) (Sizing, error) {
	qty := meta.RoundQuantity(notional.Div(price))
	clamped := false

	if qty.LessThan(meta.MinQty) {
		qty = meta.MinQty
		clamped = true
	}

	if !qty.IsPositive() {
		return Sizing{}, errors.Newf(errors.ErrCodeInvalidQuantity,
			"%s rounds to a zero quantity at price %s", notional, price)
	}

	value := qty.Mul(price)
	if value.LessThan(meta.MinNotional) {
		return Sizing{}, errors.Newf(errors.ErrCodeBelowMinNotional,
			"order value %s is below the minimum notional %s", value, meta.MinNotional)
	}

	return Sizing{Quantity: qty, Notional: value, Clamped: clamped}, nil
}

// Gateway applies open and close decisions to a ledger.
type Gateway struct {
	resolver     MetadataResolver
	venue        tradingprovider.Venue
	log          *logger.Logger
	now          func() time.Time
	newID        func() string
	orderTimeout time.Duration
}

type Option func(*Gateway)

// WithClock overrides the time source used for trade timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// WithIDGenerator overrides trade record id generation.
func WithIDGenerator(newID func() string) Option {
	return func(g *Gateway) { g.newID = newID }
}

// WithOrderTimeout bounds each venue call. Zero means no extra bound.
func WithOrderTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.orderTimeout = d }
}

// NewPaperGateway simulates fills at the requested price.
func NewPaperGateway(resolver MetadataResolver, log *logger.Logger, opts ...Option) *Gateway {
	return newGateway(resolver, nil, log, opts)
}

// NewLiveGateway routes every open and close through venue.
func NewLiveGateway(resolver MetadataResolver, venue tradingprovider.Venue, log *logger.Logger, opts ...Option) *Gateway {
	return newGateway(resolver, venue, log, opts)
}

func newGateway(resolver MetadataResolver, venue tradingprovider.Venue, log *logger.Logger, opts []Option) *Gateway {
	g := &Gateway{
		resolver: resolver,
		venue:    venue,
		log:      log,
		now:      time.Now,
		newID:    uuid.NewString,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// IsLive reports whether orders reach a real venue.
func (g *Gateway) IsLive() bool {
	return g.venue != nil
}

// OpenLong sizes, validates and executes a long entry. On any error the
// ledger is unchanged.
func (g *Gateway) OpenLong(ctx context.Context, l *ledger.Ledger, req OpenRequest) (types.Position, types.TradeRecord, error) {
	if err := req.validate(); err != nil {
		return types.Position{}, types.TradeRecord{}, err
	}

	if l.HasPosition(req.Symbol) {
		return types.Position{}, types.TradeRecord{}, errors.Newf(errors.ErrCodePositionAlreadyOpen, "position already open for %s", req.Symbol)
	}

	meta, err := g.resolver.Resolve(ctx, req.Symbol)
	if err != nil {
		return types.Position{}, types.TradeRecord{}, err
	}

	sizing, err := Size(meta, req.NotionalUSD, req.Price)
	if err != nil {
		return types.Position{}, types.TradeRecord{}, err
	}

	if sizing.Clamped {
		g.log.Warn("Quantity raised to exchange minimum",
			zap.String("symbol", req.Symbol),
			zap.String("min_qty", meta.MinQty.String()),
			zap.String("notional", sizing.Notional.String()),
		)
	}

	if l.CashBalance().LessThan(sizing.Notional) {
		return types.Position{}, types.TradeRecord{}, errors.Newf(errors.ErrCodeInsufficientBalance,
			"need %s, have %s", sizing.Notional.StringFixed(2), l.CashBalance().StringFixed(2))
	}

	qty := sizing.Quantity
	entry := req.Price
	orderID := ""

	if g.IsLive() {
		fill, err := g.placeOrder(ctx, types.MarketOrder{Symbol: req.Symbol, Side: types.PurchaseTypeBuy, Quantity: qty})
		if err != nil {
			return types.Position{}, types.TradeRecord{}, err
		}

		qty = fill.ExecutedQty
		orderID = fill.OrderID

		if fill.FillPrice.IsPositive() {
			entry = fill.FillPrice
		}
	}

	pos := types.NewLongPosition(req.Symbol, qty, entry, req.SLPct, req.TPPct, req.TSLPct, g.now())

	if g.IsLive() {
		err = l.OpenConfirmed(pos)
	} else {
		err = l.Open(pos)
	}

	if err != nil {
		return types.Position{}, types.TradeRecord{}, err
	}

	record := types.TradeRecord{
		ID:          g.newID(),
		Timestamp:   pos.OpenedAt,
		Symbol:      req.Symbol,
		Side:        types.PurchaseTypeBuy,
		Quantity:    qty,
		Price:       entry,
		EntryPrice:  entry,
		RealizedPnL: decimal.Zero,
		Reason:      req.Reason,
		SLAtEntry:   pos.StopLoss,
		TPAtEntry:   pos.TakeProfit,
		TSLAtClose:  pos.TrailingStopPrice,
		IsLive:      g.IsLive(),
		OrderID:     orderID,
		Indicators:  req.Indicators,
	}

	g.log.Info("Opened long position",
		zap.String("symbol", req.Symbol),
		zap.String("quantity", qty.String()),
		zap.String("price", entry.String()),
		zap.String("stop_loss", pos.StopLoss.String()),
		zap.String("take_profit", pos.TakeProfit.String()),
		zap.String("trailing_stop", pos.TrailingStopPrice.String()),
		zap.Bool("live", g.IsLive()),
	)

	return pos, record, nil
}

// CloseLong closes the whole position in symbol at price (paper) or at the
// venue's fill price (live). A live fill for any other quantity is an error.
// On any error the ledger is unchanged.
func (g *Gateway) CloseLong(ctx context.Context, l *ledger.Ledger, symbol string, price decimal.Decimal, reason string) (types.TradeRecord, error) {
	pos, ok := l.Position(symbol)
	if !ok {
		return types.TradeRecord{}, errors.Newf(errors.ErrCodeNoOpenPosition, "no open position for %s", symbol)
	}

	if !price.IsPositive() {
		return types.TradeRecord{}, errors.Newf(errors.ErrCodeInvalidParameter, "close price must be positive, got %s", price)
	}

	exit := price
	orderID := ""

	if g.IsLive() {
		fill, err := g.placeOrder(ctx, types.MarketOrder{Symbol: symbol, Side: types.PurchaseTypeSell, Quantity: pos.Quantity})
		if err != nil {
			return types.TradeRecord{}, err
		}

		// Only a full fill closes the position; anything else needs manual
		// reconciliation against the venue.
		if !fill.ExecutedQty.Equal(pos.Quantity) {
			g.log.Error("Venue filled a different quantity than held, ledger left unchanged",
				zap.String("symbol", symbol),
				zap.String("order_id", fill.OrderID),
				zap.String("held", pos.Quantity.String()),
				zap.String("executed", fill.ExecutedQty.String()),
			)

			return types.TradeRecord{}, errors.Newf(errors.ErrCodeOrderFailed,
				"sell %s filled %s of %s", symbol, fill.ExecutedQty, pos.Quantity)
		}

		orderID = fill.OrderID

		if fill.FillPrice.IsPositive() {
			exit = fill.FillPrice
		}
	}

	closed, pnl, err := l.Close(symbol, exit)
	if err != nil {
		return types.TradeRecord{}, err
	}

	record := types.TradeRecord{
		ID:          g.newID(),
		Timestamp:   g.now(),
		Symbol:      symbol,
		Side:        types.PurchaseTypeSell,
		Quantity:    closed.Quantity,
		Price:       exit,
		EntryPrice:  closed.EntryPrice,
		RealizedPnL: pnl,
		Reason:      reason,
		SLAtEntry:   closed.StopLoss,
		TPAtEntry:   closed.TakeProfit,
		TSLAtClose:  closed.TrailingStopPrice,
		IsLive:      g.IsLive(),
		OrderID:     orderID,
	}

	g.log.Info("Closed long position",
		zap.String("symbol", symbol),
		zap.String("reason", reason),
		zap.String("quantity", closed.Quantity.String()),
		zap.String("entry", closed.EntryPrice.String()),
		zap.String("exit", exit.String()),
		zap.String("pnl", pnl.String()),
		zap.Bool("live", g.IsLive()),
	)

	return record, nil
}

func (g *Gateway) placeOrder(ctx context.Context, order types.MarketOrder) (types.OrderFill, error) {
	if g.orderTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, g.orderTimeout)
		defer cancel()
	}

	fill, err := g.venue.PlaceMarketOrder(ctx, order)
	if err != nil {
		if errors.GetCode(err) == errors.ErrCodeUnknown {
			err = errors.Wrapf(errors.ErrCodeOrderFailed, err, "%s %s order failed", order.Side, order.Symbol)
		}

		return types.OrderFill{}, err
	}

	if !fill.IsFilled() {
		return types.OrderFill{}, errors.Newf(errors.ErrCodeOrderFailed,
			"%s %s order not filled: status %s, executed %s", order.Side, order.Symbol, fill.Status, fill.ExecutedQty)
	}

	return fill, nil
}
