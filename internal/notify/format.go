package notify

import (
	"fmt"
	"strings"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-riskbot/internal/types"
	"github.com/rxtech-lab/argo-riskbot/pkg/errors"
	"github.com/shopspring/decimal"
)

const notAvailable = "N/A"

func money(d decimal.Decimal) string {
	return d.StringFixed(2) + " USDT"
}

func indicator(values types.IndicatorValues, name string, places int) string {
	v := values.Get(name)
	if v.IsNone() {
		return notAvailable
	}

	return fmt.Sprintf("%.*f", places, v.Unwrap())
}

func modeLabel(live bool) string {
	if live {
		return "LIVE"
	}

	return "PAPER"
}

// SignalSummary is one symbol's per-cycle snapshot.
type SignalSummary struct {
	Symbol     string
	Timeframe  string
	Price      decimal.Decimal
	Indicators types.IndicatorValues
	Cash       decimal.Decimal
	Signal     types.Signal
}

func FormatSignalSummary(s SignalSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] Signal Summary (%s)\n", s.Symbol, s.Timeframe)
	fmt.Fprintf(&b, "Price: %s\n", s.Price.String())
	fmt.Fprintf(&b, "RSI: %s\n", indicator(s.Indicators, types.IndicatorRSI, 2))
	fmt.Fprintf(&b, "EMA fast: %s\n", indicator(s.Indicators, types.IndicatorEMAFast, 4))
	fmt.Fprintf(&b, "MACD hist: %s\n", indicator(s.Indicators, types.IndicatorMACDHist, 4))
	fmt.Fprintf(&b, "Stoch RSI K/D: %s / %s\n",
		indicator(s.Indicators, types.IndicatorStochRSIK, 2),
		indicator(s.Indicators, types.IndicatorStochRSID, 2))
	fmt.Fprintf(&b, "Balance: %s\n", money(s.Cash))
	fmt.Fprintf(&b, "Signal: %s (%s)", s.Signal.Intent, s.Signal.Reason)

	return b.String()
}

// PositionLine pairs an open position with its latest price, which may be
// missing when the price fetch failed this cycle.
type PositionLine struct {
	Position types.Position
	Price    optional.Option[decimal.Decimal]
}

// StatusReport is the account overview sent at the end of a cycle.
type StatusReport struct {
	Live          bool
	Cash          decimal.Decimal
	UnrealizedPnL decimal.Decimal
	Equity        decimal.Decimal
	RealizedPnL   decimal.Decimal
	Positions     []PositionLine
}

func FormatStatus(r StatusReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Bot Status Update (%s)\n", modeLabel(r.Live))
	fmt.Fprintf(&b, "Cash: %s\n", money(r.Cash))
	fmt.Fprintf(&b, "Unrealized PnL: %s\n", money(r.UnrealizedPnL))
	fmt.Fprintf(&b, "Effective balance: %s\n", money(r.Equity))
	fmt.Fprintf(&b, "Total realized PnL: %s\n", money(r.RealizedPnL))

	if len(r.Positions) == 0 {
		b.WriteString("Open positions: none")

		return b.String()
	}

	b.WriteString("Open positions:")

	for _, line := range r.Positions {
		p := line.Position
		fmt.Fprintf(&b, "\n- %s qty %s entry %s", p.Symbol, p.Quantity.String(), p.EntryPrice.String())

		if line.Price.IsNone() {
			b.WriteString(": current price not available")

			continue
		}

		price := line.Price.Unwrap()
		fmt.Fprintf(&b, " current %s PnL %s", price.String(), money(p.UnrealizedPnL(price)))
	}

	return b.String()
}

func FormatOpened(rec types.TradeRecord, pos types.Position, cash decimal.Decimal) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s BUY executed: %s\n", modeLabel(rec.IsLive), rec.Symbol)
	fmt.Fprintf(&b, "Quantity: %s @ %s (%s)\n", rec.Quantity.String(), rec.Price.String(), money(rec.Notional()))
	fmt.Fprintf(&b, "SL: %s TP: %s TSL: %s\n", pos.StopLoss.String(), pos.TakeProfit.String(), pos.TrailingStopPrice.String())

	if rec.OrderID != "" {
		fmt.Fprintf(&b, "Order: %s\n", rec.OrderID)
	}

	fmt.Fprintf(&b, "Reason: %s\n", rec.Reason)
	fmt.Fprintf(&b, "Remaining balance: %s", money(cash))

	return b.String()
}

func FormatClosed(rec types.TradeRecord, cash decimal.Decimal) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s SELL executed (closing position): %s\n", modeLabel(rec.IsLive), rec.Symbol)
	fmt.Fprintf(&b, "Quantity: %s @ %s\n", rec.Quantity.String(), rec.Price.String())
	fmt.Fprintf(&b, "Entry: %s\n", rec.EntryPrice.String())
	fmt.Fprintf(&b, "PnL: %s\n", money(rec.RealizedPnL))
	fmt.Fprintf(&b, "Reason: %s\n", rec.Reason)
	fmt.Fprintf(&b, "New balance: %s", money(cash))

	return b.String()
}

// FormatFailed explains a rejected trade attempt.
func FormatFailed(symbol string, side types.PurchaseType, err error) string {
	var detail string

	switch errors.GetCode(err) {
	case errors.ErrCodeBelowMinNotional:
		detail = "notional value too low"
	case errors.ErrCodeInsufficientBalance:
		detail = "insufficient balance"
	case errors.ErrCodeNoOpenPosition:
		detail = "no open position to close"
	case errors.ErrCodePositionAlreadyOpen:
		detail = "position already open"
	default:
		detail = "execution error"
	}

	return fmt.Sprintf("Trade failed: %s %s, %s\n%v", side, symbol, detail, err)
}

func FormatDailySummary(s types.PnlSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Daily Summary %s\n", s.WindowStart.Format("2006-01-02"))
	fmt.Fprintf(&b, "Trades: %d (wins %d, losses %d, win rate %.1f%%)\n", s.TradeCount, s.Wins, s.Losses, s.WinRate()*100)
	fmt.Fprintf(&b, "Realized PnL: %s\n", money(s.RealizedPnL))
	fmt.Fprintf(&b, "Balance: %s", money(s.BalanceAtWindowEnd))

	return b.String()
}

func FormatHourlySummary(s types.PnlSummary) string {
	return fmt.Sprintf("Hourly PnL %s-%s: %s over %d trades",
		s.WindowStart.Format("15:04"), s.WindowEnd.Format("15:04"), money(s.RealizedPnL), s.TradeCount)
}
