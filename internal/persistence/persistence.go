// Package persistence maps the ledger, the trade log and PnL summaries onto
// the document store.
//
// Saves are at-least-once, not transactional. A ledger mutation that has
// already happened in memory stands even when the following Save fails; the
// stored snapshot is stale until the next successful Save repairs it.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rxtech-lab/argo-riskbot/internal/ledger"
	"github.com/rxtech-lab/argo-riskbot/internal/logger"
	"github.com/rxtech-lab/argo-riskbot/internal/store"
	"github.com/rxtech-lab/argo-riskbot/internal/types"
	"github.com/rxtech-lab/argo-riskbot/internal/version"
	"github.com/rxtech-lab/argo-riskbot/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	fieldCashBalance     = "cashBalance"
	fieldInitialBalance  = "initialBalance"
	fieldPositions       = "positions"
	fieldLastUpdated     = "lastUpdated"
	fieldTimestampServer = "timestampServer"
	fieldWriterVersion   = "writerVersion"

	dateLayout = "2006-01-02"
)

// Paths are the store locations used by one bot instance.
type Paths struct {
	State  string
	Trades string
	Hourly string
	Daily  string
}

// NewPaths roots every location under artifacts/{appID}/users/{userID}.
func NewPaths(appID, userID string) Paths {
	root := fmt.Sprintf("artifacts/%s/users/%s", appID, userID)

	return Paths{
		State:  root + "/settings/bot_state",
		Trades: root + "/trades",
		Hourly: root + "/hourly_summaries",
		Daily:  root + "/daily_summaries",
	}
}

// DailyPath is the document holding the summary for date.
func (p Paths) DailyPath(date string) string {
	return p.Daily + "/" + date
}

// TradeSink receives every appended trade, e.g. a file export.
type TradeSink interface {
	Write(record types.TradeRecord) error
}

type Adapter struct {
	store   store.Store
	paths   Paths
	log     *logger.Logger
	timeout time.Duration
	sink    TradeSink
}

type Option func(*Adapter)

// WithTimeout bounds every store call.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.timeout = d }
}

// WithTradeSink mirrors appended trades into sink.
func WithTradeSink(sink TradeSink) Option {
	return func(a *Adapter) { a.sink = sink }
}

func NewAdapter(s store.Store, paths Paths, log *logger.Logger, opts ...Option) *Adapter {
	a := &Adapter{store: s, paths: paths, log: log}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

func (a *Adapter) Paths() Paths {
	return a.paths
}

func (a *Adapter) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, a.timeout)
}

// Save writes the ledger snapshot. Failures are logged and returned as
// ErrCodePersistenceUnavailable.
func (a *Adapter) Save(ctx context.Context, l *ledger.Ledger) error {
	snap := l.Snapshot()

	positions, err := json.Marshal(snap.Positions)
	if err != nil {
		return errors.Wrap(errors.ErrCodeEncoding, "failed to encode positions", err)
	}

	doc := store.Document{
		fieldCashBalance:    snap.CashBalance.String(),
		fieldInitialBalance: snap.InitialBalance.String(),
		fieldPositions:      string(positions),
		fieldLastUpdated:    store.ServerTimestamp,
		fieldWriterVersion:  version.GetVersion(),
	}

	ctx, cancel := a.bounded(ctx)
	defer cancel()

	if err := a.store.Put(ctx, a.paths.State, doc); err != nil {
		a.log.Error("Failed to save ledger snapshot", zap.String("path", a.paths.State), zap.Error(err))

		return errors.Wrap(errors.ErrCodePersistenceUnavailable, "failed to save ledger", err)
	}

	a.log.Debug("Ledger saved",
		zap.String("cash", snap.CashBalance.String()),
		zap.Int("positions", len(snap.Positions)),
	)

	return nil
}

// Load restores the ledger. When no snapshot exists a fresh ledger funded
// with initialBalance is created, saved, and returned with fresh set.
func (a *Adapter) Load(ctx context.Context, initialBalance decimal.Decimal) (*ledger.Ledger, bool, error) {
	getCtx, cancel := a.bounded(ctx)
	doc, err := a.store.Get(getCtx, a.paths.State)
	cancel()

	if errors.HasCode(err, errors.ErrCodeNotFound) {
		l := ledger.New(initialBalance)
		if err := a.Save(ctx, l); err != nil {
			return nil, false, err
		}

		a.log.Info("No stored ledger, starting fresh", zap.String("initial_balance", initialBalance.String()))

		return l, true, nil
	}

	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to load ledger", err)
	}

	snap, err := decodeSnapshot(doc)
	if err != nil {
		return nil, false, err
	}

	l, err := ledger.FromSnapshot(snap)
	if err != nil {
		return nil, false, err
	}

	a.log.Info("Ledger restored",
		zap.String("cash", snap.CashBalance.String()),
		zap.String("initial_balance", snap.InitialBalance.String()),
		zap.Int("positions", len(snap.Positions)),
	)

	return l, false, nil
}

func decodeSnapshot(doc store.Document) (ledger.Snapshot, error) {
	written, _ := doc[fieldWriterVersion].(string)
	if err := version.CheckSnapshotCompatibility(version.GetVersion(), written); err != nil {
		return ledger.Snapshot{}, err
	}

	cash, err := decimalField(doc, fieldCashBalance)
	if err != nil {
		return ledger.Snapshot{}, err
	}

	initial, err := decimalField(doc, fieldInitialBalance)
	if err != nil {
		return ledger.Snapshot{}, err
	}

	positions := map[string]types.Position{}

	if raw, ok := doc[fieldPositions].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &positions); err != nil {
			return ledger.Snapshot{}, errors.Wrap(errors.ErrCodeEncoding, "failed to decode positions", err)
		}
	}

	return ledger.Snapshot{CashBalance: cash, InitialBalance: initial, Positions: positions}, nil
}

// decimalField accepts both string and numeric encodings.
func decimalField(doc store.Document, key string) (decimal.Decimal, error) {
	switch v := doc[key].(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, errors.Wrapf(errors.ErrCodeEncoding, err, "field %s", key)
		}

		return d, nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, errors.Wrapf(errors.ErrCodeEncoding, err, "field %s", key)
		}

		return d, nil
	default:
		return decimal.Zero, errors.Newf(errors.ErrCodeEncoding, "field %s missing or of type %T", key, v)
	}
}

// AppendTrade adds record to the trade log and mirrors it to the trade sink.
func (a *Adapter) AppendTrade(ctx context.Context, record types.TradeRecord) error {
	doc, err := store.From(record)
	if err != nil {
		return err
	}

	doc[fieldTimestampServer] = store.ServerTimestamp

	ctx, cancel := a.bounded(ctx)
	defer cancel()

	if _, err := a.store.Append(ctx, a.paths.Trades, doc); err != nil {
		a.log.Error("Failed to append trade", zap.String("trade_id", record.ID), zap.Error(err))

		return errors.Wrap(errors.ErrCodePersistenceUnavailable, "failed to append trade", err)
	}

	if a.sink != nil {
		if err := a.sink.Write(record); err != nil {
			a.log.Warn("Failed to export trade", zap.String("trade_id", record.ID), zap.Error(err))
		}
	}

	return nil
}

// RecentTrades returns up to limit trades, most recently stored first.
func (a *Adapter) RecentTrades(ctx context.Context, limit int) ([]types.TradeRecord, error) {
	ctx, cancel := a.bounded(ctx)
	defer cancel()

	records, err := a.store.QueryRecent(ctx, a.paths.Trades, limit)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistenceUnavailable, "failed to query trades", err)
	}

	trades := make([]types.TradeRecord, 0, len(records))

	for _, r := range records {
		var t types.TradeRecord
		if err := store.Into(r.Data, &t); err != nil {
			a.log.Warn("Skipping undecodable trade", zap.String("id", r.ID), zap.Error(err))

			continue
		}

		trades = append(trades, t)
	}

	return trades, nil
}

// PutDailySummary writes s under the date of its window start. Writing the
// same day twice overwrites.
func (a *Adapter) PutDailySummary(ctx context.Context, s types.PnlSummary) error {
	doc, err := store.From(s)
	if err != nil {
		return err
	}

	doc[fieldTimestampServer] = store.ServerTimestamp
	path := a.paths.DailyPath(s.WindowStart.Format(dateLayout))

	ctx, cancel := a.bounded(ctx)
	defer cancel()

	if err := a.store.Put(ctx, path, doc); err != nil {
		return errors.Wrapf(errors.ErrCodePersistenceUnavailable, err, "failed to write daily summary %s", path)
	}

	return nil
}

// DailySummary reads the summary stored for date (YYYY-MM-DD).
func (a *Adapter) DailySummary(ctx context.Context, date string) (types.PnlSummary, error) {
	ctx, cancel := a.bounded(ctx)
	defer cancel()

	doc, err := a.store.Get(ctx, a.paths.DailyPath(date))
	if err != nil {
		return types.PnlSummary{}, err
	}

	var s types.PnlSummary
	if err := store.Into(doc, &s); err != nil {
		return types.PnlSummary{}, err
	}

	return s, nil
}

// AppendHourlySummary adds s to the hourly summary collection.
func (a *Adapter) AppendHourlySummary(ctx context.Context, s types.PnlSummary) error {
	doc, err := store.From(s)
	if err != nil {
		return err
	}

	doc[fieldTimestampServer] = store.ServerTimestamp

	ctx, cancel := a.bounded(ctx)
	defer cancel()

	if _, err := a.store.Append(ctx, a.paths.Hourly, doc); err != nil {
		return errors.Wrap(errors.ErrCodePersistenceUnavailable, "failed to append hourly summary", err)
	}

	return nil
}

// RecentHourlySummaries returns up to limit hourly summaries, newest first.
func (a *Adapter) RecentHourlySummaries(ctx context.Context, limit int) ([]types.PnlSummary, error) {
	ctx, cancel := a.bounded(ctx)
	defer cancel()

	records, err := a.store.QueryRecent(ctx, a.paths.Hourly, limit)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistenceUnavailable, "failed to query hourly summaries", err)
	}

	out := make([]types.PnlSummary, 0, len(records))

	for _, r := range records {
		var s types.PnlSummary
		if err := store.Into(r.Data, &s); err != nil {
			return nil, err
		}

		out = append(out, s)
	}

	return out, nil
}
