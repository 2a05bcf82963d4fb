package persistence

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-riskbot/internal/types"
	"github.com/rxtech-lab/argo-riskbot/pkg/errors"
)

// TradeExporter keeps a Parquet copy of the trade log, rewritten after every
// appended trade.
type TradeExporter struct {
	db         *sql.DB
	outputPath string
	mu         sync.Mutex
}

// NewTradeExporter creates an exporter writing to outputPath. Call
// Initialize before Write.
func NewTradeExporter(outputPath string) *TradeExporter {
	return &TradeExporter{outputPath: outputPath}
}

// Initialize opens an in-memory DuckDB and reloads an existing export.
func (w *TradeExporter) Initialize() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.outputPath), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to create export directory", err)
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to open DuckDB connection", err)
	}

	w.db = db

	_, err = w.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			id TEXT,
			timestamp TIMESTAMP,
			symbol TEXT,
			side TEXT,
			quantity DOUBLE,
			price DOUBLE,
			entry_price DOUBLE,
			realized_pnl DOUBLE,
			reason TEXT,
			sl_at_entry DOUBLE,
			tp_at_entry DOUBLE,
			tsl_at_close DOUBLE,
			is_live BOOLEAN,
			order_id TEXT
		)
	`)
	if err != nil {
		w.db.Close()
		w.db = nil

		return errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to create trades table", err)
	}

	if _, err := os.Stat(w.outputPath); err == nil {
		// an unreadable previous export is replaced on the next write
		_, _ = w.db.Exec(fmt.Sprintf(`INSERT INTO trades SELECT * FROM read_parquet('%s')`, quote(w.outputPath)))
	}

	return nil
}

// Write adds record and rewrites the Parquet file.
func (w *TradeExporter) Write(record types.TradeRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return errors.New(errors.ErrCodeStoreUnavailable, "exporter not initialized")
	}

	_, err := w.db.Exec(`
		INSERT INTO trades (id, timestamp, symbol, side, quantity, price, entry_price,
			realized_pnl, reason, sl_at_entry, tp_at_entry, tsl_at_close, is_live, order_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.Timestamp.UTC(), record.Symbol, string(record.Side),
		record.Quantity.InexactFloat64(), record.Price.InexactFloat64(), record.EntryPrice.InexactFloat64(),
		record.RealizedPnL.InexactFloat64(), record.Reason,
		record.SLAtEntry.InexactFloat64(), record.TPAtEntry.InexactFloat64(), record.TSLAtClose.InexactFloat64(),
		record.IsLive, record.OrderID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert trade", err)
	}

	return w.exportToParquet()
}

// Count returns the number of exported trades.
func (w *TradeExporter) Count() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return 0, errors.New(errors.ErrCodeStoreUnavailable, "exporter not initialized")
	}

	var count int
	if err := w.db.QueryRow("SELECT COUNT(*) FROM trades").Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count trades", err)
	}

	return count, nil
}

func (w *TradeExporter) OutputPath() string {
	return w.outputPath
}

// Close releases database resources.
func (w *TradeExporter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return nil
	}

	err := w.db.Close()
	w.db = nil

	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to close database", err)
	}

	return nil
}

func (w *TradeExporter) exportToParquet() error {
	_, err := w.db.Exec(fmt.Sprintf(`
		COPY (SELECT * FROM trades ORDER BY timestamp ASC)
		TO '%s' (FORMAT PARQUET)
	`, quote(w.outputPath)))
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to export to parquet", err)
	}

	return nil
}

func quote(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}
