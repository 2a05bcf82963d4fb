package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-riskbot/internal/logger"
	"github.com/rxtech-lab/argo-riskbot/pkg/errors"
	"go.uber.org/zap"
)

// DuckDBStore persists documents and collections in a DuckDB file.
type DuckDBStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
	opts   options
}

// NewDuckDBStore opens (creating if needed) the database at path. An empty
// path or ":memory:" opens a throwaway in-memory database.
func NewDuckDBStore(path string, log *logger.Logger, opts ...Option) (*DuckDBStore, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}

	if dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeStoreUnavailable, err, "failed to create directory for %s", dsn)
		}
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		log.Error("Failed to open database", zap.String("path", dsn), zap.Error(err))

		return nil, errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to open database", err)
	}

	if err := db.Ping(); err != nil {
		log.Error("Failed to connect to database", zap.String("path", dsn), zap.Error(err))
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to connect to database", err)
	}

	s := &DuckDBStore{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		opts:   buildOptions(opts),
	}

	if err := s.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return s, nil
}

func (s *DuckDBStore) initialize() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			path TEXT PRIMARY KEY,
			body TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE SEQUENCE IF NOT EXISTS record_seq START 1`,
		`CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			body TEXT NOT NULL,
			server_ts TIMESTAMP NOT NULL,
			seq BIGINT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to initialize schema", err)
		}
	}

	return nil
}

func (s *DuckDBStore) Put(ctx context.Context, path string, doc Document) error {
	now := s.opts.now().UTC()

	body, err := encode(doc, now)
	if err != nil {
		return err
	}

	query, args, err := s.sq.
		Insert("documents").
		Columns("path", "body", "updated_at").
		Values(path, string(body), now).
		Suffix("ON CONFLICT (path) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build put query", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(errors.ErrCodeStoreUnavailable, err, "failed to put %s", path)
	}

	return nil
}

func (s *DuckDBStore) Get(ctx context.Context, path string) (Document, error) {
	query, args, err := s.sq.
		Select("body").
		From("documents").
		Where(squirrel.Eq{"path": path}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build get query", err)
	}

	var body string

	err = s.db.QueryRowContext(ctx, query, args...).Scan(&body)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.Newf(errors.ErrCodeNotFound, "no document at %s", path)
	}

	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStoreUnavailable, err, "failed to get %s", path)
	}

	return decode([]byte(body))
}

func (s *DuckDBStore) Append(ctx context.Context, collection string, doc Document) (string, error) {
	now := s.opts.now().UTC()

	body, err := encode(doc, now)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()

	query, args, err := s.sq.
		Insert("records").
		Columns("id", "collection", "body", "server_ts", "seq").
		Values(id, collection, string(body), now, squirrel.Expr("nextval('record_seq')")).
		ToSql()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeQueryFailed, "failed to build append query", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", errors.Wrapf(errors.ErrCodeStoreUnavailable, err, "failed to append to %s", collection)
	}

	return id, nil
}

func (s *DuckDBStore) QueryRecent(ctx context.Context, collection string, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "limit must be positive, got %d", limit)
	}

	query, args, err := s.sq.
		Select("id", "body", "server_ts").
		From("records").
		Where(squirrel.Eq{"collection": collection}).
		OrderBy("server_ts DESC", "seq DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStoreUnavailable, err, "failed to query %s", collection)
	}
	defer rows.Close()

	var records []Record

	for rows.Next() {
		var (
			id   string
			body string
			ts   time.Time
		)

		if err := rows.Scan(&id, &body, &ts); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan record", err)
		}

		doc, err := decode([]byte(body))
		if err != nil {
			return nil, err
		}

		records = append(records, Record{ID: id, Data: doc, ServerTime: ts.UTC()})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate records", err)
	}

	return records, nil
}

// Close releases database resources.
func (s *DuckDBStore) Close() error {
	if s.db == nil {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to close database", err)
	}

	s.db = nil

	return nil
}
