// Package store provides the durable document store behind the persistence
// adapter: single documents addressed by path, plus append-only collections
// ordered by a server-assigned timestamp.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/rxtech-lab/argo-riskbot/internal/config"
	"github.com/rxtech-lab/argo-riskbot/internal/logger"
	"github.com/rxtech-lab/argo-riskbot/pkg/errors"
)

// Document is a JSON object. Values that are ServerTimestamp are replaced by
// the store's clock when written.
type Document map[string]any

type serverTimestamp struct{}

// ServerTimestamp marks a field the store fills with its own write time.
var ServerTimestamp = serverTimestamp{}

// Record is a collection entry returned by QueryRecent.
type Record struct {
	ID         string
	Data       Document
	ServerTime time.Time
}

// Store is the durable store contract.
type Store interface {
	// Put creates or overwrites the document at path.
	Put(ctx context.Context, path string, doc Document) error
	// Get returns ErrCodeNotFound when no document exists at path.
	Get(ctx context.Context, path string) (Document, error)
	// Append adds doc to collection and returns the new record id.
	Append(ctx context.Context, collection string, doc Document) (string, error)
	// QueryRecent returns at most limit records, newest server time first.
	QueryRecent(ctx context.Context, collection string, limit int) ([]Record, error)
	Close() error
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the clock used for server timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// Open builds the store selected by cfg.
func Open(cfg config.StoreConfig, log *logger.Logger, opts ...Option) (Store, error) {
	switch cfg.Driver {
	case config.StoreDriverMemory:
		return NewMemoryStore(opts...), nil
	case config.StoreDriverDuckDB, "":
		return NewDuckDBStore(cfg.Path, log, opts...)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown store driver %q", cfg.Driver)
	}
}

// encode resolves ServerTimestamp sentinels to now and serializes doc.
func encode(doc Document, now time.Time) ([]byte, error) {
	resolved := make(Document, len(doc))

	for k, v := range doc {
		if _, ok := v.(serverTimestamp); ok {
			resolved[k] = now.UTC().Format(time.RFC3339Nano)

			continue
		}

		resolved[k] = v
	}

	body, err := json.Marshal(resolved)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeEncoding, "failed to encode document", err)
	}

	return body, nil
}

func decode(body []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeEncoding, "failed to decode document", err)
	}

	return doc, nil
}

// Into converts a document into v through its JSON form.
func Into(doc Document, v any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(errors.ErrCodeEncoding, "failed to encode document", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return errors.Wrap(errors.ErrCodeEncoding, "failed to decode document", err)
	}

	return nil
}

// From converts v into a document through its JSON form.
func From(v any) (Document, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeEncoding, "failed to encode value", err)
	}

	return decode(body)
}
