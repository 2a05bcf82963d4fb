package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-riskbot/pkg/errors"
)

type memoryRecord struct {
	id   string
	body []byte
	ts   time.Time
	seq  int64
}

// MemoryStore keeps everything in process memory. Documents are stored in
// encoded form so reads behave like the durable backend.
type MemoryStore struct {
	mu          sync.Mutex
	opts        options
	documents   map[string][]byte
	collections map[string][]memoryRecord
	seq         int64
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		opts:        buildOptions(opts),
		documents:   make(map[string][]byte),
		collections: make(map[string][]memoryRecord),
	}
}

func (s *MemoryStore) Put(ctx context.Context, path string, doc Document) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, "put cancelled", err)
	}

	body, err := encode(doc, s.opts.now())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.documents[path] = body

	return nil
}

func (s *MemoryStore) Get(ctx context.Context, path string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreUnavailable, "get cancelled", err)
	}

	s.mu.Lock()
	body, ok := s.documents[path]
	s.mu.Unlock()

	if !ok {
		return nil, errors.Newf(errors.ErrCodeNotFound, "no document at %s", path)
	}

	return decode(body)
}

func (s *MemoryStore) Append(ctx context.Context, collection string, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.Wrap(errors.ErrCodeStoreUnavailable, "append cancelled", err)
	}

	now := s.opts.now()

	body, err := encode(doc, now)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	id := uuid.NewString()
	s.collections[collection] = append(s.collections[collection], memoryRecord{id: id, body: body, ts: now.UTC(), seq: s.seq})

	return id, nil
}

func (s *MemoryStore) QueryRecent(ctx context.Context, collection string, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreUnavailable, "query cancelled", err)
	}

	if limit <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "limit must be positive, got %d", limit)
	}

	s.mu.Lock()
	records := slices.Clone(s.collections[collection])
	s.mu.Unlock()

	slices.SortFunc(records, func(a, b memoryRecord) int {
		if c := b.ts.Compare(a.ts); c != 0 {
			return c
		}

		return int(b.seq - a.seq)
	})

	if len(records) > limit {
		records = records[:limit]
	}

	out := make([]Record, 0, len(records))

	for _, r := range records {
		doc, err := decode(r.body)
		if err != nil {
			return nil, err
		}

		out = append(out, Record{ID: r.id, Data: doc, ServerTime: r.ts})
	}

	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
