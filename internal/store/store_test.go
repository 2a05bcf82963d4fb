package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-riskbot/internal/config"
	"github.com/rxtech-lab/argo-riskbot/internal/logger"
	"github.com/rxtech-lab/argo-riskbot/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// StoreTestSuite runs the same contract against every backend.
type StoreTestSuite struct {
	suite.Suite
	open  func(opts ...Option) Store
	store Store
	now   time.Time
}

func (suite *StoreTestSuite) clock() time.Time {
	return suite.now
}

func (suite *StoreTestSuite) SetupTest() {
	suite.now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	suite.store = suite.open(WithClock(suite.clock))
}

func (suite *StoreTestSuite) TearDownTest() {
	suite.Require().NoError(suite.store.Close())
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, &StoreTestSuite{open: func(opts ...Option) Store {
		return NewMemoryStore(opts...)
	}})
}

func TestDuckDBStoreSuite(t *testing.T) {
	suite.Run(t, &StoreTestSuite{open: func(opts ...Option) Store {
		s, err := NewDuckDBStore(":memory:", logger.NewNopLogger(), opts...)
		if err != nil {
			t.Fatalf("failed to open duckdb store: %v", err)
		}

		return s
	}})
}

func (suite *StoreTestSuite) TestGetMissing() {
	_, err := suite.store.Get(context.Background(), "a/b")
	suite.True(errors.HasCode(err, errors.ErrCodeNotFound))
}

func (suite *StoreTestSuite) TestPutGetOverwrite() {
	ctx := context.Background()

	suite.Require().NoError(suite.store.Put(ctx, "a/b", Document{"cash": "1000", "count": 3}))
	suite.Require().NoError(suite.store.Put(ctx, "a/b", Document{"cash": "900", "count": 4}))

	doc, err := suite.store.Get(ctx, "a/b")
	suite.Require().NoError(err)
	suite.Equal("900", doc["cash"])
	suite.Equal(json.Number("4"), doc["count"])
}

func (suite *StoreTestSuite) TestServerTimestampResolved() {
	ctx := context.Background()

	suite.Require().NoError(suite.store.Put(ctx, "state", Document{"lastUpdated": ServerTimestamp}))

	doc, err := suite.store.Get(ctx, "state")
	suite.Require().NoError(err)
	suite.Equal("2026-05-01T09:00:00Z", doc["lastUpdated"])
}

func (suite *StoreTestSuite) TestQueryRecentOrdersByServerTime() {
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := suite.store.Append(ctx, "trades", Document{"n": i})
		suite.Require().NoError(err)
		suite.now = suite.now.Add(time.Minute)
	}

	// same server time, later insert wins
	suite.now = suite.now.Add(-time.Minute)
	id, err := suite.store.Append(ctx, "trades", Document{"n": 5})
	suite.Require().NoError(err)

	_, err = suite.store.Append(ctx, "other", Document{"n": 99})
	suite.Require().NoError(err)

	records, err := suite.store.QueryRecent(ctx, "trades", 3)
	suite.Require().NoError(err)
	suite.Require().Len(records, 3)
	suite.Equal(id, records[0].ID)
	suite.Equal(json.Number("5"), records[0].Data["n"])
	suite.Equal(json.Number("4"), records[1].Data["n"])
	suite.Equal(json.Number("3"), records[2].Data["n"])
	suite.True(records[1].ServerTime.Equal(time.Date(2026, 5, 1, 9, 4, 0, 0, time.UTC)))

	all, err := suite.store.QueryRecent(ctx, "trades", 100)
	suite.Require().NoError(err)
	suite.Len(all, 6)
}

func (suite *StoreTestSuite) TestQueryRecentEmptyAndInvalid() {
	records, err := suite.store.QueryRecent(context.Background(), "nothing", 10)
	suite.Require().NoError(err)
	suite.Empty(records)

	_, err = suite.store.QueryRecent(context.Background(), "nothing", 0)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func TestIntoAndFrom(t *testing.T) {
	type payload struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	}

	doc, err := From(payload{Name: "x", Value: 1.5})
	if err != nil {
		t.Fatal(err)
	}

	var out payload
	if err := Into(doc, &out); err != nil {
		t.Fatal(err)
	}

	if out.Name != "x" || out.Value != 1.5 {
		t.Fatalf("unexpected round trip %+v", out)
	}
}

func TestOpen(t *testing.T) {
	s, err := Open(config.StoreConfig{Driver: config.StoreDriverMemory}, logger.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", s)
	}

	_, err = Open(config.StoreConfig{Driver: "redis"}, logger.NewNopLogger())
	if !errors.HasCode(err, errors.ErrCodeInvalidConfiguration) {
		t.Fatalf("expected invalid configuration, got %v", err)
	}
}
