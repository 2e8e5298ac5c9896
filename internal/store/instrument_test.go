package store

import (
	"context"
	"errors"
	"testing"

	"cookbook/internal/observability"
	"cookbook/internal/patch"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct{ ID string }

// tableStub is a stub for Table[record].
type tableStub struct {
	getFn    func(string) (*record, error)
	updateFn func(string, *patch.Patch, []Condition) error
	pinged   bool
}

func (s *tableStub) Get(_ context.Context, key string) (*record, error) { return s.getFn(key) }
func (s *tableStub) Create(context.Context, *record) error             { return nil }
func (s *tableStub) Update(_ context.Context, key string, p *patch.Patch, conds ...Condition) error {
	return s.updateFn(key, p, conds)
}
func (s *tableStub) Delete(context.Context, string, ...Condition) error { return nil }
func (s *tableStub) Scan(context.Context, ...Condition) ([]record, error) {
	return []record{{ID: "a"}, {ID: "b"}}, nil
}
func (s *tableStub) Ping(context.Context) error { s.pinged = true; return nil }

func TestInstrument_PassesThroughAndCountsOutcomes(t *testing.T) {
	stub := &tableStub{
		getFn: func(key string) (*record, error) {
			if key == "missing" {
				return nil, ErrNotFound
			}
			return &record{ID: key}, nil
		},
		updateFn: func(_ string, _ *patch.Patch, conds []Condition) error {
			if len(conds) > 0 {
				return ErrConditionFailed
			}
			return errors.New("throttled")
		},
	}
	table := Instrument[record](stub, "test", "instrument_test_records")
	ctx := context.Background()

	got, err := table.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "x", got.ID)

	_, err = table.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = table.Update(ctx, "x", patch.New().Set("a", "b"), Eq("author", "me"))
	assert.ErrorIs(t, err, ErrConditionFailed)
	err = table.Update(ctx, "x", patch.New().Set("a", "b"))
	assert.EqualError(t, err, "throttled")

	items, err := table.Scan(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	require.NoError(t, table.(Pinger).Ping(ctx))
	assert.True(t, stub.pinged)

	assert.Equal(t, 1.0, testutil.ToFloat64(observability.StoreErrors.WithLabelValues("get", "instrument_test_records", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(observability.StoreErrors.WithLabelValues("update", "instrument_test_records", "condition_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(observability.StoreErrors.WithLabelValues("update", "instrument_test_records", "error")))
}
