package store

import (
	"context"
	"errors"

	"cookbook/internal/observability"
	"cookbook/internal/patch"
)

type instrumented[T any] struct {
	next    Table[T]
	system  string
	table   string
	metrics *observability.StoreMetrics
}

// Instrument wraps a table with latency metrics and a tracing span per call.
// system names the backend ("dynamodb", "postgresql", ...).
func Instrument[T any](next Table[T], system, table string) Table[T] {
	return &instrumented[T]{
		next:    next,
		system:  system,
		table:   table,
		metrics: observability.NewStoreMetrics(table),
	}
}

func (t *instrumented[T]) observe(ctx context.Context, op string, fn func(context.Context) error) error {
	done := t.metrics.TrackOperation(op)
	ctx, span := observability.StartStoreSpan(ctx, t.system, op, t.table)
	err := fn(ctx)
	done()

	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		// expected outcome, not a span error
		t.metrics.RecordError(op, "not_found")
		span.End()
		return err
	case errors.Is(err, ErrConditionFailed):
		t.metrics.RecordError(op, "condition_failed")
	default:
		t.metrics.RecordError(op, "error")
	}
	observability.EndSpan(span, err)
	return err
}

func (t *instrumented[T]) Get(ctx context.Context, key string) (*T, error) {
	var out *T
	err := t.observe(ctx, "get", func(ctx context.Context) error {
		var err error
		out, err = t.next.Get(ctx, key)
		return err
	})
	return out, err
}

func (t *instrumented[T]) Create(ctx context.Context, item *T) error {
	return t.observe(ctx, "create", func(ctx context.Context) error {
		return t.next.Create(ctx, item)
	})
}

func (t *instrumented[T]) Update(ctx context.Context, key string, p *patch.Patch, conds ...Condition) error {
	return t.observe(ctx, "update", func(ctx context.Context) error {
		return t.next.Update(ctx, key, p, conds...)
	})
}

func (t *instrumented[T]) Delete(ctx context.Context, key string, conds ...Condition) error {
	return t.observe(ctx, "delete", func(ctx context.Context) error {
		return t.next.Delete(ctx, key, conds...)
	})
}

func (t *instrumented[T]) Scan(ctx context.Context, filters ...Condition) ([]T, error) {
	var out []T
	err := t.observe(ctx, "scan", func(ctx context.Context) error {
		var err error
		out, err = t.next.Scan(ctx, filters...)
		return err
	})
	return out, err
}

// Ping forwards to the wrapped table when it supports health checks.
func (t *instrumented[T]) Ping(ctx context.Context) error {
	if p, ok := t.next.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
