// Package sqlstore implements store.Table on a relational database through gorm.
package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"cookbook/internal/patch"
	"cookbook/internal/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Table stores T rows in one table keyed by a single string column.
// The db must be opened with TranslateError enabled so duplicate keys surface as gorm.ErrDuplicatedKey.
type Table[T any] struct {
	db   *gorm.DB
	name string
	key  string
}

// NewTable returns a Table over the named SQL table whose primary key column is key.
func NewTable[T any](db *gorm.DB, name, key string) *Table[T] {
	return &Table[T]{db: db, name: name, key: key}
}

// Migrate creates or updates the table schema from T.
func (t *Table[T]) Migrate(ctx context.Context) error {
	return t.db.WithContext(ctx).Table(t.name).AutoMigrate(new(T))
}

func (t *Table[T]) scoped(ctx context.Context, key string, conds []store.Condition) *gorm.DB {
	q := t.db.WithContext(ctx).Table(t.name).Where(clause.Eq{Column: clause.Column{Name: t.key}, Value: key})
	for _, c := range conds {
		q = q.Where(clause.Eq{Column: clause.Column{Name: c.Attr}, Value: c.Value})
	}
	return q
}

func (t *Table[T]) Get(ctx context.Context, key string) (*T, error) {
	var item T
	err := t.scoped(ctx, key, nil).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sql get %s: %w", t.name, err)
	}
	return &item, nil
}

func (t *Table[T]) Create(ctx context.Context, item *T) error {
	err := t.db.WithContext(ctx).Table(t.name).Create(item).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return store.ErrConditionFailed
	}
	if err != nil {
		return fmt.Errorf("sql create %s: %w", t.name, err)
	}
	return nil
}

func (t *Table[T]) Update(ctx context.Context, key string, p *patch.Patch, conds ...store.Condition) error {
	if p.Empty() {
		return store.ErrEmptyPatch
	}
	if p.Has(t.key) {
		return fmt.Errorf("sql update %s: key column %q cannot be patched", t.name, t.key)
	}

	res := t.scoped(ctx, key, conds).Updates(p.Map())
	if res.Error != nil {
		return fmt.Errorf("sql update %s: %w", t.name, res.Error)
	}
	if res.RowsAffected == 0 {
		return t.explainNoRows(ctx, key)
	}
	return nil
}

func (t *Table[T]) Delete(ctx context.Context, key string, conds ...store.Condition) error {
	res := t.scoped(ctx, key, conds).Delete(new(T))
	if res.Error != nil {
		return fmt.Errorf("sql delete %s: %w", t.name, res.Error)
	}
	if res.RowsAffected == 0 {
		return t.explainNoRows(ctx, key)
	}
	return nil
}

func (t *Table[T]) Scan(ctx context.Context, filters ...store.Condition) ([]T, error) {
	q := t.db.WithContext(ctx).Table(t.name)
	for _, f := range filters {
		q = q.Where(clause.Eq{Column: clause.Column{Name: f.Attr}, Value: f.Value})
	}
	var items []T
	if err := q.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("sql scan %s: %w", t.name, err)
	}
	return items, nil
}

// Ping checks the underlying connection.
func (t *Table[T]) Ping(ctx context.Context) error {
	sqlDB, err := t.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (t *Table[T]) explainNoRows(ctx context.Context, key string) error {
	var n int64
	if err := t.scoped(ctx, key, nil).Count(&n).Error; err != nil {
		return fmt.Errorf("sql count %s: %w", t.name, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrConditionFailed
}
