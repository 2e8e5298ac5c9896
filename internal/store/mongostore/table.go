// Package mongostore implements store.Table on MongoDB, one collection per table.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"cookbook/internal/patch"
	"cookbook/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Table stores T documents in a collection with a unique index on the key attribute.
type Table[T any] struct {
	coll *mongo.Collection
	key  string
}

// NewTable returns a Table over db.<name> keyed by key.
func NewTable[T any](db *mongo.Database, name, key string) *Table[T] {
	return &Table[T]{coll: db.Collection(name), key: key}
}

// EnsureIndex creates the unique key index Create relies on.
func (t *Table[T]) EnsureIndex(ctx context.Context) error {
	_, err := t.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: t.key, Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongo index %s: %w", t.coll.Name(), err)
	}
	return nil
}

// Filter builds the document filter for a key plus conditions.
func (t *Table[T]) Filter(key string, conds []store.Condition) bson.D {
	filter := bson.D{{Key: t.key, Value: key}}
	for _, c := range conds {
		filter = append(filter, bson.E{Key: c.Attr, Value: c.Value})
	}
	return filter
}

func (t *Table[T]) Get(ctx context.Context, key string) (*T, error) {
	var item T
	err := t.coll.FindOne(ctx, t.Filter(key, nil)).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo get %s: %w", t.coll.Name(), err)
	}
	return &item, nil
}

func (t *Table[T]) Create(ctx context.Context, item *T) error {
	_, err := t.coll.InsertOne(ctx, item)
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrConditionFailed
	}
	if err != nil {
		return fmt.Errorf("mongo create %s: %w", t.coll.Name(), err)
	}
	return nil
}

// SetDocument converts a patch into a $set document, preserving field order.
func SetDocument(p *patch.Patch) bson.D {
	set := bson.D{}
	for _, f := range p.Fields() {
		set = append(set, bson.E{Key: f.Name, Value: f.Value})
	}
	return bson.D{{Key: "$set", Value: set}}
}

func (t *Table[T]) Update(ctx context.Context, key string, p *patch.Patch, conds ...store.Condition) error {
	if p.Empty() {
		return store.ErrEmptyPatch
	}
	if p.Has(t.key) {
		return fmt.Errorf("mongo update %s: key attribute %q cannot be patched", t.coll.Name(), t.key)
	}

	res, err := t.coll.UpdateOne(ctx, t.Filter(key, conds), SetDocument(p))
	if err != nil {
		return fmt.Errorf("mongo update %s: %w", t.coll.Name(), err)
	}
	if res.MatchedCount == 0 {
		return t.explainNoMatch(ctx, key)
	}
	return nil
}

func (t *Table[T]) Delete(ctx context.Context, key string, conds ...store.Condition) error {
	res, err := t.coll.DeleteOne(ctx, t.Filter(key, conds))
	if err != nil {
		return fmt.Errorf("mongo delete %s: %w", t.coll.Name(), err)
	}
	if res.DeletedCount == 0 {
		return t.explainNoMatch(ctx, key)
	}
	return nil
}

func (t *Table[T]) Scan(ctx context.Context, filters ...store.Condition) ([]T, error) {
	filter := bson.D{}
	for _, f := range filters {
		filter = append(filter, bson.E{Key: f.Attr, Value: f.Value})
	}
	cur, err := t.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("mongo scan %s: %w", t.coll.Name(), err)
	}
	items := []T{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("mongo scan %s: decode: %w", t.coll.Name(), err)
	}
	return items, nil
}

// Ping checks the primary.
func (t *Table[T]) Ping(ctx context.Context) error {
	return t.coll.Database().Client().Ping(ctx, nil)
}

func (t *Table[T]) explainNoMatch(ctx context.Context, key string) error {
	n, err := t.coll.CountDocuments(ctx, t.Filter(key, nil))
	if err != nil {
		return fmt.Errorf("mongo count %s: %w", t.coll.Name(), err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrConditionFailed
}

// Connect opens a client and verifies it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}
