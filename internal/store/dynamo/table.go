// Package dynamo implements store.Table on Amazon DynamoDB.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cookbook/internal/patch"
	"cookbook/internal/store"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// API is the subset of the DynamoDB client used by Table.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// Table stores T items in one DynamoDB table with a string hash key.
type Table[T any] struct {
	client API
	name   string
	key    string
}

// NewTable returns a Table for the named DynamoDB table whose hash key attribute is key.
func NewTable[T any](client API, name, key string) *Table[T] {
	return &Table[T]{client: client, name: name, key: key}
}

func (t *Table[T]) keyOf(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		t.key: &types.AttributeValueMemberS{Value: key},
	}
}

// Get reads the item with a strongly consistent read.
func (t *Table[T]) Get(ctx context.Context, key string) (*T, error) {
	out, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(t.name),
		Key:            t.keyOf(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, t.wrap("get", err)
	}
	if len(out.Item) == 0 {
		return nil, store.ErrNotFound
	}

	var item T
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("dynamodb get %s: decode: %w", t.name, err)
	}
	return &item, nil
}

// Create puts item guarded by attribute_not_exists on the key.
func (t *Table[T]) Create(ctx context.Context, item *T) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("dynamodb create %s: encode: %w", t.name, err)
	}

	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(t.name),
		Item:                     av,
		ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": t.key},
	})
	if isConditionFailed(err) {
		return store.ErrConditionFailed
	}
	if err != nil {
		return t.wrap("create", err)
	}
	return nil
}

// Update applies the patch as a SET expression. The item must exist and match conds.
func (t *Table[T]) Update(ctx context.Context, key string, p *patch.Patch, conds ...store.Condition) error {
	if p.Empty() {
		return store.ErrEmptyPatch
	}
	if p.Has(t.key) {
		return fmt.Errorf("dynamodb update %s: key attribute %q cannot be patched", t.name, t.key)
	}

	expr := p.Expression()
	names := map[string]string{"#pk": t.key}
	for placeholder, attr := range expr.Names {
		names[placeholder] = attr
	}
	values := make(map[string]types.AttributeValue, len(expr.Values)+len(conds))
	for placeholder, v := range expr.Values {
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return fmt.Errorf("dynamodb update %s: encode %s: %w", t.name, placeholder, err)
		}
		values[placeholder] = av
	}

	condition, err := conditionExpression(conds, names, values)
	if err != nil {
		return fmt.Errorf("dynamodb update %s: %w", t.name, err)
	}

	_, err = t.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(t.name),
		Key:                       t.keyOf(key),
		UpdateExpression:          aws.String(expr.Expression),
		ConditionExpression:       aws.String(condition),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if isConditionFailed(err) {
		return t.explainConditionFailure(ctx, key)
	}
	if err != nil {
		return t.wrap("update", err)
	}
	return nil
}

// Delete removes the item. The item must exist and match conds.
func (t *Table[T]) Delete(ctx context.Context, key string, conds ...store.Condition) error {
	names := map[string]string{"#pk": t.key}
	values := map[string]types.AttributeValue{}

	condition, err := conditionExpression(conds, names, values)
	if err != nil {
		return fmt.Errorf("dynamodb delete %s: %w", t.name, err)
	}

	in := &dynamodb.DeleteItemInput{
		TableName:                aws.String(t.name),
		Key:                      t.keyOf(key),
		ConditionExpression:      aws.String(condition),
		ExpressionAttributeNames: names,
	}
	if len(values) > 0 {
		in.ExpressionAttributeValues = values
	}

	_, err = t.client.DeleteItem(ctx, in)
	if isConditionFailed(err) {
		return t.explainConditionFailure(ctx, key)
	}
	if err != nil {
		return t.wrap("delete", err)
	}
	return nil
}

// Scan reads the whole table, page by page, applying filters server side.
func (t *Table[T]) Scan(ctx context.Context, filters ...store.Condition) ([]T, error) {
	in := &dynamodb.ScanInput{TableName: aws.String(t.name)}
	if len(filters) > 0 {
		names := map[string]string{}
		values := map[string]types.AttributeValue{}
		parts := make([]string, 0, len(filters))
		for i, f := range filters {
			n, v := fmt.Sprintf("#f%d", i), fmt.Sprintf(":f%d", i)
			av, err := attributevalue.Marshal(f.Value)
			if err != nil {
				return nil, fmt.Errorf("dynamodb scan %s: encode filter: %w", t.name, err)
			}
			names[n] = f.Attr
			values[v] = av
			parts = append(parts, n+" = "+v)
		}
		in.FilterExpression = aws.String(strings.Join(parts, " AND "))
		in.ExpressionAttributeNames = names
		in.ExpressionAttributeValues = values
	}

	var items []T
	pages := dynamodb.NewScanPaginator(t.client, in)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, t.wrap("scan", err)
		}
		var batch []T
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("dynamodb scan %s: decode: %w", t.name, err)
		}
		items = append(items, batch...)
	}
	return items, nil
}

// Ping describes the table.
func (t *Table[T]) Ping(ctx context.Context) error {
	_, err := t.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(t.name)})
	return t.wrap("describe", err)
}

// EnsureTable creates the table on demand (PAY_PER_REQUEST, string hash key) and waits for it.
func (t *Table[T]) EnsureTable(ctx context.Context) error {
	_, err := t.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(t.name)})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return t.wrap("describe", err)
	}

	_, err = t.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(t.name),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(t.key), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(t.key), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if !errors.As(err, &inUse) {
			return t.wrap("create table", err)
		}
	}

	waiter := dynamodb.NewTableExistsWaiter(t.client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(t.name)}, 2*time.Minute)
}

// explainConditionFailure tells a missing item apart from a failed ownership condition.
func (t *Table[T]) explainConditionFailure(ctx context.Context, key string) error {
	if _, err := t.Get(ctx, key); errors.Is(err, store.ErrNotFound) {
		return store.ErrNotFound
	}
	return store.ErrConditionFailed
}

func (t *Table[T]) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("dynamodb %s %s: %w", op, t.name, err)
}

// conditionExpression renders attribute_exists on the key plus one equality per condition.
func conditionExpression(conds []store.Condition, names map[string]string, values map[string]types.AttributeValue) (string, error) {
	parts := []string{"attribute_exists(#pk)"}
	for i, c := range conds {
		n, v := fmt.Sprintf("#cond%d", i), fmt.Sprintf(":cond%d", i)
		av, err := attributevalue.Marshal(c.Value)
		if err != nil {
			return "", fmt.Errorf("encode condition on %s: %w", c.Attr, err)
		}
		names[n] = c.Attr
		values[v] = av
		parts = append(parts, n+" = "+v)
	}
	return strings.Join(parts, " AND "), nil
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
