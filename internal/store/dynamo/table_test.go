package dynamo

import (
	"context"
	"errors"
	"testing"

	"cookbook/internal/models"
	"cookbook/internal/patch"
	"cookbook/internal/store"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a stub for the DynamoDB client.
type fakeAPI struct {
	getFn      func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error)
	putFn      func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error)
	updateFn   func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error)
	deleteFn   func(*dynamodb.DeleteItemInput) (*dynamodb.DeleteItemOutput, error)
	scanFn     func(*dynamodb.ScanInput) (*dynamodb.ScanOutput, error)
	describeFn func(*dynamodb.DescribeTableInput) (*dynamodb.DescribeTableOutput, error)
}

func (f *fakeAPI) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return f.getFn(in)
}
func (f *fakeAPI) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return f.putFn(in)
}
func (f *fakeAPI) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return f.updateFn(in)
}
func (f *fakeAPI) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return f.deleteFn(in)
}
func (f *fakeAPI) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return f.scanFn(in)
}
func (f *fakeAPI) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return f.describeFn(in)
}
func (f *fakeAPI) CreateTable(_ context.Context, _ *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	return &dynamodb.CreateTableOutput{}, nil
}

func s(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }

func postItem(id, author string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"postId":    s(id),
		"title":     s("Pancakes"),
		"author":    s(author),
		"category":  s("Category-1"),
		"createdAt": &types.AttributeValueMemberN{Value: "1700000000000"},
	}
}

func TestTable_Get(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		getFn: func(in *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
			assert.Equal(t, "posts", aws.ToString(in.TableName))
			assert.True(t, aws.ToBool(in.ConsistentRead))
			key := in.Key["postId"].(*types.AttributeValueMemberS).Value
			if key == "Post-1" {
				return &dynamodb.GetItemOutput{Item: postItem("Post-1", "User-a@b.c")}, nil
			}
			return &dynamodb.GetItemOutput{}, nil
		},
	}
	table := NewTable[models.Post](api, "posts", models.PostKey)

	post, err := table.Get(context.Background(), "Post-1")
	require.NoError(t, err)
	assert.Equal(t, "Pancakes", post.Title)
	assert.Equal(t, "User-a@b.c", post.Author)
	assert.Equal(t, int64(1700000000000), post.CreatedAt)

	_, err = table.Get(context.Background(), "Post-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTable_Create(t *testing.T) {
	t.Parallel()

	var calls int
	api := &fakeAPI{
		putFn: func(in *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
			calls++
			assert.Equal(t, "attribute_not_exists(#pk)", aws.ToString(in.ConditionExpression))
			assert.Equal(t, "categoryId", in.ExpressionAttributeNames["#pk"])
			assert.Equal(t, s("Dessert"), in.Item["title"])
			if calls > 1 {
				return nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")}
			}
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	table := NewTable[models.Category](api, "categories", models.CategoryKey)
	cat := &models.Category{CategoryID: "Category-1", Title: "Dessert", CreatedAt: 1}

	require.NoError(t, table.Create(context.Background(), cat))
	assert.ErrorIs(t, table.Create(context.Background(), cat), store.ErrConditionFailed)
}

func TestTable_Update_BuildsConditionalExpression(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		updateFn: func(in *dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
			assert.Equal(t, "SET #field0 = :value0, #field1 = :value1", aws.ToString(in.UpdateExpression))
			assert.Equal(t, "attribute_exists(#pk) AND #cond0 = :cond0", aws.ToString(in.ConditionExpression))
			assert.Equal(t, map[string]string{
				"#pk":     "postId",
				"#field0": "title",
				"#field1": "updatedAt",
				"#cond0":  "author",
			}, in.ExpressionAttributeNames)
			assert.Equal(t, s("Waffles"), in.ExpressionAttributeValues[":value0"])
			assert.Equal(t, &types.AttributeValueMemberN{Value: "5"}, in.ExpressionAttributeValues[":value1"])
			assert.Equal(t, s("User-a@b.c"), in.ExpressionAttributeValues[":cond0"])
			return &dynamodb.UpdateItemOutput{}, nil
		},
	}
	table := NewTable[models.Post](api, "posts", models.PostKey)

	p := patch.New().Set("title", "Waffles").Set("recipe", "").Set("updatedAt", int64(5))
	err := table.Update(context.Background(), "Post-1", p, store.Eq("author", "User-a@b.c"))
	require.NoError(t, err)
}

func TestTable_Update_Rejections(t *testing.T) {
	t.Parallel()
	table := NewTable[models.Post](&fakeAPI{}, "posts", models.PostKey)

	err := table.Update(context.Background(), "Post-1", patch.New().Set("title", ""))
	assert.ErrorIs(t, err, store.ErrEmptyPatch)

	err = table.Update(context.Background(), "Post-1", patch.New().Set("postId", "Post-2"))
	assert.Error(t, err)
}

func TestTable_ConditionFailureIsExplained(t *testing.T) {
	t.Parallel()

	ccf := &types.ConditionalCheckFailedException{Message: aws.String("nope")}
	tests := []struct {
		name   string
		exists bool
		want   error
	}{
		{"item gone", false, store.ErrNotFound},
		{"owner mismatch", true, store.ErrConditionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{
				updateFn: func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) { return nil, ccf },
				deleteFn: func(*dynamodb.DeleteItemInput) (*dynamodb.DeleteItemOutput, error) { return nil, ccf },
				getFn: func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
					if tt.exists {
						return &dynamodb.GetItemOutput{Item: postItem("Post-1", "User-x@y.z")}, nil
					}
					return &dynamodb.GetItemOutput{}, nil
				},
			}
			table := NewTable[models.Post](api, "posts", models.PostKey)
			ctx := context.Background()

			err := table.Update(ctx, "Post-1", patch.New().Set("title", "x"), store.Eq("author", "User-a@b.c"))
			assert.ErrorIs(t, err, tt.want)
			err = table.Delete(ctx, "Post-1", store.Eq("author", "User-a@b.c"))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTable_Delete_WithoutConditions(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{
		deleteFn: func(in *dynamodb.DeleteItemInput) (*dynamodb.DeleteItemOutput, error) {
			assert.Equal(t, "attribute_exists(#pk)", aws.ToString(in.ConditionExpression))
			assert.Nil(t, in.ExpressionAttributeValues)
			return &dynamodb.DeleteItemOutput{}, nil
		},
	}
	table := NewTable[models.Comment](api, "comments", models.CommentKey)
	require.NoError(t, table.Delete(context.Background(), "Comment-1"))
}

func TestTable_Scan_PaginatesAndFilters(t *testing.T) {
	t.Parallel()

	var pages int
	api := &fakeAPI{
		scanFn: func(in *dynamodb.ScanInput) (*dynamodb.ScanOutput, error) {
			pages++
			assert.Equal(t, "#f0 = :f0", aws.ToString(in.FilterExpression))
			assert.Equal(t, "author", in.ExpressionAttributeNames["#f0"])
			assert.Equal(t, s("User-a@b.c"), in.ExpressionAttributeValues[":f0"])
			if in.ExclusiveStartKey == nil {
				return &dynamodb.ScanOutput{
					Items:            []map[string]types.AttributeValue{postItem("Post-1", "User-a@b.c")},
					LastEvaluatedKey: map[string]types.AttributeValue{"postId": s("Post-1")},
				}, nil
			}
			return &dynamodb.ScanOutput{
				Items: []map[string]types.AttributeValue{postItem("Post-2", "User-a@b.c")},
			}, nil
		},
	}
	table := NewTable[models.Post](api, "posts", models.PostKey)

	posts, err := table.Scan(context.Background(), store.Eq("author", "User-a@b.c"))
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
	require.Len(t, posts, 2)
	assert.Equal(t, "Post-1", posts[0].PostID)
	assert.Equal(t, "Post-2", posts[1].PostID)
}

func TestTable_WrapsUpstreamErrors(t *testing.T) {
	t.Parallel()
	boom := errors.New("throttled")
	api := &fakeAPI{
		getFn: func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) { return nil, boom },
	}
	table := NewTable[models.User](api, "users", models.UserKey)
	_, err := table.Get(context.Background(), "User-a@b.c")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, store.ErrNotFound)
}
