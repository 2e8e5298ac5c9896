package models

// Post is a recipe. Author holds the owner's derived identity.
type Post struct {
	PostID      string `json:"postId" dynamodbav:"postId" bson:"postId" gorm:"column:postId;primaryKey"`
	Title       string `json:"title" dynamodbav:"title" bson:"title" gorm:"column:title"`
	Author      string `json:"author" dynamodbav:"author" bson:"author" gorm:"column:author;index"`
	Category    string `json:"category" dynamodbav:"category" bson:"category" gorm:"column:category;index"`
	ImageID     string `json:"imageId,omitempty" dynamodbav:"imageId,omitempty" bson:"imageId,omitempty" gorm:"column:imageId"`
	ThumbURL    string `json:"thumbUrl,omitempty" dynamodbav:"thumbUrl,omitempty" bson:"thumbUrl,omitempty" gorm:"column:thumbUrl"`
	ImageURL    string `json:"imageUrl,omitempty" dynamodbav:"imageUrl,omitempty" bson:"imageUrl,omitempty" gorm:"column:imageUrl"`
	Ingredients string `json:"ingredients" dynamodbav:"ingredients" bson:"ingredients" gorm:"column:ingredients"`
	Recipe      string `json:"recipe" dynamodbav:"recipe" bson:"recipe" gorm:"column:recipe"`
	CreatedAt   int64  `json:"createdAt" dynamodbav:"createdAt" bson:"createdAt" gorm:"column:createdAt;autoCreateTime:milli"`
	UpdatedAt   int64  `json:"updatedAt,omitempty" dynamodbav:"updatedAt,omitempty" bson:"updatedAt,omitempty" gorm:"column:updatedAt;autoUpdateTime:milli"`
}

// Category groups posts. Titles are unique ignoring case.
type Category struct {
	CategoryID string `json:"categoryId" dynamodbav:"categoryId" bson:"categoryId" gorm:"column:categoryId;primaryKey"`
	Title      string `json:"title" dynamodbav:"title" bson:"title" gorm:"column:title"`
	CreatedAt  int64  `json:"createdAt" dynamodbav:"createdAt" bson:"createdAt" gorm:"column:createdAt;autoCreateTime:milli"`
}

// Comment belongs to a post by PostID. The reference is not enforced by the store.
type Comment struct {
	CommentID string `json:"commentId" dynamodbav:"commentId" bson:"commentId" gorm:"column:commentId;primaryKey"`
	PostID    string `json:"postId" dynamodbav:"postId" bson:"postId" gorm:"column:postId;index"`
	Author    string `json:"author" dynamodbav:"author" bson:"author" gorm:"column:author"`
	Text      string `json:"text" dynamodbav:"text" bson:"text" gorm:"column:text"`
	CreatedAt int64  `json:"createdAt" dynamodbav:"createdAt" bson:"createdAt" gorm:"column:createdAt;autoCreateTime:milli"`
}

// Key attribute names, shared by every store backend.
const (
	UserKey       = "userId"
	PostKey       = "postId"
	CategoryKey   = "categoryId"
	CommentKey    = "commentId"
	CredentialKey = "email"
)
