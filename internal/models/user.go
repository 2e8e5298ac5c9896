package models

// User is a cookbook profile. UserID is always DerivedIdentity(email).
type User struct {
	UserID      string `json:"userId" dynamodbav:"userId" bson:"userId" gorm:"column:userId;primaryKey"`
	UserName    string `json:"userName" dynamodbav:"userName" bson:"userName" gorm:"column:userName"`
	Description string `json:"description,omitempty" dynamodbav:"description,omitempty" bson:"description,omitempty" gorm:"column:description"`
	ImageID     string `json:"imageId,omitempty" dynamodbav:"imageId,omitempty" bson:"imageId,omitempty" gorm:"column:imageId"`
	ThumbURL    string `json:"thumbUrl,omitempty" dynamodbav:"thumbUrl,omitempty" bson:"thumbUrl,omitempty" gorm:"column:thumbUrl"`
	ImageURL    string `json:"imageUrl,omitempty" dynamodbav:"imageUrl,omitempty" bson:"imageUrl,omitempty" gorm:"column:imageUrl"`
	CreatedAt   int64  `json:"createdAt" dynamodbav:"createdAt" bson:"createdAt" gorm:"column:createdAt;autoCreateTime:milli"`
	UpdatedAt   int64  `json:"updatedAt,omitempty" dynamodbav:"updatedAt,omitempty" bson:"updatedAt,omitempty" gorm:"column:updatedAt;autoUpdateTime:milli"`
}

// Credential is a locally managed login, used only by the local identity provider.
type Credential struct {
	Email        string `json:"email" dynamodbav:"email" bson:"email" gorm:"column:email;primaryKey"`
	PasswordHash string `json:"-" dynamodbav:"passwordHash" bson:"passwordHash" gorm:"column:passwordHash"`
	CreatedAt    int64  `json:"createdAt" dynamodbav:"createdAt" bson:"createdAt" gorm:"column:createdAt;autoCreateTime:milli"`
	UpdatedAt    int64  `json:"updatedAt,omitempty" dynamodbav:"updatedAt,omitempty" bson:"updatedAt,omitempty" gorm:"column:updatedAt;autoUpdateTime:milli"`
}
