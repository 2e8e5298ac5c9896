// Package models holds the cookbook entities, their identifier formats and the API error types.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Identifier prefixes.
const (
	UserPrefix     = "User-"
	PostPrefix     = "Post-"
	CategoryPrefix = "Category-"
	CommentPrefix  = "Comment-"
)

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DerivedIdentity returns the user key and ownership discriminator for an email.
func DerivedIdentity(email string) string {
	return UserPrefix + NormalizeEmail(email)
}

func NewPostID() string {
	return PostPrefix + uuid.NewString()
}

func NewCategoryID() string {
	return CategoryPrefix + uuid.NewString()
}

func NewCommentID() string {
	return CommentPrefix + uuid.NewString()
}

// NowMillis returns the current time as epoch milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
