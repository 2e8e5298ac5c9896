// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"context"
	"testing"

	"cookbook/internal/models"
	"cookbook/internal/store"
	"cookbook/internal/store/sqlstore"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens a private in-memory database closed at test cleanup.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection would get its own in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// Tables bundles one migrated table per entity.
type Tables struct {
	Users       store.Table[models.User]
	Posts       store.Table[models.Post]
	Categories  store.Table[models.Category]
	Comments    store.Table[models.Comment]
	Credentials store.Table[models.Credential]
}

// NewTables returns sqlite-backed tables sharing one in-memory database.
func NewTables(t testing.TB) *Tables {
	t.Helper()
	db := NewSQLiteDB(t)
	ctx := context.Background()

	users := sqlstore.NewTable[models.User](db, "users", models.UserKey)
	posts := sqlstore.NewTable[models.Post](db, "posts", models.PostKey)
	categories := sqlstore.NewTable[models.Category](db, "categories", models.CategoryKey)
	comments := sqlstore.NewTable[models.Comment](db, "comments", models.CommentKey)
	credentials := sqlstore.NewTable[models.Credential](db, "credentials", models.CredentialKey)

	require.NoError(t, users.Migrate(ctx))
	require.NoError(t, posts.Migrate(ctx))
	require.NoError(t, categories.Migrate(ctx))
	require.NoError(t, comments.Migrate(ctx))
	require.NoError(t, credentials.Migrate(ctx))

	return &Tables{
		Users:       users,
		Posts:       posts,
		Categories:  categories,
		Comments:    comments,
		Credentials: credentials,
	}
}
