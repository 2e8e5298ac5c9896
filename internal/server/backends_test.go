package server

import (
	"context"
	"testing"

	"cookbook/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dynamoConfig() *config.Config {
	return &config.Config{
		Env:                "test",
		StoreBackend:       config.StoreDynamoDB,
		AWSRegion:          "us-east-1",
		AWSEndpointURL:     "http://localhost:8000",
		AWSAccessKeyID:     "local",
		AWSSecretAccessKey: "local",
		UserTable:          "users",
		PostTable:          "posts",
		CategoryTable:      "categories",
		CommentTable:       "comments",
		CredentialTable:    "credentials",
		IdentityProvider:   config.IdentityLocal,
		JWTSecret:          "test-secret-at-least-32-characters!!",
		// neither is ever reached when only the store is opened
		MediaBackend: "unconfigured",
	}
}

func TestOpenTables_OnlyOpensStore(t *testing.T) {
	tables, err := OpenTables(context.Background(), dynamoConfig())
	require.NoError(t, err)
	assert.NotNil(t, tables.Users)
	assert.NotNil(t, tables.Posts)
	assert.NotNil(t, tables.Categories)
	assert.NotNil(t, tables.Comments)
	assert.NotNil(t, tables.Credentials)
	assert.Nil(t, tables.Close)

	_, err = OpenBackends(context.Background(), dynamoConfig())
	assert.ErrorContains(t, err, `unknown media backend "unconfigured"`)
}

func TestOpenTables_UnknownStore(t *testing.T) {
	cfg := dynamoConfig()
	cfg.StoreBackend = "cassandra"
	_, err := OpenTables(context.Background(), cfg)
	assert.ErrorContains(t, err, `unknown store backend "cassandra"`)
}

func TestStopThen(t *testing.T) {
	var order []string
	closeFn := stopThen(func() { order = append(order, "stop") }, func(context.Context) error {
		order = append(order, "store")
		return nil
	})
	require.NoError(t, closeFn(context.Background()))
	assert.Equal(t, []string{"stop", "store"}, order)

	stopped := false
	require.NoError(t, stopThen(func() { stopped = true }, nil)(context.Background()))
	assert.True(t, stopped)
}
