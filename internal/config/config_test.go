package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:                 "3000",
		Env:                  "development",
		JWTSecret:            "secure-secret-at-least-32-chars-long",
		StoreBackend:         StoreDynamoDB,
		UserTable:            "users",
		PostTable:            "posts",
		CategoryTable:        "categories",
		CommentTable:         "comments",
		CredentialTable:      "credentials",
		AWSRegion:            "eu-west-1",
		IdentityProvider:     IdentityCognito,
		UserPoolID:           "eu-west-1_abc",
		ClientID:             "client",
		MediaBackend:         MediaCloudinary,
		ImageMaxUploadSizeMB: 10,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"Valid cognito dynamodb", func(*Config) {}, false},
		{"Missing port", func(c *Config) { c.Port = "" }, true},
		{"Missing table", func(c *Config) { c.PostTable = "" }, true},
		{"Unknown store", func(c *Config) { c.StoreBackend = "cassandra" }, true},
		{"Cognito without pool", func(c *Config) { c.UserPoolID = "" }, true},
		{"Cognito without client", func(c *Config) { c.ClientID = "" }, true},
		{"Unknown identity", func(c *Config) { c.IdentityProvider = "ldap" }, true},
		{"Local identity in development", func(c *Config) { c.IdentityProvider = IdentityLocal }, false},
		{"Local identity production default secret", func(c *Config) {
			c.Env = "production"
			c.IdentityProvider = IdentityLocal
			c.JWTSecret = defaultJWTSecret
			c.CloudinaryURL = "cloudinary://k:s@cloud"
		}, true},
		{"Local identity production short secret", func(c *Config) {
			c.Env = "prod"
			c.IdentityProvider = IdentityLocal
			c.JWTSecret = "short"
			c.CloudinaryURL = "cloudinary://k:s@cloud"
		}, true},
		{"Cloudinary required in production", func(c *Config) { c.Env = "production" }, true},
		{"S3 without bucket", func(c *Config) { c.MediaBackend = MediaS3 }, true},
		{"S3 with bucket", func(c *Config) { c.MediaBackend = MediaS3; c.S3Bucket = "images" }, false},
		{"Postgres production default password", func(c *Config) {
			c.Env = "production"
			c.StoreBackend = StorePostgres
			c.DBPassword = "password"
			c.CloudinaryURL = "cloudinary://k:s@cloud"
		}, true},
		{"Mongo without uri", func(c *Config) { c.StoreBackend = StoreMongoDB; c.MongoDatabase = "cookbook" }, true},
		{"Non-positive upload size", func(c *Config) { c.ImageMaxUploadSizeMB = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Cleanup(viper.Reset)

	t.Setenv("APP_ENV", "test")
	t.Setenv("STORE_BACKEND", "  Postgres ")
	t.Setenv("IDENTITY_PROVIDER", "local")
	t.Setenv("POST_TABLE", "recipes")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, StorePostgres, c.StoreBackend)
	assert.Equal(t, IdentityLocal, c.IdentityProvider)
	assert.Equal(t, "recipes", c.PostTable)
	assert.Equal(t, "cookbook-users", c.UserTable)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, 10, c.ImageMaxUploadSizeMB)
	assert.False(t, c.IsProduction())
}

func TestLoadConfig_CognitoRequiresPool(t *testing.T) {
	t.Cleanup(viper.Reset)

	t.Setenv("APP_ENV", "test")
	t.Setenv("IDENTITY_PROVIDER", "cognito")
	t.Setenv("USER_POOL_ID", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}
