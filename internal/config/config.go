// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreDynamoDB = "dynamodb"
	StorePostgres = "postgres"
	StoreMongoDB  = "mongodb"
)

// Identity providers.
const (
	IdentityCognito = "cognito"
	IdentityLocal   = "local"
)

// Media backends.
const (
	MediaCloudinary = "cloudinary"
	MediaS3         = "s3"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	RedisURL       string `mapstructure:"REDIS_URL"`

	StoreBackend    string `mapstructure:"STORE_BACKEND"`
	StoreAutoCreate bool   `mapstructure:"STORE_AUTO_CREATE"`
	UserTable       string `mapstructure:"USER_TABLE"`
	PostTable       string `mapstructure:"POST_TABLE"`
	CategoryTable   string `mapstructure:"CATEGORY_TABLE"`
	CommentTable    string `mapstructure:"COMMENT_TABLE"`
	CredentialTable string `mapstructure:"CREDENTIAL_TABLE"`

	AWSRegion          string `mapstructure:"AWS_REGION"`
	AWSEndpointURL     string `mapstructure:"AWS_ENDPOINT_URL"`
	AWSAccessKeyID     string `mapstructure:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `mapstructure:"AWS_SECRET_ACCESS_KEY"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`

	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	IdentityProvider string `mapstructure:"IDENTITY_PROVIDER"`
	UserPoolID       string `mapstructure:"USER_POOL_ID"`
	ClientID         string `mapstructure:"CLIENT_ID"`

	MediaBackend         string `mapstructure:"MEDIA_BACKEND"`
	CloudinaryURL        string `mapstructure:"CLOUDINARY_URL"`
	S3Bucket             string `mapstructure:"S3_BUCKET"`
	MediaPublicBaseURL   string `mapstructure:"MEDIA_PUBLIC_BASE_URL"`
	ImageMaxUploadSizeMB int    `mapstructure:"IMAGE_MAX_UPLOAD_SIZE_MB"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("invalid profile-specific config 'config.%s.yml': %w", env, err)
			}
		} else {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		}
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "3000")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("REDIS_URL", "localhost:6379")

	viper.SetDefault("STORE_BACKEND", StoreDynamoDB)
	viper.SetDefault("STORE_AUTO_CREATE", false)
	viper.SetDefault("USER_TABLE", "cookbook-users")
	viper.SetDefault("POST_TABLE", "cookbook-posts")
	viper.SetDefault("CATEGORY_TABLE", "cookbook-categories")
	viper.SetDefault("COMMENT_TABLE", "cookbook-comments")
	viper.SetDefault("CREDENTIAL_TABLE", "cookbook-credentials")

	viper.SetDefault("AWS_REGION", "us-east-1")
	viper.SetDefault("AWS_ENDPOINT_URL", "")
	viper.SetDefault("AWS_ACCESS_KEY_ID", "")
	viper.SetDefault("AWS_SECRET_ACCESS_KEY", "")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "cookbook")
	viper.SetDefault("DB_SSLMODE", "disable")

	viper.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	viper.SetDefault("MONGO_DATABASE", "cookbook")

	viper.SetDefault("IDENTITY_PROVIDER", IdentityCognito)
	viper.SetDefault("USER_POOL_ID", "")
	viper.SetDefault("CLIENT_ID", "")

	viper.SetDefault("MEDIA_BACKEND", MediaCloudinary)
	viper.SetDefault("CLOUDINARY_URL", "")
	viper.SetDefault("S3_BUCKET", "")
	viper.SetDefault("MEDIA_PUBLIC_BASE_URL", "")
	viper.SetDefault("IMAGE_MAX_UPLOAD_SIZE_MB", 10)

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	c.IdentityProvider = strings.ToLower(strings.TrimSpace(c.IdentityProvider))
	c.MediaBackend = strings.ToLower(strings.TrimSpace(c.MediaBackend))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.ImageMaxUploadSizeMB <= 0 {
		return errors.New("IMAGE_MAX_UPLOAD_SIZE_MB must be positive")
	}

	for name, table := range map[string]string{
		"USER_TABLE":     c.UserTable,
		"POST_TABLE":     c.PostTable,
		"CATEGORY_TABLE": c.CategoryTable,
		"COMMENT_TABLE":  c.CommentTable,
	} {
		if table == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	isProduction := c.IsProduction()

	switch c.StoreBackend {
	case StoreDynamoDB:
		if c.AWSRegion == "" {
			return errors.New("AWS_REGION is required for the dynamodb store")
		}
	case StorePostgres:
		if isProduction && (c.DBPassword == "password" || c.DBPassword == "") {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if isProduction && (c.DBSSLMode == "disable" || c.DBSSLMode == "") {
			log.Println("WARNING: DB_SSLMODE is 'disable' in production. It is highly recommended to use SSL for database connections.")
		}
	case StoreMongoDB:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return errors.New("MONGO_URI and MONGO_DATABASE are required for the mongodb store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.IdentityProvider {
	case IdentityCognito:
		if c.UserPoolID == "" || c.ClientID == "" {
			return errors.New("USER_POOL_ID and CLIENT_ID are required for the cognito identity provider")
		}
		if c.AWSRegion == "" {
			return errors.New("AWS_REGION is required for the cognito identity provider")
		}
	case IdentityLocal:
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET is required")
		}
		if c.CredentialTable == "" {
			return errors.New("CREDENTIAL_TABLE is required for the local identity provider")
		}
		if isProduction {
			if c.JWTSecret == defaultJWTSecret {
				return errors.New("JWT_SECRET must be changed from the default value in production")
			}
			if len(c.JWTSecret) < 32 {
				return errors.New("JWT_SECRET must be at least 32 characters in production")
			}
		} else if len(c.JWTSecret) < 32 {
			log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
		}
	default:
		return fmt.Errorf("unknown IDENTITY_PROVIDER %q", c.IdentityProvider)
	}

	switch c.MediaBackend {
	case MediaCloudinary:
		if isProduction && c.CloudinaryURL == "" {
			return errors.New("CLOUDINARY_URL is required in production")
		}
	case MediaS3:
		if c.S3Bucket == "" {
			return errors.New("S3_BUCKET is required for the s3 media backend")
		}
	default:
		return fmt.Errorf("unknown MEDIA_BACKEND %q", c.MediaBackend)
	}

	if isProduction && c.AllowedOrigins == "*" {
		log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
	}

	return nil
}
