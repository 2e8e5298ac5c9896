// Package cloud builds the AWS SDK clients shared by the store, identity and media backends.
package cloud

import (
	"context"
	"fmt"

	"cookbook/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// LoadAWSConfig resolves region and credentials. Static keys are used when both are set,
// otherwise the default provider chain applies.
func LoadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

// endpoint returns the override endpoint (DynamoDB Local, LocalStack, MinIO) or nil.
func endpoint(cfg *config.Config) *string {
	if cfg.AWSEndpointURL == "" {
		return nil
	}
	return aws.String(cfg.AWSEndpointURL)
}

// DynamoDB returns a DynamoDB client honoring AWS_ENDPOINT_URL.
func DynamoDB(awsCfg aws.Config, cfg *config.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = endpoint(cfg)
	})
}

// Cognito returns a Cognito user pool client honoring AWS_ENDPOINT_URL.
func Cognito(awsCfg aws.Config, cfg *config.Config) *cognitoidentityprovider.Client {
	return cognitoidentityprovider.NewFromConfig(awsCfg, func(o *cognitoidentityprovider.Options) {
		o.BaseEndpoint = endpoint(cfg)
	})
}

// S3 returns an S3 client. Path-style addressing is forced when an endpoint override is set.
func S3(awsCfg aws.Config, cfg *config.Config) *s3.Client {
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = endpoint(cfg)
		o.UsePathStyle = cfg.AWSEndpointURL != ""
	})
}
