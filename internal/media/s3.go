package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3API is the subset of the S3 client used by S3.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3 stores images as objects in a bucket. Both URLs point at the original object.
type S3 struct {
	api     S3API
	bucket  string
	baseURL string
}

// NewS3 returns an S3 uploader. An empty publicBaseURL falls back to the virtual-hosted bucket URL.
func NewS3(api S3API, bucket, region, publicBaseURL string) *S3 {
	if publicBaseURL == "" {
		publicBaseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &S3{api: api, bucket: bucket, baseURL: strings.TrimRight(publicBaseURL, "/")}
}

func (s *S3) Upload(ctx context.Context, folder string, file io.Reader, filename string) (*Image, error) {
	body, contentType, err := Sniff(file)
	if err != nil {
		return nil, err
	}
	// PutObject needs a known length
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	key := path.Join(folder, uuid.NewString()+strings.ToLower(path.Ext(filename)))
	err = observe(ctx, "s3", "upload", func(ctx context.Context) error {
		_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(data),
			ContentLength: aws.Int64(int64(len(data))),
			ContentType:   aws.String(contentType),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	url := s.baseURL + "/" + key
	return &Image{ID: key, ThumbURL: url, ImageURL: url}, nil
}

func (s *S3) Destroy(ctx context.Context, id string) error {
	err := observe(ctx, "s3", "destroy", func(ctx context.Context) error {
		_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(id),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("destroy image %s: %w", id, err)
	}
	return nil
}
