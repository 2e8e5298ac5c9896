// Package media uploads and removes the images attached to posts and profiles.
package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"cookbook/internal/observability"
)

// Upload folders.
const (
	FolderPost    = "poc-cookbook-api/post"
	FolderProfile = "poc-cookbook-api/profile"
)

var (
	// ErrUnavailable is returned when no media backend is configured.
	ErrUnavailable = errors.New("media: service not configured")
	// ErrNotImage is returned by Sniff for content that is not an image.
	ErrNotImage = errors.New("media: file is not an image")
)

// Image is a stored image and the URLs it is served from.
type Image struct {
	ID       string
	ThumbURL string
	ImageURL string
}

// Uploader stores images in an external media service.
type Uploader interface {
	Upload(ctx context.Context, folder string, file io.Reader, filename string) (*Image, error)
	Destroy(ctx context.Context, id string) error
}

const sniffLen = 512

// Sniff detects the content type from the first bytes of r and rejects anything but images.
// The returned reader yields the full content.
func Sniff(r io.Reader) (io.Reader, string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, "", err
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, contentType, ErrNotImage
	}
	return io.MultiReader(bytes.NewReader(head), r), contentType, nil
}

type unavailable struct{}

// Unavailable returns an Uploader that fails every call with ErrUnavailable.
func Unavailable() Uploader { return unavailable{} }

func (unavailable) Upload(context.Context, string, io.Reader, string) (*Image, error) {
	return nil, ErrUnavailable
}

func (unavailable) Destroy(context.Context, string) error { return ErrUnavailable }

func observe(ctx context.Context, backend, operation string, fn func(context.Context) error) error {
	ctx, span := observability.StartUpstreamSpan(ctx, backend, operation)
	err := fn(ctx)
	observability.EndSpan(span, err)
	observability.MediaOperations.WithLabelValues(backend, operation, observability.Result(err)).Inc()
	return err
}
