package media

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Delivery transformations applied through the URL.
const (
	thumbTransform = "/upload/c_scale,w_250/f_auto"
	imageTransform = "/upload/c_scale,w_1200/q_auto"
)

type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// Cloudinary stores images in a Cloudinary account.
type Cloudinary struct {
	api uploadAPI
}

// NewCloudinary configures an uploader from a cloudinary:// URL.
// An empty URL yields Unavailable().
func NewCloudinary(url string) (Uploader, error) {
	if url == "" {
		return Unavailable(), nil
	}
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, fmt.Errorf("cloudinary configuration: %w", err)
	}
	return &Cloudinary{api: &cld.Upload}, nil
}

// ThumbURL rewrites a delivery URL to the 250px thumbnail rendition.
func ThumbURL(secureURL string) string {
	return strings.Replace(secureURL, "/upload", thumbTransform, 1)
}

// ImageURL rewrites a delivery URL to the 1200px rendition.
func ImageURL(secureURL string) string {
	return strings.Replace(secureURL, "/upload", imageTransform, 1)
}

func (c *Cloudinary) Upload(ctx context.Context, folder string, file io.Reader, _ string) (*Image, error) {
	var res *uploader.UploadResult
	err := observe(ctx, "cloudinary", "upload", func(ctx context.Context) error {
		var err error
		res, err = c.api.Upload(ctx, file, uploader.UploadParams{Folder: folder})
		if err != nil {
			return err
		}
		if res.Error.Message != "" {
			return fmt.Errorf("cloudinary: %s", res.Error.Message)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	return &Image{
		ID:       res.PublicID,
		ThumbURL: ThumbURL(res.SecureURL),
		ImageURL: ImageURL(res.SecureURL),
	}, nil
}

func (c *Cloudinary) Destroy(ctx context.Context, id string) error {
	err := observe(ctx, "cloudinary", "destroy", func(ctx context.Context) error {
		res, err := c.api.Destroy(ctx, uploader.DestroyParams{PublicID: id})
		if err != nil {
			return err
		}
		if res.Error.Message != "" {
			return fmt.Errorf("cloudinary: %s", res.Error.Message)
		}
		// "not found" means there is nothing left to remove
		if res.Result != "ok" && res.Result != "not found" {
			return fmt.Errorf("cloudinary: destroy result %q", res.Result)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("destroy image %s: %w", id, err)
	}
	return nil
}
