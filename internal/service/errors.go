// Package service holds the cookbook business operations. Every error it returns is a *models.AppError.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"cookbook/internal/media"
	"cookbook/internal/middleware"
	"cookbook/internal/models"
	"cookbook/internal/observability"
	"cookbook/internal/store"
)

// ImageUpload is an image file received with a request.
type ImageUpload struct {
	File     io.Reader
	Filename string
}

// storeError maps a store failure on resource id. A failed ownership condition becomes forbidden.
func storeError(err error, resource, id, action string) *models.AppError {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return models.NewNotFoundError(resource, id)
	case errors.Is(err, store.ErrConditionFailed):
		return models.NewForbiddenError("You are not allowed to " + action + " this " + strings.ToLower(resource))
	default:
		return models.NewUpstreamError("Could not "+action+" "+strings.ToLower(resource), err)
	}
}

// upload checks that img is an image and stores it in folder.
func upload(ctx context.Context, uploader media.Uploader, folder string, img *ImageUpload) (*media.Image, *models.AppError) {
	body, _, err := media.Sniff(img.File)
	if errors.Is(err, media.ErrNotImage) {
		return nil, models.NewFieldValidationError([]models.FieldError{{Field: "image", Message: "image must be an image file"}})
	}
	if err != nil {
		return nil, models.NewValidationError("Could not read image")
	}

	stored, err := uploader.Upload(ctx, folder, body, img.Filename)
	switch {
	case err == nil:
		return stored, nil
	case errors.Is(err, media.ErrUnavailable):
		return nil, models.NewUnavailableError("Image service unavailable", err)
	case errors.Is(err, media.ErrNotImage):
		return nil, models.NewFieldValidationError([]models.FieldError{{Field: "image", Message: "image must be an image file"}})
	default:
		return nil, models.NewUpstreamError("Could not upload image", err)
	}
}

// discardImage removes an image no record references any more. Failures are counted and logged only.
func discardImage(ctx context.Context, uploader media.Uploader, imageID, reason string) {
	if imageID == "" {
		return
	}
	// the response may already be on its way; finish the cleanup regardless
	ctx = context.WithoutCancel(ctx)
	if err := uploader.Destroy(ctx, imageID); err != nil {
		observability.MediaCleanupFailures.WithLabelValues(reason).Inc()
		middleware.Logger.WarnContext(ctx, "image cleanup failed",
			slog.String("image_id", imageID),
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
	}
}
