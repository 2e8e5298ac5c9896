package server

import (
	"errors"
	"fmt"
	"mime/multipart"

	"cookbook/internal/middleware"
	"cookbook/internal/models"
	"cookbook/internal/service"
	"cookbook/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// imageField is the multipart field carrying uploaded images.
const imageField = "image"

// respondError writes err with the status its code maps to.
// Wrapped upstream errors are only echoed outside production.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request error",
			"path", c.Path(),
			"error", err.Error(),
		)
	}
	return models.RespondWithError(c, status, err, !s.config.IsProduction())
}

// errorHandler renders errors that escape handlers, such as oversized bodies.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := models.CodeInternal
		switch {
		case fe.Code == fiber.StatusNotFound:
			return s.NotFound(c)
		case fe.Code < fiber.StatusInternalServerError:
			code = models.CodeValidation
		}
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message, Code: code})
	}
	return s.respondError(c, models.NewInternalError(err))
}

// parseBody decodes the request body into req and validates it.
// An empty body leaves req zero-valued. On failure it writes the error response and returns false.
func (s *Server) parseBody(c *fiber.Ctx, req any) (bool, error) {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return false, s.respondError(c, models.NewValidationError("Invalid request body"))
		}
	}
	if appErr := validation.Check(req); appErr != nil {
		return false, s.respondError(c, appErr)
	}
	return true, nil
}

// formImage returns the uploaded image, or nil when the request has none.
// The caller must close the returned file.
func (s *Server) formImage(c *fiber.Ctx) (*service.ImageUpload, multipart.File, error) {
	header, err := c.FormFile(imageField)
	if err != nil {
		// no multipart body or no image part
		return nil, nil, nil
	}

	maxBytes := int64(s.config.ImageMaxUploadSizeMB) * 1024 * 1024
	if header.Size > maxBytes {
		return nil, nil, models.NewFieldValidationError([]models.FieldError{{
			Field:   imageField,
			Message: fmt.Sprintf("image must be at most %d MB", s.config.ImageMaxUploadSizeMB),
		}})
	}

	file, err := header.Open()
	if err != nil {
		return nil, nil, models.NewValidationError("Could not read image")
	}
	return &service.ImageUpload{File: file, Filename: header.Filename}, file, nil
}

func closeFile(f multipart.File) {
	if f != nil {
		_ = f.Close()
	}
}
