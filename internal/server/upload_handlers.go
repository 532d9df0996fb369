package server

import (
	"opcdiary/internal/models"

	"github.com/gofiber/fiber/v2"
)

// UploadImageResponse carries the stored reference of an uploaded image.
type UploadImageResponse struct {
	Blob string `json:"blob"`
}

// UploadImage handles POST /api/uploads/image. The image is downsized and
// returned as a WebP data URL to embed in entries, posts or profiles.
func (s *Server) UploadImage(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("No file uploaded"))
	}

	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	blob, err := s.encoder.Encode(c.UserContext(), src, file.Header.Get("Content-Type"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(UploadImageResponse{Blob: blob})
}
