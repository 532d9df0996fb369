// Package media turns uploaded image files into inline blob references the
// store can hold as plain strings.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"mime"
	"net/http"
	"strings"

	"opcdiary/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMaxUploadSizeMB = 5
	DefaultMaxDimension    = 1024
	WebPQuality            = 70

	blobPrefix = "data:image/webp;base64,"
)

// Options configures an Encoder. Zero values fall back to the defaults.
type Options struct {
	MaxUploadSizeMB int
	MaxDimension    int
	Quality         int
}

// Encoder validates, downsizes and re-encodes images as WebP data URLs.
type Encoder struct {
	maxUploadBytes int64
	maxDimension   int
	quality        int
}

// NewEncoder returns an Encoder for opts.
func NewEncoder(opts Options) *Encoder {
	if opts.MaxUploadSizeMB <= 0 {
		opts.MaxUploadSizeMB = DefaultMaxUploadSizeMB
	}
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = DefaultMaxDimension
	}
	if opts.Quality <= 0 {
		opts.Quality = WebPQuality
	}
	return &Encoder{
		maxUploadBytes: int64(opts.MaxUploadSizeMB) * 1024 * 1024,
		maxDimension:   opts.MaxDimension,
		quality:        opts.Quality,
	}
}

// Encode reads one image from r and returns a "data:image/webp;base64,..."
// reference. contentType is the client's claim and may be empty; when it
// names an image type it must agree with the sniffed one.
func (e *Encoder) Encode(ctx context.Context, r io.Reader, contentType string) (string, error) {
	content, err := io.ReadAll(io.LimitReader(r, e.maxUploadBytes+1))
	if err != nil {
		return "", models.NewInternalError(err)
	}
	if len(content) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if int64(len(content)) > e.maxUploadBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", e.maxUploadBytes/(1024*1024)))
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	detected := normalizeContentType(http.DetectContentType(content))
	if !isAllowedImageMIME(detected) {
		return "", models.NewValidationError("Invalid image type")
	}

	decoded, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}
	if provided := normalizeContentType(contentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, decodedFormatToMime(format)) {
		return "", models.NewValidationError("Image content type mismatch")
	}

	resized := resizeToFit(decoded, e.maxDimension, e.maxDimension)
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, resized, &webp.Options{Quality: float32(e.quality)}); err != nil {
		return "", models.NewInternalError(err)
	}
	return blobPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// MaxUploadBytes is the largest accepted upload.
func (e *Encoder) MaxUploadBytes() int64 {
	return e.maxUploadBytes
}

// IsBlob reports whether s looks like a reference produced by Encode.
func IsBlob(s string) bool {
	return strings.HasPrefix(s, blobPrefix)
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 || (w <= maxWidth && h <= maxHeight) {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func isAllowedImageMIME(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	if provided == detected {
		return true
	}
	return provided == "image/jpg" && detected == "image/jpeg"
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}
