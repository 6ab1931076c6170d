package validation

import (
	"fmt"

	"github.com/h2non/filetype"

	apperrors "github.com/anime-shed/snaptune-go/internal/errors"
)

// DefaultMaxUploadBytes bounds the photo size forwarded to the analysis service
const DefaultMaxUploadBytes = 10 * 1024 * 1024

// UploadValidator checks an uploaded photo before any outbound call is made
type UploadValidator struct {
	maxBytes int64
}

// NewUploadValidator creates a validator; maxBytes <= 0 uses DefaultMaxUploadBytes
func NewUploadValidator(maxBytes int64) *UploadValidator {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &UploadValidator{maxBytes: maxBytes}
}

// Validate returns the sniffed MIME type of data, or a validation error when the
// upload is empty, too large, or not a recognised image format.
func (v *UploadValidator) Validate(data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperrors.NewValidationError(apperrors.CodeMissingPhoto, "No photo uploaded", apperrors.ErrMissingPhoto)
	}

	if int64(len(data)) > v.maxBytes {
		return "", apperrors.NewValidationError(apperrors.CodeInvalidRequest,
			fmt.Sprintf("Photo exceeds %d bytes", v.maxBytes), nil)
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown || !filetype.IsImage(data) {
		return "", apperrors.NewValidationError(apperrors.CodeUnsupportedMediaType, "Uploaded file is not a supported image", err)
	}

	return kind.MIME.Value, nil
}
