package chat

import (
	"errors"
	"net/http"

	"github.com/ziadkadry99/gemchat/internal/audit"
	"github.com/ziadkadry99/gemchat/internal/uploads"
)

// Messages returned in {"error": ...} bodies.
const (
	msgNoPrompt   = "No message provided!"
	msgNoFile     = "No file uploaded"
	msgTooLarge   = "File too large"
	msgNotAllowed = "Only image files are allowed"
	msgNoStore    = "Uploads are disabled"
	uploadFailure = "Failed to process image with AI: "
)

// httpStatus maps a Service error to the status and message the HTTP API
// reports for it.
func httpStatus(kind audit.Kind, err error) (int, string) {
	var (
		merr   *ModelError
		maxErr *http.MaxBytesError
	)
	switch {
	case errors.Is(err, ErrNoPrompt):
		return http.StatusBadRequest, msgNoPrompt
	case errors.Is(err, ErrNoFile):
		return http.StatusBadRequest, msgNoFile
	case errors.Is(err, uploads.ErrTooLarge), errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, msgTooLarge
	case errors.Is(err, uploads.ErrNotAllowed):
		return http.StatusUnsupportedMediaType, msgNotAllowed
	case errors.Is(err, ErrNoStore):
		return http.StatusServiceUnavailable, msgNoStore
	}

	if kind == audit.KindUpload {
		if errors.As(err, &merr) {
			return http.StatusInternalServerError, uploadFailure + merr.Err.Error()
		}
		return http.StatusInternalServerError, uploadFailure + err.Error()
	}
	return http.StatusInternalServerError, err.Error()
}
