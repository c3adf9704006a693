package common

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/voltnexis/gallery/internal/backend/assetstore"
	"github.com/voltnexis/gallery/internal/backend/database"
	"github.com/voltnexis/gallery/internal/backend/imageprocessing"
	"github.com/voltnexis/gallery/internal/backend/viewstate"
	"github.com/voltnexis/gallery/internal/core"
)

// StatusFor maps a service error to the HTTP status reported to clients
func StatusFor(err error) int {
	var (
		httpErr       *echo.HTTPError
		validationErr *core.ValidationError
		decodeErr     *imageprocessing.DecodeError
		encodeErr     *imageprocessing.EncodeError
		backendErr    *core.BackendError
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &httpErr):
		return httpErr.Code
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &decodeErr), errors.As(err, &encodeErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, database.ErrNotFound),
		errors.Is(err, assetstore.ErrNotFound),
		errors.Is(err, assetstore.ErrInvalidKey):
		return http.StatusNotFound
	case errors.Is(err, viewstate.ErrLoadInProgress):
		return http.StatusConflict
	case errors.As(err, &backendErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage hides internal details of server side failures
func PublicMessage(err error) string {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		return http.StatusText(status)
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if message, ok := httpErr.Message.(string); ok {
			return message
		}
	}
	return err.Error()
}
