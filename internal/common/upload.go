package common

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/voltnexis/gallery/internal/core"
)

const genericContentType = "application/octet-stream"

// ReadUploadRequest reads the multipart fields image, title, description, username and bio
func ReadUploadRequest(ctx echo.Context) (core.UploadRequest, error) {
	file, err := ctx.FormFile("image")
	if err != nil {
		return core.UploadRequest{}, &core.ValidationError{Field: "file", Constraint: "is required"}
	}

	src, err := file.Open()
	if err != nil {
		return core.UploadRequest{}, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("ReadUploadRequest: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	data, err := io.ReadAll(src)
	if err != nil {
		return core.UploadRequest{}, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	return core.UploadRequest{
		FileName:    file.Filename,
		MimeType:    uploadMimeType(file.Header.Get(echo.HeaderContentType), file.Filename),
		Data:        data,
		Title:       ctx.FormValue("title"),
		Description: ctx.FormValue("description"),
		Username:    ctx.FormValue("username"),
		Bio:         ctx.FormValue("bio"),
	}, nil
}

// uploadMimeType trusts the part header unless it is missing or generic
func uploadMimeType(header, fileName string) string {
	mediaType, _, err := mime.ParseMediaType(header)
	if err == nil && mediaType != "" && mediaType != genericContentType {
		return mediaType
	}
	if byExtension := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName))); byExtension != "" {
		mediaType, _, _ = mime.ParseMediaType(byExtension)
		return mediaType
	}
	return header
}
