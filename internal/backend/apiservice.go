package backend

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/voltnexis/gallery/internal/backend/database"
	"github.com/voltnexis/gallery/internal/common"
	"github.com/voltnexis/gallery/internal/core"
)

type APIService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

type listImagesQuery struct {
	Page int `query:"page" validate:"gte=0,lte=100000"`
	Size int `query:"size" validate:"gte=0,lte=100"`
}

type listImagesResponse struct {
	Page   int              `json:"page"`
	Size   int              `json:"size"`
	Images []core.ImageCard `json:"images"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService) *APIService {
	return &APIService{
		coreService: coreService,
		config:      config,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	// Set probe route
	e.GET("/probe", func(c echo.Context) error {
		return c.String(http.StatusOK, "API Service is running")
	})

	api := e.Group("/api")
	api.POST("/images", s.uploadImageHandler)
	api.GET("/images", s.listImagesHandler)
	api.GET("/images/:id", s.getImageHandler)
	api.GET("/images/:id/download", s.downloadImageHandler)
	api.GET("/users/:id", s.getUserHandler)
	api.GET("/users/:id/images", s.listUserImagesHandler)
}

func (s *APIService) uploadImageHandler(ctx echo.Context) error {
	request, err := common.ReadUploadRequest(ctx)
	if err != nil {
		return s.errorJSON(ctx, "uploadImageHandler", err)
	}

	image, err := s.coreService.UploadImage(ctx.Request().Context(), request, nil)
	if err != nil {
		return s.errorJSON(ctx, "uploadImageHandler", err, "filename", request.FileName)
	}
	return ctx.JSON(http.StatusCreated, image)
}

func (s *APIService) listImagesHandler(ctx echo.Context) error {
	var query listImagesQuery
	if err := ctx.Bind(&query); err != nil {
		return s.errorJSON(ctx, "listImagesHandler", err)
	}
	if err := ctx.Validate(&query); err != nil {
		return s.errorJSON(ctx, "listImagesHandler", err)
	}
	if query.Size == 0 {
		query.Size = s.config.Gallery.PageSize
	}

	images, err := s.coreService.ListImages(ctx.Request().Context(), query.Page, query.Size)
	if err != nil {
		return s.errorJSON(ctx, "listImagesHandler", err, "page", query.Page)
	}
	return ctx.JSON(http.StatusOK, listImagesResponse{
		Page:   query.Page,
		Size:   query.Size,
		Images: core.NewImageCards(images),
	})
}

func (s *APIService) getImageHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	detail, err := s.coreService.GetImageDetail(ctx.Request().Context(), id)
	if err != nil {
		return s.errorJSON(ctx, "getImageHandler", err, "image_id", id)
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (s *APIService) downloadImageHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	download, err := s.coreService.DownloadImage(ctx.Request().Context(), id)
	if err != nil {
		return s.errorJSON(ctx, "downloadImageHandler", err, "image_id", id)
	}

	if download.RedirectURL != "" {
		return ctx.Redirect(http.StatusFound, download.RedirectURL)
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", download.FileName))
	return ctx.Blob(http.StatusOK, download.Blob.MimeType, download.Blob.Data)
}

func (s *APIService) getUserHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	profile, err := s.coreService.GetProfile(ctx.Request().Context(), id)
	if err != nil {
		return s.errorJSON(ctx, "getUserHandler", err, "user_id", id)
	}
	return ctx.JSON(http.StatusOK, profile)
}

func (s *APIService) listUserImagesHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	// unknown users are reported as 404 instead of an empty list
	if _, err := s.coreService.GetUser(ctx.Request().Context(), id); err != nil {
		return s.errorJSON(ctx, "listUserImagesHandler", err, "user_id", id)
	}
	images, err := s.coreService.ListUserImages(ctx.Request().Context(), id)
	if err != nil {
		return s.errorJSON(ctx, "listUserImagesHandler", err, "user_id", id)
	}
	if images == nil {
		images = []*database.Image{}
	}
	return ctx.JSON(http.StatusOK, images)
}

func (s *APIService) errorJSON(ctx echo.Context, handler string, err error, attrs ...any) error {
	status := common.StatusFor(err)
	attrs = append(attrs, "status", status, "error", err)
	if status >= http.StatusInternalServerError {
		slog.Error(handler+": request failed", attrs...)
	} else {
		slog.Warn(handler+": request rejected", attrs...)
	}
	return ctx.JSON(status, errorResponse{Error: common.PublicMessage(err)})
}
