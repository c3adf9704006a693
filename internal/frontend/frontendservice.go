package frontend

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/voltnexis/gallery/internal/backend/database"
	"github.com/voltnexis/gallery/internal/backend/viewstate"
	"github.com/voltnexis/gallery/internal/common"
	"github.com/voltnexis/gallery/internal/core"
)

const (
	MainPageName = "index.html"
	assetsPrefix = "/assets"
)

type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

type indexPage struct {
	Slideshow *core.Slideshow
	SessionID string
}

type galleryFragment struct {
	Page  *core.GalleryPage
	Error string
}

type imagePage struct {
	Detail *core.DetailView
	Error  string
}

type personPage struct {
	Profile *core.ProfileView
	Error   string
}

type uploadPage struct {
	MaxSize      string
	TargetFormat string
}

type uploadResult struct {
	Image *database.Image
	Steps []core.Progress
	Error string
}

func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
		config:      config,
	}
}

// rootRedirectHandler redirects root path to index.html
func (service *FrontendService) rootRedirectHandler(ctx echo.Context) error {
	return ctx.Redirect(http.StatusMovedPermanently, "/"+MainPageName)
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	e.Renderer = NewTemplate()

	e.GET("/", service.rootRedirectHandler) // Redirect root to index.html
	e.GET("/"+MainPageName, service.indexHandler)
	e.GET("/image.html", service.imageHandler)
	e.GET("/person.html", service.personHandler)
	e.GET("/upload.html", service.uploadPageHandler)

	e.GET("/htmx/gallery", service.htmxGalleryHandler)
	e.POST("/htmx/upload", service.htmxUploadHandler)

	// Only the filesystem store publishes its assets through this server
	if service.config.AssetStore.Type == "filesystem" {
		e.GET(assetsPrefix+"/*", service.assetHandler)
	}
}

func (service *FrontendService) indexHandler(ctx echo.Context) error {
	return ctx.Render(http.StatusOK, MainPageName, indexPage{
		Slideshow: service.coreService.Slideshow(),
		SessionID: uuid.NewString(),
	})
}

func (service *FrontendService) htmxGalleryHandler(ctx echo.Context) error {
	sessionID := ctx.QueryParam("session")
	if _, err := uuid.Parse(sessionID); err != nil {
		sessionID = uuid.NewString()
	}
	reset := ctx.QueryParam("reset") == "true"

	page, err := service.coreService.LoadGalleryPage(ctx.Request().Context(), sessionID, reset)
	if errors.Is(err, viewstate.ErrLoadInProgress) {
		// the request already loading this session renders the page
		slog.Info("htmxGalleryHandler: load already in progress", "session_id", sessionID)
		return ctx.NoContent(http.StatusConflict)
	}
	if err != nil {
		slog.Error("htmxGalleryHandler: failed to load gallery page",
			"status", common.StatusFor(err), "session_id", sessionID, "error", err)
		return ctx.Render(http.StatusOK, "gallery.html", galleryFragment{Error: "Could not load images."})
	}

	// Prevent caching so every scroll fetches the next page
	service.setNoCache(ctx)

	return ctx.Render(http.StatusOK, "gallery.html", galleryFragment{Page: page})
}

func (service *FrontendService) imageHandler(ctx echo.Context) error {
	id := ctx.QueryParam("id")
	if id == "" {
		slog.Warn("imageHandler: missing image id", "status", http.StatusBadRequest)
		return ctx.Render(http.StatusBadRequest, "image.html", imagePage{Error: "No image selected."})
	}

	detail, err := service.coreService.GetImageDetail(ctx.Request().Context(), id)
	if err != nil {
		status, message := placeholder(err, "Image")
		slog.Warn("imageHandler: image not available", "status", common.StatusFor(err), "image_id", id, "error", err)
		return ctx.Render(status, "image.html", imagePage{Error: message})
	}
	return ctx.Render(http.StatusOK, "image.html", imagePage{Detail: detail})
}

func (service *FrontendService) personHandler(ctx echo.Context) error {
	id := ctx.QueryParam("id")
	if id == "" {
		slog.Warn("personHandler: missing user id", "status", http.StatusBadRequest)
		return ctx.Render(http.StatusBadRequest, "person.html", personPage{Error: "No photographer selected."})
	}

	profile, err := service.coreService.GetProfile(ctx.Request().Context(), id)
	if err != nil {
		status, message := placeholder(err, "Photographer")
		slog.Warn("personHandler: profile not available", "status", common.StatusFor(err), "user_id", id, "error", err)
		return ctx.Render(status, "person.html", personPage{Error: message})
	}
	return ctx.Render(http.StatusOK, "person.html", personPage{Profile: profile})
}

func (service *FrontendService) uploadPageHandler(ctx echo.Context) error {
	upload := service.config.Upload
	return ctx.Render(http.StatusOK, "upload.html", uploadPage{
		MaxSize:      core.FormatFileSize(upload.MaxBytes),
		TargetFormat: strings.ToUpper(upload.TargetFormat),
	})
}

func (service *FrontendService) htmxUploadHandler(ctx echo.Context) error {
	request, err := common.ReadUploadRequest(ctx)
	if err != nil {
		return service.renderUploadError(ctx, err, nil)
	}

	var steps []core.Progress
	image, err := service.coreService.UploadImage(ctx.Request().Context(), request, func(p core.Progress) {
		if p.State != core.StateFailed {
			steps = append(steps, p)
		}
	})
	if err != nil {
		return service.renderUploadError(ctx, err, steps, "filename", request.FileName)
	}

	return ctx.Render(http.StatusOK, "upload_result.html", uploadResult{Image: image, Steps: steps})
}

func (service *FrontendService) renderUploadError(ctx echo.Context, err error, steps []core.Progress, attrs ...any) error {
	status := common.StatusFor(err)
	attrs = append(attrs, "status", status, "error", err)
	slog.Error("htmxUploadHandler: failed to upload image", attrs...)
	return ctx.Render(status, "upload_result.html", uploadResult{Steps: steps, Error: common.PublicMessage(err)})
}

func (service *FrontendService) assetHandler(ctx echo.Context) error {
	key := ctx.Param("*")
	data, contentType, err := service.coreService.ReadAsset(ctx.Request().Context(), key)
	if err != nil {
		status := common.StatusFor(err)
		slog.Warn("assetHandler: asset not available", "status", status, "key", key, "error", err)
		return ctx.String(status, http.StatusText(status))
	}
	ctx.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	return ctx.Blob(http.StatusOK, contentType, data)
}

func (service *FrontendService) setNoCache(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	ctx.Response().Header().Set("Pragma", "no-cache")
	ctx.Response().Header().Set("Expires", "0")
}

// placeholder keeps the page rendering when a read fails. Only missing records change the status.
func placeholder(err error, subject string) (int, string) {
	if common.StatusFor(err) == http.StatusNotFound {
		return http.StatusNotFound, subject + " not found."
	}
	return http.StatusOK, "Could not load " + strings.ToLower(subject) + "."
}
