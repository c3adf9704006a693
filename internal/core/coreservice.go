package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"

	"github.com/voltnexis/gallery/internal/backend/assetstore"
	"github.com/voltnexis/gallery/internal/backend/database"
	"github.com/voltnexis/gallery/internal/backend/imageprocessing"
	"github.com/voltnexis/gallery/internal/backend/viewstate"
)

const fallbackRestoreFormat = "png"

type CoreService struct {
	config          *ServiceConfig
	databaseService database.DatabaseService
	assetStore      assetstore.Store
	viewState       viewstate.Store
	converter       *imageprocessing.Converter
	uploader        *Uploader
}

// Download is either a redirect to the stored original or a restored file
type Download struct {
	RedirectURL string
	FileName    string
	Blob        *imageprocessing.Blob
}

func NewCoreService(ctx context.Context, config *ServiceConfig) (*CoreService, error) {
	databaseService, err := getDatabaseService(ctx, config)
	if err != nil {
		return nil, err
	}

	store, err := assetstore.NewStore(ctx, config.AssetStore)
	if err != nil {
		_ = databaseService.Close()
		return nil, fmt.Errorf("failed to initialize asset store: %w", err)
	}
	slog.Info("asset store initialized successfully", "type", config.AssetStore.Type)

	views, err := viewstate.NewStore(ctx, config.ViewState)
	if err != nil {
		_ = databaseService.Close()
		return nil, fmt.Errorf("failed to initialize view state store: %w", err)
	}
	slog.Info("view state store initialized successfully", "type", config.ViewState.Type)

	return NewCoreServiceWith(config, databaseService, store, views), nil
}

// NewCoreServiceWith wires already constructed backends
func NewCoreServiceWith(config *ServiceConfig, databaseService database.DatabaseService, store assetstore.Store, views viewstate.Store) *CoreService {
	converter := imageprocessing.NewConverter(
		imageprocessing.WithSVGFallbackSize(config.Upload.SVGFallbackWidth, config.Upload.SVGFallbackHeight),
	)
	return &CoreService{
		config:          config,
		databaseService: databaseService,
		assetStore:      store,
		viewState:       views,
		converter:       converter,
		uploader:        NewUploader(converter, store, databaseService, config.Upload),
	}
}

func getDatabaseService(ctx context.Context, config *ServiceConfig) (database.DatabaseService, error) {
	databaseService, err := database.NewDatabase(ctx, config.Database.Type, config.Database.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)
	return databaseService, nil
}

func (service *CoreService) UploadImage(ctx context.Context, request UploadRequest, progress ProgressFunc) (*database.Image, error) {
	return service.uploader.Upload(ctx, request, progress)
}

func (service *CoreService) ListImages(ctx context.Context, page, pageSize int) ([]*database.ImageWithOwner, error) {
	if pageSize <= 0 {
		pageSize = service.config.Gallery.PageSize
	}
	images, err := service.databaseService.ListImages(ctx, page, pageSize)
	if err != nil {
		return nil, &BackendError{Op: "list images", Err: err}
	}
	return images, nil
}

// LoadGalleryPage appends the next page to a gallery session. Concurrent loads for the
// same session fail with viewstate.ErrLoadInProgress.
func (service *CoreService) LoadGalleryPage(ctx context.Context, sessionID string, reset bool) (*GalleryPage, error) {
	unlock, err := service.viewState.TryLock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("LoadGalleryPage: failed to release load guard", "session_id", sessionID, "error", err)
		}
	}()

	if reset {
		if err := service.viewState.Delete(ctx, sessionID); err != nil {
			return nil, &BackendError{Op: "reset gallery state", Err: err}
		}
	}
	state, err := service.viewState.Get(ctx, sessionID)
	if err != nil {
		return nil, &BackendError{Op: "load gallery state", Err: err}
	}

	page := &GalleryPage{SessionID: sessionID, Page: state.NextPage, Cards: []ImageCard{}, Exhausted: state.Exhausted}
	if state.Exhausted {
		return page, nil
	}

	pageSize := service.config.Gallery.PageSize
	images, err := service.ListImages(ctx, state.NextPage, pageSize)
	if err != nil {
		return nil, err
	}

	state.Advance(len(images), pageSize)
	if err := service.viewState.Put(ctx, state); err != nil {
		return nil, &BackendError{Op: "save gallery state", Err: err}
	}

	page.Cards = NewImageCards(images)
	page.Exhausted = state.Exhausted
	return page, nil
}

func (service *CoreService) GetImage(ctx context.Context, id string) (*database.ImageWithUser, error) {
	image, err := service.databaseService.GetImageByID(ctx, id)
	if err != nil {
		return nil, wrapReadError("get image", err)
	}
	return image, nil
}

// GetImageDetail builds the detail view. Related images degrade to none when they cannot be loaded.
func (service *CoreService) GetImageDetail(ctx context.Context, id string) (*DetailView, error) {
	image, err := service.GetImage(ctx, id)
	if err != nil {
		return nil, err
	}

	ownerImages, err := service.databaseService.ListUserImages(ctx, image.UserID)
	if err != nil {
		slog.Warn("GetImageDetail: failed to load related images", "image_id", id, "user_id", image.UserID, "error", err)
		ownerImages = nil
	}

	view := NewDetailView(image, ownerImages)
	return &view, nil
}

func (service *CoreService) GetUser(ctx context.Context, id string) (*database.User, error) {
	user, err := service.databaseService.GetUserByID(ctx, id)
	if err != nil {
		return nil, wrapReadError("get user", err)
	}
	return user, nil
}

func (service *CoreService) ListUserImages(ctx context.Context, userID string) ([]*database.Image, error) {
	images, err := service.databaseService.ListUserImages(ctx, userID)
	if err != nil {
		return nil, &BackendError{Op: "list user images", Err: err}
	}
	return images, nil
}

func (service *CoreService) GetProfile(ctx context.Context, userID string) (*ProfileView, error) {
	user, err := service.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	images, err := service.ListUserImages(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := NewProfileView(user, images)
	return &view, nil
}

// DownloadImage redirects to the stored original when there is one. Otherwise the
// original format is restored from the converted asset.
func (service *CoreService) DownloadImage(ctx context.Context, id string) (*Download, error) {
	image, err := service.GetImage(ctx, id)
	if err != nil {
		return nil, err
	}

	format := imageprocessing.NormalizeFormat(image.OriginalFormat)
	if format == "" {
		format = fallbackRestoreFormat
	}
	if image.OriginalURL != "" {
		return &Download{RedirectURL: image.OriginalURL, FileName: downloadFileName(image.Title, format)}, nil
	}

	if !imageprocessing.DefaultRegistry.IsRegistered(format) {
		slog.Info("DownloadImage: no encoder for original format, restoring as png", "image_id", id, "original_format", format)
		format = fallbackRestoreFormat
	}

	converted, err := service.assetStore.Get(ctx, image.FileName)
	if err != nil {
		return nil, wrapReadError("fetch converted asset", err)
	}
	restored, err := service.converter.EncodeAs(ctx, converted, format, imageprocessing.RestoreQuality)
	if err != nil {
		return nil, err
	}
	return &Download{FileName: downloadFileName(image.Title, format), Blob: restored}, nil
}

// ReadAsset serves a stored asset with a content type derived from its key
func (service *CoreService) ReadAsset(ctx context.Context, key string) ([]byte, string, error) {
	data, err := service.assetStore.Get(ctx, key)
	if err != nil {
		return nil, "", wrapReadError("read asset", err)
	}
	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

func (service *CoreService) Slideshow() *Slideshow {
	return NewSlideshow(service.config.Slideshow)
}

func (service *CoreService) Config() *ServiceConfig {
	return service.config
}

func (service *CoreService) Close() error {
	errs := []error{service.viewState.Close(), service.databaseService.Close()}
	if closer, ok := service.assetStore.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	return errors.Join(errs...)
}

// wrapReadError keeps not found errors inspectable and marks the rest as backend failures
func wrapReadError(op string, err error) error {
	if errors.Is(err, database.ErrNotFound) || errors.Is(err, assetstore.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &BackendError{Op: op, Err: err}
}
