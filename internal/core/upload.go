package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator"

	"github.com/voltnexis/gallery/internal/backend/assetstore"
	"github.com/voltnexis/gallery/internal/backend/database"
	"github.com/voltnexis/gallery/internal/backend/imageprocessing"
)

// maxKeyAttempts bounds how often the key timestamp is bumped when an asset key is taken
const maxKeyAttempts = 5

type UploadState int

const (
	StateIdle UploadState = iota
	StateValidating
	StateResolvingUser
	StateConvertingFormat
	StateUploadingConvertedAsset
	StateUploadingOriginalAsset
	StateWritingMetadata
	StateComplete
	StateFailed
)

var uploadStateNames = map[UploadState]string{
	StateIdle:                    "idle",
	StateValidating:              "validating",
	StateResolvingUser:           "resolving_user",
	StateConvertingFormat:        "converting_format",
	StateUploadingConvertedAsset: "uploading_converted_asset",
	StateUploadingOriginalAsset:  "uploading_original_asset",
	StateWritingMetadata:         "writing_metadata",
	StateComplete:                "complete",
	StateFailed:                  "failed",
}

// checkpoints are advisory progress percentages
var checkpoints = map[UploadState]int{
	StateValidating:              0,
	StateResolvingUser:           20,
	StateConvertingFormat:        30,
	StateUploadingConvertedAsset: 50,
	StateUploadingOriginalAsset:  65,
	StateWritingMetadata:         80,
	StateComplete:                100,
}

func (s UploadState) String() string {
	if name, ok := uploadStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UploadState(%d)", int(s))
}

type Progress struct {
	State   UploadState
	Percent int
	Message string
}

type ProgressFunc func(Progress)

// UploadRequest carries one user submitted file. Text fields are trimmed before validation.
type UploadRequest struct {
	FileName    string
	MimeType    string `validate:"startswith=image/"`
	Data        []byte `validate:"min=1"`
	Title       string `validate:"required"`
	Description string
	Username    string `validate:"required"`
	Bio         string
}

type ImageConverter interface {
	EncodeAs(ctx context.Context, source []byte, targetFormat string, quality float64) (*imageprocessing.Blob, error)
}

// ImageRecorder is the part of the repository the upload flow writes to
type ImageRecorder interface {
	EnsureUser(ctx context.Context, username, bio string) (*database.User, error)
	CreateImage(ctx context.Context, image *database.Image) (*database.Image, error)
}

// Uploader runs the upload state machine. It is safe for concurrent use.
type Uploader struct {
	converter    ImageConverter
	store        assetstore.Store
	recorder     ImageRecorder
	validate     *validator.Validate
	maxBytes     int64
	targetFormat string
	quality      float64
	now          func() time.Time
}

func NewUploader(converter ImageConverter, store assetstore.Store, recorder ImageRecorder, config UploadConfig) *Uploader {
	maxBytes := config.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	targetFormat := imageprocessing.NormalizeFormat(config.TargetFormat)
	if targetFormat == "" {
		targetFormat = defaultTargetFormat
	}
	return &Uploader{
		converter:    converter,
		store:        store,
		recorder:     recorder,
		validate:     validator.New(),
		maxBytes:     maxBytes,
		targetFormat: targetFormat,
		quality:      config.Quality,
		now:          time.Now,
	}
}

// uploadRun tracks one Upload call
type uploadRun struct {
	state    UploadState
	progress ProgressFunc
	uploaded []string
}

func (r *uploadRun) enter(state UploadState, message string) {
	r.state = state
	if r.progress != nil {
		r.progress(Progress{State: state, Percent: checkpoints[state], Message: message})
	}
}

func (r *uploadRun) fail(err error) error {
	failedIn := r.state
	r.state = StateFailed
	if r.progress != nil {
		r.progress(Progress{State: StateFailed, Percent: 0, Message: err.Error()})
	}
	slog.Warn("Upload: failed", "state", failedIn.String(), "error", err)
	return err
}

// Upload validates the request, resolves its user, converts the image, stores both
// assets and writes one image record. Assets already stored are deleted again when a
// later step fails.
func (u *Uploader) Upload(ctx context.Context, request UploadRequest, progress ProgressFunc) (*database.Image, error) {
	run := &uploadRun{state: StateIdle, progress: progress}

	run.enter(StateValidating, "Validating upload")
	request, err := u.validateRequest(request)
	if err != nil {
		return nil, run.fail(err)
	}

	run.enter(StateResolvingUser, "Resolving user")
	user, err := u.recorder.EnsureUser(ctx, request.Username, request.Bio)
	if err != nil {
		return nil, run.fail(&BackendError{Op: "resolve user", Err: err})
	}

	run.enter(StateConvertingFormat, "Converting to "+strings.ToUpper(u.targetFormat))
	converted, err := u.converter.EncodeAs(ctx, request.Data, u.targetFormat, u.quality)
	if err != nil {
		return nil, run.fail(err)
	}

	now := u.now()
	var convertedKey, originalKey string
	for attempt := 1; ; attempt++ {
		convertedKey = convertedAssetKey(now, request.FileName, u.targetFormat)
		originalKey = originalAssetKey(now, request.FileName)
		err = u.storeAssets(ctx, run, request, converted, convertedKey, originalKey)
		if err == nil {
			break
		}
		if !errors.Is(err, assetstore.ErrExists) || attempt == maxKeyAttempts {
			return nil, run.fail(err)
		}
		slog.Info("Upload: asset key taken, retrying", "key", convertedKey, "attempt", attempt)
		now = now.Add(time.Millisecond)
	}

	run.enter(StateWritingMetadata, "Saving image details")
	record, err := u.recorder.CreateImage(ctx, &database.Image{
		Title:            request.Title,
		Description:      request.Description,
		ImageURL:         u.store.PublicURL(convertedKey),
		OriginalURL:      u.store.PublicURL(originalKey),
		FileName:         convertedKey,
		OriginalFileName: originalKey,
		UserID:           user.ID,
		FileSize:         converted.Size(),
		OriginalFileSize: int64(len(request.Data)),
		FileType:         converted.MimeType,
		OriginalFormat:   imageprocessing.FormatFromMimeType(request.MimeType),
	})
	if err != nil {
		u.compensate(ctx, run.uploaded)
		return nil, run.fail(&BackendError{Op: "write image record", Err: err})
	}

	run.enter(StateComplete, "Upload complete")
	slog.Info("Upload: complete", "image_id", record.ID, "user_id", user.ID,
		"original_size", record.OriginalFileSize, "converted_size", record.FileSize)
	return record, nil
}

// storeAssets writes the converted then the original asset. When the original cannot be
// written the converted one is removed again, so a failed call leaves nothing behind.
func (u *Uploader) storeAssets(ctx context.Context, run *uploadRun, request UploadRequest, converted *imageprocessing.Blob, convertedKey, originalKey string) error {
	run.enter(StateUploadingConvertedAsset, "Uploading converted image")
	if err := u.store.Put(ctx, convertedKey, converted.Data, converted.MimeType); err != nil {
		return &BackendError{Op: "upload converted asset", Err: err}
	}
	run.uploaded = append(run.uploaded, convertedKey)

	run.enter(StateUploadingOriginalAsset, "Uploading original image")
	if err := u.store.Put(ctx, originalKey, request.Data, request.MimeType); err != nil {
		u.compensate(ctx, run.uploaded)
		run.uploaded = nil
		return &BackendError{Op: "upload original asset", Err: err}
	}
	run.uploaded = append(run.uploaded, originalKey)
	return nil
}

func (u *Uploader) validateRequest(request UploadRequest) (UploadRequest, error) {
	request.Title = strings.TrimSpace(request.Title)
	request.Description = strings.TrimSpace(request.Description)
	request.Username = strings.TrimSpace(request.Username)
	request.Bio = strings.TrimSpace(request.Bio)
	request.MimeType = strings.ToLower(strings.TrimSpace(request.MimeType))

	if int64(len(request.Data)) > u.maxBytes {
		return request, &ValidationError{
			Field:      "file",
			Constraint: fmt.Sprintf("size must not exceed %s", FormatFileSize(u.maxBytes)),
		}
	}

	if err := u.validate.Struct(request); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			return request, toValidationError(fieldErrors[0])
		}
		return request, err
	}
	return request, nil
}

func toValidationError(fieldError validator.FieldError) *ValidationError {
	switch fieldError.Field() {
	case "Data":
		return &ValidationError{Field: "file", Constraint: "must not be empty"}
	case "MimeType":
		return &ValidationError{Field: "file", Constraint: "must be an image"}
	case "Title":
		return &ValidationError{Field: "title", Constraint: "is required"}
	case "Username":
		return &ValidationError{Field: "username", Constraint: "is required"}
	default:
		return &ValidationError{Field: strings.ToLower(fieldError.Field()), Constraint: fieldError.Tag()}
	}
}

// compensate removes uploaded assets in reverse order. Failures are only logged.
func (u *Uploader) compensate(ctx context.Context, keys []string) {
	ctx = context.WithoutCancel(ctx)
	for i := len(keys) - 1; i >= 0; i-- {
		if err := u.store.Delete(ctx, keys[i]); err != nil {
			slog.Error("Upload: failed to remove orphaned asset", "key", keys[i], "error", err)
			continue
		}
		slog.Info("Upload: removed orphaned asset", "key", keys[i])
	}
}
