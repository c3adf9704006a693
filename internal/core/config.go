package core

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/voltnexis/gallery/internal/backend/assetstore"
	"github.com/voltnexis/gallery/internal/backend/imageprocessing"
	"github.com/voltnexis/gallery/internal/backend/viewstate"
)

const (
	defaultPort            = 8080
	defaultMaxUploadBytes  = 10 << 20
	defaultGalleryPageSize = 8
	defaultSlideInterval   = 4 * time.Second
	defaultTargetFormat    = "webp"
)

type Database struct {
	Type             string `yaml:"type" validate:"required,oneof=sqlite postgres"`
	ConnectionString string `yaml:"connectionString" validate:"required"`
}

type UploadConfig struct {
	MaxBytes     int64   `yaml:"maxBytes" validate:"gt=0"`
	TargetFormat string  `yaml:"targetFormat" validate:"required"`
	Quality      float64 `yaml:"quality" validate:"gte=0,lte=1"`
	// SVG sources without explicit dimensions are rasterised at this size
	SVGFallbackWidth  int `yaml:"svgFallbackWidth" validate:"gte=0"`
	SVGFallbackHeight int `yaml:"svgFallbackHeight" validate:"gte=0"`
}

type GalleryConfig struct {
	PageSize int `yaml:"pageSize" validate:"gt=0"`
}

type Slide struct {
	Title    string `yaml:"title" validate:"required"`
	Subtitle string `yaml:"subtitle"`
	ImageURL string `yaml:"imageURL"`
}

type SlideshowConfig struct {
	Interval time.Duration `yaml:"interval"`
	Slides   []Slide       `yaml:"slides" validate:"dive"`
}

type ServiceConfig struct {
	Port       int               `yaml:"port" validate:"gt=0,lte=65535"`
	Database   Database          `yaml:"database"`
	AssetStore assetstore.Config `yaml:"assetStore"`
	ViewState  viewstate.Config  `yaml:"viewState"`
	Upload     UploadConfig      `yaml:"upload"`
	Gallery    GalleryConfig     `yaml:"gallery"`
	Slideshow  SlideshowConfig   `yaml:"slideshow"`
}

// LoadConfig loads configuration from the specified YAML file. A .env file next to it
// and GALLERY_* environment variables override the secrets it contains.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	config := defaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := loadDotEnv(filepath.Join(filepath.Dir(configPath), ".env")); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validateUpload(config.Upload); err != nil {
		return nil, fmt.Errorf("invalid upload configuration: %w", err)
	}
	if err := validateSlides(config.Slideshow.Slides); err != nil {
		return nil, fmt.Errorf("invalid slideshow configuration: %w", err)
	}

	return config, nil
}

func defaultConfig() *ServiceConfig {
	return &ServiceConfig{
		Port: defaultPort,
		Database: Database{
			Type:             "sqlite",
			ConnectionString: ":memory:",
		},
		AssetStore: assetstore.Config{
			Type: "filesystem",
			Path: "data/assets",
		},
		ViewState: viewstate.Config{
			Type: "memory",
		},
		Upload: UploadConfig{
			MaxBytes:     defaultMaxUploadBytes,
			TargetFormat: defaultTargetFormat,
			Quality:      imageprocessing.UploadQuality,
		},
		Gallery: GalleryConfig{
			PageSize: defaultGalleryPageSize,
		},
		Slideshow: SlideshowConfig{
			Interval: defaultSlideInterval,
		},
	}
}

// loadDotEnv tolerates a missing file. Existing environment variables win.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		slog.Info("loaded environment file", "path", path)
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load environment file %s: %w", path, err)
}

func applyEnvOverrides(config *ServiceConfig) error {
	overrides := map[string]*string{
		"GALLERY_DATABASE_TYPE":             &config.Database.Type,
		"GALLERY_DATABASE_CONNECTION":       &config.Database.ConnectionString,
		"GALLERY_ASSET_STORE_TYPE":          &config.AssetStore.Type,
		"GALLERY_ASSET_STORE_BUCKET":        &config.AssetStore.Bucket,
		"GALLERY_ASSET_STORE_ENDPOINT":      &config.AssetStore.Endpoint,
		"GALLERY_ASSET_STORE_ACCESS_KEY_ID": &config.AssetStore.AccessKeyID,
		"GALLERY_ASSET_STORE_SECRET_KEY":    &config.AssetStore.SecretAccessKey,
		"GALLERY_VIEW_STATE_TYPE":           &config.ViewState.Type,
		"GALLERY_REDIS_ADDRESS":             &config.ViewState.Address,
		"GALLERY_REDIS_PASSWORD":            &config.ViewState.Password,
	}
	for name, target := range overrides {
		if value, ok := os.LookupEnv(name); ok {
			*target = value
		}
	}

	if value, ok := os.LookupEnv("GALLERY_PORT"); ok {
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GALLERY_PORT %q: %w", value, err)
		}
		config.Port = port
	}
	return nil
}

// validateUpload ensures the configured target format has an encoder
func validateUpload(upload UploadConfig) error {
	if !imageprocessing.DefaultRegistry.IsRegistered(upload.TargetFormat) {
		return fmt.Errorf("no encoder registered for target format %q (available: %v)",
			upload.TargetFormat, imageprocessing.DefaultRegistry.GetRegisteredFormats())
	}
	return nil
}

// validateSlides ensures all slide titles are unique
func validateSlides(slides []Slide) error {
	seenTitles := make(map[string]bool)

	for i, slide := range slides {
		if slide.Title == "" {
			return fmt.Errorf("slide at index %d has empty title", i)
		}
		if seenTitles[slide.Title] {
			return fmt.Errorf("duplicate slide title: %s", slide.Title)
		}
		seenTitles[slide.Title] = true
	}

	return nil
}
