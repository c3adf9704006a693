package imageprocessing

import (
	"fmt"
	"image"
	"io"
	"sort"
	"sync"
)

// Codec serializes a drawn surface into one raster format
type Codec interface {
	// Format returns the lowercase format token, e.g. "webp"
	Format() string
	MimeType() string
	// Encode writes img to w. quality is in [0,1]; lossless codecs ignore it.
	Encode(w io.Writer, img image.Image, quality float64) error
}

// CodecRegistry manages the codecs available to a converter, keyed by format token
type CodecRegistry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
}

// NewCodecRegistry creates an empty codec registry
func NewCodecRegistry() *CodecRegistry {
	return &CodecRegistry{
		codecs: make(map[string]Codec),
	}
}

// Register adds a codec under its format token
func (r *CodecRegistry) Register(codec Codec) error {
	if codec == nil {
		return fmt.Errorf("codec cannot be nil")
	}
	format := NormalizeFormat(codec.Format())
	if format == "" {
		return fmt.Errorf("codec format cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.codecs[format]; exists {
		return fmt.Errorf("codec %s is already registered", format)
	}
	r.codecs[format] = codec
	return nil
}

// Lookup returns the codec registered for the format token
func (r *CodecRegistry) Lookup(format string) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codec, ok := r.codecs[NormalizeFormat(format)]
	return codec, ok
}

// IsRegistered checks if a codec exists for the format token
func (r *CodecRegistry) IsRegistered(format string) bool {
	_, ok := r.Lookup(format)
	return ok
}

// GetRegisteredFormats returns the registered format tokens in sorted order
func (r *CodecRegistry) GetRegisteredFormats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	formats := make([]string, 0, len(r.codecs))
	for format := range r.codecs {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

// DefaultRegistry holds the built-in codecs, registered in init
var DefaultRegistry = NewCodecRegistry()

func mustRegister(codec Codec) {
	if err := DefaultRegistry.Register(codec); err != nil {
		panic(fmt.Sprintf("failed to register %s codec: %v", codec.Format(), err))
	}
}
