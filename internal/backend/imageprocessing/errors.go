package imageprocessing

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported target format")
	ErrEmptyOutput       = errors.New("encoder produced no output")
	ErrEmptyImage        = errors.New("image has no pixels")
)

// DecodeError reports source bytes that could not be decoded into pixels
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError reports a surface that could not be serialized to the target format
type EncodeError struct {
	Format string
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode image to %s: %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}
