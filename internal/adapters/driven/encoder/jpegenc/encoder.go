// Package jpegenc encodes decoded patch regions as JPEG, the single
// storage format for the table's image column.
package jpegenc

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/aperturebio/slidelake-cli/internal/core/ports/driven"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 90

// Ensure Encoder implements the interface.
var _ driven.PatchEncoder = (*Encoder)(nil)

// Encoder produces JPEG bytes at a fixed quality.
type Encoder struct {
	quality int
}

// Option configures the encoder.
type Option func(*Encoder)

// WithQuality sets the JPEG quality (1-100).
func WithQuality(quality int) Option {
	return func(e *Encoder) {
		if quality >= 1 && quality <= 100 {
			e.quality = quality
		}
	}
}

// New creates a new encoder with the given options.
func New(opts ...Option) *Encoder {
	e := &Encoder{quality: DefaultQuality}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Quality returns the configured JPEG quality.
func (e *Encoder) Quality() int {
	return e.quality
}

// Encode serializes img as JPEG. Alpha, if any, is discarded by the
// codec; callers hand in regions already normalized to opaque RGBA.
func (e *Encoder) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.quality}); err != nil {
		return nil, fmt.Errorf("encoding patch: %w", err)
	}
	return buf.Bytes(), nil
}
