package imageslide

import (
	"fmt"
	"image"
	"os"

	// Register decoders for the slide formats we accept.
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"

	"github.com/aperturebio/slidelake-cli/internal/core/domain"
	"github.com/aperturebio/slidelake-cli/internal/core/ports/driven"
)

// Ensure Opener implements the interface.
var _ driven.SlideOpener = (*Opener)(nil)

// Opener opens slide image files.
type Opener struct{}

// NewOpener creates a slide opener.
func NewOpener() *Opener {
	return &Opener{}
}

// Open decodes the slide at path and returns a region-read handle. The
// full level-0 plane is held in memory until Close, so resident memory
// grows with slide dimensions; suitable for stdlib-decodable slides,
// not multi-gigabyte pyramidal WSI files.
func (*Opener) Open(path string) (driven.Slide, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening slide: %w", err)
	}
	defer f.Close()

	base, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding slide %s: %w", path, err)
	}
	return &slide{base: base, format: format}, nil
}

// slide holds the decoded level-0 plane. Not safe for concurrent use.
type slide struct {
	base   image.Image
	format string
}

// Bounds returns the level-0 pixel bounds.
func (s *slide) Bounds() image.Rectangle {
	if s.base == nil {
		return image.Rectangle{}
	}
	return s.base.Bounds()
}

// ReadRegion extracts the square region with top-left (x, y) in level-0
// pixel space at the given pyramid level. A level-n pixel covers 1<<n
// level-0 pixels, so the source window spans size<<level level-0 pixels
// and is scaled down to size x size. The result is RGBA with alpha
// forced opaque.
func (s *slide) ReadRegion(x, y int64, level, size int) (*image.RGBA, error) {
	if s.base == nil {
		return nil, domain.ErrSlideClosed
	}
	if level < 0 || size <= 0 {
		return nil, fmt.Errorf("%w: level %d, size %d", domain.ErrInvalidInput, level, size)
	}

	span := int64(size) << level
	src := image.Rect(int(x), int(y), int(x+span), int(y+span))
	if !src.In(s.base.Bounds()) {
		return nil, fmt.Errorf("%w: region %v outside slide bounds %v",
			domain.ErrRegionExtraction, src, s.base.Bounds())
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), s.base, src, draw.Src, nil)

	// Normalize to three usable channels: grayscale and alpha sources
	// all land in RGBA with opaque alpha.
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst, nil
}

// Close releases the decoded plane. Reads after Close fail.
func (s *slide) Close() error {
	s.base = nil
	return nil
}
