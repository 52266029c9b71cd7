package driven

import "image"

// SlideOpener opens whole-slide image files.
type SlideOpener interface {
	// Open opens the slide at path. The returned handle is not safe for
	// concurrent use and must be closed by the caller on every exit
	// path, success or failure.
	Open(path string) (Slide, error)
}

// Slide is an open handle to a pyramidal image.
type Slide interface {
	// Bounds returns the slide's level-0 pixel bounds.
	Bounds() image.Rectangle

	// ReadRegion decodes the square region whose top-left corner is
	// (x, y) in level-0 pixel space, at the given pyramid level, scaled
	// to size x size pixels. The result is always normalized to RGBA
	// with opaque alpha so downstream encoders see three usable
	// channels regardless of the slide's native color model.
	//
	// Coordinates are not validated against Bounds up front; an
	// out-of-range read surfaces as whatever failure the underlying
	// reader produces. No decoded regions are cached.
	ReadRegion(x, y int64, level, size int) (*image.RGBA, error)

	// Close releases the handle. Reads after Close fail.
	Close() error
}
