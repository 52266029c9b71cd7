package driven

import "image"

// PatchEncoder serializes decoded regions into the binary image
// encoding stored in the destination table.
type PatchEncoder interface {
	// Encode produces a lossy compressed encoding of img in a single
	// fixed output format, so stored size per patch stays bounded and
	// predictable. The bytes embed no record metadata; slide identity
	// and coordinates travel as separate table fields.
	Encode(img image.Image) ([]byte, error)
}
