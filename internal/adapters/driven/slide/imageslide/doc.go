// Package imageslide serves level-aware region reads from slide image
// files. Any format registered with image.Decode works; TIFF, PNG and
// JPEG decoders are registered here. The full level-0 plane is decoded
// on open and regions are cropped and scaled from it, so the package
// stands in for a tiled pyramidal reader without implementing tile
// decoding itself.
package imageslide
