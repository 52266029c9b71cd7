package domain

// DefaultLevel is the pyramid level used when a coordinate file carries
// no patch_level attribute. Level 0 is full resolution.
const DefaultLevel = 0

// DefaultPatchSize is the patch edge length in pixels used when a
// coordinate file carries no patch_size attribute.
const DefaultPatchSize = 256

// DefaultBatchSize is the number of records accumulated before a batch
// is flushed to the destination table. Memory use during ingestion is
// bounded by this window, not by slide size or coordinate count.
const DefaultBatchSize = 1000

// Coordinate is a sample point in level-0 pixel space of a slide.
type Coordinate struct {
	X int64
	Y int64
}

// CoordinateSet holds the ordered sample points for one slide together
// with the sampling parameters that apply to the whole set.
type CoordinateSet struct {
	// Coords are the sample points, in source file order. The position
	// of a coordinate in this slice becomes the patch index.
	Coords []Coordinate

	// Level is the pyramid level patches are extracted at.
	Level int

	// PatchSize is the patch edge length in pixels.
	PatchSize int
}

// Len returns the number of coordinates in the set.
func (s *CoordinateSet) Len() int {
	return len(s.Coords)
}

// At returns the coordinate at index i.
func (s *CoordinateSet) At(i int) Coordinate {
	return s.Coords[i]
}

// PatchRecord is the unit of ingestion: one encoded patch with its
// slide identity and spatial metadata. The pair (SlideID, Index) is the
// natural key; it is unique per slide but not across slides. Records
// are immutable once constructed and are discarded after their batch is
// flushed.
type PatchRecord struct {
	// SlideID identifies the source slide, derived from the coordinate
	// file basename.
	SlideID string

	// Index is the coordinate's position in its CoordinateSet. It is
	// assigned once and never renumbered, so a partially ingested slide
	// keeps its original indices.
	Index int64

	// X and Y are the patch origin in level-0 pixel space.
	X int64
	Y int64

	// Image is the encoded patch. The bytes carry no metadata;
	// everything else travels in the record fields.
	Image []byte
}

// Batch is a bounded, ordered group of records flushed together to the
// destination table.
type Batch []PatchRecord
