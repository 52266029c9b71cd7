package parquetidx

import (
	"fmt"
	"os"
	"strconv"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/array"
	"github.com/apache/arrow/go/v10/arrow/memory"
	"github.com/apache/arrow/go/v10/parquet"
	"github.com/apache/arrow/go/v10/parquet/pqarrow"

	"github.com/aperturebio/slidelake-cli/internal/core/domain"
)

// WriteOption configures an index file write.
type WriteOption func(*writeConfig)

type writeConfig struct {
	level    int
	size     int
	hasLevel bool
	hasSize  bool
}

// WithLevel records the extraction pyramid level in the file metadata.
func WithLevel(level int) WriteOption {
	return func(c *writeConfig) {
		c.level = level
		c.hasLevel = true
	}
}

// WithPatchSize records the patch edge length in the file metadata.
func WithPatchSize(size int) WriteOption {
	return func(c *writeConfig) {
		c.size = size
		c.hasSize = true
	}
}

// Write creates a coordinate index file at path. Sampling metadata is
// only written when the corresponding option is given; readers fall
// back to the documented defaults otherwise.
func Write(path string, coords []domain.Coordinate, opts ...WriteOption) error {
	var cfg writeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var keys, vals []string
	if cfg.hasLevel {
		keys = append(keys, MetaPatchLevel)
		vals = append(vals, strconv.Itoa(cfg.level))
	}
	if cfg.hasSize {
		keys = append(keys, MetaPatchSize)
		vals = append(vals, strconv.Itoa(cfg.size))
	}
	md := arrow.NewMetadata(keys, vals)

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "x", Type: arrow.PrimitiveTypes.Int64},
		{Name: "y", Type: arrow.PrimitiveTypes.Int64},
	}, &md)

	mem := memory.NewGoAllocator()
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	xb := b.Field(0).(*array.Int64Builder)
	yb := b.Field(1).(*array.Int64Builder)
	for _, c := range coords {
		xb.Append(c.X)
		yb.Append(c.Y)
	}

	rec := b.NewRecord()
	defer rec.Release()
	tbl := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer tbl.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating coordinate file: %w", err)
	}

	chunkSize := int64(len(coords))
	if chunkSize == 0 {
		chunkSize = 1
	}
	props := parquet.NewWriterProperties()
	// Storing the arrow schema preserves the metadata attributes across
	// the parquet roundtrip.
	arrProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())
	// WriteTable closes f itself.
	if err := pqarrow.WriteTable(tbl, f, chunkSize, props, arrProps); err != nil {
		return fmt.Errorf("writing coordinate file: %w", err)
	}
	return nil
}
