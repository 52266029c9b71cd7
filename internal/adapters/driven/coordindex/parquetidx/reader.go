package parquetidx

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/array"
	"github.com/apache/arrow/go/v10/arrow/memory"
	"github.com/apache/arrow/go/v10/parquet/file"
	"github.com/apache/arrow/go/v10/parquet/pqarrow"

	"github.com/aperturebio/slidelake-cli/internal/core/domain"
	"github.com/aperturebio/slidelake-cli/internal/core/ports/driven"
)

// Metadata keys for the sampling parameters. Absence of either falls
// back to domain.DefaultLevel / domain.DefaultPatchSize.
const (
	MetaPatchLevel = "patch_level"
	MetaPatchSize  = "patch_size"
)

// Ensure Reader implements the interface.
var _ driven.CoordinateSource = (*Reader)(nil)

// Reader is a Parquet-backed coordinate source.
type Reader struct {
	mem memory.Allocator
}

// NewReader creates a coordinate index reader.
func NewReader() *Reader {
	return &Reader{mem: memory.NewGoAllocator()}
}

// Open reads the coordinate set stored at path.
func (r *Reader) Open(ctx context.Context, path string) (*domain.CoordinateSet, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return nil, fmt.Errorf("opening coordinate file: %w", err)
	}
	defer f.Close()

	pf, err := file.NewParquetReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: not a parquet file: %v", domain.ErrMalformedCoordinateFile, err)
	}

	rdr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, r.mem)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedCoordinateFile, err)
	}

	// The file-level schema carries the sampling attributes; the table
	// returned by ReadTable does not keep schema metadata.
	fileSchema, err := rdr.Schema()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedCoordinateFile, err)
	}

	tbl, err := rdr.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedCoordinateFile, err)
	}
	defer tbl.Release()

	schema := tbl.Schema()
	xi := schema.FieldIndices("x")
	yi := schema.FieldIndices("y")
	if len(xi) == 0 || len(yi) == 0 {
		return nil, fmt.Errorf("%w: coordinate columns x,y not present", domain.ErrMalformedCoordinateFile)
	}

	xs, err := int64Column(tbl, xi[0])
	if err != nil {
		return nil, err
	}
	ys, err := int64Column(tbl, yi[0])
	if err != nil {
		return nil, err
	}

	set := &domain.CoordinateSet{
		Coords:    make([]domain.Coordinate, len(xs)),
		Level:     domain.DefaultLevel,
		PatchSize: domain.DefaultPatchSize,
	}
	for i := range xs {
		set.Coords[i] = domain.Coordinate{X: xs[i], Y: ys[i]}
	}

	md := fileSchema.Metadata()
	if set.Level, err = metaInt(md, MetaPatchLevel, domain.DefaultLevel); err != nil {
		return nil, err
	}
	if set.PatchSize, err = metaInt(md, MetaPatchSize, domain.DefaultPatchSize); err != nil {
		return nil, err
	}

	return set, nil
}

// int64Column collects the values of one int64 column across chunks.
func int64Column(tbl arrow.Table, idx int) ([]int64, error) {
	col := tbl.Column(idx)
	out := make([]int64, 0, tbl.NumRows())
	for _, chunk := range col.Data().Chunks() {
		ints, ok := chunk.(*array.Int64)
		if !ok {
			return nil, fmt.Errorf("%w: column %s is %s, want int64",
				domain.ErrMalformedCoordinateFile, col.Name(), chunk.DataType())
		}
		out = append(out, ints.Int64Values()...)
	}
	return out, nil
}

// metaInt reads one integer metadata value, with a default when the
// key is absent.
func metaInt(md arrow.Metadata, key string, def int) (int, error) {
	i := md.FindKey(key)
	if i < 0 {
		return def, nil
	}
	v, err := strconv.Atoi(md.Values()[i])
	if err != nil {
		return 0, fmt.Errorf("%w: attribute %s=%q is not an integer",
			domain.ErrMalformedCoordinateFile, key, md.Values()[i])
	}
	return v, nil
}
