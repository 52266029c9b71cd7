package parquetidx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/array"
	"github.com/apache/arrow/go/v10/arrow/memory"
	"github.com/apache/arrow/go/v10/parquet"
	"github.com/apache/arrow/go/v10/parquet/pqarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aperturebio/slidelake-cli/internal/core/domain"
)

func TestReader_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tumor_001.idx")
	coords := []domain.Coordinate{{X: 0, Y: 0}, {X: 256, Y: 0}, {X: 0, Y: 256}}

	require.NoError(t, Write(path, coords, WithLevel(1), WithPatchSize(512)))

	set, err := NewReader().Open(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 3, set.Len())
	assert.Equal(t, coords, set.Coords)
	assert.Equal(t, 1, set.Level)
	assert.Equal(t, 512, set.PatchSize)
}

func TestReader_DefaultsWhenMetadataAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "normal_002.idx")
	require.NoError(t, Write(path, []domain.Coordinate{{X: 42, Y: 7}}))

	set, err := NewReader().Open(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultLevel, set.Level)
	assert.Equal(t, domain.DefaultPatchSize, set.PatchSize)
	assert.Equal(t, domain.Coordinate{X: 42, Y: 7}, set.At(0))
}

func TestReader_PreservesSourceOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ordered.idx")
	coords := make([]domain.Coordinate, 100)
	for i := range coords {
		coords[i] = domain.Coordinate{X: int64(i * 256), Y: int64(i)}
	}
	require.NoError(t, Write(path, coords))

	set, err := NewReader().Open(context.Background(), path)
	require.NoError(t, err)

	require.Equal(t, len(coords), set.Len())
	for i := range coords {
		assert.Equal(t, coords[i], set.At(i))
	}
}

func TestReader_MissingFile(t *testing.T) {
	_, err := NewReader().Open(context.Background(), filepath.Join(t.TempDir(), "absent.idx"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReader_NotParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.idx")
	require.NoError(t, os.WriteFile(path, []byte("not a parquet file"), 0o644))

	_, err := NewReader().Open(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrMalformedCoordinateFile)
}

func TestReader_PartialMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.idx")
	require.NoError(t, Write(path, []domain.Coordinate{{X: 1, Y: 2}}, WithLevel(2)))

	set, err := NewReader().Open(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 2, set.Level)
	assert.Equal(t, domain.DefaultPatchSize, set.PatchSize)
}

func TestReader_NonIntegerMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad_meta.idx")
	md := arrow.NewMetadata([]string{MetaPatchSize}, []string{"lots"})
	writeColumns(t, path, arrow.NewSchema([]arrow.Field{
		{Name: "x", Type: arrow.PrimitiveTypes.Int64},
		{Name: "y", Type: arrow.PrimitiveTypes.Int64},
	}, &md))

	_, err := NewReader().Open(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrMalformedCoordinateFile)
}

func TestReader_MissingCoordinateColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wrong.idx")
	writeColumns(t, path, arrow.NewSchema([]arrow.Field{
		{Name: "row", Type: arrow.PrimitiveTypes.Int64},
		{Name: "col", Type: arrow.PrimitiveTypes.Int64},
	}, nil))

	_, err := NewReader().Open(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrMalformedCoordinateFile)
}

func TestReader_WrongColumnType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "floats.idx")
	writeColumns(t, path, arrow.NewSchema([]arrow.Field{
		{Name: "x", Type: arrow.PrimitiveTypes.Float64},
		{Name: "y", Type: arrow.PrimitiveTypes.Float64},
	}, nil))

	_, err := NewReader().Open(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrMalformedCoordinateFile)
}

// writeColumns writes a one-row parquet file with the given schema.
func writeColumns(t *testing.T, path string, schema *arrow.Schema) {
	t.Helper()

	fields := schema.Fields()
	mem := memory.NewGoAllocator()
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	for i := range fields {
		switch builder := b.Field(i).(type) {
		case *array.Int64Builder:
			builder.Append(0)
		case *array.Float64Builder:
			builder.Append(0)
		default:
			t.Fatalf("unsupported field type %T", builder)
		}
	}
	rec := b.NewRecord()
	defer rec.Release()
	tbl := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer tbl.Release()

	f, err := os.Create(path)
	require.NoError(t, err)
	arrProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())
	require.NoError(t, pqarrow.WriteTable(tbl, f, 1, parquet.NewWriterProperties(), arrProps))
}
