package parquetstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/array"
	"github.com/apache/arrow/go/v10/arrow/memory"
	"github.com/apache/arrow/go/v10/parquet"
	"github.com/apache/arrow/go/v10/parquet/file"
	"github.com/apache/arrow/go/v10/parquet/pqarrow"

	"github.com/aperturebio/slidelake-cli/internal/core/domain"
	"github.com/aperturebio/slidelake-cli/internal/core/ports/driven"
)

// Schema is the fixed patch table schema. The record builder in Append
// and the read paths share it, so a column change is a single edit
// here.
var Schema = arrow.NewSchema([]arrow.Field{
	{Name: "wsi_id", Type: arrow.BinaryTypes.String},
	{Name: "patch_idx", Type: arrow.PrimitiveTypes.Int64},
	{Name: "coord_x", Type: arrow.PrimitiveTypes.Int64},
	{Name: "coord_y", Type: arrow.PrimitiveTypes.Int64},
	{Name: "image", Type: arrow.BinaryTypes.Binary},
}, nil)

const (
	fragmentPrefix = "fragment-"
	fragmentExt    = ".parquet"
)

// Ensure Store implements the interface.
var _ driven.PatchStore = (*Store)(nil)

// Store is a directory-backed patch store.
type Store struct {
	path string
	mem  memory.Allocator
}

// Open opens the store rooted at dbPath, creating the directory if
// needed.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(dbPath, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreCreation, err)
	}
	return &Store{path: dbPath, mem: memory.NewGoAllocator()}, nil
}

// Path returns the store's root directory.
func (s *Store) Path() string {
	return s.path
}

// CreateTable opens the named table, recreating it when overwrite is
// set. A creation conflict without overwrite falls back to opening the
// existing table; any other failure wraps domain.ErrStoreCreation.
func (s *Store) CreateTable(_ context.Context, name string, overwrite bool) (driven.PatchTable, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty table name", domain.ErrStoreCreation)
	}
	dir := filepath.Join(s.path, name)

	if overwrite {
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("%w: replacing table %s: %v", domain.ErrStoreCreation, name, err)
		}
	}
	if err := os.Mkdir(dir, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("%w: creating table %s: %v", domain.ErrStoreCreation, name, err)
	}
	// On fs.ErrExist the table was created by a prior run; open it
	// as-is so appends resume into it.

	t, err := s.openTable(name)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// OpenTable opens an existing table without creating anything.
func (s *Store) OpenTable(_ context.Context, name string) (driven.PatchTable, error) {
	dir := filepath.Join(s.path, name)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: table %s", domain.ErrNotFound, name)
	}
	t, err := s.openTable(name)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) openTable(name string) (*Table, error) {
	t := &Table{
		name: name,
		dir:  filepath.Join(s.path, name),
		mem:  s.mem,
	}

	// Resume fragment numbering after the highest existing one so
	// append-mode runs keep directory order equal to append order.
	frags, err := t.fragments()
	if err != nil {
		return nil, fmt.Errorf("%w: listing table %s: %v", domain.ErrStoreCreation, name, err)
	}
	if len(frags) > 0 {
		seq, err := fragmentSeq(frags[len(frags)-1])
		if err != nil {
			return nil, fmt.Errorf("%w: table %s: %v", domain.ErrStoreCreation, name, err)
		}
		t.nextSeq = seq + 1
	}
	return t, nil
}

// Table is an append-only relation stored as numbered Parquet
// fragments. Single-writer; not safe for concurrent appends.
type Table struct {
	name    string
	dir     string
	mem     memory.Allocator
	nextSeq int
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Append writes one batch as a new fragment file and returns the
// fragment's name. Record order within the fragment matches the batch.
func (t *Table) Append(_ context.Context, batch domain.Batch) (string, error) {
	if len(batch) == 0 {
		return "", nil
	}

	b := array.NewRecordBuilder(t.mem, Schema)
	defer b.Release()

	ids := b.Field(0).(*array.StringBuilder)
	idxs := b.Field(1).(*array.Int64Builder)
	xs := b.Field(2).(*array.Int64Builder)
	ys := b.Field(3).(*array.Int64Builder)
	imgs := b.Field(4).(*array.BinaryBuilder)
	for _, r := range batch {
		ids.Append(r.SlideID)
		idxs.Append(r.Index)
		xs.Append(r.X)
		ys.Append(r.Y)
		imgs.Append(r.Image)
	}

	rec := b.NewRecord()
	defer rec.Release()
	tbl := array.NewTableFromRecords(Schema, []arrow.Record{rec})
	defer tbl.Release()

	fragment := fmt.Sprintf("%s%06d%s", fragmentPrefix, t.nextSeq, fragmentExt)
	final := filepath.Join(t.dir, fragment)
	tmp := final + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("creating fragment: %w", err)
	}
	props := parquet.NewWriterProperties()
	arrProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())
	// WriteTable closes the sink itself, success or not.
	if err := pqarrow.WriteTable(tbl, f, int64(len(batch)), props, arrProps); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("writing fragment: %w", err)
	}
	// Fragments become visible atomically; a crashed run leaves no
	// half-written fragment in the table.
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("publishing fragment: %w", err)
	}

	t.nextSeq++
	return fragment, nil
}

// DiscardFragments removes previously appended fragments. Fragments
// already gone are ignored.
func (t *Table) DiscardFragments(_ context.Context, fragments []string) error {
	var errs []error
	for _, name := range fragments {
		if err := os.Remove(filepath.Join(t.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("removing fragment %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Count returns the total number of records, summed from fragment
// metadata without materializing any rows.
func (t *Table) Count(_ context.Context) (int64, error) {
	frags, err := t.fragments()
	if err != nil {
		return 0, fmt.Errorf("listing fragments: %w", err)
	}

	var total int64
	for _, path := range frags {
		n, err := fragmentRows(path)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// CountSlide returns the number of records carrying slideID.
func (t *Table) CountSlide(ctx context.Context, slideID string) (int64, error) {
	frags, err := t.fragments()
	if err != nil {
		return 0, fmt.Errorf("listing fragments: %w", err)
	}

	var total int64
	for _, path := range frags {
		tbl, err := t.readFragment(ctx, path)
		if err != nil {
			return 0, err
		}
		col, err := column(tbl, "wsi_id")
		if err != nil {
			tbl.Release()
			return 0, err
		}
		for _, chunk := range col.Data().Chunks() {
			strs, ok := chunk.(*array.String)
			if !ok {
				tbl.Release()
				return 0, fmt.Errorf("column wsi_id is %s, want string", chunk.DataType())
			}
			for j := 0; j < strs.Len(); j++ {
				if strs.Value(j) == slideID {
					total++
				}
			}
		}
		tbl.Release()
	}
	return total, nil
}

// Sample returns up to n records in append order.
func (t *Table) Sample(ctx context.Context, n int) ([]domain.PatchRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	frags, err := t.fragments()
	if err != nil {
		return nil, fmt.Errorf("listing fragments: %w", err)
	}

	var out []domain.PatchRecord
	for _, path := range frags {
		if len(out) >= n {
			break
		}
		tbl, err := t.readFragment(ctx, path)
		if err != nil {
			return nil, err
		}
		recs, err := recordsFromTable(tbl, n-len(out))
		tbl.Release()
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

// fragments returns the table's fragment paths in append order. Glob
// returns lexically sorted paths and fragment names are zero-padded,
// so the two orders coincide.
func (t *Table) fragments() ([]string, error) {
	return filepath.Glob(filepath.Join(t.dir, fragmentPrefix+"*"+fragmentExt))
}

func (t *Table) readFragment(ctx context.Context, path string) (arrow.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening fragment: %w", err)
	}
	defer f.Close()

	pf, err := file.NewParquetReader(f)
	if err != nil {
		return nil, fmt.Errorf("reading fragment %s: %w", filepath.Base(path), err)
	}
	rdr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, t.mem)
	if err != nil {
		return nil, fmt.Errorf("reading fragment %s: %w", filepath.Base(path), err)
	}
	tbl, err := rdr.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading fragment %s: %w", filepath.Base(path), err)
	}
	return tbl, nil
}

// fragmentRows reads a fragment's row count from its metadata.
func fragmentRows(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening fragment: %w", err)
	}
	defer f.Close()

	pf, err := file.NewParquetReader(f)
	if err != nil {
		return 0, fmt.Errorf("reading fragment %s: %w", filepath.Base(path), err)
	}
	return pf.NumRows(), nil
}

// fragmentSeq parses the sequence number out of a fragment path.
func fragmentSeq(path string) (int, error) {
	base := filepath.Base(path)
	num := strings.TrimSuffix(strings.TrimPrefix(base, fragmentPrefix), fragmentExt)
	seq, err := strconv.Atoi(num)
	if err != nil {
		return 0, fmt.Errorf("unexpected fragment name %s", base)
	}
	return seq, nil
}

// column finds a table column by name.
func column(tbl arrow.Table, name string) (*arrow.Column, error) {
	indices := tbl.Schema().FieldIndices(name)
	if len(indices) == 0 {
		return nil, fmt.Errorf("column %s not present", name)
	}
	return tbl.Column(indices[0]), nil
}

// recordsFromTable converts up to limit rows into patch records. All
// columns of a fragment are written from a single arrow record, so
// their chunk boundaries align.
func recordsFromTable(tbl arrow.Table, limit int) ([]domain.PatchRecord, error) {
	idCol, err := column(tbl, "wsi_id")
	if err != nil {
		return nil, err
	}
	idxCol, err := column(tbl, "patch_idx")
	if err != nil {
		return nil, err
	}
	xCol, err := column(tbl, "coord_x")
	if err != nil {
		return nil, err
	}
	yCol, err := column(tbl, "coord_y")
	if err != nil {
		return nil, err
	}
	imgCol, err := column(tbl, "image")
	if err != nil {
		return nil, err
	}

	var out []domain.PatchRecord
	for ci, chunk := range idCol.Data().Chunks() {
		ids, ok := chunk.(*array.String)
		if !ok {
			return nil, fmt.Errorf("column wsi_id is %s, want string", chunk.DataType())
		}
		idxs, ok := idxCol.Data().Chunks()[ci].(*array.Int64)
		if !ok {
			return nil, fmt.Errorf("column patch_idx is not int64")
		}
		xs, ok := xCol.Data().Chunks()[ci].(*array.Int64)
		if !ok {
			return nil, fmt.Errorf("column coord_x is not int64")
		}
		ys, ok := yCol.Data().Chunks()[ci].(*array.Int64)
		if !ok {
			return nil, fmt.Errorf("column coord_y is not int64")
		}
		imgs, ok := imgCol.Data().Chunks()[ci].(*array.Binary)
		if !ok {
			return nil, fmt.Errorf("column image is not binary")
		}

		for j := 0; j < ids.Len(); j++ {
			if len(out) >= limit {
				return out, nil
			}
			out = append(out, domain.PatchRecord{
				SlideID: ids.Value(j),
				Index:   idxs.Value(j),
				X:       xs.Value(j),
				Y:       ys.Value(j),
				Image:   append([]byte(nil), imgs.Value(j)...),
			})
		}
	}
	return out, nil
}
