// Package parquetidx reads and writes per-slide coordinate index
// files. An index file is a Parquet file with two required int64
// columns, x and y, holding level-0 pixel coordinates in sampling
// order, and optional schema metadata keys patch_level and patch_size
// carrying the sampling parameters for the whole set.
package parquetidx
