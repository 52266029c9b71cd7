// Package parquetstore implements the destination patch store as a
// directory of Parquet files. A table is a subdirectory of the store
// path; every appended batch becomes one sequentially numbered
// fragment file, so lexical directory order is append order and a
// slide's partial output can be rolled back by deleting its fragments.
package parquetstore
