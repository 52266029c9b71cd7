// Package services implements the ingestion core: the per-slide state
// machine that streams coordinates, extracts and encodes patches, and
// flushes bounded batches to the destination table with failures
// contained at the slide boundary.
package services
