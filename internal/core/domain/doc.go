// Package domain contains the core types of the patch ingestion
// pipeline: coordinate sets read from index files, patch records bound
// for the destination table, and per-slide run outcomes.
//
// The domain layer has no dependencies on adapters or external
// libraries.
package domain
