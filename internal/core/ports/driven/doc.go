// Package driven defines the interfaces the ingestion core depends on:
// coordinate sources, slide readers, patch encoders, the destination
// patch store, the run journal, and configuration.
//
// Adapters under internal/adapters/driven implement these interfaces.
package driven
