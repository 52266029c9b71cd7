// Package driving defines the interfaces through which the CLI drives
// the ingestion core.
package driving
