// Package file provides the TOML-backed configuration store. Values
// persist to config.toml in the slidelake config directory and supply
// defaults for CLI flags.
package file
