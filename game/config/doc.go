// Package config provides game configuration loading for the click-race server.
//
// The config package implements:
//   - The Config type covering round timing, the reconnection grace window,
//     and the button-target canvas parameters
//   - A file-backed Manager that loads and caches JSON configurations from a
//     directory, with a built-in default when none is present on disk
//   - Validation of loaded configurations before they reach the coordinators
//
// Configuration Files:
//
// Configurations are JSON files named <name>.json inside the config directory.
// The manager resolves "default" to default.json and falls back to the compiled
// Default() values when that file does not exist, so a bare checkout runs
// without any setup.
//
// Concurrency:
//
// The manager is safe for concurrent use; the cache sits behind a read-write
// mutex and loaded configs are treated as immutable.
package config
