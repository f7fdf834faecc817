// Package cmd implements the command-line interface of dPersist. It provides commands
// to write, read, convert and verify cache snapshot files and to benchmark the serializer
// pipeline.
//
// The package is organized into several subpackages:
//
//   - snapshot: Commands for snapshot files (save, load, convert, verify)
//   - bench: Throughput measurement for every format and compression setting
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// All serializer settings can be given as flags, as DPERSIST_* environment variables or in
// a .env / .env.local file. See dpersist -help for a list of all commands.
package cmd
