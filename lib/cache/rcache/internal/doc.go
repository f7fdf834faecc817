// Package internal contains the raft log encoding of the replicated cache.
//
// Commands use a compact binary layout (type, key length, key, value) so that log entries
// stay small. Queries are passed in process and are not encoded.
package internal
