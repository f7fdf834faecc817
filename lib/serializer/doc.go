// Package serializer persists and restores typed values to files or caller owned streams.
//
// Every serializer implements ISerializer[T]. The implementation is chosen at construction:
//
//	format:  json (compact structured text) or xml (compact tagged markup)
//	target:  a file path or an already open io.ReadWriter
//	options: compression on/off, scheme (deflate, gzip), level, known types, metrics
//
// Pipeline:
//
//	A serializer is an explicit pipeline built once from its options. On write the value flows
//	through the format codec, then through the optional compression stage, into the target:
//
//	  value -> codec -> [compress] -> target stream -> [fsync, files only]
//
//	Finalization runs innermost first: the codec flushes its buffer, the compressor is closed (which
//	emits its trailing bytes but leaves the target open), the target stream is flushed when it
//	implements Flush() error, and for files the data is synced to the storage medium. Stages are
//	released on every exit path. Partial writes are not rolled back, a target that saw a failed
//	Serialize must be treated as corrupt.
//
// Files:
//
//	A file serializer holds no open handle between calls. Each call opens the file, takes an
//	exclusive non-blocking lock (flock on unix, LockFileEx on windows) and fails immediately with
//	cacheerr.ErrCResourceBusy if another call (in this or another process) holds it. Serialize truncates
//	the file only after the lock is held.
//
// Errors:
//
//	All failures are *cacheerr.Error values: ErrCConfig for invalid paths, options and known types,
//	ErrCResourceBusy for lock conflicts and ErrCUnknown (with the cause attached) for I/O and codec faults.
//
// Wire contract:
//
//	The json format is fixed to strict mode: default and nil fields are omitted, dates are RFC 3339
//	with nanoseconds and the original UTC offset, cyclic references are rejected and shared references
//	are written by value. Object members are written in sorted key order. Values in interface typed
//	fields carry a "$type" member and must be of a known type in both formats. Strings that a format
//	cannot carry (invalid utf-8, or characters outside the xml 1.0 range) fail instead of being replaced.
//	On read a compressed stream is consumed to its end, so a damaged gzip checksum is reported.
//
// Usage:
//
//	s, err := serializer.NewJSONFileSerializer[cache.Snapshot[string, int]]("cache.json.deflate")
//	if err != nil { ... }
//	err = s.Serialize(snapshot)
//	restored, err := s.Deserialize()
package serializer
