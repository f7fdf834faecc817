// Package compress provides the compression stage of the serializer pipeline.
//
// Two schemes are supported: raw Deflate (the default) and GZip framing. Both are implemented by
// github.com/klauspost/compress, this package only selects the algorithm, maps the aggressiveness
// Level onto the compressor and enforces the ownership rule: closing a compressing writer finalizes
// the compressed stream but never closes the stream beneath it, so the caller can still flush and
// sync the underlying target afterwards.
//
// Data written with one scheme can only be read with the same scheme. Reading GZip data as raw
// Deflate (or the other way round) fails instead of producing garbage.
package compress
